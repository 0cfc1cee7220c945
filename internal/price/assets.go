package price

import (
	"context"
	"os"
	"strings"

	"crypto-telegram-bot/config"
	"crypto-telegram-bot/internal/types"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

// Assets resolves user input to canonical asset ids.
// Aliases take precedence over the known set.
type Assets struct {
	aliases    map[string]types.AssetID
	favourites []types.AssetID
	known      map[types.AssetID]struct{}
}

func NewAssets(known []types.AssetID, aliases []config.Alias) *Assets {
	a := &Assets{
		aliases: make(map[string]types.AssetID, len(aliases)),
		known:   make(map[types.AssetID]struct{}, len(known)),
	}
	for _, alias := range aliases {
		a.aliases[alias.Name] = types.AssetID(alias.Asset)
	}
	a.favourites = lo.Uniq(lo.Map(aliases, func(alias config.Alias, _ int) types.AssetID {
		return types.AssetID(alias.Asset)
	}))
	for _, id := range known {
		a.known[types.AssetID(strings.ToLower(string(id)))] = struct{}{}
	}
	return a
}

// Resolve returns the canonical id for name, or false when it is neither an alias nor a known asset.
func (a *Assets) Resolve(name string) (types.AssetID, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if id, ok := a.aliases[name]; ok {
		return id, true
	}
	if _, ok := a.known[types.AssetID(name)]; ok {
		return types.AssetID(name), true
	}
	return "", false
}

// Favourites are the alias targets in alias order.
func (a *Assets) Favourites() []types.AssetID {
	return append([]types.AssetID(nil), a.favourites...)
}

// KnownCount is the size of the validated set, excluding aliases.
func (a *Assets) KnownCount() int {
	return len(a.known)
}

// LoadAssets fetches the known asset ids once. When the service is unreachable
// it reads the comma-separated fallback file, and when that fails too only the
// aliases remain valid.
func LoadAssets(ctx context.Context, source Source, fallbackPath string, aliases []config.Alias) *Assets {
	logger := log.WithField("component", "assets")

	ids, err := source.KnownAssetIDs(ctx)
	if err == nil && len(ids) > 0 {
		logger.Infof("loaded %d known assets from price service", len(ids))
		return NewAssets(ids, aliases)
	}
	if err == nil {
		err = errors.New("price service returned an empty asset list")
	}
	logger.WithError(err).Warn("falling back to local asset list")

	ids, err = ReadFallbackList(fallbackPath)
	if err != nil {
		logger.WithError(err).Warn("fallback asset list unavailable, only aliases are accepted")
		return NewAssets(nil, aliases)
	}

	logger.Infof("loaded %d known assets from %s", len(ids), fallbackPath)
	return NewAssets(ids, aliases)
}

// ReadFallbackList parses "bitcoin, ethereum, monero".
func ReadFallbackList(path string) ([]types.AssetID, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read %s", path)
	}

	ids := lo.FilterMap(strings.Split(string(data), ","), func(item string, _ int) (types.AssetID, bool) {
		item = strings.ToLower(strings.TrimSpace(item))
		return types.AssetID(item), item != ""
	})
	return ids, nil
}
