package price

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"crypto-telegram-bot/config"
	"crypto-telegram-bot/internal/types"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listSource struct {
	Source
	ids []types.AssetID
	err error
}

func (s listSource) KnownAssetIDs(context.Context) ([]types.AssetID, error) {
	return s.ids, s.err
}

var testAliases = []config.Alias{{Name: "e", Asset: "ethereum"}, {Name: "m", Asset: "monero"}}

func TestAssets_Resolve(t *testing.T) {
	assets := NewAssets([]types.AssetID{"bitcoin", "Ethereum", "e"}, testAliases)

	id, ok := assets.Resolve("E")
	require.True(t, ok)
	assert.Equal(t, types.AssetID("ethereum"), id)

	id, ok = assets.Resolve("BITCOIN")
	require.True(t, ok)
	assert.Equal(t, types.AssetID("bitcoin"), id)

	_, ok = assets.Resolve("dogecoin")
	assert.False(t, ok)

	assert.Equal(t, []types.AssetID{"ethereum", "monero"}, assets.Favourites())
}

func TestLoadAssets_Remote(t *testing.T) {
	assets := LoadAssets(context.Background(), listSource{ids: []types.AssetID{"bitcoin", "tron"}}, "missing.txt", testAliases)
	assert.Equal(t, 2, assets.KnownCount())
	_, ok := assets.Resolve("tron")
	assert.True(t, ok)
}

func TestLoadAssets_Fallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "valid_names.txt")
	require.NoError(t, os.WriteFile(path, []byte("bitcoin, polkadot,  tron\n"), 0o644))

	source := listSource{err: &FetchError{Op: "list", Err: errors.New("offline")}}
	assets := LoadAssets(context.Background(), source, path, testAliases)

	assert.Equal(t, 3, assets.KnownCount())
	_, ok := assets.Resolve("tron")
	assert.True(t, ok)
}

func TestLoadAssets_NoFallback(t *testing.T) {
	source := listSource{err: &FetchError{Op: "list", Err: errors.New("offline")}}
	assets := LoadAssets(context.Background(), source, filepath.Join(t.TempDir(), "nope.txt"), testAliases)

	assert.Equal(t, 0, assets.KnownCount())
	_, ok := assets.Resolve("m")
	assert.True(t, ok)
	_, ok = assets.Resolve("bitcoin")
	assert.False(t, ok)
}
