package price

import (
	"context"
	"fmt"

	"crypto-telegram-bot/internal/types"
)

// Source is a remote price service.
type Source interface {
	// CurrentPrice returns the latest price of asset in the configured currency.
	CurrentPrice(ctx context.Context, asset types.AssetID) (float64, error)
	// HistoricalSeries returns time-ordered samples for the last days days.
	HistoricalSeries(ctx context.Context, asset types.AssetID, days int) ([]types.PricePoint, error)
	// KnownAssetIDs lists every asset id the service can quote.
	KnownAssetIDs(ctx context.Context) ([]types.AssetID, error)
}

// FetchError is a recoverable failure talking to the price service.
type FetchError struct {
	Op    string
	Asset types.AssetID
	Err   error
}

func (e *FetchError) Error() string {
	if e.Asset == "" {
		return fmt.Sprintf("price %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("price %s %s: %v", e.Op, e.Asset, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func fetchError(op string, asset types.AssetID, err error) error {
	return &FetchError{Op: op, Asset: asset, Err: err}
}
