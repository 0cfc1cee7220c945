package price

import (
	"context"
	"net/http"
	"strings"
	"time"

	"crypto-telegram-bot/internal/types"
	"github.com/coinpaprika/coinpaprika-api-go-client/v2/coinpaprika"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Coinpaprika quotes prices through the coinpaprika API client.
// Asset ids are coinpaprika ids such as "eth-ethereum".
type Coinpaprika struct {
	client   *coinpaprika.Client
	currency string
	logger   *log.Entry
}

type CoinpaprikaConfig struct {
	APIKey   string
	Currency string
	Timeout  time.Duration
}

func NewCoinpaprika(c CoinpaprikaConfig) *Coinpaprika {
	if c.Currency == "" {
		c.Currency = "eur"
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}

	httpClient := &http.Client{Timeout: c.Timeout}
	var client *coinpaprika.Client
	if c.APIKey != "" {
		client = coinpaprika.NewClient(httpClient, coinpaprika.WithAPIKey(c.APIKey))
	} else {
		client = coinpaprika.NewClient(httpClient)
	}

	return &Coinpaprika{
		client:   client,
		currency: strings.ToUpper(c.Currency),
		logger:   log.WithField("component", "coinpaprika"),
	}
}

func (p *Coinpaprika) CurrentPrice(_ context.Context, asset types.AssetID) (float64, error) {
	ticker, err := p.client.Tickers.GetByID(string(asset), &coinpaprika.TickersOptions{Quotes: p.currency})
	if err != nil {
		return 0, fetchError("current", asset, errors.Wrap(err, "ticker request failed"))
	}
	if ticker == nil || ticker.Quotes == nil {
		return 0, fetchError("current", asset, errors.New("ticker has no quotes"))
	}

	quote, ok := ticker.Quotes[p.currency]
	if !ok || quote.Price == nil {
		return 0, fetchError("current", asset, errors.Errorf("ticker has no %s price", p.currency))
	}
	return *quote.Price, nil
}

func (p *Coinpaprika) HistoricalSeries(_ context.Context, asset types.AssetID, days int) ([]types.PricePoint, error) {
	opts := &coinpaprika.TickersHistoricalOptions{
		Start:    time.Now().AddDate(0, 0, -days),
		Quote:    strings.ToLower(p.currency),
		Interval: historicalInterval(days),
		Limit:    5000,
	}
	tickers, err := p.client.Tickers.GetHistoricalTickersByID(string(asset), opts)
	if err != nil {
		return nil, fetchError("history", asset, errors.Wrap(err, "historical tickers request failed"))
	}

	series := make([]types.PricePoint, 0, len(tickers))
	for _, t := range tickers {
		if t == nil || t.Timestamp == nil || t.Price == nil {
			continue
		}
		series = append(series, types.PricePoint{Time: *t.Timestamp, Price: *t.Price})
	}

	p.logger.WithFields(log.Fields{"asset": asset, "days": days, "points": len(series)}).Debug("fetched price history")
	return series, nil
}

func (p *Coinpaprika) KnownAssetIDs(_ context.Context) ([]types.AssetID, error) {
	coins, err := p.client.Coins.List()
	if err != nil {
		return nil, fetchError("list", "", errors.Wrap(err, "coin list request failed"))
	}

	ids := make([]types.AssetID, 0, len(coins))
	for _, c := range coins {
		if c != nil && c.ID != nil {
			ids = append(ids, types.AssetID(*c.ID))
		}
	}
	return ids, nil
}

func historicalInterval(days int) string {
	switch {
	case days > 30:
		return "1d"
	case days > 1:
		return "1h"
	default:
		return "5m"
	}
}
