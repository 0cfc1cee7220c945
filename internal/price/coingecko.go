package price

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"crypto-telegram-bot/internal/types"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const DefaultCoinGeckoURL = "https://api.coingecko.com/api/v3"

// CoinGecko talks to the public CoinGecko REST API.
type CoinGecko struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	currency   string
	logger     *log.Entry
}

type CoinGeckoConfig struct {
	BaseURL  string
	APIKey   string
	Currency string
	Timeout  time.Duration
}

type coinGeckoCoin struct {
	ID         string `json:"id"`
	MarketData *struct {
		CurrentPrice map[string]float64 `json:"current_price"`
	} `json:"market_data"`
}

type coinGeckoMarketChart struct {
	Prices [][]float64 `json:"prices"`
}

func NewCoinGecko(c CoinGeckoConfig) *CoinGecko {
	if c.BaseURL == "" {
		c.BaseURL = DefaultCoinGeckoURL
	}
	if c.Currency == "" {
		c.Currency = "eur"
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	return &CoinGecko{
		httpClient: &http.Client{Timeout: c.Timeout},
		baseURL:    strings.TrimRight(c.BaseURL, "/"),
		apiKey:     c.APIKey,
		currency:   strings.ToLower(c.Currency),
		logger:     log.WithField("component", "coingecko"),
	}
}

// CurrentPrice reads market_data.current_price.<currency> from /coins/{id}.
func (c *CoinGecko) CurrentPrice(ctx context.Context, asset types.AssetID) (float64, error) {
	query := url.Values{
		"localization":   {"false"},
		"tickers":        {"false"},
		"market_data":    {"true"},
		"community_data": {"false"},
		"developer_data": {"false"},
	}

	var coin coinGeckoCoin
	if err := c.get(ctx, "/coins/"+url.PathEscape(string(asset)), query, &coin); err != nil {
		return 0, fetchError("current", asset, err)
	}

	if coin.MarketData == nil {
		return 0, fetchError("current", asset, errors.New("response has no market_data"))
	}
	p, ok := coin.MarketData.CurrentPrice[c.currency]
	if !ok {
		return 0, fetchError("current", asset, errors.Errorf("response has no %s price", c.currency))
	}

	c.logger.WithFields(log.Fields{"asset": asset, "price": p}).Debug("fetched current price")
	return p, nil
}

// HistoricalSeries reads /coins/{id}/market_chart for the given day window.
func (c *CoinGecko) HistoricalSeries(ctx context.Context, asset types.AssetID, days int) ([]types.PricePoint, error) {
	query := url.Values{
		"vs_currency": {c.currency},
		"days":        {strconv.Itoa(days)},
	}

	var chart coinGeckoMarketChart
	if err := c.get(ctx, "/coins/"+url.PathEscape(string(asset))+"/market_chart", query, &chart); err != nil {
		return nil, fetchError("history", asset, err)
	}
	if chart.Prices == nil {
		return nil, fetchError("history", asset, errors.New("response has no prices"))
	}

	series := make([]types.PricePoint, 0, len(chart.Prices))
	for _, pair := range chart.Prices {
		if len(pair) < 2 {
			continue
		}
		series = append(series, types.PricePoint{
			Time:  time.UnixMilli(int64(pair[0])),
			Price: pair[1],
		})
	}

	c.logger.WithFields(log.Fields{"asset": asset, "days": days, "points": len(series)}).Debug("fetched price history")
	return series, nil
}

// KnownAssetIDs reads /coins/list.
func (c *CoinGecko) KnownAssetIDs(ctx context.Context) ([]types.AssetID, error) {
	var coins []coinGeckoCoin
	if err := c.get(ctx, "/coins/list", url.Values{"include_platform": {"false"}}, &coins); err != nil {
		return nil, fetchError("list", "", err)
	}

	ids := make([]types.AssetID, 0, len(coins))
	for _, coin := range coins {
		if coin.ID != "" {
			ids = append(ids, types.AssetID(coin.ID))
		}
	}
	return ids, nil
}

func (c *CoinGecko) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	endpoint := fmt.Sprintf("%s%s?%s", c.baseURL, path, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Errorf("API returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "failed to decode response")
	}
	return nil
}
