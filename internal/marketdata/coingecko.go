// Package marketdata provides the market data provider boundary: one-shot
// price fetches the engine applies atomically as a snapshot.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-querystring/query"
	"github.com/rs/zerolog"

	apperrors "conviction-trader/internal/errors"
	"conviction-trader/internal/models"
	"conviction-trader/pkg/utils"
)

// DefaultBaseURL is the public CoinGecko API endpoint.
const DefaultBaseURL = "https://api.coingecko.com/api/v3"

// symbolMap maps ticker symbols to CoinGecko coin ids. Symbols outside the
// map fall back to their lower-cased form.
var symbolMap = map[string]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"BNB":   "binancecoin",
	"XRP":   "ripple",
	"ADA":   "cardano",
	"DOGE":  "dogecoin",
	"SOL":   "solana",
	"TRX":   "tron",
	"DOT":   "polkadot",
	"MATIC": "matic-network",
	"LTC":   "litecoin",
	"SHIB":  "shiba-inu",
	"AVAX":  "avalanche-2",
	"UNI":   "uniswap",
	"ATOM":  "cosmos",
	"LINK":  "chainlink",
	"XMR":   "monero",
	"ETC":   "ethereum-classic",
	"BCH":   "bitcoin-cash",
	"ALGO":  "algorand",
}

// Client fetches crypto prices from CoinGecko.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retry      utils.RetryConfig
	logger     zerolog.Logger
}

// NewClient creates a market data client. An empty baseURL uses the public
// API.
func NewClient(baseURL string, logger zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		retry:      utils.DefaultRetryConfig(),
		logger:     logger,
	}
}

// simplePriceParams are the query parameters for the simple/price endpoint.
type simplePriceParams struct {
	IDs               string `url:"ids"`
	VsCurrencies      string `url:"vs_currencies"`
	Include24hChange  bool   `url:"include_24hr_change"`
	IncludeLastUpdate bool   `url:"include_last_updated_at"`
}

// simplePriceEntry is one coin's entry in the simple/price response.
type simplePriceEntry struct {
	USD          float64 `json:"usd"`
	USD24hChange float64 `json:"usd_24h_change"`
	LastUpdated  int64   `json:"last_updated_at"`
}

// coinID resolves a ticker symbol to its CoinGecko coin id.
func coinID(symbol string) string {
	if id, ok := symbolMap[strings.ToUpper(symbol)]; ok {
		return id
	}
	return strings.ToLower(symbol)
}

// FetchPrices fetches current prices for the given symbols. The returned map
// is keyed by upper-cased symbol; symbols the API does not know are absent
// from the map rather than an error.
func (c *Client) FetchPrices(ctx context.Context, symbols []string) (map[string]models.PriceData, error) {
	if len(symbols) == 0 {
		return map[string]models.PriceData{}, nil
	}

	ids := make([]string, 0, len(symbols))
	for _, s := range symbols {
		ids = append(ids, coinID(s))
	}

	params, err := query.Values(simplePriceParams{
		IDs:               strings.Join(ids, ","),
		VsCurrencies:      "usd",
		Include24hChange:  true,
		IncludeLastUpdate: true,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding query: %w", err)
	}

	url := c.baseURL + "/simple/price?" + params.Encode()

	data, err := utils.RetryWithResult(ctx, c.retry, func() (map[string]simplePriceEntry, error) {
		return c.fetch(ctx, url)
	})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	prices := make(map[string]models.PriceData, len(symbols))
	for _, symbol := range symbols {
		entry, ok := data[coinID(symbol)]
		if !ok {
			continue
		}
		upper := strings.ToUpper(symbol)
		prices[upper] = models.PriceData{
			Symbol:      upper,
			Price:       entry.USD,
			Change24h:   entry.USD24hChange,
			LastUpdated: now,
		}
	}

	c.logger.Debug().Int("requested", len(symbols)).Int("received", len(prices)).Msg("Prices fetched")
	return prices, nil
}

func (c *Client) fetch(ctx context.Context, url string) (map[string]simplePriceEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewDataError("coingecko", "fetching prices", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, apperrors.NewDataError("coingecko", "rate limited", apperrors.ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewDataError("coingecko",
			fmt.Sprintf("status %d", resp.StatusCode), nil)
	}

	var data map[string]simplePriceEntry
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decoding price response: %w", err)
	}
	return data, nil
}
