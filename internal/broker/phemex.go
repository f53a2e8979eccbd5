package broker

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	apperrors "conviction-trader/internal/errors"
	"conviction-trader/internal/models"
)

// DefaultPhemexURL is the production Phemex API endpoint.
const DefaultPhemexURL = "https://api.phemex.com"

// Phemex wire scales: prices carry 4 implied decimals (Ep fields), values 8
// (Ev fields). Normalized to decimals before anything leaves this package.
const (
	priceScale = 10000
	valueScale = 100000000
)

// PhemexGateway implements Gateway against the Phemex REST API.
type PhemexGateway struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	httpClient *http.Client
	logger     zerolog.Logger
}

// PhemexConfig holds Phemex gateway configuration.
type PhemexConfig struct {
	BaseURL   string
	APIKey    string
	APISecret string
}

// NewPhemexGateway creates a gateway for the Phemex exchange.
func NewPhemexGateway(cfg PhemexConfig, logger zerolog.Logger) *PhemexGateway {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultPhemexURL
	}
	return &PhemexGateway{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		apiSecret:  cfg.APISecret,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

// IsConfigured reports whether API credentials are present.
func (g *PhemexGateway) IsConfigured() bool {
	return g.apiKey != "" && g.apiSecret != ""
}

// sign produces the request signature: HMAC-SHA256 over
// path + query + expiry + body with the API secret.
func (g *PhemexGateway) sign(path, queryString, body string, expiry int64) string {
	mac := hmac.New(sha256.New, []byte(g.apiSecret))
	mac.Write([]byte(path + queryString + strconv.FormatInt(expiry, 10) + body))
	return hex.EncodeToString(mac.Sum(nil))
}

func (g *PhemexGateway) request(ctx context.Context, path string, out interface{}) error {
	if !g.IsConfigured() {
		return apperrors.ErrNotConfigured
	}

	expiry := time.Now().Unix() + 60
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
	if err != nil {
		return err
	}

	// The signature covers the path and raw query without the separator.
	signPath, query := path, ""
	if i := strings.IndexByte(path, '?'); i >= 0 {
		signPath, query = path[:i], path[i+1:]
	}

	req.Header.Set("x-phemex-access-token", g.apiKey)
	req.Header.Set("x-phemex-request-signature", g.sign(signPath, query, "", expiry))
	req.Header.Set("x-phemex-request-expiry", strconv.FormatInt(expiry, 10))
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("phemex request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("phemex API status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding phemex response: %w", err)
	}
	return nil
}

// accountPositionsResponse is the wire shape of /accounts/accountPositions.
// Ep/Ev fields are exchange-native scaled integers.
type accountPositionsResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		Account struct {
			AccountID          int64  `json:"accountID"`
			Currency           string `json:"currency"`
			AccountBalanceEv   int64  `json:"accountBalanceEv"`
			TotalUsedBalanceEv int64  `json:"totalUsedBalanceEv"`
			UnrealisedPnlEv    int64  `json:"totalUnrealisedPnlEv"`
		} `json:"account"`
		Positions []struct {
			Symbol          string  `json:"symbol"`
			Side            string  `json:"side"`
			Size            float64 `json:"size"`
			ValueEv         int64   `json:"valueEv"`
			AvgEntryPriceEp int64   `json:"avgEntryPriceEp"`
			MarkPriceEp     int64   `json:"markPriceEp"`
			UnrealisedPnlEv int64   `json:"unrealisedPnlEv"`
		} `json:"positions"`
	} `json:"data"`
}

func (g *PhemexGateway) fetchAccountPositions(ctx context.Context) (*accountPositionsResponse, error) {
	var resp accountPositionsResponse
	if err := g.request(ctx, "/accounts/accountPositions?currency=USD", &resp); err != nil {
		return nil, err
	}
	if resp.Code != 0 {
		return nil, apperrors.NewBrokerError(resp.Code, resp.Msg, nil)
	}
	return &resp, nil
}

// GetPositions returns the account's positions, normalized to canonical
// decimal values.
func (g *PhemexGateway) GetPositions(ctx context.Context) ([]models.BrokerPosition, error) {
	resp, err := g.fetchAccountPositions(ctx)
	if err != nil {
		return nil, err
	}

	positions := make([]models.BrokerPosition, 0, len(resp.Data.Positions))
	for _, p := range resp.Data.Positions {
		value := float64(p.ValueEv) / valueScale
		positions = append(positions, models.BrokerPosition{
			Symbol:        p.Symbol,
			Side:          models.BrokerSide(p.Side),
			Size:          p.Size,
			Value:         value,
			EntryPrice:    float64(p.AvgEntryPriceEp) / priceScale,
			MarkPrice:     float64(p.MarkPriceEp) / priceScale,
			UnrealisedPnL: float64(p.UnrealisedPnlEv) / valueScale,
		})
	}

	g.logger.Debug().Int("positions", len(positions)).Msg("Phemex positions fetched")
	return positions, nil
}

// GetAccount returns the account equity and balance summary in canonical
// decimals.
func (g *PhemexGateway) GetAccount(ctx context.Context) (*models.Account, error) {
	resp, err := g.fetchAccountPositions(ctx)
	if err != nil {
		return nil, err
	}

	acc := resp.Data.Account
	balance := float64(acc.AccountBalanceEv) / valueScale
	unrealised := float64(acc.UnrealisedPnlEv) / valueScale
	used := float64(acc.TotalUsedBalanceEv) / valueScale

	return &models.Account{
		AccountID:        acc.AccountID,
		Currency:         acc.Currency,
		TotalEquity:      balance + unrealised,
		AvailableBalance: balance - used,
		UnrealisedPnL:    unrealised,
	}, nil
}

// TestConnection verifies the credentials by fetching the account summary.
func (g *PhemexGateway) TestConnection(ctx context.Context) error {
	_, err := g.GetAccount(ctx)
	return err
}
