package broker

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/rs/zerolog"

	"conviction-trader/internal/models"
)

const accountPositionsBody = `{
	"code": 0,
	"msg": "",
	"data": {
		"account": {
			"accountID": 12345,
			"currency": "USD",
			"accountBalanceEv": 1476600000000,
			"totalUsedBalanceEv": 50000000000,
			"totalUnrealisedPnlEv": 2500000000
		},
		"positions": [
			{
				"symbol": "BTCUSD",
				"side": "Buy",
				"size": 100,
				"valueEv": 100000000000,
				"avgEntryPriceEp": 620000000,
				"markPriceEp": 640000000,
				"unrealisedPnlEv": 3200000000
			},
			{
				"symbol": "ETHUSD",
				"side": "Sell",
				"size": 0,
				"valueEv": 0,
				"avgEntryPriceEp": 32000000,
				"markPriceEp": 30000000,
				"unrealisedPnlEv": 0
			}
		]
	}
}`

func newPhemexTestServer(t *testing.T, secret string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		expiry := r.Header.Get("x-phemex-request-expiry")
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write([]byte(r.URL.Path + r.URL.RawQuery + expiry))
		want := hex.EncodeToString(mac.Sum(nil))

		if got := r.Header.Get("x-phemex-request-signature"); got != want {
			t.Errorf("signature = %q, want %q", got, want)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.Header.Get("x-phemex-access-token") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(accountPositionsBody))
	}))
}

func TestGetPositionsNormalizesWireScales(t *testing.T) {
	server := newPhemexTestServer(t, "secret")
	defer server.Close()

	gateway := NewPhemexGateway(PhemexConfig{
		BaseURL:   server.URL,
		APIKey:    "key",
		APISecret: "secret",
	}, zerolog.Nop())

	positions, err := gateway.GetPositions(context.Background())
	if err != nil {
		t.Fatalf("GetPositions failed: %v", err)
	}
	if len(positions) != 2 {
		t.Fatalf("got %d positions, want 2", len(positions))
	}

	btc := positions[0]
	if btc.Symbol != "BTCUSD" || btc.Side != models.BrokerSideBuy {
		t.Errorf("identity = %s/%s", btc.Symbol, btc.Side)
	}
	// Ep fields carry 4 implied decimals, Ev fields 8.
	if btc.EntryPrice != 62000 {
		t.Errorf("EntryPrice = %v, want 62000", btc.EntryPrice)
	}
	if btc.MarkPrice != 64000 {
		t.Errorf("MarkPrice = %v, want 64000", btc.MarkPrice)
	}
	if btc.Value != 1000 {
		t.Errorf("Value = %v, want 1000", btc.Value)
	}
	if btc.UnrealisedPnL != 32 {
		t.Errorf("UnrealisedPnL = %v, want 32", btc.UnrealisedPnL)
	}

	// The gateway reports what the exchange reports; flat positions are the
	// reconciler's problem, not the wire layer's.
	if positions[1].Size != 0 {
		t.Errorf("flat position size = %v, want 0", positions[1].Size)
	}
}

func TestGetAccountDerivesEquityAndBalance(t *testing.T) {
	server := newPhemexTestServer(t, "secret")
	defer server.Close()

	gateway := NewPhemexGateway(PhemexConfig{
		BaseURL:   server.URL,
		APIKey:    "key",
		APISecret: "secret",
	}, zerolog.Nop())

	account, err := gateway.GetAccount(context.Background())
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if account.AccountID != 12345 || account.Currency != "USD" {
		t.Errorf("identity = %d/%s", account.AccountID, account.Currency)
	}
	if account.TotalEquity != 14766+25 {
		t.Errorf("TotalEquity = %v, want 14791", account.TotalEquity)
	}
	if account.AvailableBalance != 14766-500 {
		t.Errorf("AvailableBalance = %v, want 14266", account.AvailableBalance)
	}
	if account.UnrealisedPnL != 25 {
		t.Errorf("UnrealisedPnL = %v, want 25", account.UnrealisedPnL)
	}
}

func TestRequestFailsWithoutCredentials(t *testing.T) {
	gateway := NewPhemexGateway(PhemexConfig{BaseURL: "http://127.0.0.1:0"}, zerolog.Nop())
	if gateway.IsConfigured() {
		t.Error("gateway without credentials reports configured")
	}
	if _, err := gateway.GetPositions(context.Background()); err == nil {
		t.Error("expected error without credentials")
	}
}

func TestGetPositionsSurfacesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code": 10500, "msg": "auth failed", "data": {}}`))
	}))
	defer server.Close()

	gateway := NewPhemexGateway(PhemexConfig{
		BaseURL:   server.URL,
		APIKey:    "key",
		APISecret: "secret",
	}, zerolog.Nop())

	if _, err := gateway.GetPositions(context.Background()); err == nil {
		t.Error("expected error from non-zero API code")
	}
}

func TestSignature(t *testing.T) {
	gateway := NewPhemexGateway(PhemexConfig{APIKey: "k", APISecret: "secret"}, zerolog.Nop())

	expiry := int64(1700000000)
	got := gateway.sign("/accounts/accountPositions", "currency=USD", "", expiry)

	mac := hmac.New(sha256.New, []byte("secret"))
	mac.Write([]byte("/accounts/accountPositions" + "currency=USD" + strconv.FormatInt(expiry, 10)))
	want := hex.EncodeToString(mac.Sum(nil))

	if got != want {
		t.Errorf("sign = %q, want %q", got, want)
	}
}

func TestPaperGateway(t *testing.T) {
	gateway := NewPaperGateway(0)
	ctx := context.Background()

	if err := gateway.TestConnection(ctx); err != nil {
		t.Errorf("paper TestConnection failed: %v", err)
	}

	account, err := gateway.GetAccount(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if account.TotalEquity != models.DefaultPortfolioValue {
		t.Errorf("default equity = %v, want %v", account.TotalEquity, models.DefaultPortfolioValue)
	}

	gateway.SetPositions([]models.BrokerPosition{
		{Symbol: "BTCUSD", Side: models.BrokerSideBuy, Size: 1, Value: 1000, MarkPrice: 64000},
	})
	positions, err := gateway.GetPositions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(positions) != 1 || positions[0].Symbol != "BTCUSD" {
		t.Errorf("positions = %+v", positions)
	}

	// The returned slice is a copy; mutating it never leaks back.
	positions[0].Symbol = "MUTATED"
	again, _ := gateway.GetPositions(ctx)
	if again[0].Symbol != "BTCUSD" {
		t.Error("returned slice aliases internal state")
	}
}
