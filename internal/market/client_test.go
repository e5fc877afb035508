package market

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	apperrors "crypto-summary-bot/internal/errors"
	"crypto-summary-bot/internal/models"
	"crypto-summary-bot/pkg/utils"
)

func testClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient("test-key", zerolog.Nop(), WithBaseURL(srv.URL))
	c.retry = utils.RetryConfig{MaxAttempts: 1}
	return c, srv
}

func coinJSON(symbol, name string, price, volChange, pctChange float64) string {
	return fmt.Sprintf(`{
		"id": 1, "name": %q, "symbol": %q,
		"quote": {"USD": {
			"price": %f, "volume_change_24h": %f, "percent_change_24h": %f
		}}
	}`, name, symbol, price, volChange, pctChange)
}

func TestFetchQuotes_SymbolBatch(t *testing.T) {
	var requests []string
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.URL.Query().Get("symbol"))
		if r.Header.Get("X-CMC_PRO_API_KEY") != "test-key" {
			t.Error("missing API key header")
		}
		fmt.Fprintf(w, `{"status": {"error_code": 0}, "data": {
			"BTC": %s, "ETH": %s
		}}`, coinJSON("BTC", "Bitcoin", 65000, 25, 3), coinJSON("ETH", "Ethereum", 3500, 5, -1))
	})

	coins := []models.TrackedCoin{
		{Symbol: "BTC", Name: "Bitcoin"},
		{Symbol: "ETH", Name: "Ethereum"},
	}
	result, err := client.FetchQuotes(context.Background(), coins)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(requests) != 1 {
		t.Fatalf("expected 1 batched request, got %d", len(requests))
	}
	if requests[0] != "BTC,ETH" {
		t.Errorf("expected batched symbol param, got %q", requests[0])
	}
	if len(result) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(result))
	}
	btc := result["BTC"]
	if btc.Failed() {
		t.Fatalf("BTC should succeed, got error %q", btc.Err)
	}
	if btc.Quote.Pressure != models.PressureStrongBuy {
		t.Errorf("expected strong_buy for BTC, got %s", btc.Quote.Pressure)
	}
	eth := result["ETH"]
	if eth.Failed() || eth.Quote.Pressure != models.PressureSell {
		t.Errorf("expected sell for ETH, got %+v", eth)
	}
}

func TestFetchQuotes_SlugAndSymbolPartition(t *testing.T) {
	var slugParams, symbolParams []string
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if slug := r.URL.Query().Get("slug"); slug != "" {
			slugParams = append(slugParams, slug)
			fmt.Fprintf(w, `{"status": {"error_code": 0}, "data": {
				"11419": %s
			}}`, coinJSON("TON", "Toncoin", 7.2, 10, 1))
			return
		}
		symbolParams = append(symbolParams, r.URL.Query().Get("symbol"))
		fmt.Fprintf(w, `{"status": {"error_code": 0}, "data": {
			"BTC": %s
		}}`, coinJSON("BTC", "Bitcoin", 65000, 0, 0))
	})

	coins := []models.TrackedCoin{
		{Symbol: "BTC", Name: "Bitcoin"},
		{Symbol: "TON", Name: "Toncoin", Slug: "toncoin"},
	}
	result, err := client.FetchQuotes(context.Background(), coins)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(slugParams) != 1 || slugParams[0] != "toncoin" {
		t.Errorf("expected one slug request for toncoin, got %v", slugParams)
	}
	if len(symbolParams) != 1 || symbolParams[0] != "BTC" {
		t.Errorf("expected one symbol request for BTC, got %v", symbolParams)
	}
	if result["TON"].Failed() {
		t.Errorf("TON should resolve via slug, got %q", result["TON"].Err)
	}
	if result["BTC"].Failed() {
		t.Errorf("BTC should resolve via symbol, got %q", result["BTC"].Err)
	}
}

func TestFetchQuotes_MissingCoinNotFound(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"status": {"error_code": 0}, "data": {
			"BTC": %s
		}}`, coinJSON("BTC", "Bitcoin", 65000, 0, 0))
	})

	coins := []models.TrackedCoin{
		{Symbol: "BTC", Name: "Bitcoin"},
		{Symbol: "XYZ", Name: "Unknown"},
	}
	result, err := client.FetchQuotes(context.Background(), coins)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	xyz := result["XYZ"]
	if !xyz.Failed() {
		t.Fatal("XYZ should be a not-found outcome")
	}
	if xyz.Err != "Токен XYZ не найден на CoinMarketCap" {
		t.Errorf("unexpected not-found message: %q", xyz.Err)
	}
	if result["BTC"].Failed() {
		t.Error("BTC outcome should be unaffected by the missing coin")
	}
}

func TestFetchQuotes_ProviderErrorPerCoin(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": {"error_code": 1001, "error_message": "API key invalid"}, "data": {}}`)
	})

	coins := []models.TrackedCoin{
		{Symbol: "BTC", Name: "Bitcoin"},
		{Symbol: "ETH", Name: "Ethereum"},
	}
	result, err := client.FetchQuotes(context.Background(), coins)
	if err != nil {
		t.Fatalf("provider rejection should not be a transport error: %v", err)
	}
	for _, sym := range []string{"BTC", "ETH"} {
		out := result[sym]
		if !out.Failed() {
			t.Errorf("%s should carry the provider error", sym)
		}
		if out.Err != "API key invalid" {
			t.Errorf("%s: expected provider message, got %q", sym, out.Err)
		}
	}
}

func TestFetchQuotes_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	client := NewClient("test-key", zerolog.Nop(), WithBaseURL(srv.URL))
	client.retry = utils.RetryConfig{MaxAttempts: 1}

	_, err := client.FetchQuotes(context.Background(), []models.TrackedCoin{{Symbol: "BTC", Name: "Bitcoin"}})
	if err == nil {
		t.Fatal("expected a transport error")
	}
	if apperrors.KindOf(err) != apperrors.KindTransport {
		t.Errorf("expected transport kind, got %v", apperrors.KindOf(err))
	}
}

func TestFetchQuotes_MalformedResponseIsParseError(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `not json`)
	})

	_, err := client.FetchQuotes(context.Background(), []models.TrackedCoin{{Symbol: "BTC", Name: "Bitcoin"}})
	if err == nil {
		t.Fatal("expected a parse error")
	}
	if apperrors.KindOf(err) != apperrors.KindParse {
		t.Errorf("expected parse kind, got %v", apperrors.KindOf(err))
	}
}

func TestFetchQuotes_NotConfigured(t *testing.T) {
	client := NewClient("", zerolog.Nop())
	_, err := client.FetchQuotes(context.Background(), []models.TrackedCoin{{Symbol: "BTC", Name: "Bitcoin"}})
	if err == nil {
		t.Fatal("expected an error without an API key")
	}
	if !apperrors.Is(err, apperrors.ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestParseCoinEntry_CandidateList(t *testing.T) {
	raw := fmt.Sprintf(`[%s, %s]`,
		coinJSON("BTC", "Bitcoin", 65000, 0, 0),
		coinJSON("BTC", "Bitcoin Clone", 5, 0, 0))
	record, sym, ok := parseCoinEntry([]byte(raw))
	if !ok {
		t.Fatal("candidate list should parse")
	}
	if sym != "BTC" || record.Name != "Bitcoin" {
		t.Errorf("expected the first candidate, got %s/%s", sym, record.Name)
	}
}
