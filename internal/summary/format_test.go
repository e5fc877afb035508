package summary

import (
	"strings"
	"testing"

	"crypto-summary-bot/internal/models"
)

func fptr(v float64) *float64 { return &v }

func sampleQuotes() map[string]models.QuoteOutcome {
	return map[string]models.QuoteOutcome{
		"ETH": {Quote: &models.QuoteRecord{
			Name:             "Ethereum",
			Symbol:           "ETH",
			Price:            fptr(3521.5),
			PercentChange24h: fptr(-2.35),
			Volume24h:        fptr(18_500_000_000),
			MarketCap:        fptr(420_000_000_000),
			Pressure:         models.PressureSell,
		}},
		"BTC": {Quote: &models.QuoteRecord{
			Name:             "Bitcoin",
			Symbol:           "BTC",
			Price:            fptr(65000.12),
			PercentChange24h: fptr(3.1),
			Pressure:         models.PressureStrongBuy,
		}},
		"XYZ": {Err: "Токен XYZ не найден на CoinMarketCap"},
	}
}

func TestFormatRaw_Deterministic(t *testing.T) {
	news := map[string][]models.Mention{
		"BTC": {{Title: "Story", URL: "https://example.com/1"}},
	}
	first := FormatRaw(sampleQuotes(), news, nil)
	for i := 0; i < 10; i++ {
		if got := FormatRaw(sampleQuotes(), news, nil); got != first {
			t.Fatal("FormatRaw output varies across identical inputs")
		}
	}
}

func TestFormatRaw_SortedSymbolOrder(t *testing.T) {
	out := FormatRaw(sampleQuotes(), nil, nil)
	btc := strings.Index(out, "Bitcoin (BTC)")
	eth := strings.Index(out, "Ethereum (ETH)")
	xyz := strings.Index(out, "<b>XYZ</b>")
	if btc == -1 || eth == -1 || xyz == -1 {
		t.Fatalf("missing coin blocks in output:\n%s", out)
	}
	if !(btc < eth && eth < xyz) {
		t.Errorf("expected BTC < ETH < XYZ order, got indices %d, %d, %d", btc, eth, xyz)
	}
}

func TestFormatRaw_ErrorEntryRendersReason(t *testing.T) {
	out := FormatRaw(sampleQuotes(), nil, nil)
	if !strings.Contains(out, "<b>XYZ</b>: Токен XYZ не найден на CoinMarketCap") {
		t.Errorf("error outcome not rendered:\n%s", out)
	}
}

func TestFormatRaw_EmptyInputSentinel(t *testing.T) {
	if got := FormatRaw(nil, nil, nil); got != NoDataSentinel {
		t.Errorf("expected sentinel %q, got %q", NoDataSentinel, got)
	}
	// Maps with only empty slices count as empty too.
	got := FormatRaw(map[string]models.QuoteOutcome{}, map[string][]models.Mention{"BTC": {}}, nil)
	if got != NoDataSentinel {
		t.Errorf("expected sentinel for empty sections, got %q", got)
	}
}

func TestFormatRaw_LinkSections(t *testing.T) {
	news := map[string][]models.Mention{
		"BTC": {
			{Title: "One", URL: "https://example.com/1"},
			{Title: "Two", URL: "https://example.com/2"},
			{Title: "Three", URL: "https://example.com/3"},
			{Title: "Four", URL: "https://example.com/4"},
		},
	}
	mentions := map[string][]models.Mention{
		"BTC": {{Title: "Tweet", URL: "https://x.com/1"}},
	}
	out := FormatRaw(nil, news, mentions)

	if !strings.Contains(out, "<b>Новости:</b>") {
		t.Error("missing news section header")
	}
	if !strings.Contains(out, "<b>Twitter:</b>") {
		t.Error("missing twitter section header")
	}
	if strings.Contains(out, "Four") {
		t.Error("links should be capped at three per coin")
	}
	if !strings.Contains(out, "- <a href='https://example.com/1'>One</a>") {
		t.Errorf("unexpected link format:\n%s", out)
	}
}

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		name  string
		price *float64
		want  string
	}{
		{"nil", nil, "N/A"},
		{"sub-cent", fptr(0.00001234), "$0.00001234"},
		{"sub-dollar", fptr(0.4567), "$0.456700"},
		{"regular", fptr(65000.129), "$65,000.13"},
		{"grouped millions", fptr(1234567.0), "$1,234,567.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatPrice(tt.price); got != tt.want {
				t.Errorf("FormatPrice = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatPercent(t *testing.T) {
	if got := FormatPercent(fptr(3.456)); got != "+3.46%" {
		t.Errorf("positive: got %q", got)
	}
	if got := FormatPercent(fptr(-2.1)); got != "-2.10%" {
		t.Errorf("negative: got %q", got)
	}
	if got := FormatPercent(fptr(0)); got != "+0.00%" {
		t.Errorf("zero: got %q", got)
	}
	if got := FormatPercent(nil); got != "N/A" {
		t.Errorf("nil: got %q", got)
	}
}

func TestFormatVolume(t *testing.T) {
	if got := FormatVolume(fptr(18_500_000_000)); got != "$18,500.00M" {
		t.Errorf("millions: got %q", got)
	}
	if got := FormatVolume(fptr(45_200)); got != "$45.20K" {
		t.Errorf("thousands: got %q", got)
	}
	if got := FormatVolume(fptr(512.3)); got != "$512.30" {
		t.Errorf("small: got %q", got)
	}
	if got := FormatVolume(nil); got != "N/A" {
		t.Errorf("nil: got %q", got)
	}
	if got := FormatVolume(fptr(0)); got != "N/A" {
		t.Errorf("zero: got %q", got)
	}
}

func TestFormatMarketCap(t *testing.T) {
	if got := FormatMarketCap(fptr(420_000_000_000)); got != "$420.00B" {
		t.Errorf("billions: got %q", got)
	}
	if got := FormatMarketCap(fptr(55_000_000)); got != "$55.00M" {
		t.Errorf("millions: got %q", got)
	}
	if got := FormatMarketCap(fptr(900_000)); got != "$900,000" {
		t.Errorf("sub-million: got %q", got)
	}
	if got := FormatMarketCap(nil); got != "N/A" {
		t.Errorf("nil: got %q", got)
	}
}
