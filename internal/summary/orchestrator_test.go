package summary

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	apperrors "crypto-summary-bot/internal/errors"
	"crypto-summary-bot/internal/models"
	"crypto-summary-bot/internal/search"
)

type fakeCoinSource struct {
	coins []models.TrackedCoin
	err   error
	calls int32
}

func (f *fakeCoinSource) GetActiveCoins(ctx context.Context) ([]models.TrackedCoin, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.coins, f.err
}

type fakeQuoteFetcher struct {
	quotes map[string]models.QuoteOutcome
	err    error
	calls  int32
}

func (f *fakeQuoteFetcher) FetchQuotes(ctx context.Context, coins []models.TrackedCoin) (map[string]models.QuoteOutcome, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.quotes, f.err
}

type fakeSearcher struct {
	mu      sync.Mutex
	queries []string
	kinds   []search.Kind
}

func (f *fakeSearcher) Search(ctx context.Context, query string, kind search.Kind, maxResults int) []models.Mention {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	f.kinds = append(f.kinds, kind)
	return []models.Mention{{Title: "hit for " + query, URL: "https://example.com"}}
}

func testOrchestrator(coins CoinSource, market QuoteFetcher, searcher MentionSearcher) *Orchestrator {
	gen := NewGenerator("", "", "", zerolog.Nop()) // unconfigured: deterministic raw output
	return NewOrchestrator(coins, market, searcher, gen, DefaultLimits(), zerolog.Nop())
}

func trackedCoins(symbols ...string) []models.TrackedCoin {
	coins := make([]models.TrackedCoin, 0, len(symbols))
	for _, s := range symbols {
		coins = append(coins, models.TrackedCoin{Symbol: s, Name: s + " Coin"})
	}
	return coins
}

func TestBuildSummary_NoCoinsSentinel(t *testing.T) {
	market := &fakeQuoteFetcher{}
	searcher := &fakeSearcher{}
	o := testOrchestrator(&fakeCoinSource{}, market, searcher)

	doc := o.BuildSummary(context.Background())
	if doc.Body != NoCoinsSentinel {
		t.Errorf("expected sentinel body, got %q", doc.Body)
	}
	if atomic.LoadInt32(&market.calls) != 0 {
		t.Error("no external fetch should happen without coins")
	}
	if len(searcher.queries) != 0 {
		t.Error("no search should happen without coins")
	}
}

func TestBuildSummary_EverySymbolSearchedOnce(t *testing.T) {
	coins := trackedCoins("BTC", "ETH", "SOL")
	market := &fakeQuoteFetcher{quotes: map[string]models.QuoteOutcome{}}
	searcher := &fakeSearcher{}
	o := testOrchestrator(&fakeCoinSource{coins: coins}, market, searcher)

	o.BuildSummary(context.Background())

	if got := atomic.LoadInt32(&market.calls); got != 1 {
		t.Errorf("expected exactly one quote fetch, got %d", got)
	}
	// Three kinds per coin.
	if len(searcher.queries) != len(coins)*3 {
		t.Fatalf("expected %d searches, got %d", len(coins)*3, len(searcher.queries))
	}
	perTerm := map[string]int{}
	for _, q := range searcher.queries {
		perTerm[q]++
	}
	for _, coin := range coins {
		if perTerm[coin.SearchTerm()] != 3 {
			t.Errorf("coin %s searched %d times, want 3", coin.Symbol, perTerm[coin.SearchTerm()])
		}
	}
}

func TestBuildSummary_TransportFailureSingleErrorEntry(t *testing.T) {
	coins := trackedCoins("BTC", "ETH")
	market := &fakeQuoteFetcher{
		err: apperrors.NewFetchError(apperrors.KindTransport, "coinmarketcap", "",
			"ошибка соединения с провайдером", errors.New("dial tcp: refused")),
	}
	o := testOrchestrator(&fakeCoinSource{coins: coins}, market, &fakeSearcher{})

	doc := o.BuildSummary(context.Background())
	if !strings.Contains(doc.Body, "<b>error</b>: ошибка соединения с провайдером") {
		t.Errorf("expected a single top-level error entry, got:\n%s", doc.Body)
	}
	if strings.Contains(doc.Body, "Цена:") {
		t.Error("per-coin quote blocks should not render after a transport failure")
	}
}

func TestBuildSummary_QuoteAndMentionDataReachBody(t *testing.T) {
	coins := trackedCoins("BTC")
	price := 65000.0
	market := &fakeQuoteFetcher{quotes: map[string]models.QuoteOutcome{
		"BTC": {Quote: &models.QuoteRecord{Name: "Bitcoin", Symbol: "BTC", Price: &price}},
	}}
	o := testOrchestrator(&fakeCoinSource{coins: coins}, market, &fakeSearcher{})

	doc := o.BuildSummary(context.Background())
	if !strings.Contains(doc.Body, "Bitcoin (BTC)") {
		t.Errorf("quote block missing:\n%s", doc.Body)
	}
	if !strings.Contains(doc.Body, "<b>Новости:</b>") {
		t.Errorf("news section missing:\n%s", doc.Body)
	}
	header := doc.Header()
	if !strings.Contains(header, models.SummaryHeaderTitle) {
		t.Errorf("header missing title: %q", header)
	}
	if !strings.HasPrefix(doc.Text(), header) {
		t.Error("document text should start with the header")
	}
}

func TestBuildSummary_CoinSourceErrorDegrades(t *testing.T) {
	market := &fakeQuoteFetcher{}
	o := testOrchestrator(&fakeCoinSource{err: errors.New("db locked")}, market, &fakeSearcher{})

	doc := o.BuildSummary(context.Background())
	if doc.Body != "Ошибка генерации сводки." {
		t.Errorf("expected degraded body, got %q", doc.Body)
	}
	if atomic.LoadInt32(&market.calls) != 0 {
		t.Error("no fetch should happen when coins cannot be loaded")
	}
}

// slowSearcher records the maximum number of concurrently running searches.
type slowSearcher struct {
	mu      sync.Mutex
	current int
	peak    int
}

func (s *slowSearcher) Search(ctx context.Context, query string, kind search.Kind, maxResults int) []models.Mention {
	s.mu.Lock()
	s.current++
	if s.current > s.peak {
		s.peak = s.current
	}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.current--
		s.mu.Unlock()
	}()
	return nil
}

func TestBuildSummary_BoundedSearchConcurrency(t *testing.T) {
	coins := trackedCoins("A", "B", "C", "D", "E", "F", "G", "H")
	searcher := &slowSearcher{}
	gen := NewGenerator("", "", "", zerolog.Nop())
	o := NewOrchestrator(
		&fakeCoinSource{coins: coins},
		&fakeQuoteFetcher{quotes: map[string]models.QuoteOutcome{}},
		searcher, gen,
		Limits{News: 1, Social: 1, Whale: 1, Concurrency: 2},
		zerolog.Nop(),
	)

	o.BuildSummary(context.Background())
	if searcher.peak > 2 {
		t.Errorf("search concurrency peaked at %d, limit is 2", searcher.peak)
	}
}
