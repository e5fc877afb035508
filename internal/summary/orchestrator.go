package summary

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	apperrors "crypto-summary-bot/internal/errors"
	"crypto-summary-bot/internal/models"
	"crypto-summary-bot/internal/search"
)

// NoCoinsSentinel is the full message returned when nothing is tracked.
const NoCoinsSentinel = "<b>Нет отслеживаемых монет.</b>\nАдмин может добавить монеты через админ-панель."

// CoinSource supplies the admin-curated coin list.
type CoinSource interface {
	GetActiveCoins(ctx context.Context) ([]models.TrackedCoin, error)
}

// QuoteFetcher fetches batched market snapshots.
type QuoteFetcher interface {
	FetchQuotes(ctx context.Context, coins []models.TrackedCoin) (map[string]models.QuoteOutcome, error)
}

// MentionSearcher performs best-effort web searches.
type MentionSearcher interface {
	Search(ctx context.Context, query string, kind search.Kind, maxResults int) []models.Mention
}

// Limits bounds per-coin search result counts and fan-out concurrency.
type Limits struct {
	News        int
	Social      int
	Whale       int
	Concurrency int
}

// DefaultLimits returns the default pipeline limits.
func DefaultLimits() Limits {
	return Limits{News: 10, Social: 6, Whale: 5, Concurrency: 4}
}

// Orchestrator drives a single pipeline run: load coins, fan out to the
// quote and mention fetches, join, generate text, prepend the header. Every
// sub-call degrades instead of failing, so a run always terminates with a
// deliverable document.
type Orchestrator struct {
	coins     CoinSource
	market    QuoteFetcher
	searcher  MentionSearcher
	generator *Generator
	limits    Limits
	logger    zerolog.Logger
	now       func() time.Time
}

// NewOrchestrator creates the summary pipeline.
func NewOrchestrator(coins CoinSource, market QuoteFetcher, searcher MentionSearcher, generator *Generator, limits Limits, logger zerolog.Logger) *Orchestrator {
	if limits.Concurrency <= 0 {
		limits.Concurrency = DefaultLimits().Concurrency
	}
	return &Orchestrator{
		coins:     coins,
		market:    market,
		searcher:  searcher,
		generator: generator,
		limits:    limits,
		logger:    logger.With().Str("component", "pipeline").Logger(),
		now:       time.Now,
	}
}

// mentionSet holds one coin's search results across the three kinds.
type mentionSet struct {
	news   []models.Mention
	social []models.Mention
	whale  []models.Mention
}

// BuildSummary runs the pipeline once and returns the final document. With
// no tracked coins it short-circuits to the fixed sentinel without touching
// any external source.
func (o *Orchestrator) BuildSummary(ctx context.Context) models.SummaryDocument {
	start := o.now()

	coins, err := o.coins.GetActiveCoins(ctx)
	if err != nil {
		o.logger.Error().Err(err).Msg("Loading tracked coins failed")
		return models.SummaryDocument{GeneratedAt: o.now(), Body: "Ошибка генерации сводки."}
	}
	if len(coins) == 0 {
		return models.SummaryDocument{GeneratedAt: o.now(), Body: NoCoinsSentinel}
	}

	var (
		wg       sync.WaitGroup
		quotes   map[string]models.QuoteOutcome
		quoteErr error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		quotes, quoteErr = o.market.FetchQuotes(ctx, coins)
	}()

	mentions := o.fetchMentions(ctx, coins)

	// Generation is a strict barrier: every fetch joins before any text is
	// produced.
	wg.Wait()

	if quoteErr != nil {
		// Transport-level failure short-circuits per-coin results into a
		// single top-level error entry.
		o.logger.Error().Err(quoteErr).Msg("Quote fetch failed")
		msg := quoteErr.Error()
		var fe *apperrors.FetchError
		if apperrors.As(quoteErr, &fe) && fe.Message != "" {
			msg = fe.Message
		}
		quotes = map[string]models.QuoteOutcome{
			"error": {Err: msg},
		}
	}

	news := make(map[string][]models.Mention, len(coins))
	social := make(map[string][]models.Mention, len(coins))
	whales := make(map[string][]models.Mention, len(coins))
	for sym, set := range mentions {
		news[sym] = set.news
		social[sym] = set.social
		whales[sym] = set.whale
	}

	body := o.generator.Generate(ctx, quotes, news, social, whales)

	doc := models.SummaryDocument{GeneratedAt: o.now(), Body: body}
	o.logger.Info().
		Int("coins", len(coins)).
		Dur("duration", o.now().Sub(start)).
		Msg("Summary built")
	return doc
}

// fetchMentions runs the per-coin {news, social, whale} searches through a
// bounded worker pool so N coins do not turn into unbounded parallel load on
// the search endpoint.
func (o *Orchestrator) fetchMentions(ctx context.Context, coins []models.TrackedCoin) map[string]*mentionSet {
	results := make(map[string]*mentionSet, len(coins))
	for _, coin := range coins {
		results[coin.Symbol] = &mentionSet{}
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, o.limits.Concurrency)

	for _, coin := range coins {
		coin := coin
		set := results[coin.Symbol]

		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			term := coin.SearchTerm()
			set.news = o.searcher.Search(ctx, term, search.KindNews, o.limits.News)
			set.social = o.searcher.Search(ctx, term, search.KindSocial, o.limits.Social)
			set.whale = o.searcher.Search(ctx, term, search.KindWhale, o.limits.Whale)
		}()
	}

	wg.Wait()
	return results
}
