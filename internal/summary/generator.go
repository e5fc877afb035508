package summary

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"crypto-summary-bot/internal/models"
)

const (
	summaryTimeout = 90 * time.Second
	askTimeout     = 60 * time.Second

	summaryMaxTokens   = 4000
	summaryTemperature = 0.3
	askMaxTokens       = 1500
	askTemperature     = 0.5
)

// summarySystemPrompt constrains the model to the delivery transport's HTML
// subset and a fixed section outline.
const summarySystemPrompt = "Ты - профессиональный криптоаналитик. Проанализируй данные и создай подробную сводку НА РУССКОМ ЯЗЫКЕ.\n" +
	"ВАЖНО: Используй ТОЛЬКО теги <b>, <i>, <code> для форматирования в Telegram. " +
	"НЕ используй <html>, <head>, <body>, <div>, <style>, <h1>-<h6>, <ul>, <li>, <p>. " +
	"Используй переносы строк и эмодзи для оформления.\n\n" +
	"Структура сводки:\n" +
	"1. ОБЗОР ЦЕН - текущая цена, изменение за 1ч/24ч/7д/30д для каждой монеты\n" +
	"2. АНАЛИЗ ОБЪЁМОВ - объём торгов за 24ч, изменение объёма, давление покупателей/продавцов\n" +
	"3. КРУПНЫЕ ОПЕРАЦИИ - анализ крупных покупок/продаж на основе объёмов и движения цены. " +
	"Если объём вырос на >20% при росте цены = крупные покупки. " +
	"Если объём вырос при падении цены = крупные продажи. Оцени масштаб операций.\n" +
	"4. РЫНОЧНАЯ КАПИТАЛИЗАЦИЯ - market cap, FDV, доля рынка, оборотное предложение\n" +
	"5. САММАРИ НОВОСТЕЙ - подробное изложение каждой найденной новости на русском языке (2-3 предложения на каждую)\n" +
	"6. УПОМИНАНИЯ В TWITTER - краткий обзор найденных упоминаний\n" +
	"7. WHALE ALERTS - информация о крупных транзакциях если найдена\n" +
	"8. НАСТРОЕНИЕ РЫНКА - общая оценка sentiment\n" +
	"9. КЛЮЧЕВЫЕ ВЫВОДЫ И РЕКОМЕНДАЦИИ\n\n" +
	"Форматируй числа красиво: $1,234.56. Проценты со знаком: +5.2% или -3.1%. " +
	"Если данных нет - укажи это явно. Будь подробным и информативным."

const askSystemPrompt = "Ты - полезный AI-ассистент по криптовалютам в Telegram-боте. " +
	"Отвечай на вопросы о крипте, блокчейне и рынках на языке пользователя. " +
	"Будь кратким и информативным. Используй HTML-теги для Telegram: <b>, <i>, <code>. " +
	"НЕ используй другие HTML-теги."

// Generator produces summary text via an OpenAI-compatible completion
// provider. A nil inner client means no credential is configured — a valid
// steady state in which every generation delegates to FormatRaw.
type Generator struct {
	client *openai.Client
	model  string
	logger zerolog.Logger
	now    func() time.Time
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithClock overrides the generation timestamp source.
func WithClock(now func() time.Time) GeneratorOption {
	return func(g *Generator) { g.now = now }
}

// NewGenerator creates a generator for the given provider credential. An
// empty apiKey leaves the model client unset and is not an error.
func NewGenerator(apiKey, model, baseURL string, logger zerolog.Logger, opts ...GeneratorOption) *Generator {
	g := &Generator{
		model:  model,
		logger: logger.With().Str("provider", "openrouter").Logger(),
		now:    time.Now,
	}
	if apiKey != "" {
		cfg := openai.DefaultConfig(apiKey)
		if baseURL != "" {
			cfg.BaseURL = baseURL
		}
		cfg.HTTPClient = &http.Client{Timeout: summaryTimeout}
		g.client = openai.NewClientWithConfig(cfg)
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Configured reports whether a completion credential is set.
func (g *Generator) Configured() bool {
	return g.client != nil
}

// aggregatePayload is the structured user message handed to the model.
type aggregatePayload struct {
	CryptoData     map[string]models.QuoteOutcome `json:"crypto_data"`
	News           map[string][]models.Mention    `json:"news"`
	TwitterData    map[string][]models.Mention    `json:"twitter_mentions"`
	WhaleAlerts    map[string][]models.Mention    `json:"whale_alerts"`
	GeneratedAtUTC string                         `json:"generated_at_utc"`
}

// Generate produces the digest body. Any provider failure — transport,
// timeout, or an API-reported error — falls back to the deterministic
// formatter; the caller always receives usable text, never an error.
func (g *Generator) Generate(ctx context.Context, quotes map[string]models.QuoteOutcome, news, mentions, whales map[string][]models.Mention) string {
	if !g.Configured() {
		return FormatRaw(quotes, news, mentions)
	}

	if whales == nil {
		whales = map[string][]models.Mention{}
	}
	payload, err := json.MarshalIndent(aggregatePayload{
		CryptoData:     quotes,
		News:           news,
		TwitterData:    mentions,
		WhaleAlerts:    whales,
		GeneratedAtUTC: g.now().UTC().Format(time.RFC3339),
	}, "", "  ")
	if err != nil {
		g.logger.Error().Err(err).Msg("Payload serialization failed")
		return FormatRaw(quotes, news, mentions)
	}

	ctx, cancel := context.WithTimeout(ctx, summaryTimeout)
	defer cancel()

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: summarySystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: string(payload)},
		},
		MaxTokens:   summaryMaxTokens,
		Temperature: summaryTemperature,
	})
	if err != nil {
		g.logger.Error().Err(err).Msg("AI summary generation failed")
		return FormatRaw(quotes, news, mentions)
	}
	if len(resp.Choices) == 0 {
		g.logger.Error().Msg("AI summary returned no choices")
		return FormatRaw(quotes, news, mentions)
	}
	return resp.Choices[0].Message.Content
}

// Ask answers a free-text user question. Unlike Generate, provider failures
// surface as user-visible text rather than falling back to a formatter.
func (g *Generator) Ask(ctx context.Context, question, extra string) string {
	if !g.Configured() {
		return "AI-агент не настроен. Установите OPENROUTER_API_KEY."
	}

	system := askSystemPrompt
	if extra != "" {
		system += "\n\nДополнительный контекст:\n" + extra
	}

	ctx, cancel := context.WithTimeout(ctx, askTimeout)
	defer cancel()

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: question},
		},
		MaxTokens:   askMaxTokens,
		Temperature: askTemperature,
	})
	if err != nil {
		g.logger.Error().Err(err).Msg("AI request failed")
		return fmt.Sprintf("Ошибка запроса к AI: %v", err)
	}
	if len(resp.Choices) == 0 {
		return "Нет ответа от AI."
	}
	return resp.Choices[0].Message.Content
}
