// Package market fetches batched quote snapshots from the market data
// provider and derives the qualitative pressure signal for each coin.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	apperrors "crypto-summary-bot/internal/errors"
	"crypto-summary-bot/internal/models"
	"crypto-summary-bot/pkg/utils"
)

const (
	// ProviderName identifies the quotes provider in errors and logs.
	ProviderName = "coinmarketcap"

	defaultBaseURL = "https://pro-api.coinmarketcap.com"
	quotesPath     = "/v2/cryptocurrency/quotes/latest"
	requestTimeout = 30 * time.Second
)

// Client talks to a CoinMarketCap-compatible quotes API.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	retry   utils.RetryConfig
	logger  zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the provider base URL.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// NewClient creates a new quotes client.
func NewClient(apiKey string, logger zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: requestTimeout},
		retry:   utils.DefaultRetryConfig(),
		logger:  logger.With().Str("provider", ProviderName).Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether an API key is present. Without one every fetch
// degrades to a top-level error outcome.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// FetchQuotes fetches a snapshot for every coin in the batch. Coins with a
// provider slug and coins without one are batched into at most one request
// each, so the call count is bounded regardless of list size.
//
// The returned map holds exactly one outcome per input symbol. A provider
// error resolves every coin of that request to an error outcome; a coin
// absent from the response resolves to a not-found outcome. Only a
// transport-level failure is returned as an error, short-circuiting
// per-coin results.
func (c *Client) FetchQuotes(ctx context.Context, coins []models.TrackedCoin) (map[string]models.QuoteOutcome, error) {
	if !c.Configured() {
		return nil, apperrors.NewFetchError(apperrors.KindProvider, ProviderName, "",
			"CMC API key not configured", apperrors.ErrNotConfigured)
	}

	var slugged []models.TrackedCoin
	var symbols []string
	for _, coin := range coins {
		if coin.Slug != "" {
			slugged = append(slugged, coin)
		} else {
			symbols = append(symbols, coin.Symbol)
		}
	}

	result := make(map[string]models.QuoteOutcome, len(coins))

	if len(slugged) > 0 {
		if err := c.fetchBySlug(ctx, slugged, result); err != nil {
			return nil, err
		}
	}
	if len(symbols) > 0 {
		if err := c.fetchBySymbol(ctx, symbols, result); err != nil {
			return nil, err
		}
	}

	// Every requested symbol gets a slot, found or not.
	for _, coin := range coins {
		if _, ok := result[coin.Symbol]; !ok {
			result[coin.Symbol] = models.QuoteOutcome{
				Err: fmt.Sprintf("Токен %s не найден на CoinMarketCap", coin.Symbol),
			}
		}
	}

	return result, nil
}

func (c *Client) fetchBySlug(ctx context.Context, coins []models.TrackedCoin, result map[string]models.QuoteOutcome) error {
	slugs := make([]string, 0, len(coins))
	for _, coin := range coins {
		slugs = append(slugs, coin.Slug)
	}

	resp, err := c.request(ctx, url.Values{
		"slug":    {strings.Join(slugs, ",")},
		"convert": {"USD"},
	})
	if err != nil {
		return err
	}

	if resp.Status.ErrorCode != 0 {
		c.logger.Warn().Int("error_code", resp.Status.ErrorCode).
			Str("message", resp.Status.ErrorMessage).Msg("Provider rejected slug batch")
		for _, coin := range coins {
			result[coin.Symbol] = models.QuoteOutcome{Err: providerReason(resp.Status.ErrorMessage)}
		}
		return nil
	}

	for _, raw := range resp.Data {
		record, sym, ok := parseCoinEntry(raw)
		if !ok {
			continue
		}
		result[sym] = models.QuoteOutcome{Quote: record}
	}
	return nil
}

func (c *Client) fetchBySymbol(ctx context.Context, symbols []string, result map[string]models.QuoteOutcome) error {
	resp, err := c.request(ctx, url.Values{
		"symbol":  {strings.Join(symbols, ",")},
		"convert": {"USD"},
	})
	if err != nil {
		return err
	}

	if resp.Status.ErrorCode != 0 {
		c.logger.Warn().Int("error_code", resp.Status.ErrorCode).
			Str("message", resp.Status.ErrorMessage).Msg("Provider rejected symbol batch")
		for _, sym := range symbols {
			result[sym] = models.QuoteOutcome{Err: providerReason(resp.Status.ErrorMessage)}
		}
		return nil
	}

	for _, sym := range symbols {
		raw, ok := resp.Data[sym]
		if !ok {
			continue // resolved to not-found by the caller
		}
		record, _, ok := parseCoinEntry(raw)
		if !ok {
			continue
		}
		result[sym] = models.QuoteOutcome{Quote: record}
	}
	return nil
}

func (c *Client) request(ctx context.Context, params url.Values) (*quotesResponse, error) {
	endpoint := c.baseURL + quotesPath + "?" + params.Encode()

	start := time.Now()
	resp, err := utils.RetryWithResult(ctx, c.retry, func() (*quotesResponse, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("X-CMC_PRO_API_KEY", c.apiKey)
		req.Header.Set("Accept", "application/json")

		httpResp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer httpResp.Body.Close()

		var decoded quotesResponse
		if err := json.NewDecoder(httpResp.Body).Decode(&decoded); err != nil {
			return nil, apperrors.NewFetchError(apperrors.KindParse, ProviderName, "",
				"unexpected response shape", err)
		}
		return &decoded, nil
	})
	c.logger.Debug().Dur("duration", time.Since(start)).Err(err).Msg("Quotes request")

	if err != nil {
		var fe *apperrors.FetchError
		if apperrors.As(err, &fe) {
			return nil, err
		}
		return nil, apperrors.NewFetchError(apperrors.KindTransport, ProviderName, "", err.Error(), err)
	}
	return resp, nil
}

func providerReason(message string) string {
	if message == "" {
		return "ошибка провайдера котировок"
	}
	return message
}

// quotesResponse mirrors the provider's envelope: a status block and a data
// object keyed by coin ID (slug requests) or symbol (symbol requests), where
// each value is either a coin object or a list of candidates.
type quotesResponse struct {
	Status struct {
		ErrorCode    int    `json:"error_code"`
		ErrorMessage string `json:"error_message"`
	} `json:"status"`
	Data map[string]json.RawMessage `json:"data"`
}

type coinPayload struct {
	ID                int64    `json:"id"`
	Name              string   `json:"name"`
	Symbol            string   `json:"symbol"`
	CirculatingSupply *float64 `json:"circulating_supply"`
	TotalSupply       *float64 `json:"total_supply"`
	MaxSupply         *float64 `json:"max_supply"`
	Quote             struct {
		USD struct {
			Price              *float64 `json:"price"`
			Volume24h          *float64 `json:"volume_24h"`
			VolumeChange24h    *float64 `json:"volume_change_24h"`
			PercentChange1h    *float64 `json:"percent_change_1h"`
			PercentChange24h   *float64 `json:"percent_change_24h"`
			PercentChange7d    *float64 `json:"percent_change_7d"`
			PercentChange30d   *float64 `json:"percent_change_30d"`
			PercentChange60d   *float64 `json:"percent_change_60d"`
			PercentChange90d   *float64 `json:"percent_change_90d"`
			MarketCap          *float64 `json:"market_cap"`
			MarketCapDominance *float64 `json:"market_cap_dominance"`
			FullyDilutedCap    *float64 `json:"fully_diluted_market_cap"`
			LastUpdated        string   `json:"last_updated"`
		} `json:"USD"`
	} `json:"quote"`
}

// parseCoinEntry decodes a single data entry. The provider wraps symbol
// lookups in a candidate list; the first candidate wins.
func parseCoinEntry(raw json.RawMessage) (*models.QuoteRecord, string, bool) {
	var payload coinPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		var list []coinPayload
		if err := json.Unmarshal(raw, &list); err != nil || len(list) == 0 {
			return nil, "", false
		}
		payload = list[0]
	}
	if payload.Symbol == "" {
		return nil, "", false
	}

	usd := payload.Quote.USD
	record := &models.QuoteRecord{
		Name:               payload.Name,
		Symbol:             payload.Symbol,
		ProviderID:         payload.ID,
		Price:              usd.Price,
		Volume24h:          usd.Volume24h,
		VolumeChange24h:    usd.VolumeChange24h,
		PercentChange1h:    usd.PercentChange1h,
		PercentChange24h:   usd.PercentChange24h,
		PercentChange7d:    usd.PercentChange7d,
		PercentChange30d:   usd.PercentChange30d,
		PercentChange60d:   usd.PercentChange60d,
		PercentChange90d:   usd.PercentChange90d,
		MarketCap:          usd.MarketCap,
		MarketCapDominance: usd.MarketCapDominance,
		FullyDilutedCap:    usd.FullyDilutedCap,
		CirculatingSupply:  payload.CirculatingSupply,
		TotalSupply:        payload.TotalSupply,
		MaxSupply:          payload.MaxSupply,
		LastUpdated:        usd.LastUpdated,
		Pressure:           models.DerivePressure(usd.VolumeChange24h, usd.PercentChange24h),
	}
	return record, payload.Symbol, true
}
