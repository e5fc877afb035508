// Package search queries a lightweight HTML search endpoint for unstructured
// coin mentions, with a structured news API as a secondary source. Every
// failure degrades to an empty result set; callers never see an error.
package search

import (
	"context"
	"encoding/json"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"crypto-summary-bot/internal/models"
)

// Kind selects the query flavor appended to the coin's search term.
type Kind string

const (
	KindNews   Kind = "news"
	KindSocial Kind = "social"
	KindWhale  Kind = "whale"
)

// querySuffix returns the kind-specific query suffix.
func (k Kind) querySuffix() string {
	switch k {
	case KindSocial:
		return " crypto site:x.com OR site:twitter.com"
	case KindWhale:
		return " whale alert large transaction"
	default:
		return " crypto news"
	}
}

const (
	defaultSearchURL = "https://lite.duckduckgo.com/lite/"
	defaultNewsURL   = "https://min-api.cryptocompare.com/data/v2/news/"
	searchTimeout    = 15 * time.Second

	// Below this many primary results the news kind pulls from the
	// secondary source as well. Duplicates across sources are accepted.
	newsFallbackThreshold = 3

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// The results page is scraped positionally: the i-th anchor pairs with the
// i-th snippet cell. Markup changes degrade to zero results, not a crash.
var (
	linkPattern    = regexp.MustCompile(`(?s)<a\s+rel=["']nofollow["']\s+href=["']([^"']+)["']\s+class=["']result-link["'][^>]*>(.*?)</a>`)
	snippetPattern = regexp.MustCompile(`(?s)<td\s+class=["']result-snippet["'][^>]*>(.*?)</td>`)
	tagPattern     = regexp.MustCompile(`<.*?>`)
)

// Client performs best-effort mention searches.
type Client struct {
	searchURL string
	newsURL   string
	http      *http.Client
	logger    zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithSearchURL overrides the primary search endpoint.
func WithSearchURL(u string) Option {
	return func(c *Client) { c.searchURL = u }
}

// WithNewsURL overrides the secondary news endpoint.
func WithNewsURL(u string) Option {
	return func(c *Client) { c.newsURL = u }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// NewClient creates a new search client.
func NewClient(logger zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		searchURL: defaultSearchURL,
		newsURL:   defaultNewsURL,
		http:      &http.Client{Timeout: searchTimeout},
		logger:    logger.With().Str("provider", "websearch").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search returns up to maxResults mentions for the query, in engine rank
// order. For the news kind, fewer than three primary results triggers the
// secondary structured source, whose results are appended without
// deduplication. The result is always truncated to maxResults last.
func (c *Client) Search(ctx context.Context, query string, kind Kind, maxResults int) []models.Mention {
	results := c.scrape(ctx, query+kind.querySuffix(), maxResults)

	if kind == KindNews && len(results) < newsFallbackThreshold {
		results = append(results, c.secondaryNews(ctx, query)...)
	}

	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results
}

// scrape queries the HTML results endpoint and pairs anchors with snippet
// cells positionally. Extra anchors beyond the snippet count keep an empty
// snippet; extra snippets are dropped.
func (c *Client) scrape(ctx context.Context, query string, maxResults int) []models.Mention {
	form := url.Values{"q": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.searchURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("query", query).Msg("Search request failed")
		return nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Warn().Err(err).Str("query", query).Msg("Search response read failed")
		return nil
	}
	page := string(body)

	links := linkPattern.FindAllStringSubmatch(page, -1)
	snippets := snippetPattern.FindAllStringSubmatch(page, -1)

	var results []models.Mention
	for i, link := range links {
		if i >= maxResults {
			break
		}
		title := cleanMarkup(link[2])
		if title == "" {
			continue
		}
		snippet := ""
		if i < len(snippets) {
			snippet = cleanMarkup(snippets[i][1])
		}
		results = append(results, models.Mention{
			Title:   title,
			URL:     link[1],
			Snippet: snippet,
		})
	}
	return results
}

// secondaryNews queries the structured news API. Failures degrade to nil.
func (c *Client) secondaryNews(ctx context.Context, category string) []models.Mention {
	params := url.Values{
		"lang":       {"EN"},
		"categories": {category},
		"sortOrder":  {"latest"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.newsURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("category", category).Msg("News fallback request failed")
		return nil
	}
	defer resp.Body.Close()

	var decoded struct {
		Data []struct {
			Title  string `json:"title"`
			URL    string `json:"url"`
			Body   string `json:"body"`
			Source string `json:"source"`
		} `json:"Data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		c.logger.Warn().Err(err).Str("category", category).Msg("News fallback parse failed")
		return nil
	}

	var results []models.Mention
	for i, item := range decoded.Data {
		if i >= 5 {
			break
		}
		snippet := item.Body
		if len(snippet) > 300 {
			snippet = snippet[:300]
		}
		results = append(results, models.Mention{
			Title:   item.Title,
			URL:     item.URL,
			Snippet: snippet,
			Source:  item.Source,
		})
	}
	return results
}

// cleanMarkup strips tags and entity-decodes scraped text.
func cleanMarkup(s string) string {
	return strings.TrimSpace(html.UnescapeString(tagPattern.ReplaceAllString(s, "")))
}
