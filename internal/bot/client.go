package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"crypto-summary-bot/internal/logging"
	"crypto-summary-bot/pkg/utils"
)

// MaxMessageLength is the transport payload limit a single message must fit
// in. Longer text is delivered through utils.Chunk.
const MaxMessageLength = 4000

const (
	defaultAPIBase = "https://api.telegram.org"
	clientTimeout  = 40 * time.Second // must exceed the long-poll timeout
	pollTimeout    = 30               // seconds, server-side getUpdates hold
)

// Client is a minimal Telegram Bot API client.
type Client struct {
	token   string
	baseURL string
	http    *http.Client
	logger  zerolog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithAPIBase overrides the Telegram API base URL.
func WithAPIBase(u string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// NewClient creates a new Telegram client.
func NewClient(token string, logger zerolog.Logger, opts ...ClientOption) *Client {
	c := &Client{
		token:   token,
		baseURL: defaultAPIBase,
		http:    &http.Client{Timeout: clientTimeout},
		logger:  logger.With().Str("provider", "telegram").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// apiResponse is the Bot API envelope.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description,omitempty"`
}

// call issues one Bot API method call and decodes the result into out when
// out is non-nil.
func (c *Client) call(ctx context.Context, method string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling %s payload: %w", method, err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		// Transport errors embed the request URL, token included.
		return fmt.Errorf("calling %s: %s", method, logging.Redact(err.Error(), c.token))
	}
	defer resp.Body.Close()

	var decoded apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return fmt.Errorf("decoding %s response: %w", method, err)
	}
	if !decoded.OK {
		return fmt.Errorf("%s failed: %s", method, decoded.Description)
	}
	if out != nil {
		if err := json.Unmarshal(decoded.Result, out); err != nil {
			return fmt.Errorf("decoding %s result: %w", method, err)
		}
	}
	return nil
}

// SendOptions control message formatting and attachments.
type SendOptions struct {
	HTML        bool
	ReplyMarkup interface{}
}

// SendMessage sends a single message. Messages longer than the transport
// limit should go through SendChunked instead.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, opts *SendOptions) (*Message, error) {
	payload := map[string]interface{}{
		"chat_id":                  chatID,
		"text":                     text,
		"disable_web_page_preview": true,
	}
	if opts != nil {
		if opts.HTML {
			payload["parse_mode"] = "HTML"
		}
		if opts.ReplyMarkup != nil {
			payload["reply_markup"] = opts.ReplyMarkup
		}
	}

	var msg Message
	if err := c.call(ctx, "sendMessage", payload, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// SendChunked splits text to fit the transport limit and sends each chunk as
// HTML. A chunk the API rejects as HTML (malformed model output) is resent
// as plain text so delivery still completes.
func (c *Client) SendChunked(ctx context.Context, chatID int64, text string) error {
	for _, chunk := range utils.Chunk(text, MaxMessageLength) {
		if _, err := c.SendMessage(ctx, chatID, chunk, &SendOptions{HTML: true}); err != nil {
			c.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("HTML send failed, retrying plain")
			if _, err := c.SendMessage(ctx, chatID, chunk, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

// EditMessageText rewrites a previously sent message.
func (c *Client) EditMessageText(ctx context.Context, chatID, messageID int64, text string, markup *InlineKeyboardMarkup) error {
	payload := map[string]interface{}{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
		"parse_mode": "HTML",
	}
	if markup != nil {
		payload["reply_markup"] = markup
	}
	return c.call(ctx, "editMessageText", payload, nil)
}

// DeleteMessage removes a previously sent message.
func (c *Client) DeleteMessage(ctx context.Context, chatID, messageID int64) error {
	return c.call(ctx, "deleteMessage", map[string]interface{}{
		"chat_id":    chatID,
		"message_id": messageID,
	}, nil)
}

// AnswerCallbackQuery acknowledges an inline button press.
func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackID string) error {
	return c.call(ctx, "answerCallbackQuery", map[string]interface{}{
		"callback_query_id": callbackID,
	}, nil)
}

// GetUpdates long-polls for new updates starting after offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64) ([]Update, error) {
	var updates []Update
	err := c.call(ctx, "getUpdates", map[string]interface{}{
		"offset":  offset,
		"timeout": pollTimeout,
	}, &updates)
	if err != nil {
		return nil, err
	}
	return updates, nil
}

// SetWebhook registers the webhook URL with the Bot API.
func (c *Client) SetWebhook(ctx context.Context, url string) error {
	return c.call(ctx, "setWebhook", map[string]interface{}{"url": url}, nil)
}

// DeleteWebhook unregisters the webhook, required before long-polling.
func (c *Client) DeleteWebhook(ctx context.Context) error {
	return c.call(ctx, "deleteWebhook", map[string]interface{}{
		"drop_pending_updates": true,
	}, nil)
}
