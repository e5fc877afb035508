package bot

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const pollRetryDelay = 5 * time.Second

// Poller drives the bot in long-poll mode.
type Poller struct {
	client  *Client
	handler *Handler
	logger  zerolog.Logger
}

// NewPoller wires the long-poll loop.
func NewPoller(client *Client, handler *Handler, logger zerolog.Logger) *Poller {
	return &Poller{
		client:  client,
		handler: handler,
		logger:  logger.With().Str("component", "poller").Logger(),
	}
}

// Run long-polls for updates until ctx is cancelled. Any registered webhook
// is removed first since the Bot API refuses getUpdates while one is set.
func (p *Poller) Run(ctx context.Context) error {
	if err := p.client.DeleteWebhook(ctx); err != nil {
		p.logger.Warn().Err(err).Msg("delete webhook failed")
	}
	p.logger.Info().Msg("long-poll loop started")

	var offset int64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		updates, err := p.client.GetUpdates(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.logger.Error().Err(err).Msg("getUpdates failed")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(pollRetryDelay):
			}
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			p.handler.HandleUpdate(ctx, upd)
		}
	}
}
