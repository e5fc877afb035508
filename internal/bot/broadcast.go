package bot

import (
	"context"

	"github.com/rs/zerolog"

	apperrors "crypto-summary-bot/internal/errors"
	"crypto-summary-bot/internal/logging"
	"crypto-summary-bot/internal/store"
)

// Broadcaster delivers the scheduled summary to every authenticated user.
type Broadcaster struct {
	store  store.DataStore
	client *Client
	logger zerolog.Logger
}

// NewBroadcaster wires the fan-out sender.
func NewBroadcaster(st store.DataStore, client *Client, logger zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		store:  st,
		client: client,
		logger: logger.With().Str("component", "broadcast").Logger(),
	}
}

// Broadcast sends text to all authenticated users. Each recipient is
// independent: one failed delivery never blocks the rest. Returns how many
// recipients succeeded and how many failed.
func (b *Broadcaster) Broadcast(ctx context.Context, text string) (sent, failed int) {
	users, err := b.store.GetAuthenticatedUsers(ctx)
	if err != nil {
		b.logger.Error().Err(err).Msg("recipient lookup failed")
		return 0, 0
	}

	for _, u := range users {
		if err := b.client.SendChunked(ctx, u.TelegramID, text); err != nil {
			b.logger.Error().Err(apperrors.NewDeliveryError(u.TelegramID, err)).Msg("broadcast delivery failed")
			failed++
			continue
		}
		sent++
	}

	logging.LogBroadcast(b.logger, sent, failed)
	return sent, failed
}
