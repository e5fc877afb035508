// Package store provides data persistence implementations.
package store

import (
	"context"
	"time"

	"crypto-summary-bot/internal/models"
)

// DataStore defines the persistence operations used by the bot.
type DataStore interface {
	// Users
	GetOrCreateUser(ctx context.Context, telegramID int64, username, firstName string, admin bool) (*models.User, error)
	AuthenticateUser(ctx context.Context, telegramID int64) error
	IsAuthenticated(ctx context.Context, telegramID int64) (bool, error)
	IsAdmin(ctx context.Context, telegramID int64) (bool, error)
	GetAuthenticatedUsers(ctx context.Context) ([]models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)

	// Coins
	GetActiveCoins(ctx context.Context) ([]models.TrackedCoin, error)
	AddCoin(ctx context.Context, symbol, name, slug string) error
	RemoveCoin(ctx context.Context, symbol string) error

	// Analytics
	LogAction(ctx context.Context, telegramID int64, action, details string) error
	GetAnalytics(ctx context.Context) (*Analytics, error)

	// Sessions
	GetSession(ctx context.Context, telegramID int64) (*SessionRow, error)
	SaveSession(ctx context.Context, telegramID int64, state, symbol, name string) error
	ClearSession(ctx context.Context, telegramID int64) error

	Close() error
}

// Analytics is the aggregate usage view shown on the admin panel.
type Analytics struct {
	TotalUsers         int
	AuthenticatedUsers int
	Active24h          int
	Active7d           int
	Active30d          int
	ActionsToday       int
	TopActionsWeek     []ActionCount
}

// ActionCount is one row of the top-actions listing.
type ActionCount struct {
	Action string
	Count  int
}

// SessionRow is the persisted conversation state for one user.
type SessionRow struct {
	TelegramID int64
	State      string
	Symbol     string
	Name       string
	UpdatedAt  time.Time
}
