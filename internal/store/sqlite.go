package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"crypto-summary-bot/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		telegram_id INTEGER UNIQUE NOT NULL,
		username TEXT,
		first_name TEXT,
		is_authenticated INTEGER DEFAULT 0,
		is_admin INTEGER DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		last_active DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS coins (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT UNIQUE NOT NULL,
		name TEXT NOT NULL,
		cmc_slug TEXT,
		active INTEGER DEFAULT 1,
		added_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS analytics (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		telegram_id INTEGER NOT NULL,
		action TEXT NOT NULL,
		details TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Conversation state survives restarts and load-balanced instances
	CREATE TABLE IF NOT EXISTS sessions (
		telegram_id INTEGER PRIMARY KEY,
		state TEXT NOT NULL,
		symbol TEXT,
		name TEXT,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_analytics_created ON analytics(created_at);
	CREATE INDEX IF NOT EXISTS idx_users_telegram ON users(telegram_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetOrCreateUser fetches a user, creating it on first contact. Username and
// first name are refreshed on every call, and configured admins are promoted
// even if they registered before the admin list included them.
func (s *SQLiteStore) GetOrCreateUser(ctx context.Context, telegramID int64, username, firstName string, admin bool) (*models.User, error) {
	user, err := s.getUser(ctx, telegramID)
	if err == sql.ErrNoRows {
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO users (telegram_id, username, first_name, is_admin) VALUES (?, ?, ?, ?)`,
			telegramID, username, firstName, boolToInt(admin))
		if err != nil {
			return nil, fmt.Errorf("creating user: %w", err)
		}
		return s.getUser(ctx, telegramID)
	}
	if err != nil {
		return nil, err
	}

	if username == "" {
		username = user.Username
	}
	if firstName == "" {
		firstName = user.FirstName
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE users SET last_active = CURRENT_TIMESTAMP, username = ?, first_name = ? WHERE telegram_id = ?`,
		username, firstName, telegramID)
	if err != nil {
		return nil, fmt.Errorf("updating user: %w", err)
	}
	if admin && !user.Admin {
		if _, err := s.db.ExecContext(ctx,
			`UPDATE users SET is_admin = 1 WHERE telegram_id = ?`, telegramID); err != nil {
			return nil, fmt.Errorf("promoting admin: %w", err)
		}
	}

	return s.getUser(ctx, telegramID)
}

func (s *SQLiteStore) getUser(ctx context.Context, telegramID int64) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, telegram_id, username, first_name, is_authenticated, is_admin, created_at, last_active
		 FROM users WHERE telegram_id = ?`, telegramID)
	return scanUser(row)
}

// AuthenticateUser marks a user as having passed the password gate.
func (s *SQLiteStore) AuthenticateUser(ctx context.Context, telegramID int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET is_authenticated = 1 WHERE telegram_id = ?`, telegramID)
	return err
}

// IsAuthenticated reports whether a user has passed the password gate.
func (s *SQLiteStore) IsAuthenticated(ctx context.Context, telegramID int64) (bool, error) {
	var authed int
	err := s.db.QueryRowContext(ctx,
		`SELECT is_authenticated FROM users WHERE telegram_id = ?`, telegramID).Scan(&authed)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return authed != 0, nil
}

// IsAdmin reports whether a user is an authenticated admin.
func (s *SQLiteStore) IsAdmin(ctx context.Context, telegramID int64) (bool, error) {
	var admin, authed int
	err := s.db.QueryRowContext(ctx,
		`SELECT is_admin, is_authenticated FROM users WHERE telegram_id = ?`, telegramID).
		Scan(&admin, &authed)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return admin != 0 && authed != 0, nil
}

// GetAuthenticatedUsers returns every user eligible for broadcasts.
func (s *SQLiteStore) GetAuthenticatedUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, telegram_id, username, first_name, is_authenticated, is_admin, created_at, last_active
		 FROM users WHERE is_authenticated = 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUsers(rows)
}

// ListUsers returns all users, newest first.
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, telegram_id, username, first_name, is_authenticated, is_admin, created_at, last_active
		 FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUsers(rows)
}

// GetActiveCoins returns the tracked coin list the pipeline reports on.
func (s *SQLiteStore) GetActiveCoins(ctx context.Context) ([]models.TrackedCoin, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, symbol, name, COALESCE(cmc_slug, ''), active, added_at
		 FROM coins WHERE active = 1 ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var coins []models.TrackedCoin
	for rows.Next() {
		var c models.TrackedCoin
		var active int
		if err := rows.Scan(&c.ID, &c.Symbol, &c.Name, &c.Slug, &active, &c.AddedAt); err != nil {
			return nil, err
		}
		c.Active = active != 0
		coins = append(coins, c)
	}
	return coins, rows.Err()
}

// AddCoin upserts a coin and reactivates it if it was removed. The symbol is
// canonicalized to uppercase.
func (s *SQLiteStore) AddCoin(ctx context.Context, symbol, name, slug string) error {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return fmt.Errorf("coin symbol is required")
	}
	var slugVal interface{}
	if slug != "" {
		slugVal = slug
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO coins (symbol, name, cmc_slug, active) VALUES (?, ?, ?, 1)`,
		symbol, name, slugVal)
	return err
}

// RemoveCoin deactivates a coin without losing its history.
func (s *SQLiteStore) RemoveCoin(ctx context.Context, symbol string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE coins SET active = 0 WHERE symbol = ?`, strings.ToUpper(symbol))
	return err
}

// LogAction records a user action for analytics.
func (s *SQLiteStore) LogAction(ctx context.Context, telegramID int64, action, details string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO analytics (telegram_id, action, details) VALUES (?, ?, ?)`,
		telegramID, action, details)
	return err
}

// GetAnalytics returns the aggregate usage view.
func (s *SQLiteStore) GetAnalytics(ctx context.Context) (*Analytics, error) {
	a := &Analytics{}

	now := time.Now().UTC()
	dayAgo := now.Add(-24 * time.Hour)
	weekAgo := now.Add(-7 * 24 * time.Hour)
	monthAgo := now.Add(-30 * 24 * time.Hour)

	counts := []struct {
		dest  *int
		query string
		args  []interface{}
	}{
		{&a.TotalUsers, `SELECT COUNT(*) FROM users`, nil},
		{&a.AuthenticatedUsers, `SELECT COUNT(*) FROM users WHERE is_authenticated = 1`, nil},
		{&a.Active24h, `SELECT COUNT(*) FROM users WHERE last_active >= ?`, []interface{}{dayAgo}},
		{&a.Active7d, `SELECT COUNT(*) FROM users WHERE last_active >= ?`, []interface{}{weekAgo}},
		{&a.Active30d, `SELECT COUNT(*) FROM users WHERE last_active >= ?`, []interface{}{monthAgo}},
		{&a.ActionsToday, `SELECT COUNT(*) FROM analytics WHERE created_at >= ?`, []interface{}{dayAgo}},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query, c.args...).Scan(c.dest); err != nil {
			return nil, err
		}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT action, COUNT(*) as c FROM analytics WHERE created_at >= ?
		 GROUP BY action ORDER BY c DESC LIMIT 10`, weekAgo)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var ac ActionCount
		if err := rows.Scan(&ac.Action, &ac.Count); err != nil {
			return nil, err
		}
		a.TopActionsWeek = append(a.TopActionsWeek, ac)
	}
	return a, rows.Err()
}

// GetSession returns the persisted conversation state, or nil when idle.
func (s *SQLiteStore) GetSession(ctx context.Context, telegramID int64) (*SessionRow, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT telegram_id, state, COALESCE(symbol, ''), COALESCE(name, ''), updated_at
		 FROM sessions WHERE telegram_id = ?`, telegramID)

	var sr SessionRow
	err := row.Scan(&sr.TelegramID, &sr.State, &sr.Symbol, &sr.Name, &sr.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sr, nil
}

// SaveSession upserts the conversation state for a user.
func (s *SQLiteStore) SaveSession(ctx context.Context, telegramID int64, state, symbol, name string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (telegram_id, state, symbol, name, updated_at)
		 VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(telegram_id) DO UPDATE SET
		   state = excluded.state, symbol = excluded.symbol,
		   name = excluded.name, updated_at = CURRENT_TIMESTAMP`,
		telegramID, state, symbol, name)
	return err
}

// ClearSession removes the conversation state for a user.
func (s *SQLiteStore) ClearSession(ctx context.Context, telegramID int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE telegram_id = ?`, telegramID)
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	var authed, admin int
	var username, firstName sql.NullString
	err := row.Scan(&u.ID, &u.TelegramID, &username, &firstName, &authed, &admin, &u.CreatedAt, &u.LastActive)
	if err != nil {
		return nil, err
	}
	u.Username = username.String
	u.FirstName = firstName.String
	u.Authenticated = authed != 0
	u.Admin = admin != 0
	return &u, nil
}

func scanUsers(rows *sql.Rows) ([]models.User, error) {
	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
