package models

import "time"

// User is a bot user. Authenticated is set once the shared access password
// has been entered; Admin is granted from the configured admin ID list.
type User struct {
	ID            int64
	TelegramID    int64
	Username      string
	FirstName     string
	Authenticated bool
	Admin         bool
	CreatedAt     time.Time
	LastActive    time.Time
}

// DisplayName returns the best human-readable name for listings.
func (u User) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	if u.Username != "" {
		return u.Username
	}
	return ""
}
