// Package models defines the core data types shared across the application.
package models

import (
	"fmt"
	"strings"
	"time"
)

// TrackedCoin is an admin-curated coin the pipeline reports on.
// Symbol is the canonical uppercase join key across all fetch results.
type TrackedCoin struct {
	ID      int64
	Symbol  string
	Name    string
	Slug    string // provider slug, preferred over symbol when set
	Active  bool
	AddedAt time.Time
}

// Validate checks that the coin can participate in a pipeline run.
func (c TrackedCoin) Validate() error {
	if strings.TrimSpace(c.Symbol) == "" {
		return fmt.Errorf("coin symbol is required")
	}
	if c.Symbol != strings.ToUpper(c.Symbol) {
		return fmt.Errorf("coin symbol must be uppercase: %s", c.Symbol)
	}
	return nil
}

// SearchTerm returns the term used for web searches: the display name when it
// differs from the symbol, otherwise the symbol itself.
func (c TrackedCoin) SearchTerm() string {
	if c.Name != "" && c.Name != c.Symbol {
		return c.Name
	}
	return c.Symbol
}
