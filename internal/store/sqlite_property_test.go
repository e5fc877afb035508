package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Property: Coin round-trip consistency
//
// For any valid symbol, name and slug, adding the coin and reading the
// active list back yields the coin with its symbol canonicalized to
// uppercase and name and slug preserved.
func TestProperty_CoinRoundTripConsistency(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "coins_property.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	symbolGen := gen.RegexMatch("[a-zA-Z]{2,8}")
	nameGen := gen.RegexMatch("[A-Za-z][A-Za-z ]{0,20}")
	slugGen := gen.OneGenOf(gen.Const(""), gen.RegexMatch("[a-z]{3,12}"))

	properties.Property("add then list preserves the coin", prop.ForAll(
		func(symbol, name, slug string) bool {
			ctx := context.Background()

			if err := store.AddCoin(ctx, symbol, name, slug); err != nil {
				t.Logf("AddCoin failed: %v", err)
				return false
			}

			coins, err := store.GetActiveCoins(ctx)
			if err != nil {
				t.Logf("GetActiveCoins failed: %v", err)
				return false
			}

			want := strings.ToUpper(strings.TrimSpace(symbol))
			for _, c := range coins {
				if c.Symbol != want {
					continue
				}
				if c.Name != name {
					t.Logf("name changed: %q != %q", c.Name, name)
					return false
				}
				if c.Slug != slug {
					t.Logf("slug changed: %q != %q", c.Slug, slug)
					return false
				}
				if err := c.Validate(); err != nil {
					t.Logf("stored coin invalid: %v", err)
					return false
				}
				return true
			}
			t.Logf("coin %s missing from active list", want)
			return false
		},
		symbolGen, nameGen, slugGen,
	))

	properties.TestingRun(t)
}

// Property: Session save is last-writer-wins
//
// For any sequence of saves to the same user, GetSession returns exactly the
// last written state, and ClearSession always resets to no session.
func TestProperty_SessionLastWriterWins(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "sessions_property.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	stateGen := gen.OneConstOf("awaiting_symbol", "awaiting_name", "awaiting_slug")

	properties.Property("last save wins, clear resets", prop.ForAll(
		func(telegramID int64, states []string) bool {
			ctx := context.Background()

			for i, st := range states {
				if err := store.SaveSession(ctx, telegramID, st, "SYM", "Name"); err != nil {
					t.Logf("save %d failed: %v", i, err)
					return false
				}
			}

			row, err := store.GetSession(ctx, telegramID)
			if err != nil {
				t.Logf("get failed: %v", err)
				return false
			}
			if len(states) == 0 {
				// Never saved in this iteration; a row may remain from an
				// earlier one, so only the clear guarantee applies.
			} else if row == nil || row.State != states[len(states)-1] {
				t.Logf("expected state %q, got %+v", states[len(states)-1], row)
				return false
			}

			if err := store.ClearSession(ctx, telegramID); err != nil {
				t.Logf("clear failed: %v", err)
				return false
			}
			row, err = store.GetSession(ctx, telegramID)
			if err != nil || row != nil {
				t.Logf("expected no session after clear, got %+v (err %v)", row, err)
				return false
			}
			return true
		},
		gen.Int64Range(1, 1_000_000),
		gen.SliceOf(stateGen),
	))

	properties.TestingRun(t)
}
