// Package session models the admin coin-entry conversation as an explicit
// state machine keyed by Telegram ID, persisted alongside the rest of the
// bot's data so it survives restarts.
package session

import (
	apperrors "crypto-summary-bot/internal/errors"
)

// State is a conversation step.
type State string

const (
	Idle           State = "idle"
	AwaitingSymbol State = "awaiting_symbol"
	AwaitingName   State = "awaiting_name"
	AwaitingSlug   State = "awaiting_slug"
)

// transitions lists the valid next steps from each state. Any state may
// reset to Idle (cancellation).
var transitions = map[State][]State{
	Idle:           {AwaitingSymbol},
	AwaitingSymbol: {AwaitingName},
	AwaitingName:   {AwaitingSlug},
	AwaitingSlug:   {},
}

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether moving from s to next is allowed.
func (s State) CanTransition(next State) bool {
	if next == Idle {
		return true
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Session is one user's conversation state plus the data collected so far.
type Session struct {
	State  State
	Symbol string
	Name   string
}

// NewSession returns an idle session.
func NewSession() Session {
	return Session{State: Idle}
}

// Advance validates and applies a transition.
func (s *Session) Advance(next State) error {
	if !next.Valid() {
		return apperrors.Wrapf(apperrors.ErrInvalidState, "unknown state %q", next)
	}
	if !s.State.CanTransition(next) {
		return apperrors.Wrapf(apperrors.ErrInvalidState, "%s -> %s", s.State, next)
	}
	s.State = next
	if next == Idle {
		s.Symbol = ""
		s.Name = ""
	}
	return nil
}
