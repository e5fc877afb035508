// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrNotConfigured    = errors.New("provider not configured")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrAccessDenied     = errors.New("access denied")
	ErrNotFound         = errors.New("not found")
	ErrTimeout          = errors.New("operation timed out")
	ErrConnectionFailed = errors.New("connection failed")
	ErrRateLimited      = errors.New("rate limited")
	ErrConfigInvalid    = errors.New("invalid configuration")
	ErrDatabaseError    = errors.New("database error")
	ErrInvalidState     = errors.New("invalid session state transition")
)

// Kind classifies a failure at a fetch boundary. The kind decides how the
// pipeline degrades: provider and not-found failures stay per-coin,
// transport failures short-circuit the whole fetch, parse failures become
// empty result sets.
type Kind string

const (
	KindProvider  Kind = "provider"
	KindTransport Kind = "transport"
	KindParse     Kind = "parse"
	KindNotFound  Kind = "not_found"
)

// FetchError is a classified failure from an external data source.
type FetchError struct {
	Kind     Kind
	Provider string
	Symbol   string
	Message  string
	Err      error
}

func (e *FetchError) Error() string {
	base := fmt.Sprintf("fetch error [%s] %s", e.Kind, e.Provider)
	if e.Symbol != "" {
		base += " " + e.Symbol
	}
	if e.Message != "" {
		base += ": " + e.Message
	}
	if e.Err != nil {
		base += fmt.Sprintf(": %v", e.Err)
	}
	return base
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError creates a new FetchError.
func NewFetchError(kind Kind, provider, symbol, message string, err error) *FetchError {
	return &FetchError{
		Kind:     kind,
		Provider: provider,
		Symbol:   symbol,
		Message:  message,
		Err:      err,
	}
}

// KindOf extracts the failure kind from an error chain. Unclassified errors
// are treated as transport failures, the most conservative degradation.
func KindOf(err error) Kind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindTransport
}

// DeliveryError represents a failure to deliver a message to one recipient.
type DeliveryError struct {
	ChatID int64
	Err    error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery to %d failed: %v", e.ChatID, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// NewDeliveryError creates a new DeliveryError.
func NewDeliveryError(chatID int64, err error) *DeliveryError {
	return &DeliveryError{ChatID: chatID, Err: err}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
