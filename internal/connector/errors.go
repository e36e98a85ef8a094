package connector

import (
	"errors"
	"fmt"

	"feedback-relay-go/internal/model"
)

var (
	// ErrFiltered marks a message that is not a legitimate inbound message
	// (spam, trash, deleted).
	ErrFiltered = errors.New("message filtered at source")
	// ErrCursorExpired means the provider no longer recognizes the stored cursor.
	ErrCursorExpired = errors.New("cursor expired")
)

// Kind classifies provider failures
type Kind string

const (
	KindAuth        Kind = "auth"
	KindRateLimit   Kind = "rate_limit"
	KindNotFound    Kind = "not_found"
	KindUnavailable Kind = "unavailable"
	KindNetwork     Kind = "network"
	KindInvalid     Kind = "invalid"
)

// Error is returned by adapters for any failure talking to the provider
type Error struct {
	Channel model.Channel
	Op      string
	Kind    Kind
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s failed (%s): %v", e.Channel, e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err as a connector error
func NewError(channel model.Channel, op string, kind Kind, err error) *Error {
	return &Error{Channel: channel, Op: op, Kind: kind, Err: err}
}

// KindForStatus maps an HTTP status code to a failure kind
func KindForStatus(code int) Kind {
	switch {
	case code == 401 || code == 403:
		return KindAuth
	case code == 404:
		return KindNotFound
	case code == 429:
		return KindRateLimit
	case code >= 500:
		return KindUnavailable
	default:
		return KindInvalid
	}
}
