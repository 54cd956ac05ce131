package coach

import (
	"errors"
	"fmt"
)

// Kind classifies a failed coach exchange.
type Kind int

const (
	KindUnknown Kind = iota
	// KindMissingConfiguration: no credential or endpoint at call time.
	KindMissingConfiguration
	// KindNetwork: DNS, timeout, connection reset.
	KindNetwork
	// KindRateLimited: the endpoint answered 429. Independent of the local quota.
	KindRateLimited
	// KindInvalidResponse: a 200 whose body is not a reply.
	KindInvalidResponse
	// KindAPI: any other non-200, with the server's message when it sent one.
	KindAPI
)

func (k Kind) String() string {
	switch k {
	case KindMissingConfiguration:
		return "missing_configuration"
	case KindNetwork:
		return "network_error"
	case KindRateLimited:
		return "rate_limited"
	case KindInvalidResponse:
		return "invalid_response"
	case KindAPI:
		return "api_error"
	}
	return "unknown"
}

// ConsumesQuota reports whether an attempt that failed with this kind still
// counts against the local daily quota. Only attempts the endpoint actually
// processed do.
func (k Kind) ConsumesQuota() bool {
	switch k {
	case KindInvalidResponse, KindAPI:
		return true
	}
	return false
}

// Error is a classified coach failure.
type Error struct {
	Kind    Kind
	Message string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindMissingConfiguration:
		return "coach: missing configuration: " + e.Message
	case KindNetwork:
		return fmt.Sprintf("coach: network error: %v", e.Err)
	case KindRateLimited:
		return "coach: rate limited by server"
	case KindInvalidResponse:
		if e.Err != nil {
			return fmt.Sprintf("coach: invalid response: %v", e.Err)
		}
		return "coach: invalid response: " + e.Message
	case KindAPI:
		return fmt.Sprintf("coach: api error (%d): %s", e.Status, e.Message)
	}
	return "coach: " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind so callers can write errors.Is(err, coach.ErrRateLimited).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrMissingConfiguration = &Error{Kind: KindMissingConfiguration}
	ErrNetwork              = &Error{Kind: KindNetwork}
	ErrRateLimited          = &Error{Kind: KindRateLimited}
	ErrInvalidResponse      = &Error{Kind: KindInvalidResponse}
	ErrAPI                  = &Error{Kind: KindAPI}
)

var (
	// ErrQuotaExceeded is returned before any work when the daily quota is spent.
	ErrQuotaExceeded = errors.New("daily message limit reached")
	// ErrSendInFlight is returned when the conversation already has a send outstanding.
	ErrSendInFlight = errors.New("a message is already being sent for this conversation")
)

// KindOf extracts the Kind from err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// UserMessage returns text suitable for an errored chat bubble.
func UserMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return "Something went wrong. Tap to retry."
	}
	switch e.Kind {
	case KindMissingConfiguration:
		return "The coach isn't set up yet."
	case KindNetwork:
		return "Couldn't reach the coach. Check your connection and retry."
	case KindRateLimited:
		return "The coach is busy right now. Please wait a moment and retry."
	case KindInvalidResponse:
		return "The coach sent a reply we couldn't read. Please retry."
	case KindAPI:
		if e.Message != "" {
			return e.Message
		}
	}
	return "Something went wrong. Tap to retry."
}
