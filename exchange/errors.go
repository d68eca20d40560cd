package exchange

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies a class in the shared exception taxonomy. Adapters map
// venue error codes and messages onto kinds; callers branch with IsKind.
type Kind string

const (
	KindAuthentication    Kind = "AuthenticationError"
	KindPermissionDenied  Kind = "PermissionDenied"
	KindAccountSuspended  Kind = "AccountSuspended"
	KindArgumentsRequired Kind = "ArgumentsRequired"
	KindBadRequest        Kind = "BadRequest"
	KindBadSymbol         Kind = "BadSymbol"
	KindInvalidOrder      Kind = "InvalidOrder"
	KindOrderNotFound     Kind = "OrderNotFound"
	KindOrderFillable     Kind = "OrderImmediatelyFillable"
	KindDuplicateOrderID  Kind = "DuplicateOrderId"
	KindInsufficientFunds Kind = "InsufficientFunds"
	KindInvalidNonce      Kind = "InvalidNonce"
	KindInvalidAddress    Kind = "InvalidAddress"
	KindRateLimit         Kind = "RateLimitExceeded"
	KindDDoSProtection    Kind = "DDoSProtection"
	KindNotAvailable      Kind = "ExchangeNotAvailable"
	KindOnMaintenance     Kind = "OnMaintenance"
	KindRequestTimeout    Kind = "RequestTimeout"
	KindNetwork           Kind = "NetworkError"
	KindExchange          Kind = "ExchangeError"
)

// Error is a classified venue failure. Message keeps the raw venue text so
// third-party API changes stay debuggable.
type Error struct {
	Kind     Kind
	Exchange string
	Message  string
	cause    error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s", e.Exchange, e.Kind)
	}
	return fmt.Sprintf("%s %s: %s", e.Exchange, e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// NewError builds a classified error carrying the adapter id and the raw or
// translated venue message.
func NewError(kind Kind, exchange, message string) *Error {
	return &Error{Kind: kind, Exchange: exchange, Message: message}
}

// WrapError classifies an underlying error, preserving it for errors.Is.
func WrapError(kind Kind, exchange string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Exchange: exchange, Message: err.Error(), cause: err}
}

// IsKind reports whether err is a classified Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// BroadRule maps a message substring to a kind. Rules are evaluated in slice
// order so the original precedence is preserved.
type BroadRule struct {
	Substring string
	Kind      Kind
}

// ErrorMap is the two-stage lookup every adapter configures: exact codes or
// messages first, then an ordered substring scan.
type ErrorMap struct {
	Exact map[string]Kind
	Broad []BroadRule
}

// MatchExact classifies an exact error code or message.
func (m ErrorMap) MatchExact(key string) (Kind, bool) {
	if key == "" || m.Exact == nil {
		return "", false
	}
	kind, ok := m.Exact[key]
	return kind, ok
}

// MatchBroad classifies by the first matching substring rule.
func (m ErrorMap) MatchBroad(message string) (Kind, bool) {
	if message == "" {
		return "", false
	}
	for _, rule := range m.Broad {
		if strings.Contains(message, rule.Substring) {
			return rule.Kind, true
		}
	}
	return "", false
}

// Classify runs exact keys in order, then the broad scan over message, and
// falls back to ExchangeError. keys are tried against the exact table one by
// one, mirroring code-then-message lookups.
func (m ErrorMap) Classify(message string, keys ...string) Kind {
	for _, key := range keys {
		if kind, ok := m.MatchExact(key); ok {
			return kind
		}
	}
	if kind, ok := m.MatchBroad(message); ok {
		return kind
	}
	return KindExchange
}

// HTTPStatusKind is the default HTTP status classification applied before
// body inspection. 418 is used by binance-family venues for auto-bans.
func HTTPStatusKind(status int) (Kind, bool) {
	switch status {
	case 418, 429:
		return KindDDoSProtection, true
	case 404:
		return KindBadRequest, true
	case 408, 504:
		return KindRequestTimeout, true
	case 500, 502:
		return KindNotAvailable, true
	case 503:
		return KindOnMaintenance, true
	}
	return "", false
}
