package exchange

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorFormat(t *testing.T) {
	err := NewError(KindInsufficientFunds, "bitrue", "Account has insufficient balance")
	if err.Error() != "bitrue InsufficientFunds: Account has insufficient balance" {
		t.Errorf("unexpected format: %s", err.Error())
	}
	bare := NewError(KindRateLimit, "lbank", "")
	if bare.Error() != "lbank RateLimitExceeded" {
		t.Errorf("unexpected bare format: %s", bare.Error())
	}
}

func TestIsKindThroughWrapping(t *testing.T) {
	inner := NewError(KindOrderNotFound, "gemini", "Order not found")
	wrapped := fmt.Errorf("cancel order: %w", inner)

	if !IsKind(wrapped, KindOrderNotFound) {
		t.Error("IsKind should see through fmt.Errorf wrapping")
	}
	if IsKind(wrapped, KindInvalidOrder) {
		t.Error("IsKind matched the wrong kind")
	}
	var e *Error
	if !errors.As(wrapped, &e) || e.Exchange != "gemini" {
		t.Error("errors.As failed to recover the classified error")
	}
}

func TestWrapErrorPreservesCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := WrapError(KindNetwork, "probit", cause)
	if !errors.Is(err, cause) {
		t.Error("wrapped cause lost")
	}
	if WrapError(KindNetwork, "probit", nil) != nil {
		t.Error("nil cause should produce nil error")
	}
}

func TestErrorMapPrecedence(t *testing.T) {
	m := ErrorMap{
		Exact: map[string]Kind{
			"-1013":              KindInvalidOrder,
			"Insufficient funds": KindInsufficientFunds,
		},
		Broad: []BroadRule{
			{"insufficient", KindInsufficientFunds},
			{"order", KindOrderNotFound},
		},
	}

	// Exact keys win over broad rules.
	if kind := m.Classify("order rejected", "-1013"); kind != KindInvalidOrder {
		t.Errorf("exact match lost to broad scan: %s", kind)
	}
	// Broad rules run in declared order.
	if kind := m.Classify("insufficient margin for order", "unknown"); kind != KindInsufficientFunds {
		t.Errorf("broad precedence violated: %s", kind)
	}
	// Later keys are tried when earlier ones miss.
	if kind := m.Classify("", "unknown", "Insufficient funds"); kind != KindInsufficientFunds {
		t.Errorf("fallback key ignored: %s", kind)
	}
	// Nothing matches: ExchangeError.
	if kind := m.Classify("something new", "999"); kind != KindExchange {
		t.Errorf("unexpected fallback: %s", kind)
	}
}

func TestErrorMapEmptyInputs(t *testing.T) {
	var m ErrorMap
	if _, ok := m.MatchExact(""); ok {
		t.Error("empty key should not match")
	}
	if _, ok := m.MatchBroad(""); ok {
		t.Error("empty message should not match")
	}
	if kind := m.Classify("anything"); kind != KindExchange {
		t.Errorf("empty map should classify as ExchangeError, got %s", kind)
	}
}

func TestHTTPStatusKind(t *testing.T) {
	cases := []struct {
		status int
		kind   Kind
		mapped bool
	}{
		{418, KindDDoSProtection, true},
		{429, KindDDoSProtection, true},
		{404, KindBadRequest, true},
		{408, KindRequestTimeout, true},
		{504, KindRequestTimeout, true},
		{500, KindNotAvailable, true},
		{502, KindNotAvailable, true},
		{503, KindOnMaintenance, true},
		{400, "", false},
		{200, "", false},
	}
	for _, c := range cases {
		kind, ok := HTTPStatusKind(c.status)
		if ok != c.mapped || kind != c.kind {
			t.Errorf("HTTPStatusKind(%d) = %s/%v, want %s/%v", c.status, kind, ok, c.kind, c.mapped)
		}
	}
}
