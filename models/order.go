package models

import (
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// Order side.
const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// Unified order types. Venues with stop variants normalize into the
// stop-suffixed forms.
const (
	OrderTypeLimit      = "limit"
	OrderTypeMarket     = "market"
	OrderTypeStopLimit  = "stop_limit"
	OrderTypeStopMarket = "stop_market"
)

// Unified order statuses. Venue statuses with no mapping pass through
// unchanged so callers can still observe them.
const (
	OrderStatusOpen      = "open"
	OrderStatusClosed    = "closed"
	OrderStatusCanceled  = "canceled"
	OrderStatusCanceling = "canceling"
	OrderStatusRejected  = "rejected"
	OrderStatusExpired   = "expired"
	OrderStatusFailed    = "failed"
)

// Time-in-force policies.
const (
	TimeInForceGTC = "GTC"
	TimeInForceIOC = "IOC"
	TimeInForceFOK = "FOK"
	TimeInForcePO  = "PO"
)

// Fee is a trading or transfer fee in a given currency.
type Fee struct {
	Currency string           `json:"currency"`
	Cost     *decimal.Decimal `json:"cost"`
	Rate     *decimal.Decimal `json:"rate,omitempty"`
}

// Order reflects remote order state as last observed. Adapters never own
// this state; they only translate what the venue reports.
type Order struct {
	ID                 string           `json:"id"`
	ClientOrderID      string           `json:"client_order_id,omitempty"`
	Symbol             string           `json:"symbol"`
	Type               string           `json:"type"`
	Side               string           `json:"side"`
	Status             string           `json:"status"`
	TimeInForce        string           `json:"time_in_force,omitempty"`
	PostOnly           bool             `json:"post_only,omitempty"`
	Timestamp          int64            `json:"timestamp,omitempty"`
	LastTradeTimestamp int64            `json:"last_trade_timestamp,omitempty"`
	Price              *decimal.Decimal `json:"price"`
	StopPrice          *decimal.Decimal `json:"stop_price,omitempty"`
	Amount             *decimal.Decimal `json:"amount"`
	Filled             *decimal.Decimal `json:"filled"`
	Remaining          *decimal.Decimal `json:"remaining"`
	Average            *decimal.Decimal `json:"average"`
	Cost               *decimal.Decimal `json:"cost"`
	Fee                *Fee             `json:"fee,omitempty"`
	Info               gjson.Result     `json:"-"`
}

// Trade is a single fill, immutable once observed.
type Trade struct {
	ID           string           `json:"id"`
	OrderID      string           `json:"order_id,omitempty"`
	Symbol       string           `json:"symbol"`
	Side         string           `json:"side"`
	Type         string           `json:"type,omitempty"`
	TakerOrMaker string           `json:"taker_or_maker,omitempty"`
	Timestamp    int64            `json:"timestamp,omitempty"`
	Price        *decimal.Decimal `json:"price"`
	Amount       *decimal.Decimal `json:"amount"`
	Cost         *decimal.Decimal `json:"cost"`
	Fee          *Fee             `json:"fee,omitempty"`
	Info         gjson.Result     `json:"-"`
}
