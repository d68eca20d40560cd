package models

import (
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// Market describes a tradable pair in unified form. ID is the venue-native
// identifier ("BTCUSDT", "btc_usdt"), Symbol the unified BASE/QUOTE string.
type Market struct {
	ID           string           `json:"id"`
	Symbol       string           `json:"symbol"`
	Base         string           `json:"base"`
	Quote        string           `json:"quote"`
	BaseID       string           `json:"base_id"`
	QuoteID      string           `json:"quote_id"`
	Settle       string           `json:"settle,omitempty"`
	SettleID     string           `json:"settle_id,omitempty"`
	Type         string           `json:"type"` // "spot" or "swap"
	Spot         bool             `json:"spot"`
	Swap         bool             `json:"swap"`
	Contract     bool             `json:"contract"`
	Linear       bool             `json:"linear,omitempty"`
	Inverse      bool             `json:"inverse,omitempty"`
	Active       bool             `json:"active"`
	Taker        *decimal.Decimal `json:"taker,omitempty"`
	Maker        *decimal.Decimal `json:"maker,omitempty"`
	ContractSize *decimal.Decimal `json:"contract_size,omitempty"`
	Precision    MarketPrecision  `json:"precision"`
	Limits       MarketLimits     `json:"limits"`
	Info         gjson.Result     `json:"-"`
}

// MarketPrecision holds tick/step sizes. A nil value means the venue does not
// publish that precision.
type MarketPrecision struct {
	Amount *decimal.Decimal `json:"amount"`
	Price  *decimal.Decimal `json:"price"`
}

// MarketLimits holds min/max constraints per order dimension.
type MarketLimits struct {
	Amount MinMax `json:"amount"`
	Price  MinMax `json:"price"`
	Cost   MinMax `json:"cost"`
}

// MinMax is an optional closed interval. Nil bounds are unconstrained.
type MinMax struct {
	Min *decimal.Decimal `json:"min"`
	Max *decimal.Decimal `json:"max"`
}
