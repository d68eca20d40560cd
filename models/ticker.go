package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// Ticker is a 24h price summary for one market. Absent numeric fields stay
// nil; a venue that does not report a value must never surface it as zero.
type Ticker struct {
	Symbol      string           `json:"symbol"`
	Timestamp   int64            `json:"timestamp,omitempty"` // epoch ms, 0 when the venue omits it
	Bid         *decimal.Decimal `json:"bid"`
	BidVolume   *decimal.Decimal `json:"bid_volume"`
	Ask         *decimal.Decimal `json:"ask"`
	AskVolume   *decimal.Decimal `json:"ask_volume"`
	Last        *decimal.Decimal `json:"last"`
	Open        *decimal.Decimal `json:"open"`
	High        *decimal.Decimal `json:"high"`
	Low         *decimal.Decimal `json:"low"`
	Close       *decimal.Decimal `json:"close"`
	Percentage  *decimal.Decimal `json:"percentage"`
	BaseVolume  *decimal.Decimal `json:"base_volume"`
	QuoteVolume *decimal.Decimal `json:"quote_volume"`
	Info        gjson.Result     `json:"-"`
}

// BookLevel is a single [price, amount] order book level.
type BookLevel struct {
	Price  decimal.Decimal `json:"price"`
	Amount decimal.Decimal `json:"amount"`
}

// OrderBook holds bids in descending and asks in ascending price order.
// Nonce is the venue sequence number when published, for staleness checks.
type OrderBook struct {
	Symbol    string       `json:"symbol"`
	Timestamp int64        `json:"timestamp,omitempty"`
	Bids      []BookLevel  `json:"bids"`
	Asks      []BookLevel  `json:"asks"`
	Nonce     int64        `json:"nonce,omitempty"`
	Info      gjson.Result `json:"-"`
}

// OHLCV is one candle: open time (epoch ms) plus open/high/low/close/volume.
type OHLCV struct {
	Timestamp int64            `json:"timestamp"`
	Open      *decimal.Decimal `json:"open"`
	High      *decimal.Decimal `json:"high"`
	Low       *decimal.Decimal `json:"low"`
	Close     *decimal.Decimal `json:"close"`
	Volume    *decimal.Decimal `json:"volume"`
}

// Time reports the candle open time.
func (c OHLCV) Time() time.Time {
	return time.UnixMilli(c.Timestamp).UTC()
}
