// Package exchange holds the shared machinery under every venue adapter:
// the signed HTTP transport, the error taxonomy with exact/broad venue
// error tables, tolerant numeric parsing, the market cache, and candle
// window arithmetic. Adapters live in subpackages and compose these pieces
// with venue-specific endpoint tables and normalizers.
package exchange

import (
	"context"

	"github.com/shopspring/decimal"

	"tradewire/models"
)

// OrderOptions are the recognized optional fields for order placement.
// Params carries venue-specific extras through to the request untouched,
// for forward compatibility with fields this layer does not model.
type OrderOptions struct {
	ClientOrderID string
	TimeInForce   string // GTC, IOC, FOK, PO
	PostOnly      bool
	StopPrice     *decimal.Decimal
	Params        map[string]string
}

// Exchange is the unified operation surface common to every adapter.
type Exchange interface {
	ID() string
	LoadMarkets(ctx context.Context) error
	FetchMarkets(ctx context.Context) ([]models.Market, error)
	FetchTicker(ctx context.Context, symbol string) (models.Ticker, error)
	FetchOrderBook(ctx context.Context, symbol string, limit int) (models.OrderBook, error)
	FetchTrades(ctx context.Context, symbol string, since int64, limit int) ([]models.Trade, error)
	FetchBalance(ctx context.Context) (models.Balance, error)
	CreateOrder(ctx context.Context, symbol, orderType, side string, amount, price *decimal.Decimal, opts *OrderOptions) (models.Order, error)
	CancelOrder(ctx context.Context, id, symbol string) (models.Order, error)
	FetchOrder(ctx context.Context, id, symbol string) (models.Order, error)
	FetchOpenOrders(ctx context.Context, symbol string, since int64, limit int) ([]models.Order, error)
}

// Capability interfaces for operations not every venue exposes. Callers
// type-assert against the concrete adapter.

type TickersFetcher interface {
	FetchTickers(ctx context.Context, symbols []string) (map[string]models.Ticker, error)
}

type OHLCVFetcher interface {
	FetchOHLCV(ctx context.Context, symbol, timeframe string, since int64, limit int) ([]models.OHLCV, error)
}

type ClosedOrdersFetcher interface {
	FetchClosedOrders(ctx context.Context, symbol string, since int64, limit int) ([]models.Order, error)
}

type MyTradesFetcher interface {
	FetchMyTrades(ctx context.Context, symbol string, since int64, limit int) ([]models.Trade, error)
}

type FundingHistoryFetcher interface {
	FetchDeposits(ctx context.Context, code string, since int64, limit int) ([]models.Transaction, error)
	FetchWithdrawals(ctx context.Context, code string, since int64, limit int) ([]models.Transaction, error)
}

type Withdrawer interface {
	Withdraw(ctx context.Context, code string, amount decimal.Decimal, address, tag string) (models.Transaction, error)
}

type DepositAddressFetcher interface {
	FetchDepositAddress(ctx context.Context, code, network string) (models.DepositAddress, error)
}

type Transferer interface {
	Transfer(ctx context.Context, code string, amount decimal.Decimal, fromAccount, toAccount string) (models.TransferEntry, error)
}

type TimeFetcher interface {
	FetchTime(ctx context.Context) (int64, error)
}
