package gemini

import (
	"context"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"

	"tradewire/exchange"
	"tradewire/logger"
	"tradewire/models"
)

// BookUpdate is one l2 delta from the market data stream. Amount zero
// means the level was removed.
type BookUpdate struct {
	Symbol    string
	Side      string
	Price     string
	Amount    string
	Timestamp int64
}

// StreamHandler receives market data events. Either callback may be nil.
type StreamHandler struct {
	OnTrade      func(models.Trade)
	OnBookUpdate func(BookUpdate)
}

// WatchMarketData subscribes to the v2 l2 feed for the given symbols and
// dispatches events until ctx is done. The connection is redialed with a
// fixed backoff after any read failure.
func (a *Adapter) WatchMarketData(ctx context.Context, symbols []string, handler StreamHandler) error {
	if err := a.LoadMarkets(ctx); err != nil {
		return err
	}
	marketIDs := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		market, err := a.markets.BySymbol(id, symbol)
		if err != nil {
			return err
		}
		marketIDs = append(marketIDs, strings.ToUpper(market.ID))
	}
	log := a.log.WithComponent(id).WithFields(logger.Fields{"stream": "l2"})
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := a.streamOnce(ctx, marketIDs, handler); err != nil {
			log.WithError(err).Warn("stream disconnected, redialing")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(3 * time.Second):
		}
	}
}

func (a *Adapter) streamOnce(ctx context.Context, marketIDs []string, handler StreamHandler) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, a.wsURL, nil)
	if err != nil {
		return exchange.WrapError(exchange.KindNetwork, id, err)
	}
	defer conn.Close()

	subscribe := map[string]any{
		"type": "subscribe",
		"subscriptions": []map[string]any{
			{"name": "l2", "symbols": marketIDs},
		},
	}
	if err := conn.WriteJSON(subscribe); err != nil {
		return exchange.WrapError(exchange.KindNetwork, id, err)
	}

	// Unblock ReadMessage when the context is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return exchange.WrapError(exchange.KindNetwork, id, err)
		}
		a.dispatchStream(gjson.ParseBytes(message), handler)
	}
}

func (a *Adapter) dispatchStream(msg gjson.Result, handler StreamHandler) {
	marketID := strings.ToLower(msg.Get("symbol").String())
	symbol := a.markets.SymbolForID(marketID)
	switch msg.Get("type").String() {
	case "l2_updates":
		if handler.OnBookUpdate == nil {
			return
		}
		for _, change := range msg.Get("changes").Array() {
			row := change.Array()
			if len(row) < 3 {
				continue
			}
			side := "bid"
			if row[0].String() == "sell" {
				side = "ask"
			}
			handler.OnBookUpdate(BookUpdate{
				Symbol:    symbol,
				Side:      side,
				Price:     row[1].String(),
				Amount:    row[2].String(),
				Timestamp: msg.Get("timestamp").Int(),
			})
		}
	case "trade":
		if handler.OnTrade == nil {
			return
		}
		price := exchange.Dec(msg.Get("price"))
		amount := exchange.Dec(msg.Get("quantity"))
		handler.OnTrade(models.Trade{
			ID:        msg.Get("event_id").String(),
			Symbol:    symbol,
			Side:      strings.ToLower(msg.Get("side").String()),
			Timestamp: msg.Get("timestamp").Int(),
			Price:     price,
			Amount:    amount,
			Cost:      exchange.MulDec(price, amount),
			Info:      msg,
		})
	}
}
