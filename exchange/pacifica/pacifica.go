// Package pacifica implements the Pacifica perpetuals adapter. The venue is
// a Solana orderbook DEX: every mutating request is an operation payload
// signed with the wallet's ed25519 key over recursively key-sorted JSON, with
// the signature carried base58-encoded in the request body. Reads only need
// the wallet address; an optional api key raises rate limits.
package pacifica

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"tradewire/exchange"
	"tradewire/logger"
	"tradewire/models"
)

const (
	id     = "pacifica"
	settle = "USDC"
)

// Operation types named in signature headers.
const (
	opCreateOrder       = "create_order"
	opCreateMarketOrder = "create_market_order"
	opCreateStopOrder   = "create_stop_order"
	opCancelOrder       = "cancel_order"
	opCancelStopOrder   = "cancel_stop_order"
	opCancelAllOrders   = "cancel_all_orders"
	opWithdraw          = "withdraw"
	opTransferFunds     = "transfer_funds"
)

// Timeframes lists the kline intervals the venue accepts verbatim.
var Timeframes = map[string]string{
	"1m": "1m", "3m": "3m", "5m": "5m", "15m": "15m", "30m": "30m",
	"1h": "1h", "2h": "2h", "4h": "4h", "8h": "8h", "12h": "12h",
	"1d": "1d",
}

// The envelope's code field repeats the HTTP status; broad rules match the
// screaming-snake markers embedded in error strings.
var errorMap = exchange.ErrorMap{
	Exact: map[string]exchange.Kind{
		"400": exchange.KindBadRequest,
		"403": exchange.KindPermissionDenied,
		"404": exchange.KindBadRequest,
		"409": exchange.KindExchange,
		"422": exchange.KindExchange,
		"429": exchange.KindRateLimit,
		"500": exchange.KindExchange,
		"503": exchange.KindNotAvailable,
		"504": exchange.KindRequestTimeout,
	},
	Broad: []exchange.BroadRule{
		{Substring: "INVALID_TICK_LEVEL", Kind: exchange.KindInvalidOrder},
		{Substring: "INSUFFICIENT_BALANCE", Kind: exchange.KindInsufficientFunds},
		{Substring: "ORDER_NOT_FOUND", Kind: exchange.KindOrderNotFound},
		{Substring: "OVER_WITHDRAWAL", Kind: exchange.KindInsufficientFunds},
		{Substring: "POSITION_TPSL_LIMIT_EXCEEDED", Kind: exchange.KindInvalidOrder},
	},
}

var orderStatuses = map[string]string{
	"open":             models.OrderStatusOpen,
	"partially_filled": models.OrderStatusOpen,
	"filled":           models.OrderStatusClosed,
	"cancelled":        models.OrderStatusCanceled,
	"rejected":         models.OrderStatusFailed,
}

var orderTypes = map[string]string{
	"stop_limit":         models.OrderTypeLimit,
	"stop_market":        models.OrderTypeMarket,
	"take_profit_limit":  models.OrderTypeLimit,
	"stop_loss_limit":    models.OrderTypeLimit,
	"take_profit_market": models.OrderTypeMarket,
	"stop_loss_market":   models.OrderTypeMarket,
}

// Directional fill sides reported by the venue.
var tradeSides = map[string]string{
	"open_long":   models.SideBuy,
	"close_long":  models.SideSell,
	"open_short":  models.SideSell,
	"close_short": models.SideBuy,
}

var timeInForces = map[string]string{
	models.TimeInForceGTC: "GTC",
	models.TimeInForceIOC: "IOC",
	models.TimeInForcePO:  "ALO",
}

// Options tunes adapter construction.
type Options struct {
	BaseURL       string
	Timeout       time.Duration
	RatePerSecond float64
	// ExpiryWindow is the signed request time-to-live in milliseconds.
	ExpiryWindow int64
	// Slippage is the default market order slippage percentage.
	Slippage string
}

// Adapter is one Pacifica session bound to a wallet.
type Adapter struct {
	creds        exchange.Credentials
	baseURL      string
	expiryWindow int64
	slippage     string
	client       *exchange.Client
	markets      exchange.MarketMap
	nonce        exchange.NonceSource
	log          *logger.Log
}

// New builds a Pacifica adapter. WalletAddress and PrivateKey are required
// for anything account-scoped.
func New(creds exchange.Credentials, opts Options) *Adapter {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = "https://api.pacifica.fi"
	}
	expiryWindow := opts.ExpiryWindow
	if expiryWindow <= 0 {
		expiryWindow = 5000
	}
	slippage := opts.Slippage
	if slippage == "" {
		slippage = "0.5"
	}
	a := &Adapter{
		creds:        creds,
		baseURL:      baseURL,
		expiryWindow: expiryWindow,
		slippage:     slippage,
		log:          logger.GetLogger(),
	}
	a.client = exchange.NewClient(id, exchange.ClientOptions{
		Timeout:           opts.Timeout,
		RequestsPerSecond: opts.RatePerSecond,
	}, handleErrors)
	return a
}

// ID returns the adapter identifier.
func (a *Adapter) ID() string { return id }

// handleErrors classifies the {success, data, error, code} envelope. A
// present code means failure; broad error-string rules are tried before the
// HTTP-code table, matching how the venue nests causes inside messages.
func handleErrors(res *exchange.Response) error {
	if !res.JSON.IsObject() {
		return nil
	}
	code := res.JSON.Get("code")
	message := res.JSON.Get("error").String()
	if (!code.Exists() || code.Type == gjson.Null) && message == "" {
		return nil
	}
	if kind, ok := errorMap.MatchBroad(message); ok {
		return exchange.NewError(kind, id, message)
	}
	if kind, ok := errorMap.MatchExact(code.String()); ok {
		return exchange.NewError(kind, id, string(res.Body))
	}
	if kind, ok := errorMap.MatchExact(message); ok {
		return exchange.NewError(kind, id, message)
	}
	return exchange.NewError(exchange.KindExchange, id, string(res.Body))
}

func (a *Adapter) get(ctx context.Context, path string, params map[string]string) (*exchange.Response, error) {
	url := a.baseURL + "/api/v1" + path
	if query := exchange.URLEncode(params); query != "" {
		url += "?" + query
	}
	headers := map[string]string{"Content-Type": "application/json"}
	if a.creds.APIKey != "" {
		headers["PF-API-KEY"] = a.creds.APIKey
	}
	return a.client.Do(ctx, exchange.Request{Method: http.MethodGet, URL: url, Headers: headers})
}

// postAction signs and submits one operation. The signed message is the
// signature header joined with the payload under a data key, key-sorted
// recursively, compact JSON. The request body flattens account, signature
// and the header fields alongside the payload.
func (a *Adapter) postAction(ctx context.Context, path, opType string, payload map[string]any) (*exchange.Response, error) {
	if a.creds.WalletAddress == "" || a.creds.PrivateKey == "" {
		return nil, exchange.NewError(exchange.KindAuthentication, id, "walletAddress and privateKey required for "+opType)
	}
	timestamp := a.nonce.Milliseconds()
	message, err := exchange.MarshalCanonical(map[string]any{
		"timestamp":     timestamp,
		"expiry_window": a.expiryWindow,
		"type":          opType,
		"data":          payload,
	})
	if err != nil {
		return nil, exchange.WrapError(exchange.KindBadRequest, id, err)
	}
	signature, err := exchange.SignEd25519Base58(message, a.creds.PrivateKey)
	if err != nil {
		return nil, exchange.WrapError(exchange.KindAuthentication, id, err)
	}
	body := map[string]any{
		"account":       a.creds.WalletAddress,
		"signature":     signature,
		"timestamp":     timestamp,
		"expiry_window": a.expiryWindow,
	}
	for k, v := range payload {
		body[k] = v
	}
	encoded, err := exchange.MarshalCanonical(body)
	if err != nil {
		return nil, exchange.WrapError(exchange.KindBadRequest, id, err)
	}
	headers := map[string]string{"Content-Type": "application/json"}
	if a.creds.APIKey != "" {
		headers["PF-API-KEY"] = a.creds.APIKey
	}
	return a.client.Do(ctx, exchange.Request{
		Method:  http.MethodPost,
		URL:     a.baseURL + "/api/v1" + path,
		Headers: headers,
		Body:    string(encoded),
	})
}

func (a *Adapter) account() (string, error) {
	if a.creds.WalletAddress == "" {
		return "", exchange.NewError(exchange.KindAuthentication, id, "walletAddress required")
	}
	return a.creds.WalletAddress, nil
}

// LoadMarkets populates the market cache once.
func (a *Adapter) LoadMarkets(ctx context.Context) error {
	return a.markets.Ensure(ctx, a.FetchMarkets)
}

// FetchMarkets reads /info. Every listed market is a USDC-settled linear
// perpetual; the venue names markets by bare base symbol.
func (a *Adapter) FetchMarkets(ctx context.Context) ([]models.Market, error) {
	res, err := a.get(ctx, "/info", nil)
	if err != nil {
		return nil, err
	}
	rows := res.JSON.Get("data").Array()
	markets := make([]models.Market, 0, len(rows))
	for _, raw := range rows {
		markets = append(markets, parseMarket(raw))
	}
	a.markets.Store(markets)
	return markets, nil
}

func parseMarket(raw gjson.Result) models.Market {
	base := strings.ToUpper(raw.Get("symbol").String())
	taker := decimal.RequireFromString("0.0004")
	maker := decimal.RequireFromString("0.00015")
	one := decimal.NewFromInt(1)
	return models.Market{
		ID:           raw.Get("symbol").String(),
		Symbol:       base + "/" + settle + ":" + settle,
		Base:         base,
		Quote:        settle,
		BaseID:       raw.Get("symbol").String(),
		QuoteID:      settle,
		Settle:       settle,
		Type:         "swap",
		Swap:         true,
		Contract:     true,
		Linear:       true,
		Active:       true,
		Taker:        &taker,
		Maker:        &maker,
		ContractSize: &one,
		Precision: models.MarketPrecision{
			Amount: exchange.Dec(raw.Get("lot_size")),
			Price:  exchange.Dec(raw.Get("tick_size")),
		},
		Limits: models.MarketLimits{
			Price: models.MinMax{
				Min: exchange.Dec(raw.Get("min_tick")),
				Max: exchange.Dec(raw.Get("max_tick")),
			},
			Cost: models.MinMax{
				Min: exchange.Dec(raw.Get("min_order_size")),
				Max: exchange.Dec(raw.Get("max_order_size")),
			},
		},
		Info: raw,
	}
}

// FetchTickers reads /info/prices. The venue publishes mark, mid and oracle
// prices; mid serves as the last price.
func (a *Adapter) FetchTickers(ctx context.Context, symbols []string) (map[string]models.Ticker, error) {
	if err := a.LoadMarkets(ctx); err != nil {
		return nil, err
	}
	res, err := a.get(ctx, "/info/prices", nil)
	if err != nil {
		return nil, err
	}
	wanted := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		wanted[s] = true
	}
	out := make(map[string]models.Ticker)
	for _, raw := range res.JSON.Get("data").Array() {
		symbol := a.markets.SymbolForID(raw.Get("symbol").String())
		if len(symbols) > 0 && !wanted[symbol] {
			continue
		}
		mid := exchange.Dec(raw.Get("mid"))
		out[symbol] = models.Ticker{
			Symbol:      symbol,
			Timestamp:   raw.Get("timestamp").Int(),
			Last:        mid,
			Close:       mid,
			QuoteVolume: exchange.Dec(raw.Get("volume_24h")),
			Info:        raw,
		}
	}
	return out, nil
}

// FetchTicker is served from the shared price feed.
func (a *Adapter) FetchTicker(ctx context.Context, symbol string) (models.Ticker, error) {
	tickers, err := a.FetchTickers(ctx, []string{symbol})
	if err != nil {
		return models.Ticker{}, err
	}
	ticker, ok := tickers[symbol]
	if !ok {
		return models.Ticker{}, exchange.NewError(exchange.KindBadSymbol, id, "no ticker for "+symbol)
	}
	return ticker, nil
}

// FetchOrderBook reads /book. The payload carries both sides in one l array,
// bids first, as objects with p and a fields.
func (a *Adapter) FetchOrderBook(ctx context.Context, symbol string, limit int) (models.OrderBook, error) {
	if err := a.LoadMarkets(ctx); err != nil {
		return models.OrderBook{}, err
	}
	market, err := a.markets.BySymbol(id, symbol)
	if err != nil {
		return models.OrderBook{}, err
	}
	res, err := a.get(ctx, "/book", map[string]string{
		"symbol":    market.ID,
		"agg_level": "1",
	})
	if err != nil {
		return models.OrderBook{}, err
	}
	data := res.JSON.Get("data")
	book := models.OrderBook{
		Symbol:    market.Symbol,
		Timestamp: data.Get("t").Int(),
		Info:      data,
	}
	levels := data.Get("l").Array()
	if len(levels) > 0 {
		book.Bids = parseBookSide(levels[0], limit)
	}
	if len(levels) > 1 {
		book.Asks = parseBookSide(levels[1], limit)
	}
	return book, nil
}

func parseBookSide(rows gjson.Result, limit int) []models.BookLevel {
	var side []models.BookLevel
	for _, row := range rows.Array() {
		if limit > 0 && len(side) >= limit {
			break
		}
		price := exchange.Dec(row.Get("p"))
		amount := exchange.Dec(row.Get("a"))
		if price == nil || amount == nil {
			continue
		}
		side = append(side, models.BookLevel{Price: *price, Amount: *amount})
	}
	return side
}

// FetchTrades reads /trades, the venue's recent fills feed.
func (a *Adapter) FetchTrades(ctx context.Context, symbol string, since int64, limit int) ([]models.Trade, error) {
	if err := a.LoadMarkets(ctx); err != nil {
		return nil, err
	}
	market, err := a.markets.BySymbol(id, symbol)
	if err != nil {
		return nil, err
	}
	res, err := a.get(ctx, "/trades", map[string]string{"symbol": market.ID})
	if err != nil {
		return nil, err
	}
	trades := make([]models.Trade, 0)
	for _, raw := range res.JSON.Get("data").Array() {
		trades = append(trades, parseTrade(raw, market.Symbol))
	}
	return exchange.FilterSinceLimit(trades, func(t models.Trade) int64 { return t.Timestamp }, since, limit), nil
}

// FetchMyTrades reads /trades/history for the wallet.
func (a *Adapter) FetchMyTrades(ctx context.Context, symbol string, since int64, limit int) ([]models.Trade, error) {
	account, err := a.account()
	if err != nil {
		return nil, err
	}
	if err := a.LoadMarkets(ctx); err != nil {
		return nil, err
	}
	params := map[string]string{"account": account}
	symbolFilter := ""
	if symbol != "" {
		market, err := a.markets.BySymbol(id, symbol)
		if err != nil {
			return nil, err
		}
		params["symbol"] = market.ID
		symbolFilter = market.Symbol
	}
	if since > 0 {
		params["start_time"] = strconv.FormatInt(since, 10)
	}
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}
	res, err := a.get(ctx, "/trades/history", params)
	if err != nil {
		return nil, err
	}
	trades := make([]models.Trade, 0)
	for _, raw := range res.JSON.Get("data").Array() {
		symbol := symbolFilter
		if symbol == "" {
			symbol = a.markets.SymbolForID(raw.Get("symbol").String())
		}
		trades = append(trades, parseTrade(raw, symbol))
	}
	return exchange.FilterSinceLimit(trades, func(t models.Trade) int64 { return t.Timestamp }, since, limit), nil
}

// parseTrade normalizes a fill. Sides arrive as position transitions
// (open_long, close_short) and fold down to buy/sell.
func parseTrade(raw gjson.Result, symbol string) models.Trade {
	price := exchange.Dec(raw.Get("price"))
	amount := exchange.Dec(raw.Get("amount"))
	side := raw.Get("side").String()
	if mapped, ok := tradeSides[side]; ok {
		side = mapped
	}
	trade := models.Trade{
		ID:        raw.Get("history_id").String(),
		OrderID:   raw.Get("order_id").String(),
		Symbol:    symbol,
		Side:      side,
		Timestamp: raw.Get("created_at").Int(),
		Price:     price,
		Amount:    amount,
		Cost:      exchange.MulDec(price, amount),
		Info:      raw,
	}
	if eventType := raw.Get("event_type").String(); eventType != "" {
		if eventType == "fulfill_maker" {
			trade.TakerOrMaker = "maker"
		} else {
			trade.TakerOrMaker = "taker"
		}
	}
	if feeCost := exchange.Dec(raw.Get("fee")); feeCost != nil {
		trade.Fee = &models.Fee{Currency: settle, Cost: feeCost}
	}
	return trade
}

// FetchOHLCV reads /kline. The request window derives from since and limit:
// with only a limit the window ends now, with only since it runs from since
// to now, with both it spans limit intervals from since.
func (a *Adapter) FetchOHLCV(ctx context.Context, symbol, timeframe string, since int64, limit int) ([]models.OHLCV, error) {
	if err := a.LoadMarkets(ctx); err != nil {
		return nil, err
	}
	market, err := a.markets.BySymbol(id, symbol)
	if err != nil {
		return nil, err
	}
	interval, ok := Timeframes[timeframe]
	if !ok {
		return nil, exchange.NewError(exchange.KindBadRequest, id, "unsupported timeframe "+timeframe)
	}
	duration, err := exchange.ParseTimeframe(timeframe)
	if err != nil {
		return nil, exchange.WrapError(exchange.KindBadRequest, id, err)
	}
	window := exchange.WindowFor(time.Now(), duration, since, limit)
	res, err := a.get(ctx, "/kline", map[string]string{
		"symbol":     market.ID,
		"interval":   interval,
		"start_time": strconv.FormatInt(window.Start, 10),
		"end_time":   strconv.FormatInt(window.End, 10),
	})
	if err != nil {
		return nil, err
	}
	rows := res.JSON.Get("data").Array()
	candles := make([]models.OHLCV, 0, len(rows))
	for _, raw := range rows {
		candles = append(candles, models.OHLCV{
			Timestamp: raw.Get("t").Int(),
			Open:      exchange.Dec(raw.Get("o")),
			High:      exchange.Dec(raw.Get("h")),
			Low:       exchange.Dec(raw.Get("l")),
			Close:     exchange.Dec(raw.Get("c")),
			Volume:    exchange.Dec(raw.Get("v")),
		})
	}
	sort.Slice(candles, func(i, j int) bool { return candles[i].Timestamp < candles[j].Timestamp })
	return exchange.FilterSinceLimit(candles, func(c models.OHLCV) int64 { return c.Timestamp }, since, limit), nil
}

// FetchBalance reads /account. The venue settles everything in USDC;
// account equity, used margin and spendable balance map onto the triple.
func (a *Adapter) FetchBalance(ctx context.Context) (models.Balance, error) {
	account, err := a.account()
	if err != nil {
		return models.Balance{}, err
	}
	res, err := a.get(ctx, "/account", map[string]string{"account": account})
	if err != nil {
		return models.Balance{}, err
	}
	data := res.JSON.Get("data")
	return models.Balance{
		Accounts: map[string]models.Account{
			settle: {
				Free:  exchange.Dec(data.Get("available_to_spend")),
				Used:  exchange.Dec(data.Get("total_margin_used")),
				Total: exchange.Dec(data.Get("account_equity")),
			},
		},
		Info: data,
	}, nil
}

// CreateOrder signs and submits an order. Limit orders take a tif; market
// orders take a slippage percentage instead of a price; a stop price routes
// to the stop order endpoint with the limit price nested in the payload.
func (a *Adapter) CreateOrder(ctx context.Context, symbol, orderType, side string, amount, price *decimal.Decimal, opts *exchange.OrderOptions) (models.Order, error) {
	if amount == nil {
		return models.Order{}, exchange.NewError(exchange.KindArgumentsRequired, id, "createOrder requires an amount")
	}
	if orderType == models.OrderTypeLimit && price == nil {
		return models.Order{}, exchange.NewError(exchange.KindArgumentsRequired, id, "createOrder requires a price for limit orders")
	}
	if err := a.LoadMarkets(ctx); err != nil {
		return models.Order{}, err
	}
	market, err := a.markets.BySymbol(id, symbol)
	if err != nil {
		return models.Order{}, err
	}
	venueSide := "bid"
	if side == models.SideSell {
		venueSide = "ask"
	}
	if opts == nil {
		opts = &exchange.OrderOptions{}
	}
	payload := map[string]any{
		"symbol": market.ID,
		"side":   venueSide,
	}
	amountStr := exchange.FormatAmount(*amount, market.Precision.Amount)
	var path, opType string
	switch {
	case opts.StopPrice != nil:
		path, opType = "/orders/stop/create", opCreateStopOrder
		payload["reduce_only"] = false
		stop := map[string]any{
			"amount":     amountStr,
			"stop_price": opts.StopPrice.String(),
		}
		if price != nil {
			stop["limit_price"] = price.String()
		}
		if opts.ClientOrderID != "" {
			stop["client_order_id"] = opts.ClientOrderID
		}
		payload["stop_order"] = stop
	case orderType == models.OrderTypeMarket:
		path, opType = "/orders/create_market", opCreateMarketOrder
		payload["amount"] = amountStr
		payload["reduce_only"] = false
		payload["slippage_percent"] = a.slippage
	default:
		path, opType = "/orders/create", opCreateOrder
		payload["amount"] = amountStr
		payload["price"] = price.String()
		payload["reduce_only"] = false
		tif := timeInForces[opts.TimeInForce]
		if opts.PostOnly {
			tif = "ALO"
		}
		if tif == "" {
			tif = "GTC"
		}
		payload["tif"] = tif
	}
	if opts.ClientOrderID != "" && opType != opCreateStopOrder {
		payload["client_order_id"] = opts.ClientOrderID
	}
	for k, v := range opts.Params {
		payload[k] = v
	}
	res, err := a.postAction(ctx, path, opType, payload)
	if err != nil {
		return models.Order{}, err
	}
	// Creation returns only an order id; state is whatever the venue
	// accepted, so the order starts open.
	return models.Order{
		ID:            res.JSON.Get("data.order_id").String(),
		ClientOrderID: opts.ClientOrderID,
		Symbol:        market.Symbol,
		Type:          orderType,
		Side:          side,
		Status:        models.OrderStatusOpen,
		Price:         price,
		Amount:        amount,
		Info:          res.JSON,
	}, nil
}

// CancelOrder signs a cancel operation for one order id.
func (a *Adapter) CancelOrder(ctx context.Context, orderID, symbol string) (models.Order, error) {
	if symbol == "" {
		return models.Order{}, exchange.NewError(exchange.KindArgumentsRequired, id, "cancelOrder requires a symbol")
	}
	if err := a.LoadMarkets(ctx); err != nil {
		return models.Order{}, err
	}
	market, err := a.markets.BySymbol(id, symbol)
	if err != nil {
		return models.Order{}, err
	}
	orderIDNum, err := strconv.ParseInt(orderID, 10, 64)
	if err != nil {
		return models.Order{}, exchange.NewError(exchange.KindBadRequest, id, "order id must be numeric")
	}
	res, err := a.postAction(ctx, "/orders/cancel", opCancelOrder, map[string]any{
		"symbol":   market.ID,
		"order_id": orderIDNum,
	})
	if err != nil {
		return models.Order{}, err
	}
	return models.Order{
		ID:     orderID,
		Symbol: market.Symbol,
		Status: models.OrderStatusCanceled,
		Info:   res.JSON,
	}, nil
}

// CancelAllOrders signs a venue-wide cancel for one market.
func (a *Adapter) CancelAllOrders(ctx context.Context, symbol string) error {
	if err := a.LoadMarkets(ctx); err != nil {
		return err
	}
	payload := map[string]any{"all_symbols": true, "exclude_reduce_only": false}
	if symbol != "" {
		market, err := a.markets.BySymbol(id, symbol)
		if err != nil {
			return err
		}
		payload["all_symbols"] = false
		payload["symbol"] = market.ID
	}
	_, err := a.postAction(ctx, "/orders/cancel_all", opCancelAllOrders, payload)
	return err
}

// FetchOpenOrders reads /orders for the wallet.
func (a *Adapter) FetchOpenOrders(ctx context.Context, symbol string, since int64, limit int) ([]models.Order, error) {
	account, err := a.account()
	if err != nil {
		return nil, err
	}
	if err := a.LoadMarkets(ctx); err != nil {
		return nil, err
	}
	res, err := a.get(ctx, "/orders", map[string]string{"account": account})
	if err != nil {
		return nil, err
	}
	orders := make([]models.Order, 0)
	for _, raw := range res.JSON.Get("data").Array() {
		order := a.parseOrder(raw)
		if symbol != "" && order.Symbol != symbol {
			continue
		}
		orders = append(orders, order)
	}
	return exchange.FilterSinceLimit(orders, func(o models.Order) int64 { return o.Timestamp }, since, limit), nil
}

// FetchClosedOrders reads /orders/history and keeps the closed ones.
func (a *Adapter) FetchClosedOrders(ctx context.Context, symbol string, since int64, limit int) ([]models.Order, error) {
	account, err := a.account()
	if err != nil {
		return nil, err
	}
	if err := a.LoadMarkets(ctx); err != nil {
		return nil, err
	}
	res, err := a.get(ctx, "/orders/history", map[string]string{"account": account})
	if err != nil {
		return nil, err
	}
	orders := make([]models.Order, 0)
	for _, raw := range res.JSON.Get("data").Array() {
		order := a.parseOrder(raw)
		if order.Status != models.OrderStatusClosed {
			continue
		}
		if symbol != "" && order.Symbol != symbol {
			continue
		}
		orders = append(orders, order)
	}
	return exchange.FilterSinceLimit(orders, func(o models.Order) int64 { return o.Timestamp }, since, limit), nil
}

// FetchOrder reads /orders/history_by_id, which returns every lifecycle
// event for the order; the newest event is the current state.
func (a *Adapter) FetchOrder(ctx context.Context, orderID, symbol string) (models.Order, error) {
	if err := a.LoadMarkets(ctx); err != nil {
		return models.Order{}, err
	}
	res, err := a.get(ctx, "/orders/history_by_id", map[string]string{"order_id": orderID})
	if err != nil {
		return models.Order{}, err
	}
	events := res.JSON.Get("data").Array()
	if len(events) == 0 {
		return models.Order{}, exchange.NewError(exchange.KindOrderNotFound, id, "no history for order "+orderID)
	}
	last := events[0]
	for _, event := range events[1:] {
		if event.Get("created_at").Int() > last.Get("created_at").Int() {
			last = event
		}
	}
	return a.parseOrder(last), nil
}

// parseOrder normalizes open-order, history and by-id rows.
func (a *Adapter) parseOrder(raw gjson.Result) models.Order {
	statusRaw := raw.Get("order_status").String()
	status, ok := orderStatuses[statusRaw]
	if !ok {
		status = statusRaw
	}
	side := models.SideSell
	if raw.Get("side").String() == "bid" {
		side = models.SideBuy
	}
	typeRaw := strings.ToLower(raw.Get("order_type").String())
	orderType, ok := orderTypes[typeRaw]
	if !ok {
		orderType = typeRaw
	}
	amount := exchange.DecField(raw, "initial_amount", "amount")
	filled := exchange.Dec(raw.Get("filled_amount"))
	return models.Order{
		ID:            raw.Get("order_id").String(),
		ClientOrderID: raw.Get("client_order_id").String(),
		Symbol:        a.markets.SymbolForID(raw.Get("symbol").String()),
		Type:          orderType,
		Side:          side,
		Status:        status,
		Timestamp:     raw.Get("created_at").Int(),
		Price:         exchange.DecField(raw, "price", "initial_price"),
		StopPrice:     exchange.Dec(raw.Get("stop_price")),
		Amount:        amount,
		Filled:        filled,
		Remaining:     exchange.SubDec(amount, filled),
		Average:       exchange.Dec(raw.Get("average_filled_price")),
		Info:          raw,
	}
}

// FundingPayment is one funding settlement against an open position.
type FundingPayment struct {
	ID        string
	Symbol    string
	Currency  string
	Timestamp int64
	Amount    *decimal.Decimal
	Rate      *decimal.Decimal
	Info      gjson.Result
}

// FetchFundingHistory reads /funding/history for the wallet.
func (a *Adapter) FetchFundingHistory(ctx context.Context, symbol string, since int64, limit int) ([]FundingPayment, error) {
	account, err := a.account()
	if err != nil {
		return nil, err
	}
	if err := a.LoadMarkets(ctx); err != nil {
		return nil, err
	}
	params := map[string]string{"account": account}
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}
	res, err := a.get(ctx, "/funding/history", params)
	if err != nil {
		return nil, err
	}
	payments := make([]FundingPayment, 0)
	for _, raw := range res.JSON.Get("data").Array() {
		paymentSymbol := a.markets.SymbolForID(raw.Get("symbol").String())
		if symbol != "" && paymentSymbol != symbol {
			continue
		}
		payments = append(payments, FundingPayment{
			ID:        raw.Get("history_id").String(),
			Symbol:    paymentSymbol,
			Currency:  settle,
			Timestamp: raw.Get("created_at").Int(),
			Amount:    exchange.Dec(raw.Get("payout")),
			Rate:      exchange.Dec(raw.Get("rate")),
			Info:      raw,
		})
	}
	return exchange.FilterSinceLimit(payments, func(p FundingPayment) int64 { return p.Timestamp }, since, limit), nil
}

// Withdraw signs a USDC withdrawal back to the wallet.
func (a *Adapter) Withdraw(ctx context.Context, code string, amount decimal.Decimal, address, tag string) (models.Transaction, error) {
	if code != settle {
		return models.Transaction{}, exchange.NewError(exchange.KindBadRequest, id, "only "+settle+" withdrawals are supported")
	}
	res, err := a.postAction(ctx, "/account/withdraw", opWithdraw, map[string]any{
		"amount": amount.String(),
	})
	if err != nil {
		return models.Transaction{}, err
	}
	return models.Transaction{
		Type:     models.TransactionWithdrawal,
		Currency: settle,
		Status:   models.TransactionPending,
		Amount:   &amount,
		Info:     res.JSON,
	}, nil
}

// Transfer moves USDC between the main account and a subaccount.
func (a *Adapter) Transfer(ctx context.Context, code string, amount decimal.Decimal, fromAccount, toAccount string) (models.TransferEntry, error) {
	if code != settle {
		return models.TransferEntry{}, exchange.NewError(exchange.KindBadRequest, id, "only "+settle+" transfers are supported")
	}
	if toAccount == "" {
		return models.TransferEntry{}, exchange.NewError(exchange.KindArgumentsRequired, id, "transfer requires a destination account")
	}
	res, err := a.postAction(ctx, "/account/subaccount/transfer", opTransferFunds, map[string]any{
		"to_account": toAccount,
		"amount":     amount.String(),
	})
	if err != nil {
		return models.TransferEntry{}, err
	}
	status := "failed"
	if res.JSON.Get("data.success").Bool() {
		status = "ok"
	}
	return models.TransferEntry{
		Currency:    settle,
		Amount:      &amount,
		FromAccount: fromAccount,
		ToAccount:   toAccount,
		Status:      status,
		Info:        res.JSON,
	}, nil
}
