// Package gemini implements the Gemini spot adapter. Private calls carry
// the request payload base64-encoded in the X-GEMINI-PAYLOAD header, signed
// with HMAC-SHA384. Only account-keys are accepted; master-keys cannot sign
// orders.
package gemini

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"tradewire/exchange"
	"tradewire/logger"
	"tradewire/models"
)

const id = "gemini"

// Timeframes maps unified timeframe strings to venue candle intervals.
var Timeframes = map[string]string{
	"1m":  "1m",
	"5m":  "5m",
	"15m": "15m",
	"30m": "30m",
	"1h":  "1hr",
	"6h":  "6hr",
	"1d":  "1day",
}

var errorMap = exchange.ErrorMap{
	Exact: map[string]exchange.Kind{
		"AuctionNotOpen":            exchange.KindBadRequest,
		"ClientOrderIdTooLong":      exchange.KindBadRequest,
		"ClientOrderIdMustBeString": exchange.KindBadRequest,
		"ConflictingOptions":        exchange.KindBadRequest,
		"EndpointMismatch":          exchange.KindBadRequest,
		"EndpointNotFound":          exchange.KindBadRequest,
		"IneligibleTiming":          exchange.KindBadRequest,
		"InsufficientFunds":         exchange.KindInsufficientFunds,
		"InvalidJson":               exchange.KindBadRequest,
		"InvalidNonce":              exchange.KindInvalidNonce,
		"InvalidApiKey":             exchange.KindAuthentication,
		"InvalidOrderType":          exchange.KindInvalidOrder,
		"InvalidPrice":              exchange.KindInvalidOrder,
		"InvalidQuantity":           exchange.KindInvalidOrder,
		"InvalidSide":               exchange.KindInvalidOrder,
		"InvalidSignature":          exchange.KindAuthentication,
		"InvalidSymbol":             exchange.KindBadSymbol,
		"InvalidTimestampInPayload": exchange.KindBadRequest,
		"Maintenance":               exchange.KindOnMaintenance,
		"MarketNotOpen":             exchange.KindInvalidOrder,
		"MissingApikeyHeader":       exchange.KindAuthentication,
		"MissingOrderField":         exchange.KindInvalidOrder,
		"MissingRole":               exchange.KindAuthentication,
		"MissingPayloadHeader":      exchange.KindAuthentication,
		"MissingSignatureHeader":    exchange.KindAuthentication,
		"NoSSL":                     exchange.KindAuthentication,
		"OptionsMustBeArray":        exchange.KindBadRequest,
		"OrderNotFound":             exchange.KindOrderNotFound,
		"RateLimit":                 exchange.KindRateLimit,
		"System":                    exchange.KindExchange,
		"UnsupportedOption":         exchange.KindBadRequest,
	},
	Broad: []exchange.BroadRule{
		{Substring: "The Gemini Exchange is currently undergoing maintenance.", Kind: exchange.KindOnMaintenance},
		{Substring: "We are investigating technical issues with the Gemini Exchange.", Kind: exchange.KindNotAvailable},
	},
}

var orderTypes = map[string]string{
	"exchange limit":      models.OrderTypeLimit,
	"exchange stop limit": models.OrderTypeStopLimit,
	"market buy":          models.OrderTypeMarket,
	"market sell":         models.OrderTypeMarket,
}

var transactionStatuses = map[string]string{
	"Advanced": models.TransactionOK,
	"Complete": models.TransactionOK,
}

// Options tunes adapter construction.
type Options struct {
	BaseURL       string
	WSURL         string
	Timeout       time.Duration
	RatePerSecond float64
	// DetailSymbols lists venue market ids whose precision/limits are
	// fetched individually; the bare symbols list carries none.
	DetailSymbols []string
}

// Adapter is one Gemini session: credentials, market cache, nonce state.
type Adapter struct {
	creds   exchange.Credentials
	baseURL string
	wsURL   string
	details []string
	client  *exchange.Client
	markets exchange.MarketMap
	nonce   exchange.NonceSource
	log     *logger.Log
}

// New builds a Gemini adapter. Credentials may be empty for public-only use.
func New(creds exchange.Credentials, opts Options) *Adapter {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = "https://api.gemini.com"
	}
	wsURL := opts.WSURL
	if wsURL == "" {
		wsURL = "wss://api.gemini.com/v2/marketdata"
	}
	a := &Adapter{
		creds:   creds,
		baseURL: baseURL,
		wsURL:   wsURL,
		details: opts.DetailSymbols,
		log:     logger.GetLogger(),
	}
	a.client = exchange.NewClient(id, exchange.ClientOptions{
		Timeout:           opts.Timeout,
		RequestsPerSecond: opts.RatePerSecond,
	}, a.handleErrors)
	return a
}

// ID returns the adapter identifier.
func (a *Adapter) ID() string { return id }

// handleErrors classifies the venue error envelope:
//
//	{"result":"error","reason":"BadNonce","message":"Out-of-sequence nonce ..."}
//
// reason is tried against the exact table first, then message, then the
// broad substring rules.
func (a *Adapter) handleErrors(res *exchange.Response) error {
	if !res.JSON.IsObject() {
		return nil
	}
	if res.JSON.Get("result").String() != "error" {
		return nil
	}
	reason := res.JSON.Get("reason").String()
	message := res.JSON.Get("message").String()
	kind := errorMap.Classify(message, reason, message)
	if message == "" {
		message = reason
	}
	return exchange.NewError(kind, id, message)
}

func (a *Adapter) publicGet(ctx context.Context, path string, params map[string]string) (*exchange.Response, error) {
	url := a.baseURL + path
	if query := exchange.URLEncode(params); query != "" {
		url += "?" + query
	}
	return a.client.Do(ctx, exchange.Request{Method: http.MethodGet, URL: url})
}

// privatePost signs a private request. The JSON payload embeds the request
// path and a fresh nonce, travels base64-encoded in a header, and is signed
// with HMAC-SHA384; the body stays empty.
func (a *Adapter) privatePost(ctx context.Context, path string, params map[string]any) (*exchange.Response, error) {
	if a.creds.APIKey == "" || a.creds.Secret == "" {
		return nil, exchange.NewError(exchange.KindAuthentication, id, "apiKey and secret required for private endpoints")
	}
	if !strings.Contains(a.creds.APIKey, "account") {
		return nil, exchange.NewError(exchange.KindAuthentication, id, "signing requires an account-key, master-keys are not supported")
	}
	request := map[string]any{
		"request": path,
		"nonce":   a.nonce.Milliseconds(),
	}
	for k, v := range params {
		request[k] = v
	}
	payload, err := exchange.MarshalCanonical(request)
	if err != nil {
		return nil, exchange.WrapError(exchange.KindBadRequest, id, err)
	}
	encoded := base64.StdEncoding.EncodeToString(payload)
	signature := exchange.HMACSHA384Hex(encoded, a.creds.Secret)
	return a.client.Do(ctx, exchange.Request{
		Method: http.MethodPost,
		URL:    a.baseURL + path,
		Headers: map[string]string{
			"Content-Type":       "text/plain",
			"X-GEMINI-APIKEY":    a.creds.APIKey,
			"X-GEMINI-PAYLOAD":   encoded,
			"X-GEMINI-SIGNATURE": signature,
			"Cache-Control":      "no-cache",
		},
	})
}

// LoadMarkets populates the market cache once.
func (a *Adapter) LoadMarkets(ctx context.Context) error {
	return a.markets.Ensure(ctx, a.FetchMarkets)
}

// FetchMarkets lists venue symbols. /v1/symbols returns bare market ids;
// precision and limits are only available from the per-symbol details
// endpoint, fetched for the configured DetailSymbols.
func (a *Adapter) FetchMarkets(ctx context.Context) ([]models.Market, error) {
	res, err := a.publicGet(ctx, "/v1/symbols", nil)
	if err != nil {
		return nil, err
	}
	ids := res.JSON.Array()
	if len(ids) == 0 {
		return nil, exchange.NewError(exchange.KindNetwork, id, "empty symbols response")
	}
	markets := make(map[string]models.Market, len(ids))
	for _, raw := range ids {
		marketID := strings.ToLower(raw.String())
		markets[marketID] = parseMarket(gjson.Parse(fmt.Sprintf("{\"symbol\":%q}", marketID)))
	}
	for _, marketID := range a.details {
		detail, err := a.publicGet(ctx, "/v1/symbols/details/"+marketID, nil)
		if err != nil {
			a.log.WithComponent(id).WithError(err).WithFields(logger.Fields{"market": marketID}).Warn("symbol details fetch failed")
			continue
		}
		market := parseMarket(detail.JSON)
		markets[market.ID] = market
	}
	out := make([]models.Market, 0, len(markets))
	for _, m := range markets {
		out = append(out, m)
	}
	a.markets.Store(out)
	return out, nil
}

// parseMarket normalizes either a bare symbol or a details payload:
//
//	{"symbol":"BTCUSD","base_currency":"BTC","quote_currency":"USD",
//	 "tick_size":1e-8,"quote_increment":0.01,"min_order_size":"0.00001",
//	 "status":"open"}
func parseMarket(raw gjson.Result) models.Market {
	marketID := strings.ToLower(raw.Get("symbol").String())
	baseID := raw.Get("base_currency").String()
	quoteID := raw.Get("quote_currency").String()
	if baseID == "" {
		// No details: split the fixed-width id. Quotes are 3 chars except
		// usdt pairs. Not true for every market, same as the venue admits.
		quoteSize := 3
		if strings.Contains(marketID, "usdt") {
			quoteSize = 4
		}
		if len(marketID) > quoteSize {
			baseID = marketID[:len(marketID)-quoteSize]
			quoteID = marketID[len(marketID)-quoteSize:]
		}
	}
	base := strings.ToUpper(baseID)
	quote := strings.ToUpper(quoteID)
	status := raw.Get("status").String()
	return models.Market{
		ID:      marketID,
		Symbol:  base + "/" + quote,
		Base:    base,
		Quote:   quote,
		BaseID:  strings.ToLower(baseID),
		QuoteID: strings.ToLower(quoteID),
		Type:    "spot",
		Spot:    true,
		Active:  status == "" || status == "open",
		Precision: models.MarketPrecision{
			Amount: exchange.Dec(raw.Get("tick_size")),
			Price:  exchange.Dec(raw.Get("quote_increment")),
		},
		Limits: models.MarketLimits{
			Amount: models.MinMax{Min: exchange.Dec(raw.Get("min_order_size"))},
		},
		Info: raw,
	}
}

// FetchTicker reads /v1/pubticker/{symbol}:
//
//	{"bid":"9117.95","ask":"9117.96","last":"9115.23",
//	 "volume":{"BTC":"1615.46","USD":"14727307.57","timestamp":1594982700000}}
func (a *Adapter) FetchTicker(ctx context.Context, symbol string) (models.Ticker, error) {
	if err := a.LoadMarkets(ctx); err != nil {
		return models.Ticker{}, err
	}
	market, err := a.markets.BySymbol(id, symbol)
	if err != nil {
		return models.Ticker{}, err
	}
	res, err := a.publicGet(ctx, "/v1/pubticker/"+market.ID, nil)
	if err != nil {
		return models.Ticker{}, err
	}
	return a.parseTicker(res.JSON, market), nil
}

// FetchTickers reads the pricefeed, which reports only price and 24h change.
func (a *Adapter) FetchTickers(ctx context.Context, symbols []string) (map[string]models.Ticker, error) {
	if err := a.LoadMarkets(ctx); err != nil {
		return nil, err
	}
	res, err := a.publicGet(ctx, "/v1/pricefeed", nil)
	if err != nil {
		return nil, err
	}
	wanted := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		wanted[s] = true
	}
	out := make(map[string]models.Ticker)
	for _, raw := range res.JSON.Array() {
		marketID := strings.ToLower(raw.Get("pair").String())
		market, ok := a.markets.ByID(marketID)
		if !ok {
			continue
		}
		if len(symbols) > 0 && !wanted[market.Symbol] {
			continue
		}
		out[market.Symbol] = a.parseTicker(raw, market)
	}
	return out, nil
}

func (a *Adapter) parseTicker(raw gjson.Result, market models.Market) models.Ticker {
	volume := raw.Get("volume")
	last := exchange.DecField(raw, "last", "close", "price")
	return models.Ticker{
		Symbol:      market.Symbol,
		Timestamp:   volume.Get("timestamp").Int(),
		Bid:         exchange.Dec(raw.Get("bid")),
		Ask:         exchange.Dec(raw.Get("ask")),
		Last:        last,
		Close:       last,
		Open:        exchange.Dec(raw.Get("open")),
		High:        exchange.Dec(raw.Get("high")),
		Low:         exchange.Dec(raw.Get("low")),
		Percentage:  exchange.Dec(raw.Get("percentChange24h")),
		BaseVolume:  exchange.Dec(volume.Get(strings.ToUpper(market.BaseID))),
		QuoteVolume: exchange.Dec(volume.Get(strings.ToUpper(market.QuoteID))),
		Info:        raw,
	}
}

// FetchOrderBook reads /v1/book/{symbol}. Levels arrive as objects with
// price/amount strings; bids are already descending, asks ascending.
func (a *Adapter) FetchOrderBook(ctx context.Context, symbol string, limit int) (models.OrderBook, error) {
	if err := a.LoadMarkets(ctx); err != nil {
		return models.OrderBook{}, err
	}
	market, err := a.markets.BySymbol(id, symbol)
	if err != nil {
		return models.OrderBook{}, err
	}
	params := map[string]string{}
	if limit > 0 {
		params["limit_bids"] = strconv.Itoa(limit)
		params["limit_asks"] = strconv.Itoa(limit)
	}
	res, err := a.publicGet(ctx, "/v1/book/"+market.ID, params)
	if err != nil {
		return models.OrderBook{}, err
	}
	book := models.OrderBook{Symbol: market.Symbol, Info: res.JSON}
	for _, side := range []struct {
		field string
		dst   *[]models.BookLevel
	}{
		{"bids", &book.Bids},
		{"asks", &book.Asks},
	} {
		for _, level := range res.JSON.Get(side.field).Array() {
			price := exchange.Dec(level.Get("price"))
			amount := exchange.Dec(level.Get("amount"))
			if price == nil || amount == nil {
				continue
			}
			*side.dst = append(*side.dst, models.BookLevel{Price: *price, Amount: *amount})
		}
	}
	return book, nil
}

// FetchTrades reads /v1/trades/{symbol}.
func (a *Adapter) FetchTrades(ctx context.Context, symbol string, since int64, limit int) ([]models.Trade, error) {
	if err := a.LoadMarkets(ctx); err != nil {
		return nil, err
	}
	market, err := a.markets.BySymbol(id, symbol)
	if err != nil {
		return nil, err
	}
	params := map[string]string{}
	if since > 0 {
		params["since"] = strconv.FormatInt(since, 10)
	}
	if limit > 0 {
		params["limit_trades"] = strconv.Itoa(limit)
	}
	res, err := a.publicGet(ctx, "/v1/trades/"+market.ID, params)
	if err != nil {
		return nil, err
	}
	trades := make([]models.Trade, 0)
	for _, raw := range res.JSON.Array() {
		trades = append(trades, a.parseTrade(raw, market))
	}
	return trades, nil
}

// parseTrade handles both public trades and private fills:
//
//	{"timestampms":1601617445144,"tid":14122489752,"price":"0.46476",
//	 "amount":"28.407209","type":"buy","fee_currency":"USD","fee_amount":"0.01",
//	 "order_id":"106027397702","aggressor":true}
func (a *Adapter) parseTrade(raw gjson.Result, market models.Market) models.Trade {
	price := exchange.Dec(raw.Get("price"))
	amount := exchange.Dec(raw.Get("amount"))
	trade := models.Trade{
		ID:        raw.Get("tid").String(),
		OrderID:   raw.Get("order_id").String(),
		Symbol:    market.Symbol,
		Side:      strings.ToLower(raw.Get("type").String()),
		Timestamp: raw.Get("timestampms").Int(),
		Price:     price,
		Amount:    amount,
		Cost:      exchange.MulDec(price, amount),
		Info:      raw,
	}
	if raw.Get("aggressor").Exists() {
		if raw.Get("aggressor").Bool() {
			trade.TakerOrMaker = "taker"
		} else {
			trade.TakerOrMaker = "maker"
		}
	}
	if feeCost := exchange.Dec(raw.Get("fee_amount")); feeCost != nil {
		trade.Fee = &models.Fee{
			Currency: strings.ToUpper(raw.Get("fee_currency").String()),
			Cost:     feeCost,
		}
	}
	return trade
}

// FetchOHLCV reads /v2/candles/{symbol}/{timeframe}. The venue returns
// candles newest-first with no native range filter, so the window is
// trimmed client-side.
func (a *Adapter) FetchOHLCV(ctx context.Context, symbol, timeframe string, since int64, limit int) ([]models.OHLCV, error) {
	if err := a.LoadMarkets(ctx); err != nil {
		return nil, err
	}
	market, err := a.markets.BySymbol(id, symbol)
	if err != nil {
		return nil, err
	}
	tf, ok := Timeframes[timeframe]
	if !ok {
		return nil, exchange.NewError(exchange.KindBadRequest, id, "unsupported timeframe "+timeframe)
	}
	res, err := a.publicGet(ctx, "/v2/candles/"+market.ID+"/"+tf, nil)
	if err != nil {
		return nil, err
	}
	rows := res.JSON.Array()
	candles := make([]models.OHLCV, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- { // newest-first on the wire
		row := rows[i].Array()
		if len(row) < 6 {
			continue
		}
		candles = append(candles, models.OHLCV{
			Timestamp: row[0].Int(),
			Open:      exchange.Dec(row[1]),
			High:      exchange.Dec(row[2]),
			Low:       exchange.Dec(row[3]),
			Close:     exchange.Dec(row[4]),
			Volume:    exchange.Dec(row[5]),
		})
	}
	return exchange.FilterSinceLimit(candles, func(c models.OHLCV) int64 { return c.Timestamp }, since, limit), nil
}

// FetchBalance reads /v1/balances:
//
//	[{"currency":"BTC","amount":"1154.62034001","available":"1129.10517279"}]
func (a *Adapter) FetchBalance(ctx context.Context) (models.Balance, error) {
	res, err := a.privatePost(ctx, "/v1/balances", nil)
	if err != nil {
		return models.Balance{}, err
	}
	balance := models.Balance{Accounts: make(map[string]models.Account), Info: res.JSON}
	for _, raw := range res.JSON.Array() {
		code := strings.ToUpper(raw.Get("currency").String())
		free := exchange.Dec(raw.Get("available"))
		total := exchange.Dec(raw.Get("amount"))
		balance.Accounts[code] = models.Account{
			Free:  free,
			Total: total,
			Used:  exchange.SubDec(total, free),
		}
	}
	return balance, nil
}

// CreateOrder places an order. The venue accepts limit orders only; stop
// limit orders need a stop price and take no execution options.
func (a *Adapter) CreateOrder(ctx context.Context, symbol, orderType, side string, amount, price *decimal.Decimal, opts *exchange.OrderOptions) (models.Order, error) {
	if orderType != models.OrderTypeLimit && orderType != models.OrderTypeStopLimit {
		return models.Order{}, exchange.NewError(exchange.KindInvalidOrder, id, "only limit orders are supported")
	}
	if amount == nil {
		return models.Order{}, exchange.NewError(exchange.KindArgumentsRequired, id, "createOrder requires an amount")
	}
	if price == nil {
		return models.Order{}, exchange.NewError(exchange.KindArgumentsRequired, id, "createOrder requires a price for "+orderType+" orders")
	}
	if err := a.LoadMarkets(ctx); err != nil {
		return models.Order{}, err
	}
	market, err := a.markets.BySymbol(id, symbol)
	if err != nil {
		return models.Order{}, err
	}
	if opts == nil {
		opts = &exchange.OrderOptions{}
	}
	clientOrderID := opts.ClientOrderID
	if clientOrderID == "" {
		clientOrderID = strconv.FormatInt(time.Now().UnixMilli(), 10)
	}
	request := map[string]any{
		"client_order_id": clientOrderID,
		"symbol":          market.ID,
		"amount":          exchange.FormatAmount(*amount, market.Precision.Amount),
		"price":           price.String(),
		"side":            side,
		"type":            "exchange limit",
	}
	if orderType == models.OrderTypeStopLimit {
		if opts.StopPrice == nil {
			return models.Order{}, exchange.NewError(exchange.KindArgumentsRequired, id, "stop limit orders require a stop price")
		}
		request["stop_price"] = opts.StopPrice.String()
		request["type"] = "exchange stop limit"
	} else {
		// Stop-limit orders take no execution options.
		switch opts.TimeInForce {
		case models.TimeInForceIOC:
			request["options"] = []string{"immediate-or-cancel"}
		case models.TimeInForceFOK:
			request["options"] = []string{"fill-or-kill"}
		case models.TimeInForcePO:
			request["options"] = []string{"maker-or-cancel"}
		}
		if opts.PostOnly {
			request["options"] = []string{"maker-or-cancel"}
		}
	}
	for k, v := range opts.Params {
		request[k] = v
	}
	res, err := a.privatePost(ctx, "/v1/order/new", request)
	if err != nil {
		return models.Order{}, err
	}
	return a.parseOrder(res.JSON), nil
}

// CancelOrder cancels by venue order id and returns the final order state.
func (a *Adapter) CancelOrder(ctx context.Context, orderID, symbol string) (models.Order, error) {
	res, err := a.privatePost(ctx, "/v1/order/cancel", map[string]any{"order_id": orderID})
	if err != nil {
		return models.Order{}, err
	}
	return a.parseOrder(res.JSON), nil
}

// FetchOrder reads one order's status.
func (a *Adapter) FetchOrder(ctx context.Context, orderID, symbol string) (models.Order, error) {
	res, err := a.privatePost(ctx, "/v1/order/status", map[string]any{"order_id": orderID})
	if err != nil {
		return models.Order{}, err
	}
	return a.parseOrder(res.JSON), nil
}

// FetchOpenOrders lists live orders, optionally filtered to one symbol.
func (a *Adapter) FetchOpenOrders(ctx context.Context, symbol string, since int64, limit int) ([]models.Order, error) {
	res, err := a.privatePost(ctx, "/v1/orders", nil)
	if err != nil {
		return nil, err
	}
	orders := make([]models.Order, 0)
	for _, raw := range res.JSON.Array() {
		order := a.parseOrder(raw)
		if symbol != "" && order.Symbol != symbol {
			continue
		}
		orders = append(orders, order)
	}
	return exchange.FilterSinceLimit(orders, func(o models.Order) int64 { return o.Timestamp }, since, limit), nil
}

// FetchMyTrades lists private fills for one symbol.
func (a *Adapter) FetchMyTrades(ctx context.Context, symbol string, since int64, limit int) ([]models.Trade, error) {
	if symbol == "" {
		return nil, exchange.NewError(exchange.KindArgumentsRequired, id, "fetchMyTrades requires a symbol")
	}
	if err := a.LoadMarkets(ctx); err != nil {
		return nil, err
	}
	market, err := a.markets.BySymbol(id, symbol)
	if err != nil {
		return nil, err
	}
	request := map[string]any{"symbol": market.ID}
	if limit > 0 {
		request["limit_trades"] = limit
	}
	if since > 0 {
		request["timestamp"] = since / 1000
	}
	res, err := a.privatePost(ctx, "/v1/mytrades", request)
	if err != nil {
		return nil, err
	}
	trades := make([]models.Trade, 0)
	raws := res.JSON.Array()
	for i := len(raws) - 1; i >= 0; i-- { // newest-first on the wire
		trades = append(trades, a.parseTrade(raws[i], market))
	}
	return exchange.FilterSinceLimit(trades, func(t models.Trade) int64 { return t.Timestamp }, since, limit), nil
}

// parseOrder normalizes the order payload shared by order/new, order/cancel,
// order/status and orders. Status is derived from the is_live/is_cancelled
// pair; the options array carries the time-in-force.
func (a *Adapter) parseOrder(raw gjson.Result) models.Order {
	status := models.OrderStatusClosed
	if raw.Get("is_live").Bool() {
		status = models.OrderStatusOpen
	}
	if raw.Get("is_cancelled").Bool() {
		status = models.OrderStatusCanceled
	}
	rawType := raw.Get("type").String()
	orderType, ok := orderTypes[rawType]
	if !ok {
		orderType = rawType
	}
	timeInForce := models.TimeInForceGTC
	postOnly := false
	switch raw.Get("options.0").String() {
	case "immediate-or-cancel":
		timeInForce = models.TimeInForceIOC
	case "fill-or-kill":
		timeInForce = models.TimeInForceFOK
	case "maker-or-cancel":
		timeInForce = models.TimeInForcePO
		postOnly = true
	}
	amount := exchange.Dec(raw.Get("original_amount"))
	filled := exchange.Dec(raw.Get("executed_amount"))
	return models.Order{
		ID:            raw.Get("order_id").String(),
		ClientOrderID: raw.Get("client_order_id").String(),
		Symbol:        a.markets.SymbolForID(raw.Get("symbol").String()),
		Type:          orderType,
		Side:          strings.ToLower(raw.Get("side").String()),
		Status:        status,
		TimeInForce:   timeInForce,
		PostOnly:      postOnly,
		Timestamp:     raw.Get("timestampms").Int(),
		Price:         exchange.Dec(raw.Get("price")),
		StopPrice:     exchange.Dec(raw.Get("stop_price")),
		Amount:        amount,
		Filled:        filled,
		Remaining:     exchange.Dec(raw.Get("remaining_amount")),
		Average:       exchange.Dec(raw.Get("avg_execution_price")),
		Info:          raw,
	}
}

// FetchDeposits lists incoming transfers.
func (a *Adapter) FetchDeposits(ctx context.Context, code string, since int64, limit int) ([]models.Transaction, error) {
	return a.fetchTransfers(ctx, code, since, limit, models.TransactionDeposit)
}

// FetchWithdrawals lists outgoing transfers.
func (a *Adapter) FetchWithdrawals(ctx context.Context, code string, since int64, limit int) ([]models.Transaction, error) {
	return a.fetchTransfers(ctx, code, since, limit, models.TransactionWithdrawal)
}

func (a *Adapter) fetchTransfers(ctx context.Context, code string, since int64, limit int, direction string) ([]models.Transaction, error) {
	request := map[string]any{}
	if limit > 0 {
		request["limit_transfers"] = limit
	}
	if since > 0 {
		request["timestamp"] = since
	}
	res, err := a.privatePost(ctx, "/v1/transfers", request)
	if err != nil {
		return nil, err
	}
	out := make([]models.Transaction, 0)
	for _, raw := range res.JSON.Array() {
		tx := parseTransaction(raw)
		if tx.Type != direction {
			continue
		}
		if code != "" && tx.Currency != strings.ToUpper(code) {
			continue
		}
		out = append(out, tx)
	}
	return exchange.FilterSinceLimit(out, func(t models.Transaction) int64 { return t.Timestamp }, since, limit), nil
}

// parseTransaction normalizes a transfer row. A present status field means
// the transfer completed; the two observed values both map to ok.
func parseTransaction(raw gjson.Result) models.Transaction {
	statusRaw := raw.Get("status").String()
	status, ok := transactionStatuses[statusRaw]
	if !ok {
		status = statusRaw
	}
	txType := strings.ToLower(raw.Get("type").String())
	if txType == "withdraw" {
		txType = models.TransactionWithdrawal
	}
	tx := models.Transaction{
		ID:        exchange.StrField(raw, "eid", "withdrawalId"),
		TxID:      raw.Get("txHash").String(),
		Type:      txType,
		Currency:  strings.ToUpper(raw.Get("currency").String()),
		Address:   exchange.StrField(raw, "destination", "address"),
		Status:    status,
		Timestamp: raw.Get("timestampms").Int(),
		Amount:    exchange.Dec(raw.Get("amount")),
		Info:      raw,
	}
	if feeCost := exchange.Dec(raw.Get("feeAmount")); feeCost != nil {
		tx.Fee = &models.Fee{Currency: tx.Currency, Cost: feeCost}
	}
	return tx
}

// Withdraw requests a withdrawal to a whitelisted address.
func (a *Adapter) Withdraw(ctx context.Context, code string, amount decimal.Decimal, address, tag string) (models.Transaction, error) {
	if address == "" {
		return models.Transaction{}, exchange.NewError(exchange.KindInvalidAddress, id, "withdraw requires an address")
	}
	request := map[string]any{
		"currency": strings.ToLower(code),
		"amount":   amount.String(),
		"address":  address,
	}
	res, err := a.privatePost(ctx, "/v1/withdraw/"+strings.ToLower(code), request)
	if err != nil {
		return models.Transaction{}, err
	}
	tx := parseTransaction(res.JSON)
	tx.Type = models.TransactionWithdrawal
	tx.Currency = strings.ToUpper(code)
	return tx, nil
}

// FetchDepositAddress returns the funding address for a currency on the
// given network. The venue indexes addresses by chain name, so the network
// parameter is required.
func (a *Adapter) FetchDepositAddress(ctx context.Context, code, network string) (models.DepositAddress, error) {
	networkID, ok := Networks[network]
	if !ok {
		return models.DepositAddress{}, exchange.NewError(exchange.KindArgumentsRequired, id, "fetchDepositAddress requires a known network parameter")
	}
	res, err := a.privatePost(ctx, "/v1/addresses/"+networkID, nil)
	if err != nil {
		return models.DepositAddress{}, err
	}
	addresses := res.JSON.Array()
	if len(addresses) == 0 {
		return models.DepositAddress{}, exchange.NewError(exchange.KindInvalidAddress, id, "no deposit address for "+code+" on "+network)
	}
	return models.DepositAddress{
		Currency: strings.ToUpper(code),
		Network:  network,
		Address:  addresses[0].Get("address").String(),
		Info:     addresses[0],
	}, nil
}

// Networks maps unified network codes to venue chain names.
var Networks = map[string]string{
	"BTC":   "bitcoin",
	"ERC20": "ethereum",
	"BCH":   "bitcoincash",
	"LTC":   "litecoin",
	"ZEC":   "zcash",
	"FIL":   "filecoin",
	"SOL":   "solana",
}

// FetchTradingFees reads the api maker/taker rates from notionalvolume.
func (a *Adapter) FetchTradingFees(ctx context.Context) (maker, taker *decimal.Decimal, err error) {
	res, err := a.privatePost(ctx, "/v1/notionalvolume", nil)
	if err != nil {
		return nil, nil, err
	}
	makerBps := exchange.Dec(res.JSON.Get("api_maker_fee_bps"))
	takerBps := exchange.Dec(res.JSON.Get("api_taker_fee_bps"))
	scale := decimal.NewFromInt(10000)
	if makerBps != nil {
		m := makerBps.Div(scale)
		maker = &m
	}
	if takerBps != nil {
		t := takerBps.Div(scale)
		taker = &t
	}
	return maker, taker, nil
}
