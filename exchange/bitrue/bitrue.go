// Package bitrue implements the Bitrue spot adapter. The REST surface is
// binance-shaped: signed requests carry an HMAC-SHA256 signature over the
// urlencoded query, appended as a query parameter, with the api key in the
// X-MBX-APIKEY header.
package bitrue

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

const id = "bitrue"

// Timeframes maps unified timeframe strings to kline scale values.
var Timeframes = map[string]string{
	"1m":  "1m",
	"5m":  "5m",
	"15m": "15m",
	"30m": "30m",
	"1h":  "1H",
	"2h":  "2H",
	"4h":  "4H",
	"1d":  "1D",
	"1w":  "1W",
}

// Error codes follow the binance numbering.
var errorMap = exchange.ErrorMap{
	Exact: map[string]exchange.Kind{
		"System is under maintenance.":                           exchange.KindOnMaintenance,
		"System abnormality":                                     exchange.KindExchange,
		"You are not authorized to execute this request.":        exchange.KindPermissionDenied,
		"API key does not exist":                                 exchange.KindAuthentication,
		"Order would trigger immediately.":                       exchange.KindOrderFillable,
		"Stop price would trigger immediately.":                  exchange.KindOrderFillable,
		"Order would immediately match and take.":                exchange.KindOrderFillable,
		"Account has insufficient balance for requested action.": exchange.KindInsufficientFunds,
		"Rest API trading is not enabled.":                       exchange.KindNotAvailable,
		"You don't have permission.":                             exchange.KindPermissionDenied,
		"Market is closed.":                                      exchange.KindNotAvailable,
		"Too many requests. Please try again later.":             exchange.KindDDoSProtection,
		"-1000":  exchange.KindNotAvailable,
		"-1001":  exchange.KindNotAvailable,
		"-1002":  exchange.KindAuthentication,
		"-1003":  exchange.KindRateLimit,
		"-1013":  exchange.KindInvalidOrder,
		"-1015":  exchange.KindRateLimit,
		"-1016":  exchange.KindNotAvailable,
		"-1020":  exchange.KindBadRequest,
		"-1021":  exchange.KindInvalidNonce,
		"-1022":  exchange.KindAuthentication,
		"-1100":  exchange.KindBadRequest,
		"-1101":  exchange.KindBadRequest,
		"-1102":  exchange.KindBadRequest,
		"-1103":  exchange.KindBadRequest,
		"-1104":  exchange.KindBadRequest,
		"-1105":  exchange.KindBadRequest,
		"-1106":  exchange.KindBadRequest,
		"-1111":  exchange.KindBadRequest,
		"-1112":  exchange.KindInvalidOrder,
		"-1114":  exchange.KindBadRequest,
		"-1115":  exchange.KindBadRequest,
		"-1116":  exchange.KindBadRequest,
		"-1117":  exchange.KindBadRequest,
		"-1118":  exchange.KindBadRequest,
		"-1119":  exchange.KindBadRequest,
		"-1120":  exchange.KindBadRequest,
		"-1121":  exchange.KindBadSymbol,
		"-1125":  exchange.KindAuthentication,
		"-1127":  exchange.KindBadRequest,
		"-1128":  exchange.KindBadRequest,
		"-1130":  exchange.KindBadRequest,
		"-1131":  exchange.KindBadRequest,
		"-2008":  exchange.KindAuthentication,
		"-2010":  exchange.KindExchange,
		"-2011":  exchange.KindOrderNotFound,
		"-2013":  exchange.KindOrderNotFound,
		"-2014":  exchange.KindAuthentication,
		"-2015":  exchange.KindAuthentication,
		"-2019":  exchange.KindInsufficientFunds,
		"-3005":  exchange.KindInsufficientFunds,
		"-3006":  exchange.KindInsufficientFunds,
		"-3008":  exchange.KindInsufficientFunds,
		"-3010":  exchange.KindExchange,
		"-3015":  exchange.KindExchange,
		"-3020":  exchange.KindInsufficientFunds,
		"-3022":  exchange.KindAccountSuspended,
		"-3041":  exchange.KindInsufficientFunds,
		"-4028":  exchange.KindBadRequest,
		"-4051":  exchange.KindInsufficientFunds,
		"-5013":  exchange.KindInsufficientFunds,
		"-11008": exchange.KindInsufficientFunds,
	},
	Broad: []exchange.BroadRule{
		{Substring: "has no operation privilege", Kind: exchange.KindPermissionDenied},
		{Substring: "MAX_POSITION", Kind: exchange.KindInvalidOrder},
		{Substring: "Price * QTY is zero or less", Kind: exchange.KindInvalidOrder},
		{Substring: "LOT_SIZE", Kind: exchange.KindInvalidOrder},
		{Substring: "PRICE_FILTER", Kind: exchange.KindInvalidOrder},
	},
}

var orderStatuses = map[string]string{
	"NEW":              models.OrderStatusOpen,
	"PARTIALLY_FILLED": models.OrderStatusOpen,
	"FILLED":           models.OrderStatusClosed,
	"CANCELED":         models.OrderStatusCanceled,
	"PENDING_CANCEL":   models.OrderStatusCanceling,
	"REJECTED":         models.OrderStatusRejected,
	"EXPIRED":          models.OrderStatusExpired,
}

// Transaction statuses are numeric and overload values per direction.
// Withdrawal status 5 is documented as a failure code but the venue
// reports completed withdrawals with it.
var depositStatuses = map[string]string{
	"0": models.TransactionPending,
	"1": models.TransactionOK,
}

var withdrawalStatuses = map[string]string{
	"0": models.TransactionPending,
	"5": models.TransactionOK,
	"6": models.TransactionCanceled,
}

// Options tunes adapter construction.
type Options struct {
	BaseURL       string
	KlineURL      string
	Timeout       time.Duration
	RatePerSecond float64
	RecvWindow    int64
}

// Adapter is one Bitrue session.
type Adapter struct {
	creds      exchange.Credentials
	baseURL    string
	klineURL   string
	recvWindow int64
	client     *exchange.Client
	markets    exchange.MarketMap
	nonce      exchange.NonceSource
	log        *logger.Log
}

// New builds a Bitrue adapter.
func New(creds exchange.Credentials, opts Options) *Adapter {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = "https://www.bitrue.com"
	}
	klineURL := opts.KlineURL
	if klineURL == "" {
		klineURL = baseURL + "/kline-api"
	}
	recvWindow := opts.RecvWindow
	if recvWindow <= 0 {
		recvWindow = 5000
	}
	a := &Adapter{
		creds:      creds,
		baseURL:    baseURL,
		klineURL:   klineURL,
		recvWindow: recvWindow,
		log:        logger.GetLogger(),
	}
	a.client = exchange.NewClient(id, exchange.ClientOptions{
		Timeout:           opts.Timeout,
		RequestsPerSecond: opts.RatePerSecond,
	}, handleErrors)
	return a
}

// ID returns the adapter identifier.
func (a *Adapter) ID() string { return id }

// handleErrors classifies {"code":-1013,"msg":"..."} envelopes. Status 418
// and 429 are bans regardless of body. code 0 and 200 are success; msg is
// matched before the numeric code, same order the venue documents.
func handleErrors(res *exchange.Response) error {
	if res.Status == http.StatusTeapot || res.Status == http.StatusTooManyRequests {
		return exchange.NewError(exchange.KindDDoSProtection, id, strconv.Itoa(res.Status)+" "+string(res.Body))
	}
	if !res.JSON.IsObject() {
		return nil
	}
	success := true
	if v := res.JSON.Get("success"); v.Exists() {
		success = v.Bool()
	}
	msg := res.JSON.Get("msg").String()
	if msg != "" && msg != "succ" && msg != "success" {
		if kind, ok := errorMap.MatchExact(msg); ok {
			return exchange.NewError(kind, id, msg)
		}
		if kind, ok := errorMap.MatchBroad(msg); ok {
			return exchange.NewError(kind, id, msg)
		}
	}
	if code := res.JSON.Get("code"); code.Exists() {
		c := code.String()
		if c != "0" && c != "200" {
			if kind, ok := errorMap.MatchExact(c); ok {
				return exchange.NewError(kind, id, string(res.Body))
			}
			return exchange.NewError(exchange.KindExchange, id, string(res.Body))
		}
	}
	if !success {
		return exchange.NewError(exchange.KindExchange, id, string(res.Body))
	}
	return nil
}

func (a *Adapter) publicGet(ctx context.Context, path string, params map[string]string) (*exchange.Response, error) {
	url := a.baseURL + path
	if query := exchange.URLEncode(params); query != "" {
		url += "?" + query
	}
	return a.client.Do(ctx, exchange.Request{Method: http.MethodGet, URL: url})
}

// signedRequest signs the urlencoded query with HMAC-SHA256 and appends the
// signature as one more query parameter. GET and DELETE carry the query in
// the URL; POST carries it as a form body.
func (a *Adapter) signedRequest(ctx context.Context, method, path string, params map[string]string) (*exchange.Response, error) {
	if a.creds.APIKey == "" || a.creds.Secret == "" {
		return nil, exchange.NewError(exchange.KindAuthentication, id, "apiKey and secret required for private endpoints")
	}
	all := map[string]string{
		"timestamp":  strconv.FormatInt(a.nonce.Milliseconds(), 10),
		"recvWindow": strconv.FormatInt(a.recvWindow, 10),
	}
	for k, v := range params {
		all[k] = v
	}
	query := exchange.URLEncode(all)
	query += "&signature=" + exchange.HMACSHA256Hex(query, a.creds.Secret)
	req := exchange.Request{
		Method:  method,
		URL:     a.baseURL + path,
		Headers: map[string]string{"X-MBX-APIKEY": a.creds.APIKey},
	}
	if method == http.MethodPost {
		req.Body = query
		req.Headers["Content-Type"] = "application/x-www-form-urlencoded"
	} else {
		req.URL += "?" + query
	}
	return a.client.Do(ctx, req)
}

// FetchTime reads the venue clock and records the local offset so signed
// request timestamps stay inside the recv window.
func (a *Adapter) FetchTime(ctx context.Context) (int64, error) {
	res, err := a.publicGet(ctx, "/api/v1/time", nil)
	if err != nil {
		return 0, err
	}
	serverTime := res.JSON.Get("serverTime").Int()
	if serverTime > 0 {
		a.nonce.SetOffset(serverTime - time.Now().UnixMilli())
	}
	return serverTime, nil
}

// LoadMarkets populates the market cache once.
func (a *Adapter) LoadMarkets(ctx context.Context) error {
	return a.markets.Ensure(ctx, a.FetchMarkets)
}

// FetchMarkets reads /api/v1/exchangeInfo.
func (a *Adapter) FetchMarkets(ctx context.Context) ([]models.Market, error) {
	res, err := a.publicGet(ctx, "/api/v1/exchangeInfo", nil)
	if err != nil {
		return nil, err
	}
	rows := res.JSON.Get("symbols").Array()
	markets := make([]models.Market, 0, len(rows))
	for _, raw := range rows {
		markets = append(markets, parseMarket(raw))
	}
	a.markets.Store(markets)
	return markets, nil
}

// parseMarket normalizes one exchangeInfo symbol entry. Precision lives in
// the PRICE_FILTER and LOT_SIZE filters as digit counts.
func parseMarket(raw gjson.Result) models.Market {
	baseID := raw.Get("baseAsset").String()
	quoteID := raw.Get("quoteAsset").String()
	base := strings.ToUpper(baseID)
	quote := strings.ToUpper(quoteID)
	market := models.Market{
		ID:      raw.Get("symbol").String(),
		Symbol:  base + "/" + quote,
		Base:    base,
		Quote:   quote,
		BaseID:  baseID,
		QuoteID: quoteID,
		Type:    "spot",
		Spot:    true,
		Active:  raw.Get("status").String() == "TRADING",
		Info:    raw,
	}
	for _, filter := range raw.Get("filters").Array() {
		switch filter.Get("filterType").String() {
		case "PRICE_FILTER":
			if scale := filter.Get("priceScale"); scale.Exists() {
				market.Precision.Price = exchange.TickFromDigits(scale.Int())
			}
			market.Limits.Price = models.MinMax{
				Min: exchange.Dec(filter.Get("minPrice")),
				Max: exchange.Dec(filter.Get("maxPrice")),
			}
		case "LOT_SIZE":
			if scale := filter.Get("volumeScale"); scale.Exists() {
				market.Precision.Amount = exchange.TickFromDigits(scale.Int())
			}
			market.Limits.Amount = models.MinMax{
				Min: exchange.Dec(filter.Get("minQty")),
				Max: exchange.Dec(filter.Get("maxQty")),
			}
			market.Limits.Cost = models.MinMax{Min: exchange.Dec(filter.Get("minVal"))}
		}
	}
	return market
}

// FetchTicker reads the kline feed's returnTicker command, which indexes
// tickers by BASE_QUOTE id under one file per quote currency.
func (a *Adapter) FetchTicker(ctx context.Context, symbol string) (models.Ticker, error) {
	if err := a.LoadMarkets(ctx); err != nil {
		return models.Ticker{}, err
	}
	market, err := a.markets.BySymbol(id, symbol)
	if err != nil {
		return models.Ticker{}, err
	}
	url := a.klineURL + "/public" + strings.ToUpper(market.QuoteID) + ".json?command=returnTicker"
	res, err := a.client.Do(ctx, exchange.Request{Method: http.MethodGet, URL: url})
	if err != nil {
		return models.Ticker{}, err
	}
	key := strings.ToUpper(market.BaseID) + "_" + strings.ToUpper(market.QuoteID)
	raw := res.JSON.Get("data." + key)
	if !raw.Exists() {
		return models.Ticker{}, exchange.NewError(exchange.KindBadSymbol, id, "no ticker for "+symbol)
	}
	return parseTicker(raw, market), nil
}

func parseTicker(raw gjson.Result, market models.Market) models.Ticker {
	last := exchange.Dec(raw.Get("last"))
	return models.Ticker{
		Symbol:      market.Symbol,
		High:        exchange.Dec(raw.Get("high24hr")),
		Low:         exchange.Dec(raw.Get("low24hr")),
		Bid:         exchange.Dec(raw.Get("highestBid")),
		Ask:         exchange.Dec(raw.Get("lowestAsk")),
		Last:        last,
		Close:       last,
		Percentage:  exchange.Dec(raw.Get("percentChange")),
		BaseVolume:  exchange.Dec(raw.Get("baseVolume")),
		QuoteVolume: exchange.Dec(raw.Get("quoteVolume")),
		Info:        raw,
	}
}

// FetchOrderBook reads /api/v1/depth. Levels are [price, amount, ...]
// arrays; lastUpdateId becomes the book nonce.
func (a *Adapter) FetchOrderBook(ctx context.Context, symbol string, limit int) (models.OrderBook, error) {
	if err := a.LoadMarkets(ctx); err != nil {
		return models.OrderBook{}, err
	}
	market, err := a.markets.BySymbol(id, symbol)
	if err != nil {
		return models.OrderBook{}, err
	}
	params := map[string]string{"symbol": market.ID}
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}
	res, err := a.publicGet(ctx, "/api/v1/depth", params)
	if err != nil {
		return models.OrderBook{}, err
	}
	book := models.OrderBook{
		Symbol: market.Symbol,
		Nonce:  res.JSON.Get("lastUpdateId").Int(),
		Info:   res.JSON,
	}
	book.Bids = parseBookSide(res.JSON.Get("bids"))
	book.Asks = parseBookSide(res.JSON.Get("asks"))
	return book, nil
}

func parseBookSide(rows gjson.Result) []models.BookLevel {
	var side []models.BookLevel
	for _, row := range rows.Array() {
		level := row.Array()
		if len(level) < 2 {
			continue
		}
		price := exchange.Dec(level[0])
		amount := exchange.Dec(level[1])
		if price == nil || amount == nil {
			continue
		}
		side = append(side, models.BookLevel{Price: *price, Amount: *amount})
	}
	return side
}

// FetchTrades reads /api/v1/aggTrades. The venue's aggregate rows carry the
// call timestamp, not the trade timestamp, and a constant maker flag, so
// side is left empty.
func (a *Adapter) FetchTrades(ctx context.Context, symbol string, since int64, limit int) ([]models.Trade, error) {
	if err := a.LoadMarkets(ctx); err != nil {
		return nil, err
	}
	market, err := a.markets.BySymbol(id, symbol)
	if err != nil {
		return nil, err
	}
	params := map[string]string{"symbol": market.ID}
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}
	res, err := a.publicGet(ctx, "/api/v1/aggTrades", params)
	if err != nil {
		return nil, err
	}
	trades := make([]models.Trade, 0)
	for _, raw := range res.JSON.Array() {
		trades = append(trades, a.parseTrade(raw, market))
	}
	return exchange.FilterSinceLimit(trades, func(t models.Trade) int64 { return t.Timestamp }, since, limit), nil
}

// parseTrade handles aggregate, public and private trade rows.
func (a *Adapter) parseTrade(raw gjson.Result, market models.Market) models.Trade {
	symbol := market.Symbol
	if symbol == "" {
		symbol = a.markets.SymbolForID(raw.Get("symbol").String())
	}
	price := exchange.DecField(raw, "p", "price")
	amount := exchange.DecField(raw, "q", "qty")
	trade := models.Trade{
		ID:        exchange.StrField(raw, "id", "tradeId", "t", "a"),
		OrderID:   raw.Get("orderId").String(),
		Symbol:    symbol,
		Timestamp: exchange.IntField(raw, "time", "T"),
		Price:     price,
		Amount:    amount,
		Cost:      exchange.MulDec(price, amount),
		Info:      raw,
	}
	if v := raw.Get("isBuyerMaker"); v.Exists() {
		if v.Bool() {
			trade.Side = models.SideSell
		} else {
			trade.Side = models.SideBuy
		}
	}
	if v := raw.Get("isBuyer"); v.Exists() {
		if v.Bool() {
			trade.Side = models.SideBuy
		} else {
			trade.Side = models.SideSell
		}
	}
	if v := raw.Get("isMaker"); v.Exists() {
		if v.Bool() {
			trade.TakerOrMaker = "maker"
		} else {
			trade.TakerOrMaker = "taker"
		}
	}
	if feeCost := exchange.Dec(raw.Get("commission")); feeCost != nil {
		trade.Fee = &models.Fee{
			Currency: strings.ToUpper(raw.Get("commissionAssert").String()),
			Cost:     feeCost,
		}
	}
	return trade
}

// FetchOHLCV reads /api/v1/market/kline. Rows are objects keyed i/o/h/l/c/v
// with the timestamp in seconds, returned newest-first.
func (a *Adapter) FetchOHLCV(ctx context.Context, symbol, timeframe string, since int64, limit int) ([]models.OHLCV, error) {
	if err := a.LoadMarkets(ctx); err != nil {
		return nil, err
	}
	market, err := a.markets.BySymbol(id, symbol)
	if err != nil {
		return nil, err
	}
	scale, ok := Timeframes[timeframe]
	if !ok {
		return nil, exchange.NewError(exchange.KindBadRequest, id, "unsupported timeframe "+timeframe)
	}
	params := map[string]string{"symbol": market.ID, "scale": scale}
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}
	res, err := a.publicGet(ctx, "/api/v1/market/kline", params)
	if err != nil {
		return nil, err
	}
	rows := res.JSON.Get("data").Array()
	candles := make([]models.OHLCV, 0, len(rows))
	for _, raw := range rows {
		candles = append(candles, models.OHLCV{
			Timestamp: raw.Get("i").Int() * 1000,
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

// FetchBalance reads /api/v1/account.
func (a *Adapter) FetchBalance(ctx context.Context) (models.Balance, error) {
	res, err := a.signedRequest(ctx, http.MethodGet, "/api/v1/account", nil)
	if err != nil {
		return models.Balance{}, err
	}
	balance := models.Balance{Accounts: make(map[string]models.Account), Info: res.JSON}
	for _, raw := range res.JSON.Get("balances").Array() {
		code := strings.ToUpper(raw.Get("asset").String())
		free := exchange.Dec(raw.Get("free"))
		used := exchange.Dec(raw.Get("locked"))
		var total *decimal.Decimal
		if free != nil && used != nil {
			sum := free.Add(*used)
			total = &sum
		}
		balance.Accounts[code] = models.Account{Free: free, Used: used, Total: total}
	}
	return balance, nil
}

// CreateOrder posts to /api/v1/order. The market's own orderTypes list
// gates which types are accepted; limit orders need a price before any
// request leaves the process.
func (a *Adapter) CreateOrder(ctx context.Context, symbol, orderType, side string, amount, price *decimal.Decimal, opts *exchange.OrderOptions) (models.Order, error) {
	if amount == nil {
		return models.Order{}, exchange.NewError(exchange.KindArgumentsRequired, id, "createOrder requires an amount")
	}
	upperType := strings.ToUpper(orderType)
	if upperType == "LIMIT" && price == nil {
		return models.Order{}, exchange.NewError(exchange.KindArgumentsRequired, id, "createOrder requires a price for limit orders")
	}
	if err := a.LoadMarkets(ctx); err != nil {
		return models.Order{}, err
	}
	market, err := a.markets.BySymbol(id, symbol)
	if err != nil {
		return models.Order{}, err
	}
	validTypes := market.Info.Get("orderTypes").Array()
	supported := len(validTypes) == 0
	for _, t := range validTypes {
		if t.String() == upperType {
			supported = true
		}
	}
	if !supported {
		return models.Order{}, exchange.NewError(exchange.KindInvalidOrder, id, orderType+" is not a valid order type in market "+symbol)
	}
	params := map[string]string{
		"symbol":   market.ID,
		"side":     strings.ToUpper(side),
		"type":     upperType,
		"quantity": exchange.FormatAmount(*amount, market.Precision.Amount),
	}
	if price != nil {
		params["price"] = price.String()
	}
	if opts != nil {
		if opts.ClientOrderID != "" {
			params["newClientOrderId"] = opts.ClientOrderID
		}
		if opts.StopPrice != nil {
			params["stopPrice"] = opts.StopPrice.String()
		}
		for k, v := range opts.Params {
			params[k] = v
		}
	}
	res, err := a.signedRequest(ctx, http.MethodPost, "/api/v1/order", params)
	if err != nil {
		return models.Order{}, err
	}
	order := a.parseOrder(res.JSON)
	if order.Symbol == "" {
		order.Symbol = market.Symbol
	}
	return order, nil
}

// CancelOrder deletes /api/v1/order. The venue indexes orders per symbol.
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
	res, err := a.signedRequest(ctx, http.MethodDelete, "/api/v1/order", map[string]string{
		"symbol":  market.ID,
		"orderId": orderID,
	})
	if err != nil {
		return models.Order{}, err
	}
	order := a.parseOrder(res.JSON)
	if order.Symbol == "" {
		order.Symbol = market.Symbol
	}
	return order, nil
}

// FetchOrder reads /api/v1/order.
func (a *Adapter) FetchOrder(ctx context.Context, orderID, symbol string) (models.Order, error) {
	if symbol == "" {
		return models.Order{}, exchange.NewError(exchange.KindArgumentsRequired, id, "fetchOrder requires a symbol")
	}
	if err := a.LoadMarkets(ctx); err != nil {
		return models.Order{}, err
	}
	market, err := a.markets.BySymbol(id, symbol)
	if err != nil {
		return models.Order{}, err
	}
	res, err := a.signedRequest(ctx, http.MethodGet, "/api/v1/order", map[string]string{
		"symbol":  market.ID,
		"orderId": orderID,
	})
	if err != nil {
		return models.Order{}, err
	}
	return a.parseOrder(res.JSON), nil
}

// FetchOpenOrders reads /api/v1/openOrders for one symbol.
func (a *Adapter) FetchOpenOrders(ctx context.Context, symbol string, since int64, limit int) ([]models.Order, error) {
	if symbol == "" {
		return nil, exchange.NewError(exchange.KindArgumentsRequired, id, "fetchOpenOrders requires a symbol")
	}
	return a.fetchOrderList(ctx, "/api/v1/openOrders", symbol, since, limit)
}

// FetchClosedOrders reads /api/v1/allOrders for one symbol.
func (a *Adapter) FetchClosedOrders(ctx context.Context, symbol string, since int64, limit int) ([]models.Order, error) {
	if symbol == "" {
		return nil, exchange.NewError(exchange.KindArgumentsRequired, id, "fetchClosedOrders requires a symbol")
	}
	return a.fetchOrderList(ctx, "/api/v1/allOrders", symbol, since, limit)
}

func (a *Adapter) fetchOrderList(ctx context.Context, path, symbol string, since int64, limit int) ([]models.Order, error) {
	if err := a.LoadMarkets(ctx); err != nil {
		return nil, err
	}
	market, err := a.markets.BySymbol(id, symbol)
	if err != nil {
		return nil, err
	}
	params := map[string]string{"symbol": market.ID}
	if since > 0 {
		params["startTime"] = strconv.FormatInt(since, 10)
	}
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}
	res, err := a.signedRequest(ctx, http.MethodGet, path, params)
	if err != nil {
		return nil, err
	}
	orders := make([]models.Order, 0)
	for _, raw := range res.JSON.Array() {
		order := a.parseOrder(raw)
		if order.Symbol == "" {
			order.Symbol = market.Symbol
		}
		orders = append(orders, order)
	}
	return exchange.FilterSinceLimit(orders, func(o models.Order) int64 { return o.Timestamp }, since, limit), nil
}

// FetchMyTrades reads the v2 myTrades endpoint, which requires a symbol.
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
	params := map[string]string{"symbol": market.ID}
	if since > 0 {
		params["startTime"] = strconv.FormatInt(since, 10)
	}
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}
	res, err := a.signedRequest(ctx, http.MethodGet, "/api/v2/myTrades", params)
	if err != nil {
		return nil, err
	}
	trades := make([]models.Trade, 0)
	for _, raw := range res.JSON.Array() {
		trades = append(trades, a.parseTrade(raw, market))
	}
	return exchange.FilterSinceLimit(trades, func(t models.Trade) int64 { return t.Timestamp }, since, limit), nil
}

// parseOrder normalizes the binance-shaped order payload.
func (a *Adapter) parseOrder(raw gjson.Result) models.Order {
	statusRaw := raw.Get("status").String()
	status, ok := orderStatuses[statusRaw]
	if !ok {
		status = statusRaw
	}
	filled := exchange.Dec(raw.Get("executedQty"))
	var timestamp, lastTrade int64
	switch {
	case raw.Get("time").Exists():
		timestamp = raw.Get("time").Int()
	case raw.Get("transactTime").Exists():
		timestamp = raw.Get("transactTime").Int()
	case raw.Get("updateTime").Exists() && status == models.OrderStatusOpen:
		if filled != nil && filled.IsPositive() {
			lastTrade = raw.Get("updateTime").Int()
		} else {
			timestamp = raw.Get("updateTime").Int()
		}
	}
	orderType := strings.ToLower(raw.Get("type").String())
	timeInForce := raw.Get("timeInForce").String()
	postOnly := orderType == "limit_maker" || timeInForce == "GTX"
	if orderType == "limit_maker" {
		orderType = models.OrderTypeLimit
	}
	var stopPrice *decimal.Decimal
	if sp := exchange.Dec(raw.Get("stopPrice")); sp != nil && !sp.IsZero() {
		stopPrice = sp
	}
	var remaining *decimal.Decimal
	amount := exchange.Dec(raw.Get("origQty"))
	if amount != nil && filled != nil {
		remaining = exchange.SubDec(amount, filled)
	}
	return models.Order{
		ID:                 raw.Get("orderId").String(),
		ClientOrderID:      raw.Get("clientOrderId").String(),
		Symbol:             a.markets.SymbolForID(raw.Get("symbol").String()),
		Type:               orderType,
		Side:               strings.ToLower(raw.Get("side").String()),
		Status:             status,
		TimeInForce:        timeInForce,
		PostOnly:           postOnly,
		Timestamp:          timestamp,
		LastTradeTimestamp: lastTrade,
		Price:              exchange.Dec(raw.Get("price")),
		StopPrice:          stopPrice,
		Amount:             amount,
		Filled:             filled,
		Remaining:          remaining,
		Average:            exchange.Dec(raw.Get("avgPrice")),
		Cost:               exchange.Dec(raw.Get("cummulativeQuoteQty")),
		Info:               raw,
	}
}

// FetchDeposits reads /api/v1/deposit/history for one coin.
func (a *Adapter) FetchDeposits(ctx context.Context, code string, since int64, limit int) ([]models.Transaction, error) {
	return a.fetchTransactions(ctx, "/api/v1/deposit/history", code, since, limit, "1")
}

// FetchWithdrawals reads /api/v1/withdraw/history for one coin.
func (a *Adapter) FetchWithdrawals(ctx context.Context, code string, since int64, limit int) ([]models.Transaction, error) {
	return a.fetchTransactions(ctx, "/api/v1/withdraw/history", code, since, limit, "5")
}

func (a *Adapter) fetchTransactions(ctx context.Context, path, code string, since int64, limit int, status string) ([]models.Transaction, error) {
	if code == "" {
		return nil, exchange.NewError(exchange.KindArgumentsRequired, id, "transaction history requires a currency code")
	}
	params := map[string]string{
		"coin":   strings.ToUpper(code),
		"status": status,
	}
	if since > 0 {
		params["startTime"] = strconv.FormatInt(since, 10)
	}
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}
	res, err := a.signedRequest(ctx, http.MethodGet, path, params)
	if err != nil {
		return nil, err
	}
	out := make([]models.Transaction, 0)
	for _, raw := range res.JSON.Get("data").Array() {
		out = append(out, parseTransaction(raw))
	}
	return exchange.FilterSinceLimit(out, func(t models.Transaction) int64 { return t.Timestamp }, since, limit), nil
}

// parseTransaction normalizes a transfer row. Direction is inferred from
// fields only withdrawals carry; the coin id may embed the network after an
// underscore, and tagged addresses embed the tag the same way.
func parseTransaction(raw gjson.Result) models.Transaction {
	txType := models.TransactionDeposit
	if raw.Get("payAmount").Exists() || raw.Get("ctime").Exists() {
		txType = models.TransactionWithdrawal
	}
	statusRaw := raw.Get("status").String()
	statuses := depositStatuses
	if txType == models.TransactionWithdrawal {
		statuses = withdrawalStatuses
	}
	status, ok := statuses[statusRaw]
	if !ok {
		status = statusRaw
	}
	currencyID := exchange.StrField(raw, "symbol", "coin")
	network := ""
	if i := strings.Index(currencyID, "_"); i >= 0 {
		network = strings.ToUpper(currencyID[i+1:])
		currencyID = currencyID[:i]
	}
	address := raw.Get("addressTo").String()
	tag := ""
	if raw.Get("tagType").String() != "" {
		if i := strings.Index(address, "_"); i >= 0 {
			tag = address[i+1:]
			address = address[:i]
		}
	}
	code := strings.ToUpper(currencyID)
	tx := models.Transaction{
		ID:        exchange.StrField(raw, "id", "withdrawId"),
		TxID:      raw.Get("txid").String(),
		Type:      txType,
		Currency:  code,
		Network:   network,
		Address:   address,
		Tag:       tag,
		Status:    status,
		Timestamp: raw.Get("createdAt").Int(),
		Updated:   raw.Get("updatedAt").Int(),
		Amount:    exchange.Dec(raw.Get("amount")),
		Info:      raw,
	}
	if feeCost := exchange.Dec(raw.Get("fee")); feeCost != nil {
		tx.Fee = &models.Fee{Currency: code, Cost: feeCost}
	}
	return tx
}

// Withdraw posts to /api/v1/withdraw/commit. The venue routes by chain
// name, so the network is required.
func (a *Adapter) Withdraw(ctx context.Context, code string, amount decimal.Decimal, address, tag string) (models.Transaction, error) {
	return a.WithdrawOnChain(ctx, code, amount, address, tag, "")
}

// WithdrawOnChain is Withdraw with an explicit chain name.
func (a *Adapter) WithdrawOnChain(ctx context.Context, code string, amount decimal.Decimal, address, tag, chainName string) (models.Transaction, error) {
	if address == "" {
		return models.Transaction{}, exchange.NewError(exchange.KindInvalidAddress, id, "withdraw requires an address")
	}
	if chainName == "" {
		return models.Transaction{}, exchange.NewError(exchange.KindArgumentsRequired, id, "withdraw requires a chain name")
	}
	params := map[string]string{
		"coin":      strings.ToUpper(code),
		"amount":    amount.String(),
		"addressTo": address,
		"chainName": chainName,
	}
	if tag != "" {
		params["tag"] = tag
	}
	res, err := a.signedRequest(ctx, http.MethodPost, "/api/v1/withdraw/commit", params)
	if err != nil {
		return models.Transaction{}, err
	}
	tx := parseTransaction(res.JSON.Get("data"))
	tx.Type = models.TransactionWithdrawal
	if tx.Currency == "" {
		tx.Currency = strings.ToUpper(code)
	}
	return tx, nil
}
