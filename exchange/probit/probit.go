// Package probit implements the ProBit spot adapter. Authentication is
// OAuth2 client credentials: the api key and secret are exchanged at the
// accounts host for a short-lived bearer token, and every private call
// carries it. The venue timestamps everything in ISO 8601.
package probit

import (
	"context"
	"encoding/base64"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"tradewire/exchange"
	"tradewire/logger"
	"tradewire/models"
)

const id = "probit"

// Timeframes maps unified intervals onto the venue's candle intervals.
var Timeframes = map[string]string{
	"1m": "1m", "3m": "3m", "5m": "5m", "10m": "10m", "15m": "15m",
	"30m": "30m", "1h": "1h", "4h": "4h", "6h": "6h", "12h": "12h",
	"1d": "1D", "1w": "1W", "1M": "1M",
}

var errorMap = exchange.ErrorMap{
	Exact: map[string]exchange.Kind{
		"UNAUTHORIZED":            exchange.KindAuthentication,
		"INVALID_ARGUMENT":        exchange.KindBadRequest,
		"TRADING_UNAVAILABLE":     exchange.KindNotAvailable,
		"NOT_ENOUGH_BALANCE":      exchange.KindInsufficientFunds,
		"NOT_ALLOWED_COMBINATION": exchange.KindBadRequest,
		"INVALID_ORDER":           exchange.KindInvalidOrder,
		"RATE_LIMIT_EXCEEDED":     exchange.KindRateLimit,
		"MARKET_UNAVAILABLE":      exchange.KindNotAvailable,
		"INVALID_MARKET":          exchange.KindBadSymbol,
		"MARKET_CLOSED":           exchange.KindNotAvailable,
		"MARKET_NOT_FOUND":        exchange.KindBadSymbol,
		"INVALID_CURRENCY":        exchange.KindBadRequest,
		"TOO_MANY_OPEN_ORDERS":    exchange.KindDDoSProtection,
		"DUPLICATE_ADDRESS":       exchange.KindInvalidAddress,
		"invalid_grant":           exchange.KindAuthentication,
	},
}

var orderStatuses = map[string]string{
	"open":      models.OrderStatusOpen,
	"cancelled": models.OrderStatusCanceled,
	"filled":    models.OrderStatusClosed,
}

var transactionStatuses = map[string]string{
	"requested":  models.TransactionPending,
	"pending":    models.TransactionPending,
	"confirming": models.TransactionPending,
	"confirmed":  models.TransactionPending,
	"applying":   models.TransactionPending,
	"done":       models.TransactionOK,
	"cancelled":  models.TransactionCanceled,
	"cancelling": models.TransactionCanceled,
}

// Networks maps common chain aliases onto the venue's platform ids.
var Networks = map[string]string{
	"BEP20": "BSC",
	"ERC20": "ETH",
	"TRC20": "TRON",
}

// Options tunes adapter construction.
type Options struct {
	BaseURL       string
	AccountsURL   string
	Timeout       time.Duration
	RatePerSecond float64
}

// Adapter is one ProBit session. The bearer token and its expiry are
// guarded by mu since private calls may race a refresh.
type Adapter struct {
	creds       exchange.Credentials
	baseURL     string
	accountsURL string
	client      *exchange.Client
	markets     exchange.MarketMap
	nonce       exchange.NonceSource
	log         *logger.Log

	mu          sync.Mutex
	accessToken string
	expires     int64
}

// New builds a ProBit adapter.
func New(creds exchange.Credentials, opts Options) *Adapter {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = "https://api.probit.com/api/exchange"
	}
	accountsURL := opts.AccountsURL
	if accountsURL == "" {
		accountsURL = "https://accounts.probit.com"
	}
	a := &Adapter{
		creds:       creds,
		baseURL:     baseURL,
		accountsURL: accountsURL,
		log:         logger.GetLogger(),
	}
	a.client = exchange.NewClient(id, exchange.ClientOptions{
		Timeout:           opts.Timeout,
		RequestsPerSecond: opts.RatePerSecond,
	}, handleErrors)
	return a
}

// ID returns the adapter identifier.
func (a *Adapter) ID() string { return id }

func handleErrors(res *exchange.Response) error {
	errorCode := res.JSON.Get("errorCode").String()
	if errorCode == "" {
		return nil
	}
	message := errorCode + " " + res.JSON.Get("message").String()
	if kind, ok := errorMap.MatchExact(errorCode); ok {
		return exchange.NewError(kind, id, message)
	}
	return exchange.NewError(exchange.KindExchange, id, message)
}

func iso8601(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02T15:04:05.000Z")
}

func parse8601(s string) int64 {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0
	}
	return t.UnixMilli()
}

func (a *Adapter) publicGet(ctx context.Context, path string, params map[string]string) (*exchange.Response, error) {
	url := a.baseURL + "/v1/" + path
	if query := exchange.URLEncode(params); query != "" {
		url += "?" + query
	}
	return a.client.Do(ctx, exchange.Request{Method: http.MethodGet, URL: url})
}

// SignIn exchanges the api key and secret for a bearer token at the
// accounts host. The venue only supports the client_credentials grant.
func (a *Adapter) SignIn(ctx context.Context) error {
	if a.creds.APIKey == "" || a.creds.Secret == "" {
		return exchange.NewError(exchange.KindAuthentication, id, "apiKey and secret required")
	}
	auth := base64.StdEncoding.EncodeToString([]byte(a.creds.APIKey + ":" + a.creds.Secret))
	res, err := a.client.Do(ctx, exchange.Request{
		Method: http.MethodPost,
		URL:    a.accountsURL + "/token",
		Headers: map[string]string{
			"Authorization": "Basic " + auth,
			"Content-Type":  "application/json",
		},
		Body: `{"grant_type":"client_credentials"}`,
	})
	if err != nil {
		return err
	}
	token := res.JSON.Get("access_token").String()
	if token == "" {
		return exchange.NewError(exchange.KindAuthentication, id, "token endpoint returned no access_token")
	}
	a.mu.Lock()
	a.accessToken = token
	a.expires = a.nonce.Milliseconds() + res.JSON.Get("expires_in").Int()*1000
	a.mu.Unlock()
	a.log.WithComponent(id).Debug("signed in, bearer token refreshed")
	return nil
}

// token returns a live bearer token, signing in again when the cached one
// is within a few seconds of expiry.
func (a *Adapter) token(ctx context.Context) (string, error) {
	a.mu.Lock()
	token, expires := a.accessToken, a.expires
	a.mu.Unlock()
	if token != "" && a.nonce.Milliseconds() < expires-5000 {
		return token, nil
	}
	if err := a.SignIn(ctx); err != nil {
		return "", err
	}
	a.mu.Lock()
	token = a.accessToken
	a.mu.Unlock()
	return token, nil
}

func (a *Adapter) private(ctx context.Context, method, path string, params map[string]string) (*exchange.Response, error) {
	token, err := a.token(ctx)
	if err != nil {
		return nil, err
	}
	req := exchange.Request{
		Method:  method,
		URL:     a.baseURL + "/v1/" + path,
		Headers: map[string]string{"Authorization": "Bearer " + token},
	}
	if method == http.MethodGet {
		if query := exchange.URLEncode(params); query != "" {
			req.URL += "?" + query
		}
	} else if len(params) > 0 {
		body := make(map[string]any, len(params))
		for k, v := range params {
			body[k] = v
		}
		encoded, err := exchange.MarshalCanonical(body)
		if err != nil {
			return nil, exchange.WrapError(exchange.KindBadRequest, id, err)
		}
		req.Body = string(encoded)
		req.Headers["Content-Type"] = "application/json"
	}
	return a.client.Do(ctx, req)
}

// FetchTime reads the venue clock and feeds the shared nonce offset.
func (a *Adapter) FetchTime(ctx context.Context) (int64, error) {
	res, err := a.publicGet(ctx, "time", nil)
	if err != nil {
		return 0, err
	}
	serverTime := parse8601(res.JSON.Get("data").String())
	a.nonce.SetOffset(serverTime - time.Now().UnixMilli())
	return serverTime, nil
}

// LoadMarkets populates the market cache once.
func (a *Adapter) LoadMarkets(ctx context.Context) error {
	return a.markets.Ensure(ctx, a.FetchMarkets)
}

// FetchMarkets reads /market.
func (a *Adapter) FetchMarkets(ctx context.Context) ([]models.Market, error) {
	res, err := a.publicGet(ctx, "market", nil)
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

// parseMarket normalizes a market row. Fee rates arrive as percentages and
// quantity precision as a digit count.
func parseMarket(raw gjson.Result) models.Market {
	baseID := raw.Get("base_currency_id").String()
	quoteID := raw.Get("quote_currency_id").String()
	base := strings.ToUpper(baseID)
	quote := strings.ToUpper(quoteID)
	hundred := decimal.NewFromInt(100)
	var taker, maker *decimal.Decimal
	if rate := exchange.Dec(raw.Get("taker_fee_rate")); rate != nil {
		v := rate.Div(hundred)
		taker = &v
	}
	if rate := exchange.Dec(raw.Get("maker_fee_rate")); rate != nil {
		v := rate.Div(hundred)
		maker = &v
	}
	return models.Market{
		ID:      raw.Get("id").String(),
		Symbol:  base + "/" + quote,
		Base:    base,
		Quote:   quote,
		BaseID:  baseID,
		QuoteID: quoteID,
		Type:    "spot",
		Spot:    true,
		Active:  !raw.Get("closed").Bool() && raw.Get("show_in_ui").Bool(),
		Taker:   taker,
		Maker:   maker,
		Precision: models.MarketPrecision{
			Amount: exchange.TickFromDigits(raw.Get("quantity_precision").Int()),
			Price:  exchange.Dec(raw.Get("price_increment")),
		},
		Limits: models.MarketLimits{
			Amount: models.MinMax{
				Min: exchange.Dec(raw.Get("min_quantity")),
				Max: exchange.Dec(raw.Get("max_quantity")),
			},
			Price: models.MinMax{
				Min: exchange.Dec(raw.Get("min_price")),
				Max: exchange.Dec(raw.Get("max_price")),
			},
			Cost: models.MinMax{
				Min: exchange.Dec(raw.Get("min_cost")),
				Max: exchange.Dec(raw.Get("max_cost")),
			},
		},
		Info: raw,
	}
}

// FetchTickers reads /ticker, optionally narrowed to a market id list.
func (a *Adapter) FetchTickers(ctx context.Context, symbols []string) (map[string]models.Ticker, error) {
	if err := a.LoadMarkets(ctx); err != nil {
		return nil, err
	}
	params := map[string]string{}
	if len(symbols) > 0 {
		ids := make([]string, 0, len(symbols))
		for _, symbol := range symbols {
			market, err := a.markets.BySymbol(id, symbol)
			if err != nil {
				return nil, err
			}
			ids = append(ids, market.ID)
		}
		params["market_ids"] = strings.Join(ids, ",")
	}
	res, err := a.publicGet(ctx, "ticker", params)
	if err != nil {
		return nil, err
	}
	out := make(map[string]models.Ticker)
	for _, raw := range res.JSON.Get("data").Array() {
		ticker := a.parseTicker(raw)
		out[ticker.Symbol] = ticker
	}
	return out, nil
}

// FetchTicker reads /ticker for one market.
func (a *Adapter) FetchTicker(ctx context.Context, symbol string) (models.Ticker, error) {
	if err := a.LoadMarkets(ctx); err != nil {
		return models.Ticker{}, err
	}
	market, err := a.markets.BySymbol(id, symbol)
	if err != nil {
		return models.Ticker{}, err
	}
	res, err := a.publicGet(ctx, "ticker", map[string]string{"market_ids": market.ID})
	if err != nil {
		return models.Ticker{}, err
	}
	rows := res.JSON.Get("data").Array()
	if len(rows) == 0 {
		return models.Ticker{}, exchange.NewError(exchange.KindExchange, id, "ticker endpoint returned an empty response")
	}
	return a.parseTicker(rows[0]), nil
}

func (a *Adapter) parseTicker(raw gjson.Result) models.Ticker {
	last := exchange.Dec(raw.Get("last"))
	return models.Ticker{
		Symbol:      a.markets.SymbolForID(raw.Get("market_id").String()),
		Timestamp:   parse8601(raw.Get("time").String()),
		High:        exchange.Dec(raw.Get("high")),
		Low:         exchange.Dec(raw.Get("low")),
		Last:        last,
		Close:       last,
		BaseVolume:  exchange.Dec(raw.Get("base_volume")),
		QuoteVolume: exchange.Dec(raw.Get("quote_volume")),
		Info:        raw,
	}
}

// FetchOrderBook reads /order_book. The venue returns a flat level list
// with a side marker on each row.
func (a *Adapter) FetchOrderBook(ctx context.Context, symbol string, limit int) (models.OrderBook, error) {
	if err := a.LoadMarkets(ctx); err != nil {
		return models.OrderBook{}, err
	}
	market, err := a.markets.BySymbol(id, symbol)
	if err != nil {
		return models.OrderBook{}, err
	}
	res, err := a.publicGet(ctx, "order_book", map[string]string{"market_id": market.ID})
	if err != nil {
		return models.OrderBook{}, err
	}
	book := models.OrderBook{Symbol: market.Symbol, Info: res.JSON}
	for _, raw := range res.JSON.Get("data").Array() {
		price := exchange.Dec(raw.Get("price"))
		amount := exchange.Dec(raw.Get("quantity"))
		if price == nil || amount == nil {
			continue
		}
		level := models.BookLevel{Price: *price, Amount: *amount}
		if raw.Get("side").String() == "buy" {
			book.Bids = append(book.Bids, level)
		} else {
			book.Asks = append(book.Asks, level)
		}
	}
	sort.Slice(book.Bids, func(i, j int) bool { return book.Bids[i].Price.GreaterThan(book.Bids[j].Price) })
	sort.Slice(book.Asks, func(i, j int) bool { return book.Asks[i].Price.LessThan(book.Asks[j].Price) })
	if limit > 0 {
		if len(book.Bids) > limit {
			book.Bids = book.Bids[:limit]
		}
		if len(book.Asks) > limit {
			book.Asks = book.Asks[:limit]
		}
	}
	return book, nil
}

// FetchTrades reads /trade. The venue wants an explicit window and limit.
func (a *Adapter) FetchTrades(ctx context.Context, symbol string, since int64, limit int) ([]models.Trade, error) {
	if err := a.LoadMarkets(ctx); err != nil {
		return nil, err
	}
	market, err := a.markets.BySymbol(id, symbol)
	if err != nil {
		return nil, err
	}
	params := map[string]string{
		"market_id":  market.ID,
		"start_time": "1970-01-01T00:00:00.000Z",
		"end_time":   iso8601(a.nonce.Milliseconds()),
		"limit":      "1000",
	}
	if since > 0 {
		params["start_time"] = iso8601(since)
	}
	if limit > 0 && limit < 1000 {
		params["limit"] = strconv.Itoa(limit)
	}
	res, err := a.publicGet(ctx, "trade", params)
	if err != nil {
		return nil, err
	}
	trades := make([]models.Trade, 0)
	for _, raw := range res.JSON.Get("data").Array() {
		trades = append(trades, a.parseTrade(raw))
	}
	return trades, nil
}

// FetchMyTrades reads /trade_history. Without since the window covers the
// past year, the widest range the venue serves in one call.
func (a *Adapter) FetchMyTrades(ctx context.Context, symbol string, since int64, limit int) ([]models.Trade, error) {
	if err := a.LoadMarkets(ctx); err != nil {
		return nil, err
	}
	const yearMs = int64(31536000000)
	now := a.nonce.Milliseconds()
	params := map[string]string{
		"limit":      "100",
		"start_time": iso8601(now - yearMs),
		"end_time":   iso8601(now),
	}
	if symbol != "" {
		market, err := a.markets.BySymbol(id, symbol)
		if err != nil {
			return nil, err
		}
		params["market_id"] = market.ID
	}
	if since > 0 {
		params["start_time"] = iso8601(since)
		end := since + yearMs
		if end > now {
			end = now
		}
		params["end_time"] = iso8601(end)
	}
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}
	res, err := a.private(ctx, http.MethodGet, "trade_history", params)
	if err != nil {
		return nil, err
	}
	trades := make([]models.Trade, 0)
	for _, raw := range res.JSON.Get("data").Array() {
		trades = append(trades, a.parseTrade(raw))
	}
	return trades, nil
}

// parseTrade normalizes public and private fills. Trade ids embed the
// market id before a colon.
func (a *Adapter) parseTrade(raw gjson.Result) models.Trade {
	tradeID := raw.Get("id").String()
	marketID := raw.Get("market_id").String()
	if marketID == "" {
		if idx := strings.Index(tradeID, ":"); idx > 0 {
			marketID = tradeID[:idx]
		}
	}
	price := exchange.Dec(raw.Get("price"))
	amount := exchange.Dec(raw.Get("quantity"))
	trade := models.Trade{
		ID:        tradeID,
		OrderID:   raw.Get("order_id").String(),
		Symbol:    a.markets.SymbolForID(marketID),
		Side:      raw.Get("side").String(),
		Timestamp: parse8601(raw.Get("time").String()),
		Price:     price,
		Amount:    amount,
		Cost:      exchange.DecField(raw, "cost"),
		Info:      raw,
	}
	if trade.Cost == nil {
		trade.Cost = exchange.MulDec(price, amount)
	}
	if feeCost := exchange.Dec(raw.Get("fee_amount")); feeCost != nil {
		trade.Fee = &models.Fee{
			Currency: strings.ToUpper(raw.Get("fee_currency_id").String()),
			Cost:     feeCost,
		}
	}
	return trade
}

// candleBoundary aligns a timestamp onto the venue's candle grid. Weeks
// anchor on the first Sunday of the epoch and months on calendar months.
func candleBoundary(ms int64, timeframe string, interval time.Duration, after bool) int64 {
	if timeframe == "1M" {
		t := time.UnixMilli(ms).UTC()
		boundary := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
		if after {
			boundary = boundary.AddDate(0, 1, 0)
		}
		return boundary.UnixMilli()
	}
	intervalMs := interval.Milliseconds()
	offset := int64(0)
	if timeframe == "1w" {
		offset = 259200000 // 1970-01-04T00:00:00Z, the epoch's first Sunday
	}
	boundary := (ms-offset)/intervalMs*intervalMs + offset
	if after {
		boundary += intervalMs
	}
	return boundary
}

// FetchOHLCV reads /candle. The request window is derived from since and
// limit, then snapped outward onto candle boundaries.
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
	if limit <= 0 {
		limit = 100
	}
	requestLimit := limit + 1
	if requestLimit > 1000 {
		requestLimit = 1000
	}
	window := exchange.WindowFor(time.Now(), duration, since, limit)
	res, err := a.publicGet(ctx, "candle", map[string]string{
		"market_ids": market.ID,
		"interval":   interval,
		"sort":       "asc",
		"limit":      strconv.Itoa(requestLimit),
		"start_time": iso8601(candleBoundary(window.Start, timeframe, duration, false)),
		"end_time":   iso8601(candleBoundary(window.End, timeframe, duration, true)),
	})
	if err != nil {
		return nil, err
	}
	rows := res.JSON.Get("data").Array()
	candles := make([]models.OHLCV, 0, len(rows))
	for _, raw := range rows {
		candles = append(candles, models.OHLCV{
			Timestamp: parse8601(raw.Get("start_time").String()),
			Open:      exchange.Dec(raw.Get("open")),
			High:      exchange.Dec(raw.Get("high")),
			Low:       exchange.Dec(raw.Get("low")),
			Close:     exchange.Dec(raw.Get("close")),
			Volume:    exchange.Dec(raw.Get("base_volume")),
		})
	}
	return exchange.FilterSinceLimit(candles, func(c models.OHLCV) int64 { return c.Timestamp }, since, limit), nil
}

// FetchBalance reads /balance. The venue reports total and available only;
// the used share is the difference.
func (a *Adapter) FetchBalance(ctx context.Context) (models.Balance, error) {
	res, err := a.private(ctx, http.MethodGet, "balance", nil)
	if err != nil {
		return models.Balance{}, err
	}
	balance := models.Balance{Accounts: make(map[string]models.Account), Info: res.JSON}
	for _, raw := range res.JSON.Get("data").Array() {
		code := strings.ToUpper(raw.Get("currency_id").String())
		total := exchange.Dec(raw.Get("total"))
		free := exchange.Dec(raw.Get("available"))
		balance.Accounts[code] = models.Account{
			Free:  free,
			Used:  exchange.SubDec(total, free),
			Total: total,
		}
	}
	return balance, nil
}

// CreateOrder submits an order via /new_order. Market buys spend quote
// currency, so the cost is computed from amount and price up front.
func (a *Adapter) CreateOrder(ctx context.Context, symbol, orderType, side string, amount, price *decimal.Decimal, opts *exchange.OrderOptions) (models.Order, error) {
	if amount == nil {
		return models.Order{}, exchange.NewError(exchange.KindArgumentsRequired, id, "createOrder requires an amount")
	}
	if price == nil && (orderType == models.OrderTypeLimit || (orderType == models.OrderTypeMarket && side == models.SideBuy)) {
		return models.Order{}, exchange.NewError(exchange.KindArgumentsRequired, id,
			"createOrder requires a price for limit orders and for market buys, where it sizes the quote spend")
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
	tif := strings.ToLower(opts.TimeInForce)
	if tif == "" {
		// The venue's defaults per type.
		if orderType == models.OrderTypeMarket {
			tif = "ioc"
		} else {
			tif = "gtc"
		}
	}
	params := map[string]string{
		"market_id":     market.ID,
		"type":          orderType,
		"side":          side,
		"time_in_force": tif,
	}
	if opts.ClientOrderID != "" {
		params["client_order_id"] = opts.ClientOrderID
	}
	marketBuy := orderType == models.OrderTypeMarket && side == models.SideBuy
	switch {
	case orderType == models.OrderTypeLimit:
		params["limit_price"] = exchange.FormatAmount(*price, market.Precision.Price)
		params["quantity"] = exchange.FormatAmount(*amount, market.Precision.Amount)
	case marketBuy:
		cost := amount.Mul(*price)
		params["cost"] = cost.String()
	default:
		params["quantity"] = exchange.FormatAmount(*amount, market.Precision.Amount)
	}
	for k, v := range opts.Params {
		params[k] = v
	}
	res, err := a.private(ctx, http.MethodPost, "new_order", params)
	if err != nil {
		return models.Order{}, err
	}
	order := a.parseOrder(res.JSON.Get("data"))
	if marketBuy {
		// The venue reports a placeholder quantity on market buys; only
		// the spent cost is trustworthy.
		order.Amount = nil
		order.Remaining = nil
		cost := amount.Mul(*price)
		order.Cost = &cost
	}
	return order, nil
}

// CancelOrder cancels via /cancel_order. The venue scopes orders by market.
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
	res, err := a.private(ctx, http.MethodPost, "cancel_order", map[string]string{
		"market_id": market.ID,
		"order_id":  orderID,
	})
	if err != nil {
		return models.Order{}, err
	}
	return a.parseOrder(res.JSON.Get("data")), nil
}

// FetchOrder reads /order for one order id within a market.
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
	res, err := a.private(ctx, http.MethodGet, "order", map[string]string{
		"market_id": market.ID,
		"order_id":  orderID,
	})
	if err != nil {
		return models.Order{}, err
	}
	rows := res.JSON.Get("data").Array()
	if len(rows) == 0 {
		return models.Order{}, exchange.NewError(exchange.KindOrderNotFound, id, "no order "+orderID)
	}
	return a.parseOrder(rows[0]), nil
}

// FetchOpenOrders reads /open_order.
func (a *Adapter) FetchOpenOrders(ctx context.Context, symbol string, since int64, limit int) ([]models.Order, error) {
	if err := a.LoadMarkets(ctx); err != nil {
		return nil, err
	}
	params := map[string]string{}
	if symbol != "" {
		market, err := a.markets.BySymbol(id, symbol)
		if err != nil {
			return nil, err
		}
		params["market_id"] = market.ID
	}
	res, err := a.private(ctx, http.MethodGet, "open_order", params)
	if err != nil {
		return nil, err
	}
	orders := make([]models.Order, 0)
	for _, raw := range res.JSON.Get("data").Array() {
		orders = append(orders, a.parseOrder(raw))
	}
	return exchange.FilterSinceLimit(orders, func(o models.Order) int64 { return o.Timestamp }, since, limit), nil
}

// FetchClosedOrders reads /order_history.
func (a *Adapter) FetchClosedOrders(ctx context.Context, symbol string, since int64, limit int) ([]models.Order, error) {
	if err := a.LoadMarkets(ctx); err != nil {
		return nil, err
	}
	params := map[string]string{
		"start_time": iso8601(0),
		"end_time":   iso8601(a.nonce.Milliseconds()),
		"limit":      "100",
	}
	if symbol != "" {
		market, err := a.markets.BySymbol(id, symbol)
		if err != nil {
			return nil, err
		}
		params["market_id"] = market.ID
	}
	if since > 0 {
		params["start_time"] = iso8601(since)
	}
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}
	res, err := a.private(ctx, http.MethodGet, "order_history", params)
	if err != nil {
		return nil, err
	}
	orders := make([]models.Order, 0)
	for _, raw := range res.JSON.Get("data").Array() {
		orders = append(orders, a.parseOrder(raw))
	}
	return orders, nil
}

// parseOrder normalizes an order row. The remaining quantity is the open
// share plus whatever was cancelled; market orders carry no price.
func (a *Adapter) parseOrder(raw gjson.Result) models.Order {
	statusRaw := raw.Get("status").String()
	status, ok := orderStatuses[statusRaw]
	if !ok {
		status = statusRaw
	}
	orderType := raw.Get("type").String()
	var price *decimal.Decimal
	if orderType != models.OrderTypeMarket {
		price = exchange.Dec(raw.Get("limit_price"))
	}
	filled := exchange.Dec(raw.Get("filled_quantity"))
	remaining := exchange.Dec(raw.Get("open_quantity"))
	if cancelled := exchange.Dec(raw.Get("cancelled_quantity")); cancelled != nil && remaining != nil {
		v := remaining.Add(*cancelled)
		remaining = &v
	}
	amount := exchange.Dec(raw.Get("quantity"))
	if amount == nil && filled != nil && remaining != nil {
		v := filled.Add(*remaining)
		amount = &v
	}
	return models.Order{
		ID:            raw.Get("id").String(),
		ClientOrderID: raw.Get("client_order_id").String(),
		Symbol:        a.markets.SymbolForID(raw.Get("market_id").String()),
		Type:          orderType,
		Side:          raw.Get("side").String(),
		Status:        status,
		TimeInForce:   strings.ToUpper(raw.Get("time_in_force").String()),
		Timestamp:     parse8601(raw.Get("time").String()),
		Price:         price,
		Amount:        amount,
		Filled:        filled,
		Remaining:     remaining,
		Cost:          exchange.DecField(raw, "filled_cost", "cost"),
		Info:          raw,
	}
}

// FetchDepositAddress reads /deposit_address, optionally pinned to a chain.
func (a *Adapter) FetchDepositAddress(ctx context.Context, code, network string) (models.DepositAddress, error) {
	params := map[string]string{"currency_id": strings.ToUpper(code)}
	if network != "" {
		platform := network
		if mapped, ok := Networks[strings.ToUpper(network)]; ok {
			platform = mapped
		}
		params["platform_id"] = platform
	}
	res, err := a.private(ctx, http.MethodGet, "deposit_address", params)
	if err != nil {
		return models.DepositAddress{}, err
	}
	rows := res.JSON.Get("data").Array()
	if len(rows) == 0 {
		return models.DepositAddress{}, exchange.NewError(exchange.KindInvalidAddress, id, "deposit_address returned an empty response")
	}
	raw := rows[0]
	return models.DepositAddress{
		Currency: strings.ToUpper(code),
		Network:  raw.Get("platform_id").String(),
		Address:  raw.Get("address").String(),
		Tag:      raw.Get("destination_tag").String(),
		Info:     raw,
	}, nil
}

// Withdraw submits /withdrawal. The venue only pays out to addresses
// registered in the account settings.
func (a *Adapter) Withdraw(ctx context.Context, code string, amount decimal.Decimal, address, tag string) (models.Transaction, error) {
	if address == "" {
		return models.Transaction{}, exchange.NewError(exchange.KindInvalidAddress, id, "withdraw requires an address")
	}
	params := map[string]string{
		"currency_id":     strings.ToUpper(code),
		"address":         address,
		"destination_tag": tag,
		"amount":          amount.String(),
	}
	res, err := a.private(ctx, http.MethodPost, "withdrawal", params)
	if err != nil {
		return models.Transaction{}, err
	}
	return parseTransaction(res.JSON.Get("data")), nil
}

// FetchDeposits reads the transfer list filtered to deposits.
func (a *Adapter) FetchDeposits(ctx context.Context, code string, since int64, limit int) ([]models.Transaction, error) {
	return a.fetchTransactions(ctx, models.TransactionDeposit, code, since, limit)
}

// FetchWithdrawals reads the transfer list filtered to withdrawals.
func (a *Adapter) FetchWithdrawals(ctx context.Context, code string, since int64, limit int) ([]models.Transaction, error) {
	return a.fetchTransactions(ctx, models.TransactionWithdrawal, code, since, limit)
}

func (a *Adapter) fetchTransactions(ctx context.Context, transferType, code string, since int64, limit int) ([]models.Transaction, error) {
	params := map[string]string{
		"type":       transferType,
		"start_time": iso8601(1),
		"end_time":   iso8601(a.nonce.Milliseconds()),
		"limit":      "100",
	}
	if code != "" {
		params["currency_id"] = strings.ToUpper(code)
	}
	if since > 0 {
		params["start_time"] = iso8601(since)
	}
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}
	res, err := a.private(ctx, http.MethodGet, "transfer/payment", params)
	if err != nil {
		return nil, err
	}
	transactions := make([]models.Transaction, 0)
	for _, raw := range res.JSON.Get("data").Array() {
		transactions = append(transactions, parseTransaction(raw))
	}
	return transactions, nil
}

func parseTransaction(raw gjson.Result) models.Transaction {
	statusRaw := raw.Get("status").String()
	status, ok := transactionStatuses[statusRaw]
	if !ok {
		status = statusRaw
	}
	code := strings.ToUpper(raw.Get("currency_id").String())
	tx := models.Transaction{
		ID:        raw.Get("id").String(),
		TxID:      raw.Get("hash").String(),
		Type:      raw.Get("type").String(),
		Currency:  code,
		Network:   raw.Get("platform_id").String(),
		Address:   raw.Get("address").String(),
		Tag:       raw.Get("destination_tag").String(),
		Status:    status,
		Timestamp: parse8601(raw.Get("time").String()),
		Amount:    exchange.Dec(raw.Get("amount")),
		Info:      raw,
	}
	if feeCost := exchange.Dec(raw.Get("fee")); feeCost != nil && !feeCost.IsZero() {
		tx.Fee = &models.Fee{Currency: code, Cost: feeCost}
	}
	return tx
}
