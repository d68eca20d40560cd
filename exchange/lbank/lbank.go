// Package lbank implements the LBank spot adapter. Signed requests hash the
// sorted urlencoded parameters with uppercased MD5 first, then sign that
// digest with RSA-SHA256 or HMAC-SHA256 depending on the secret the account
// was issued. Every spot path ends in ".do".
package lbank

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"tradewire/exchange"
	"tradewire/logger"
	"tradewire/models"
)

const id = "lbank"

// Timeframes maps unified timeframe strings to kline type values.
var Timeframes = map[string]string{
	"1m":  "minute1",
	"5m":  "minute5",
	"15m": "minute15",
	"30m": "minute30",
	"1h":  "hour1",
	"2h":  "hour2",
	"4h":  "hour4",
	"6h":  "hour6",
	"8h":  "hour8",
	"12h": "hour12",
	"1d":  "day1",
	"1w":  "week1",
	"1M":  "month1",
}

// Networks maps unified network codes to the venue's chain names.
var Networks = map[string]string{
	"ERC20":   "erc20",
	"ETH":     "erc20",
	"TRC20":   "trc20",
	"TRX":     "trc20",
	"OMNI":    "omni",
	"ASA":     "asa",
	"BEP20":   "bep20(bsc)",
	"BSC":     "bep20(bsc)",
	"HT":      "heco",
	"BNB":     "bep2",
	"BTC":     "btc",
	"DOGE":    "dogecoin",
	"MATIC":   "matic",
	"POLYGON": "matic",
	"OEC":     "oec",
	"BTCTRON": "btctron",
	"XRP":     "xrp",
}

var inverseNetworks = map[string]string{
	"erc20":      "ERC20",
	"trc20":      "TRC20",
	"omni":       "OMNI",
	"asa":        "ASA",
	"bep20(bsc)": "BSC",
	"bep20":      "BSC",
	"heco":       "HT",
	"bep2":       "BNB",
	"btc":        "BTC",
	"dogecoin":   "DOGE",
	"matic":      "MATIC",
	"oec":        "OEC",
	"btctron":    "BTCTRON",
	"xrp":        "XRP",
}

// defaultNetworks picks a chain when the caller names none.
var defaultNetworks = map[string]string{
	"USDT": "TRC20",
}

var errorMap = exchange.ErrorMap{
	Exact: map[string]exchange.Kind{
		"10001": exchange.KindBadRequest,
		"10002": exchange.KindAuthentication,
		"10003": exchange.KindBadRequest,
		"10004": exchange.KindRateLimit,
		"10005": exchange.KindAuthentication,
		"10006": exchange.KindAuthentication,
		"10007": exchange.KindAuthentication,
		"10008": exchange.KindBadSymbol,
		"10009": exchange.KindInvalidOrder,
		"10010": exchange.KindInvalidOrder,
		"10013": exchange.KindInvalidOrder,
		"10014": exchange.KindInsufficientFunds,
		"10015": exchange.KindInvalidOrder,
		"10016": exchange.KindInsufficientFunds,
		"10017": exchange.KindExchange,
		"10018": exchange.KindBadRequest,
		"10019": exchange.KindBadRequest,
		"10020": exchange.KindBadRequest,
		"10021": exchange.KindInvalidOrder,
		"10022": exchange.KindPermissionDenied,
		"10023": exchange.KindInvalidOrder,
		"10024": exchange.KindPermissionDenied,
		"10025": exchange.KindInvalidOrder,
		"10026": exchange.KindInvalidOrder,
		"10027": exchange.KindInvalidOrder,
		"10028": exchange.KindBadRequest,
		"10029": exchange.KindBadRequest,
		"10030": exchange.KindBadRequest,
		"10031": exchange.KindInvalidNonce,
		"10033": exchange.KindExchange,
		"10036": exchange.KindDuplicateOrderID,
		"10100": exchange.KindPermissionDenied,
		"10101": exchange.KindBadRequest,
		"10102": exchange.KindInsufficientFunds,
		"10103": exchange.KindExchange,
		"10104": exchange.KindExchange,
		"10105": exchange.KindExchange,
		"10106": exchange.KindBadRequest,
		"10107": exchange.KindBadRequest,
		"10108": exchange.KindExchange,
		"10109": exchange.KindInvalidAddress,
		"10110": exchange.KindExchange,
		"10111": exchange.KindBadRequest,
		"10112": exchange.KindBadRequest,
		"10113": exchange.KindBadRequest,
		"10600": exchange.KindBadRequest,
		"10601": exchange.KindExchange,
		"10701": exchange.KindBadSymbol,
		"10702": exchange.KindPermissionDenied,
	},
}

// errorMessages translates the venue's numeric codes; responses carry no
// message text of their own.
var errorMessages = map[string]string{
	"10000": "Internal error",
	"10001": "The required parameters can not be empty",
	"10002": "Validation failed",
	"10003": "Invalid parameter",
	"10004": "Request too frequent",
	"10005": "Secret key does not exist",
	"10006": "User does not exist",
	"10007": "Invalid signature",
	"10008": "Invalid Trading Pair",
	"10009": "Price and/or Amount are required for limit order",
	"10010": "Price and/or Amount must be less than minimum requirement",
	"10013": "The amount is too small",
	"10014": "Insufficient amount of money in the account",
	"10015": "Invalid order type",
	"10016": "Insufficient account balance",
	"10017": "Server Error",
	"10018": "Page size should be between 1 and 50",
	"10019": "Cancel NO more than 3 orders in one request",
	"10020": "Volume < 0.001",
	"10021": "Price < 0.01",
	"10022": "Invalid authorization",
	"10023": "Market Order is not supported yet",
	"10024": "User cannot trade on this pair",
	"10025": "Order has been filled",
	"10026": "Order has been cancelled",
	"10027": "Order is cancelling",
	"10028": "Wrong query time",
	"10029": "from is not in the query time",
	"10030": "from do not match the transaction type of inquiry",
	"10031": "echostr length must be valid and length must be from 30 to 40",
	"10033": "Failed to create order",
	"10036": "customID duplicated",
	"10100": "Has no privilege to withdraw",
	"10101": "Invalid fee rate to withdraw",
	"10102": "Too little to withdraw",
	"10103": "Exceed daily limitation of withdraw",
	"10104": "Cancel was rejected",
	"10105": "Request has been cancelled",
	"10106": "None trade time",
	"10107": "Start price exception",
	"10108": "can not create order",
	"10109": "wallet address is not mapping",
	"10110": "transfer fee is not mapping",
	"10111": "mount > 0",
	"10112": "fee is too lower",
	"10113": "transfer fee is 0",
	"10600": "intercepted by replay attacks filter, check timestamp",
	"10601": "Interface closed unavailable",
	"10701": "invalid asset code",
	"10702": "not allowed deposit",
}

// Status 4 is "disposal processing", reported for orders the matching
// engine has finished with.
var orderStatuses = map[string]string{
	"-1": models.OrderStatusCanceled,
	"0":  models.OrderStatusOpen,
	"1":  models.OrderStatusOpen,
	"2":  models.OrderStatusClosed,
	"3":  models.OrderStatusCanceled,
	"4":  models.OrderStatusClosed,
}

// Transaction statuses overload numeric values per direction.
var depositStatuses = map[string]string{
	"1": models.TransactionPending,
	"2": models.TransactionOK,
	"3": models.TransactionFailed,
	"4": models.TransactionCanceled,
	"5": "transfer", // intra-venue move, no unified status
}

var withdrawalStatuses = map[string]string{
	"1": models.TransactionPending,
	"2": models.TransactionCanceled,
	"3": models.TransactionFailed,
	"4": models.TransactionOK,
}

// Options tunes adapter construction.
type Options struct {
	BaseURL       string
	Timeout       time.Duration
	RatePerSecond float64
}

// Adapter is one LBank session.
type Adapter struct {
	creds   exchange.Credentials
	baseURL string
	client  *exchange.Client
	markets exchange.MarketMap
	nonce   exchange.NonceSource
	log     *logger.Log
}

// New builds an LBank adapter.
func New(creds exchange.Credentials, opts Options) *Adapter {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = "https://api.lbank.info"
	}
	a := &Adapter{
		creds:   creds,
		baseURL: baseURL,
		log:     logger.GetLogger(),
	}
	a.client = exchange.NewClient(id, exchange.ClientOptions{
		Timeout:           opts.Timeout,
		RequestsPerSecond: opts.RatePerSecond,
	}, handleErrors)
	return a
}

// ID returns the adapter identifier.
func (a *Adapter) ID() string { return id }

// handleErrors classifies {"result":"false","error_code":10007} envelopes.
// result can be a bool or the strings "true"/"false"; failed responses carry
// only a numeric code, so the message is looked up locally.
func handleErrors(res *exchange.Response) error {
	if !res.JSON.IsObject() {
		return nil
	}
	result := res.JSON.Get("result")
	if !result.Exists() || result.String() == "true" {
		return nil
	}
	code := res.JSON.Get("error_code").String()
	message, ok := errorMessages[code]
	if !ok {
		message = string(res.Body)
	}
	if kind, ok := errorMap.MatchExact(code); ok {
		return exchange.NewError(kind, id, message)
	}
	return exchange.NewError(exchange.KindExchange, id, message)
}

func (a *Adapter) publicGet(ctx context.Context, path string, params map[string]string) (*exchange.Response, error) {
	url := a.baseURL + "/v2" + path + ".do"
	if query := exchange.URLEncode(params); query != "" {
		url += "?" + query
	}
	return a.client.Do(ctx, exchange.Request{Method: http.MethodGet, URL: url})
}

// privatePost signs the sorted parameter set. The raw key=value string plus
// api_key, echostr, signature_method and timestamp is hashed with MD5 and
// uppercased; that digest is what actually gets signed. Secrets longer than
// 32 characters are bare base64 RSA keys, anything shorter is an HMAC
// secret. echostr and timestamp travel as headers, the signature as a form
// field.
func (a *Adapter) privatePost(ctx context.Context, path string, params map[string]string) (*exchange.Response, error) {
	if a.creds.APIKey == "" || a.creds.Secret == "" {
		return nil, exchange.NewError(exchange.KindAuthentication, id, "apiKey and secret required for private endpoints")
	}
	timestamp := strconv.FormatInt(a.nonce.Milliseconds(), 10)
	echostr := strings.ReplaceAll(uuid.NewString(), "-", "")
	signatureMethod := "HmacSHA256"
	if len(a.creds.Secret) > 32 {
		signatureMethod = "RSA"
	}
	form := map[string]string{"api_key": a.creds.APIKey}
	for k, v := range params {
		form[k] = v
	}
	signed := map[string]string{
		"echostr":          echostr,
		"signature_method": signatureMethod,
		"timestamp":        timestamp,
	}
	for k, v := range form {
		signed[k] = v
	}
	digest := exchange.MD5HexUpper(exchange.RawEncode(signed))
	var sign string
	if signatureMethod == "RSA" {
		var err error
		sign, err = exchange.SignRSASHA256Base64(digest, a.creds.Secret)
		if err != nil {
			return nil, exchange.WrapError(exchange.KindAuthentication, id, err)
		}
	} else {
		sign = exchange.HMACSHA256Hex(digest, a.creds.Secret)
	}
	form["sign"] = sign
	return a.client.Do(ctx, exchange.Request{
		Method: http.MethodPost,
		URL:    a.baseURL + "/v2" + path + ".do",
		Headers: map[string]string{
			"Content-Type":     "application/x-www-form-urlencoded",
			"timestamp":        timestamp,
			"signature_method": signatureMethod,
			"echostr":          echostr,
		},
		Body: exchange.URLEncode(form),
	})
}

// FetchTime reads the venue clock and records the local offset so signed
// request timestamps survive the replay filter.
func (a *Adapter) FetchTime(ctx context.Context) (int64, error) {
	res, err := a.publicGet(ctx, "/timestamp", nil)
	if err != nil {
		return 0, err
	}
	serverTime := res.JSON.Get("data").Int()
	if serverTime > 0 {
		a.nonce.SetOffset(serverTime - time.Now().UnixMilli())
	}
	return serverTime, nil
}

// LoadMarkets populates the market cache once.
func (a *Adapter) LoadMarkets(ctx context.Context) error {
	return a.markets.Ensure(ctx, a.FetchMarkets)
}

// FetchMarkets reads /accuracy, which lists pairs with digit-count
// precisions.
func (a *Adapter) FetchMarkets(ctx context.Context) ([]models.Market, error) {
	res, err := a.publicGet(ctx, "/accuracy", nil)
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

// parseMarket normalizes one accuracy row. Market ids are base_quote in
// lowercase.
func parseMarket(raw gjson.Result) models.Market {
	marketID := raw.Get("symbol").String()
	baseID, quoteID, _ := strings.Cut(marketID, "_")
	base := strings.ToUpper(baseID)
	quote := strings.ToUpper(quoteID)
	return models.Market{
		ID:      marketID,
		Symbol:  base + "/" + quote,
		Base:    base,
		Quote:   quote,
		BaseID:  baseID,
		QuoteID: quoteID,
		Type:    "spot",
		Spot:    true,
		Active:  true,
		Precision: models.MarketPrecision{
			Amount: exchange.TickFromDigits(raw.Get("quantityAccuracy").Int()),
			Price:  exchange.TickFromDigits(raw.Get("priceAccuracy").Int()),
		},
		Limits: models.MarketLimits{
			Amount: models.MinMax{Min: exchange.Dec(raw.Get("minTranQua"))},
		},
		Info: raw,
	}
}

// FetchTicker reads /ticker/24hr for one pair.
func (a *Adapter) FetchTicker(ctx context.Context, symbol string) (models.Ticker, error) {
	if err := a.LoadMarkets(ctx); err != nil {
		return models.Ticker{}, err
	}
	market, err := a.markets.BySymbol(id, symbol)
	if err != nil {
		return models.Ticker{}, err
	}
	res, err := a.publicGet(ctx, "/ticker/24hr", map[string]string{"symbol": market.ID})
	if err != nil {
		return models.Ticker{}, err
	}
	rows := res.JSON.Get("data").Array()
	if len(rows) == 0 {
		return models.Ticker{}, exchange.NewError(exchange.KindBadSymbol, id, "no ticker for "+symbol)
	}
	return a.parseTicker(rows[0]), nil
}

// FetchTickers reads /ticker/24hr with symbol=all.
func (a *Adapter) FetchTickers(ctx context.Context, symbols []string) (map[string]models.Ticker, error) {
	if err := a.LoadMarkets(ctx); err != nil {
		return nil, err
	}
	res, err := a.publicGet(ctx, "/ticker/24hr", map[string]string{"symbol": "all"})
	if err != nil {
		return nil, err
	}
	wanted := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		wanted[s] = true
	}
	tickers := make(map[string]models.Ticker)
	for _, raw := range res.JSON.Get("data").Array() {
		ticker := a.parseTicker(raw)
		if ticker.Symbol == "" {
			continue
		}
		if len(symbols) == 0 || wanted[ticker.Symbol] {
			tickers[ticker.Symbol] = ticker
		}
	}
	return tickers, nil
}

// parseTicker normalizes one 24hr row. The interesting values live in a
// nested "ticker" object; change is already a percentage.
func (a *Adapter) parseTicker(raw gjson.Result) models.Ticker {
	t := raw.Get("ticker")
	last := exchange.Dec(t.Get("latest"))
	return models.Ticker{
		Symbol:      a.markets.SymbolForID(raw.Get("symbol").String()),
		Timestamp:   raw.Get("timestamp").Int(),
		High:        exchange.Dec(t.Get("high")),
		Low:         exchange.Dec(t.Get("low")),
		Last:        last,
		Close:       last,
		Percentage:  exchange.Dec(t.Get("change")),
		BaseVolume:  exchange.Dec(t.Get("vol")),
		QuoteVolume: exchange.Dec(t.Get("turnover")),
		Info:        raw,
	}
}

// FetchOrderBook reads /depth. size covers both sides and defaults to 60.
func (a *Adapter) FetchOrderBook(ctx context.Context, symbol string, limit int) (models.OrderBook, error) {
	if err := a.LoadMarkets(ctx); err != nil {
		return models.OrderBook{}, err
	}
	market, err := a.markets.BySymbol(id, symbol)
	if err != nil {
		return models.OrderBook{}, err
	}
	size := 60
	if limit > 0 {
		size = limit
	}
	res, err := a.publicGet(ctx, "/depth", map[string]string{
		"symbol": market.ID,
		"size":   strconv.Itoa(size),
	})
	if err != nil {
		return models.OrderBook{}, err
	}
	data := res.JSON.Get("data")
	return models.OrderBook{
		Symbol:    market.Symbol,
		Timestamp: res.JSON.Get("ts").Int(),
		Bids:      parseBookSide(data.Get("bids")),
		Asks:      parseBookSide(data.Get("asks")),
		Info:      data,
	}, nil
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

// FetchTrades reads /trades. The venue caps size at 600.
func (a *Adapter) FetchTrades(ctx context.Context, symbol string, since int64, limit int) ([]models.Trade, error) {
	if err := a.LoadMarkets(ctx); err != nil {
		return nil, err
	}
	market, err := a.markets.BySymbol(id, symbol)
	if err != nil {
		return nil, err
	}
	size := 600
	if limit > 0 && limit < size {
		size = limit
	}
	params := map[string]string{
		"symbol": market.ID,
		"size":   strconv.Itoa(size),
	}
	if since > 0 {
		params["time"] = strconv.FormatInt(since, 10)
	}
	res, err := a.publicGet(ctx, "/trades", params)
	if err != nil {
		return nil, err
	}
	trades := make([]models.Trade, 0)
	for _, raw := range res.JSON.Get("data").Array() {
		trades = append(trades, parseTrade(raw, market))
	}
	return exchange.FilterSinceLimit(trades, func(t models.Trade) int64 { return t.Timestamp }, since, limit), nil
}

// parseTrade handles public rows (tid/date_ms/type) and private fills
// (txUuid/dealTime/tradeType). Sides arrive as buy, sell, buy_market,
// sell_maker and the other underscore variants.
func parseTrade(raw gjson.Result, market models.Market) models.Trade {
	rawSide := exchange.StrField(raw, "tradeType", "type")
	side, variant, _ := strings.Cut(rawSide, "_")
	tradeType := ""
	takerOrMaker := ""
	switch variant {
	case "market":
		tradeType = models.OrderTypeMarket
	case "maker":
		tradeType = models.OrderTypeLimit
		takerOrMaker = "maker"
	case "ioc", "fok":
		tradeType = models.OrderTypeLimit
		takerOrMaker = "taker"
	}
	price := exchange.DecField(raw, "price", "dealPrice")
	amount := exchange.DecField(raw, "amount", "dealQuantity")
	cost := exchange.Dec(raw.Get("dealVolumePrice"))
	if cost == nil {
		cost = exchange.MulDec(price, amount)
	}
	trade := models.Trade{
		ID:           exchange.StrField(raw, "tid", "txUuid"),
		OrderID:      raw.Get("orderUuid").String(),
		Symbol:       market.Symbol,
		Side:         side,
		Type:         tradeType,
		TakerOrMaker: takerOrMaker,
		Timestamp:    exchange.IntField(raw, "date_ms", "dealTime"),
		Price:        price,
		Amount:       amount,
		Cost:         cost,
		Info:         raw,
	}
	if feeCost := exchange.Dec(raw.Get("tradeFee")); feeCost != nil {
		feeCurrency := market.Quote
		if side == models.SideBuy {
			feeCurrency = market.Base
		}
		trade.Fee = &models.Fee{
			Currency: feeCurrency,
			Cost:     feeCost,
			Rate:     exchange.Dec(raw.Get("tradeFeeRate")),
		}
	}
	return trade
}

// FetchOHLCV reads /kline. The time parameter and the row timestamps are in
// seconds; size is capped at 2000 and the venue includes the boundary
// candle, hence limit+1.
func (a *Adapter) FetchOHLCV(ctx context.Context, symbol, timeframe string, since int64, limit int) ([]models.OHLCV, error) {
	if err := a.LoadMarkets(ctx); err != nil {
		return nil, err
	}
	market, err := a.markets.BySymbol(id, symbol)
	if err != nil {
		return nil, err
	}
	klineType, ok := Timeframes[timeframe]
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
	if since <= 0 {
		since = time.Now().UnixMilli() - int64(limit)*duration.Milliseconds()
	}
	size := limit + 1
	if size > 2000 {
		size = 2000
	}
	res, err := a.publicGet(ctx, "/kline", map[string]string{
		"symbol": market.ID,
		"type":   klineType,
		"time":   strconv.FormatInt(since/1000, 10),
		"size":   strconv.Itoa(size),
	})
	if err != nil {
		return nil, err
	}
	rows := res.JSON.Get("data").Array()
	candles := make([]models.OHLCV, 0, len(rows))
	for _, raw := range rows {
		row := raw.Array()
		if len(row) < 6 {
			continue
		}
		candles = append(candles, models.OHLCV{
			Timestamp: row[0].Int() * 1000,
			Open:      exchange.Dec(row[1]),
			High:      exchange.Dec(row[2]),
			Low:       exchange.Dec(row[3]),
			Close:     exchange.Dec(row[4]),
			Volume:    exchange.Dec(row[5]),
		})
	}
	sort.Slice(candles, func(i, j int) bool { return candles[i].Timestamp < candles[j].Timestamp })
	return exchange.FilterSinceLimit(candles, func(c models.OHLCV) int64 { return c.Timestamp }, since, limit), nil
}

// FetchBalance reads /supplement/user_info, which lists one row per coin.
func (a *Adapter) FetchBalance(ctx context.Context) (models.Balance, error) {
	res, err := a.privatePost(ctx, "/supplement/user_info", nil)
	if err != nil {
		return models.Balance{}, err
	}
	balance := models.Balance{Accounts: make(map[string]models.Account), Info: res.JSON}
	for _, raw := range res.JSON.Get("data").Array() {
		code := strings.ToUpper(raw.Get("coin").String())
		balance.Accounts[code] = models.Account{
			Free:  exchange.Dec(raw.Get("usableAmt")),
			Used:  exchange.Dec(raw.Get("freezeAmt")),
			Total: exchange.Dec(raw.Get("assetAmt")),
		}
	}
	return balance, nil
}

// CreateOrder posts to /supplement/create_order. The venue encodes type,
// side and time in force into one field: buy, sell_ioc, buy_maker and so
// on. Market buys spend quote currency, passed through the price field.
func (a *Adapter) CreateOrder(ctx context.Context, symbol, orderType, side string, amount, price *decimal.Decimal, opts *exchange.OrderOptions) (models.Order, error) {
	if amount == nil {
		return models.Order{}, exchange.NewError(exchange.KindArgumentsRequired, id, "createOrder requires an amount")
	}
	if orderType != models.OrderTypeLimit && orderType != models.OrderTypeMarket {
		return models.Order{}, exchange.NewError(exchange.KindInvalidOrder, id, "only limit and market orders are supported")
	}
	if opts == nil {
		opts = &exchange.OrderOptions{}
	}
	tif := strings.ToUpper(opts.TimeInForce)
	maker := opts.PostOnly || tif == models.TimeInForcePO
	if orderType == models.OrderTypeMarket && (maker || tif == models.TimeInForceIOC || tif == models.TimeInForceFOK) {
		return models.Order{}, exchange.NewError(exchange.KindInvalidOrder, id,
			"market orders cannot carry a time in force, only limit IOC, FOK and post-only orders are allowed")
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
	params := map[string]string{"symbol": market.ID}
	switch {
	case orderType == models.OrderTypeLimit:
		venueType := side
		switch {
		case tif == models.TimeInForceIOC:
			venueType = side + "_ioc"
		case tif == models.TimeInForceFOK:
			venueType = side + "_fok"
		case maker:
			venueType = side + "_maker"
		}
		params["type"] = venueType
		params["price"] = price.String()
		params["amount"] = exchange.FormatAmount(*amount, market.Precision.Amount)
	case side == models.SideSell:
		params["type"] = "sell_market"
		params["amount"] = exchange.FormatAmount(*amount, market.Precision.Amount)
	default:
		// Market buys size the order by quote spend in the price field.
		params["type"] = "buy_market"
		params["price"] = amount.Mul(*price).String()
	}
	if opts.ClientOrderID != "" {
		params["custom_id"] = opts.ClientOrderID
	}
	for k, v := range opts.Params {
		params[k] = v
	}
	res, err := a.privatePost(ctx, "/supplement/create_order", params)
	if err != nil {
		return models.Order{}, err
	}
	data := res.JSON.Get("data")
	return models.Order{
		ID:            data.Get("order_id").String(),
		ClientOrderID: opts.ClientOrderID,
		Symbol:        market.Symbol,
		Type:          orderType,
		Side:          side,
		Status:        models.OrderStatusOpen,
		Amount:        amount,
		Price:         price,
		Info:          data,
	}, nil
}

// CancelOrder posts to /supplement/cancel_order. Orders are indexed per
// symbol.
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
	res, err := a.privatePost(ctx, "/supplement/cancel_order", map[string]string{
		"symbol":  market.ID,
		"orderId": orderID,
	})
	if err != nil {
		return models.Order{}, err
	}
	order := a.parseOrder(res.JSON.Get("data"))
	if order.ID == "" {
		order.ID = orderID
	}
	if order.Symbol == "" {
		order.Symbol = market.Symbol
	}
	return order, nil
}

// CancelAllOrders posts to /supplement/cancel_order_by_symbol and returns
// the orders the venue reports as cancelled.
func (a *Adapter) CancelAllOrders(ctx context.Context, symbol string) ([]models.Order, error) {
	if symbol == "" {
		return nil, exchange.NewError(exchange.KindArgumentsRequired, id, "cancelAllOrders requires a symbol")
	}
	if err := a.LoadMarkets(ctx); err != nil {
		return nil, err
	}
	market, err := a.markets.BySymbol(id, symbol)
	if err != nil {
		return nil, err
	}
	res, err := a.privatePost(ctx, "/supplement/cancel_order_by_symbol", map[string]string{
		"symbol": market.ID,
	})
	if err != nil {
		return nil, err
	}
	orders := make([]models.Order, 0)
	for _, raw := range res.JSON.Get("data").Array() {
		order := a.parseOrder(raw)
		if order.Symbol == "" {
			order.Symbol = market.Symbol
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// FetchOrder reads /supplement/orders_info for one order.
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
	res, err := a.privatePost(ctx, "/supplement/orders_info", map[string]string{
		"symbol":  market.ID,
		"orderId": orderID,
	})
	if err != nil {
		return models.Order{}, err
	}
	data := res.JSON.Get("data")
	if !data.IsObject() {
		return models.Order{}, exchange.NewError(exchange.KindOrderNotFound, id, "no order "+orderID)
	}
	order := a.parseOrder(data)
	if order.Symbol == "" {
		order.Symbol = market.Symbol
	}
	return order, nil
}

// FetchOpenOrders reads /supplement/orders_info_no_deal, paginated; one page
// is fetched.
func (a *Adapter) FetchOpenOrders(ctx context.Context, symbol string, since int64, limit int) ([]models.Order, error) {
	return a.fetchOrderPage(ctx, "/supplement/orders_info_no_deal", symbol, since, limit)
}

// FetchClosedOrders reads /supplement/orders_info_history, which covers
// filled and cancelled orders.
func (a *Adapter) FetchClosedOrders(ctx context.Context, symbol string, since int64, limit int) ([]models.Order, error) {
	return a.fetchOrderPage(ctx, "/supplement/orders_info_history", symbol, since, limit)
}

func (a *Adapter) fetchOrderPage(ctx context.Context, path, symbol string, since int64, limit int) ([]models.Order, error) {
	if symbol == "" {
		return nil, exchange.NewError(exchange.KindArgumentsRequired, id, "order history requires a symbol")
	}
	if err := a.LoadMarkets(ctx); err != nil {
		return nil, err
	}
	market, err := a.markets.BySymbol(id, symbol)
	if err != nil {
		return nil, err
	}
	pageLength := 100
	if limit > 0 {
		pageLength = limit
	}
	res, err := a.privatePost(ctx, path, map[string]string{
		"symbol":       market.ID,
		"current_page": "1",
		"page_length":  strconv.Itoa(pageLength),
	})
	if err != nil {
		return nil, err
	}
	orders := make([]models.Order, 0)
	for _, raw := range res.JSON.Get("data.orders").Array() {
		order := a.parseOrder(raw)
		if order.Symbol == "" {
			order.Symbol = market.Symbol
		}
		orders = append(orders, order)
	}
	return exchange.FilterSinceLimit(orders, func(o models.Order) int64 { return o.Timestamp }, since, limit), nil
}

// FetchMyTrades reads /transaction_history. The venue filters by calendar
// date, so since is widened to the covering two-day window.
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
	if limit > 0 {
		params["size"] = strconv.Itoa(limit)
	}
	if since > 0 {
		params["start_date"] = ymd(since)
		params["end_date"] = ymd(since + 86400000)
	}
	res, err := a.privatePost(ctx, "/transaction_history", params)
	if err != nil {
		return nil, err
	}
	trades := make([]models.Trade, 0)
	for _, raw := range res.JSON.Get("data").Array() {
		trades = append(trades, parseTrade(raw, market))
	}
	return exchange.FilterSinceLimit(trades, func(t models.Trade) int64 { return t.Timestamp }, since, limit), nil
}

func ymd(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02")
}

// parseOrder normalizes the venue's several order row shapes. The type
// field doubles as side plus variant: buy, sell_market, buy_maker, sell_ioc
// and so on. Market buys report no base amount.
func (a *Adapter) parseOrder(raw gjson.Result) models.Order {
	statusRaw := raw.Get("status").String()
	status, ok := orderStatuses[statusRaw]
	if !ok {
		status = statusRaw
	}
	rawType := exchange.StrField(raw, "type", "tradeType")
	side, variant, _ := strings.Cut(rawType, "_")
	orderType := models.OrderTypeLimit
	timeInForce := ""
	postOnly := false
	switch variant {
	case "market":
		orderType = models.OrderTypeMarket
	case "maker":
		postOnly = true
		timeInForce = models.TimeInForcePO
	case "ioc":
		timeInForce = models.TimeInForceIOC
	case "fok":
		timeInForce = models.TimeInForceFOK
	}
	var amount *decimal.Decimal
	if rawType != "buy_market" {
		amount = exchange.DecField(raw, "origQty", "amount")
	}
	filled := exchange.DecField(raw, "executedQty", "deal_amount")
	return models.Order{
		ID:            exchange.StrField(raw, "orderId", "order_id"),
		ClientOrderID: exchange.StrField(raw, "clientOrderId", "custom_id"),
		Symbol:        a.markets.SymbolForID(raw.Get("symbol").String()),
		Type:          orderType,
		Side:          side,
		Status:        status,
		TimeInForce:   timeInForce,
		PostOnly:      postOnly,
		Timestamp:     exchange.IntField(raw, "time", "create_time"),
		Price:         exchange.Dec(raw.Get("price")),
		Amount:        amount,
		Filled:        filled,
		Remaining:     exchange.SubDec(amount, filled),
		Average:       exchange.Dec(raw.Get("avg_price")),
		Cost:          exchange.Dec(raw.Get("cummulativeQuoteQty")),
		Info:          raw,
	}
}

// FetchDepositAddress posts to /get_deposit_address. The chain travels in a
// netWork parameter, venue-spelled.
func (a *Adapter) FetchDepositAddress(ctx context.Context, code, network string) (models.DepositAddress, error) {
	upperCode := strings.ToUpper(code)
	chain := strings.ToUpper(network)
	if chain == "" {
		chain = defaultNetworks[upperCode]
	}
	params := map[string]string{"assetCode": strings.ToLower(code)}
	if chain != "" {
		if mapped, ok := Networks[chain]; ok {
			chain = mapped
		}
		params["netWork"] = chain
	}
	res, err := a.privatePost(ctx, "/get_deposit_address", params)
	if err != nil {
		return models.DepositAddress{}, err
	}
	data := res.JSON.Get("data")
	address := data.Get("address").String()
	if address == "" {
		return models.DepositAddress{}, exchange.NewError(exchange.KindInvalidAddress, id, "no deposit address for "+code)
	}
	networkID := data.Get("netWork").String()
	networkCode, ok := inverseNetworks[networkID]
	if !ok {
		networkCode = strings.ToUpper(networkID)
	}
	return models.DepositAddress{
		Currency: upperCode,
		Network:  networkCode,
		Address:  address,
		Tag:      data.Get("memo").String(),
		Info:     data,
	}, nil
}

// Withdraw requires the coin-network fee, which the venue will not pick for
// the caller; use WithdrawWithFee.
func (a *Adapter) Withdraw(ctx context.Context, code string, amount decimal.Decimal, address, tag string) (models.Transaction, error) {
	return a.WithdrawWithFee(ctx, code, amount, address, tag, "", nil)
}

// WithdrawWithFee posts to /supplement/withdraw with an explicit
// coin-network fee and optional network.
func (a *Adapter) WithdrawWithFee(ctx context.Context, code string, amount decimal.Decimal, address, tag, network string, fee *decimal.Decimal) (models.Transaction, error) {
	if address == "" {
		return models.Transaction{}, exchange.NewError(exchange.KindInvalidAddress, id, "withdraw requires an address")
	}
	if fee == nil {
		return models.Transaction{}, exchange.NewError(exchange.KindArgumentsRequired, id, "withdraw requires the coin-network fee")
	}
	params := map[string]string{
		"address": address,
		"coin":    strings.ToLower(code),
		"amount":  amount.String(),
		"fee":     fee.String(),
	}
	if tag != "" {
		params["memo"] = tag
	}
	if network != "" {
		chain := strings.ToUpper(network)
		if mapped, ok := Networks[chain]; ok {
			params["networkName"] = mapped
		} else {
			params["networkName"] = network
		}
	}
	res, err := a.privatePost(ctx, "/supplement/withdraw", params)
	if err != nil {
		return models.Transaction{}, err
	}
	data := res.JSON.Get("data")
	return models.Transaction{
		ID:       data.Get("withdrawId").String(),
		Type:     models.TransactionWithdrawal,
		Currency: strings.ToUpper(code),
		Amount:   &amount,
		Fee:      &models.Fee{Currency: strings.ToUpper(code), Cost: exchange.Dec(data.Get("fee"))},
		Info:     data,
	}, nil
}

// FetchDeposits reads /supplement/deposit_history.
func (a *Adapter) FetchDeposits(ctx context.Context, code string, since int64, limit int) ([]models.Transaction, error) {
	return a.fetchTransactions(ctx, "/supplement/deposit_history", "depositOrders", code, since, limit)
}

// FetchWithdrawals reads /supplement/withdraws.
func (a *Adapter) FetchWithdrawals(ctx context.Context, code string, since int64, limit int) ([]models.Transaction, error) {
	return a.fetchTransactions(ctx, "/supplement/withdraws", "withdraws", code, since, limit)
}

func (a *Adapter) fetchTransactions(ctx context.Context, path, listKey, code string, since int64, limit int) ([]models.Transaction, error) {
	params := map[string]string{}
	if code != "" {
		params["coin"] = strings.ToLower(code)
	}
	if since > 0 {
		params["startTime"] = strconv.FormatInt(since, 10)
	}
	res, err := a.privatePost(ctx, path, params)
	if err != nil {
		return nil, err
	}
	out := make([]models.Transaction, 0)
	for _, raw := range res.JSON.Get("data." + listKey).Array() {
		out = append(out, parseTransaction(raw))
	}
	return exchange.FilterSinceLimit(out, func(t models.Transaction) int64 { return t.Timestamp }, since, limit), nil
}

// parseTransaction normalizes a transfer row. Only withdrawals carry an id;
// the withdrawal coin field is misspelled venue-side as "coid".
func parseTransaction(raw gjson.Result) models.Transaction {
	txID := raw.Get("id").String()
	txType := models.TransactionDeposit
	statuses := depositStatuses
	if txID != "" {
		txType = models.TransactionWithdrawal
		statuses = withdrawalStatuses
	}
	statusRaw := raw.Get("status").String()
	status, ok := statuses[statusRaw]
	if !ok {
		status = statusRaw
	}
	networkID := raw.Get("networkName").String()
	network, ok := inverseNetworks[networkID]
	if !ok {
		network = networkID
	}
	code := strings.ToUpper(exchange.StrField(raw, "coin", "coid"))
	tx := models.Transaction{
		ID:        txID,
		TxID:      raw.Get("txId").String(),
		Type:      txType,
		Currency:  code,
		Network:   network,
		Address:   raw.Get("address").String(),
		Status:    status,
		Timestamp: exchange.IntField(raw, "insertTime", "applyTime"),
		Amount:    exchange.Dec(raw.Get("amount")),
		Info:      raw,
	}
	if feeCost := exchange.Dec(raw.Get("fee")); feeCost != nil {
		tx.Fee = &models.Fee{Currency: code, Cost: feeCost}
	}
	return tx
}
