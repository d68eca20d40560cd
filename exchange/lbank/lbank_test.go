package lbank

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"tradewire/exchange"
	"tradewire/models"
)

const marketFixture = `{
	"symbol": "btc_usdt",
	"quantityAccuracy": "4",
	"minTranQua": "0.0001",
	"priceAccuracy": "2"
}`

const orderFixture = `{
	"cummulativeQuoteQty": 0,
	"symbol": "doge_usdt",
	"executedQty": 0,
	"orderId": "53d2d53e-70fb-4398-b722-f48571a5f61e",
	"origQty": 100,
	"price": 0.05,
	"clientOrderId": null,
	"origQuoteOrderQty": 5,
	"updateTime": 1648163406000,
	"time": 1648163139387,
	"type": "buy_maker",
	"status": -1
}`

const marketBuyOrderFixture = `{
	"symbol": "shib_usdt",
	"amount": 1,
	"create_time": 1649367863356,
	"price": 0.0000246103,
	"avg_price": 0.00002466180000000104,
	"type": "buy_market",
	"order_id": "abe8b92d-86d9-4d6d-b71e-d14f5fb53ddf",
	"custom_id": "007",
	"deal_amount": 40548.54065802,
	"status": 2
}`

const myTradeFixture = `{
	"orderUuid": "38b4e7a4-14f6-45fd-aba1-1a37024124a0",
	"tradeFeeRate": 0.0010000000,
	"dealTime": 1648500944496,
	"dealQuantity": 30.00000000000000000000,
	"tradeFee": 0.00453300000000000000,
	"txUuid": "11f3850cc6214ea3b495adad3a032794",
	"dealPrice": 0.15111300000000000000,
	"dealVolumePrice": 4.53339000000000000000,
	"tradeType": "sell_market"
}`

const depositFixture = `{
	"insertTime": 1649012310000,
	"amount": 9.00000000000000000000,
	"address": "TYASr5UV6HEcXatwdFQfmLVUqQQQMUxHLS",
	"networkName": "trc20",
	"txId": "081e4e9351dd0274922168da5f2d14ea6c495b1c3b440244f4a6dd9fe196bf2b",
	"coin": "usdt",
	"status": "2"
}`

const withdrawalFixture = `{
	"amount": 2.00000000000000000000,
	"address": "TBjrW5JHDyPZjFc5nrRMhRWUDaJmhGhmD6",
	"fee": 1.00000000000000000000,
	"networkName": "trc20",
	"coid": "usdt",
	"txId": "47eeee2763ad49b8817524dacfa7d092fb58f8b0ab7e5d25473314df1a793c3d",
	"id": 1902194,
	"applyTime": 1649014002000,
	"status": "4"
}`

func dec(s string) *decimal.Decimal {
	v := decimal.RequireFromString(s)
	return &v
}

func TestParseMarket(t *testing.T) {
	market := parseMarket(gjson.Parse(marketFixture))
	if market.Symbol != "BTC/USDT" || market.ID != "btc_usdt" {
		t.Fatalf("symbol/id = %q/%q", market.Symbol, market.ID)
	}
	if !market.Spot || !market.Active {
		t.Fatalf("flags = %+v", market)
	}
	// Precisions arrive as digit counts.
	if market.Precision.Amount == nil || market.Precision.Amount.String() != "0.0001" {
		t.Fatalf("amount precision = %v", market.Precision.Amount)
	}
	if market.Precision.Price == nil || market.Precision.Price.String() != "0.01" {
		t.Fatalf("price precision = %v", market.Precision.Price)
	}
	if market.Limits.Amount.Min == nil || !market.Limits.Amount.Min.Equal(decimal.RequireFromString("0.0001")) {
		t.Fatalf("min amount = %v", market.Limits.Amount.Min)
	}
}

func TestParseOrder(t *testing.T) {
	a := New(exchange.Credentials{}, Options{})
	order := a.parseOrder(gjson.Parse(orderFixture))
	if order.ID != "53d2d53e-70fb-4398-b722-f48571a5f61e" {
		t.Fatalf("id = %q", order.ID)
	}
	if order.Status != models.OrderStatusCanceled {
		t.Fatalf("status = %q", order.Status)
	}
	// buy_maker splits into a post-only limit buy.
	if order.Side != models.SideBuy || order.Type != models.OrderTypeLimit {
		t.Fatalf("side/type = %q/%q", order.Side, order.Type)
	}
	if !order.PostOnly || order.TimeInForce != models.TimeInForcePO {
		t.Fatalf("postOnly/tif = %v/%q", order.PostOnly, order.TimeInForce)
	}
	if order.Timestamp != 1648163139387 {
		t.Fatalf("timestamp = %d", order.Timestamp)
	}
	if order.Remaining == nil || !order.Remaining.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("remaining = %v", order.Remaining)
	}
}

func TestParseOrderMarketBuyDropsAmount(t *testing.T) {
	a := New(exchange.Credentials{}, Options{})
	order := a.parseOrder(gjson.Parse(marketBuyOrderFixture))
	if order.Type != models.OrderTypeMarket || order.Side != models.SideBuy {
		t.Fatalf("type/side = %q/%q", order.Type, order.Side)
	}
	if order.Status != models.OrderStatusClosed {
		t.Fatalf("status = %q", order.Status)
	}
	if order.ClientOrderID != "007" {
		t.Fatalf("clientOrderId = %q", order.ClientOrderID)
	}
	// Market buys report the quote spend in the amount field, so it is
	// not a base quantity.
	if order.Amount != nil {
		t.Fatalf("amount = %v, want nil", order.Amount)
	}
	if order.Filled == nil || !order.Filled.Equal(decimal.RequireFromString("40548.54065802")) {
		t.Fatalf("filled = %v", order.Filled)
	}
}

func TestParseOrderStatuses(t *testing.T) {
	cases := map[string]string{
		"-1": models.OrderStatusCanceled,
		"0":  models.OrderStatusOpen,
		"1":  models.OrderStatusOpen,
		"2":  models.OrderStatusClosed,
		"3":  models.OrderStatusCanceled,
		"4":  models.OrderStatusClosed,
		"9":  "9",
	}
	a := New(exchange.Credentials{}, Options{})
	for raw, want := range cases {
		order := a.parseOrder(gjson.Parse(`{"type":"buy","status":"` + raw + `"}`))
		if order.Status != want {
			t.Errorf("status %q = %q, want %q", raw, order.Status, want)
		}
	}
}

func TestParseTrade(t *testing.T) {
	market := models.Market{Symbol: "DOGE/USDT", Base: "DOGE", Quote: "USDT"}
	trade := parseTrade(gjson.Parse(myTradeFixture), market)
	if trade.ID != "11f3850cc6214ea3b495adad3a032794" {
		t.Fatalf("id = %q", trade.ID)
	}
	if trade.OrderID != "38b4e7a4-14f6-45fd-aba1-1a37024124a0" {
		t.Fatalf("orderId = %q", trade.OrderID)
	}
	if trade.Side != models.SideSell || trade.Type != models.OrderTypeMarket {
		t.Fatalf("side/type = %q/%q", trade.Side, trade.Type)
	}
	if trade.Timestamp != 1648500944496 {
		t.Fatalf("timestamp = %d", trade.Timestamp)
	}
	if trade.Cost == nil || !trade.Cost.Equal(decimal.RequireFromString("4.53339")) {
		t.Fatalf("cost = %v", trade.Cost)
	}
	// Sellers pay the fee in quote currency.
	if trade.Fee == nil || trade.Fee.Currency != "USDT" {
		t.Fatalf("fee = %+v", trade.Fee)
	}
	if trade.Fee.Rate == nil || !trade.Fee.Rate.Equal(decimal.RequireFromString("0.001")) {
		t.Fatalf("fee rate = %v", trade.Fee.Rate)
	}

	public := parseTrade(gjson.Parse(`{"date_ms":1647021989789,"amount":0.0028,"price":38804.2,"type":"buy","tid":"52d5616ee35c43019edddebe59b3e094"}`), market)
	if public.Side != models.SideBuy || public.Type != "" {
		t.Fatalf("side/type = %q/%q", public.Side, public.Type)
	}
	if public.Cost == nil {
		t.Fatal("cost must derive from price and amount")
	}
	if public.Fee != nil {
		t.Fatalf("public fee = %+v", public.Fee)
	}
}

func TestParseTransaction(t *testing.T) {
	tx := parseTransaction(gjson.Parse(depositFixture))
	if tx.Type != models.TransactionDeposit || tx.Status != models.TransactionOK {
		t.Fatalf("type/status = %q/%q", tx.Type, tx.Status)
	}
	if tx.Currency != "USDT" || tx.Network != "TRC20" {
		t.Fatalf("currency/network = %q/%q", tx.Currency, tx.Network)
	}
	if tx.Timestamp != 1649012310000 {
		t.Fatalf("timestamp = %d", tx.Timestamp)
	}

	// Withdrawals carry an id and the misspelled coin field; status 4 is
	// success on that side of the map.
	tx = parseTransaction(gjson.Parse(withdrawalFixture))
	if tx.Type != models.TransactionWithdrawal || tx.Status != models.TransactionOK {
		t.Fatalf("type/status = %q/%q", tx.Type, tx.Status)
	}
	if tx.ID != "1902194" || tx.Currency != "USDT" {
		t.Fatalf("id/currency = %q/%q", tx.ID, tx.Currency)
	}
	if tx.Fee == nil || !tx.Fee.Cost.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("fee = %+v", tx.Fee)
	}
}

func TestHandleErrors(t *testing.T) {
	cases := []struct {
		body string
		want exchange.Kind
	}{
		{`{"result":"false","error_code":10016,"ts":1648162321043}`, exchange.KindInsufficientFunds},
		{`{"result":false,"error_code":10007}`, exchange.KindAuthentication},
		{`{"result":"false","error_code":10008}`, exchange.KindBadSymbol},
		{`{"result":"false","error_code":10036}`, exchange.KindDuplicateOrderID},
		{`{"result":"false","error_code":99999}`, exchange.KindExchange},
	}
	for _, tc := range cases {
		res := &exchange.Response{Status: 200, Body: []byte(tc.body), JSON: gjson.Parse(tc.body)}
		if err := handleErrors(res); !exchange.IsKind(err, tc.want) {
			t.Errorf("classify %s = %v, want %s", tc.body, err, tc.want)
		}
	}
	// Failed responses carry only a code; the message comes from the local
	// table.
	body := `{"result":"false","error_code":10016}`
	err := handleErrors(&exchange.Response{Status: 200, Body: []byte(body), JSON: gjson.Parse(body)})
	if err == nil || err.Error() != "lbank InsufficientFunds: Insufficient account balance" {
		t.Fatalf("err = %v", err)
	}
	ok := `{"result":"true","data":[],"error_code":0,"ts":1648162321043}`
	if err := handleErrors(&exchange.Response{Status: 200, Body: []byte(ok), JSON: gjson.Parse(ok)}); err != nil {
		t.Errorf("success body classified as %v", err)
	}
}

func TestPrivatePostSigning(t *testing.T) {
	const secret = "swordfish"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/supplement/user_info.do" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("signature_method"); got != "HmacSHA256" {
			t.Errorf("signature_method = %q", got)
		}
		echostr := r.Header.Get("echostr")
		if len(echostr) < 30 || len(echostr) > 40 {
			t.Errorf("echostr length = %d", len(echostr))
		}
		timestamp := r.Header.Get("timestamp")
		if timestamp == "" {
			t.Error("timestamp header missing")
		}
		body, _ := io.ReadAll(r.Body)
		form, err := url.ParseQuery(string(body))
		if err != nil {
			t.Fatalf("parse body: %v", err)
		}
		if form.Get("api_key") != "key" {
			t.Errorf("api_key = %q", form.Get("api_key"))
		}
		// Rebuild the digest from the form plus the header-borne fields.
		signed := map[string]string{
			"echostr":          echostr,
			"signature_method": "HmacSHA256",
			"timestamp":        timestamp,
		}
		for k := range form {
			if k != "sign" {
				signed[k] = form.Get(k)
			}
		}
		digest := exchange.MD5HexUpper(exchange.RawEncode(signed))
		if want := exchange.HMACSHA256Hex(digest, secret); form.Get("sign") != want {
			t.Errorf("sign = %q, want %q", form.Get("sign"), want)
		}
		w.Write([]byte(`{"result":"true","data":[{"coin":"usdt","usableAmt":"14.36","freezeAmt":"0.64","assetAmt":"15"}],"code":0}`))
	}))
	defer server.Close()

	a := New(exchange.Credentials{APIKey: "key", Secret: secret}, Options{BaseURL: server.URL})
	balance, err := a.FetchBalance(context.Background())
	if err != nil {
		t.Fatalf("FetchBalance: %v", err)
	}
	usdt := balance.Get("USDT")
	if usdt.Free == nil || !usdt.Free.Equal(decimal.RequireFromString("14.36")) {
		t.Fatalf("free = %v", usdt.Free)
	}
	if usdt.Used == nil || !usdt.Used.Equal(decimal.RequireFromString("0.64")) {
		t.Fatalf("used = %v", usdt.Used)
	}
}

func TestPrivatePostRequiresCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not reach the network")
	}))
	defer server.Close()

	a := New(exchange.Credentials{}, Options{BaseURL: server.URL})
	if _, err := a.FetchBalance(context.Background()); !exchange.IsKind(err, exchange.KindAuthentication) {
		t.Fatalf("err = %v, want Authentication", err)
	}
}

func TestCreateOrderMarketBuySendsQuoteSpend(t *testing.T) {
	var form url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/accuracy.do":
			w.Write([]byte(`{"result":"true","data":[` + marketFixture + `]}`))
		case "/v2/supplement/create_order.do":
			body, _ := io.ReadAll(r.Body)
			form, _ = url.ParseQuery(string(body))
			w.Write([]byte(`{"result":"true","data":{"symbol":"btc_usdt","order_id":"0cf8a3de-4597-4296-af45-be7abaa06b07"},"error_code":0,"ts":1648162321043}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	a := New(exchange.Credentials{APIKey: "k", Secret: "s"}, Options{BaseURL: server.URL})
	order, err := a.CreateOrder(context.Background(), "BTC/USDT", models.OrderTypeMarket, models.SideBuy,
		dec("2"), dec("0.05"), nil)
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if order.ID != "0cf8a3de-4597-4296-af45-be7abaa06b07" {
		t.Fatalf("id = %q", order.ID)
	}
	if form.Get("type") != "buy_market" {
		t.Fatalf("type = %q", form.Get("type"))
	}
	// The quote spend travels in the price field; no base amount is sent.
	if form.Get("price") != "0.10" {
		t.Fatalf("price = %q", form.Get("price"))
	}
	if form.Has("amount") {
		t.Fatalf("amount = %q, want absent", form.Get("amount"))
	}
}

func TestCreateOrderLimitPostOnly(t *testing.T) {
	var form url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/accuracy.do":
			w.Write([]byte(`{"result":"true","data":[` + marketFixture + `]}`))
		case "/v2/supplement/create_order.do":
			body, _ := io.ReadAll(r.Body)
			form, _ = url.ParseQuery(string(body))
			w.Write([]byte(`{"result":"true","data":{"order_id":"x1"},"error_code":0}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	a := New(exchange.Credentials{APIKey: "k", Secret: "s"}, Options{BaseURL: server.URL})
	_, err := a.CreateOrder(context.Background(), "BTC/USDT", models.OrderTypeLimit, models.SideSell,
		dec("0.25008"), dec("38000"), &exchange.OrderOptions{PostOnly: true, ClientOrderID: "tag-9"})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if form.Get("type") != "sell_maker" {
		t.Fatalf("type = %q", form.Get("type"))
	}
	// Amount snaps to the market's quantity accuracy.
	if form.Get("amount") != "0.2500" {
		t.Fatalf("amount = %q", form.Get("amount"))
	}
	if form.Get("custom_id") != "tag-9" {
		t.Fatalf("custom_id = %q", form.Get("custom_id"))
	}
}

func TestCreateOrderRejectsMarketTimeInForce(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not reach the network")
	}))
	defer server.Close()

	a := New(exchange.Credentials{APIKey: "k", Secret: "s"}, Options{BaseURL: server.URL})
	_, err := a.CreateOrder(context.Background(), "BTC/USDT", models.OrderTypeMarket, models.SideSell,
		dec("1"), nil, &exchange.OrderOptions{TimeInForce: models.TimeInForceIOC})
	if !exchange.IsKind(err, exchange.KindInvalidOrder) {
		t.Fatalf("err = %v, want InvalidOrder", err)
	}
	_, err = a.CreateOrder(context.Background(), "BTC/USDT", models.OrderTypeMarket, models.SideBuy, dec("1"), nil, nil)
	if !exchange.IsKind(err, exchange.KindArgumentsRequired) {
		t.Fatalf("err = %v, want ArgumentsRequired", err)
	}
}

func TestFetchOHLCV(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/accuracy.do":
			w.Write([]byte(`{"result":"true","data":[` + marketFixture + `]}`))
		case "/v2/kline.do":
			q := r.URL.Query()
			if q.Get("type") != "minute1" {
				t.Errorf("type = %q", q.Get("type"))
			}
			// The time parameter is in seconds, size includes the
			// boundary candle.
			if q.Get("time") != "1700000000" {
				t.Errorf("time = %q", q.Get("time"))
			}
			if q.Get("size") != "3" {
				t.Errorf("size = %q", q.Get("size"))
			}
			w.Write([]byte(`{"result":"true","data":[
				[1700000060, 38565.3, 38572.9, 38560.8, 38570.5, 2.1],
				[1700000000, 38555.5, 38568.9, 38550.2, 38565.3, 3.7],
				[1700000120, 38570.5, 38580.0, 38567.1, 38577.2, 1.4]
			]}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	a := New(exchange.Credentials{}, Options{BaseURL: server.URL})
	candles, err := a.FetchOHLCV(context.Background(), "BTC/USDT", "1m", 1700000000000, 2)
	if err != nil {
		t.Fatalf("FetchOHLCV: %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("len = %d", len(candles))
	}
	// Rows arrive unordered with second timestamps; output is ascending
	// milliseconds.
	if candles[0].Timestamp != 1700000000000 || candles[1].Timestamp != 1700000060000 {
		t.Fatalf("timestamps = %d/%d", candles[0].Timestamp, candles[1].Timestamp)
	}
	if candles[0].Close == nil || !candles[0].Close.Equal(decimal.RequireFromString("38565.3")) {
		t.Fatalf("close = %v", candles[0].Close)
	}
}

func TestFetchTicker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/accuracy.do":
			w.Write([]byte(`{"result":"true","data":[` + marketFixture + `]}`))
		case "/v2/ticker/24hr.do":
			if got := r.URL.Query().Get("symbol"); got != "btc_usdt" {
				t.Errorf("symbol = %q", got)
			}
			w.Write([]byte(`{"result":"true","data":[{
				"symbol":"btc_usdt",
				"ticker":{"high":38875.1,"vol":5959.8,"low":38100.2,"change":1.21,"turnover":229647529.4,"latest":38568.5},
				"timestamp":1648162321043
			}],"error_code":0,"ts":1648162321043}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	a := New(exchange.Credentials{}, Options{BaseURL: server.URL})
	ticker, err := a.FetchTicker(context.Background(), "BTC/USDT")
	if err != nil {
		t.Fatalf("FetchTicker: %v", err)
	}
	if ticker.Symbol != "BTC/USDT" || ticker.Timestamp != 1648162321043 {
		t.Fatalf("symbol/timestamp = %q/%d", ticker.Symbol, ticker.Timestamp)
	}
	if ticker.Last == nil || !ticker.Last.Equal(decimal.RequireFromString("38568.5")) {
		t.Fatalf("last = %v", ticker.Last)
	}
	if ticker.QuoteVolume == nil || !ticker.QuoteVolume.Equal(decimal.RequireFromString("229647529.4")) {
		t.Fatalf("quote volume = %v", ticker.QuoteVolume)
	}
	if ticker.Percentage == nil || !ticker.Percentage.Equal(decimal.RequireFromString("1.21")) {
		t.Fatalf("percentage = %v", ticker.Percentage)
	}
}

func TestFetchTime(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/timestamp.do" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"result":"true","data":1648162321043,"error_code":0,"ts":1648162321043}`))
	}))
	defer server.Close()

	a := New(exchange.Credentials{}, Options{BaseURL: server.URL})
	serverTime, err := a.FetchTime(context.Background())
	if err != nil {
		t.Fatalf("FetchTime: %v", err)
	}
	if serverTime != 1648162321043 {
		t.Fatalf("serverTime = %d", serverTime)
	}
}
