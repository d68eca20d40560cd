package pacifica

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"tradewire/exchange"
	"tradewire/models"
)

const marketFixture = `{
	"symbol": "BTC",
	"tick_size": "0.1",
	"min_tick": "0.001",
	"max_tick": "1000000",
	"lot_size": "0.00001",
	"max_leverage": 50,
	"isolated_only": false,
	"min_order_size": "10",
	"max_order_size": "5000000",
	"funding_rate": "0.0000125"
}`

const orderFixture = `{
	"order_id": 59011621,
	"client_order_id": "d8530dc5-9dcd-4d26-b97c-43a8d25c2c2f",
	"symbol": "BTC",
	"side": "bid",
	"price": "61200.5",
	"initial_amount": "0.25",
	"filled_amount": "0.1",
	"cancelled_amount": "0",
	"stop_price": null,
	"order_type": "limit",
	"order_status": "partially_filled",
	"reduce_only": false,
	"created_at": 1717526400000,
	"updated_at": 1717526405000
}`

const tradeFixture = `{
	"history_id": 73718231,
	"order_id": 59011621,
	"symbol": "BTC",
	"side": "close_short",
	"price": "61180",
	"amount": "0.05",
	"entry_price": "61500",
	"event_type": "fulfill_maker",
	"fee": "0.4589",
	"pnl": "16",
	"created_at": 1717526410000
}`

func dec(s string) *decimal.Decimal {
	v := decimal.RequireFromString(s)
	return &v
}

func TestParseMarket(t *testing.T) {
	market := parseMarket(gjson.Parse(marketFixture))
	if market.Symbol != "BTC/USDC:USDC" {
		t.Fatalf("symbol = %q", market.Symbol)
	}
	if market.ID != "BTC" || market.BaseID != "BTC" {
		t.Fatalf("id/baseId = %q/%q", market.ID, market.BaseID)
	}
	if !market.Swap || !market.Linear || !market.Contract || market.Spot {
		t.Fatalf("market flags = %+v", market)
	}
	if market.Precision.Price == nil || market.Precision.Price.String() != "0.1" {
		t.Fatalf("price precision = %v", market.Precision.Price)
	}
	if market.Precision.Amount == nil || market.Precision.Amount.String() != "0.00001" {
		t.Fatalf("amount precision = %v", market.Precision.Amount)
	}
	if market.Limits.Cost.Min == nil || market.Limits.Cost.Min.String() != "10" {
		t.Fatalf("min cost = %v", market.Limits.Cost.Min)
	}
	if market.ContractSize == nil || market.ContractSize.String() != "1" {
		t.Fatalf("contract size = %v", market.ContractSize)
	}
}

func TestParseOrderStatuses(t *testing.T) {
	a := New(exchange.Credentials{}, Options{})
	cases := map[string]string{
		"open":             models.OrderStatusOpen,
		"partially_filled": models.OrderStatusOpen,
		"filled":           models.OrderStatusClosed,
		"cancelled":        models.OrderStatusCanceled,
		"rejected":         models.OrderStatusFailed,
		"galaxy_brain":     "galaxy_brain",
	}
	for raw, want := range cases {
		order := a.parseOrder(gjson.Parse(`{"order_status":"` + raw + `"}`))
		if order.Status != want {
			t.Errorf("status %q = %q, want %q", raw, order.Status, want)
		}
	}
}

func TestParseOrder(t *testing.T) {
	a := New(exchange.Credentials{}, Options{})
	order := a.parseOrder(gjson.Parse(orderFixture))
	if order.ID != "59011621" {
		t.Fatalf("id = %q", order.ID)
	}
	if order.Side != models.SideBuy || order.Type != models.OrderTypeLimit {
		t.Fatalf("side/type = %q/%q", order.Side, order.Type)
	}
	if order.Status != models.OrderStatusOpen {
		t.Fatalf("status = %q", order.Status)
	}
	if order.Timestamp != 1717526400000 {
		t.Fatalf("timestamp = %d", order.Timestamp)
	}
	if order.Remaining == nil || order.Remaining.String() != "0.15" {
		t.Fatalf("remaining = %v", order.Remaining)
	}
	if order.StopPrice != nil {
		t.Fatalf("stop price = %v, want nil", order.StopPrice)
	}
}

func TestParseOrderStopTypes(t *testing.T) {
	a := New(exchange.Credentials{}, Options{})
	cases := map[string]string{
		"stop_limit":         models.OrderTypeLimit,
		"stop_market":        models.OrderTypeMarket,
		"take_profit_market": models.OrderTypeMarket,
		"stop_loss_limit":    models.OrderTypeLimit,
	}
	for raw, want := range cases {
		order := a.parseOrder(gjson.Parse(`{"order_type":"` + raw + `"}`))
		if order.Type != want {
			t.Errorf("type %q = %q, want %q", raw, order.Type, want)
		}
	}
}

func TestParseTradeSides(t *testing.T) {
	cases := map[string]string{
		"open_long":   models.SideBuy,
		"close_long":  models.SideSell,
		"open_short":  models.SideSell,
		"close_short": models.SideBuy,
	}
	for raw, want := range cases {
		trade := parseTrade(gjson.Parse(`{"side":"`+raw+`","price":"1","amount":"2"}`), "BTC/USDC:USDC")
		if trade.Side != want {
			t.Errorf("side %q = %q, want %q", raw, trade.Side, want)
		}
	}
}

func TestParseTrade(t *testing.T) {
	trade := parseTrade(gjson.Parse(tradeFixture), "BTC/USDC:USDC")
	if trade.ID != "73718231" || trade.OrderID != "59011621" {
		t.Fatalf("ids = %q/%q", trade.ID, trade.OrderID)
	}
	if trade.Side != models.SideBuy {
		t.Fatalf("side = %q", trade.Side)
	}
	if trade.TakerOrMaker != "maker" {
		t.Fatalf("takerOrMaker = %q", trade.TakerOrMaker)
	}
	if trade.Cost == nil || !trade.Cost.Equal(decimal.RequireFromString("3059")) {
		t.Fatalf("cost = %v", trade.Cost)
	}
	if trade.Fee == nil || trade.Fee.Currency != "USDC" {
		t.Fatalf("fee = %+v", trade.Fee)
	}
}

func TestHandleErrors(t *testing.T) {
	cases := []struct {
		body string
		want exchange.Kind
	}{
		{`{"success":false,"error":"INSUFFICIENT_BALANCE: margin too low","code":400}`, exchange.KindInsufficientFunds},
		{`{"success":false,"error":"ORDER_NOT_FOUND","code":404}`, exchange.KindOrderNotFound},
		{`{"success":false,"error":"slow down","code":429}`, exchange.KindRateLimit},
		{`{"success":false,"error":"teapot","code":418}`, exchange.KindExchange},
	}
	for _, tc := range cases {
		res := &exchange.Response{Status: 200, Body: []byte(tc.body), JSON: gjson.Parse(tc.body)}
		if err := handleErrors(res); !exchange.IsKind(err, tc.want) {
			t.Errorf("classify %s = %v, want %s", tc.body, err, tc.want)
		}
	}
	ok := `{"success":true,"data":[],"error":null,"code":null}`
	res := &exchange.Response{Status: 200, Body: []byte(ok), JSON: gjson.Parse(ok)}
	if err := handleErrors(res); err != nil {
		t.Errorf("success body classified as %v", err)
	}
}

func TestPostActionSigning(t *testing.T) {
	seed := bytes.Repeat([]byte{7}, ed25519.SeedSize)
	public := ed25519.NewKeyFromSeed(seed).Public().(ed25519.PublicKey)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/info":
			w.Write([]byte(`{"success":true,"data":[` + marketFixture + `]}`))
		case "/api/v1/orders/cancel":
			body, _ := io.ReadAll(r.Body)
			parsed := gjson.ParseBytes(body)
			if parsed.Get("account").String() != "wallet123" {
				t.Errorf("account = %q", parsed.Get("account").String())
			}
			message, err := exchange.MarshalCanonical(map[string]any{
				"timestamp":     parsed.Get("timestamp").Int(),
				"expiry_window": parsed.Get("expiry_window").Int(),
				"type":          "cancel_order",
				"data": map[string]any{
					"symbol":   parsed.Get("symbol").String(),
					"order_id": parsed.Get("order_id").Int(),
				},
			})
			if err != nil {
				t.Fatalf("rebuild message: %v", err)
			}
			signature, err := base58.Decode(parsed.Get("signature").String())
			if err != nil {
				t.Fatalf("decode signature: %v", err)
			}
			if !ed25519.Verify(public, message, signature) {
				t.Errorf("signature does not verify over %s", message)
			}
			w.Write([]byte(`{"success":true,"data":null,"error":null,"code":null}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	a := New(exchange.Credentials{
		WalletAddress: "wallet123",
		PrivateKey:    hex.EncodeToString(seed),
	}, Options{BaseURL: server.URL})
	order, err := a.CancelOrder(context.Background(), "59011621", "BTC/USDC:USDC")
	if err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
	if order.Status != models.OrderStatusCanceled {
		t.Fatalf("status = %q", order.Status)
	}
}

func TestCreateOrderBodyShape(t *testing.T) {
	seed := bytes.Repeat([]byte{9}, ed25519.SeedSize)

	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/info":
			w.Write([]byte(`{"success":true,"data":[` + marketFixture + `]}`))
		case "/api/v1/orders/create":
			body, _ := io.ReadAll(r.Body)
			if err := json.Unmarshal(body, &got); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			w.Write([]byte(`{"success":true,"data":{"order_id":59011621},"error":null,"code":null}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	a := New(exchange.Credentials{
		WalletAddress: "wallet123",
		PrivateKey:    hex.EncodeToString(seed),
	}, Options{BaseURL: server.URL})
	order, err := a.CreateOrder(context.Background(), "BTC/USDC:USDC", models.OrderTypeLimit, models.SideBuy,
		dec("0.250004"), dec("61200.5"), &exchange.OrderOptions{TimeInForce: models.TimeInForcePO})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if order.ID != "59011621" || order.Status != models.OrderStatusOpen {
		t.Fatalf("order = %+v", order)
	}
	if got["symbol"] != "BTC" || got["side"] != "bid" {
		t.Fatalf("symbol/side = %v/%v", got["symbol"], got["side"])
	}
	// Amount snaps to the market's lot size before signing.
	if got["amount"] != "0.25000" {
		t.Fatalf("amount = %v", got["amount"])
	}
	if got["tif"] != "ALO" {
		t.Fatalf("tif = %v", got["tif"])
	}
}

func TestCreateOrderRequiresPriceBeforeNetwork(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not reach the network")
	}))
	defer server.Close()

	a := New(exchange.Credentials{WalletAddress: "w", PrivateKey: "00"}, Options{BaseURL: server.URL})
	_, err := a.CreateOrder(context.Background(), "BTC/USDC:USDC", models.OrderTypeLimit, models.SideBuy, dec("1"), nil, nil)
	if !exchange.IsKind(err, exchange.KindArgumentsRequired) {
		t.Fatalf("err = %v, want ArgumentsRequired", err)
	}
}

func TestAccountReadsRequireWallet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not reach the network")
	}))
	defer server.Close()

	a := New(exchange.Credentials{}, Options{BaseURL: server.URL})
	if _, err := a.FetchBalance(context.Background()); !exchange.IsKind(err, exchange.KindAuthentication) {
		t.Fatalf("err = %v, want Authentication", err)
	}
}

func TestFetchOHLCVWindow(t *testing.T) {
	const since = int64(1717526400000)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/info":
			w.Write([]byte(`{"success":true,"data":[` + marketFixture + `]}`))
		case "/api/v1/kline":
			query := r.URL.Query()
			if query.Get("interval") != "5m" {
				t.Errorf("interval = %q", query.Get("interval"))
			}
			if query.Get("start_time") != "1717526400000" {
				t.Errorf("start_time = %q", query.Get("start_time"))
			}
			// Three 5m intervals from since.
			if query.Get("end_time") != "1717527300000" {
				t.Errorf("end_time = %q", query.Get("end_time"))
			}
			w.Write([]byte(`{"success":true,"data":[
				{"t":1717526700000,"o":"61000","h":"61100","l":"60900","c":"61050","v":"12"},
				{"t":1717526400000,"o":"60950","h":"61010","l":"60900","c":"61000","v":"8"}
			]}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	a := New(exchange.Credentials{}, Options{BaseURL: server.URL})
	candles, err := a.FetchOHLCV(context.Background(), "BTC/USDC:USDC", "5m", since, 3)
	if err != nil {
		t.Fatalf("FetchOHLCV: %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("len = %d", len(candles))
	}
	if candles[0].Timestamp != 1717526400000 || candles[1].Timestamp != 1717526700000 {
		t.Fatalf("candles out of order: %d, %d", candles[0].Timestamp, candles[1].Timestamp)
	}
}

func TestFetchOrderBook(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/info":
			w.Write([]byte(`{"success":true,"data":[` + marketFixture + `]}`))
		case "/api/v1/book":
			if got := r.URL.Query().Get("symbol"); got != "BTC" {
				t.Errorf("symbol = %q", got)
			}
			w.Write([]byte(`{"success":true,"data":{"s":"BTC","l":[
				[{"p":"61000","a":"1.5","n":3},{"p":"60999","a":"0.4","n":1}],
				[{"p":"61001","a":"0.9","n":2}]
			],"t":1717526400000}}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	a := New(exchange.Credentials{}, Options{BaseURL: server.URL})
	book, err := a.FetchOrderBook(context.Background(), "BTC/USDC:USDC", 0)
	if err != nil {
		t.Fatalf("FetchOrderBook: %v", err)
	}
	if len(book.Bids) != 2 || len(book.Asks) != 1 {
		t.Fatalf("depth = %d/%d", len(book.Bids), len(book.Asks))
	}
	if book.Bids[0].Price.String() != "61000" {
		t.Fatalf("best bid = %s", book.Bids[0].Price.String())
	}
	if book.Timestamp != 1717526400000 {
		t.Fatalf("timestamp = %d", book.Timestamp)
	}
}

func TestFetchBalance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/account" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("account"); got != "wallet123" {
			t.Errorf("account = %q", got)
		}
		w.Write([]byte(`{"success":true,"data":{
			"account_equity":"1520.25","total_margin_used":"310.5",
			"available_to_spend":"1209.75","updated_at":1717526400000
		}}`))
	}))
	defer server.Close()

	a := New(exchange.Credentials{WalletAddress: "wallet123"}, Options{BaseURL: server.URL})
	balance, err := a.FetchBalance(context.Background())
	if err != nil {
		t.Fatalf("FetchBalance: %v", err)
	}
	usdc := balance.Get("USDC")
	if usdc.Total == nil || usdc.Total.String() != "1520.25" {
		t.Fatalf("total = %v", usdc.Total)
	}
	if usdc.Free == nil || usdc.Free.String() != "1209.75" {
		t.Fatalf("free = %v", usdc.Free)
	}
}
