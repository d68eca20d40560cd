package bitrue

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"tradewire/exchange"
	"tradewire/models"
)

const marketFixture = `{
	"symbol": "SHABTC", "status": "TRADING",
	"baseAsset": "sha", "baseAssetPrecision": 0,
	"quoteAsset": "btc", "quotePrecision": 10,
	"orderTypes": ["MARKET", "LIMIT"],
	"filters": [
		{"filterType": "PRICE_FILTER", "minPrice": "0.00000001349", "maxPrice": "0.00000017537", "priceScale": 10},
		{"filterType": "LOT_SIZE", "minQty": "1.0", "minVal": "0.00020", "maxQty": "1000000000", "volumeScale": 0}
	]
}`

const openOrderFixture = `{
	"symbol": "USDCUSDT", "orderId": "2878854881", "clientOrderId": "",
	"price": "1.1000000000000000", "origQty": "100.0000000000000000",
	"executedQty": "30.0000000000000000", "cummulativeQuoteQty": "0.0000000000000000",
	"status": "PARTIALLY_FILLED", "timeInForce": "", "type": "LIMIT", "side": "SELL",
	"stopPrice": "", "time": 1635551031000, "updateTime": 1635551031000
}`

func TestParseMarket(t *testing.T) {
	m := parseMarket(gjson.Parse(marketFixture))
	if m.Symbol != "SHA/BTC" {
		t.Fatalf("symbol = %q", m.Symbol)
	}
	if !m.Active {
		t.Fatal("TRADING market must be active")
	}
	if m.Precision.Price == nil || m.Precision.Price.String() != "0.0000000001" {
		t.Fatalf("price precision = %v", m.Precision.Price)
	}
	if m.Precision.Amount == nil || m.Precision.Amount.String() != "1" {
		t.Fatalf("amount precision = %v", m.Precision.Amount)
	}
	if m.Limits.Cost.Min == nil || m.Limits.Cost.Min.String() != "0.0002" {
		t.Fatalf("min cost = %v", m.Limits.Cost.Min)
	}
}

func TestParseOrderStatuses(t *testing.T) {
	a := New(exchange.Credentials{}, Options{})
	cases := map[string]string{
		"NEW":              models.OrderStatusOpen,
		"PARTIALLY_FILLED": models.OrderStatusOpen,
		"FILLED":           models.OrderStatusClosed,
		"CANCELED":         models.OrderStatusCanceled,
		"PENDING_CANCEL":   models.OrderStatusCanceling,
		"REJECTED":         models.OrderStatusRejected,
		"EXPIRED":          models.OrderStatusExpired,
		"SOMETHING_NEW":    "SOMETHING_NEW", // unmapped statuses pass through
	}
	for raw, want := range cases {
		order := a.parseOrder(gjson.Parse(`{"status":"` + raw + `"}`))
		if order.Status != want {
			t.Errorf("status %q = %q, want %q", raw, order.Status, want)
		}
	}
}

func TestParseOrder(t *testing.T) {
	a := New(exchange.Credentials{}, Options{})
	order := a.parseOrder(gjson.Parse(openOrderFixture))
	if order.ID != "2878854881" {
		t.Fatalf("id = %q", order.ID)
	}
	if order.Side != "sell" || order.Type != "limit" {
		t.Fatalf("side/type = %q/%q", order.Side, order.Type)
	}
	if order.Timestamp != 1635551031000 {
		t.Fatalf("timestamp = %d", order.Timestamp)
	}
	if order.Remaining == nil || !order.Remaining.Equal(decimal.NewFromInt(70)) {
		t.Fatalf("remaining = %v", order.Remaining)
	}
	if order.StopPrice != nil {
		t.Fatalf("empty stop price must stay nil, got %v", order.StopPrice)
	}
}

func TestTransactionStatusByDirection(t *testing.T) {
	deposit := parseTransaction(gjson.Parse(`{"symbol":"XRP","status":1,"createdAt":1544669393000}`))
	if deposit.Type != models.TransactionDeposit || deposit.Status != models.TransactionOK {
		t.Fatalf("deposit = %q/%q", deposit.Type, deposit.Status)
	}
	// Withdrawal rows are recognized by the payAmount field, and status 5
	// means completed for them.
	withdrawal := parseTransaction(gjson.Parse(`{"symbol":"usdt_erc20","payAmount":"0","status":5,"createdAt":1595336441000}`))
	if withdrawal.Type != models.TransactionWithdrawal {
		t.Fatalf("type = %q", withdrawal.Type)
	}
	if withdrawal.Status != models.TransactionOK {
		t.Fatalf("withdrawal status 5 = %q, want ok", withdrawal.Status)
	}
	if withdrawal.Currency != "USDT" || withdrawal.Network != "ERC20" {
		t.Fatalf("currency/network = %q/%q", withdrawal.Currency, withdrawal.Network)
	}
}

func TestParseTransactionTaggedAddress(t *testing.T) {
	tx := parseTransaction(gjson.Parse(`{"symbol":"XRP","status":1,"tagType":"Tag","addressTo":"raLPjTYeGezfdb6crXZzcC8RkLBEwbBHJ5_18113641"}`))
	if tx.Address != "raLPjTYeGezfdb6crXZzcC8RkLBEwbBHJ5" {
		t.Fatalf("address = %q", tx.Address)
	}
	if tx.Tag != "18113641" {
		t.Fatalf("tag = %q", tx.Tag)
	}
}

func TestHandleErrors(t *testing.T) {
	cases := []struct {
		status int
		body   string
		want   exchange.Kind
	}{
		{200, `{"code":-1021,"msg":"your time is ahead of server"}`, exchange.KindInvalidNonce},
		{200, `{"code":-2011,"msg":"UNKNOWN_ORDER"}`, exchange.KindOrderNotFound},
		{400, `{"code":-1013,"msg":"Filter failure: LOT_SIZE"}`, exchange.KindInvalidOrder},
		{200, `{"code":-9999,"msg":"novel failure"}`, exchange.KindExchange},
		{418, `teapot`, exchange.KindDDoSProtection},
		{429, `{"code":200}`, exchange.KindDDoSProtection},
	}
	for _, tc := range cases {
		res := &exchange.Response{Status: tc.status, Body: []byte(tc.body), JSON: gjson.Parse(tc.body)}
		if err := handleErrors(res); !exchange.IsKind(err, tc.want) {
			t.Errorf("classify %d %s = %v, want %s", tc.status, tc.body, err, tc.want)
		}
	}
	for _, body := range []string{`{"code":0}`, `{"code":200,"msg":"succ"}`, `{"balances":[]}`} {
		res := &exchange.Response{Status: 200, Body: []byte(body), JSON: gjson.Parse(body)}
		if err := handleErrors(res); err != nil {
			t.Errorf("success body %s classified as %v", body, err)
		}
	}
}

func TestSignedRequest(t *testing.T) {
	secret := "swordfish"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-MBX-APIKEY"); got != "key" {
			t.Errorf("api key header = %q", got)
		}
		query := r.URL.Query()
		signature := query.Get("signature")
		query.Del("signature")
		signed := exchange.URLEncode(map[string]string{
			"timestamp":  query.Get("timestamp"),
			"recvWindow": query.Get("recvWindow"),
		})
		if want := exchange.HMACSHA256Hex(signed, secret); signature != want {
			t.Errorf("signature = %q, want %q", signature, want)
		}
		if query.Get("recvWindow") != "5000" {
			t.Errorf("recvWindow = %q", query.Get("recvWindow"))
		}
		w.Write([]byte(`{"balances":[{"asset":"btc","free":"2","locked":"1"}]}`))
	}))
	defer server.Close()

	a := New(exchange.Credentials{APIKey: "key", Secret: secret}, Options{BaseURL: server.URL})
	balance, err := a.FetchBalance(context.Background())
	if err != nil {
		t.Fatalf("FetchBalance: %v", err)
	}
	btc := balance.Get("BTC")
	if btc.Total == nil || btc.Total.String() != "3" {
		t.Fatalf("total = %v", btc.Total)
	}
}

func TestCreateOrderRequiresPriceBeforeNetwork(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not reach the network")
	}))
	defer server.Close()

	a := New(exchange.Credentials{APIKey: "key", Secret: "s"}, Options{BaseURL: server.URL})
	amount := decimal.NewFromInt(1)
	_, err := a.CreateOrder(context.Background(), "SHA/BTC", models.OrderTypeLimit, models.SideBuy, &amount, nil, nil)
	if !exchange.IsKind(err, exchange.KindArgumentsRequired) {
		t.Fatalf("err = %v, want ArgumentsRequired", err)
	}
}

func TestFetchTime(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/time" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"serverTime":1635464889117}`))
	}))
	defer server.Close()

	a := New(exchange.Credentials{}, Options{BaseURL: server.URL})
	serverTime, err := a.FetchTime(context.Background())
	if err != nil {
		t.Fatalf("FetchTime: %v", err)
	}
	if serverTime != 1635464889117 {
		t.Fatalf("serverTime = %d", serverTime)
	}
}
