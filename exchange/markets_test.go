package exchange

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"tradewire/models"
)

func testMarkets() []models.Market {
	return []models.Market{
		{ID: "btc_usdt", Symbol: "BTC/USDT", Base: "BTC", Quote: "USDT"},
		{ID: "eth_usdt", Symbol: "ETH/USDT", Base: "ETH", Quote: "USDT"},
	}
}

func TestMarketMapEnsureFetchesOnce(t *testing.T) {
	var m MarketMap
	calls := 0
	fetch := func(context.Context) ([]models.Market, error) {
		calls++
		return testMarkets(), nil
	}

	for i := 0; i < 3; i++ {
		if err := m.Ensure(context.Background(), fetch); err != nil {
			t.Fatalf("Ensure failed: %v", err)
		}
	}
	if calls != 1 {
		t.Errorf("fetch called %d times", calls)
	}
	if !m.Loaded() {
		t.Error("cache should report loaded")
	}
}

func TestMarketMapEnsureRetriesAfterFailure(t *testing.T) {
	var m MarketMap
	calls := 0
	fetch := func(context.Context) ([]models.Market, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("venue down")
		}
		return testMarkets(), nil
	}

	if err := m.Ensure(context.Background(), fetch); err == nil {
		t.Fatal("first Ensure should fail")
	}
	if m.Loaded() {
		t.Fatal("failed load must leave the cache unloaded")
	}
	if err := m.Ensure(context.Background(), fetch); err != nil {
		t.Fatalf("second Ensure failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("fetch called %d times", calls)
	}
}

func TestMarketMapLookups(t *testing.T) {
	var m MarketMap
	m.Store(testMarkets())

	market, err := m.BySymbol("bitrue", "BTC/USDT")
	if err != nil || market.ID != "btc_usdt" {
		t.Fatalf("BySymbol: %v, %v", market, err)
	}

	_, err = m.BySymbol("bitrue", "DOGE/USDT")
	if !IsKind(err, KindBadSymbol) {
		t.Errorf("unknown symbol should be BadSymbol, got %v", err)
	}

	if market, ok := m.ByID("eth_usdt"); !ok || market.Symbol != "ETH/USDT" {
		t.Errorf("ByID: %v, %v", market, ok)
	}

	// Unknown ids fall through unchanged so normalizers stay total.
	if got := m.SymbolForID("xrp_usdt"); got != "xrp_usdt" {
		t.Errorf("SymbolForID passthrough: %s", got)
	}

	if got := m.Symbols(); !reflect.DeepEqual(got, []string{"BTC/USDT", "ETH/USDT"}) {
		t.Errorf("Symbols: %v", got)
	}
	if all := m.All(); len(all) != 2 || all[0].Symbol != "BTC/USDT" {
		t.Errorf("All: %v", all)
	}
}
