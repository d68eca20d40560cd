package exchange

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"tradewire/models"
)

// MarketMap is the per-adapter market cache: populated once per session by
// LoadMarkets, read thereafter, keyed both by unified symbol and by
// venue-native id. The guard enforces the single populate-then-read
// ordering spec'd for concurrent callers.
type MarketMap struct {
	mu       sync.RWMutex
	bySymbol map[string]models.Market
	byID     map[string]models.Market
	loaded   bool
}

// Ensure loads markets through fetch exactly once. Concurrent callers block
// until the first load finishes; a failed load leaves the cache empty so
// the next call retries.
func (m *MarketMap) Ensure(ctx context.Context, fetch func(context.Context) ([]models.Market, error)) error {
	m.mu.RLock()
	loaded := m.loaded
	m.mu.RUnlock()
	if loaded {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loaded {
		return nil
	}
	markets, err := fetch(ctx)
	if err != nil {
		return err
	}
	m.storeLocked(markets)
	return nil
}

// Store replaces the cache content, marking it loaded.
func (m *MarketMap) Store(markets []models.Market) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.storeLocked(markets)
}

func (m *MarketMap) storeLocked(markets []models.Market) {
	m.bySymbol = make(map[string]models.Market, len(markets))
	m.byID = make(map[string]models.Market, len(markets))
	for _, market := range markets {
		m.bySymbol[market.Symbol] = market
		m.byID[market.ID] = market
	}
	m.loaded = true
}

// Loaded reports whether the cache has been populated.
func (m *MarketMap) Loaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loaded
}

// BySymbol resolves a unified symbol, failing with BadSymbol when unknown.
func (m *MarketMap) BySymbol(exchange, symbol string) (models.Market, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	market, ok := m.bySymbol[symbol]
	if !ok {
		return models.Market{}, NewError(KindBadSymbol, exchange, fmt.Sprintf("unknown symbol %q", symbol))
	}
	return market, nil
}

// ByID resolves a venue-native market id.
func (m *MarketMap) ByID(id string) (models.Market, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	market, ok := m.byID[id]
	return market, ok
}

// SymbolForID returns the unified symbol for a venue id, or the id itself
// when the market is unknown. Normalizers must not throw on unmapped ids.
func (m *MarketMap) SymbolForID(id string) string {
	if market, ok := m.ByID(id); ok {
		return market.Symbol
	}
	return id
}

// Symbols lists known unified symbols in sorted order.
func (m *MarketMap) Symbols() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.bySymbol))
	for s := range m.bySymbol {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// All returns a snapshot of the cached markets.
func (m *MarketMap) All() []models.Market {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Market, 0, len(m.bySymbol))
	for _, market := range m.bySymbol {
		out = append(out, market)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}
