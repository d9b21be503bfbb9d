package database

import (
	"context"
	"fmt"
	"sync"

	"folio/internal/models"
)

// memoryHistoryLimit bounds the prices kept per symbol.
const memoryHistoryLimit = 500

// MemoryStore keeps holdings in process. Useful for tests or ephemeral runs
// where persistence is not required.
type MemoryStore struct {
	mu       sync.RWMutex
	holdings []models.Holding
	history  map[string][]PricePoint
}

func NewMemoryStore(seed ...models.Holding) *MemoryStore {
	return &MemoryStore{holdings: append([]models.Holding(nil), seed...), history: map[string][]PricePoint{}}
}

func (m *MemoryStore) ListHoldings(ctx context.Context) ([]models.Holding, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Holding{}, m.holdings...), nil
}

func (m *MemoryStore) CreateHolding(ctx context.Context, h models.Holding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.index(h.Symbol) >= 0 {
		return fmt.Errorf("create %s: %w", h.Symbol, models.ErrDuplicateSymbol)
	}
	m.holdings = append(m.holdings, h)
	return nil
}

func (m *MemoryStore) DeleteHolding(ctx context.Context, symbol string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.index(symbol)
	if i < 0 {
		return fmt.Errorf("delete %s: %w", symbol, models.ErrHoldingNotFound)
	}
	m.holdings = append(m.holdings[:i:i], m.holdings[i+1:]...)
	return nil
}

func (m *MemoryStore) RecordPrices(ctx context.Context, holdings []models.Holding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range holdings {
		i := m.index(h.Symbol)
		if i < 0 {
			continue
		}
		cur := &m.holdings[i]
		cur.ReferencePrice = h.ReferencePrice
		cur.CurrentPrice = h.CurrentPrice
		cur.TotalProfit = h.TotalProfit
		cur.DailyProfit = h.DailyProfit
		hist := append(m.history[h.Symbol], PricePoint{Symbol: h.Symbol, Price: h.CurrentPrice, RecordedAt: h.PricedAt})
		if len(hist) > memoryHistoryLimit {
			hist = append(hist[:0:0], hist[len(hist)-memoryHistoryLimit:]...)
		}
		m.history[h.Symbol] = hist
	}
	return nil
}

// PriceHistory returns up to limit recorded prices for symbol, newest first.
func (m *MemoryStore) PriceHistory(ctx context.Context, symbol string, limit int) ([]PricePoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	hist := m.history[symbol]
	n := len(hist)
	if limit > 0 && n > limit {
		n = limit
	}
	out := make([]PricePoint, 0, n)
	for i := len(hist) - 1; i >= len(hist)-n; i-- {
		out = append(out, hist[i])
	}
	return out, nil
}

func (m *MemoryStore) index(symbol string) int {
	for i, h := range m.holdings {
		if h.Symbol == symbol {
			return i
		}
	}
	return -1
}
