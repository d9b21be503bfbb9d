package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"folio/internal/currency"
	"folio/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type fakePrices struct {
	mu     sync.Mutex
	prices map[string]decimal.Decimal
	errs   map[string]error
	// failures makes a symbol fail this many times before succeeding.
	failures map[string]int
	calls    map[string]int
	total    atomic.Int64
}

func newFakePrices() *fakePrices {
	return &fakePrices{
		prices:   map[string]decimal.Decimal{},
		errs:     map[string]error{},
		failures: map[string]int{},
		calls:    map[string]int{},
	}
}

func (f *fakePrices) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	f.total.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[symbol]++
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	if n := f.failures[symbol]; n > 0 {
		f.failures[symbol] = n - 1
		return decimal.Zero, fmt.Errorf("transient failure for %s", symbol)
	}
	if err, ok := f.errs[symbol]; ok {
		return decimal.Zero, err
	}
	p, ok := f.prices[symbol]
	if !ok {
		return decimal.Zero, models.ErrUnknownSymbol
	}
	return p, nil
}

func (f *fakePrices) callsFor(symbol string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[symbol]
}

type fakeStore struct {
	mu         sync.Mutex
	holdings   []models.Holding
	deleteErrs map[string]error
	listErr    error
	createErr  error
	deleted    []string
	recorded   []models.Holding
	calls      atomic.Int64
}

func newFakeStore(hs ...models.Holding) *fakeStore {
	return &fakeStore{holdings: hs, deleteErrs: map[string]error{}}
}

func (s *fakeStore) ListHoldings(ctx context.Context) ([]models.Holding, error) {
	s.calls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	return append([]models.Holding(nil), s.holdings...), nil
}

func (s *fakeStore) CreateHolding(ctx context.Context, h models.Holding) error {
	s.calls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	s.holdings = append(s.holdings, h)
	return nil
}

func (s *fakeStore) DeleteHolding(ctx context.Context, symbol string) error {
	s.calls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.deleteErrs[symbol]; err != nil {
		return err
	}
	for i, h := range s.holdings {
		if h.Symbol == symbol {
			s.holdings = append(s.holdings[:i], s.holdings[i+1:]...)
			s.deleted = append(s.deleted, symbol)
			return nil
		}
	}
	return models.ErrHoldingNotFound
}

func (s *fakeStore) symbols() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []string{}
	for _, h := range s.holdings {
		out = append(out, h.Symbol)
	}
	return out
}

// recordingStore also persists refreshed prices.
type recordingStore struct{ *fakeStore }

func (s recordingStore) RecordPrices(ctx context.Context, hs []models.Holding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recorded = append(s.recorded, hs...)
	return nil
}

func holding(symbol string, qty int64, cost string) models.Holding {
	return models.NewHolding{Symbol: symbol, Quantity: qty, CostBasisPerUnit: d(cost), PurchaseCurrency: currency.USD}.Holding()
}

func fastOptions() SyncOptions {
	return SyncOptions{Timeout: 0, Retries: 0, Backoff: 0, Concurrency: 0}
}

type engine struct {
	prices    *fakePrices
	store     *fakeStore
	session   *Session
	portfolio *Portfolio
	coord     *Coordinator
}

func newEngine(store HoldingStore, fs *fakeStore, prices *fakePrices) *engine {
	log := quietLogger()
	session := NewSession(log)
	p := NewPortfolio(store, NewSynchronizer(prices, fastOptions(), log), session, log)
	return &engine{
		prices:    prices,
		store:     fs,
		session:   session,
		portfolio: p,
		coord:     NewCoordinator(store, p, session, currency.DefaultRates(), log),
	}
}
