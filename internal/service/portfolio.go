package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"folio/internal/models"
	"github.com/sirupsen/logrus"
)

// Session tracks whether the bearer token is still accepted. Once expired,
// nothing may call the external services until Renew.
type Session struct {
	expired atomic.Bool
	log     *logrus.Logger
}

func NewSession(log *logrus.Logger) *Session {
	return &Session{log: log}
}

func (s *Session) Check() error {
	if s.expired.Load() {
		return models.ErrAuthExpired
	}
	return nil
}

// Observe marks the session expired when err is ErrAuthExpired. It returns err.
func (s *Session) Observe(err error) error {
	if errors.Is(err, models.ErrAuthExpired) && !s.expired.Swap(true) {
		s.log.Warn("session expired; reauthentication required")
	}
	return err
}

func (s *Session) Expired() bool { return s.expired.Load() }

func (s *Session) Renew() {
	if s.expired.Swap(false) {
		s.log.Info("session renewed")
	}
}

// Snapshot is the published holdings collection.
type Snapshot struct {
	Holdings []models.Holding `json:"holdings"`
	Notices  []Notice         `json:"notices"`
	SyncedAt time.Time        `json:"synced_at"`
	Version  uint64           `json:"version"`
}

func (s Snapshot) clone() Snapshot {
	s.Holdings = append([]models.Holding(nil), s.Holdings...)
	s.Notices = append([]Notice(nil), s.Notices...)
	return s
}

func (s Snapshot) Symbols() []string {
	out := make([]string, 0, len(s.Holdings))
	for _, h := range s.Holdings {
		out = append(out, h.Symbol)
	}
	return out
}

func (s Snapshot) Has(symbol string) bool {
	for _, h := range s.Holdings {
		if h.Symbol == symbol {
			return true
		}
	}
	return false
}

// Result describes one synchronization pass.
type Result struct {
	Snapshot Snapshot `json:"snapshot"`
	Updated  []string `json:"updated"`
	Failed   []string `json:"failed"`
	Notices  []Notice `json:"notices"`
	NoOp     bool     `json:"no_op"`
}

// Portfolio owns the visible holdings collection. Cycles run one at a time and
// replace the whole snapshot once every lookup has settled.
type Portfolio struct {
	store   HoldingStore
	syncer  *Synchronizer
	session *Session
	log     *logrus.Logger

	cycle sync.Mutex

	mu     sync.RWMutex
	snap   Snapshot
	subs   map[int]func(Snapshot)
	nextID int
}

func NewPortfolio(store HoldingStore, syncer *Synchronizer, session *Session, log *logrus.Logger) *Portfolio {
	return &Portfolio{store: store, syncer: syncer, session: session, log: log, subs: map[int]func(Snapshot){}}
}

func (p *Portfolio) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snap.clone()
}

// Subscribe registers fn to receive every published snapshot.
func (p *Portfolio) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.subs[id] = fn
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}
}

// Resync re-reads the store and runs a price cycle over it. The store is
// canonical, so its collection is published even when no price could be
// refreshed.
func (p *Portfolio) Resync(ctx context.Context) (Result, error) {
	p.cycle.Lock()
	defer p.cycle.Unlock()
	return p.resync(ctx)
}

func (p *Portfolio) resync(ctx context.Context) (Result, error) {
	if err := p.session.Check(); err != nil {
		return Result{Snapshot: p.Snapshot()}, err
	}
	fetched, err := p.store.ListHoldings(ctx)
	if err != nil {
		if errors.Is(p.session.Observe(err), models.ErrAuthExpired) {
			return Result{Snapshot: p.Snapshot()}, err
		}
		p.log.Errorf("list holdings failed: %v", err)
		return Result{Snapshot: p.Snapshot()}, &StoreOperationError{Op: OpList, Err: err}
	}

	holdings := p.reconcile(fetched)
	cycle, err := p.syncer.Run(ctx, holdings)
	if err != nil {
		p.session.Observe(err)
		return Result{Snapshot: p.Snapshot()}, err
	}
	snap := p.publish(ctx, cycle)
	return Result{Snapshot: snap, Updated: cycle.Updated, Failed: cycle.Failed, Notices: cycle.Notices, NoOp: cycle.NoOp}, nil
}

// Refresh runs a price cycle over the current snapshot. A cycle in which every
// lookup failed leaves the snapshot untouched. Until a first snapshot has been
// published, Refresh loads from the store like Resync.
func (p *Portfolio) Refresh(ctx context.Context) (Result, error) {
	p.cycle.Lock()
	defer p.cycle.Unlock()

	current := p.Snapshot()
	if current.Version == 0 {
		return p.resync(ctx)
	}
	if err := p.session.Check(); err != nil {
		return Result{Snapshot: current}, err
	}
	cycle, err := p.syncer.Run(ctx, current.Holdings)
	if err != nil {
		p.session.Observe(err)
		return Result{Snapshot: current}, err
	}
	res := Result{Snapshot: current, Updated: cycle.Updated, Failed: cycle.Failed, Notices: cycle.Notices, NoOp: cycle.NoOp}
	if cycle.NoOp {
		p.log.Warnf("refresh: no quote could be fetched for %d holdings; keeping last snapshot", len(current.Holdings))
		return res, nil
	}
	res.Snapshot = p.publish(ctx, cycle)
	return res, nil
}

// reconcile drops duplicate symbols and carries prices from the previous
// snapshot forward, so the daily delta keeps its baseline across resyncs.
func (p *Portfolio) reconcile(fetched []models.Holding) []models.Holding {
	prev := map[string]models.Holding{}
	for _, h := range p.Snapshot().Holdings {
		prev[h.Symbol] = h
	}

	seen := make(map[string]bool, len(fetched))
	out := make([]models.Holding, 0, len(fetched))
	for _, h := range fetched {
		if seen[h.Symbol] {
			p.log.WithField("symbol", h.Symbol).Warn("store returned duplicate symbol; keeping first")
			continue
		}
		seen[h.Symbol] = true

		if h.CurrentPrice.IsZero() {
			h.CurrentPrice = h.ReferencePrice
		}
		if old, ok := prev[h.Symbol]; ok && !old.PricedAt.IsZero() {
			h.CurrentPrice = old.CurrentPrice
			h.ReferencePrice = old.ReferencePrice
			h.DailyProfit = old.DailyProfit
			h.PricedAt = old.PricedAt
			h.TotalProfit = h.CurrentValue().Sub(h.TotalCostBasis)
		}
		out = append(out, h)
	}
	return out
}

func (p *Portfolio) publish(ctx context.Context, c Cycle) Snapshot {
	p.mu.Lock()
	p.snap = Snapshot{Holdings: c.Holdings, Notices: c.Notices, SyncedAt: time.Now().UTC(), Version: p.snap.Version + 1}
	snap := p.snap.clone()
	subs := make([]func(Snapshot), 0, len(p.subs))
	for _, fn := range p.subs {
		subs = append(subs, fn)
	}
	p.mu.Unlock()

	for _, fn := range subs {
		fn(snap.clone())
	}
	p.record(ctx, c)
	return snap
}

func (p *Portfolio) record(ctx context.Context, c Cycle) {
	rec, ok := p.store.(PriceRecorder)
	if !ok || len(c.Updated) == 0 {
		return
	}
	updated := make(map[string]bool, len(c.Updated))
	for _, s := range c.Updated {
		updated[s] = true
	}
	priced := make([]models.Holding, 0, len(c.Updated))
	for _, h := range c.Holdings {
		if updated[h.Symbol] {
			priced = append(priced, h)
		}
	}
	if err := rec.RecordPrices(ctx, priced); err != nil {
		p.session.Observe(err)
		p.log.Warnf("record refreshed prices failed: %v", err)
	}
}
