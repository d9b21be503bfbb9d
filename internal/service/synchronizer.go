package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"folio/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type SyncOptions struct {
	// Timeout bounds a single lookup attempt. Zero disables it.
	Timeout time.Duration
	// Retries is the number of extra attempts after a failed lookup.
	Retries int
	// Backoff is the wait before the first retry; it doubles on each retry.
	Backoff time.Duration
	// Concurrency caps in-flight lookups. Zero means one goroutine per holding.
	Concurrency int
}

func DefaultSyncOptions() SyncOptions {
	return SyncOptions{Timeout: 10 * time.Second, Retries: 2, Backoff: 200 * time.Millisecond, Concurrency: 8}
}

// Cycle is the outcome of one refresh pass.
type Cycle struct {
	Holdings []models.Holding
	Notices  []Notice
	Updated  []string
	Failed   []string
	// NoOp is set when every lookup failed; callers keep their last snapshot.
	NoOp bool
}

type Synchronizer struct {
	prices PriceProvider
	opts   SyncOptions
	log    *logrus.Logger
	now    func() time.Time
}

func NewSynchronizer(p PriceProvider, opts SyncOptions, log *logrus.Logger) *Synchronizer {
	return &Synchronizer{prices: p, opts: opts, log: log, now: time.Now}
}

// Run looks up every holding's live price concurrently and waits for all of
// them. The returned holdings are a new slice in input order; holdings whose
// lookup failed keep their previous price fields. ErrAuthExpired from any
// lookup cancels the rest and is returned as is.
func (s *Synchronizer) Run(ctx context.Context, holdings []models.Holding) (Cycle, error) {
	out := make([]models.Holding, len(holdings))
	copy(out, holdings)
	errs := make([]error, len(holdings))

	g, gctx := errgroup.WithContext(ctx)
	if s.opts.Concurrency > 0 {
		g.SetLimit(s.opts.Concurrency)
	}
	for i := range holdings {
		i := i
		g.Go(func() error {
			price, err := s.lookup(gctx, holdings[i].Symbol)
			if errors.Is(err, models.ErrAuthExpired) {
				return err
			}
			if err != nil {
				errs[i] = err
				return nil
			}
			out[i] = holdings[i].ApplyLivePrice(price, s.now())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Cycle{}, err
	}
	if err := ctx.Err(); err != nil {
		return Cycle{}, err
	}

	cycle := Cycle{Holdings: out}
	at := s.now()
	for i, err := range errs {
		sym := holdings[i].Symbol
		if err == nil {
			cycle.Updated = append(cycle.Updated, sym)
			continue
		}
		lerr := &QuoteLookupError{Symbol: sym, Err: err}
		s.log.WithField("symbol", sym).Warnf("quote lookup failed: %v", err)
		cycle.Failed = append(cycle.Failed, sym)
		cycle.Notices = append(cycle.Notices, Notice{Kind: NoticeQuoteLookupFailure, Symbol: sym, Message: lerr.Error(), At: at})
	}
	cycle.NoOp = len(holdings) > 0 && len(cycle.Updated) == 0

	s.log.WithFields(logrus.Fields{"updated": len(cycle.Updated), "failed": len(cycle.Failed)}).Infof("refresh cycle finished")
	return cycle, nil
}

func (s *Synchronizer) lookup(ctx context.Context, symbol string) (decimal.Decimal, error) {
	var lastErr error
	for attempt := 0; attempt <= s.opts.Retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return decimal.Zero, err
		}
		if attempt > 0 {
			wait := s.opts.Backoff * time.Duration(1<<uint(attempt-1))
			s.log.WithField("symbol", symbol).Debugf("retrying quote in %s (attempt %d): %v", wait, attempt+1, lastErr)
			if err := sleep(ctx, wait); err != nil {
				return decimal.Zero, err
			}
		}

		price, err := s.quote(ctx, symbol)
		if err == nil {
			return price, nil
		}
		if !retryable(err) || ctx.Err() != nil {
			return decimal.Zero, err
		}
		lastErr = err
	}
	if s.opts.Retries == 0 {
		return decimal.Zero, lastErr
	}
	return decimal.Zero, fmt.Errorf("after %d attempts: %w", s.opts.Retries+1, lastErr)
}

func (s *Synchronizer) quote(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}
	price, err := s.prices.GetPrice(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: got %s", ErrInvalidQuote, price)
	}
	return price, nil
}

func retryable(err error) bool {
	return !errors.Is(err, models.ErrAuthExpired) &&
		!errors.Is(err, models.ErrUnknownSymbol) &&
		!errors.Is(err, context.Canceled)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
