package service

import (
	"context"
	"errors"
	"strings"

	"folio/internal/currency"
	"folio/internal/models"
	"github.com/sirupsen/logrus"
)

// Coordinator applies add and delete mutations to the store and resyncs the
// portfolio afterwards instead of patching it locally.
type Coordinator struct {
	store     HoldingStore
	portfolio *Portfolio
	session   *Session
	rates     *currency.RateTable
	log       *logrus.Logger
}

func NewCoordinator(store HoldingStore, p *Portfolio, session *Session, rates *currency.RateTable, log *logrus.Logger) *Coordinator {
	return &Coordinator{store: store, portfolio: p, session: session, rates: rates, log: log}
}

func (c *Coordinator) AddHolding(ctx context.Context, in models.NewHolding) (Result, error) {
	in = in.Normalize()
	if err := in.Validate(c.rates); err != nil {
		return Result{}, err
	}
	if c.portfolio.Snapshot().Has(in.Symbol) {
		return Result{}, &models.ValidationError{Field: "symbol", Reason: in.Symbol + " is already held"}
	}
	if err := c.session.Check(); err != nil {
		return Result{}, err
	}

	if err := c.store.CreateHolding(ctx, in.Holding()); err != nil {
		if errors.Is(c.session.Observe(err), models.ErrAuthExpired) {
			return Result{}, err
		}
		c.log.WithField("symbol", in.Symbol).Errorf("create holding failed: %v", err)
		return Result{}, &StoreOperationError{Op: OpCreate, Symbol: in.Symbol, Err: err}
	}
	c.log.WithField("symbol", in.Symbol).Infof("holding added (qty %d)", in.Quantity)
	return c.portfolio.Resync(ctx)
}

func (c *Coordinator) DeleteHolding(ctx context.Context, symbol string) (Result, error) {
	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return Result{}, &models.ValidationError{Field: "symbol", Reason: "is required"}
	}
	if err := c.session.Check(); err != nil {
		return Result{}, err
	}
	if err := c.store.DeleteHolding(ctx, symbol); err != nil {
		if errors.Is(c.session.Observe(err), models.ErrAuthExpired) {
			return Result{}, err
		}
		c.log.WithField("symbol", symbol).Errorf("delete holding failed: %v", err)
		return Result{}, &StoreOperationError{Op: OpDelete, Symbol: symbol, Err: err}
	}
	c.log.WithField("symbol", symbol).Info("holding deleted")
	return c.portfolio.Resync(ctx)
}

type BulkDeleteResult struct {
	Deleted []string        `json:"deleted"`
	Failed  []DeleteFailure `json:"failed"`
	// Skipped lists symbols never attempted because the session expired.
	Skipped []string `json:"skipped"`
	Result  Result   `json:"result"`
}

// DeleteHoldings deletes symbols one at a time, in order. Completed deletes
// are not rolled back when a later one fails; the failure is reported as a
// *BulkDeleteError naming only the symbols that were not removed.
func (c *Coordinator) DeleteHoldings(ctx context.Context, symbols []string) (BulkDeleteResult, error) {
	symbols = uniqueSymbols(symbols)
	if len(symbols) == 0 {
		return BulkDeleteResult{}, &models.ValidationError{Field: "symbols", Reason: "at least one symbol is required"}
	}
	if err := c.session.Check(); err != nil {
		return BulkDeleteResult{Skipped: symbols}, err
	}

	var res BulkDeleteResult
	var stop error
	for i, sym := range symbols {
		err := ctx.Err()
		if err == nil {
			err = c.store.DeleteHolding(ctx, sym)
		}
		if err == nil {
			res.Deleted = append(res.Deleted, sym)
			continue
		}
		if errors.Is(c.session.Observe(err), models.ErrAuthExpired) || ctx.Err() != nil {
			res.Skipped = append(res.Skipped, symbols[i:]...)
			stop = err
			break
		}
		c.log.WithField("symbol", sym).Warnf("bulk delete: %v", err)
		res.Failed = append(res.Failed, DeleteFailure{Symbol: sym, Err: err})
	}
	c.log.Infof("bulk delete: %d deleted, %d failed, %d skipped", len(res.Deleted), len(res.Failed), len(res.Skipped))

	var resyncErr error
	if len(res.Deleted) > 0 && !c.session.Expired() {
		res.Result, resyncErr = c.portfolio.Resync(ctx)
	} else {
		res.Result = Result{Snapshot: c.portfolio.Snapshot()}
	}

	switch {
	case stop != nil:
		return res, stop
	case len(res.Failed) > 0:
		return res, &BulkDeleteError{Deleted: res.Deleted, Failed: res.Failed}
	}
	return res, resyncErr
}

func normalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func uniqueSymbols(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = normalizeSymbol(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
