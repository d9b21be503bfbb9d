package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"folio/internal/models"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// Repo is the SQL holdings store. Queries are written with ? placeholders and
// rebound for the connected driver.
type Repo struct {
	db  *sqlx.DB
	log *logrus.Logger
	now func() time.Time
}

func New(db *sqlx.DB, log *logrus.Logger) *Repo {
	return &Repo{db: db, log: log, now: time.Now}
}

func (r *Repo) ListHoldings(ctx context.Context) ([]models.Holding, error) {
	rows, err := r.db.QueryxContext(ctx, `SELECT `+holdingColumns+` FROM holdings ORDER BY seq, symbol`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []models.Holding{}
	for rows.Next() {
		var h models.Holding
		if err := rows.StructScan(&h); err != nil {
			r.log.Warnf("scan holding failed: %v", err)
			continue
		}
		res = append(res, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()
	for i := range res {
		r.baseline(ctx, &res[i])
	}
	return res, nil
}

// baseline fills a zero reference price from the latest recorded price, so
// the first daily delta of such a holding is measured against the market.
func (r *Repo) baseline(ctx context.Context, h *models.Holding) {
	if !h.ReferencePrice.IsZero() {
		return
	}
	p, err := r.LatestPrice(ctx, h.Symbol)
	if err != nil {
		if !errors.Is(err, ErrNoPrice) {
			r.log.WithField("symbol", h.Symbol).Warnf("latest price lookup failed: %v", err)
		}
		return
	}
	h.ReferencePrice = p.Price
	if h.CurrentPrice.IsZero() {
		h.CurrentPrice = p.Price
	}
}

func (r *Repo) CreateHolding(ctx context.Context, h models.Holding) error {
	q := r.db.Rebind(`INSERT INTO holdings (` + holdingColumns + `, seq)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) ON CONFLICT (symbol) DO NOTHING`)
	res, err := r.db.ExecContext(ctx, q,
		h.Symbol, h.Name, h.Quantity, h.CostBasisPerUnit, h.TotalCostBasis, h.ReferencePrice,
		h.CurrentPrice, h.PurchaseCurrency, h.DividendPerUnit, h.DividendYieldPercent, h.TotalProfit, h.DailyProfit,
		r.now().UnixNano())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("create %s: %w", h.Symbol, models.ErrDuplicateSymbol)
	}
	return nil
}

func (r *Repo) DeleteHolding(ctx context.Context, symbol string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM holdings WHERE symbol = ?`), symbol)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("delete %s: %w", symbol, models.ErrHoldingNotFound)
	}
	return nil
}

// RecordPrices stores refreshed price fields and appends each live price to
// the price history, in one transaction.
func (r *Repo) RecordPrices(ctx context.Context, holdings []models.Holding) error {
	if len(holdings) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	update := tx.Rebind(`UPDATE holdings SET reference_price = ?, current_price = ?, total_profit = ?,
daily_profit = ?, updated_at = CURRENT_TIMESTAMP WHERE symbol = ?`)
	insert := tx.Rebind(`INSERT INTO price_history (symbol, price, recorded_at) VALUES (?, ?, ?)`)
	for _, h := range holdings {
		at := h.PricedAt
		if at.IsZero() {
			at = r.now()
		}
		if _, err := tx.ExecContext(ctx, update, h.ReferencePrice, h.CurrentPrice, h.TotalProfit, h.DailyProfit, h.Symbol); err != nil {
			return fmt.Errorf("record %s: %w", h.Symbol, err)
		}
		if _, err := tx.ExecContext(ctx, insert, h.Symbol, h.CurrentPrice, at.Unix()); err != nil {
			return fmt.Errorf("record %s history: %w", h.Symbol, err)
		}
	}
	return tx.Commit()
}

// ErrNoPrice is returned when no price was ever recorded for a symbol.
var ErrNoPrice = errors.New("no recorded price")

func (r *Repo) LatestPrice(ctx context.Context, symbol string) (PricePoint, error) {
	var row priceRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`SELECT symbol, price, recorded_at FROM price_history
WHERE symbol = ? ORDER BY recorded_at DESC LIMIT 1`), symbol)
	if errors.Is(err, sql.ErrNoRows) {
		return PricePoint{}, fmt.Errorf("%s: %w", symbol, ErrNoPrice)
	}
	if err != nil {
		return PricePoint{}, err
	}
	return row.point(), nil
}

// PriceHistory returns up to limit recorded prices for symbol, newest first.
func (r *Repo) PriceHistory(ctx context.Context, symbol string, limit int) ([]PricePoint, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []priceRow
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`SELECT symbol, price, recorded_at FROM price_history
WHERE symbol = ? ORDER BY recorded_at DESC LIMIT ?`), symbol, limit)
	if err != nil {
		return nil, err
	}
	out := make([]PricePoint, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.point())
	}
	return out, nil
}
