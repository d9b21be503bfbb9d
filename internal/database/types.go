package database

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricePoint is one recorded live price.
type PricePoint struct {
	Symbol     string          `json:"symbol"`
	Price      decimal.Decimal `json:"price"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// priceRow stores recorded_at as unix seconds so both drivers scan it the same way.
type priceRow struct {
	Symbol     string          `db:"symbol"`
	Price      decimal.Decimal `db:"price"`
	RecordedAt int64           `db:"recorded_at"`
}

func (r priceRow) point() PricePoint {
	return PricePoint{Symbol: r.Symbol, Price: r.Price, RecordedAt: time.Unix(r.RecordedAt, 0).UTC()}
}

const holdingColumns = `symbol, name, quantity, cost_basis_per_unit, total_cost_basis, reference_price,
current_price, purchase_currency, dividend_per_unit, dividend_yield_percent, total_profit, daily_profit`
