// Package valuation projects holdings into a display currency and derives
// portfolio totals. It never modifies the holdings it reads.
package valuation

import (
	"folio/internal/currency"
	"folio/internal/models"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Row is one holding with every monetary field in the display currency.
type Row struct {
	Symbol               string          `json:"symbol"`
	Name                 string          `json:"name"`
	Quantity             int64           `json:"quantity"`
	PurchaseCurrency     currency.Code   `json:"purchase_currency"`
	CostBasisPerUnit     decimal.Decimal `json:"cost_basis_per_unit"`
	TotalCostBasis       decimal.Decimal `json:"total_cost_basis"`
	CurrentPrice         decimal.Decimal `json:"current_price"`
	CurrentValue         decimal.Decimal `json:"current_value"`
	Dividend             decimal.Decimal `json:"dividend"`
	DividendYieldPercent decimal.Decimal `json:"dividend_yield_percent"`
	TotalProfit          decimal.Decimal `json:"total_profit"`
	DailyProfit          decimal.Decimal `json:"daily_profit"`
}

// Totals aggregates converted rows. DividendYieldPercent is the plain mean of
// the per-holding yields, not weighted by value.
type Totals struct {
	Currency             currency.Code   `json:"currency"`
	Count                int             `json:"count"`
	Quantity             int64           `json:"quantity"`
	TotalCostBasis       decimal.Decimal `json:"total_cost_basis"`
	CurrentValue         decimal.Decimal `json:"current_value"`
	Dividend             decimal.Decimal `json:"dividend"`
	DividendYieldPercent decimal.Decimal `json:"dividend_yield_percent"`
	TotalProfit          decimal.Decimal `json:"total_profit"`
	DailyProfit          decimal.Decimal `json:"daily_profit"`
	ProfitPercent        decimal.Decimal `json:"profit_percent"`
}

type Valuation struct {
	Currency currency.Code `json:"currency"`
	Rows     []Row         `json:"rows"`
	Totals   Totals        `json:"totals"`
}

// Value converts holdings into display and sums them.
func Value(conv *currency.Converter, holdings []models.Holding, display currency.Code) Valuation {
	rows := make([]Row, 0, len(holdings))
	for _, h := range holdings {
		rows = append(rows, Project(conv, h, display))
	}
	return Valuation{Currency: display, Rows: rows, Totals: Sum(rows, display)}
}

func Project(conv *currency.Converter, h models.Holding, display currency.Code) Row {
	to := func(v decimal.Decimal) decimal.Decimal {
		return conv.Convert(v, h.PurchaseCurrency, display)
	}
	return Row{
		Symbol:               h.Symbol,
		Name:                 h.Name,
		Quantity:             h.Quantity,
		PurchaseCurrency:     h.PurchaseCurrency,
		CostBasisPerUnit:     to(h.CostBasisPerUnit),
		TotalCostBasis:       to(h.TotalCostBasis),
		CurrentPrice:         to(h.CurrentPrice),
		CurrentValue:         to(h.CurrentValue()),
		Dividend:             to(h.Dividend()),
		DividendYieldPercent: h.DividendYieldPercent,
		TotalProfit:          to(h.TotalProfit),
		DailyProfit:          to(h.DailyProfit),
	}
}

// Sum totals rows that are already in display.
func Sum(rows []Row, display currency.Code) Totals {
	t := Totals{Currency: display, Count: len(rows)}
	yieldSum := decimal.Zero
	for _, r := range rows {
		t.Quantity += r.Quantity
		t.TotalCostBasis = t.TotalCostBasis.Add(r.TotalCostBasis)
		t.CurrentValue = t.CurrentValue.Add(r.CurrentValue)
		t.Dividend = t.Dividend.Add(r.Dividend)
		t.TotalProfit = t.TotalProfit.Add(r.TotalProfit)
		t.DailyProfit = t.DailyProfit.Add(r.DailyProfit)
		yieldSum = yieldSum.Add(r.DividendYieldPercent)
	}
	if t.Count > 0 {
		t.DividendYieldPercent = yieldSum.Div(decimal.NewFromInt(int64(t.Count)))
	}
	if !t.TotalCostBasis.IsZero() {
		t.ProfitPercent = t.TotalProfit.Div(t.TotalCostBasis).Mul(hundred)
	}
	return t
}
