package handlers

import (
	"time"

	"folio/internal/currency"
	"folio/internal/service"
	"folio/internal/valuation"
	"github.com/shopspring/decimal"
)

// Amount is a decimal rendered both for machines and for people.
type Amount struct {
	Value     string `json:"value"`
	Formatted string `json:"formatted"`
}

func money(v decimal.Decimal, code currency.Code) Amount {
	return Amount{Value: v.StringFixed(4), Formatted: currency.Format(v, code)}
}

func signed(v decimal.Decimal, code currency.Code) Amount {
	return Amount{Value: v.StringFixed(4), Formatted: currency.SignedFormat(v, code)}
}

type rowView struct {
	Symbol               string        `json:"symbol"`
	Name                 string        `json:"name"`
	Quantity             int64         `json:"quantity"`
	PurchaseCurrency     currency.Code `json:"purchase_currency"`
	CostBasisPerUnit     Amount        `json:"cost_basis_per_unit"`
	TotalCostBasis       Amount        `json:"total_cost_basis"`
	CurrentPrice         Amount        `json:"current_price"`
	CurrentValue         Amount        `json:"current_value"`
	Dividend             Amount        `json:"dividend"`
	DividendYieldPercent string        `json:"dividend_yield_percent"`
	TotalProfit          Amount        `json:"total_profit"`
	DailyProfit          Amount        `json:"daily_profit"`
}

type totalsView struct {
	Count                int    `json:"count"`
	Quantity             int64  `json:"quantity"`
	TotalCostBasis       Amount `json:"total_cost_basis"`
	CurrentValue         Amount `json:"current_value"`
	Dividend             Amount `json:"dividend"`
	DividendYieldPercent string `json:"dividend_yield_percent"`
	TotalProfit          Amount `json:"total_profit"`
	DailyProfit          Amount `json:"daily_profit"`
	ProfitPercent        string `json:"profit_percent"`
}

type adviceView struct {
	Level         valuation.AdviceLevel `json:"level"`
	ProfitPercent string                `json:"profit_percent"`
	Message       string                `json:"message"`
}

type portfolioView struct {
	Currency currency.Code    `json:"currency"`
	Rows     []rowView        `json:"rows"`
	Totals   totalsView       `json:"totals"`
	Advice   adviceView       `json:"advice"`
	Notices  []service.Notice `json:"notices"`
	SyncedAt *time.Time       `json:"synced_at"`
	Version  uint64           `json:"version"`
}

func notices(in []service.Notice) []service.Notice {
	if in == nil {
		return []service.Notice{}
	}
	return in
}

func newPortfolioView(conv *currency.Converter, snap service.Snapshot, display currency.Code) portfolioView {
	v := valuation.Value(conv, snap.Holdings, display)
	out := portfolioView{
		Currency: display,
		Rows:     make([]rowView, 0, len(v.Rows)),
		Notices:  notices(snap.Notices),
		Version:  snap.Version,
	}
	if !snap.SyncedAt.IsZero() {
		at := snap.SyncedAt
		out.SyncedAt = &at
	}
	for _, r := range v.Rows {
		out.Rows = append(out.Rows, rowView{
			Symbol:               r.Symbol,
			Name:                 r.Name,
			Quantity:             r.Quantity,
			PurchaseCurrency:     r.PurchaseCurrency,
			CostBasisPerUnit:     money(r.CostBasisPerUnit, display),
			TotalCostBasis:       money(r.TotalCostBasis, display),
			CurrentPrice:         money(r.CurrentPrice, display),
			CurrentValue:         money(r.CurrentValue, display),
			Dividend:             money(r.Dividend, display),
			DividendYieldPercent: r.DividendYieldPercent.StringFixed(4),
			TotalProfit:          signed(r.TotalProfit, display),
			DailyProfit:          signed(r.DailyProfit, display),
		})
	}
	t := v.Totals
	out.Totals = totalsView{
		Count:                t.Count,
		Quantity:             t.Quantity,
		TotalCostBasis:       money(t.TotalCostBasis, display),
		CurrentValue:         money(t.CurrentValue, display),
		Dividend:             money(t.Dividend, display),
		DividendYieldPercent: t.DividendYieldPercent.StringFixed(4),
		TotalProfit:          signed(t.TotalProfit, display),
		DailyProfit:          signed(t.DailyProfit, display),
		ProfitPercent:        t.ProfitPercent.StringFixed(4),
	}
	a := valuation.Advise(t)
	out.Advice = adviceView{Level: a.Level, ProfitPercent: a.ProfitPercent.StringFixed(4), Message: a.Message}
	return out
}
