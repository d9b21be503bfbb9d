package models

import (
	"strings"
	"time"

	"folio/internal/currency"
	"github.com/shopspring/decimal"
)

// Holding is one position in one asset. Monetary fields are denominated in
// PurchaseCurrency.
type Holding struct {
	Symbol               string          `db:"symbol" json:"symbol"`
	Name                 string          `db:"name" json:"name"`
	Quantity             int64           `db:"quantity" json:"quantity"`
	CostBasisPerUnit     decimal.Decimal `db:"cost_basis_per_unit" json:"cost_basis_per_unit"`
	TotalCostBasis       decimal.Decimal `db:"total_cost_basis" json:"total_cost_basis"`
	ReferencePrice       decimal.Decimal `db:"reference_price" json:"reference_price"`
	CurrentPrice         decimal.Decimal `db:"current_price" json:"current_price"`
	PurchaseCurrency     currency.Code   `db:"purchase_currency" json:"purchase_currency"`
	DividendPerUnit      decimal.Decimal `db:"dividend_per_unit" json:"dividend_per_unit"`
	DividendYieldPercent decimal.Decimal `db:"dividend_yield_percent" json:"dividend_yield_percent"`
	TotalProfit          decimal.Decimal `db:"total_profit" json:"total_profit"`
	DailyProfit          decimal.Decimal `db:"daily_profit" json:"daily_profit"`
	PricedAt             time.Time       `db:"-" json:"priced_at,omitempty"`
}

func (h Holding) CurrentValue() decimal.Decimal {
	return h.CurrentPrice.Mul(decimal.NewFromInt(h.Quantity))
}

func (h Holding) Dividend() decimal.Decimal {
	return h.DividendPerUnit.Mul(decimal.NewFromInt(h.Quantity))
}

// ApplyLivePrice returns h repriced at live. The daily delta is measured
// against the previous reference price, which live then replaces.
func (h Holding) ApplyLivePrice(live decimal.Decimal, at time.Time) Holding {
	qty := decimal.NewFromInt(h.Quantity)
	h.CurrentPrice = live
	h.TotalProfit = live.Mul(qty).Sub(h.TotalCostBasis)
	h.DailyProfit = live.Sub(h.ReferencePrice).Mul(qty)
	h.ReferencePrice = live
	h.PricedAt = at
	return h
}

// NewHolding is the input of an add-holding mutation.
type NewHolding struct {
	Symbol               string          `json:"symbol" binding:"required"`
	Name                 string          `json:"name"`
	Quantity             int64           `json:"quantity"`
	CostBasisPerUnit     decimal.Decimal `json:"cost_basis_per_unit"`
	PurchaseCurrency     currency.Code   `json:"purchase_currency" binding:"required"`
	DividendPerUnit      decimal.Decimal `json:"dividend_per_unit"`
	DividendYieldPercent decimal.Decimal `json:"dividend_yield_percent"`
}

// Normalize trims the symbol and upper-cases symbol and currency.
func (n NewHolding) Normalize() NewHolding {
	n.Symbol = strings.ToUpper(strings.TrimSpace(n.Symbol))
	n.Name = strings.TrimSpace(n.Name)
	n.PurchaseCurrency = currency.Code(strings.ToUpper(strings.TrimSpace(string(n.PurchaseCurrency))))
	return n
}

func (n NewHolding) Validate(rates *currency.RateTable) error {
	switch {
	case n.Symbol == "":
		return &ValidationError{Field: "symbol", Reason: "is required"}
	case n.Quantity < 1:
		return &ValidationError{Field: "quantity", Reason: "must be at least 1"}
	case n.CostBasisPerUnit.IsNegative():
		return &ValidationError{Field: "cost_basis_per_unit", Reason: "must not be negative"}
	case n.DividendPerUnit.IsNegative():
		return &ValidationError{Field: "dividend_per_unit", Reason: "must not be negative"}
	case n.DividendYieldPercent.IsNegative():
		return &ValidationError{Field: "dividend_yield_percent", Reason: "must not be negative"}
	case rates != nil && !rates.Has(n.PurchaseCurrency):
		return &ValidationError{Field: "purchase_currency", Reason: "unknown currency " + string(n.PurchaseCurrency)}
	}
	return nil
}

// Holding builds the stored record. The purchase price seeds both the
// reference and current price.
func (n NewHolding) Holding() Holding {
	return Holding{
		Symbol:               n.Symbol,
		Name:                 n.Name,
		Quantity:             n.Quantity,
		CostBasisPerUnit:     n.CostBasisPerUnit,
		TotalCostBasis:       n.CostBasisPerUnit.Mul(decimal.NewFromInt(n.Quantity)),
		ReferencePrice:       n.CostBasisPerUnit,
		CurrentPrice:         n.CostBasisPerUnit,
		PurchaseCurrency:     n.PurchaseCurrency,
		DividendPerUnit:      n.DividendPerUnit,
		DividendYieldPercent: n.DividendYieldPercent,
	}
}

// SearchResult is a stock lookup, denominated in the asset's own currency.
type SearchResult struct {
	Name         string          `json:"name"`
	Symbol       string          `json:"symbol"`
	LogoURL      string          `json:"logo"`
	CurrentPrice decimal.Decimal `json:"currentPrice"`
	Week52Low    decimal.Decimal `json:"week52Low"`
	Week52High   decimal.Decimal `json:"week52High"`
	Currency     currency.Code   `json:"currency"`
}
