package currency

import "github.com/shopspring/decimal"

// Converter converts amounts between currencies of a RateTable.
type Converter struct {
	table *RateTable
}

func NewConverter(t *RateTable) *Converter {
	return &Converter{table: t}
}

func (c *Converter) Table() *RateTable { return c.table }

// Convert normalises amount to the reference currency by dividing by the rate
// of from, then multiplies by the rate of to.
//
// A code missing from the table is converted with a neutral rate of 1 instead
// of failing. Stored holdings may carry legacy codes and must still render;
// such amounts pass through as if they were already in the reference currency.
func (c *Converter) Convert(amount decimal.Decimal, from, to Code) decimal.Decimal {
	if from == to || amount.IsZero() {
		return amount
	}
	return amount.Div(c.rate(from)).Mul(c.rate(to))
}

func (c *Converter) rate(code Code) decimal.Decimal {
	if r, ok := c.table.Rate(code); ok {
		return r
	}
	return decimal.NewFromInt(1)
}
