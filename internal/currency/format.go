package currency

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

const displayFraction = 2

// Format renders amount with the grapheme and separators of code, always with
// two fraction digits.
func Format(amount decimal.Decimal, code Code) string {
	cur := money.GetCurrency(string(code))
	if cur == nil {
		return amount.StringFixed(displayFraction) + " " + string(code)
	}
	f := money.NewFormatter(displayFraction, cur.Decimal, cur.Thousand, cur.Grapheme, cur.Template)
	return f.Format(amount.Shift(displayFraction).Round(0).IntPart())
}

// SignedFormat is Format with a leading "+" for non-negative amounts.
func SignedFormat(amount decimal.Decimal, code Code) string {
	if amount.IsNegative() {
		return Format(amount, code)
	}
	return "+" + Format(amount, code)
}
