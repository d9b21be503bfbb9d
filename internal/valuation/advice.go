package valuation

import "github.com/shopspring/decimal"

type AdviceLevel string

const (
	AdviceReview AdviceLevel = "review"
	AdviceSteady AdviceLevel = "steady"
	AdviceStrong AdviceLevel = "strong"
)

var steadyThreshold = decimal.NewFromInt(5)

type Advice struct {
	Level         AdviceLevel     `json:"level"`
	ProfitPercent decimal.Decimal `json:"profit_percent"`
	Message       string          `json:"message"`
}

var adviceMessages = map[AdviceLevel]string{
	AdviceReview: "The portfolio is showing a negative return. Review the outlook of current holdings and spread risk through diversification.",
	AdviceSteady: "Returns are stable. Consider raising the share of dividend stocks to secure regular income.",
	AdviceStrong: "The portfolio is performing well. Keep monitoring it and rebalance periodically to protect gains.",
}

// Advise buckets the portfolio by profit relative to the value it started
// from (current value minus profit).
func Advise(t Totals) Advice {
	pct := decimal.Zero
	if base := t.CurrentValue.Sub(t.TotalProfit); !base.IsZero() {
		pct = t.TotalProfit.Div(base).Mul(hundred)
	}
	level := AdviceStrong
	switch {
	case pct.IsNegative():
		level = AdviceReview
	case pct.LessThan(steadyThreshold):
		level = AdviceSteady
	}
	return Advice{Level: level, ProfitPercent: pct, Message: adviceMessages[level]}
}
