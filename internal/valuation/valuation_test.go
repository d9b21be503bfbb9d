package valuation

import (
	"math/rand"
	"testing"

	"folio/internal/currency"
	"folio/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sampleHoldings() []models.Holding {
	return []models.Holding{
		{
			Symbol: "AAPL", Name: "Apple Inc", Quantity: 10,
			CostBasisPerUnit: d("243.04"), TotalCostBasis: d("2430.40"),
			ReferencePrice: d("242.84"), CurrentPrice: d("242.84"),
			PurchaseCurrency: currency.USD,
			DividendPerUnit:  d("1"), DividendYieldPercent: d("0.41"),
			TotalProfit: d("-2.00"), DailyProfit: d("-2.00"),
		},
		{
			Symbol: "TSLA", Name: "Tesla, Inc", Quantity: 10,
			CostBasisPerUnit: d("350"), TotalCostBasis: d("3500"),
			ReferencePrice: d("389.22"), CurrentPrice: d("389.22"),
			PurchaseCurrency: currency.USD,
			TotalProfit: d("392.2"), DailyProfit: d("197.3"),
		},
		{
			Symbol: "005930", Name: "Samsung Electronics", Quantity: 3,
			CostBasisPerUnit: d("71000"), TotalCostBasis: d("213000"),
			ReferencePrice: d("72000"), CurrentPrice: d("72000"),
			PurchaseCurrency: currency.KRW,
			DividendPerUnit:  d("1444"), DividendYieldPercent: d("2.01"),
			TotalProfit: d("3000"), DailyProfit: d("-1500"),
		},
	}
}

func TestValue_ScenarioKRW(t *testing.T) {
	conv := currency.NewConverter(currency.DefaultRates())
	h := models.Holding{
		Symbol: "AAPL", Quantity: 10,
		CostBasisPerUnit: d("243.04"), TotalCostBasis: d("2430.40"),
		ReferencePrice: d("243.04"), CurrentPrice: d("243.04"),
		PurchaseCurrency: currency.USD,
	}
	h = h.ApplyLivePrice(d("242.84"), h.PricedAt)

	v := Value(conv, []models.Holding{h}, currency.KRW)
	require.Len(t, v.Rows, 1)
	row := v.Rows[0]

	assert.Equal(t, "3267672.8", row.TotalCostBasis.String())
	assert.Equal(t, "-2689", row.DailyProfit.String())
	assert.Equal(t, int64(10), row.Quantity)
	assert.Equal(t, "AAPL", row.Symbol)
	assert.Equal(t, currency.USD, row.PurchaseCurrency)
	assert.Equal(t, "3267672.8", v.Totals.TotalCostBasis.String())
}

func TestValue_TotalsAndYieldAverage(t *testing.T) {
	conv := currency.NewConverter(currency.DefaultRates())
	v := Value(conv, sampleHoldings(), currency.USD)

	assert.Equal(t, 3, v.Totals.Count)
	assert.Equal(t, int64(23), v.Totals.Quantity)
	// (0.41 + 0 + 2.01) / 3
	assert.True(t, v.Totals.DividendYieldPercent.Round(6).Equal(d("0.806667")), v.Totals.DividendYieldPercent.String())

	wantCost := d("2430.40").Add(d("3500")).Add(d("213000").Div(d("1344.5")))
	assert.True(t, v.Totals.TotalCostBasis.Sub(wantCost).Abs().LessThan(d("0.000001")))

	// AAPL dividend 1 * 10 in USD
	assert.True(t, v.Rows[0].Dividend.Equal(d("10")))
	assert.True(t, v.Rows[0].CurrentValue.Equal(d("2428.4")))
}

func TestValue_OrderIndependent(t *testing.T) {
	conv := currency.NewConverter(currency.DefaultRates())
	hs := sampleHoldings()
	want := Value(conv, hs, currency.EUR).Totals

	r := rand.New(rand.NewSource(7))
	for i := 0; i < 10; i++ {
		perm := make([]models.Holding, len(hs))
		copy(perm, hs)
		r.Shuffle(len(perm), func(a, b int) { perm[a], perm[b] = perm[b], perm[a] })

		got := Value(conv, perm, currency.EUR).Totals
		assert.True(t, got.TotalCostBasis.Equal(want.TotalCostBasis))
		assert.True(t, got.CurrentValue.Equal(want.CurrentValue))
		assert.True(t, got.Dividend.Equal(want.Dividend))
		assert.True(t, got.TotalProfit.Equal(want.TotalProfit))
		assert.True(t, got.DailyProfit.Equal(want.DailyProfit))
		assert.True(t, got.DividendYieldPercent.Equal(want.DividendYieldPercent))
		assert.Equal(t, want.Quantity, got.Quantity)
	}
}

func TestValue_Empty(t *testing.T) {
	conv := currency.NewConverter(currency.DefaultRates())
	v := Value(conv, nil, currency.KRW)

	assert.Empty(t, v.Rows)
	assert.Equal(t, 0, v.Totals.Count)
	assert.Equal(t, int64(0), v.Totals.Quantity)
	for _, x := range []decimal.Decimal{
		v.Totals.TotalCostBasis, v.Totals.CurrentValue, v.Totals.Dividend,
		v.Totals.DividendYieldPercent, v.Totals.TotalProfit, v.Totals.DailyProfit, v.Totals.ProfitPercent,
	} {
		assert.True(t, x.IsZero())
	}
}

func TestValue_DoesNotModifyInput(t *testing.T) {
	conv := currency.NewConverter(currency.DefaultRates())
	hs := sampleHoldings()
	before := sampleHoldings()
	_ = Value(conv, hs, currency.JPY)
	assert.Equal(t, before, hs)
}

func TestAdvise(t *testing.T) {
	cases := []struct {
		value, profit string
		want          AdviceLevel
	}{
		{"90", "-10", AdviceReview},
		{"103", "3", AdviceSteady},
		{"120", "20", AdviceStrong},
		{"0", "0", AdviceSteady},
	}
	for _, tc := range cases {
		a := Advise(Totals{CurrentValue: d(tc.value), TotalProfit: d(tc.profit)})
		assert.Equal(t, tc.want, a.Level, "value %s profit %s", tc.value, tc.profit)
		assert.NotEmpty(t, a.Message)
	}
}
