package currency

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Code identifies a currency, e.g. "USD" or "KRW".
type Code string

const (
	USD Code = "USD"
	KRW Code = "KRW"
	EUR Code = "EUR"
	GBP Code = "GBP"
	JPY Code = "JPY"
	CAD Code = "CAD"
	AUD Code = "AUD"
	CNY Code = "CNY"
	CHF Code = "CHF"
	INR Code = "INR"
	SGD Code = "SGD"
)

var ErrUnknownCurrency = errors.New("unknown currency")

// Rate is the number of units of Code per one unit of the reference currency.
type Rate struct {
	Code  Code
	Units decimal.Decimal
}

// RateTable is an immutable set of rates relative to a single reference currency.
type RateTable struct {
	order     []Code
	rates     map[Code]decimal.Decimal
	reference Code
}

func NewRateTable(rates ...Rate) (*RateTable, error) {
	t := &RateTable{rates: make(map[Code]decimal.Decimal, len(rates))}
	for _, r := range rates {
		if r.Code == "" {
			return nil, errors.New("rate table: empty currency code")
		}
		if _, dup := t.rates[r.Code]; dup {
			return nil, fmt.Errorf("rate table: duplicate currency %s", r.Code)
		}
		if !r.Units.IsPositive() {
			return nil, fmt.Errorf("rate table: rate for %s must be positive, got %s", r.Code, r.Units)
		}
		t.rates[r.Code] = r.Units
		t.order = append(t.order, r.Code)
		if r.Units.Equal(decimal.NewFromInt(1)) && t.reference == "" {
			t.reference = r.Code
		}
	}
	if t.reference == "" {
		return nil, errors.New("rate table: no reference currency with rate 1")
	}
	return t, nil
}

var defaultRates = []Rate{
	{USD, decimal.NewFromInt(1)},
	{KRW, decimal.RequireFromString("1344.5")},
	{EUR, decimal.RequireFromString("0.92")},
	{GBP, decimal.RequireFromString("0.79")},
	{JPY, decimal.RequireFromString("151.62")},
	{CAD, decimal.RequireFromString("1.35")},
	{AUD, decimal.RequireFromString("1.52")},
	{CNY, decimal.RequireFromString("7.24")},
	{CHF, decimal.RequireFromString("0.89")},
	{INR, decimal.RequireFromString("83.35")},
	{SGD, decimal.RequireFromString("1.34")},
}

// DefaultRates returns the embedded USD-referenced table.
func DefaultRates() *RateTable {
	t, err := NewRateTable(defaultRates...)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *RateTable) Rate(c Code) (decimal.Decimal, bool) {
	r, ok := t.rates[c]
	return r, ok
}

func (t *RateTable) Has(c Code) bool {
	_, ok := t.rates[c]
	return ok
}

// Codes returns the currencies in table order.
func (t *RateTable) Codes() []Code {
	out := make([]Code, len(t.order))
	copy(out, t.order)
	return out
}

func (t *RateTable) Reference() Code { return t.reference }

// Parse normalises s and checks it against the table.
func (t *RateTable) Parse(s string) (Code, error) {
	c := Code(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Has(c) {
		return "", fmt.Errorf("%w: %q", ErrUnknownCurrency, s)
	}
	return c, nil
}
