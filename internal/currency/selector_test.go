package currency

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelector_SetAndNotify(t *testing.T) {
	s, err := NewSelector(DefaultRates(), USD)
	require.NoError(t, err)

	var got [][2]Code
	unsubscribe := s.Subscribe(func(old, new Code) { got = append(got, [2]Code{old, new}) })

	require.NoError(t, s.Set(KRW))
	assert.Equal(t, KRW, s.Current())
	require.NoError(t, s.Set(KRW))

	unsubscribe()
	require.NoError(t, s.Set(EUR))

	assert.Equal(t, [][2]Code{{USD, KRW}}, got)
}

func TestSelector_RejectsUnknown(t *testing.T) {
	s, err := NewSelector(DefaultRates(), USD)
	require.NoError(t, err)

	assert.ErrorIs(t, s.Set("XYZ"), ErrUnknownCurrency)
	assert.Equal(t, USD, s.Current())

	_, err = NewSelector(DefaultRates(), "XYZ")
	assert.ErrorIs(t, err, ErrUnknownCurrency)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "$2,430.40", Format(d("2430.4"), USD))
	assert.Equal(t, "-$2.00", SignedFormat(d("-2"), USD))
	assert.Equal(t, "+$0.00", SignedFormat(d("0"), USD))
	assert.Equal(t, "12.50 ZZZ", Format(d("12.5"), "ZZZ"))
}
