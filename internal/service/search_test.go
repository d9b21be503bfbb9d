package service

import (
	"context"
	"errors"
	"testing"

	"folio/internal/currency"
	"folio/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	res models.SearchResult
	err error
}

func (f fakeSearcher) SearchStocks(ctx context.Context, query string) (models.SearchResult, error) {
	return f.res, f.err
}

func TestSearch_ConvertsPrices(t *testing.T) {
	res := models.SearchResult{Name: "Apple Inc", Symbol: "AAPL", CurrentPrice: d("2"), Week52Low: d("1"), Week52High: d("3"), Currency: currency.USD}
	s := NewSearchService(fakeSearcher{res: res}, NewSession(quietLogger()), currency.NewConverter(currency.DefaultRates()), quietLogger())

	view, err := s.Search(context.Background(), " apple ", currency.KRW)
	require.NoError(t, err)
	assert.Equal(t, "2689", view.CurrentPrice.String())
	assert.Equal(t, "1344.5", view.Week52Low.String())
	assert.Equal(t, "4033.5", view.Week52High.String())
	assert.Equal(t, "AAPL", view.Result.Symbol)
}

func TestSearch_Errors(t *testing.T) {
	session := NewSession(quietLogger())
	s := NewSearchService(fakeSearcher{err: models.ErrAuthExpired}, session, currency.NewConverter(currency.DefaultRates()), quietLogger())

	_, err := s.Search(context.Background(), "  ", currency.USD)
	var verr *models.ValidationError
	assert.True(t, errors.As(err, &verr))

	_, err = s.Search(context.Background(), "apple", currency.USD)
	assert.ErrorIs(t, err, models.ErrAuthExpired)
	assert.True(t, session.Expired())
}
