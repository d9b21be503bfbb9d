package service

import (
	"context"
	"errors"
	"testing"

	"folio/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResync_PublishesAndCarriesBaseline(t *testing.T) {
	fs := newFakeStore(holding("AAPL", 10, "243.04"))
	prices := newFakePrices()
	prices.prices["AAPL"] = d("242.84")
	e := newEngine(fs, fs, prices)

	var published []Snapshot
	e.portfolio.Subscribe(func(s Snapshot) { published = append(published, s) })

	res, err := e.portfolio.Resync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.Snapshot.Version)
	assert.Equal(t, "-2", res.Snapshot.Holdings[0].DailyProfit.String())

	// The store still reports the purchase price as reference; the engine
	// measures the next delta from the last live price instead.
	prices.prices["AAPL"] = d("243.84")
	res, err = e.portfolio.Resync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "10", res.Snapshot.Holdings[0].DailyProfit.String())
	assert.Equal(t, "8", res.Snapshot.Holdings[0].TotalProfit.String())
	assert.Len(t, published, 2)
}

func TestResync_DropsDuplicateSymbols(t *testing.T) {
	fs := newFakeStore(holding("AAPL", 1, "1"), holding("AAPL", 5, "2"), holding("AMZN", 1, "3"))
	prices := newFakePrices()
	e := newEngine(fs, fs, prices)

	res, err := e.portfolio.Resync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "AMZN"}, res.Snapshot.Symbols())
	assert.Equal(t, int64(1), res.Snapshot.Holdings[0].Quantity)
	assert.True(t, res.NoOp, "no prices available")
}

func TestRefresh_PartialFailureAndNoOp(t *testing.T) {
	fs := newFakeStore(holding("AAPL", 1, "100"), holding("TSLA", 1, "200"))
	prices := newFakePrices()
	prices.prices["AAPL"] = d("110")
	prices.prices["TSLA"] = d("210")
	e := newEngine(fs, fs, prices)

	_, err := e.portfolio.Resync(context.Background())
	require.NoError(t, err)
	before := e.portfolio.Snapshot()

	prices.prices["AAPL"] = d("120")
	prices.errs["TSLA"] = errors.New("boom")
	res, err := e.portfolio.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "120", res.Snapshot.Holdings[0].CurrentPrice.String())
	assert.Equal(t, before.Holdings[1], res.Snapshot.Holdings[1])
	assert.Len(t, res.Snapshot.Notices, 1)

	prices.errs["AAPL"] = errors.New("down")
	mid := e.portfolio.Snapshot()
	res, err = e.portfolio.Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, res.NoOp)
	assert.Equal(t, mid, e.portfolio.Snapshot(), "no-op cycle keeps the last snapshot")
}

func TestResync_StoreFailureKeepsSnapshot(t *testing.T) {
	fs := newFakeStore(holding("AAPL", 1, "1"))
	e := newEngine(fs, fs, newFakePrices())
	_, err := e.portfolio.Resync(context.Background())
	require.NoError(t, err)

	fs.listErr = errors.New("connection refused")
	res, err := e.portfolio.Resync(context.Background())
	var serr *StoreOperationError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, OpList, serr.Op)
	assert.Equal(t, uint64(1), res.Snapshot.Version)
}

func TestResync_RecordsPrices(t *testing.T) {
	fs := newFakeStore(holding("AAPL", 1, "1"), holding("TSLA", 1, "1"))
	prices := newFakePrices()
	prices.prices["AAPL"] = d("2")
	e := newEngine(recordingStore{fs}, fs, prices)

	_, err := e.portfolio.Resync(context.Background())
	require.NoError(t, err)
	require.Len(t, fs.recorded, 1)
	assert.Equal(t, "AAPL", fs.recorded[0].Symbol)
	assert.Equal(t, "2", fs.recorded[0].CurrentPrice.String())
}

func TestAuthExpired_StopsFurtherCalls(t *testing.T) {
	fs := newFakeStore(holding("AAPL", 1, "1"))
	prices := newFakePrices()
	prices.errs["AAPL"] = models.ErrAuthExpired
	e := newEngine(fs, fs, prices)

	_, err := e.portfolio.Resync(context.Background())
	require.ErrorIs(t, err, models.ErrAuthExpired)
	assert.True(t, e.session.Expired())

	storeCalls, priceCalls := fs.calls.Load(), prices.total.Load()
	_, err = e.portfolio.Refresh(context.Background())
	assert.ErrorIs(t, err, models.ErrAuthExpired)
	_, err = e.coord.AddHolding(context.Background(), models.NewHolding{Symbol: "MSFT", Quantity: 1, CostBasisPerUnit: d("1"), PurchaseCurrency: "USD"})
	assert.ErrorIs(t, err, models.ErrAuthExpired)
	_, err = e.coord.DeleteHoldings(context.Background(), []string{"AAPL"})
	assert.ErrorIs(t, err, models.ErrAuthExpired)
	assert.Equal(t, storeCalls, fs.calls.Load())
	assert.Equal(t, priceCalls, prices.total.Load())

	delete(prices.errs, "AAPL")
	prices.prices["AAPL"] = d("3")
	e.session.Renew()
	_, err = e.portfolio.Resync(context.Background())
	assert.NoError(t, err)
}

func TestRefresh_LoadsAfterFailedFirstLoad(t *testing.T) {
	fs := newFakeStore(holding("AAPL", 10, "243.04"))
	prices := newFakePrices()
	prices.errs["AAPL"] = models.ErrAuthExpired
	e := newEngine(fs, fs, prices)

	_, err := e.portfolio.Resync(context.Background())
	require.ErrorIs(t, err, models.ErrAuthExpired)

	delete(prices.errs, "AAPL")
	prices.prices["AAPL"] = d("242.84")
	e.session.Renew()

	res, err := e.portfolio.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL"}, res.Snapshot.Symbols())
	assert.Equal(t, uint64(1), res.Snapshot.Version)
}
