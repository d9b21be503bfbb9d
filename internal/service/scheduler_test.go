package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_InvalidSchedule(t *testing.T) {
	fs := newFakeStore()
	e := newEngine(fs, fs, newFakePrices())
	s := NewScheduler(e.portfolio, quietLogger())
	assert.Error(t, s.Start(context.Background(), "not a schedule"))
	assert.NoError(t, s.Start(context.Background(), ""))
}

func TestScheduler_RefreshesOnSchedule(t *testing.T) {
	fs := newFakeStore(holding("AAPL", 1, "100"))
	prices := newFakePrices()
	prices.prices["AAPL"] = d("101")
	e := newEngine(fs, fs, prices)
	_, err := e.portfolio.Resync(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, NewScheduler(e.portfolio, quietLogger()).Start(ctx, "@every 1s"))

	require.Eventually(t, func() bool {
		return e.portfolio.Snapshot().Version >= 2
	}, 3*time.Second, 50*time.Millisecond)
}
