package service

import (
	"context"
	"errors"
	"testing"

	"folio/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlow(t *testing.T, fs *fakeStore) (*DeleteFlow, *Selection, *engine) {
	t.Helper()
	e := newEngine(fs, fs, newFakePrices())
	_, err := e.portfolio.Resync(context.Background())
	require.NoError(t, err)
	sel := NewSelection()
	return NewDeleteFlow(e.coord, sel, quietLogger()), sel, e
}

func TestDeleteFlow_ConfirmSettles(t *testing.T) {
	fs := newFakeStore(holding("A", 1, "1"), holding("B", 1, "1"))
	flow, sel, e := newFlow(t, fs)
	sel.Select("A")

	assert.Equal(t, DeleteIdle, flow.State())
	req, err := flow.Request(nil)
	require.NoError(t, err)
	assert.Equal(t, DeletePending, req.State)
	assert.Equal(t, []string{"A"}, req.Symbols)
	assert.Equal(t, int64(1), fs.calls.Load(), "nothing is deleted before confirmation")

	req, err = flow.Confirm(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, DeleteSettled, req.State)
	assert.Equal(t, []string{"B"}, e.portfolio.Snapshot().Symbols())
	assert.Equal(t, 0, sel.Len())

	_, err = flow.Confirm(context.Background(), req.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestDeleteFlow_PartialFailureClearsSelection(t *testing.T) {
	fs := newFakeStore(holding("A", 1, "1"), holding("B", 1, "1"), holding("C", 1, "1"))
	fs.deleteErrs["B"] = errors.New("store returned status 500")
	flow, sel, _ := newFlow(t, fs)
	sel.SelectAll([]string{"A", "B", "C"})

	req, err := flow.Request(nil)
	require.NoError(t, err)
	req, err = flow.Confirm(context.Background(), req.ID)
	var berr *BulkDeleteError
	require.True(t, errors.As(err, &berr))
	assert.Equal(t, DeletePartiallyFailed, req.State)
	assert.Equal(t, []string{"B"}, berr.FailedSymbols())
	assert.Equal(t, 0, sel.Len())

	require.NoError(t, flow.Reset())
	assert.Equal(t, DeleteIdle, flow.State())
}

func TestDeleteFlow_Cancel(t *testing.T) {
	fs := newFakeStore(holding("A", 1, "1"))
	flow, _, _ := newFlow(t, fs)

	req, err := flow.Request([]string{"a"})
	require.NoError(t, err)
	_, err = flow.Request([]string{"A"})
	assert.ErrorIs(t, err, ErrInvalidTransition, "one active request at a time")

	req, err = flow.Cancel(req.ID)
	require.NoError(t, err)
	assert.Equal(t, DeleteCancelled, req.State)
	assert.Equal(t, DeleteIdle, flow.State())

	_, err = flow.Confirm(context.Background(), req.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = flow.Cancel("other")
	assert.ErrorIs(t, err, ErrNoDeleteRequest)
	assert.Equal(t, []string{"A"}, fs.symbols())
}

func TestDeleteFlow_NothingSelected(t *testing.T) {
	flow, _, _ := newFlow(t, newFakeStore())
	_, err := flow.Request(nil)
	var verr *models.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestDeleteFlow_WatchSeesEveryState(t *testing.T) {
	fs := newFakeStore(holding("A", 1, "1"))
	flow, _, _ := newFlow(t, fs)

	var states []DeleteState
	flow.Watch(func(r DeleteRequest) { states = append(states, r.State) })

	req, err := flow.Request([]string{"A"})
	require.NoError(t, err)
	_, err = flow.Confirm(context.Background(), req.ID)
	require.NoError(t, err)

	assert.Equal(t, []DeleteState{DeletePending, DeleteConfirmed, DeleteInFlight, DeleteSettled}, states)

	req, err = flow.Request([]string{"B"})
	require.NoError(t, err)
	_, err = flow.Cancel(req.ID)
	require.NoError(t, err)
	assert.Equal(t, DeleteCancelled, states[len(states)-1])
}
