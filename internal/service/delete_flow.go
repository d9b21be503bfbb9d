package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"folio/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type DeleteState string

const (
	DeleteIdle            DeleteState = "idle"
	DeletePending         DeleteState = "confirmation_pending"
	DeleteConfirmed       DeleteState = "confirmed"
	DeleteInFlight        DeleteState = "in_flight"
	DeleteSettled         DeleteState = "settled"
	DeletePartiallyFailed DeleteState = "partially_failed"
	DeleteCancelled       DeleteState = "cancelled"
)

type DeleteRequest struct {
	ID        string            `json:"id"`
	Symbols   []string          `json:"symbols"`
	State     DeleteState       `json:"state"`
	CreatedAt time.Time         `json:"created_at"`
	Outcome   *BulkDeleteResult `json:"outcome,omitempty"`
	Error     string            `json:"error,omitempty"`
}

func (r DeleteRequest) active() bool {
	return r.State == DeletePending || r.State == DeleteConfirmed || r.State == DeleteInFlight
}

// DeleteFlow walks a delete request through
//
//	Idle -> ConfirmationPending -> Confirmed -> InFlight -> Settled | PartiallyFailed
//	                            \-> Cancelled -> Idle
//
// Only one request is active at a time.
type DeleteFlow struct {
	coord     *Coordinator
	selection *Selection
	log       *logrus.Logger

	mu      sync.Mutex
	current *DeleteRequest
	watch   []func(DeleteRequest)
}

func NewDeleteFlow(c *Coordinator, sel *Selection, log *logrus.Logger) *DeleteFlow {
	return &DeleteFlow{coord: c, selection: sel, log: log}
}

// Watch registers fn to receive the request after every state transition.
// It must be called before the flow is used concurrently.
func (f *DeleteFlow) Watch(fn func(DeleteRequest)) {
	f.mu.Lock()
	f.watch = append(f.watch, fn)
	f.mu.Unlock()
}

// transition sets the state of req and returns a copy for notify. f.mu must be held.
func (f *DeleteFlow) transition(req *DeleteRequest, state DeleteState) DeleteRequest {
	req.State = state
	out := *req
	out.Symbols = append([]string(nil), req.Symbols...)
	return out
}

func (f *DeleteFlow) notify(req DeleteRequest) {
	f.mu.Lock()
	watch := append(([]func(DeleteRequest))(nil), f.watch...)
	f.mu.Unlock()
	for _, fn := range watch {
		fn(req)
	}
}

func (f *DeleteFlow) State() DeleteState {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == nil || f.current.State == DeleteCancelled {
		return DeleteIdle
	}
	return f.current.State
}

func (f *DeleteFlow) Current() (DeleteRequest, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == nil {
		return DeleteRequest{}, false
	}
	return *f.current, true
}

// Request opens a confirmation for symbols, or for the current selection when
// symbols is empty.
func (f *DeleteFlow) Request(symbols []string) (DeleteRequest, error) {
	symbols = uniqueSymbols(symbols)
	if len(symbols) == 0 {
		symbols = f.selection.Symbols()
	}
	if len(symbols) == 0 {
		return DeleteRequest{}, &models.ValidationError{Field: "symbols", Reason: "nothing selected"}
	}

	f.mu.Lock()
	if f.current != nil && f.current.active() {
		defer f.mu.Unlock()
		return DeleteRequest{}, fmt.Errorf("%w: request %s is %s", ErrInvalidTransition, f.current.ID, f.current.State)
	}
	f.current = &DeleteRequest{ID: uuid.NewString(), Symbols: symbols, CreatedAt: time.Now().UTC()}
	out := f.transition(f.current, DeletePending)
	f.mu.Unlock()
	f.log.WithField("request", out.ID).Debugf("delete requested for %v", symbols)
	f.notify(out)
	return out, nil
}

// Confirm runs a pending request. The selection is cleared once it settles,
// whether or not every delete succeeded.
func (f *DeleteFlow) Confirm(ctx context.Context, id string) (DeleteRequest, error) {
	f.mu.Lock()
	req, err := f.lookup(id)
	if err != nil {
		f.mu.Unlock()
		return DeleteRequest{}, err
	}
	if req.State != DeletePending {
		f.mu.Unlock()
		return *req, fmt.Errorf("%w: cannot confirm a %s request", ErrInvalidTransition, req.State)
	}
	confirmed := f.transition(req, DeleteConfirmed)
	f.mu.Unlock()
	f.notify(confirmed)

	f.mu.Lock()
	inFlight := f.transition(req, DeleteInFlight)
	f.mu.Unlock()
	f.notify(inFlight)

	res, derr := f.coord.DeleteHoldings(ctx, inFlight.Symbols)
	f.selection.Clear()

	f.mu.Lock()
	req.Outcome = &res
	final := DeleteSettled
	if derr != nil {
		final = DeletePartiallyFailed
		req.Error = derr.Error()
	}
	out := f.transition(req, final)
	f.mu.Unlock()
	f.log.WithField("request", out.ID).Infof("delete request %s", out.State)
	f.notify(out)
	return out, derr
}

func (f *DeleteFlow) Cancel(id string) (DeleteRequest, error) {
	f.mu.Lock()
	req, err := f.lookup(id)
	if err != nil {
		f.mu.Unlock()
		return DeleteRequest{}, err
	}
	if req.State != DeletePending {
		defer f.mu.Unlock()
		return *req, fmt.Errorf("%w: cannot cancel a %s request", ErrInvalidTransition, req.State)
	}
	out := f.transition(req, DeleteCancelled)
	f.mu.Unlock()
	f.notify(out)
	return out, nil
}

// Reset returns a finished flow to Idle. An in-flight request cannot be reset.
func (f *DeleteFlow) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current != nil && (f.current.State == DeleteConfirmed || f.current.State == DeleteInFlight) {
		return fmt.Errorf("%w: request %s is %s", ErrInvalidTransition, f.current.ID, f.current.State)
	}
	f.current = nil
	return nil
}

func (f *DeleteFlow) lookup(id string) (*DeleteRequest, error) {
	if f.current == nil || f.current.ID != id {
		return nil, fmt.Errorf("%w: %s", ErrNoDeleteRequest, id)
	}
	return f.current, nil
}
