package currency

import (
	"fmt"
	"sync"
)

// Selector holds the display currency of a session. Reads and writes are
// safe for concurrent use; subscribers run synchronously on Set.
type Selector struct {
	table *RateTable

	mu      sync.RWMutex
	current Code
	nextID  int
	subs    map[int]func(old, new Code)
}

func NewSelector(t *RateTable, initial Code) (*Selector, error) {
	if !t.Has(initial) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCurrency, initial)
	}
	return &Selector{table: t, current: initial, subs: map[int]func(old, new Code){}}, nil
}

func (s *Selector) Current() Code {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Set switches the display currency. Unknown codes are rejected.
func (s *Selector) Set(c Code) error {
	if !s.table.Has(c) {
		return fmt.Errorf("%w: %q", ErrUnknownCurrency, c)
	}

	s.mu.Lock()
	old := s.current
	s.current = c
	subs := make([]func(old, new Code), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	if old == c {
		return nil
	}
	for _, fn := range subs {
		fn(old, c)
	}
	return nil
}

// Subscribe registers fn for display currency changes and returns a function
// that removes it.
func (s *Selector) Subscribe(fn func(old, new Code)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}
