package service

import (
	"sort"
	"sync"
)

// Selection is the set of symbols picked for a bulk action, keyed by the full
// symbol string.
type Selection struct {
	mu  sync.Mutex
	set map[string]struct{}
}

func NewSelection() *Selection {
	return &Selection{set: map[string]struct{}{}}
}

// Toggle flips symbol and reports whether it is now selected.
func (s *Selection) Toggle(symbol string) bool {
	symbol = normalizeSymbol(symbol)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.set[symbol]; ok {
		delete(s.set, symbol)
		return false
	}
	s.set[symbol] = struct{}{}
	return true
}

func (s *Selection) Select(symbols ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sym := range uniqueSymbols(symbols) {
		s.set[sym] = struct{}{}
	}
}

// SelectAll replaces the selection with symbols.
func (s *Selection) SelectAll(symbols []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set = map[string]struct{}{}
	for _, sym := range uniqueSymbols(symbols) {
		s.set[sym] = struct{}{}
	}
}

// Retain drops every selected symbol not in symbols.
func (s *Selection) Retain(symbols []string) {
	keep := make(map[string]bool, len(symbols))
	for _, sym := range symbols {
		keep[sym] = true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for sym := range s.set {
		if !keep[sym] {
			delete(s.set, sym)
		}
	}
}

func (s *Selection) Clear() {
	s.mu.Lock()
	s.set = map[string]struct{}{}
	s.mu.Unlock()
}

func (s *Selection) Has(symbol string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.set[normalizeSymbol(symbol)]
	return ok
}

func (s *Selection) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.set)
}

// Symbols returns the selection sorted.
func (s *Selection) Symbols() []string {
	s.mu.Lock()
	out := make([]string, 0, len(s.set))
	for sym := range s.set {
		out = append(out, sym)
	}
	s.mu.Unlock()
	sort.Strings(out)
	return out
}
