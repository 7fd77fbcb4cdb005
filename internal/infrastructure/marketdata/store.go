package marketdata

import (
	"sync"

	"github.com/zono819/ratio-arb/internal/adapter/gateway"
	"github.com/zono819/ratio-arb/internal/domain/entity"
)

// Ensure Store implements BookSource
var _ gateway.BookSource = (*Store)(nil)

// Store keeps the latest book per symbol in memory
type Store struct {
	mu    sync.RWMutex
	books map[string]*entity.MarketData
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		books: make(map[string]*entity.MarketData),
	}
}

// Update stores a copy of md, replacing the previous book for its symbol.
// Updates older than the stored one are dropped.
func (s *Store) Update(md *entity.MarketData) {
	if md == nil || md.Symbol == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.books[md.Symbol]; ok && md.Timestamp.Before(prev.Timestamp) {
		return
	}
	s.books[md.Symbol] = md.Clone()
}

// Snapshot returns a copy of the latest book for symbol
func (s *Store) Snapshot(symbol string) (*entity.MarketData, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	md, ok := s.books[symbol]
	if !ok {
		return nil, false
	}
	return md.Clone(), true
}

// Symbols returns the symbols with a stored book
func (s *Store) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.books))
	for sym := range s.books {
		out = append(out, sym)
	}
	return out
}

// Len returns number of stored books
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.books)
}
