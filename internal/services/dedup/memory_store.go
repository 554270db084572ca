package dedup

import "sync"

// MemoryStore is the in-memory HistoryStore used in tests and single-process
// runs without a database.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (s *MemoryStore) Lookup(invoiceID string) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[invoiceID]
	return e, ok, nil
}

func (s *MemoryStore) Upsert(entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		s.entries[e.InvoiceID] = e
	}
	return nil
}

// Len reports how many invoice ids the store has seen.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
