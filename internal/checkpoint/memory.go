package checkpoint

import (
	"encoding/json"
	"fmt"
	"sync"
)

// MemStore is an in-memory Store for tests. Payloads round-trip through JSON
// so cached and freshly computed artifacts have identical shapes.
type MemStore struct {
	mu      sync.RWMutex
	entries map[string][]byte
	meta    map[string]Metadata
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		entries: make(map[string][]byte),
		meta:    make(map[string]Metadata),
	}
}

func (s *MemStore) key(reportID string, stage Stage) string {
	return reportID + "/" + string(stage)
}

// Has reports whether a checkpoint exists for the key.
func (s *MemStore) Has(reportID string, stage Stage) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[s.key(reportID, stage)]
	return ok
}

// Load unmarshals the stored payload into v.
func (s *MemStore) Load(reportID string, stage Stage, v any) error {
	s.mu.RLock()
	data, ok := s.entries[s.key(reportID, stage)]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, reportID, stage)
	}
	return json.Unmarshal(data, v)
}

// Save stores the payload and metadata.
func (s *MemStore) Save(reportID string, stage Stage, payload any, meta Metadata) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode checkpoint payload: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[s.key(reportID, stage)] = data
	s.meta[s.key(reportID, stage)] = meta
	return nil
}

// Raw returns the stored payload bytes, for byte-level idempotence checks.
func (s *MemStore) Raw(reportID string, stage Stage) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.entries[s.key(reportID, stage)]
	return data, ok
}

// Meta returns the stored metadata record.
func (s *MemStore) Meta(reportID string, stage Stage) (Metadata, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.meta[s.key(reportID, stage)]
	return m, ok
}
