package store

import (
	"context"
	"sync"

	"github.com/Kakrote/udyam-registration-app/internal/location/models"
	"github.com/Kakrote/udyam-registration-app/pkg/platform/sentinel"
)

// InMemoryStore keeps records for the life of the process.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]models.LocationRecord
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]models.LocationRecord)}
}

func (s *InMemoryStore) Get(_ context.Context, code models.PostalCode) (*models.LocationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[code.String()]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &rec, nil
}

func (s *InMemoryStore) PutIfAbsent(_ context.Context, rec models.LocationRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := rec.PostalCode.String()
	if _, exists := s.records[key]; exists {
		return false, nil
	}
	s.records[key] = rec
	return true, nil
}

// Len returns the number of stored codes.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
