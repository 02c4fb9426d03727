package store

import (
	"context"
	"sync"

	"github.com/Kakrote/udyam-registration-app/internal/registration/models"
	"github.com/Kakrote/udyam-registration-app/pkg/domain"
	"github.com/Kakrote/udyam-registration-app/pkg/platform/sentinel"
)

// InMemoryRegistrationStore is the registration store used when no database
// is configured.
type InMemoryRegistrationStore struct {
	mu            sync.RWMutex
	registrations map[domain.RegistrationID]models.Registration
}

func NewInMemoryRegistrationStore() *InMemoryRegistrationStore {
	return &InMemoryRegistrationStore{registrations: make(map[domain.RegistrationID]models.Registration)}
}

func (s *InMemoryRegistrationStore) Create(_ context.Context, r *models.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.registrations[r.ID]; exists {
		return sentinel.ErrConflict
	}
	s.registrations[r.ID] = *r
	return nil
}

func (s *InMemoryRegistrationStore) FindByID(_ context.Context, id domain.RegistrationID) (*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.registrations[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &r, nil
}

// Len returns the number of stored registrations.
func (s *InMemoryRegistrationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.registrations)
}
