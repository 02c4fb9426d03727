package store

import (
	"context"
	"sync"

	"github.com/Kakrote/udyam-registration-app/internal/registration/models"
	"github.com/Kakrote/udyam-registration-app/pkg/domain"
	"github.com/Kakrote/udyam-registration-app/pkg/platform/sentinel"
)

// InMemoryDraftStore keeps drafts for the life of the process. Stored drafts
// are copied on the way in and out.
type InMemoryDraftStore struct {
	mu     sync.RWMutex
	drafts map[domain.DraftID]models.Draft
}

func NewInMemoryDraftStore() *InMemoryDraftStore {
	return &InMemoryDraftStore{drafts: make(map[domain.DraftID]models.Draft)}
}

func (s *InMemoryDraftStore) Create(_ context.Context, d models.Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.drafts[d.ID]; exists {
		return sentinel.ErrConflict
	}
	s.drafts[d.ID] = cloneDraft(d)
	return nil
}

func (s *InMemoryDraftStore) FindByID(_ context.Context, id domain.DraftID) (*models.Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.drafts[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := cloneDraft(d)
	return &out, nil
}

// Save replaces an existing draft.
func (s *InMemoryDraftStore) Save(_ context.Context, d models.Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.drafts[d.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.drafts[d.ID] = cloneDraft(d)
	return nil
}

func cloneDraft(d models.Draft) models.Draft {
	if d.Identity != nil {
		id := *d.Identity
		d.Identity = &id
	}
	if d.Enterprise != nil {
		ent := *d.Enterprise
		d.Enterprise = &ent
	}
	return d
}
