package storage

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"agency-forms/models"
)

// MemoryStore keeps records for the lifetime of the process. Used when no
// database is configured and in tests.
type MemoryStore struct {
	mu          sync.RWMutex
	waitingList []models.WaitingListEntry
	contacts    []models.ContactRequest
	now         func() time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

func (m *MemoryStore) AddWaitingListEntry(ctx context.Context, entry models.WaitingListEntry) (models.WaitingListEntry, error) {
	if err := ctx.Err(); err != nil {
		return models.WaitingListEntry{}, err
	}
	entry.ID = uuid.NewString()
	entry.CreatedAt = m.now()
	entry.Interests = slices.Clone(entry.Interests)

	m.mu.Lock()
	m.waitingList = append(m.waitingList, entry)
	m.mu.Unlock()
	return entry, nil
}

func (m *MemoryStore) AddContactRequest(ctx context.Context, req models.ContactRequest) (models.ContactRequest, error) {
	if err := ctx.Err(); err != nil {
		return models.ContactRequest{}, err
	}
	req.ID = uuid.NewString()
	req.CreatedAt = m.now()

	m.mu.Lock()
	m.contacts = append(m.contacts, req)
	m.mu.Unlock()
	return req, nil
}

func (m *MemoryStore) WaitingList() []models.WaitingListEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.waitingList)
}

func (m *MemoryStore) ContactRequests() []models.ContactRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.contacts)
}
