package tracking

import (
	"sync"
	"time"

	"github.com/catherinevee/tenantcleaner/internal/models"
)

// MemoryStore is a map-backed Store. Records do not survive the process; it
// serves tests and ephemeral runs where persistent age tracking is not
// wanted.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[models.Key]time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[models.Key]time.Time)}
}

func (s *MemoryStore) Insert(key models.Key, created time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = created
	return nil
}

func (s *MemoryStore) Delete(key models.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

func (s *MemoryStore) Created(key models.Key) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	created, ok := s.records[key]
	return created, ok, nil
}

func (s *MemoryStore) Identifiers(filter *models.ItemType) ([]models.Identifier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]models.Identifier, 0, len(s.records))
	for key := range s.records {
		if filter != nil && key.Type != *filter {
			continue
		}
		ids = append(ids, key.ID)
	}
	return ids, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
