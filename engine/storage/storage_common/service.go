package storagecommon

import (
	"context"
	"sync"
)

// Service caches one opened table per name for the lifetime of the process
type Service struct {
	backend TableStorage

	lock   sync.Mutex
	tables map[string]Table
}

// NewService creates the table cache over a backend
func NewService(backend TableStorage) *Service {
	return &Service{
		backend: backend,
		tables:  map[string]Table{},
	}
}

// Table returns the cached table, opening it on first use
func (s *Service) Table(ctx context.Context, name string) (Table, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if t, ok := s.tables[name]; ok {
		return t, nil
	}
	t, err := s.backend.OpenTable(ctx, name)
	if err != nil {
		return nil, err
	}
	s.tables[name] = t
	return t, nil
}

// Backend returns the underlying backend
func (s *Service) Backend() TableStorage {
	return s.backend
}

// Close closes the backend
func (s *Service) Close() error {
	s.lock.Lock()
	s.tables = map[string]Table{}
	s.lock.Unlock()
	return s.backend.Close()
}
