package snapshot

import (
	"context"
	"sort"
	"sync"
)

type MemorySink struct {
	mu      sync.RWMutex
	params  map[string]ParamsSnapshot
	history map[string]HistorySnapshot
	objects map[string]ObjectSnapshot
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.params = make(map[string]ParamsSnapshot)
	s.history = make(map[string]HistorySnapshot)
	s.objects = make(map[string]ObjectSnapshot)
	return nil
}

func (s *MemorySink) SaveParams(_ context.Context, name string, snap ParamsSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.params[name] = snap
	return nil
}

func (s *MemorySink) GetParams(_ context.Context, name string) (ParamsSnapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.params[name]
	return snap, ok, nil
}

func (s *MemorySink) SaveHistory(_ context.Context, name string, snap HistorySnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history[name] = snap
	return nil
}

func (s *MemorySink) GetHistory(_ context.Context, name string) (HistorySnapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.history[name]
	return snap, ok, nil
}

func (s *MemorySink) SaveObject(_ context.Context, name string, snap ObjectSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.objects[name] = snap
	return nil
}

func (s *MemorySink) GetObject(_ context.Context, name string) (ObjectSnapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.objects[name]
	return snap, ok, nil
}

func (s *MemorySink) ListParams(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.params))
	for name := range s.params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
