package store

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/filterlang/filterlang"
)

// MemoryStore implements Store with in-memory maps.
type MemoryStore struct {
	mu sync.RWMutex

	// schemes: map[name]*SchemeRecord
	schemes map[string]*SchemeRecord

	// filters: map[id]*FilterRecord
	filters      map[int64]*FilterRecord
	nextFilterID int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		schemes: make(map[string]*SchemeRecord),
		filters: make(map[int64]*FilterRecord),
	}
}

func (s *MemoryStore) CreateScheme(_ context.Context, name string, fields []Field) (*SchemeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.schemes[name]; ok {
		return nil, errors.Wrapf(ErrAlreadyExists, "scheme %q", name)
	}

	scheme := filterlang.NewScheme()
	for _, f := range fields {
		scheme.AddField(f.Name, f.Type)
	}

	rec := &SchemeRecord{
		Name:   name,
		Fields: append([]Field(nil), fields...),
		Scheme: scheme,
	}
	s.schemes[name] = rec
	return rec, nil
}

func (s *MemoryStore) GetScheme(_ context.Context, name string) (*SchemeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.schemes[name]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "scheme %q", name)
	}
	return rec, nil
}

func (s *MemoryStore) ListSchemes(_ context.Context) ([]*SchemeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*SchemeRecord, 0, len(s.schemes))
	for _, rec := range s.schemes {
		out = append(out, rec)
	}
	// Sort by name for determinism.
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) CompileFilter(_ context.Context, scheme, expression string) (*FilterRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.schemes[scheme]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "scheme %q", scheme)
	}

	f, err := rec.Scheme.Parse(expression)
	if err != nil {
		// *filterlang.ParseError passes through untouched so callers can
		// render the caret diagnostic.
		return nil, err
	}

	s.nextFilterID++
	filter := &FilterRecord{
		ID:         s.nextFilterID,
		Scheme:     scheme,
		Expression: expression,
		Filter:     f,
	}
	s.filters[filter.ID] = filter
	return filter, nil
}

func (s *MemoryStore) GetFilter(_ context.Context, id int64) (*FilterRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.filters[id]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "filter %d", id)
	}
	return rec, nil
}

func (s *MemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.schemes = make(map[string]*SchemeRecord)
	s.filters = make(map[int64]*FilterRecord)
	s.nextFilterID = 0
}

func (s *MemoryStore) State() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]interface{}{
		"schemes": len(s.schemes),
		"filters": len(s.filters),
	}
}
