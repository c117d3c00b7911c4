package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/solatis/fieldcheck/internal/types"
)

// MemoryStore implements RuleSetStore and PresetStore in process memory.
// Safe for concurrent use.
type MemoryStore struct {
	mu       sync.RWMutex
	ruleSets map[string]RuleSetRecord
	presets  map[string]PresetRecord
	now      func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		ruleSets: make(map[string]RuleSetRecord),
		presets:  make(map[string]PresetRecord),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

var (
	_ RuleSetStore = (*MemoryStore)(nil)
	_ PresetStore  = (*MemoryStore)(nil)
)

func (s *MemoryStore) Put(_ context.Context, name string, document []byte) (RuleSetRecord, error) {
	if err := ValidateName(name); err != nil {
		return RuleSetRecord{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	rec, exists := s.ruleSets[name]
	if !exists {
		rec = RuleSetRecord{ID: types.NewRuleSetID(), Name: name, CreatedAt: now}
	}
	rec.Document = string(document)
	rec.UpdatedAt = now
	s.ruleSets[name] = rec
	return rec, nil
}

func (s *MemoryStore) Get(_ context.Context, name string) (RuleSetRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.ruleSets[name]
	if !ok {
		return RuleSetRecord{}, fmt.Errorf("%w: %s", types.ErrRuleSetNotFound, name)
	}
	return rec, nil
}

func (s *MemoryStore) List(_ context.Context) ([]RuleSetRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]RuleSetRecord, 0, len(s.ruleSets))
	for _, rec := range s.ruleSets {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ruleSets[name]; !ok {
		return fmt.Errorf("%w: %s", types.ErrRuleSetNotFound, name)
	}
	delete(s.ruleSets, name)
	return nil
}

func (s *MemoryStore) PutPreset(_ context.Context, name string, document []byte) (PresetRecord, error) {
	if err := ValidateName(name); err != nil {
		return PresetRecord{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := PresetRecord{Name: name, Document: string(document), UpdatedAt: s.now()}
	s.presets[name] = rec
	return rec, nil
}

func (s *MemoryStore) ListPresets(_ context.Context) ([]PresetRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]PresetRecord, 0, len(s.presets))
	for _, rec := range s.presets {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) DeletePreset(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.presets[name]; !ok {
		return fmt.Errorf("%w: %s", types.ErrPresetNotFound, name)
	}
	delete(s.presets, name)
	return nil
}
