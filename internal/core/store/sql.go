package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/solatis/fieldcheck/internal/core/db"
	"github.com/solatis/fieldcheck/internal/types"
)

// SQLStore implements RuleSetStore and PresetStore over the named queries
// in internal/core/db (sqlite or postgres).
type SQLStore struct {
	q   *db.Queries
	now func() time.Time
}

// NewSQLStore wraps loaded queries. The schema must be migrated.
func NewSQLStore(q *db.Queries) (*SQLStore, error) {
	if q == nil {
		return nil, fmt.Errorf("queries cannot be nil")
	}
	return &SQLStore{q: q, now: func() time.Time { return time.Now().UTC() }}, nil
}

var (
	_ RuleSetStore = (*SQLStore)(nil)
	_ PresetStore  = (*SQLStore)(nil)
)

func (s *SQLStore) Put(ctx context.Context, name string, document []byte) (RuleSetRecord, error) {
	if err := ValidateName(name); err != nil {
		return RuleSetRecord{}, err
	}
	now := s.now()
	if _, err := s.q.Exec(ctx, "upsert-rule-set", string(types.NewRuleSetID()), name, string(document), now, now); err != nil {
		return RuleSetRecord{}, fmt.Errorf("failed to store rule set %q: %w", name, err)
	}
	return s.Get(ctx, name)
}

func (s *SQLStore) Get(ctx context.Context, name string) (RuleSetRecord, error) {
	var rec RuleSetRecord
	err := s.q.Get(ctx, "get-rule-set", &rec, name)
	if errors.Is(err, sql.ErrNoRows) {
		return RuleSetRecord{}, fmt.Errorf("%w: %s", types.ErrRuleSetNotFound, name)
	}
	if err != nil {
		return RuleSetRecord{}, fmt.Errorf("failed to get rule set %q: %w", name, err)
	}
	return rec, nil
}

func (s *SQLStore) List(ctx context.Context) ([]RuleSetRecord, error) {
	recs := []RuleSetRecord{}
	if err := s.q.Select(ctx, "list-rule-sets", &recs); err != nil {
		return nil, fmt.Errorf("failed to list rule sets: %w", err)
	}
	return recs, nil
}

func (s *SQLStore) Delete(ctx context.Context, name string) error {
	res, err := s.q.Exec(ctx, "delete-rule-set", name)
	if err != nil {
		return fmt.Errorf("failed to delete rule set %q: %w", name, err)
	}
	return requireAffected(res, types.ErrRuleSetNotFound, name)
}

func (s *SQLStore) PutPreset(ctx context.Context, name string, document []byte) (PresetRecord, error) {
	if err := ValidateName(name); err != nil {
		return PresetRecord{}, err
	}
	now := s.now()
	if _, err := s.q.Exec(ctx, "upsert-preset", name, string(document), now); err != nil {
		return PresetRecord{}, fmt.Errorf("failed to store preset %q: %w", name, err)
	}
	return PresetRecord{Name: name, Document: string(document), UpdatedAt: now}, nil
}

func (s *SQLStore) ListPresets(ctx context.Context) ([]PresetRecord, error) {
	recs := []PresetRecord{}
	if err := s.q.Select(ctx, "list-presets", &recs); err != nil {
		return nil, fmt.Errorf("failed to list presets: %w", err)
	}
	return recs, nil
}

func (s *SQLStore) DeletePreset(ctx context.Context, name string) error {
	res, err := s.q.Exec(ctx, "delete-preset", name)
	if err != nil {
		return fmt.Errorf("failed to delete preset %q: %w", name, err)
	}
	return requireAffected(res, types.ErrPresetNotFound, name)
}

func requireAffected(res sql.Result, notFound error, name string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", notFound, name)
	}
	return nil
}
