// Package store persists named rule sets and custom presets.
//
// Rule-set documents are stored verbatim (JSON or YAML) so authoring order
// survives the round trip; callers decode and compile them on load.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/solatis/fieldcheck/internal/types"
)

// RuleSetRecord is a stored rule-set document.
type RuleSetRecord struct {
	ID        types.RuleSetID `db:"id" json:"id"`
	Name      string          `db:"name" json:"name"`
	Document  string          `db:"document" json:"document"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// PresetRecord is a stored custom preset: a single field-rule document.
type PresetRecord struct {
	Name      string    `db:"name" json:"name"`
	Document  string    `db:"document" json:"document"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// RuleSetStore manages rule-set persistence by name.
type RuleSetStore interface {
	// Put creates or replaces the document stored under name. Replacing
	// keeps the original ID and creation time.
	Put(ctx context.Context, name string, document []byte) (RuleSetRecord, error)

	// Get returns types.ErrRuleSetNotFound when name is absent.
	Get(ctx context.Context, name string) (RuleSetRecord, error)

	// List returns all rule sets ordered by name.
	List(ctx context.Context) ([]RuleSetRecord, error)

	// Delete returns types.ErrRuleSetNotFound when name is absent.
	Delete(ctx context.Context, name string) error
}

// PresetStore manages custom preset persistence.
type PresetStore interface {
	PutPreset(ctx context.Context, name string, document []byte) (PresetRecord, error)
	ListPresets(ctx context.Context) ([]PresetRecord, error)
	DeletePreset(ctx context.Context, name string) error
}

// ValidateName checks a rule-set or preset name.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is empty", types.ErrInvalidRuleSetName)
	}
	if len(name) > types.MaxRuleSetNameLength {
		return fmt.Errorf("%w: name exceeds %d bytes", types.ErrInvalidRuleSetName, types.MaxRuleSetNameLength)
	}
	if strings.ContainsAny(name, "/?#") {
		return fmt.Errorf("%w: name must not contain '/', '?' or '#'", types.ErrInvalidRuleSetName)
	}
	return nil
}
