// Package api provides the transport-neutral validation service used by the
// gRPC and HTTP servers and the CLI.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/solatis/fieldcheck/internal/core/store"
	"github.com/solatis/fieldcheck/internal/rules"
	"github.com/solatis/fieldcheck/internal/types"
)

// ValidateRequest carries a record and either inline rules or the name of a
// stored rule set. Data and Rules are JSON (YAML is accepted by the CLI).
type ValidateRequest struct {
	Data          json.RawMessage `json:"data"`
	Rules         json.RawMessage `json:"rules,omitempty"`
	RuleSet       string          `json:"ruleSet,omitempty"`
	AllowedFields []string        `json:"allowedFields,omitempty"`
	Locale        string          `json:"locale,omitempty"`
}

// ValidateResponse is the {validate, message} wire form of an outcome.
type ValidateResponse struct {
	Validate bool   `json:"validate"`
	Message  string `json:"message,omitempty"`

	// Outcome keeps the failing field and rule for local callers.
	Outcome types.Outcome `json:"-"`
}

// Options tunes a ValidatorService.
type Options struct {
	// MaxDocumentSize bounds Data and Rules; zero means types.MaxDocumentSize.
	MaxDocumentSize int
	// Cache holds compiled stored rule sets; nil keeps them until changed.
	Cache  *store.CompiledCache
	Logger *zap.Logger
}

// ValidatorService validates records and manages stored rule sets and presets.
type ValidatorService struct {
	mu       sync.RWMutex
	engine   *rules.Engine
	base     *rules.PresetRegistry
	ruleSets store.RuleSetStore
	presets  store.PresetStore
	cache    *store.CompiledCache
	logger   *zap.Logger
	maxSize  int
}

// NewValidatorService creates the service and loads stored presets on top
// of the engine's registry.
func NewValidatorService(ctx context.Context, engine *rules.Engine, ruleSets store.RuleSetStore, presets store.PresetStore, opts Options) (*ValidatorService, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if ruleSets == nil {
		return nil, fmt.Errorf("ruleSets cannot be nil")
	}
	if presets == nil {
		return nil, fmt.Errorf("presets cannot be nil")
	}

	s := &ValidatorService{
		engine:   engine,
		base:     engine.Presets(),
		ruleSets: ruleSets,
		presets:  presets,
		cache:    opts.Cache,
		logger:   opts.Logger,
		maxSize:  opts.MaxDocumentSize,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.maxSize <= 0 || s.maxSize > types.MaxDocumentSize {
		s.maxSize = types.MaxDocumentSize
	}
	if s.cache == nil {
		s.cache = store.NewCompiledCache(0)
	}

	if err := s.ReloadPresets(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ValidatorService) currentEngine() *rules.Engine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// Validate evaluates req.Data against inline rules or a stored rule set.
// Data failures come back in the response; configuration failures, missing
// rule sets and storage failures come back as errors.
func (s *ValidatorService) Validate(ctx context.Context, req ValidateRequest) (ValidateResponse, error) {
	if err := ctx.Err(); err != nil {
		return ValidateResponse{}, err
	}
	if len(req.Data) == 0 {
		return ValidateResponse{}, types.NewConfigError("", "", fmt.Errorf("%w: data", types.ErrMissingArgument))
	}
	if err := s.checkSize("data", req.Data); err != nil {
		return ValidateResponse{}, err
	}

	// Read before the engine so a concurrent preset reload or rule-set
	// change keeps the result out of the cache.
	gen := s.cache.Generation()
	engine := s.currentEngine()
	if req.Locale != "" {
		engine = engine.WithLocale(rules.MatchLocale(req.Locale))
	}

	rec, err := types.DecodeRecord(req.Data)
	if err != nil {
		return ValidateResponse{}, types.NewConfigError("", "", err)
	}

	var compiled *rules.CompiledRuleSet
	switch {
	case len(req.Rules) > 0 && req.RuleSet != "":
		return ValidateResponse{}, types.NewConfigError("", "",
			fmt.Errorf("%w: rules and ruleSet are mutually exclusive", types.ErrInvalidDocument))
	case len(req.Rules) > 0:
		compiled, err = s.compileDocument(engine, req.Rules)
	case req.RuleSet != "":
		compiled, err = s.compiledRuleSet(ctx, engine, req.RuleSet, gen)
	default:
		err = types.NewConfigError("", "", fmt.Errorf("%w: rules or ruleSet", types.ErrMissingArgument))
	}
	if err != nil {
		return ValidateResponse{}, err
	}

	out, err := engine.ValidateCompiled(rec, compiled, req.AllowedFields)
	if err != nil {
		return ValidateResponse{}, err
	}
	return ValidateResponse{Validate: out.Valid, Message: out.Message, Outcome: out}, nil
}

func (s *ValidatorService) checkSize(what string, doc []byte) error {
	if len(doc) > s.maxSize {
		return types.NewConfigError("", "", fmt.Errorf("%w: %s exceeds %d bytes", types.ErrInvalidDocument, what, s.maxSize))
	}
	return nil
}

func (s *ValidatorService) compileDocument(engine *rules.Engine, doc []byte) (*rules.CompiledRuleSet, error) {
	if err := s.checkSize("rules", doc); err != nil {
		return nil, err
	}
	rs, err := types.DecodeRuleSet(doc)
	if err != nil {
		return nil, err
	}
	return engine.Compile(rs)
}

func (s *ValidatorService) compiledRuleSet(ctx context.Context, engine *rules.Engine, name string, gen uint64) (*rules.CompiledRuleSet, error) {
	if compiled, ok := s.cache.Get(name); ok {
		return compiled, nil
	}
	rec, err := s.ruleSets.Get(ctx, name)
	if err != nil {
		return nil, storageError(err)
	}
	compiled, err := s.compileDocument(engine, []byte(rec.Document))
	if err != nil {
		return nil, err
	}
	s.cache.Set(name, compiled, gen)
	return compiled, nil
}

// PutRuleSet validates and stores a rule-set document under name.
func (s *ValidatorService) PutRuleSet(ctx context.Context, name string, document []byte) (store.RuleSetRecord, error) {
	if _, err := s.compileDocument(s.currentEngine(), document); err != nil {
		return store.RuleSetRecord{}, err
	}
	rec, err := s.ruleSets.Put(ctx, name, document)
	if err != nil {
		return store.RuleSetRecord{}, storageError(err)
	}
	s.cache.Invalidate(name)
	s.logger.Info("rule set stored", zap.String("rule_set", name), zap.String("id", string(rec.ID)))
	return rec, nil
}

// GetRuleSet returns the stored document for name.
func (s *ValidatorService) GetRuleSet(ctx context.Context, name string) (store.RuleSetRecord, error) {
	rec, err := s.ruleSets.Get(ctx, name)
	return rec, storageError(err)
}

// ListRuleSets returns all stored rule sets ordered by name.
func (s *ValidatorService) ListRuleSets(ctx context.Context) ([]store.RuleSetRecord, error) {
	recs, err := s.ruleSets.List(ctx)
	return recs, storageError(err)
}

// DeleteRuleSet removes the rule set stored under name.
func (s *ValidatorService) DeleteRuleSet(ctx context.Context, name string) error {
	if err := s.ruleSets.Delete(ctx, name); err != nil {
		return storageError(err)
	}
	s.cache.Invalidate(name)
	s.logger.Info("rule set deleted", zap.String("rule_set", name))
	return nil
}

// PutPreset validates and stores a custom preset, then makes it available
// to every later compile.
func (s *ValidatorService) PutPreset(ctx context.Context, name string, document []byte) (store.PresetRecord, error) {
	if err := s.checkSize("preset", document); err != nil {
		return store.PresetRecord{}, err
	}
	if _, err := rules.DecodePreset(name, document); err != nil {
		return store.PresetRecord{}, err
	}
	rec, err := s.presets.PutPreset(ctx, name, document)
	if err != nil {
		return store.PresetRecord{}, storageError(err)
	}
	return rec, s.ReloadPresets(ctx)
}

// DeletePreset removes a stored preset. Built-in presets cannot be deleted.
func (s *ValidatorService) DeletePreset(ctx context.Context, name string) error {
	if err := s.presets.DeletePreset(ctx, name); err != nil {
		return storageError(err)
	}
	return s.ReloadPresets(ctx)
}

// Presets returns the effective preset names: built-ins first, then stored
// presets. A stored preset named like a built-in replaces it in place.
func (s *ValidatorService) Presets() []string {
	return s.currentEngine().Presets().Names()
}

// ReloadPresets rebuilds the preset registry from the store and drops every
// cached compiled rule set.
func (s *ValidatorService) ReloadPresets(ctx context.Context) error {
	recs, err := s.presets.ListPresets(ctx)
	if err != nil {
		return storageError(err)
	}

	stored := make([]rules.Preset, 0, len(recs))
	for _, rec := range recs {
		p, err := rules.DecodePreset(rec.Name, []byte(rec.Document))
		if err != nil {
			s.logger.Warn("skipping invalid stored preset", zap.String("preset", rec.Name), zap.Error(err))
			continue
		}
		stored = append(stored, p)
	}

	s.mu.Lock()
	s.engine = s.engine.WithPresets(s.base.Extend(stored...))
	s.mu.Unlock()
	s.cache.Clear()
	return nil
}
