package rules

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Engine evaluates records against rule sets. It holds only immutable
// configuration (preset registry, locale, expression environment) and is safe
// for concurrent use.
type Engine struct {
	presets *PresetRegistry
	logger  *zap.Logger
	locale  language.Tag
	printer *message.Printer
	env     *cel.Env
}

// Option configures an Engine.
type Option func(*Engine)

// WithPresets replaces the built-in preset registry.
func WithPresets(r *PresetRegistry) Option {
	return func(e *Engine) {
		if r != nil {
			e.presets = r
		}
	}
}

// WithLogger sets the diagnostic logger for configuration failures.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithLocale selects the language of default messages.
func WithLocale(tag language.Tag) Option {
	return func(e *Engine) {
		e.locale = tag
	}
}

// NewEngine creates an engine with the built-in presets, English messages
// and a no-op logger unless overridden.
func NewEngine(opts ...Option) (*Engine, error) {
	env, err := cel.NewEnv(
		cel.Variable(exprVarValue, cel.DynType),
		cel.Variable(exprVarField, cel.StringType),
		cel.Variable(exprVarRecord, cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create expression environment: %w", err)
	}

	e := &Engine{
		presets: DefaultPresets(),
		logger:  zap.NewNop(),
		locale:  SupportedLocales[0],
		env:     env,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.printer = newPrinter(e.locale)
	return e, nil
}

// Presets returns the engine's preset registry.
func (e *Engine) Presets() *PresetRegistry {
	return e.presets
}

// Locale returns the language of default messages.
func (e *Engine) Locale() language.Tag {
	return e.locale
}

// WithLocale returns a copy of the engine printing default messages in tag.
// Compiled rule sets remain valid across copies.
func (e *Engine) WithLocale(tag language.Tag) *Engine {
	c := *e
	c.locale = tag
	c.printer = newPrinter(tag)
	return &c
}

// WithPresets returns a copy of the engine resolving `custom` against r.
// Rule sets compiled by the receiver keep the presets they were built with.
func (e *Engine) WithPresets(r *PresetRegistry) *Engine {
	c := *e
	if r != nil {
		c.presets = r
	}
	return &c
}
