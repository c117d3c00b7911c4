// internal/rules/compile.go
package rules

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/solatis/fieldcheck/internal/types"
)

/*
 * Rule set compilation and validation.
 *
 * Compiles a types.RuleSet into a CompiledRuleSet with presets merged, every
 * check's configuration validated and expressions compiled to programs.
 *
 * Compilation workflow (per field, in declaration order):
 *   1. Resolve `custom` against the preset registry (unknown name is fatal)
 *   2. Merge preset and explicit members (explicit wins, nothing mutated)
 *   3. Validate each check's configuration
 *   4. Compile expr checks to CEL programs
 *
 * Every configuration failure surfaces here, before any record is looked at,
 * so evaluation never aborts half way because of a malformed rule set. The
 * one exception is a range whose bound kind does not fit the value (number
 * versus date), which can only be known at evaluation time.
 */

// exprCostLimit bounds the runtime cost of a single expression evaluation.
const exprCostLimit = 100000

// CompiledRule is a merged, validated FieldRule ready for evaluation.
type CompiledRule struct {
	Field string
	Rule  types.FieldRule
	// exprs holds one program per ExprCheck, indexed like Rule.Checks.
	exprs map[int]cel.Program
}

// CompiledRuleSet is an immutable, evaluation-ready rule set. It may be
// shared between goroutines and reused across calls.
type CompiledRuleSet struct {
	names []string
	rules map[string]*CompiledRule
}

// Names returns the field names in declaration order.
func (c *CompiledRuleSet) Names() []string {
	return append([]string(nil), c.names...)
}

// Rule returns the compiled rule for a field.
func (c *CompiledRuleSet) Rule(field string) (*CompiledRule, bool) {
	r, ok := c.rules[field]
	return r, ok
}

// Len returns the number of fields.
func (c *CompiledRuleSet) Len() int {
	return len(c.names)
}

// Compile validates rs and resolves its presets. The caller's rule set is
// not modified. Errors are *types.ConfigError matching types.ErrInvalidConfig.
func (e *Engine) Compile(rs *types.RuleSet) (*CompiledRuleSet, error) {
	if rs == nil {
		return nil, types.NewConfigError("", "", types.ErrMissingArgument)
	}

	compiled := &CompiledRuleSet{
		names: rs.Names(),
		rules: make(map[string]*CompiledRule, rs.Len()),
	}

	for _, name := range compiled.names {
		rule, _ := rs.Get(name)
		cr, err := e.compileRule(name, rule)
		if err != nil {
			return nil, err
		}
		compiled.rules[name] = cr
	}

	return compiled, nil
}

// compileRule merges the preset, if any, and validates each check.
func (e *Engine) compileRule(field string, rule types.FieldRule) (*CompiledRule, error) {
	for _, c := range rule.Checks {
		if c == nil {
			return nil, types.NewConfigError(field, "",
				fmt.Errorf("%w: nil check", types.ErrInvalidDocument))
		}
	}

	merged := copyRule(rule)
	if rule.Custom != "" {
		preset, ok := e.presets.Lookup(rule.Custom)
		if !ok {
			return nil, types.NewConfigError(field, types.KeyCustom,
				fmt.Errorf("%w: %q", types.ErrUnknownPreset, rule.Custom))
		}
		merged = mergePreset(preset, rule)
	}

	cr := &CompiledRule{Field: field, Rule: merged}
	for i, c := range merged.Checks {
		if c == nil {
			return nil, types.NewConfigError(field, "",
				fmt.Errorf("%w: nil check", types.ErrInvalidDocument))
		}
		if err := validateCheck(c); err != nil {
			return nil, types.NewConfigError(field, c.Kind().String(), err)
		}
		if x, ok := c.(types.ExprCheck); ok {
			prog, err := e.compileExpr(x.Source)
			if err != nil {
				return nil, types.NewConfigError(field, c.Kind().String(), err)
			}
			if cr.exprs == nil {
				cr.exprs = make(map[int]cel.Program)
			}
			cr.exprs[i] = prog
		}
	}
	return cr, nil
}

// validateCheck rejects configurations that cannot be evaluated. Checks
// built by the types constructors already satisfy these; Go callers building
// check structs by hand may not.
func validateCheck(c types.Check) error {
	switch c := c.(type) {
	case types.DataTypeCheck:
		if c.Type.String() == "" {
			return types.ErrUnknownDataType
		}
	case types.ListCheck:
		if c.Values == nil {
			return types.ErrListNotArray
		}
		if len(c.Values) > types.MaxListValues {
			return types.ErrTooManyListValues
		}
	case types.LenCheck:
		if c.Min == nil && c.Max == nil {
			return types.ErrLenNotObject
		}
	case types.RangeCheck:
		if c.Min == nil && c.Max == nil {
			return types.ErrRangeNoBounds
		}
	case types.RegexCheck:
		if c.Pattern == nil {
			return types.ErrInvalidPattern
		}
	case types.EqualsCheck:
		if c.Field == "" {
			return fmt.Errorf("%w: equals must name a field", types.ErrInvalidDocument)
		}
	case types.ExprCheck:
		if c.Source == "" {
			return types.ErrInvalidExpression
		}
	default:
		return fmt.Errorf("%w: unsupported check %T", types.ErrInvalidDocument, c)
	}
	return nil
}

// compileExpr compiles a boolean CEL expression over value, field and record.
func (e *Engine) compileExpr(source string) (cel.Program, error) {
	ast, issues := e.env.Compile(source)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidExpression, issues.Err())
	}

	out := ast.OutputType()
	if !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("%w: expression yields %v, want bool", types.ErrInvalidExpression, out)
	}

	prog, err := e.env.Program(ast, cel.CostLimit(exprCostLimit))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidExpression, err)
	}
	return prog, nil
}
