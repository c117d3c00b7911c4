// internal/rules/evaluate.go
package rules

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/solatis/fieldcheck/internal/types"
)

/*
 * Evaluation orchestration.
 *
 * Evaluates a Record against a CompiledRuleSet and returns the first failure.
 *
 * Evaluation flow:
 *   1. For each record key, in record order:
 *      a. allow-list check (non-empty list only), before any rule lookup
 *      b. rule lookup; unconfigured keys are ignored
 *      c. nil value: checks skipped, field left unconsumed
 *      d. checks in declaration order; the first failure ends the whole call
 *      e. all checks passed: field consumed
 *   2. Required scan over unconsumed fields, in rule-set order
 *
 * Short-circuit is global: at most one failure is ever reported.
 *
 * Failure channels: data failures come back as an Outcome with a message.
 * Configuration failures come back as an error (and are logged), with a zero
 * Outcome. A panic during evaluation is recovered into a generic failure
 * outcome so callers never crash.
 *
 * The consumed set is local to the call; the record, rule set and compiled
 * rule set are only read.
 */

// Validate compiles rs and evaluates rec against it. allowed, when non-empty,
// lists the only field names rec may contain.
func (e *Engine) Validate(rec *types.Record, rs *types.RuleSet, allowed []string) (out types.Outcome, err error) {
	if rec == nil || rs == nil {
		err := types.NewConfigError("", "", types.ErrMissingArgument)
		e.logConfigError(err)
		return types.Outcome{}, err
	}

	defer e.recoverOutcome(&out, &err)

	compiled, err := e.Compile(rs)
	if err != nil {
		e.logConfigError(err)
		return types.Outcome{}, err
	}
	return e.ValidateCompiled(rec, compiled, allowed)
}

// ValidateCompiled evaluates rec against an already compiled rule set.
func (e *Engine) ValidateCompiled(rec *types.Record, rs *CompiledRuleSet, allowed []string) (out types.Outcome, err error) {
	if rec == nil || rs == nil {
		err := types.NewConfigError("", "", types.ErrMissingArgument)
		e.logConfigError(err)
		return types.Outcome{}, err
	}

	defer e.recoverOutcome(&out, &err)

	out, err = e.evaluate(rec, rs, allowed)
	if err != nil {
		e.logConfigError(err)
		return types.Outcome{}, err
	}
	return out, nil
}

func (e *Engine) evaluate(rec *types.Record, rs *CompiledRuleSet, allowed []string) (types.Outcome, error) {
	var allow map[string]struct{}
	if len(allowed) > 0 {
		allow = make(map[string]struct{}, len(allowed))
		for _, name := range allowed {
			allow[name] = struct{}{}
		}
	}

	consumed := make(map[string]bool, rs.Len())

	for _, key := range rec.Keys() {
		if allow != nil {
			if _, ok := allow[key]; !ok {
				return types.Fail(key, types.RuleAllowed, e.printer.Sprintf(msgNotAllowed, key)), nil
			}
		}

		cr, ok := rs.rules[key]
		if !ok {
			continue
		}

		value, _ := rec.Get(key)
		if value == nil {
			continue
		}

		for i, c := range cr.Rule.Checks {
			out, err := e.runCheck(cr, i, c, key, value, rec)
			if err != nil {
				return types.Outcome{}, err
			}
			if !out.Valid {
				if tmpl, ok := cr.Rule.MessageFor(c.Kind().String()); ok {
					out.Message = renderMessage(tmpl, key, value, c)
				}
				return out, nil
			}
		}
		consumed[key] = true
	}

	return e.checkRequired(rs, consumed), nil
}

// runCheck dispatches one check to its validator.
func (e *Engine) runCheck(cr *CompiledRule, idx int, c types.Check, field string, value any, rec *types.Record) (types.Outcome, error) {
	switch c := c.(type) {
	case types.DataTypeCheck:
		return checkDataType(e.printer, c, field, value), nil
	case types.ListCheck:
		return checkList(e.printer, c, field, value), nil
	case types.LenCheck:
		return checkLen(e.printer, c, field, value), nil
	case types.RangeCheck:
		return checkRange(e.printer, c, field, value)
	case types.RegexCheck:
		return checkRegex(e.printer, c, field, value), nil
	case types.EqualsCheck:
		other, _ := rec.Get(c.Field)
		return checkEquals(e.printer, c, field, value, other), nil
	case types.ExprCheck:
		return checkExpr(e.printer, c, cr.exprs[idx], field, value, rec), nil
	default:
		return types.Outcome{}, types.NewConfigError(field, c.Kind().String(),
			fmt.Errorf("%w: unsupported check %T", types.ErrInvalidDocument, c))
	}
}

// recoverOutcome turns a panic into the generic failure outcome.
func (e *Engine) recoverOutcome(out *types.Outcome, err *error) {
	if r := recover(); r != nil {
		e.logger.Error("unexpected failure while validating data",
			zap.String("panic", fmt.Sprint(r)),
			zap.Stack("stack"))
		*out, *err = types.Fail("", "", e.printer.Sprintf(msgUnknownError)), nil
	}
}

// logConfigError emits a configuration failure on the diagnostic channel.
func (e *Engine) logConfigError(err error) {
	fields := []zap.Field{zap.Error(err)}
	var ce *types.ConfigError
	if errors.As(err, &ce) {
		fields = append(fields, zap.String("field", ce.Field), zap.String("rule", ce.Rule))
	}
	e.logger.Error("invalid validation configuration", fields...)
}
