// internal/rules/validators.go
package rules

import (
	"fmt"
	"time"

	"golang.org/x/text/message"

	"github.com/solatis/fieldcheck/internal/types"
)

/*
 * Primitive validators, one per rule kind.
 *
 * Each is a pure function of (check, field, value) returning an Outcome with
 * the default message in the printer's locale. Data-shape problems (wrong
 * type, no length) are failures, never errors. Only range can report a
 * configuration error at evaluation time, because whether its bounds fit
 * depends on the kind of value being checked.
 *
 * Templates configured on the rule replace the default message afterwards,
 * in the orchestrator.
 */

func checkDataType(p *message.Printer, c types.DataTypeCheck, field string, value any) types.Outcome {
	switch c.Type {
	case types.DataTypeArray:
		if !isArray(value) {
			return types.Fail(field, c.Kind().String(), p.Sprintf(msgNotArray, field))
		}
	case types.DataTypeDate:
		if !isDate(value) {
			return types.Fail(field, c.Kind().String(), p.Sprintf(msgNotDate, field))
		}
	default:
		if runtimeType(value) != c.Type.String() {
			return types.Fail(field, c.Kind().String(), p.Sprintf(msgWrongType, field))
		}
	}
	return types.Pass()
}

func checkList(p *message.Printer, c types.ListCheck, field string, value any) types.Outcome {
	if !inList(value, c.Values) {
		return types.Fail(field, c.Kind().String(), p.Sprintf(msgNotInList, stringify(value), field))
	}
	return types.Pass()
}

// checkLen enforces only bounds that are present and greater than zero.
// The minimum is checked first.
func checkLen(p *message.Printer, c types.LenCheck, field string, value any) types.Outcome {
	n, ok := lengthOf(value)
	if !ok {
		return types.Fail(field, c.Kind().String(), p.Sprintf(msgNoLength, field))
	}
	if c.Min != nil && *c.Min > 0 && n < *c.Min {
		return types.Fail(field, c.Kind().String(), p.Sprintf(msgTooShort, field))
	}
	if c.Max != nil && *c.Max > 0 && n > *c.Max {
		return types.Fail(field, c.Kind().String(), p.Sprintf(msgTooLong, field))
	}
	return types.Pass()
}

// checkRange compares numbers numerically and dates (or date strings) by
// instant. When min > max the bounds are swapped before comparing; messages
// still quote the configured bounds.
func checkRange(p *message.Printer, c types.RangeCheck, field string, value any) (types.Outcome, error) {
	kind := c.Kind().String()

	var (
		v      float64
		asDate bool
	)
	switch t := value.(type) {
	case string:
		at, ok := types.ParseDate(t)
		if !ok {
			return types.Fail(field, kind, p.Sprintf(msgRangeNotDate, field)), nil
		}
		v, asDate = asInstant(at), true
	case time.Time:
		v, asDate = asInstant(t), true
	default:
		n, ok := types.Number(value)
		if !ok {
			return types.Fail(field, kind, p.Sprintf(msgRangeType, field)), nil
		}
		v = n
	}

	lo, loSet, err := boundValue(c.Min, asDate)
	if err != nil {
		return types.Outcome{}, types.NewConfigError(field, kind, fmt.Errorf("min: %w", err))
	}
	hi, hiSet, err := boundValue(c.Max, asDate)
	if err != nil {
		return types.Outcome{}, types.NewConfigError(field, kind, fmt.Errorf("max: %w", err))
	}

	if loSet && hiSet && lo > hi {
		lo, hi = hi, lo
	}

	if loSet && v < lo {
		return types.Fail(field, kind, p.Sprintf(msgBelowMin, field, stringify(c.Min.Raw))), nil
	}
	if hiSet && v > hi {
		return types.Fail(field, kind, p.Sprintf(msgAboveMax, field, stringify(c.Max.Raw))), nil
	}
	return types.Pass(), nil
}

// boundValue resolves a bound on the value's scale. A numeric bound against
// a date value, or the reverse, is a configuration error.
func boundValue(b *types.Bound, asDate bool) (float64, bool, error) {
	if b == nil {
		return 0, false, nil
	}
	if b.IsDate() != asDate {
		if asDate {
			return 0, false, fmt.Errorf("%w: %v is not a date", types.ErrRangeBoundType, b.Raw)
		}
		return 0, false, fmt.Errorf("%w: %v is not a number", types.ErrRangeBoundType, b.Raw)
	}
	if asDate {
		return asInstant(b.Time()), true, nil
	}
	return b.Number(), true, nil
}

// checkRegex fails for every non-string value.
func checkRegex(p *message.Printer, c types.RegexCheck, field string, value any) types.Outcome {
	s, ok := value.(string)
	if !ok || c.Pattern == nil || !c.Pattern.MatchString(s) {
		return types.Fail(field, c.Kind().String(), p.Sprintf(msgNoMatch, field))
	}
	return types.Pass()
}

// checkEquals fails when the other field's value is falsy or missing, or is
// not strictly equal to value.
func checkEquals(p *message.Printer, c types.EqualsCheck, field string, value, other any) types.Outcome {
	if !types.Truthy(other) || !strictEqual(value, other) {
		return types.Fail(field, c.Kind().String(), p.Sprintf(msgNotEqual, field, c.Field))
	}
	return types.Pass()
}
