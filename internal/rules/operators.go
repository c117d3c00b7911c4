// internal/rules/operators.go
package rules

import (
	"reflect"
	"time"

	"github.com/solatis/fieldcheck/internal/types"
)

/*
 * Strict equality used by list and equals checks.
 *
 * Values are equal only when they have the same kind and value, with no
 * coercion between kinds:
 *   - numbers compare numerically across Go numeric kinds (int 18 == float64 18)
 *   - strings and booleans compare by value ("1" != 1, true != 1)
 *   - dates compare by instant
 *   - slices, maps and other reference values are never equal
 *
 * NaN is never equal to anything, itself included.
 */

// strictEqual reports whether a and b are equal without type coercion.
func strictEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	na, oka := types.Number(a)
	nb, okb := types.Number(b)
	if oka || okb {
		return oka && okb && na == nb
	}

	switch x := a.(type) {
	case string:
		y, ok := b.(string)
		return ok && x == y
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	}

	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) || !ta.Comparable() {
		return false
	}
	switch ta.Kind() {
	case reflect.Slice, reflect.Map, reflect.Func:
		return false
	}
	return a == b
}

// inList reports whether value strictly equals any element of values.
func inList(value any, values []any) bool {
	for _, elem := range values {
		if strictEqual(value, elem) {
			return true
		}
	}
	return false
}
