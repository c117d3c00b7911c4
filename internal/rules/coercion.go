// internal/rules/coercion.go
package rules

import (
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/solatis/fieldcheck/internal/types"
)

/*
 * Value classification and conversion for rule evaluation.
 *
 * Record values arrive as decoded JSON/YAML (string, int, float64, bool,
 * []any, map[string]any) or as arbitrary Go values from library callers.
 * These helpers classify them the way a dynamically typed runtime would:
 *
 *   - runtimeType: the typeof name (string, number, boolean, object)
 *   - lengthOf: rune count for strings, element count for collections
 *   - asInstant: a comparable instant for dates and date strings
 *   - stringify: the text a value interpolates as inside a message
 *
 * Null never reaches these helpers; the orchestrator skips nil values.
 */

// runtimeType returns the typeof-style name of v. Dates, slices, maps and
// structs are all "object".
func runtimeType(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case time.Time, *time.Time:
		return "object"
	}
	if _, ok := types.Number(v); ok {
		return "number"
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Func:
		return "function"
	case reflect.Invalid:
		return "undefined"
	default:
		return "object"
	}
}

// isArray reports whether v is a slice or array.
func isArray(v any) bool {
	if v == nil {
		return false
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Slice, reflect.Array:
		return true
	default:
		return false
	}
}

// isDate reports whether v is a date or a string that parses as one.
func isDate(v any) bool {
	switch t := v.(type) {
	case time.Time:
		return true
	case *time.Time:
		return t != nil
	case string:
		_, ok := types.ParseDate(t)
		return ok
	default:
		return false
	}
}

// lengthOf returns the length of strings, slices, arrays and maps.
func lengthOf(v any) (int, bool) {
	if s, ok := v.(string); ok {
		return utf8.RuneCountInString(s), true
	}
	if v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len(), true
	default:
		return 0, false
	}
}

// asInstant converts a date value to milliseconds since the epoch so dates
// and numbers share one comparison path.
func asInstant(t time.Time) float64 {
	return float64(t.UnixMilli())
}

// stringify renders v for message interpolation: arrays join with commas,
// integral floats drop their decimals, nil renders empty.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.Format(time.RFC3339)
	case *time.Time:
		if t == nil {
			return ""
		}
		return t.Format(time.RFC3339)
	case types.Pattern:
		return t.String()
	}
	if n, ok := types.Number(v); ok {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = stringify(rv.Index(i).Interface())
		}
		return strings.Join(parts, ",")
	case reflect.Map, reflect.Struct:
		return "[object Object]"
	case reflect.Pointer:
		if rv.IsNil() {
			return ""
		}
		return stringify(rv.Elem().Interface())
	default:
		return ""
	}
}
