package rules

import (
	"strconv"
	"strings"

	"github.com/solatis/fieldcheck/internal/types"
)

// Placeholders recognized in message templates.
const (
	placeholderField = "{field}"
	placeholderValue = "{value}"
	placeholderList  = "{list}"
	placeholderLenLo = "{len[min]}"
	placeholderLenHi = "{len[max]}"
	placeholderRngLo = "{range[min]}"
	placeholderRngHi = "{range[max]}"
)

// renderMessage substitutes every occurrence of the placeholders in tmpl.
// check is nil for required-field messages, which only know the field name.
// Substitution is a single pass, so placeholder text inside a value is left
// as is.
func renderMessage(tmpl, field string, value any, check types.Check) string {
	pairs := []string{
		placeholderField, field,
		placeholderValue, stringify(value),
	}

	switch c := check.(type) {
	case types.ListCheck:
		pairs = append(pairs, placeholderList, stringify(c.Values))
	case types.LenCheck:
		pairs = append(pairs, placeholderLenLo, intBound(c.Min), placeholderLenHi, intBound(c.Max))
	case types.RangeCheck:
		pairs = append(pairs, placeholderRngLo, rawBound(c.Min), placeholderRngHi, rawBound(c.Max))
	case types.DataTypeCheck:
		pairs = append(pairs, kindPlaceholder(c), c.Raw)
	case types.RegexCheck:
		pairs = append(pairs, kindPlaceholder(c), stringify(c.Pattern))
	case types.EqualsCheck:
		pairs = append(pairs, kindPlaceholder(c), c.Field)
	case types.ExprCheck:
		pairs = append(pairs, kindPlaceholder(c), c.Source)
	}

	return strings.NewReplacer(pairs...).Replace(tmpl)
}

func kindPlaceholder(c types.Check) string {
	return "{" + c.Kind().String() + "}"
}

func intBound(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}

func rawBound(b *types.Bound) string {
	if b == nil {
		return ""
	}
	return stringify(b.Raw)
}
