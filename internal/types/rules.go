// internal/types/rules.go
package types

/*
 * Domain types for field rules.
 *
 * A FieldRule is an ordered list of checks plus structural members
 * (required, custom, message). Each rule kind is its own Check type carrying
 * a typed configuration, so a malformed configuration is rejected when the
 * check is constructed rather than deep inside evaluation.
 *
 * Key types:
 *   - Kind: rule kind enum (dataType, list, len, range, regex, equals, expr)
 *   - Check: sealed sum type, one concrete struct per Kind
 *   - FieldRule: checks in declaration order + required/custom/messages
 *   - Bound: range bound, either numeric or date
 */

import (
	"fmt"
	"strings"
	"time"
)

// Kind identifies a rule kind.
type Kind int

const (
	KindUnspecified Kind = iota
	KindDataType
	KindList
	KindLen
	KindRange
	KindRegex
	KindEquals
	KindExpr
)

// Structural (non-dispatched) FieldRule keys and message keys.
const (
	KeyRequired = "required"
	KeyCustom   = "custom"
	KeyMessage  = "message"
	KeyName     = "name"

	// RuleAllowed tags allow-list failures in Outcome.Rule.
	RuleAllowed = "allowed"
)

var kindNames = map[Kind]string{
	KindDataType: "dataType",
	KindList:     "list",
	KindLen:      "len",
	KindRange:    "range",
	KindRegex:    "regex",
	KindEquals:   "equals",
	KindExpr:     "expr",
}

// String returns the authoring name of the kind (e.g. "dataType").
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unspecified"
}

// ParseKind matches a property name to a rule kind, case-insensitively.
// Structural keys and unknown names report false.
func ParseKind(name string) (Kind, bool) {
	for k, n := range kindNames {
		if strings.EqualFold(n, name) {
			return k, true
		}
	}
	return KindUnspecified, false
}

// Check is one configured rule kind. The set of implementations is closed.
type Check interface {
	Kind() Kind
	sealed()
}

// DataType is the expected runtime type of a value.
type DataType int

const (
	DataTypeString DataType = iota + 1
	DataTypeNumber
	DataTypeDate
	DataTypeBoolean
	DataTypeObject
	DataTypeArray
)

var dataTypeNames = map[DataType]string{
	DataTypeString:  "string",
	DataTypeNumber:  "number",
	DataTypeDate:    "date",
	DataTypeBoolean: "boolean",
	DataTypeObject:  "object",
	DataTypeArray:   "array",
}

func (d DataType) String() string {
	return dataTypeNames[d]
}

// ParseDataType parses a type name case-insensitively.
func ParseDataType(name string) (DataType, error) {
	for d, n := range dataTypeNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownDataType, name)
}

// DataTypeCheck requires the value to be of Type.
type DataTypeCheck struct {
	Type DataType
	// Raw is the configured spelling, used for the {dataType} placeholder.
	Raw string
}

// NewDataTypeCheck parses name into a DataTypeCheck.
func NewDataTypeCheck(name string) (DataTypeCheck, error) {
	d, err := ParseDataType(name)
	if err != nil {
		return DataTypeCheck{}, err
	}
	return DataTypeCheck{Type: d, Raw: name}, nil
}

// ListCheck requires the value to strictly equal one of Values.
type ListCheck struct {
	Values []any
}

// NewListCheck validates the list size.
func NewListCheck(values []any) (ListCheck, error) {
	if len(values) > MaxListValues {
		return ListCheck{}, ErrTooManyListValues
	}
	return ListCheck{Values: values}, nil
}

// LenCheck bounds string/collection length. Only bounds > 0 are enforced.
type LenCheck struct {
	Min *int
	Max *int
}

// RangeCheck bounds numeric or date values. At least one bound is set.
type RangeCheck struct {
	Min *Bound
	Max *Bound
}

// NewRangeCheck builds a range from raw bounds (numbers, date strings,
// time.Time or nil for absent).
func NewRangeCheck(minRaw, maxRaw any) (RangeCheck, error) {
	lo, err := NewBound(minRaw)
	if err != nil {
		return RangeCheck{}, fmt.Errorf("min: %w", err)
	}
	hi, err := NewBound(maxRaw)
	if err != nil {
		return RangeCheck{}, fmt.Errorf("max: %w", err)
	}
	if lo == nil && hi == nil {
		return RangeCheck{}, ErrRangeNoBounds
	}
	return RangeCheck{Min: lo, Max: hi}, nil
}

// RegexCheck requires a string value matching Pattern.
type RegexCheck struct {
	Pattern Pattern
}

// NewRegexCheck compiles a raw or /source/flags pattern.
func NewRegexCheck(literal string) (RegexCheck, error) {
	p, err := CompilePattern(literal)
	if err != nil {
		return RegexCheck{}, err
	}
	return RegexCheck{Pattern: p}, nil
}

// EqualsCheck requires the value to equal the value of Field.
type EqualsCheck struct {
	Field string
}

// ExprCheck requires a boolean expression over value and record to hold.
type ExprCheck struct {
	Source string
}

func (DataTypeCheck) Kind() Kind { return KindDataType }
func (ListCheck) Kind() Kind     { return KindList }
func (LenCheck) Kind() Kind      { return KindLen }
func (RangeCheck) Kind() Kind    { return KindRange }
func (RegexCheck) Kind() Kind    { return KindRegex }
func (EqualsCheck) Kind() Kind   { return KindEquals }
func (ExprCheck) Kind() Kind     { return KindExpr }

func (DataTypeCheck) sealed() {}
func (ListCheck) sealed()     {}
func (LenCheck) sealed()      {}
func (RangeCheck) sealed()    {}
func (RegexCheck) sealed()    {}
func (EqualsCheck) sealed()   {}
func (ExprCheck) sealed()     {}

// Int returns a pointer to n, for LenCheck bounds.
func Int(n int) *int { return &n }

// Bound is one side of a range: a number or a date.
type Bound struct {
	// Raw is the configured literal, quoted in messages.
	Raw    any
	num    float64
	at     time.Time
	isDate bool
}

// NewBound converts a configured bound. nil means absent.
// Strings must parse as dates.
func NewBound(raw any) (*Bound, error) {
	if raw == nil {
		return nil, nil
	}
	if n, ok := Number(raw); ok {
		return &Bound{Raw: raw, num: n}, nil
	}
	switch v := raw.(type) {
	case string:
		t, ok := ParseDate(v)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrRangeBoundNotDate, v)
		}
		return &Bound{Raw: raw, at: t, isDate: true}, nil
	case time.Time:
		return &Bound{Raw: raw, at: v, isDate: true}, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrRangeBoundType, raw)
	}
}

// IsDate reports whether the bound is a date.
func (b *Bound) IsDate() bool { return b.isDate }

// Number returns the numeric bound (zero for dates).
func (b *Bound) Number() float64 { return b.num }

// Time returns the date bound (zero for numbers).
func (b *Bound) Time() time.Time { return b.at }

// FieldRule is the set of constraints configured for one field.
type FieldRule struct {
	// Checks in declaration order; evaluated in this order.
	Checks []Check
	// Required fails the record when the field is absent or null.
	Required bool
	// Custom names a preset merged into this rule.
	Custom string
	// Messages maps a rule kind name, "required" or "custom" to a template.
	Messages map[string]string
}

// Check returns the check of kind k, if declared.
func (r FieldRule) Check(k Kind) (Check, bool) {
	for _, c := range r.Checks {
		if c.Kind() == k {
			return c, true
		}
	}
	return nil, false
}

// MessageFor returns the template for key, falling back to the "custom"
// template. Keys match case-insensitively.
func (r FieldRule) MessageFor(key string) (string, bool) {
	if tmpl, ok := lookupFold(r.Messages, key); ok {
		return tmpl, true
	}
	return lookupFold(r.Messages, KeyCustom)
}

// lookupFold prefers the exact key. Among keys differing only in case, the
// lexically smallest wins so the result does not depend on map order.
func lookupFold(m map[string]string, key string) (string, bool) {
	if tmpl, ok := m[key]; ok {
		return tmpl, true
	}
	match, found := "", false
	for k := range m {
		if strings.EqualFold(k, key) && (!found || k < match) {
			match, found = k, true
		}
	}
	if !found {
		return "", false
	}
	return m[match], true
}
