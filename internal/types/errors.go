package types

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig marks configuration failures: the rule set or the call
// itself is malformed. These abort evaluation and never carry a user message.
var ErrInvalidConfig = errors.New("invalid validation configuration")

// Sentinel errors wrapped by ConfigError. Each also matches ErrInvalidConfig.
var (
	// ErrMissingArgument indicates data or rules were not supplied.
	ErrMissingArgument = configSentinel("data and rules are required")

	// ErrInvalidDocument indicates a record or rule document could not be decoded.
	ErrInvalidDocument = configSentinel("invalid document")

	// ErrUnknownDataType indicates a dataType outside string|number|date|boolean|object|array.
	ErrUnknownDataType = configSentinel("unknown dataType")

	// ErrListNotArray indicates a list check configured with a non-sequence.
	ErrListNotArray = configSentinel("list must be an array")

	// ErrTooManyListValues indicates a list check exceeds MaxListValues.
	ErrTooManyListValues = configSentinel("list has too many values")

	// ErrLenNotObject indicates a len check configured with a non-mapping.
	ErrLenNotObject = configSentinel("len must be an object with min and/or max")

	// ErrRangeNotObject indicates a range check configured with a non-mapping.
	ErrRangeNotObject = configSentinel("range must be an object")

	// ErrRangeNoBounds indicates a range check with neither min nor max.
	ErrRangeNoBounds = configSentinel("range requires min and/or max")

	// ErrRangeBoundNotDate indicates a string range bound that is not a valid date.
	ErrRangeBoundNotDate = configSentinel("range bound is not a valid date")

	// ErrRangeBoundType indicates range bounds that cannot be compared with the value.
	ErrRangeBoundType = configSentinel("range bounds do not match value type")

	// ErrInvalidPattern indicates a regex that does not compile.
	ErrInvalidPattern = configSentinel("invalid regex pattern")

	// ErrInvalidExpression indicates an expr check that does not compile to a boolean.
	ErrInvalidExpression = configSentinel("invalid expression")

	// ErrUnknownPreset indicates a custom preset name missing from the registry.
	ErrUnknownPreset = configSentinel("unknown custom preset")

	// ErrInvalidRuleSetName indicates an empty or oversized rule-set name.
	ErrInvalidRuleSetName = configSentinel("invalid rule set name")
)

// Lookup failures for stored documents. These are not configuration errors.
var (
	ErrRuleSetNotFound = errors.New("rule set not found")
	ErrPresetNotFound  = errors.New("preset not found")
)

type sentinel struct{ msg string }

func (s *sentinel) Error() string        { return s.msg }
func (s *sentinel) Is(target error) bool { return target == ErrInvalidConfig }

func configSentinel(msg string) error { return &sentinel{msg: msg} }

// ConfigError names the field and rule kind a configuration failure belongs to.
type ConfigError struct {
	Field string
	Rule  string
	Err   error
}

// NewConfigError wraps err for a field and rule kind.
func NewConfigError(field, rule string, err error) *ConfigError {
	return &ConfigError{Field: field, Rule: rule, Err: err}
}

func (e *ConfigError) Error() string {
	switch {
	case e.Field != "" && e.Rule != "":
		return fmt.Sprintf("field %q rule %q: %v", e.Field, e.Rule, e.Err)
	case e.Field != "":
		return fmt.Sprintf("field %q: %v", e.Field, e.Err)
	default:
		return e.Err.Error()
	}
}

// Unwrap exposes the wrapped sentinel.
func (e *ConfigError) Unwrap() error { return e.Err }

// Is reports every ConfigError as a configuration failure.
func (e *ConfigError) Is(target error) bool { return target == ErrInvalidConfig }

// IsConfigError reports whether err is a configuration failure.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrInvalidConfig)
}
