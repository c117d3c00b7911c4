// Package types provides domain models shared across fieldcheck components.
//
// Record and RuleSet are ordered: evaluation order is defined by the insertion
// order of the record and the declaration order of the rule set, so neither
// can be a plain Go map. Both are treated as read-only by the engine.
//
// Document decoding (document.go) pulls in yaml.v3; everything else here is
// stdlib-only so the rules package can depend on it without transport deps.
package types

import "encoding/json"

// Field is one name/value pair of a Record.
type Field struct {
	Name  string
	Value any
}

// Record is an ordered mapping from field name to value.
// Values are nil, string, Go numeric kinds, bool, time.Time, slices or maps.
type Record struct {
	keys   []string
	values map[string]any
}

// NewRecord builds a record from fields in order. A repeated name keeps its
// first position and takes the last value.
func NewRecord(fields ...Field) *Record {
	r := &Record{values: make(map[string]any, len(fields))}
	for _, f := range fields {
		r.Set(f.Name, f.Value)
	}
	return r
}

// Set adds or replaces a field. New names are appended to the iteration order.
func (r *Record) Set(name string, value any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, exists := r.values[name]; !exists {
		r.keys = append(r.keys, name)
	}
	r.values[name] = value
}

// Get returns the value for name and whether the field is present.
// A present field may still hold nil.
func (r *Record) Get(name string) (any, bool) {
	if r == nil {
		return nil, false
	}
	v, ok := r.values[name]
	return v, ok
}

// Keys returns a copy of the field names in insertion order.
func (r *Record) Keys() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of fields.
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}

// Map returns a shallow copy of the values keyed by name.
func (r *Record) Map() map[string]any {
	out := make(map[string]any, r.Len())
	if r == nil {
		return out
	}
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// RuleSet is an ordered mapping from field name to FieldRule.
type RuleSet struct {
	names []string
	rules map[string]FieldRule
}

// NewRuleSet returns an empty rule set.
func NewRuleSet() *RuleSet {
	return &RuleSet{rules: make(map[string]FieldRule)}
}

// Add declares the rule for a field. Re-declaring a field replaces its rule
// but keeps the original position.
func (rs *RuleSet) Add(name string, rule FieldRule) *RuleSet {
	if rs.rules == nil {
		rs.rules = make(map[string]FieldRule)
	}
	if _, exists := rs.rules[name]; !exists {
		rs.names = append(rs.names, name)
	}
	rs.rules[name] = rule
	return rs
}

// Get returns the rule declared for name.
func (rs *RuleSet) Get(name string) (FieldRule, bool) {
	if rs == nil {
		return FieldRule{}, false
	}
	r, ok := rs.rules[name]
	return r, ok
}

// Names returns a copy of the declared field names in declaration order.
func (rs *RuleSet) Names() []string {
	if rs == nil {
		return nil
	}
	out := make([]string, len(rs.names))
	copy(out, rs.names)
	return out
}

// Len returns the number of declared fields.
func (rs *RuleSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.names)
}

// Outcome is the universal result of a validator and of the engine.
// Valid is false with a Message for data failures. Field and Rule identify
// the failing field and rule kind ("required" or "allowed" for the post-pass
// and allow-list failures).
type Outcome struct {
	Valid   bool
	Message string
	Field   string
	Rule    string
}

// Pass is the successful outcome.
func Pass() Outcome {
	return Outcome{Valid: true}
}

// Fail builds a data-validation failure.
func Fail(field, rule, message string) Outcome {
	return Outcome{Field: field, Rule: rule, Message: message}
}

// MarshalJSON encodes the outcome as {"validate": bool, "message"?: string}.
func (o Outcome) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Validate bool   `json:"validate"`
		Message  string `json:"message,omitempty"`
	}{o.Valid, o.Message})
}

// UnmarshalJSON decodes the {"validate", "message"} wire form.
func (o *Outcome) UnmarshalJSON(data []byte) error {
	var wire struct {
		Validate bool   `json:"validate"`
		Message  string `json:"message"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*o = Outcome{Valid: wire.Validate, Message: wire.Message}
	return nil
}

// Resource limits enforced when decoding and storing documents.
const (
	// MaxDocumentSize bounds record and rule-set documents accepted over the wire.
	MaxDocumentSize = 1024 * 1024

	// MaxListValues bounds list checks to keep membership tests linear and small.
	MaxListValues = 1024

	// MaxRuleSetNameLength bounds stored rule-set names.
	MaxRuleSetNameLength = 128
)
