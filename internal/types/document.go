// internal/types/document.go
package types

/*
 * Order-preserving decoding of records and rule sets.
 *
 * Documents are JSON or YAML. JSON input is tokenized with encoding/json
 * (yaml.v3 rejects surrogate-pair escapes) into the same yaml.Node tree that
 * YAML input parses to. Decoding walks the yaml.Node tree instead of unmarshalling into maps so that mapping key order
 * survives: record key order drives evaluation order, rule-set order drives
 * the required-field scan, and rule kind order within a field drives which
 * failure is reported first.
 *
 * Rule documents take either form:
 *
 *   age:                         - name: age
 *     dataType: number             dataType: number
 *     range: {min: 18, max: 65}    range: {min: 18, max: 65}
 *
 * Rule kind keys match case-insensitively; unknown keys are ignored.
 */

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DecodeRecord parses a JSON/YAML mapping into a Record, keeping key order.
func DecodeRecord(doc []byte) (*Record, error) {
	root, err := parseRoot(doc)
	if err != nil {
		return nil, err
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: record must be a mapping", ErrInvalidDocument)
	}

	rec := NewRecord()
	for i := 0; i+1 < len(root.Content); i += 2 {
		var value any
		if err := root.Content[i+1].Decode(&value); err != nil {
			return nil, fmt.Errorf("%w: field %q: %v", ErrInvalidDocument, root.Content[i].Value, err)
		}
		rec.Set(root.Content[i].Value, value)
	}
	return rec, nil
}

// DecodeRuleSet parses a JSON/YAML rule document into a RuleSet, keeping
// field and rule kind order. Malformed rule configurations are reported as
// *ConfigError.
func DecodeRuleSet(doc []byte) (*RuleSet, error) {
	root, err := parseRoot(doc)
	if err != nil {
		return nil, err
	}

	rs := NewRuleSet()
	switch root.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(root.Content); i += 2 {
			name := root.Content[i].Value
			rule, err := decodeFieldRule(name, resolveAlias(root.Content[i+1]))
			if err != nil {
				return nil, err
			}
			rs.Add(name, rule)
		}
	case yaml.SequenceNode:
		// Legacy array form: each item carries its own name.
		for idx, item := range root.Content {
			item = resolveAlias(item)
			name, ok := scalarField(item, KeyName)
			if !ok || name == "" {
				return nil, fmt.Errorf("%w: rule %d has no name", ErrInvalidDocument, idx)
			}
			rule, err := decodeFieldRule(name, item)
			if err != nil {
				return nil, err
			}
			rs.Add(name, rule)
		}
	default:
		return nil, fmt.Errorf("%w: rules must be a mapping or a sequence", ErrInvalidDocument)
	}
	return rs, nil
}

// DecodeFieldRule parses a single rule mapping, e.g. a preset fragment.
func DecodeFieldRule(name string, doc []byte) (FieldRule, error) {
	root, err := parseRoot(doc)
	if err != nil {
		return FieldRule{}, err
	}
	return decodeFieldRule(name, root)
}

func parseRoot(doc []byte) (*yaml.Node, error) {
	if len(doc) > MaxDocumentSize {
		return nil, fmt.Errorf("%w: document exceeds %d bytes", ErrInvalidDocument, MaxDocumentSize)
	}
	if trimmed := bytes.TrimSpace(doc); len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return parseJSON(trimmed)
	}
	var n yaml.Node
	if err := yaml.Unmarshal(doc, &n); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if n.Kind != yaml.DocumentNode || len(n.Content) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidDocument)
	}
	return resolveAlias(n.Content[0]), nil
}

// parseJSON tokenizes a JSON document into a yaml.Node tree, keeping
// member order.
func parseJSON(doc []byte) (*yaml.Node, error) {
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()
	n, err := jsonNode(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after JSON value", ErrInvalidDocument)
	}
	return n, nil
}

func jsonNode(dec *json.Decoder) (*yaml.Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch t := tok.(type) {
	case json.Delim:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		if t == '{' {
			n = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		}
		for dec.More() {
			if n.Kind == yaml.MappingNode {
				key, err := dec.Token()
				if err != nil {
					return nil, err
				}
				k, _ := key.(string)
				n.Content = append(n.Content, scalarNode("!!str", k))
			}
			child, err := jsonNode(dec)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, child)
		}
		// closing delimiter
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return n, nil
	case string:
		return scalarNode("!!str", t), nil
	case json.Number:
		if _, err := strconv.ParseInt(t.String(), 10, 64); err == nil {
			return scalarNode("!!int", t.String()), nil
		}
		f, err := t.Float64()
		if err != nil {
			return nil, err
		}
		// yaml.v3 cannot decode a uint64 literal as !!float.
		return scalarNode("!!float", strconv.FormatFloat(f, 'g', -1, 64)), nil
	case bool:
		return scalarNode("!!bool", strconv.FormatBool(t)), nil
	case nil:
		return scalarNode("!!null", "null"), nil
	}
	return nil, fmt.Errorf("unexpected JSON token %v", tok)
}

func scalarNode(tag, value string) *yaml.Node {
	n := &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
	if tag == "!!str" {
		n.Style = yaml.DoubleQuotedStyle
	}
	return n
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

func scalarField(n *yaml.Node, key string) (string, bool) {
	if n.Kind != yaml.MappingNode {
		return "", false
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if strings.EqualFold(n.Content[i].Value, key) {
			v := resolveAlias(n.Content[i+1])
			return v.Value, v.Kind == yaml.ScalarNode
		}
	}
	return "", false
}

func decodeFieldRule(field string, n *yaml.Node) (FieldRule, error) {
	if n.Kind != yaml.MappingNode {
		return FieldRule{}, NewConfigError(field, "", fmt.Errorf("%w: rule must be a mapping", ErrInvalidDocument))
	}

	var rule FieldRule
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i].Value
		val := resolveAlias(n.Content[i+1])

		switch {
		case strings.EqualFold(key, KeyRequired):
			var v any
			if err := val.Decode(&v); err != nil {
				return FieldRule{}, NewConfigError(field, KeyRequired, fmt.Errorf("%w: %v", ErrInvalidDocument, err))
			}
			rule.Required = Truthy(v)
		case strings.EqualFold(key, KeyCustom):
			if val.Kind != yaml.ScalarNode {
				return FieldRule{}, NewConfigError(field, KeyCustom, fmt.Errorf("%w: custom must be a preset name", ErrInvalidDocument))
			}
			rule.Custom = val.Value
		case strings.EqualFold(key, KeyMessage):
			msgs, err := decodeMessages(val)
			if err != nil {
				return FieldRule{}, NewConfigError(field, KeyMessage, err)
			}
			rule.Messages = msgs
		default:
			kind, ok := ParseKind(key)
			if !ok {
				continue
			}
			check, err := decodeCheck(kind, val)
			if err != nil {
				return FieldRule{}, NewConfigError(field, kind.String(), err)
			}
			rule.Checks = putCheck(rule.Checks, check)
		}
	}
	return rule, nil
}

// putCheck appends c, or replaces an earlier check of the same kind in place.
func putCheck(checks []Check, c Check) []Check {
	for i, existing := range checks {
		if existing.Kind() == c.Kind() {
			checks[i] = c
			return checks
		}
	}
	return append(checks, c)
}

func decodeMessages(n *yaml.Node) (map[string]string, error) {
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: message must be a mapping of templates", ErrInvalidDocument)
	}
	msgs := make(map[string]string, len(n.Content)/2)
	seen := make(map[string]string, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i].Value
		v := resolveAlias(n.Content[i+1])
		if v.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("%w: message %q must be a string", ErrInvalidDocument, key)
		}
		if prev, dup := seen[strings.ToLower(key)]; dup {
			return nil, fmt.Errorf("%w: message keys %q and %q differ only in case", ErrInvalidDocument, prev, key)
		}
		seen[strings.ToLower(key)] = key
		msgs[key] = v.Value
	}
	return msgs, nil
}

func decodeCheck(kind Kind, n *yaml.Node) (Check, error) {
	switch kind {
	case KindDataType:
		if n.Kind != yaml.ScalarNode {
			return nil, ErrUnknownDataType
		}
		return NewDataTypeCheck(n.Value)

	case KindList:
		if n.Kind != yaml.SequenceNode {
			return nil, ErrListNotArray
		}
		values := make([]any, 0, len(n.Content))
		for _, item := range n.Content {
			var v any
			if err := item.Decode(&v); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
			}
			values = append(values, v)
		}
		return NewListCheck(values)

	case KindLen:
		bounds, err := decodeBounds(n, ErrLenNotObject)
		if err != nil {
			return nil, err
		}
		var c LenCheck
		for name, raw := range bounds {
			f, ok := Number(raw)
			if !ok && raw != nil {
				return nil, fmt.Errorf("%w: %s must be a number", ErrLenNotObject, name)
			}
			if raw == nil {
				continue
			}
			if f != math.Trunc(f) || math.IsInf(f, 0) {
				return nil, fmt.Errorf("%w: %s must be a whole number", ErrLenNotObject, name)
			}
			if name == "min" {
				c.Min = Int(int(f))
			} else {
				c.Max = Int(int(f))
			}
		}
		return c, nil

	case KindRange:
		bounds, err := decodeBounds(n, ErrRangeNotObject)
		if err != nil {
			return nil, err
		}
		return NewRangeCheck(bounds["min"], bounds["max"])

	case KindRegex:
		if n.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("%w: regex must be a string", ErrInvalidPattern)
		}
		return NewRegexCheck(n.Value)

	case KindEquals:
		if n.Kind != yaml.ScalarNode || n.Value == "" {
			return nil, fmt.Errorf("%w: equals must name a field", ErrInvalidDocument)
		}
		return EqualsCheck{Field: n.Value}, nil

	case KindExpr:
		if n.Kind != yaml.ScalarNode || strings.TrimSpace(n.Value) == "" {
			return nil, fmt.Errorf("%w: expr must be a non-empty string", ErrInvalidExpression)
		}
		return ExprCheck{Source: n.Value}, nil

	default:
		return nil, fmt.Errorf("%w: unsupported rule kind %v", ErrInvalidDocument, kind)
	}
}

// decodeBounds reads the min/max members of a len or range mapping.
func decodeBounds(n *yaml.Node, notObject error) (map[string]any, error) {
	if n.Kind != yaml.MappingNode {
		return nil, notObject
	}
	bounds := make(map[string]any, 2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := strings.ToLower(n.Content[i].Value)
		if key != "min" && key != "max" {
			continue
		}
		var v any
		if err := n.Content[i+1].Decode(&v); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
		bounds[key] = v
	}
	return bounds, nil
}

// Truthy reports whether v would be considered true in a boolean context:
// false, 0, NaN, "" and nil are falsy.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	}
	if n, ok := Number(v); ok {
		return n != 0 && n == n
	}
	return true
}
