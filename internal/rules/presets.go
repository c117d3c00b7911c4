// internal/rules/presets.go
package rules

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/solatis/fieldcheck/internal/types"
)

/*
 * Named preset registry.
 *
 * A preset is a FieldRule fragment referenced by name from a rule's `custom`
 * member. The registry is immutable once built: Extend returns a new registry
 * and Lookup hands out copies, so evaluation can never alter it.
 *
 * Preset files are TOML, one table per preset under [presets]:
 *
 *   [presets.cpf]
 *   regex = '/^\d{3}\.\d{3}\.\d{3}-\d{2}$/'
 *   message = { regex = "'{value}' is not a valid CPF" }
 *
 * Table and key order are preserved (via the decoder's key metadata) so a
 * preset's checks run in the order they are written.
 */

//go:embed presets.toml
var builtinPresets []byte

var defaultPresets = mustParsePresets(builtinPresets)

// Preset is a named rule fragment.
type Preset struct {
	Name string
	Rule types.FieldRule
}

// PresetRegistry maps preset names to rule fragments.
type PresetRegistry struct {
	names []string
	rules map[string]types.FieldRule
}

// NewPresetRegistry builds a registry from presets. Later entries override
// earlier ones with the same name.
func NewPresetRegistry(presets ...Preset) *PresetRegistry {
	r := &PresetRegistry{rules: make(map[string]types.FieldRule, len(presets))}
	r.add(presets)
	return r
}

// DefaultPresets returns the built-in registry: email, url, phone, cep,
// Pa$$w0rd and Passw0rd.
func DefaultPresets() *PresetRegistry {
	return NewPresetRegistry(defaultPresets...)
}

// Extend returns a new registry with presets added on top of r.
func (r *PresetRegistry) Extend(presets ...Preset) *PresetRegistry {
	out := &PresetRegistry{
		names: append([]string(nil), r.names...),
		rules: make(map[string]types.FieldRule, len(r.rules)+len(presets)),
	}
	for name, rule := range r.rules {
		out.rules[name] = rule
	}
	out.add(presets)
	return out
}

func (r *PresetRegistry) add(presets []Preset) {
	for _, p := range presets {
		if _, exists := r.rules[p.Name]; !exists {
			r.names = append(r.names, p.Name)
		}
		r.rules[p.Name] = copyRule(p.Rule)
	}
}

// Lookup returns a copy of the named preset. Names are case-sensitive.
func (r *PresetRegistry) Lookup(name string) (types.FieldRule, bool) {
	if r == nil {
		return types.FieldRule{}, false
	}
	rule, ok := r.rules[name]
	if !ok {
		return types.FieldRule{}, false
	}
	return copyRule(rule), true
}

// Names returns preset names in registration order.
func (r *PresetRegistry) Names() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.names...)
}

// Len returns the number of presets.
func (r *PresetRegistry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.names)
}

// LoadPresetFile reads presets from a TOML file.
func LoadPresetFile(path string) ([]Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read preset file: %w", err)
	}
	presets, err := ParsePresets(data)
	if err != nil {
		return nil, fmt.Errorf("preset file %s: %w", path, err)
	}
	return presets, nil
}

// ParsePresets decodes TOML preset tables, keeping table and key order.
func ParsePresets(data []byte) ([]Preset, error) {
	var doc struct {
		Presets map[string]map[string]any `toml:"presets"`
	}
	md, err := toml.Decode(string(data), &doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidDocument, err)
	}

	var (
		order []string
		keys  = make(map[string][]string)
	)
	for _, k := range md.Keys() {
		if len(k) < 2 || k[0] != "presets" {
			continue
		}
		name := k[1]
		if _, seen := keys[name]; !seen {
			order = append(order, name)
			keys[name] = nil
		}
		if len(k) == 3 {
			keys[name] = append(keys[name], k[2])
		}
	}

	presets := make([]Preset, 0, len(order))
	for _, name := range order {
		table := doc.Presets[name]
		root := &yaml.Node{Kind: yaml.MappingNode}
		for _, key := range keys[name] {
			val := &yaml.Node{}
			if err := val.Encode(table[key]); err != nil {
				return nil, fmt.Errorf("%w: preset %q key %q: %v", types.ErrInvalidDocument, name, key, err)
			}
			root.Content = append(root.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: key}, val)
		}
		raw, err := yaml.Marshal(root)
		if err != nil {
			return nil, fmt.Errorf("%w: preset %q: %v", types.ErrInvalidDocument, name, err)
		}
		rule, err := types.DecodeFieldRule(name, raw)
		if err != nil {
			return nil, err
		}
		presets = append(presets, Preset{Name: name, Rule: rule})
	}
	return presets, nil
}

// DecodePreset parses a single stored preset: a JSON or YAML rule mapping.
// A preset may not itself reference another preset.
func DecodePreset(name string, doc []byte) (Preset, error) {
	rule, err := types.DecodeFieldRule(name, doc)
	if err != nil {
		return Preset{}, err
	}
	if rule.Custom != "" {
		return Preset{}, types.NewConfigError(name, types.KeyCustom,
			fmt.Errorf("%w: presets cannot reference %q", types.ErrInvalidDocument, rule.Custom))
	}
	for _, c := range rule.Checks {
		if err := validateCheck(c); err != nil {
			return Preset{}, types.NewConfigError(name, c.Kind().String(), err)
		}
	}
	return Preset{Name: name, Rule: rule}, nil
}

func mustParsePresets(data []byte) []Preset {
	presets, err := ParsePresets(data)
	if err != nil {
		panic(fmt.Sprintf("built-in presets: %v", err))
	}
	return presets
}

// copyRule copies the slice and map members of a rule.
func copyRule(r types.FieldRule) types.FieldRule {
	out := r
	out.Checks = append([]types.Check(nil), r.Checks...)
	if r.Messages != nil {
		out.Messages = make(map[string]string, len(r.Messages))
		for k, v := range r.Messages {
			out.Messages[k] = v
		}
	}
	return out
}

// mergePreset combines a preset with the rule that references it. Preset
// checks come first; an explicitly declared kind replaces the preset's check
// in place and the remaining explicit checks follow in declaration order.
// Explicit message keys win. Required holds if either side requires it.
func mergePreset(preset, explicit types.FieldRule) types.FieldRule {
	merged := copyRule(preset)
	merged.Custom = explicit.Custom
	merged.Required = preset.Required || explicit.Required

	for _, c := range explicit.Checks {
		replaced := false
		for i, existing := range merged.Checks {
			if existing != nil && c != nil && existing.Kind() == c.Kind() {
				merged.Checks[i] = c
				replaced = true
				break
			}
		}
		if !replaced {
			merged.Checks = append(merged.Checks, c)
		}
	}

	if len(explicit.Messages) > 0 && merged.Messages == nil {
		merged.Messages = make(map[string]string, len(explicit.Messages))
	}
	for k, v := range explicit.Messages {
		merged.Messages[k] = v
	}
	return merged
}
