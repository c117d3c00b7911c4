// internal/rules/evaluate_test.go
package rules

import (
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/text/language"

	"github.com/solatis/fieldcheck/internal/types"
)

func mustRecord(t *testing.T, doc string) *types.Record {
	t.Helper()
	rec, err := types.DecodeRecord([]byte(doc))
	if err != nil {
		t.Fatalf("DecodeRecord() error = %v, want nil", err)
	}
	return rec
}

func validate(t *testing.T, e *Engine, data, rules string, allowed ...string) types.Outcome {
	t.Helper()
	out, err := e.Validate(mustRecord(t, data), mustRuleSet(t, rules), allowed)
	if err != nil {
		t.Fatalf("Validate() error = %v, want nil", err)
	}
	return out
}

func TestValidate_Scenarios(t *testing.T) {
	e := newTestEngine(t)

	tests := []struct {
		name         string
		data         string
		rules        string
		allowed      []string
		wantValid    bool
		wantField    string
		wantRule     string
		wantContains []string
	}{
		{
			name:         "age below range",
			data:         `{"age": 17}`,
			rules:        `{"age": {"dataType": "number", "range": {"min": 18, "max": 65}}}`,
			wantField:    "age",
			wantRule:     "range",
			wantContains: []string{"age", "18"},
		},
		{
			name:      "role in list",
			data:      `{"role": "admin"}`,
			rules:     `{"role": {"list": ["user", "admin"]}}`,
			wantValid: true,
		},
		{
			name:         "required field absent",
			data:         `{}`,
			rules:        `{"email": {"required": true}}`,
			wantField:    "email",
			wantRule:     "required",
			wantContains: []string{"email"},
		},
		{
			name:      "equal passwords",
			data:      `{"pw": "abc", "pw2": "abc"}`,
			rules:     `{"pw2": {"equals": "pw"}}`,
			wantValid: true,
		},
		{
			name:         "different passwords",
			data:         `{"pw": "abc", "pw2": "xyz"}`,
			rules:        `{"pw2": {"equals": "pw"}}`,
			wantField:    "pw2",
			wantRule:     "equals",
			wantContains: []string{"pw2", "pw"},
		},
		{
			name:         "field outside allow-list without a rule",
			data:         `{"tag": "x"}`,
			rules:        `{}`,
			allowed:      []string{"other"},
			wantField:    "tag",
			wantRule:     "allowed",
			wantContains: []string{"'tag' is not a valid field"},
		},
		{
			name:      "unconfigured field is ignored",
			data:      `{"extra": 1, "age": 30}`,
			rules:     `{"age": {"dataType": "number"}}`,
			wantValid: true,
		},
		{
			name:      "empty allow-list allows everything",
			data:      `{"tag": "x"}`,
			rules:     `{}`,
			allowed:   []string{},
			wantValid: true,
		},
		{
			name:      "not required and absent passes",
			data:      `{}`,
			rules:     `{"email": {"required": false}}`,
			wantValid: true,
		},
		{
			name:      "null skips checks",
			data:      `{"age": null}`,
			rules:     `{"age": {"dataType": "number", "range": {"min": 18}}}`,
			wantValid: true,
		},
		{
			name:         "null still fails required",
			data:         `{"age": null}`,
			rules:        `{"age": {"dataType": "number", "required": true}}`,
			wantField:    "age",
			wantRule:     "required",
			wantContains: []string{"age"},
		},
		{
			name:         "first failing kind in declaration order",
			data:         `{"name": 42}`,
			rules:        `{"name": {"len": {"min": 3}, "dataType": "string"}}`,
			wantField:    "name",
			wantRule:     "len",
			wantContains: []string{"no measurable length"},
		},
		{
			name:         "kind keys dispatch case-insensitively",
			data:         `{"name": 42}`,
			rules:        `{"name": {"DATATYPE": "string"}}`,
			wantField:    "name",
			wantRule:     "dataType",
			wantContains: []string{"data type"},
		},
		{
			name:      "preset passes",
			data:      `{"email": "daiangm@github.com"}`,
			rules:     `{"email": {"custom": "email", "required": true}}`,
			wantValid: true,
		},
		{
			name:         "preset fails with custom template",
			data:         `{"email": "nope"}`,
			rules:        `{"email": {"custom": "email", "message": {"custom": "'{value}' is not a valid {field} address"}}}`,
			wantField:    "email",
			wantRule:     "regex",
			wantContains: []string{"'nope' is not a valid email address"},
		},
		{
			name:      "expression passes",
			data:      `{"qty": 12, "max": 20}`,
			rules:     `{"qty": {"expr": "value <= record.max"}}`,
			wantValid: true,
		},
		{
			name:         "expression fails",
			data:         `{"qty": 25, "max": 20}`,
			rules:        `{"qty": {"expr": "value <= record.max"}}`,
			wantField:    "qty",
			wantRule:     "expr",
			wantContains: []string{"qty"},
		},
		{
			name:         "expression runtime error fails",
			data:         `{"qty": 25}`,
			rules:        `{"qty": {"expr": "value <= record.max"}}`,
			wantField:    "qty",
			wantRule:     "expr",
			wantContains: []string{"qty"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := validate(t, e, tt.data, tt.rules, tt.allowed...)
			if got.Valid != tt.wantValid {
				t.Fatalf("Valid = %v, want %v (message %q)", got.Valid, tt.wantValid, got.Message)
			}
			if tt.wantValid {
				if got.Message != "" {
					t.Errorf("Message = %q, want empty", got.Message)
				}
				return
			}
			if got.Field != tt.wantField || got.Rule != tt.wantRule {
				t.Errorf("Field/Rule = %q/%q, want %q/%q", got.Field, got.Rule, tt.wantField, tt.wantRule)
			}
			for _, s := range tt.wantContains {
				if !strings.Contains(got.Message, s) {
					t.Errorf("Message = %q, want it to contain %q", got.Message, s)
				}
			}
		})
	}
}

func TestValidate_MessagePrecedence(t *testing.T) {
	e := newTestEngine(t)

	tests := []struct {
		name  string
		rules string
		want  string
	}{
		{
			name:  "kind template wins",
			rules: `{"uf": {"list": ["GO", "MT"], "message": {"list": "{field} must be one of {list}", "custom": "generic"}}}`,
			want:  "uf must be one of GO,MT",
		},
		{
			name:  "custom template is the fallback",
			rules: `{"uf": {"list": ["GO", "MT"], "message": {"regex": "unused", "custom": "{field}={value} is invalid"}}}`,
			want:  "uf=SP is invalid",
		},
		{
			name:  "default without templates",
			rules: `{"uf": {"list": ["GO", "MT"]}}`,
			want:  "The value 'SP' in 'uf' is not in the list of allowed values",
		},
		{
			name:  "template keys are case-insensitive",
			rules: `{"uf": {"list": ["GO", "MT"], "message": {"LIST": "bad {field}"}}}`,
			want:  "bad uf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := validate(t, e, `{"uf": "SP"}`, tt.rules)
			if got.Message != tt.want {
				t.Errorf("Message = %q, want %q", got.Message, tt.want)
			}
		})
	}
}

func TestValidate_RequiredMessage(t *testing.T) {
	e := newTestEngine(t)

	tests := []struct {
		name  string
		rules string
		want  string
	}{
		{name: "default", rules: `{"email": {"required": true}}`, want: "A value is required for field 'email'"},
		{name: "required template", rules: `{"email": {"required": true, "message": {"required": "fill in {field}", "custom": "x"}}}`, want: "fill in email"},
		{name: "custom template", rules: `{"email": {"required": true, "message": {"custom": "{field}!"}}}`, want: "email!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := validate(t, e, `{}`, tt.rules)
			if got.Valid || got.Message != tt.want {
				t.Errorf("Validate() = %+v, want failure %q", got, tt.want)
			}
		})
	}
}

func TestValidate_FirstRequiredInRuleSetOrder(t *testing.T) {
	e := newTestEngine(t)
	got := validate(t, e, `{"b": "present"}`, `{"c": {"required": true}, "b": {"required": true}, "a": {"required": true}}`)
	if got.Field != "c" {
		t.Errorf("Field = %q, want c (first unmet required in rule-set order)", got.Field)
	}
}

func TestValidate_ReferenceExample(t *testing.T) {
	e := newTestEngine(t)

	data := `{
		"username": "daiangm",
		"email": "daiangm@github.com",
		"password": "Pa$$w0rd",
		"check_pass": "Pa$$w0rd",
		"phone": "(62)99999-9999",
		"cpf": "000.000.000-00",
		"birthdate": "12/12/1990",
		"uf": "GO"
	}`
	rules := `
username:
  dataType: string
  len: {min: 3, max: 16}
  required: true
  message: {len: "O valor de {field} deve ter entre {len[min]} e {len[max]} caracteres"}
email:
  custom: email
  required: true
  message: {custom: "'{value}' não é um endereço de {field} válido"}
password:
  dataType: string
  custom: Pa$$w0rd
  len: {min: 8, max: 16}
  required: true
check_pass:
  equals: password
  required: true
phone:
  custom: phone
  required: true
cpf:
  regex: /^[0-9]{3}.[0-9]{3}.[0-9]{3}-[0-9]{2}$/i
birthdate:
  dataType: date
  range: {min: "1900-01-01", max: "2003-01-01"}
uf:
  list: [GO, MT, MS]
  message: {list: "O valor do campo '{field}' precisa ser preenchido com um dos valores da lista: {list}"}
`
	allowed := []string{"username", "email", "password", "check_pass", "phone", "cpf", "birthdate", "uf"}

	out, err := e.Validate(mustRecord(t, data), mustRuleSet(t, rules), allowed)
	if err != nil {
		t.Fatalf("Validate() error = %v, want nil", err)
	}
	if !out.Valid {
		t.Fatalf("Validate() = %+v, want pass", out)
	}

	out, err = e.Validate(mustRecord(t, `{"username": "da", "uf": "SP"}`), mustRuleSet(t, rules), allowed)
	if err != nil {
		t.Fatalf("Validate() error = %v, want nil", err)
	}
	want := "O valor de username deve ter entre 3 e 16 caracteres"
	if out.Message != want {
		t.Errorf("Message = %q, want %q", out.Message, want)
	}

	out, _ = e.Validate(mustRecord(t, `{"uf": "SP"}`), mustRuleSet(t, rules), allowed)
	want = "O valor do campo 'uf' precisa ser preenchido com um dos valores da lista: GO,MT,MS"
	if out.Message != want {
		t.Errorf("Message = %q, want %q", out.Message, want)
	}
}

func TestValidate_ConfigErrorsAreLogged(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	e := newTestEngine(t, WithLogger(zap.New(core)))

	out, err := e.Validate(mustRecord(t, `{"email": "x"}`), mustRuleSet(t, `{"email": {"custom": "nope"}}`), nil)
	if !errors.Is(err, types.ErrUnknownPreset) {
		t.Fatalf("Validate() error = %v, want ErrUnknownPreset", err)
	}
	if out.Valid || out.Message != "" {
		t.Errorf("Validate() outcome = %+v, want zero outcome", out)
	}
	if logs.Len() != 1 {
		t.Fatalf("logged %d entries, want 1", logs.Len())
	}
	entry := logs.All()[0]
	if entry.ContextMap()["field"] != "email" {
		t.Errorf("log field = %v, want email", entry.ContextMap()["field"])
	}

	_, err = e.Validate(nil, types.NewRuleSet(), nil)
	if !errors.Is(err, types.ErrMissingArgument) {
		t.Errorf("Validate(nil) error = %v, want ErrMissingArgument", err)
	}
}

func TestValidate_RangeKindMismatchIsConfigError(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Validate(mustRecord(t, `{"age": 30}`), mustRuleSet(t, `{"age": {"range": {"min": "1900-01-01"}}}`), nil)
	if !errors.Is(err, types.ErrRangeBoundType) {
		t.Errorf("Validate() error = %v, want ErrRangeBoundType", err)
	}
}

type panickingPattern struct{}

func (panickingPattern) MatchString(string) bool { panic("boom") }
func (panickingPattern) String() string          { return "/boom/" }

func TestValidate_RecoversPanics(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	e := newTestEngine(t, WithLogger(zap.New(core)))

	rs := types.NewRuleSet().Add("x", types.FieldRule{Checks: []types.Check{types.RegexCheck{Pattern: panickingPattern{}}}})
	out, err := e.Validate(types.NewRecord(types.Field{Name: "x", Value: "y"}), rs, nil)
	if err != nil {
		t.Fatalf("Validate() error = %v, want nil", err)
	}
	if out.Valid {
		t.Fatalf("Validate() Valid = true, want false")
	}
	if out.Message != "Unknown error while validating data" {
		t.Errorf("Message = %q, want generic unknown-error message", out.Message)
	}
	if logs.Len() != 1 {
		t.Errorf("logged %d entries, want 1", logs.Len())
	}
}

func TestValidate_Locale(t *testing.T) {
	e := newTestEngine(t, WithLocale(language.BrazilianPortuguese))
	got := validate(t, e, `{}`, `{"email": {"required": true}}`)
	want := "É obrigatório atribuir valor ao campo 'email'"
	if got.Message != want {
		t.Errorf("Message = %q, want %q", got.Message, want)
	}

	en := e.WithLocale(language.English)
	got = validate(t, en, `{}`, `{"email": {"required": true}}`)
	if got.Message != "A value is required for field 'email'" {
		t.Errorf("WithLocale(en) Message = %q", got.Message)
	}
	if e.Locale() != language.BrazilianPortuguese {
		t.Errorf("WithLocale() modified the receiver")
	}
}

func TestValidateCompiled_Reusable(t *testing.T) {
	e := newTestEngine(t)
	compiled, err := e.Compile(mustRuleSet(t, `{"age": {"dataType": "number", "range": {"min": 18}}}`))
	if err != nil {
		t.Fatalf("Compile() error = %v, want nil", err)
	}

	for _, tc := range []struct {
		data string
		want bool
	}{
		{`{"age": 20}`, true},
		{`{"age": 10}`, false},
		{`{"age": "20"}`, false},
		{`{"age": 18}`, true},
	} {
		out, err := e.ValidateCompiled(mustRecord(t, tc.data), compiled, nil)
		if err != nil {
			t.Fatalf("ValidateCompiled(%s) error = %v, want nil", tc.data, err)
		}
		if out.Valid != tc.want {
			t.Errorf("ValidateCompiled(%s) Valid = %v, want %v", tc.data, out.Valid, tc.want)
		}
	}
}

func TestMatchLocale(t *testing.T) {
	tests := []struct {
		in   string
		want language.Tag
	}{
		{"", language.English},
		{"en", language.English},
		{"en-US", language.English},
		{"pt-BR", language.BrazilianPortuguese},
		{"pt", language.BrazilianPortuguese},
		{"!!", language.English},
	}
	for _, tt := range tests {
		if got := MatchLocale(tt.in); got != tt.want {
			t.Errorf("MatchLocale(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestValidate_NilCheckIsConfigError(t *testing.T) {
	e := newTestEngine(t)
	rec := types.NewRecord(types.Field{Name: "age", Value: 30})

	rs := types.NewRuleSet().Add("age", types.FieldRule{Checks: []types.Check{nil}})
	if _, err := e.Validate(rec, rs, nil); !errors.Is(err, types.ErrInvalidDocument) {
		t.Errorf("Validate(nil check) error = %v, want ErrInvalidDocument", err)
	}

	registry := NewPresetRegistry(Preset{Name: "broken", Rule: types.FieldRule{Checks: []types.Check{nil}}})
	withBroken := e.WithPresets(registry)
	rs = types.NewRuleSet().Add("age", types.FieldRule{
		Custom: "broken",
		Checks: []types.Check{types.LenCheck{Max: types.Int(3)}},
	})
	if _, err := withBroken.Validate(rec, rs, nil); !errors.Is(err, types.ErrInvalidDocument) {
		t.Errorf("Validate(nil preset check) error = %v, want ErrInvalidDocument", err)
	}
}

func TestValidate_RecoversPanicsDuringCompile(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	broken := *newTestEngine(t, WithLogger(zap.New(core)))
	broken.env = nil

	rs := types.NewRuleSet().Add("n", types.FieldRule{Checks: []types.Check{types.ExprCheck{Source: "value > 0"}}})
	out, err := broken.Validate(types.NewRecord(types.Field{Name: "n", Value: 1}), rs, nil)
	if err != nil {
		t.Fatalf("Validate() error = %v, want nil", err)
	}
	if out.Valid || out.Message != "Unknown error while validating data" {
		t.Errorf("Validate() = %+v, want generic unknown-error failure", out)
	}
	if logs.Len() != 1 {
		t.Errorf("logged %d entries, want 1", logs.Len())
	}
}

func TestValidate_EachExprUsesItsOwnProgram(t *testing.T) {
	e := newTestEngine(t)
	rs := types.NewRuleSet().Add("n", types.FieldRule{Checks: []types.Check{
		types.ExprCheck{Source: "value > 100"},
		types.ExprCheck{Source: "value > 0"},
	}})

	tests := []struct {
		value int
		want  bool
	}{
		{5, false},
		{500, true},
		{-1, false},
	}
	for _, tt := range tests {
		out, err := e.Validate(types.NewRecord(types.Field{Name: "n", Value: tt.value}), rs, nil)
		if err != nil {
			t.Fatalf("Validate(%d) error = %v, want nil", tt.value, err)
		}
		if out.Valid != tt.want {
			t.Errorf("Validate(%d) Valid = %v, want %v", tt.value, out.Valid, tt.want)
		}
	}

	compiled, err := e.Compile(rs)
	if err != nil {
		t.Fatalf("Compile() error = %v, want nil", err)
	}
	cr, _ := compiled.Rule("n")
	if len(cr.exprs) != 2 {
		t.Errorf("compiled programs = %d, want 2", len(cr.exprs))
	}
}
