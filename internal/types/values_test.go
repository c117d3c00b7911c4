package types

import (
	"errors"
	"testing"
	"time"
)

func TestCompilePattern(t *testing.T) {
	tests := []struct {
		literal string
		input   string
		want    bool
	}{
		{literal: `^\d+$`, input: "123", want: true},
		{literal: `/^abc$/`, input: "ABC", want: false},
		{literal: `/^abc$/i`, input: "ABC", want: true},
		{literal: `/^b$/m`, input: "a\nb", want: true},
		{literal: `/a.b/s`, input: "a\nb", want: true},
		{literal: `/a.b/`, input: "a\nb", want: false},
		{literal: `/x/g`, input: "yxy", want: true},
		{literal: `/^(?=.*\d)(?=.*[A-Z]).{6,}$/`, input: "Abcde1", want: true},
		{literal: `/^(?=.*\d)(?=.*[A-Z]).{6,}$/`, input: "abcdef", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.literal, func(t *testing.T) {
			p, err := CompilePattern(tt.literal)
			if err != nil {
				t.Fatalf("CompilePattern() error = %v, want nil", err)
			}
			if got := p.MatchString(tt.input); got != tt.want {
				t.Errorf("MatchString(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if p.String() != tt.literal {
				t.Errorf("String() = %q, want %q", p.String(), tt.literal)
			}
		})
	}
}

func TestCompilePattern_Invalid(t *testing.T) {
	for _, literal := range []string{`/[a-/`, `/a/z`, `(`} {
		if _, err := CompilePattern(literal); !errors.Is(err, ErrInvalidPattern) {
			t.Errorf("CompilePattern(%q) error = %v, want ErrInvalidPattern", literal, err)
		}
	}
}

func TestNewBound(t *testing.T) {
	b, err := NewBound(10)
	if err != nil || b.IsDate() || b.Number() != 10 {
		t.Errorf("NewBound(10) = %+v, %v, want numeric 10", b, err)
	}

	b, err = NewBound("2020-01-01")
	if err != nil || !b.IsDate() {
		t.Fatalf("NewBound(date) = %+v, %v, want date bound", b, err)
	}
	if want := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC); !b.Time().Equal(want) {
		t.Errorf("Time() = %v, want %v", b.Time(), want)
	}
	if b.Raw != "2020-01-01" {
		t.Errorf("Raw = %v, want the configured literal", b.Raw)
	}

	if b, err := NewBound(nil); b != nil || err != nil {
		t.Errorf("NewBound(nil) = %v, %v, want nil, nil", b, err)
	}
	if _, err := NewBound("banana"); !errors.Is(err, ErrRangeBoundNotDate) {
		t.Errorf("NewBound(banana) error = %v, want ErrRangeBoundNotDate", err)
	}
	if _, err := NewBound([]int{1}); !errors.Is(err, ErrRangeBoundType) {
		t.Errorf("NewBound(slice) error = %v, want ErrRangeBoundType", err)
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"2020-01-01", true},
		{"2020-01-01T10:00:00Z", true},
		{"  2019-12-31 23:59:59 ", true},
		{"", false},
		{"banana", false},
	}
	for _, tt := range tests {
		if _, ok := ParseDate(tt.in); ok != tt.want {
			t.Errorf("ParseDate(%q) ok = %v, want %v", tt.in, ok, tt.want)
		}
	}
}

func TestNumber(t *testing.T) {
	for _, v := range []any{1, int8(1), int64(1), uint16(1), float32(1), 1.0} {
		if n, ok := Number(v); !ok || n != 1 {
			t.Errorf("Number(%T) = %v, %v, want 1, true", v, n, ok)
		}
	}
	if _, ok := Number("1"); ok {
		t.Errorf("Number(\"1\") ok = true, want false")
	}
}
