package types

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/dlclark/regexp2"
)

// Number converts any Go numeric kind to float64.
func Number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// ParseDate parses a date string in any common layout, independent of the
// process locale and time zone. Zone-less inputs are read as UTC.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Pattern is a compiled regular expression. *regexp.Regexp satisfies it.
type Pattern interface {
	MatchString(s string) bool
	String() string
}

var _ Pattern = (*regexp.Regexp)(nil)

// patternMatchTimeout bounds backtracking in ECMAScript patterns.
const patternMatchTimeout = 100 * time.Millisecond

// ecmaPattern runs ECMAScript-compatible patterns (lookaround included).
type ecmaPattern struct {
	re      *regexp2.Regexp
	literal string
}

func (p *ecmaPattern) MatchString(s string) bool {
	ok, err := p.re.MatchString(s)
	return err == nil && ok
}

func (p *ecmaPattern) String() string { return p.literal }

// CompilePattern compiles either a raw pattern or a /source/flags literal.
// Supported flags: i (ignore case), m (multiline), s (dot matches newline);
// g, u and y are accepted
// and ignored since matching is a single test.
func CompilePattern(literal string) (Pattern, error) {
	source, flags := literal, ""
	if len(literal) >= 2 && literal[0] == '/' {
		if end := strings.LastIndexByte(literal, '/'); end > 0 {
			source, flags = literal[1:end], literal[end+1:]
		}
	}

	opts := regexp2.RegexOptions(regexp2.ECMAScript)
	for _, f := range flags {
		switch f {
		case 'i':
			opts |= regexp2.IgnoreCase
		case 'm':
			opts |= regexp2.Multiline
		case 's':
			opts |= regexp2.Singleline
		case 'g', 'u', 'y':
		default:
			return nil, fmt.Errorf("%w: unsupported flag %q in %s", ErrInvalidPattern, f, literal)
		}
	}

	re, err := regexp2.Compile(source, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	re.MatchTimeout = patternMatchTimeout
	return &ecmaPattern{re: re, literal: literal}, nil
}

// MustCompilePattern is CompilePattern that panics, for static presets.
func MustCompilePattern(literal string) Pattern {
	p, err := CompilePattern(literal)
	if err != nil {
		panic(err)
	}
	return p
}
