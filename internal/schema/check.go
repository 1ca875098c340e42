package schema

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"fareqa/internal/dataset"
)

// Kind names a check variant.
type Kind string

const (
	KindGreaterThan          Kind = "greater_than"
	KindGreaterThanOrEqualTo Kind = "greater_than_or_equal_to"
	KindLessThan             Kind = "less_than"
	KindLessThanOrEqualTo    Kind = "less_than_or_equal_to"
	KindInRange              Kind = "in_range"
	KindStrLength            Kind = "str_length"
	KindIsIn                 Kind = "isin"
	KindNotIn                Kind = "notin"
	KindStrMatches           Kind = "str_matches"
	KindUppercase            Kind = "uppercase"
	KindLowercase            Kind = "lowercase"
	KindDateTime             Kind = "datetime"
)

// Kinds lists every supported check kind.
var Kinds = []Kind{
	KindGreaterThan, KindGreaterThanOrEqualTo, KindLessThan, KindLessThanOrEqualTo,
	KindInRange, KindStrLength, KindIsIn, KindNotIn, KindStrMatches,
	KindUppercase, KindLowercase, KindDateTime,
}

func (k Kind) known() bool {
	for _, x := range Kinds {
		if x == k {
			return true
		}
	}
	return false
}

// numeric reports whether the kind compares numbers.
func (k Kind) numeric() bool {
	switch k {
	case KindGreaterThan, KindGreaterThanOrEqualTo, KindLessThan, KindLessThanOrEqualTo, KindInRange:
		return true
	}
	return false
}

// Check is one value-level constraint. Which parameters apply depends on
// Kind:
//
//	greater_than, greater_than_or_equal_to,
//	less_than, less_than_or_equal_to   Value
//	in_range                           Min, Max (inclusive)
//	str_length                         Min and/or Max, in runes (inclusive)
//	isin, notin                        Values
//	str_matches                        Pattern (anchored at the start)
//	datetime                           Layout (Go reference time)
//	uppercase, lowercase               none
//
// Message replaces the default failure message.
type Check struct {
	Kind    Kind     `json:"kind" yaml:"kind"`
	Value   *float64 `json:"value,omitempty" yaml:"value,omitempty"`
	Min     *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max     *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	Values  []string `json:"values,omitempty" yaml:"values,omitempty"`
	Pattern string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Layout  string   `json:"layout,omitempty" yaml:"layout,omitempty"`
	Message string   `json:"message,omitempty" yaml:"message,omitempty"`
}

func f64(v float64) *float64 { return &v }

// GreaterThan passes numeric values strictly above v.
func GreaterThan(v float64) Check { return Check{Kind: KindGreaterThan, Value: f64(v)} }

// GreaterThanOrEqualTo passes numeric values at or above v.
func GreaterThanOrEqualTo(v float64) Check {
	return Check{Kind: KindGreaterThanOrEqualTo, Value: f64(v)}
}

// LessThan passes numeric values strictly below v.
func LessThan(v float64) Check { return Check{Kind: KindLessThan, Value: f64(v)} }

// LessThanOrEqualTo passes numeric values at or below v.
func LessThanOrEqualTo(v float64) Check {
	return Check{Kind: KindLessThanOrEqualTo, Value: f64(v)}
}

// InRange passes numeric values in [min, max].
func InRange(min, max float64) Check {
	return Check{Kind: KindInRange, Min: f64(min), Max: f64(max)}
}

// StrLength bounds the rune length of string values. Pass a negative bound
// to leave that side open.
func StrLength(min, max int) Check {
	c := Check{Kind: KindStrLength}
	if min >= 0 {
		c.Min = f64(float64(min))
	}
	if max >= 0 {
		c.Max = f64(float64(max))
	}
	return c
}

// IsIn passes values that equal one of values.
func IsIn(values ...string) Check { return Check{Kind: KindIsIn, Values: values} }

// NotIn passes values that equal none of values.
func NotIn(values ...string) Check { return Check{Kind: KindNotIn, Values: values} }

// Matches passes values whose prefix matches the regular expression pattern.
func Matches(pattern string) Check { return Check{Kind: KindStrMatches, Pattern: pattern} }

// Uppercase passes values with an uppercase letter and no lowercase ones.
func Uppercase() Check { return Check{Kind: KindUppercase} }

// Lowercase passes values with a lowercase letter and no uppercase ones.
func Lowercase() Check { return Check{Kind: KindLowercase} }

// DateTime passes values that time.Parse accepts with layout.
func DateTime(layout string) Check { return Check{Kind: KindDateTime, Layout: layout} }

// WithMessage returns a copy of c with a custom failure message.
func (c Check) WithMessage(msg string) Check {
	c.Message = msg
	return c
}

// Name renders the check with its parameters, e.g. "greater_than(0)" or
// "str_length(2, 5)".
func (c Check) Name() string {
	switch c.Kind {
	case KindGreaterThan, KindGreaterThanOrEqualTo, KindLessThan, KindLessThanOrEqualTo:
		return fmt.Sprintf("%s(%s)", c.Kind, num(c.Value))
	case KindInRange, KindStrLength:
		return fmt.Sprintf("%s(%s, %s)", c.Kind, num(c.Min), num(c.Max))
	case KindIsIn, KindNotIn:
		quoted := make([]string, len(c.Values))
		for i, v := range c.Values {
			quoted[i] = "'" + v + "'"
		}
		return fmt.Sprintf("%s([%s])", c.Kind, strings.Join(quoted, ", "))
	case KindStrMatches:
		return fmt.Sprintf("%s('%s')", c.Kind, c.Pattern)
	case KindDateTime:
		return fmt.Sprintf("%s('%s')", c.Kind, c.Layout)
	default:
		return string(c.Kind)
	}
}

// FailureMessage is Message when set, otherwise Name.
func (c Check) FailureMessage() string {
	if c.Message != "" {
		return c.Message
	}
	return c.Name()
}

func num(v *float64) string {
	if v == nil {
		return "None"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// Predicate reports whether the non-null cell at row passes a check.
type Predicate func(col dataset.Column, row int) bool

// Compile turns c into a Predicate. Numeric checks fail on values that are
// not numbers; string checks test the cell text.
func (c Check) Compile() (Predicate, error) {
	switch c.Kind {
	case KindGreaterThan, KindGreaterThanOrEqualTo, KindLessThan, KindLessThanOrEqualTo:
		if c.Value == nil {
			return nil, fmt.Errorf("%s: value is required", c.Kind)
		}
		bound := *c.Value
		var cmp func(v float64) bool
		switch c.Kind {
		case KindGreaterThan:
			cmp = func(v float64) bool { return v > bound }
		case KindGreaterThanOrEqualTo:
			cmp = func(v float64) bool { return v >= bound }
		case KindLessThan:
			cmp = func(v float64) bool { return v < bound }
		default:
			cmp = func(v float64) bool { return v <= bound }
		}
		return numeric(cmp), nil

	case KindInRange:
		if c.Min == nil || c.Max == nil {
			return nil, fmt.Errorf("in_range: min and max are required")
		}
		lo, hi := *c.Min, *c.Max
		if lo > hi {
			return nil, fmt.Errorf("in_range: min %v > max %v", lo, hi)
		}
		return numeric(func(v float64) bool { return v >= lo && v <= hi }), nil

	case KindStrLength:
		if c.Min == nil && c.Max == nil {
			return nil, fmt.Errorf("str_length: min or max is required")
		}
		lo, hi := -1, -1
		if c.Min != nil {
			lo = int(*c.Min)
		}
		if c.Max != nil {
			hi = int(*c.Max)
		}
		if lo >= 0 && hi >= 0 && lo > hi {
			return nil, fmt.Errorf("str_length: min %d > max %d", lo, hi)
		}
		return text(func(s string) bool {
			n := utf8.RuneCountInString(s)
			return (lo < 0 || n >= lo) && (hi < 0 || n <= hi)
		}), nil

	case KindIsIn, KindNotIn:
		if len(c.Values) == 0 {
			return nil, fmt.Errorf("%s: values must not be empty", c.Kind)
		}
		set := make(map[string]struct{}, len(c.Values))
		for _, v := range c.Values {
			set[v] = struct{}{}
		}
		want := c.Kind == KindIsIn
		return text(func(s string) bool {
			_, ok := set[s]
			return ok == want
		}), nil

	case KindStrMatches:
		if c.Pattern == "" {
			return nil, fmt.Errorf("str_matches: pattern is required")
		}
		re, err := regexp.Compile(`^(?:` + c.Pattern + `)`)
		if err != nil {
			return nil, fmt.Errorf("str_matches: %w", err)
		}
		return text(re.MatchString), nil

	case KindUppercase:
		return text(func(s string) bool { return isCase(s, unicode.IsUpper, unicode.IsLower) }), nil

	case KindLowercase:
		return text(func(s string) bool { return isCase(s, unicode.IsLower, unicode.IsUpper) }), nil

	case KindDateTime:
		if c.Layout == "" {
			return nil, fmt.Errorf("datetime: layout is required")
		}
		layout := c.Layout
		return text(func(s string) bool {
			_, err := time.Parse(layout, s)
			return err == nil
		}), nil

	default:
		return nil, fmt.Errorf("unknown check kind %q", c.Kind)
	}
}

func numeric(cmp func(float64) bool) Predicate {
	return func(col dataset.Column, row int) bool {
		v, ok := col.Float(row)
		return ok && cmp(v)
	}
}

func text(fn func(string) bool) Predicate {
	return func(col dataset.Column, row int) bool { return fn(col.Text(row)) }
}

// isCase follows Python's str.isupper/str.islower: at least one cased rune
// and none of the opposite case. "DAC" is upper; "123" is neither.
func isCase(s string, want, not func(rune) bool) bool {
	cased := false
	for _, r := range s {
		if not(r) || unicode.IsTitle(r) {
			return false
		}
		if want(r) {
			cased = true
		}
	}
	return cased
}
