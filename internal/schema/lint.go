package schema

import (
	"fmt"
	"strings"

	"fareqa/internal/config"
)

// Lint reports malformed declarations before any data is read: missing or
// duplicate names, unknown types and kinds, and check parameters that cannot
// be compiled. Checks that can never apply to the declared type are warnings.
func Lint(s Schema) []config.Issue {
	var issues []config.Issue

	if len(s.Columns) == 0 {
		issues = append(issues, config.Issue{
			Severity: config.SeverityWarning,
			Path:     "columns",
			Message:  "schema declares no columns; only strict mode can produce failures",
		})
	}

	seen := make(map[string]int, len(s.Columns))
	for i, c := range s.Columns {
		path := fmt.Sprintf("columns[%d]", i)

		if strings.TrimSpace(c.Name) == "" {
			issues = append(issues, config.Issue{
				Severity: config.SeverityError,
				Path:     path + ".name",
				Message:  "column name must not be empty",
			})
		} else if j, dup := seen[c.Name]; dup {
			issues = append(issues, config.Issue{
				Severity: config.SeverityError,
				Path:     path + ".name",
				Message:  fmt.Sprintf("column %q is already declared at columns[%d]", c.Name, j),
			})
		} else {
			seen[c.Name] = i
		}

		typeOK := true
		if t, err := ParseType(string(c.Type)); err != nil || t != c.Type {
			typeOK = false
			issues = append(issues, config.Issue{
				Severity: config.SeverityError,
				Path:     path + ".type",
				Message:  fmt.Sprintf("unknown type %q (want string, int, float or bool)", c.Type),
			})
		}

		for j, chk := range c.Checks {
			issues = append(issues, lintCheck(fmt.Sprintf("%s.checks[%d]", path, j), c, chk, typeOK)...)
		}
	}
	return issues
}

func lintCheck(path string, col Column, c Check, typeOK bool) []config.Issue {
	if !c.Kind.known() {
		return []config.Issue{{
			Severity: config.SeverityError,
			Path:     path + ".kind",
			Message:  fmt.Sprintf("unknown check kind %q", c.Kind),
		}}
	}

	var issues []config.Issue
	if _, err := c.Compile(); err != nil {
		issues = append(issues, config.Issue{
			Severity: config.SeverityError,
			Path:     path,
			Message:  err.Error(),
		})
	}
	if c.Kind == KindStrLength && ((c.Min != nil && *c.Min < 0) || (c.Max != nil && *c.Max < 0)) {
		issues = append(issues, config.Issue{
			Severity: config.SeverityWarning,
			Path:     path,
			Message:  "negative str_length bounds are treated as open",
		})
	}
	if !typeOK {
		return issues
	}

	numericType := col.Type == Int || col.Type == Float
	switch {
	case c.Kind.numeric() && !numericType:
		issues = append(issues, config.Issue{
			Severity: config.SeverityWarning,
			Path:     path + ".kind",
			Message:  fmt.Sprintf("%s compares numbers but column %q is declared %s", c.Kind, col.Name, col.Type),
		})
	case !c.Kind.numeric() && c.Kind != KindIsIn && c.Kind != KindNotIn && col.Type != String:
		issues = append(issues, config.Issue{
			Severity: config.SeverityWarning,
			Path:     path + ".kind",
			Message:  fmt.Sprintf("%s tests text but column %q is declared %s", c.Kind, col.Name, col.Type),
		})
	}
	return issues
}
