package config

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced to users but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue is a single lint finding. Path is a dotted path into the document,
// e.g. "input.dsn" or "columns[3].checks[0].max".
type Issue struct {
	Severity IssueSeverity `json:"severity"`
	Path     string        `json:"path"`
	Message  string        `json:"message"`
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue has SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate performs static checks over a Run. It never mutates cfg; callers
// decide whether warnings are fatal.
func Validate(cfg Run) []Issue {
	var issues []Issue
	issues = append(issues, validateInput(cfg.Input)...)
	issues = append(issues, validateRules(cfg.Rules)...)
	issues = append(issues, validateOutput(cfg.Output)...)
	issues = append(issues, validateMetrics(cfg.Metrics)...)
	issues = append(issues, validateDownload(cfg.Download)...)
	if cfg.Runtime.Workers < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.workers",
			Message:  "workers must not be negative",
		})
	}
	if p := cfg.SchemaPath; p != "" {
		lower := strings.ToLower(p)
		if !strings.HasSuffix(lower, ".json") && !strings.HasSuffix(lower, ".yaml") && !strings.HasSuffix(lower, ".yml") {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "schema_path",
				Message:  fmt.Sprintf("schema file %q must end in .json, .yaml or .yml", p),
			})
		}
	}
	return issues
}

func validateInput(in Input) []Issue {
	var issues []Issue

	switch in.Kind {
	case "csv", "url":
		if strings.TrimSpace(in.Path) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "input.path",
				Message:  fmt.Sprintf("%s input requires a non-empty path", in.Kind),
			})
		} else if in.Kind == "url" {
			if u, err := url.Parse(in.Path); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Path:     "input.path",
					Message:  fmt.Sprintf("url input %q is not an http(s) URL", in.Path),
				})
			}
		}
	case "sqlite", "postgres", "mssql":
		if strings.TrimSpace(in.DSN) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "input.dsn",
				Message:  fmt.Sprintf("%s input requires a dsn", in.Kind),
			})
		}
		if strings.TrimSpace(in.Query) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "input.query",
				Message:  fmt.Sprintf("%s input requires a query", in.Kind),
			})
		}
	case "":
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "input.kind",
			Message:  "input.kind must not be empty",
		})
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "input.kind",
			Message:  fmt.Sprintf("unknown input kind %q (want csv, url, sqlite, postgres or mssql)", in.Kind),
		})
	}

	if in.Comma != "" && utf8.RuneCountInString(in.Comma) != 1 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "input.comma",
			Message:  fmt.Sprintf("comma must be a single character, got %q", in.Comma),
		})
	}
	if in.Kind != "csv" && in.Kind != "url" && (in.Comma != "" || in.TrimSpace) {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "input",
			Message:  "comma and trim_space only apply to csv and url inputs",
		})
	}
	return issues
}

func validateRules(r Rules) []Issue {
	var issues []Issue
	if r.FareTolerance != nil && *r.FareTolerance < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "rules.fare_tolerance",
			Message:  "fare_tolerance must not be negative",
		})
	}
	if r.OutlierHigh <= 0 || r.OutlierLow < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "rules",
			Message:  fmt.Sprintf("outlier factors must be positive (high=%v, low=%v)", r.OutlierHigh, r.OutlierLow),
		})
	} else if r.OutlierLow >= r.OutlierHigh {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "rules.outlier_low",
			Message:  fmt.Sprintf("outlier_low %v must be below outlier_high %v", r.OutlierLow, r.OutlierHigh),
		})
	}
	if r.OutlierHigh > 0 && r.OutlierHigh < 2 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "rules.outlier_high",
			Message:  fmt.Sprintf("outlier_high=%v flags fares close to the median as outliers", r.OutlierHigh),
		})
	}
	return issues
}

func validateOutput(o Output) []Issue {
	var issues []Issue
	switch o.Format {
	case "text", "json":
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "output.format",
			Message:  fmt.Sprintf("unknown output format %q (want text or json)", o.Format),
		})
	}
	if o.XLSX != "" && !strings.HasSuffix(strings.ToLower(o.XLSX), ".xlsx") {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "output.xlsx",
			Message:  fmt.Sprintf("%q does not end in .xlsx; Excel may refuse to open it", o.XLSX),
		})
	}
	if o.MaxErrors < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "output.max_errors",
			Message:  "max_errors must not be negative",
		})
	}
	return issues
}

func validateMetrics(m Metrics) []Issue {
	var issues []Issue
	switch m.Backend {
	case "", "none":
	case "pushgateway":
		if strings.TrimSpace(m.PushgatewayURL) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.pushgateway_url",
				Message:  "pushgateway backend requires pushgateway_url (or PUSHGATEWAY_URL)",
			})
		}
	case "datadog":
		if strings.TrimSpace(m.DatadogAddr) == "" {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "metrics.datadog_addr",
				Message:  "datadog_addr is empty; the client default (127.0.0.1:8125) will be used",
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "metrics.backend",
			Message:  fmt.Sprintf("unknown metrics backend %q (want pushgateway, datadog or none)", m.Backend),
		})
	}
	if m.Backend != "" && m.Backend != "none" && strings.TrimSpace(m.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "metrics.job",
			Message:  "job must not be empty; it is used for metrics labeling",
		})
	}
	return issues
}

func validateDownload(d Download) []Issue {
	var issues []Issue
	if d.Dataset != "" && strings.Count(d.Dataset, "/") != 1 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "download.dataset",
			Message:  fmt.Sprintf("dataset %q must look like owner/name", d.Dataset),
		})
	}
	if d.Dataset != "" && strings.TrimSpace(d.File) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "download.file",
			Message:  "download.file names the CSV expected inside the archive and must not be empty",
		})
	}
	return issues
}
