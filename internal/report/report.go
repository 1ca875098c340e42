// Package report renders validation results and data summaries as text,
// JSON and Excel workbooks. It only formats; every number it prints comes
// from the validation, stats and quality packages.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"fareqa/internal/quality"
	"fareqa/internal/validation"
)

const rule = "============================================================"

// Envelope is a validation result with the metadata of the run that
// produced it.
type Envelope struct {
	RunID       string            `json:"run_id"`
	Source      string            `json:"source"`
	Schema      string            `json:"schema"`
	GeneratedAt time.Time         `json:"generated_at"`
	Quality     quality.Score     `json:"quality"`
	Result      validation.Result `json:"result"`
}

// NewEnvelope stamps res with a fresh run ID.
func NewEnvelope(source, schemaName string, res validation.Result, q quality.Score, now time.Time) Envelope {
	return Envelope{
		RunID:       uuid.NewString(),
		Source:      source,
		Schema:      schemaName,
		GeneratedAt: now.UTC(),
		Quality:     q,
		Result:      res,
	}
}

// JSON writes env as JSON, indented when pretty is set.
func JSON(w io.Writer, env Envelope, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(env); err != nil {
		return fmt.Errorf("report: encode json: %w", err)
	}
	return nil
}

// TextOptions controls Text.
type TextOptions struct {
	// MaxErrors caps the failure cases listed. 0 lists all of them.
	MaxErrors int
}

// Text writes the human-readable validation report.
func Text(w io.Writer, env Envelope, opt TextOptions) error {
	p := newPrinter(w)
	res := env.Result

	p.line("")
	p.line(rule)
	p.line("Data Validation Report")
	p.line(rule)
	p.line("Run:           %s", env.RunID)
	if env.Source != "" {
		p.line("Source:        %s", env.Source)
	}
	if env.Schema != "" {
		p.line("Schema:        %s", env.Schema)
	}
	p.line("")
	p.line("Valid:         %v", res.IsValid)
	p.line("Total Rows:    %d", res.Stats.TotalRows)
	p.line("Total Columns: %d", res.Stats.TotalColumns)
	p.line("Duplicates:    %d", res.Stats.DuplicateRows)

	if n := len(res.Errors); n > 0 {
		shown := res.Errors
		if opt.MaxErrors > 0 && n > opt.MaxErrors {
			shown = shown[:opt.MaxErrors]
		}
		p.line("")
		if len(shown) < n {
			p.line("Errors: %d (showing first %d)", n, len(shown))
		} else {
			p.line("Errors: %d", n)
		}
		for _, f := range shown {
			p.line("   - %s", failure(f))
		}
		p.line("   by column:")
		for _, c := range sortedCounts(res.ErrorsByColumn()) {
			key := c.key
			if key == "" {
				key = "(unreadable rows)"
			}
			p.line("     %-30s %d", key, c.n)
		}
	}

	if len(res.Warnings) > 0 {
		p.line("")
		p.line("Warnings: %d", len(res.Warnings))
		for _, wn := range res.Warnings {
			p.line("   - [%s] %s: %s", wn.Severity, wn.Rule, wn.Message)
		}
	}

	if fs := res.Stats.FareStats; fs != nil {
		p.line("")
		p.line("Fare Statistics (BDT):")
		for _, kv := range []struct {
			k string
			v float64
		}{{"mean", fs.Mean}, {"median", fs.Median}, {"min", fs.Min}, {"max", fs.Max}, {"std", fs.Std}} {
			p.line("   %-7s %s", label(kv.k)+":", p.amount(kv.v))
		}
	}

	p.line("")
	p.line("Quality:")
	for _, c := range env.Quality.Status() {
		p.line("   %-13s %6.2f%%  %s", label(c.Name)+":", c.Value, mark(c.Pass))
	}
	p.line("")
	p.line(rule)
	return p.err
}

func failure(f validation.FailureCase) string {
	var b strings.Builder
	if f.Column != "" {
		fmt.Fprintf(&b, "%q ", f.Column)
	}
	if f.Row >= 0 {
		fmt.Fprintf(&b, "row %d ", f.Row)
	}
	fmt.Fprintf(&b, "[%s] %s", f.Check, f.Message)
	if f.Value != "" && f.Check != validation.CheckRowReadable {
		fmt.Fprintf(&b, " (value %q)", f.Value)
	}
	return b.String()
}

func mark(pass bool) string {
	if pass {
		return "OK"
	}
	return "WARN"
}

// label title-cases a stat name: "mean" becomes "Mean".
func label(s string) string { return cases.Title(language.English).String(s) }

// printer writes lines through an x/text message printer, which groups
// thousands ("57,000"), and keeps the first write error.
type printer struct {
	w   io.Writer
	p   *message.Printer
	err error
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w, p: message.NewPrinter(language.English)}
}

func (p *printer) line(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = p.p.Fprintf(p.w, format+"\n", args...)
}

func (p *printer) amount(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return p.p.Sprintf("%.2f", v)
}

type count struct {
	key string
	n   int
}

// sortedCounts orders m by count, then key.
func sortedCounts(m map[string]int) []count {
	out := make([]count, 0, len(m))
	for k, n := range m {
		out = append(out, count{k, n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].n != out[j].n {
			return out[i].n > out[j].n
		}
		return out[i].key < out[j].key
	})
	return out
}
