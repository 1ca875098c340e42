// Package config defines the JSON-serialisable run configuration shared by
// the fareqa commands.
//
// Values are resolved in this order, highest first: command-line flags,
// environment variables (ApplyEnv), the config file (Load), Default().
//
// Example (trimmed):
//
//	{
//	  "input":   { "kind": "csv", "path": "data/01-raw/Flight_Price_Dataset_of_Bangladesh.csv" },
//	  "schema_path": "configs/flight_schema.yaml",
//	  "rules":   { "fare_tolerance": 1.0, "outlier_high": 10, "outlier_low": 0.1 },
//	  "output":  { "format": "json", "xlsx": "reports/validation.xlsx" },
//	  "metrics": { "backend": "pushgateway", "pushgateway_url": "http://localhost:9091" }
//	}
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Run is the top-level object decoded from a config file.
type Run struct {
	Input Input `json:"input"`

	// SchemaPath points to a .json/.yaml schema. Empty means the built-in
	// flight schema.
	SchemaPath string `json:"schema_path"`

	Rules    Rules    `json:"rules"`
	Output   Output   `json:"output"`
	Metrics  Metrics  `json:"metrics"`
	Download Download `json:"download"`
	Runtime  Runtime  `json:"runtime"`
}

// Input selects where the dataset comes from.
type Input struct {
	// Kind is one of csv, url, sqlite, postgres, mssql.
	Kind string `json:"kind"`

	// Path is the CSV file (csv) or the URL (url).
	Path string `json:"path"`

	// DSN and Query are used by the SQL kinds.
	DSN   string `json:"dsn"`
	Query string `json:"query"`

	// Comma is the CSV delimiter, one character. Empty means ",".
	Comma string `json:"comma"`

	// NullValues replaces the default null tokens when non-empty.
	NullValues []string `json:"null_values"`

	TrimSpace bool `json:"trim_space"`
}

// Rules holds the business-rule parameters.
type Rules struct {
	// FareTolerance is nil when unset so that an explicit 0 is kept.
	FareTolerance *float64 `json:"fare_tolerance,omitempty"`
	OutlierHigh   float64 `json:"outlier_high"`
	OutlierLow    float64 `json:"outlier_low"`
}

// Output controls reports.
type Output struct {
	// Format is text or json.
	Format string `json:"format"`

	// XLSX, when set, is the path of an Excel workbook report.
	XLSX string `json:"xlsx"`

	// PlotDir receives the PNG charts.
	PlotDir string `json:"plot_dir"`

	// MaxErrors caps the failure cases printed in text reports. 0 prints all.
	MaxErrors int `json:"max_errors"`
}

// Metrics selects a metrics backend.
type Metrics struct {
	// Backend is pushgateway, datadog or none.
	Backend        string `json:"backend"`
	PushgatewayURL string `json:"pushgateway_url"`
	DatadogAddr    string `json:"datadog_addr"`
	Job            string `json:"job"`
}

// Download configures the Kaggle downloader.
type Download struct {
	Dataset string `json:"dataset"`
	Dir     string `json:"dir"`
	File    string `json:"file"`
	BaseURL string `json:"base_url"`
}

// Runtime controls concurrency.
type Runtime struct {
	// Workers bounds parallel column checks. 0 means one per CPU.
	Workers int `json:"workers"`
}

// Default returns the configuration used when nothing else is given.
func Default() Run {
	return Run{
		Input: Input{
			Kind: "csv",
			Path: "data/01-raw/Flight_Price_Dataset_of_Bangladesh.csv",
		},
		Rules: Rules{FareTolerance: Float(1.0), OutlierHigh: 10, OutlierLow: 0.1},
		Output: Output{
			Format:    "text",
			PlotDir:   "reports/figures",
			MaxErrors: 5,
		},
		Metrics: Metrics{Backend: "none", Job: "fareqa"},
		Download: Download{
			Dataset: "farhanaaktermukarrima/flight-price-dataset-of-bangladesh",
			Dir:     "data/01-raw",
			File:    "Flight_Price_Dataset_of_Bangladesh.csv",
			BaseURL: "https://www.kaggle.com",
		},
	}
}

// Load decodes the JSON file at path on top of Default(), so a file only
// needs the keys it changes. Unknown keys are rejected.
func Load(path string) (Run, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides cfg with the environment variables that are set:
// FAREQA_INPUT, FAREQA_SCHEMA, FAREQA_WORKERS, METRICS_BACKEND,
// PUSHGATEWAY_URL, DD_AGENT_ADDR. getenv is usually os.Getenv.
func ApplyEnv(cfg *Run, getenv func(string) string) error {
	if v := getenv("FAREQA_INPUT"); v != "" {
		cfg.Input.Path = v
	}
	if v := getenv("FAREQA_SCHEMA"); v != "" {
		cfg.SchemaPath = v
	}
	if v := getenv("FAREQA_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: FAREQA_WORKERS: %w", err)
		}
		cfg.Runtime.Workers = n
	}
	if v := getenv("METRICS_BACKEND"); v != "" {
		cfg.Metrics.Backend = strings.ToLower(v)
	}
	if v := getenv("PUSHGATEWAY_URL"); v != "" {
		cfg.Metrics.PushgatewayURL = v
	}
	if v := getenv("DD_AGENT_ADDR"); v != "" {
		cfg.Metrics.DatadogAddr = v
	}
	return nil
}

// CommaRune returns the configured delimiter, or 0 for the default.
func (in Input) CommaRune() rune {
	for _, r := range in.Comma {
		return r
	}
	return 0
}

// Float returns a pointer to v, for optional settings such as
// Rules.FareTolerance.
func Float(v float64) *float64 { return &v }
