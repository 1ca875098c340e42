package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"fareqa/internal/config"
	"fareqa/internal/dataset"
	"fareqa/internal/datasource/httpds"
	"fareqa/internal/metrics"
	"fareqa/internal/pipeline"
	"fareqa/internal/schema"
	"fareqa/internal/watch"
)

const exitInvalid = 2

// main validates a flight price dataset against a schema and the fare
// business rules, prints a report and optionally writes an Excel workbook.
//
// Exit status: 0 when the run completed (even with schema failures, unless
// -fail-on-invalid is set), 1 on configuration or I/O errors, 2 when
// -fail-on-invalid is set and the dataset is invalid.
func main() {
	var (
		cfgPath       string
		inputFlg      string
		schemaFlg     string
		formatFlg     string
		xlsxFlg       string
		maxErrorsFlg  int
		workersFlg    int
		failOnInvalid bool
		dumpSchema    bool
		inferSchema   bool
		watchFlg      bool
		metricsFlg    string
		pushURLFlg    string
	)

	flag.StringVar(&cfgPath, "config", "", "run config JSON path (defaults are used when empty)")
	flag.StringVar(&inputFlg, "input", "", "CSV file or http(s) URL to validate (overrides config and FAREQA_INPUT)")
	flag.StringVar(&schemaFlg, "schema", "", "schema file (.json, .yaml); the built-in flight schema when empty")
	flag.StringVar(&formatFlg, "format", "", "report format: text|json")
	flag.StringVar(&xlsxFlg, "xlsx", "", "also write the report as an Excel workbook to this path")
	flag.IntVar(&maxErrorsFlg, "max-errors", -1, "failure cases shown in text reports (0 shows all)")
	flag.IntVar(&workersFlg, "workers", -1, "columns checked in parallel (0 means one per CPU)")
	flag.BoolVar(&failOnInvalid, "fail-on-invalid", false, "exit with status 2 when the dataset is invalid")
	flag.BoolVar(&dumpSchema, "dump-schema", false, "print the effective schema and exit")
	flag.BoolVar(&inferSchema, "infer-schema", false, "print a schema inferred from the input and exit")
	flag.BoolVar(&watchFlg, "watch", false, "re-validate whenever the input file changes")
	flag.StringVar(&metricsFlg, "metrics-backend", "", "metrics backend: pushgateway|datadog|none (overrides METRICS_BACKEND)")
	flag.StringVar(&pushURLFlg, "pushgateway-url", "", "Pushgateway base URL (overrides PUSHGATEWAY_URL)")
	verbose := flag.Bool("v", false, "enable verbose logs")
	flag.Parse()

	if *verbose {
		log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	}

	cfg, _, err := pipeline.LoadConfig(cfgPath, os.Getenv)
	if err != nil && !errors.Is(err, pipeline.ErrInvalidConfig) {
		fatalf("config: %v", err)
	}

	// Flags take precedence over the environment and the config file.
	if inputFlg != "" {
		cfg.Input.Path = inputFlg
		cfg.Input.Kind = "csv"
		if strings.HasPrefix(inputFlg, "http://") || strings.HasPrefix(inputFlg, "https://") {
			cfg.Input.Kind = "url"
		}
	}
	if schemaFlg != "" {
		cfg.SchemaPath = schemaFlg
	}
	if formatFlg != "" {
		cfg.Output.Format = formatFlg
	}
	if xlsxFlg != "" {
		cfg.Output.XLSX = xlsxFlg
	}
	if maxErrorsFlg >= 0 {
		cfg.Output.MaxErrors = maxErrorsFlg
	}
	if workersFlg >= 0 {
		cfg.Runtime.Workers = workersFlg
	}
	if metricsFlg != "" {
		cfg.Metrics.Backend = metricsFlg
	}
	if pushURLFlg != "" {
		cfg.Metrics.PushgatewayURL = pushURLFlg
	}

	// Validated again so that flag overrides are checked too.
	hasError := false
	for _, iss := range config.Validate(cfg) {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
		if iss.Severity == config.SeverityError {
			hasError = true
		}
	}
	if hasError {
		log.Printf("Configuration is invalid")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if dumpSchema {
		s, _, err := pipeline.LoadSchema(cfg.SchemaPath)
		if err != nil {
			fatalf("schema: %v", err)
		}
		printSchema(s, cfg.Output.Format)
		return
	}
	if inferSchema {
		snap, _, err := pipeline.Open(ctx, cfg.Input, httpds.Config{})
		if err != nil {
			fatalf("%v", err)
		}
		printSchema(schema.Infer(snap), cfg.Output.Format)
		return
	}

	flush, err := pipeline.SetupMetrics(cfg.Metrics)
	if err != nil {
		log.Printf("metrics: %v; metrics disabled", err)
	}
	defer flush()

	if *verbose {
		log.Printf("run: input=%s:%s schema=%q format=%s workers=%d",
			cfg.Input.Kind, cfg.Input.Path, cfg.SchemaPath, cfg.Output.Format, cfg.Runtime.Workers)
	}

	start := time.Now()
	env, err := pipeline.Run(ctx, cfg, os.Stdout)
	if err != nil {
		flush()
		if errors.Is(err, dataset.ErrNotFound) {
			fatalf("input not found: %v", err)
		}
		fatalf("%v", err)
	}
	if *verbose {
		log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
	}

	if watchFlg {
		if cfg.Input.Kind != "csv" {
			fatalf("-watch needs a csv input, got %q", cfg.Input.Kind)
		}
		log.Printf("watching %s (Ctrl-C to stop)", cfg.Input.Path)
		err := watch.New(cfg.Input.Path, 0).Run(ctx, func(ctx context.Context) error {
			_, err := pipeline.Run(ctx, cfg, os.Stdout)
			if ferr := metrics.Flush(); ferr != nil {
				log.Printf("metrics: flush error: %v", ferr)
			}
			return err
		})
		if err != nil {
			flush()
			fatalf("%v", err)
		}
		return
	}

	if failOnInvalid && !env.Result.IsValid {
		flush()
		os.Exit(exitInvalid)
	}
}

func printSchema(s schema.Schema, format string) {
	if err := writeSchema(os.Stdout, s, format); err != nil {
		fatalf("%v", err)
	}
}

// writeSchema encodes s as JSON when format is "json" and as YAML otherwise.
func writeSchema(w io.Writer, s schema.Schema, format string) error {
	f := schema.YAML
	if format == "json" {
		f = schema.JSON
	}
	b, err := schema.Marshal(s, f)
	if err != nil {
		return fmt.Errorf("encode schema: %w", err)
	}
	if _, err := w.Write(b); err != nil {
		return fmt.Errorf("write schema: %w", err)
	}
	return nil
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
