package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"fareqa/internal/datasource/httpds"
	"fareqa/internal/ingest"
	"fareqa/internal/metrics"
	"fareqa/internal/pipeline"
)

// main downloads the flight price dataset from Kaggle into the raw data
// directory (skipping the download when the file is already present) and
// prints an integrity report of the file as JSON.
func main() {
	var (
		cfgPath    string
		dirFlg     string
		datasetFlg string
		verifyOnly bool
	)
	flag.StringVar(&cfgPath, "config", "", "run config JSON path (defaults are used when empty)")
	flag.StringVar(&dirFlg, "dir", "", "download directory (overrides download.dir)")
	flag.StringVar(&datasetFlg, "dataset", "", "Kaggle dataset owner/name (overrides download.dataset)")
	flag.BoolVar(&verifyOnly, "verify-only", false, "only verify the existing file")
	timeout := flag.Duration("timeout", 10*time.Minute, "download timeout")
	flag.Parse()

	cfg, issues, err := pipeline.LoadConfig(cfgPath, os.Getenv)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if err != nil {
		fatalf("config: %v", err)
	}
	if dirFlg != "" {
		cfg.Download.Dir = dirFlg
	}
	if datasetFlg != "" {
		cfg.Download.Dataset = datasetFlg
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	flush, err := pipeline.SetupMetrics(cfg.Metrics)
	if err != nil {
		log.Printf("metrics: %v; metrics disabled", err)
	}
	defer flush()

	var d *ingest.Downloader
	if !verifyOnly {
		home, _ := os.UserHomeDir()
		creds, err := ingest.LoadCredentials(os.Getenv, home)
		if err != nil {
			if errors.Is(err, ingest.ErrNoCredentials) {
				log.Printf("set KAGGLE_USERNAME and KAGGLE_KEY or create ~/.kaggle/kaggle.json")
			}
			flush()
			fatalf("ingest: %v", err)
		}
		d = ingest.NewDownloader(cfg.Download, creds, httpds.Config{MaxRetries: 3})
	} else {
		d = ingest.NewDownloader(cfg.Download, ingest.Credentials{}, httpds.Config{})
	}

	path := d.Target()
	if !verifyOnly {
		start := time.Now()
		path, err = d.Download(ctx)
		metrics.RecordStep(cfg.Metrics.Job, "download", err, time.Since(start))
		if err != nil {
			flush()
			fatalf("%v", err)
		}
	}

	res, err := ingest.Verify(ctx, path, pipeline.Options(cfg.Input))
	if err != nil {
		flush()
		fatalf("%v", err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		fatalf("encode: %v", err)
	}
	if !res.Exists || !res.Readable {
		flush()
		os.Exit(1)
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
