package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"fareqa/internal/datasource/httpds"
	"fareqa/internal/pipeline"
	"fareqa/internal/plot"
	"fareqa/internal/stats"
)

// main renders the fare charts of a flight price dataset as PNG files: the
// fare distribution, a box plot and the average fare per airline, class,
// season, booking source and stopovers.
func main() {
	var (
		cfgPath  string
		inputFlg string
		outFlg   string
		fareFlg  string
	)
	flag.StringVar(&cfgPath, "config", "", "run config JSON path (defaults are used when empty)")
	flag.StringVar(&inputFlg, "input", "", "CSV file to plot (overrides config and FAREQA_INPUT)")
	flag.StringVar(&outFlg, "out", "", "output directory (overrides output.plot_dir)")
	flag.StringVar(&fareFlg, "fare", stats.DefaultFareColumn, "fare column to plot")
	flag.Parse()

	cfg, _, err := pipeline.LoadConfig(cfgPath, os.Getenv)
	if err != nil && !errors.Is(err, pipeline.ErrInvalidConfig) {
		fatalf("config: %v", err)
	}
	if inputFlg != "" {
		cfg.Input.Kind = "csv"
		cfg.Input.Path = inputFlg
	}
	if outFlg != "" {
		cfg.Output.PlotDir = outFlg
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	snap, _, err := pipeline.Open(ctx, cfg.Input, httpds.Config{})
	if err != nil {
		fatalf("%v", err)
	}
	paths, err := plot.Render(snap, fareFlg, cfg.Output.PlotDir)
	for _, p := range paths {
		log.Printf("plots: wrote %s", p)
	}
	if err != nil {
		fatalf("plots: %v", err)
	}
	fmt.Printf("Visualizations saved to %s\n", cfg.Output.PlotDir)
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
