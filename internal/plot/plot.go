// Package plot renders fare charts as images with gonum/plot. The output
// format follows the file extension (.png, .svg, .pdf).
package plot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"fareqa/internal/dataset"
	"fareqa/internal/stats"
)

// ErrNoData is returned when a chart has nothing to draw.
var ErrNoData = errors.New("plot: no data")

// Bins is the number of histogram bins.
const Bins = 50

var (
	width  = 8 * vg.Inch
	height = 5 * vg.Inch
)

func values(snap *dataset.Snapshot, column string) (plotter.Values, error) {
	col, ok := snap.Column(column)
	if !ok {
		return nil, fmt.Errorf("plot: no column %q", column)
	}
	if !col.Numeric() {
		return nil, fmt.Errorf("plot: column %q is %s, not numeric", column, col.Type())
	}
	v := col.Floats()
	if len(v) == 0 {
		return nil, fmt.Errorf("%w in %q", ErrNoData, column)
	}
	return plotter.Values(v), nil
}

// FareDistribution draws a histogram of column.
func FareDistribution(snap *dataset.Snapshot, column, path string) error {
	v, err := values(snap, column)
	if err != nil {
		return err
	}
	h, err := plotter.NewHist(v, Bins)
	if err != nil {
		return fmt.Errorf("plot: histogram: %w", err)
	}
	p := plot.New()
	p.Title.Text = "Distribution of " + column
	p.X.Label.Text = column
	p.Y.Label.Text = "Frequency"
	p.Add(h)
	return save(p, path)
}

// FareBox draws a box plot of column.
func FareBox(snap *dataset.Snapshot, column, path string) error {
	v, err := values(snap, column)
	if err != nil {
		return err
	}
	b, err := plotter.NewBoxPlot(vg.Points(60), 0, v)
	if err != nil {
		return fmt.Errorf("plot: box plot: %w", err)
	}
	p := plot.New()
	p.Title.Text = "Box Plot of " + column
	p.Y.Label.Text = column
	p.Add(b)
	p.NominalX(column)
	return save(p, path)
}

// AverageFareBy draws the mean fare per value of category, highest first.
func AverageFareBy(snap *dataset.Snapshot, category, fare, path string) error {
	groups, err := stats.GroupFare(snap, category, fare)
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		return fmt.Errorf("%w for %q by %q", ErrNoData, fare, category)
	}
	means := make(plotter.Values, len(groups))
	names := make([]string, len(groups))
	for i, g := range groups {
		means[i] = g.Mean
		names[i] = g.Key
	}
	bars, err := plotter.NewBarChart(means, vg.Points(20))
	if err != nil {
		return fmt.Errorf("plot: bar chart: %w", err)
	}
	p := plot.New()
	p.Title.Text = "Average " + fare + " by " + category
	p.Y.Label.Text = "Mean " + fare
	p.Add(bars)
	p.NominalX(names...)
	return save(p, path)
}

func save(p *plot.Plot, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("plot: %w", err)
		}
	}
	if err := p.Save(width, height, path); err != nil {
		return fmt.Errorf("plot: save %s: %w", path, err)
	}
	return nil
}

// Slug turns a column name into a file name stem: "Total Fare (BDT)"
// becomes "total_fare_bdt".
func Slug(name string) string {
	lower := cases.Lower(language.Und).String(name)
	var b strings.Builder
	sep := false
	for _, r := range lower {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if sep && b.Len() > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
			sep = false
			continue
		}
		sep = true
	}
	return b.String()
}

// Categories are drawn by Render when present.
var Categories = []string{"Airline", "Class", "Seasonality", "Booking Source", "Stopovers"}

// Render draws the standard chart set for fare into dir as PNG files and
// returns the paths written. Charts whose columns are missing are skipped.
func Render(snap *dataset.Snapshot, fare, dir string) ([]string, error) {
	var written []string
	stem := Slug(fare)

	dist := filepath.Join(dir, stem+"_distribution.png")
	if err := FareDistribution(snap, fare, dist); err != nil {
		return written, err
	}
	written = append(written, dist)

	box := filepath.Join(dir, stem+"_boxplot.png")
	if err := FareBox(snap, fare, box); err != nil {
		return written, err
	}
	written = append(written, box)

	for _, c := range Categories {
		if !snap.Has(c) {
			continue
		}
		path := filepath.Join(dir, "avg_"+stem+"_by_"+Slug(c)+".png")
		err := AverageFareBy(snap, c, fare, path)
		if errors.Is(err, ErrNoData) {
			continue
		}
		if err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}
