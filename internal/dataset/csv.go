package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"fareqa/internal/datasource"
	"fareqa/internal/datasource/file"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"golang.org/x/text/unicode/norm"
)

// ErrNotFound is returned by Load when the dataset path does not exist.
var ErrNotFound = errors.New("dataset not found")

// DefaultNullValues mirrors the tokens pandas.read_csv treats as missing.
var DefaultNullValues = []string{
	"", "#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
	"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None",
	"n/a", "nan", "null", "<nil>",
}

// utf8BOM is stripped from the first header cell if present.
const utf8BOM = "\uFEFF"

// logLimit caps how many skipped rows are logged; the rest are only counted.
const logLimit = 400

// Options configures how CSV text becomes a Snapshot. Zero values are
// replaced with defaults.
type Options struct {
	// Comma is the field delimiter. When zero, ',' is used.
	Comma rune

	// NullValues lists the cell values treated as null. When nil,
	// DefaultNullValues is used.
	NullValues []string

	// TrimSpace trims leading/trailing spaces from every cell before null
	// detection and type inference.
	TrimSpace bool

	// LazyQuotes relaxes quote handling in encoding/csv.
	LazyQuotes bool
}

func (o Options) nullValues() []string {
	if o.NullValues == nil {
		return DefaultNullValues
	}
	return o.NullValues
}

// Load opens the CSV file at path and reads it into a Snapshot. A missing file
// yields an error matching both ErrNotFound and os.ErrNotExist.
func Load(ctx context.Context, path string, opt Options) (*Snapshot, error) {
	snap, err := Open(ctx, file.NewLocal(path), opt)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return snap, nil
}

// Open reads CSV text from any datasource.Source (local file, HTTP URL).
func Open(ctx context.Context, src datasource.Source, opt Options) (*Snapshot, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return nil, err
	}
	defer rc.Close()
	return ReadCSV(rc, opt)
}

// ReadCSV reads a header line followed by data rows. Header names are kept
// exactly as written (a UTF-8 BOM is removed and text is NFC-normalised).
//
// Rows that encoding/csv cannot decode, or whose width differs from the
// header, are soft-failed: they are kept as all-null rows and listed in
// Snapshot.Rejected so that validation can report them against their row.
func ReadCSV(r io.Reader, opt Options) (*Snapshot, error) {
	cr := csv.NewReader(r)
	if opt.Comma != 0 {
		cr.Comma = opt.Comma
	}
	cr.LazyQuotes = opt.LazyQuotes
	cr.FieldsPerRecord = -1 // width is enforced below so bad rows can be kept

	h, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("read csv header: empty input")
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	headers := normalizeHeaders(h)

	records := [][]string{headers}
	var rejected []RejectedRow

	for row := 0; ; row++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			line := 0
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				line = pe.StartLine
			}
			if len(rejected) < logLimit {
				log.Printf("Skipping row %d: %v", line, err)
			}
			rejected = append(rejected, RejectedRow{Row: row, Line: line, Reason: err.Error()})
			records = append(records, make([]string, len(headers)))
			continue
		}

		if len(rec) != len(headers) {
			line, _ := cr.FieldPos(0)
			reason := fmt.Sprintf("incorrect number of fields (expected %d, got %d)", len(headers), len(rec))
			if len(rejected) < logLimit {
				log.Printf("Skipping row %d: %s", line, reason)
			}
			rejected = append(rejected, RejectedRow{Row: row, Line: line, Reason: reason})
			records = append(records, make([]string, len(headers)))
			continue
		}

		if opt.TrimSpace {
			for i := range rec {
				rec[i] = strings.TrimSpace(rec[i])
			}
		}
		records = append(records, rec)
	}

	if len(rejected) > logLimit {
		log.Printf("Skipped %d rows in total", len(rejected))
	}
	return build(records, rejected, opt)
}

// FromRecords builds a Snapshot from a header row followed by data rows, the
// shape produced by SQL sources and tests.
func FromRecords(records [][]string, opt Options) (*Snapshot, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("dataset: records must include a header row")
	}
	header := normalizeHeaders(records[0])
	for i, rec := range records[1:] {
		if len(rec) != len(header) {
			return nil, fmt.Errorf("dataset: row %d has %d fields, header has %d", i, len(rec), len(header))
		}
	}
	in := make([][]string, 0, len(records))
	in = append(in, header)
	in = append(in, records[1:]...)
	return build(in, nil, opt)
}

// build loads header+rows into gota. gota refuses frames without data rows,
// so a header-only input is assembled from empty string series instead.
func build(records [][]string, rejected []RejectedRow, opt Options) (*Snapshot, error) {
	header := records[0]
	if len(header) == 0 {
		return nil, fmt.Errorf("dataset: header has no columns")
	}

	// Null cells from rejected rows are "" and must stay null even when the
	// caller's NullValues omit the empty string.
	nulls := opt.nullValues()
	if len(rejected) > 0 && !contains(nulls, "") {
		nulls = append(append([]string{}, nulls...), "")
	}

	if len(records) == 1 {
		cols := make([]series.Series, len(header))
		for i, name := range header {
			cols[i] = series.New([]string{}, series.String, name)
		}
		df := dataframe.New(cols...)
		if df.Err != nil {
			return nil, fmt.Errorf("dataset: %w", df.Err)
		}
		return newSnapshot(df, rejected), nil
	}

	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.NaNValues(nulls),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("dataset: %w", df.Err)
	}
	return newSnapshot(df, rejected), nil
}

// normalizeHeaders strips a BOM from the first cell and NFC-normalises every
// name. Case and inner spacing are preserved: schema names must match exactly.
func normalizeHeaders(h []string) []string {
	out := make([]string, len(h))
	for i, c := range h {
		if i == 0 {
			c = strings.TrimPrefix(c, utf8BOM)
		}
		out[i] = norm.NFC.String(c)
	}
	return out
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
