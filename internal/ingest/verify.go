package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"fareqa/internal/dataset"
	"fareqa/internal/datasource/file"
)

// SampleRows is how many data rows Verify parses to decide readability.
const SampleRows = 5

// Integrity describes a downloaded file.
type Integrity struct {
	Path          string  `json:"path"`
	Exists        bool    `json:"file_exists"`
	SizeMB        float64 `json:"file_size_mb"`
	SHA256        string  `json:"file_hash"`
	Readable      bool    `json:"is_readable"`
	SampleRows    int     `json:"sample_rows"`
	SampleColumns int     `json:"sample_columns"`
	Error         string  `json:"error,omitempty"`
}

// Verify hashes the file at path and parses its first rows as CSV. A file
// that exists but cannot be parsed is reported with Readable false and a
// nil error; only I/O failures while hashing return an error.
func Verify(ctx context.Context, path string, opt dataset.Options) (Integrity, error) {
	out := Integrity{Path: path}
	fi, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return out, nil
	}
	if err != nil {
		return out, fmt.Errorf("ingest: %w", err)
	}
	out.Exists = true
	out.SizeMB = math.Round(float64(fi.Size())/(1024*1024)*100) / 100

	sum, err := hashFile(path)
	if err != nil {
		return out, fmt.Errorf("ingest: hash %s: %w", path, err)
	}
	out.SHA256 = sum

	snap, err := sample(ctx, path, opt)
	if err != nil {
		out.Error = err.Error()
		return out, nil
	}
	out.Readable = true
	out.SampleRows = snap.Nrow()
	out.SampleColumns = snap.Ncol()
	return out, nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func sample(ctx context.Context, path string, opt dataset.Options) (*dataset.Snapshot, error) {
	rc, err := file.NewLocal(path).Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	cr := csv.NewReader(rc)
	if opt.Comma != 0 {
		cr.Comma = opt.Comma
	}
	cr.LazyQuotes = opt.LazyQuotes
	var records [][]string
	for len(records) <= SampleRows {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, errors.New("empty file")
	}
	return dataset.FromRecords(records, opt)
}
