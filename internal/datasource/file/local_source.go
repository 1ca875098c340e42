// Package file opens datasets stored on the local disk.
package file

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// Local is a dataset file on disk. Paths ending in ".gz" are decompressed
// transparently.
type Local struct{ path string }

// NewLocal returns a Local bound to path. Nothing is touched until Open.
func NewLocal(path string) *Local { return &Local{path: path} }

// Path returns the configured path.
func (l *Local) Path() string { return l.path }

// Open returns a reader over the file contents. A canceled context fails
// before the filesystem is touched. Errors keep the os error in the chain, so
// errors.Is(err, os.ErrNotExist) works for callers.
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	if !strings.HasSuffix(strings.ToLower(l.path), ".gz") {
		return f, nil
	}
	zr, err := gzip.NewReader(bufio.NewReader(f))
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("gunzip %s: %w", l.path, err)
	}
	return &gzipFile{Reader: zr, f: f}, nil
}

// Stat reports size and modification time, used by the watcher and the
// integrity check.
func (l *Local) Stat(ctx context.Context) (os.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fi, err := os.Stat(l.path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", l.path, err)
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("stat %s: is a directory", l.path)
	}
	return fi, nil
}

type gzipFile struct {
	*gzip.Reader
	f *os.File
}

func (g *gzipFile) Close() error {
	zerr := g.Reader.Close()
	ferr := g.f.Close()
	if zerr != nil {
		return zerr
	}
	return ferr
}
