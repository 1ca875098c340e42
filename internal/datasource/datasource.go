// Package datasource defines where dataset bytes come from. Implementations
// live in the sub-packages: file (local disk), httpds (HTTP with retry) and
// sqlds (read-only SQL queries, which yield records instead of bytes).
package datasource

import (
	"context"
	"io"
)

// Source opens a stream of delimited text, header line first.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}
