// Package sqlds reads a dataset from a SQL database with a single read-only
// query. The result is returned as text records (header first) so it can be
// fed to dataset.FromRecords and inferred exactly like a CSV file.
//
// Backends register themselves by kind: "sqlite" (modernc.org/sqlite),
// "postgres" (pgx pool) and "mssql" (go-mssqldb). Nothing is ever written.
package sqlds

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Config selects a backend and the query to run.
type Config struct {
	// Kind is the backend name: sqlite, postgres or mssql.
	Kind string

	// DSN is passed to the backend driver unchanged.
	DSN string

	// Query must be a single SELECT. Column names become dataset headers.
	Query string

	// Timeout bounds the whole fetch. Zero means 2 minutes.
	Timeout time.Duration
}

// Querier runs a query and returns header + rows as text. NULL becomes "".
type Querier interface {
	Query(ctx context.Context, query string) ([][]string, error)
	Close()
}

// Factory opens a Querier for a DSN.
type Factory func(ctx context.Context, dsn string) (Querier, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a backend available under kind. Registering a kind twice
// replaces the earlier factory.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[strings.ToLower(kind)] = f
}

// Kinds lists the registered backend names, sorted.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Fetch opens the backend, runs cfg.Query and closes the connection.
func Fetch(ctx context.Context, cfg Config) ([][]string, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("sqlds: dsn must not be empty")
	}
	if err := checkReadOnly(cfg.Query); err != nil {
		return nil, err
	}

	mu.RLock()
	f, ok := factories[strings.ToLower(cfg.Kind)]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("sqlds: unknown kind %q (known: %s)", cfg.Kind, strings.Join(Kinds(), ", "))
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	q, err := f(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlds: open %s: %w", cfg.Kind, err)
	}
	defer q.Close()

	recs, err := q.Query(ctx, cfg.Query)
	if err != nil {
		return nil, fmt.Errorf("sqlds: query: %w", err)
	}
	return recs, nil
}

// checkReadOnly accepts a single SELECT or WITH statement. It is a guard
// against configuration mistakes, not a SQL parser.
func checkReadOnly(query string) error {
	q := strings.TrimSpace(query)
	q = strings.TrimSuffix(q, ";")
	if q == "" {
		return fmt.Errorf("sqlds: query must not be empty")
	}
	if strings.Contains(q, ";") {
		return fmt.Errorf("sqlds: only a single statement is allowed")
	}
	first := strings.ToLower(strings.Fields(q)[0])
	if first != "select" && first != "with" {
		return fmt.Errorf("sqlds: only SELECT queries are allowed, got %q", first)
	}
	return nil
}
