package sqlds

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

func init() {
	Register("postgres", openPostgres)
}

type pgQuerier struct{ pool *pgxpool.Pool }

func openPostgres(ctx context.Context, dsn string) (Querier, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &pgQuerier{pool: pool}, nil
}

func (q *pgQuerier) Close() { q.pool.Close() }

func (q *pgQuerier) Query(ctx context.Context, query string) ([][]string, error) {
	rows, err := q.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fds := rows.FieldDescriptions()
	header := make([]string, len(fds))
	for i, fd := range fds {
		header[i] = fd.Name
	}
	out := [][]string{header}

	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		rec := make([]string, len(vals))
		for i, v := range vals {
			rec[i] = text(v)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
