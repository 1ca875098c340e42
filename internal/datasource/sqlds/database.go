package sqlds

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strconv"
	"time"

	"github.com/microsoft/go-mssqldb/msdsn"

	_ "github.com/microsoft/go-mssqldb" // registers "sqlserver"
	_ "modernc.org/sqlite"              // registers "sqlite"
)

func init() {
	Register("sqlite", func(ctx context.Context, dsn string) (Querier, error) {
		return openDB(ctx, "sqlite", dsn)
	})
	Register("mssql", func(ctx context.Context, dsn string) (Querier, error) {
		if _, err := msdsn.Parse(dsn); err != nil {
			return nil, fmt.Errorf("mssql dsn: %w", err)
		}
		return openDB(ctx, "sqlserver", dsn)
	})
}

// dbQuerier serves the database/sql backends.
type dbQuerier struct{ db *sql.DB }

func openDB(ctx context.Context, driver, dsn string) (*dbQuerier, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &dbQuerier{db: db}, nil
}

func (q *dbQuerier) Close() { _ = q.db.Close() }

func (q *dbQuerier) Query(ctx context.Context, query string) ([][]string, error) {
	rows, err := q.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	out := [][]string{cols}

	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		rec := make([]string, len(cols))
		for i, v := range vals {
			rec[i] = text(v)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// text renders a driver value the way it would appear in a CSV export.
func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format("2006-01-02 15:04:05")
	case driver.Valuer:
		dv, err := x.Value()
		if err != nil {
			return fmt.Sprint(x)
		}
		if _, again := dv.(driver.Valuer); again {
			return fmt.Sprint(dv)
		}
		return text(dv)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
