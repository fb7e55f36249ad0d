// Package db provides connection helpers for the source and destination
// databases and shared bulk-load helpers.
package db

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/sells-group/geocode-etl/internal/etlerr"
)

// ParseIdentifier splits an optionally schema-qualified table name
// ("public.places") into a pgx identifier.
func ParseIdentifier(table string) pgx.Identifier {
	parts := strings.Split(table, ".")
	ident := make(pgx.Identifier, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			ident = append(ident, p)
		}
	}
	return ident
}

// CopyFrom bulk-inserts rows into a table using PostgreSQL COPY protocol.
func CopyFrom(ctx context.Context, q Querier, table pgx.Identifier, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	n, err := q.CopyFrom(ctx, table, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, etlerr.Wrapf(etlerr.ErrWrite, err, "db: COPY INTO %s", table.Sanitize())
	}

	return n, nil
}

// Truncate removes every row from table.
func Truncate(ctx context.Context, q Querier, table pgx.Identifier) error {
	sql := "TRUNCATE TABLE " + table.Sanitize()
	if _, err := q.Exec(ctx, sql); err != nil {
		return etlerr.Wrapf(etlerr.ErrWrite, err, "db: truncate %s", table.Sanitize())
	}
	return nil
}
