package pipeline

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/sells-group/geocode-etl/internal/etlerr"
)

// Queryer is satisfied by *sql.DB and *sql.Conn.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

var _ Queryer = (*sql.DB)(nil)

// SourceReader reads rows from the source database.
type SourceReader struct {
	db Queryer
}

// NewSourceReader creates a SourceReader over an open connection.
func NewSourceReader(db Queryer) *SourceReader {
	return &SourceReader{db: db}
}

// Fetch runs query and returns at most limit rows in source order. The
// cursor is closed as soon as the limit is reached.
func (s *SourceReader) Fetch(ctx context.Context, query string, limit int) ([]Row, error) {
	if limit <= 0 {
		return nil, etlerr.Errorf(etlerr.ErrQuery, "pipeline: fetch limit must be positive, got %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, etlerr.Wrapf(etlerr.ErrQuery, err, "pipeline: query %q", query)
	}
	defer rows.Close() //nolint:errcheck

	columns, err := rows.Columns()
	if err != nil {
		return nil, etlerr.Wrap(etlerr.ErrQuery, err, "pipeline: read columns")
	}

	var out []Row
	for len(out) < limit && rows.Next() {
		values := make([]any, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, etlerr.Wrapf(etlerr.ErrQuery, err, "pipeline: scan row %d", len(out))
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		out = append(out, Row{Columns: columns, Values: values})
	}
	if err := rows.Err(); err != nil {
		return nil, etlerr.Wrap(etlerr.ErrQuery, err, "pipeline: iterate rows")
	}

	zap.L().Info("fetched source rows",
		zap.String("component", "pipeline.source"),
		zap.Int("rows", len(out)),
		zap.Int("limit", limit),
	)
	return out, nil
}
