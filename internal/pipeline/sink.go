package pipeline

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/sells-group/geocode-etl/internal/db"
	"github.com/sells-group/geocode-etl/internal/etlerr"
	"github.com/sells-group/geocode-etl/pkg/geocode"
)

// Load methods.
const (
	MethodInsert = "insert" // multi-row INSERT, geo as EWKT text
	MethodCopy   = "copy"   // COPY protocol, geo as EWKB
)

const defaultInsertChunk = 1000

// SinkWriter clears and fills the destination table.
type SinkWriter struct {
	pool      db.Pool
	method    string
	chunkSize int
}

// NewSinkWriter creates a SinkWriter. An unknown method falls back to insert.
func NewSinkWriter(pool db.Pool, method string) *SinkWriter {
	if method != MethodCopy {
		method = MethodInsert
	}
	return &SinkWriter{pool: pool, method: method, chunkSize: defaultInsertChunk}
}

// Truncate removes every row from table. It is not rolled back if a later
// step fails.
func (s *SinkWriter) Truncate(ctx context.Context, table string) error {
	ident, err := tableIdent(table)
	if err != nil {
		return err
	}
	if err := db.Truncate(ctx, s.pool, ident); err != nil {
		return err
	}
	zap.L().Info("truncated destination table", zap.String("component", "pipeline.sink"), zap.String("table", table))
	return nil
}

// Insert writes rows into table and returns the number written.
func (s *SinkWriter) Insert(ctx context.Context, rows []AugmentedRow, table string) (int64, error) {
	ident, err := tableIdent(table)
	if err != nil {
		return 0, err
	}
	return s.write(ctx, s.pool, ident, rows)
}

// Load truncates table and inserts rows. A failure after the truncate leaves
// the table empty; use LoadAtomic to keep the previous contents instead.
func (s *SinkWriter) Load(ctx context.Context, rows []AugmentedRow, table string) (int64, error) {
	if err := s.Truncate(ctx, table); err != nil {
		return 0, err
	}
	return s.Insert(ctx, rows, table)
}

// LoadAtomic truncates table and inserts rows inside one transaction.
func (s *SinkWriter) LoadAtomic(ctx context.Context, rows []AugmentedRow, table string) (int64, error) {
	ident, err := tableIdent(table)
	if err != nil {
		return 0, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, etlerr.Wrap(etlerr.ErrWrite, err, "pipeline: begin load tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := db.Truncate(ctx, tx, ident); err != nil {
		return 0, err
	}
	n, err := s.write(ctx, tx, ident, rows)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, etlerr.Wrap(etlerr.ErrWrite, err, "pipeline: commit load tx")
	}

	zap.L().Info("replaced destination table",
		zap.String("component", "pipeline.sink"),
		zap.String("table", table),
		zap.Int64("rows", n),
	)
	return n, nil
}

func (s *SinkWriter) write(ctx context.Context, q db.Querier, ident pgx.Identifier, rows []AugmentedRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if s.method == MethodCopy {
		return copyRows(ctx, q, ident, rows)
	}
	return s.insertRows(ctx, q, ident, rows)
}

// insertRows issues one multi-row INSERT per chunk.
func (s *SinkWriter) insertRows(ctx context.Context, q db.Querier, ident pgx.Identifier, rows []AugmentedRow) (int64, error) {
	log := zap.L().With(zap.String("component", "pipeline.sink"), zap.String("table", ident.Sanitize()))

	var total int64
	for i := 0; i < len(rows); i += s.chunkSize {
		end := min(i+s.chunkSize, len(rows))

		b := squirrel.Insert(ident.Sanitize()).
			Columns(SinkColumns...).
			PlaceholderFormat(squirrel.Dollar)
		for _, r := range rows[i:end] {
			b = b.Values(r.StreetAddress, r.Geo)
		}
		sql, args, err := b.ToSql()
		if err != nil {
			return total, etlerr.Wrap(etlerr.ErrWrite, err, "pipeline: build insert")
		}

		tag, err := q.Exec(ctx, sql, args...)
		if err != nil {
			return total, etlerr.Wrapf(etlerr.ErrWrite, err, "pipeline: insert into %s (rows %d-%d)", ident.Sanitize(), i, end)
		}
		total += tag.RowsAffected()

		log.Debug("chunk inserted", zap.Int("chunk_start", i), zap.Int("chunk_end", end))
	}
	return total, nil
}

// copyRows streams rows through COPY with the point encoded as EWKB.
func copyRows(ctx context.Context, q db.Querier, ident pgx.Identifier, rows []AugmentedRow) (int64, error) {
	data := make([][]any, len(rows))
	for i, r := range rows {
		wkb, err := geocode.EncodeEWKB(r.Coordinate)
		if err != nil {
			return 0, etlerr.Wrapf(etlerr.ErrWrite, err, "pipeline: encode row %d", i)
		}
		data[i] = []any{r.StreetAddress, wkb}
	}
	return db.CopyFrom(ctx, q, ident, SinkColumns, data)
}

func tableIdent(table string) (pgx.Identifier, error) {
	ident := db.ParseIdentifier(table)
	if len(ident) == 0 {
		return nil, etlerr.New(etlerr.ErrWrite, "pipeline: destination table is empty")
	}
	return ident, nil
}
