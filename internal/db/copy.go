// Package db provides Postgres connection and bulk COPY helpers.
package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// DefaultBatchSize is the number of rows sent per COPY when the caller does
// not choose one.
const DefaultBatchSize = 10000

// CopyFromSchema bulk-inserts rows into a schema-qualified table using
// PostgreSQL COPY protocol. pool may be a pgx.Tx, which keeps the copy inside
// the caller's transaction.
func CopyFromSchema(ctx context.Context, pool Pool, schema, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	n, err := pool.CopyFrom(ctx, pgx.Identifier{schema, table}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, eris.Wrapf(err, "db: COPY INTO %s.%s", schema, table)
	}
	return n, nil
}

// CopyInBatches splits rows into COPY statements of at most batchSize rows
// and returns the total inserted. It stops at the first failing batch;
// earlier batches stay committed.
func CopyInBatches(ctx context.Context, pool Pool, schema, table string, columns []string, rows [][]any, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	var total int64
	for start := 0; start < len(rows); start += batchSize {
		if err := ctx.Err(); err != nil {
			return total, eris.Wrap(err, "db: copy cancelled")
		}
		end := min(start+batchSize, len(rows))
		n, err := CopyFromSchema(ctx, pool, schema, table, columns, rows[start:end])
		if err != nil {
			return total, eris.Wrapf(err, "db: batch starting at row %d", start)
		}
		total += n
	}
	return total, nil
}
