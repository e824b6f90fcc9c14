package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFromSchema_EmptyRows(t *testing.T) {
	n, err := CopyFromSchema(context.TODO(), nil, "disagg", "test_table", []string{"a"}, [][]any{})
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyFromSchema_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"disagg", "test_table"}, []string{"a", "b"}).WillReturnResult(5)

	rows := [][]any{{1, "x"}, {2, "y"}, {3, "z"}, {4, "w"}, {5, "v"}}
	n, err := CopyFromSchema(context.Background(), mock, "disagg", "test_table", []string{"a", "b"}, rows)
	assert.NoError(t, err)
	assert.Equal(t, int64(5), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFromSchema_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"disagg", "test_table"}, []string{"a"}).WillReturnError(fmt.Errorf("permission denied"))

	rows := [][]any{{1}}
	_, err = CopyFromSchema(context.Background(), mock, "disagg", "test_table", []string{"a"}, rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY INTO disagg.test_table")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFromSchema_InTransaction(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectCopyFrom(pgx.Identifier{"disagg", "run_shortfall"}, []string{"run_id", "rule"}).WillReturnResult(2)
	mock.ExpectCommit()

	ctx := context.Background()
	tx, err := mock.Begin(ctx)
	require.NoError(t, err)

	n, err := CopyFromSchema(ctx, tx, "disagg", "run_shortfall", []string{"run_id", "rule"}, [][]any{{"r1", "a"}, {"r1", "b"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	require.NoError(t, tx.Commit(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyInBatches(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := pgx.Identifier{"disagg", "assignments"}
	mock.ExpectCopyFrom(id, []string{"a"}).WillReturnResult(2)
	mock.ExpectCopyFrom(id, []string{"a"}).WillReturnResult(2)
	mock.ExpectCopyFrom(id, []string{"a"}).WillReturnResult(1)

	rows := [][]any{{1}, {2}, {3}, {4}, {5}}
	n, err := CopyInBatches(context.Background(), mock, "disagg", "assignments", []string{"a"}, rows, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyInBatches_StopsOnError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := pgx.Identifier{"disagg", "assignments"}
	mock.ExpectCopyFrom(id, []string{"a"}).WillReturnResult(2)
	mock.ExpectCopyFrom(id, []string{"a"}).WillReturnError(fmt.Errorf("disk full"))

	rows := [][]any{{1}, {2}, {3}, {4}, {5}}
	n, err := CopyInBatches(context.Background(), mock, "disagg", "assignments", []string{"a"}, rows, 2)
	require.Error(t, err)
	assert.Equal(t, int64(2), n)
	assert.Contains(t, err.Error(), "batch starting at row 2")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyInBatches_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n, err := CopyInBatches(ctx, nil, "disagg", "assignments", []string{"a"}, [][]any{{1}}, 0)
	require.Error(t, err)
	assert.Zero(t, n)
}
