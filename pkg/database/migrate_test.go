package database

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockExecer struct {
	execFn func(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	sqls   []string
}

func (m *mockExecer) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	m.sqls = append(m.sqls, sql)
	if m.execFn != nil {
		return m.execFn(ctx, sql, arguments...)
	}
	return pgconn.NewCommandTag("CREATE TABLE"), nil
}

func TestMigrate_AppliesInOrder(t *testing.T) {
	fsys := fstest.MapFS{
		"002_indexes.sql": {Data: []byte("CREATE INDEX b")},
		"001_init.sql":    {Data: []byte("CREATE TABLE a")},
		"README.md":       {Data: []byte("not sql")},
		"old/000.sql":     {Data: []byte("ignored: nested")},
	}
	db := &mockExecer{}

	err := Migrate(context.Background(), db, fsys)

	require.NoError(t, err)
	assert.Equal(t, []string{"CREATE TABLE a", "CREATE INDEX b"}, db.sqls)
}

func TestMigrate_StopsOnError(t *testing.T) {
	fsys := fstest.MapFS{
		"001_init.sql": {Data: []byte("CREATE TABLE a")},
		"002_bad.sql":  {Data: []byte("CREATE TABLEE")},
		"003_more.sql": {Data: []byte("CREATE TABLE c")},
	}
	db := &mockExecer{
		execFn: func(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
			if sql == "CREATE TABLEE" {
				return pgconn.CommandTag{}, errors.New("syntax error")
			}
			return pgconn.NewCommandTag("CREATE TABLE"), nil
		},
	}

	err := Migrate(context.Background(), db, fsys)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "apply migration 002_bad.sql")
	assert.Len(t, db.sqls, 2)
}

func TestMigrate_Empty(t *testing.T) {
	db := &mockExecer{}

	require.NoError(t, Migrate(context.Background(), db, fstest.MapFS{}))
	assert.Empty(t, db.sqls)
}
