package auth_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"

	auth "github.com/goliatone/go-phone-auth"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// newTestDB opens a private in-memory database with the schema applied.
// A single connection keeps the memory database alive for the test.
func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, auth.ApplyMigrations(context.Background(), db))
	return db
}

func newTestRepos(t *testing.T, clock *testClock) auth.RepositoryManager {
	t.Helper()

	repos := auth.NewRepositoryManager(newTestDB(t), auth.WithUsersClock(clock.Now))
	require.NoError(t, repos.Validate())
	return repos
}

var errRowsAffected = errors.New("rows affected unavailable")

// newBrokenResultDB returns a database whose writes succeed but can not
// report how many rows they touched.
func newBrokenResultDB(t *testing.T) *bun.DB {
	t.Helper()

	db := bun.NewDB(sql.OpenDB(brokenResultConnector{}), sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })
	return db
}

type brokenResultConnector struct{}

func (c brokenResultConnector) Connect(context.Context) (driver.Conn, error) {
	return brokenResultConn{}, nil
}

func (c brokenResultConnector) Driver() driver.Driver {
	return brokenResultDriver{}
}

type brokenResultDriver struct{}

func (brokenResultDriver) Open(string) (driver.Conn, error) {
	return brokenResultConn{}, nil
}

type brokenResultConn struct{}

func (brokenResultConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("prepare not supported")
}

func (brokenResultConn) Close() error {
	return nil
}

func (brokenResultConn) Begin() (driver.Tx, error) {
	return nil, errors.New("transactions not supported")
}

func (brokenResultConn) ExecContext(context.Context, string, []driver.NamedValue) (driver.Result, error) {
	return brokenResult{}, nil
}

type brokenResult struct{}

func (brokenResult) LastInsertId() (int64, error) {
	return 0, errRowsAffected
}

func (brokenResult) RowsAffected() (int64, error) {
	return 0, errRowsAffected
}
