package testrundb

import (
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"gvm.dev/gvm/internal/rundb"
	"gvm.dev/gvm/internal/testutil"
)

// New opens an in-memory run database which is closed when the test ends.
func New(t testing.TB) *sqlx.DB {
	db, err := rundb.Open(testutil.Context(t), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}
