package schema

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/hisab/hisab-ledger/internal/platform/db"
	"github.com/hisab/hisab-ledger/internal/shared"
)

// fakeExecer mimics a store where every table and column already exists
// after the first run.
type fakeExecer struct {
	columns  map[string]bool
	executed []string
	failOn   string
}

func newFakeExecer() *fakeExecer {
	return &fakeExecer{columns: make(map[string]bool)}
}

func (f *fakeExecer) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.executed = append(f.executed, sql)
	if f.failOn != "" && strings.Contains(sql, f.failOn) {
		return pgconn.CommandTag{}, errors.New("disk full")
	}
	if strings.HasPrefix(sql, "ALTER TABLE") {
		fields := strings.Fields(sql)
		key := fields[2] + "." + fields[5]
		if f.columns[key] {
			return pgconn.CommandTag{}, &pgconn.PgError{Code: db.CodeDuplicateColumn}
		}
		f.columns[key] = true
		return pgconn.NewCommandTag("ALTER TABLE"), nil
	}
	return pgconn.NewCommandTag("CREATE TABLE"), nil
}

func TestEnsureSchemaIsIdempotent(t *testing.T) {
	exec := newFakeExecer()
	mgr := NewManager(exec, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, mgr.EnsureSchema(ctx))
	}
	require.Len(t, exec.columns, 6)
	require.True(t, exec.columns["transactions.updated_at"])
}

func TestEnsureSchemaCreateFailureIsFatal(t *testing.T) {
	exec := newFakeExecer()
	exec.failOn = "CREATE TABLE IF NOT EXISTS customers"
	err := NewManager(exec, nil).EnsureSchema(context.Background())
	require.ErrorIs(t, err, shared.ErrStorage)
	for _, stmt := range exec.executed {
		require.False(t, strings.HasPrefix(stmt, "ALTER TABLE"), "migrations must not run after a failed create")
	}
}

func TestEnsureSchemaMigrationFailureSurfaces(t *testing.T) {
	exec := newFakeExecer()
	exec.failOn = "ALTER TABLE customers"
	err := NewManager(exec, nil).EnsureSchema(context.Background())
	require.ErrorIs(t, err, shared.ErrStorage)
}
