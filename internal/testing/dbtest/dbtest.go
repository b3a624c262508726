// Package dbtest opens a PostgreSQL pool for integration tests.
package dbtest

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hisab/hisab-ledger/internal/platform/db"
	"github.com/hisab/hisab-ledger/internal/schema"
)

// EnvDSN names the variable holding the integration database DSN.
const EnvDSN = "HISAB_TEST_PG_DSN"

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("HISAB_TEST_MODE") == "" {
			_ = os.Setenv("HISAB_TEST_MODE", "1")
		}
	})
}

// Pool returns a pool against a freshly truncated schema. The test is
// skipped when EnvDSN is unset.
func Pool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv(EnvDSN)
	if dsn == "" {
		t.Skipf("%s not set", EnvDSN)
	}
	ctx := context.Background()
	pool, err := db.New(ctx, dsn)
	if err != nil {
		t.Fatalf("open pool: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := schema.NewManager(pool, nil).EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	if _, err := pool.Exec(ctx, "TRUNCATE "+strings.Join(schema.Tables, ", ")+" RESTART IDENTITY"); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return pool
}
