// Package schema creates and migrates the ledger tables.
package schema

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hisab/hisab-ledger/internal/platform/db"
	"github.com/hisab/hisab-ledger/internal/shared"
)

// Execer runs a single statement. *pgxpool.Pool satisfies it.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const epochNow = `(EXTRACT(EPOCH FROM now())::bigint)`

var createStatements = []string{
	`CREATE TABLE IF NOT EXISTS products (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL,
	sale_price_cents BIGINT NOT NULL,
	quantity INTEGER NOT NULL,
	created_at BIGINT NOT NULL DEFAULT ` + epochNow + `,
	updated_at BIGINT NOT NULL DEFAULT ` + epochNow + `
)`,
	`CREATE TABLE IF NOT EXISTS customers (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL,
	phone_number TEXT,
	outstanding_balance_cents BIGINT NOT NULL DEFAULT 0,
	created_at BIGINT NOT NULL DEFAULT ` + epochNow + `,
	updated_at BIGINT NOT NULL DEFAULT ` + epochNow + `
)`,
	`CREATE TABLE IF NOT EXISTS transactions (
	id BIGSERIAL PRIMARY KEY,
	timestamp BIGINT NOT NULL,
	total_amount_cents BIGINT NOT NULL,
	is_credit_sale BOOLEAN NOT NULL,
	customer_id BIGINT,
	created_at BIGINT NOT NULL DEFAULT ` + epochNow + `,
	updated_at BIGINT NOT NULL DEFAULT ` + epochNow + `
)`,
	`CREATE TABLE IF NOT EXISTS transaction_items (
	id BIGSERIAL PRIMARY KEY,
	transaction_id BIGINT NOT NULL,
	product_id BIGINT NOT NULL,
	product_name TEXT NOT NULL,
	unit_price_cents BIGINT NOT NULL,
	quantity INTEGER NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_customers_name ON customers (name)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_timestamp ON transactions (timestamp DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_transaction_items_tx ON transaction_items (transaction_id)`,
}

// Tables lists the ledger tables in truncation order.
var Tables = []string{"transaction_items", "transactions", "customers", "products"}

// timestampTables receive the additive timestamp migrations for installations
// created before timestamps existed.
var timestampTables = []string{"products", "customers", "transactions"}

// Manager applies the schema against a store.
type Manager struct {
	db     Execer
	logger *slog.Logger
}

// NewManager constructs Manager.
func NewManager(db Execer, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{db: db, logger: logger}
}

// EnsureSchema creates missing tables and adds missing timestamp columns.
// It is safe to call on every start.
func (m *Manager) EnsureSchema(ctx context.Context) error {
	for _, stmt := range createStatements {
		if _, err := m.db.Exec(ctx, stmt); err != nil {
			return shared.WrapStorage("schema: create", err, false)
		}
	}
	for _, stmt := range migrationStatements() {
		if _, err := m.db.Exec(ctx, stmt); err != nil {
			if db.HasCode(err, db.CodeDuplicateColumn) {
				m.logger.Debug("schema column already present", slog.String("stmt", stmt))
				continue
			}
			return shared.WrapStorage("schema: migrate", err, false)
		}
	}
	return nil
}

func migrationStatements() []string {
	stmts := make([]string, 0, len(timestampTables)*2)
	for _, table := range timestampTables {
		for _, column := range []string{"created_at", "updated_at"} {
			stmts = append(stmts, fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s BIGINT NOT NULL DEFAULT %s`, table, column, epochNow))
		}
	}
	return stmts
}
