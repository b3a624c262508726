package backup

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hisab/hisab-ledger/internal/customers"
	"github.com/hisab/hisab-ledger/internal/platform/db"
	"github.com/hisab/hisab-ledger/internal/products"
	"github.com/hisab/hisab-ledger/internal/sales"
	"github.com/hisab/hisab-ledger/internal/schema"
)

// Repository runs backup transactions against PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx executes fn inside a repeatable-read transaction so exports read a
// consistent snapshot.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{
			conn:      tx,
			products:  products.NewRepository(tx),
			customers: customers.NewRepository(tx),
			sales:     sales.NewStore(tx),
		})
	})
}

type txRepo struct {
	conn      db.DBTX
	products  *products.Repository
	customers *customers.Repository
	sales     *sales.Store
}

var truncateStmt = `TRUNCATE ` + strings.Join(schema.Tables, ", ") + ` RESTART IDENTITY`

func (t *txRepo) Truncate(ctx context.Context) error {
	_, err := t.conn.Exec(ctx, truncateStmt)
	return err
}

func (t *txRepo) ListProducts(ctx context.Context) ([]products.Product, error) {
	filter, err := products.Filter{}.Normalize(products.SortByCreatedAt)
	if err != nil {
		return nil, err
	}
	return t.products.List(ctx, filter)
}

func (t *txRepo) ListCustomers(ctx context.Context) ([]customers.Customer, error) {
	return t.customers.ListAll(ctx)
}

func (t *txRepo) ListTransactions(ctx context.Context, limit int) ([]sales.Transaction, error) {
	return t.sales.ListTransactions(ctx, limit)
}

func (t *txRepo) InsertProduct(ctx context.Context, p products.Product) (int64, error) {
	return t.products.Insert(ctx, p)
}

func (t *txRepo) InsertCustomer(ctx context.Context, c customers.Customer) (int64, error) {
	return t.customers.Insert(ctx, c)
}

func (t *txRepo) InsertTransaction(ctx context.Context, tr sales.Transaction) (int64, error) {
	return t.sales.InsertTransaction(ctx, tr)
}
