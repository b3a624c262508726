package sales

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hisab/hisab-ledger/internal/customers"
	"github.com/hisab/hisab-ledger/internal/platform/db"
	"github.com/hisab/hisab-ledger/internal/products"
	"github.com/hisab/hisab-ledger/internal/shared"
)

// Store reads and writes transaction rows on a pool or transaction.
type Store struct {
	db db.DBTX
}

// NewStore constructs Store.
func NewStore(conn db.DBTX) *Store {
	return &Store{db: conn}
}

const transactionColumns = `t.id, t.timestamp, t.total_amount_cents, t.is_credit_sale, t.customer_id, t.created_at, t.updated_at`

// InsertTransaction stores a transaction row and returns the assigned id.
func (s *Store) InsertTransaction(ctx context.Context, t Transaction) (int64, error) {
	cents, err := shared.ToCents(t.TotalAmount)
	if err != nil {
		return 0, err
	}
	var id int64
	err = s.db.QueryRow(ctx, `INSERT INTO transactions (timestamp, total_amount_cents, is_credit_sale, customer_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`, t.Timestamp, cents, t.IsCreditSale, t.CustomerID, t.CreatedAt, t.UpdatedAt).Scan(&id)
	return id, err
}

// InsertItems stores the detail rows of a transaction.
func (s *Store) InsertItems(ctx context.Context, transactionID int64, lines []Line) error {
	for _, l := range lines {
		cents, err := shared.ToCents(l.UnitPrice)
		if err != nil {
			return err
		}
		if _, err := s.db.Exec(ctx, `INSERT INTO transaction_items (transaction_id, product_id, product_name, unit_price_cents, quantity)
VALUES ($1, $2, $3, $4, $5)`, transactionID, l.ProductID, l.ProductName, cents, l.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// GetTransactionForUpdate loads and locks a transaction row.
func (s *Store) GetTransactionForUpdate(ctx context.Context, id int64) (Transaction, error) {
	row := s.db.QueryRow(ctx, `SELECT `+transactionColumns+`, NULL::text FROM transactions t WHERE t.id = $1 FOR UPDATE`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, fmt.Errorf("%w: transaction %d", shared.ErrNotFound, id)
	}
	return t, err
}

// DeleteTransaction removes a transaction and its detail rows.
func (s *Store) DeleteTransaction(ctx context.Context, id int64) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM transaction_items WHERE transaction_id = $1`, id); err != nil {
		return err
	}
	_, err := s.db.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	return err
}

// ListTransactions returns up to limit transactions, newest first, with the
// linked customer's name.
func (s *Store) ListTransactions(ctx context.Context, limit int) ([]Transaction, error) {
	rows, err := s.db.Query(ctx, `SELECT `+transactionColumns+`, c.name
FROM transactions t
LEFT JOIN customers c ON c.id = t.customer_id
ORDER BY t.timestamp DESC, t.id DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListItems returns the detail rows of one transaction.
func (s *Store) ListItems(ctx context.Context, transactionID int64) ([]TransactionItem, error) {
	rows, err := s.db.Query(ctx, `SELECT id, transaction_id, product_id, product_name, unit_price_cents, quantity
FROM transaction_items WHERE transaction_id = $1 ORDER BY id ASC`, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TransactionItem
	for rows.Next() {
		var (
			it    TransactionItem
			cents int64
		)
		if err := rows.Scan(&it.ID, &it.TransactionID, &it.ProductID, &it.ProductName, &cents, &it.Quantity); err != nil {
			return nil, err
		}
		it.UnitPrice = shared.FromCents(cents)
		out = append(out, it)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (Transaction, error) {
	var (
		t     Transaction
		cents int64
	)
	if err := row.Scan(&t.ID, &t.Timestamp, &cents, &t.IsCreditSale, &t.CustomerID, &t.CreatedAt, &t.UpdatedAt, &t.CustomerName); err != nil {
		return Transaction{}, err
	}
	t.TotalAmount = shared.FromCents(cents)
	return t, nil
}

// CustomerStore is the customer ledger access a sale needs.
type CustomerStore interface {
	customers.UpsertStore
	AdjustBalance(ctx context.Context, id, deltaCents, updatedAt int64) (customers.Customer, error)
}

// TxRepository exposes the operations run inside a sale transaction.
type TxRepository interface {
	Customers() CustomerStore
	DecrementStock(ctx context.Context, productID int64, qty int, allowNegative bool, now int64) error
	InsertTransaction(ctx context.Context, t Transaction) (int64, error)
	InsertItems(ctx context.Context, transactionID int64, lines []Line) error
	GetTransactionForUpdate(ctx context.Context, id int64) (Transaction, error)
	DeleteTransaction(ctx context.Context, id int64) error
}

// Repository binds sale operations to PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
	*Store
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, Store: NewStore(pool)}
}

type txRepo struct {
	*Store
	products  *products.Repository
	customers *customers.Repository
}

func (t *txRepo) Customers() CustomerStore { return t.customers }

func (t *txRepo) DecrementStock(ctx context.Context, productID int64, qty int, allowNegative bool, now int64) error {
	return t.products.DecrementStock(ctx, productID, qty, allowNegative, now)
}

// WithTx executes the callback inside a repeatable-read transaction. The
// product and customer repositories share that transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{
			Store:     NewStore(tx),
			products:  products.NewRepository(tx),
			customers: customers.NewRepository(tx),
		})
	})
}
