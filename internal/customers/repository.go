package customers

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/hisab/hisab-ledger/internal/platform/db"
	"github.com/hisab/hisab-ledger/internal/shared"
)

// Repository persists customers in PostgreSQL.
type Repository struct {
	db db.DBTX
}

// NewRepository constructs Repository on a pool or transaction.
func NewRepository(conn db.DBTX) *Repository {
	return &Repository{db: conn}
}

const customerColumns = `id, name, phone_number, outstanding_balance_cents, created_at, updated_at`

// FindByName returns the oldest customer with exactly this name.
func (r *Repository) FindByName(ctx context.Context, name string) (Customer, error) {
	row := r.db.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE name = $1 ORDER BY id ASC LIMIT 1`, name)
	c, err := scanCustomer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, fmt.Errorf("%w: customer %q", shared.ErrNotFound, name)
	}
	return c, err
}

// Insert stores a customer row and returns the assigned id.
func (r *Repository) Insert(ctx context.Context, c Customer) (int64, error) {
	cents, err := shared.ToCents(c.OutstandingBalance)
	if err != nil {
		return 0, err
	}
	var id int64
	err = r.db.QueryRow(ctx, `INSERT INTO customers (name, phone_number, outstanding_balance_cents, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5) RETURNING id`, c.Name, c.PhoneNumber, cents, c.CreatedAt, c.UpdatedAt).Scan(&id)
	return id, err
}

// Touch refreshes updated_at and replaces the phone when phone is non-nil.
func (r *Repository) Touch(ctx context.Context, id int64, phone *string, updatedAt int64) error {
	_, err := r.db.Exec(ctx, `UPDATE customers SET phone_number = COALESCE($1, phone_number), updated_at = $2 WHERE id = $3`,
		phone, updatedAt, id)
	return err
}

// AdjustBalance adds deltaCents to the outstanding balance and returns the
// updated row.
func (r *Repository) AdjustBalance(ctx context.Context, id, deltaCents, updatedAt int64) (Customer, error) {
	row := r.db.QueryRow(ctx, `UPDATE customers
SET outstanding_balance_cents = outstanding_balance_cents + $1, updated_at = $2
WHERE id = $3
RETURNING `+customerColumns, deltaCents, updatedAt, id)
	c, err := scanCustomer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, fmt.Errorf("%w: customer %d", shared.ErrNotFound, id)
	}
	return c, err
}

// Get loads one customer.
func (r *Repository) Get(ctx context.Context, id int64) (Customer, error) {
	c, err := scanCustomer(r.db.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, fmt.Errorf("%w: customer %d", shared.ErrNotFound, id)
	}
	return c, err
}

// ListWithBalance returns customers owing money, most recently updated first.
func (r *Repository) ListWithBalance(ctx context.Context) ([]Customer, error) {
	return r.list(ctx, `SELECT `+customerColumns+` FROM customers WHERE outstanding_balance_cents > 0 ORDER BY updated_at DESC, id ASC`)
}

// ListAll returns every customer by name.
func (r *Repository) ListAll(ctx context.Context) ([]Customer, error) {
	return r.list(ctx, `SELECT `+customerColumns+` FROM customers ORDER BY name ASC, id ASC`)
}

func (r *Repository) list(ctx context.Context, query string) ([]Customer, error) {
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row rowScanner) (Customer, error) {
	var (
		c     Customer
		cents int64
	)
	if err := row.Scan(&c.ID, &c.Name, &c.PhoneNumber, &cents, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return Customer{}, err
	}
	c.OutstandingBalance = shared.FromCents(cents)
	return c, nil
}
