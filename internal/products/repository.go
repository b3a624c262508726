package products

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/hisab/hisab-ledger/internal/platform/db"
	"github.com/hisab/hisab-ledger/internal/shared"
)

// Repository persists products in PostgreSQL. It runs on a pool or inside
// a transaction.
type Repository struct {
	db db.DBTX
}

// NewRepository constructs Repository.
func NewRepository(conn db.DBTX) *Repository {
	return &Repository{db: conn}
}

const productColumns = `id, name, sale_price_cents, quantity, created_at, updated_at`

// Insert stores a product row and returns the assigned id.
func (r *Repository) Insert(ctx context.Context, p Product) (int64, error) {
	cents, err := shared.ToCents(p.SalePrice)
	if err != nil {
		return 0, err
	}
	var id int64
	err = r.db.QueryRow(ctx, `INSERT INTO products (name, sale_price_cents, quantity, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5) RETURNING id`, p.Name, cents, p.Quantity, p.CreatedAt, p.UpdatedAt).Scan(&id)
	return id, err
}

// Update rewrites the mutable fields. A missing id is not an error.
func (r *Repository) Update(ctx context.Context, id int64, in ProductInput, updatedAt int64) error {
	cents, err := shared.ToCents(in.SalePrice)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `UPDATE products SET name = $1, sale_price_cents = $2, quantity = $3, updated_at = $4 WHERE id = $5`,
		in.Name, cents, in.Quantity, updatedAt, id)
	return err
}

// Delete removes a product. A missing id is not an error.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	return err
}

// Get loads one product.
func (r *Repository) Get(ctx context.Context, id int64) (Product, error) {
	row := r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, fmt.Errorf("%w: product %d", shared.ErrNotFound, id)
	}
	return p, err
}

// List returns products matching a normalized filter.
func (r *Repository) List(ctx context.Context, filter Filter) ([]Product, error) {
	query, args := buildListQuery(filter)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DecrementStock lowers a product's quantity by qty and refreshes updated_at.
// When allowNegative is false the update only applies while enough stock
// remains.
func (r *Repository) DecrementStock(ctx context.Context, id int64, qty int, allowNegative bool, now int64) error {
	query := `UPDATE products SET quantity = quantity - $1, updated_at = $2 WHERE id = $3`
	if !allowNegative {
		query += ` AND quantity >= $1`
	}
	tag, err := r.db.Exec(ctx, query, qty, now, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: product %d", shared.ErrNotFound, id)
	}
	return fmt.Errorf("%w: product %d cannot supply %d", shared.ErrInsufficientStock, id, qty)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (Product, error) {
	var (
		p     Product
		cents int64
	)
	if err := row.Scan(&p.ID, &p.Name, &cents, &p.Quantity, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Product{}, err
	}
	p.SalePrice = shared.FromCents(cents)
	return p, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func buildListQuery(filter Filter) (string, []any) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.SearchText != "" {
		where = append(where, `name ILIKE `+arg("%"+likeEscaper.Replace(filter.SearchText)+"%")+` ESCAPE '\'`)
	}
	if filter.MinPrice != nil {
		where = append(where, `sale_price_cents >= `+arg(filter.MinPrice.Shift(2).Ceil().IntPart()))
	}
	if filter.MaxPrice != nil {
		where = append(where, `sale_price_cents <= `+arg(filter.MaxPrice.Shift(2).Floor().IntPart()))
	}
	if filter.MinStock != nil {
		where = append(where, `quantity >= `+arg(*filter.MinStock))
	}
	if filter.MaxStock != nil {
		where = append(where, `quantity <= `+arg(*filter.MaxStock))
	}

	query := `SELECT ` + productColumns + ` FROM products`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}

	column, ok := sortColumns[filter.SortBy]
	if !ok {
		column = sortColumns[SortByCreatedAt]
	}
	dir := string(Descending)
	if filter.SortOrder == Ascending {
		dir = string(Ascending)
	}
	query += ` ORDER BY ` + column + ` ` + dir + `, id ASC`
	return query, args
}
