package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// CodeDuplicateColumn is the SQLSTATE raised when ADD COLUMN hits an
// existing column.
const CodeDuplicateColumn = "42701"

// HasCode reports whether err is a PostgreSQL error with the given SQLSTATE.
func HasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}
