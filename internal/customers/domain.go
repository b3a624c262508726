package customers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"

	"github.com/hisab/hisab-ledger/internal/shared"
)

// Customer is a buyer who may carry credit.
type Customer struct {
	ID                 int64           `json:"id"`
	Name               string          `json:"name"`
	PhoneNumber        *string         `json:"phoneNumber"`
	OutstandingBalance decimal.Decimal `json:"outstandingBalance"`
	CreatedAt          int64           `json:"createdAt"`
	UpdatedAt          int64           `json:"updatedAt"`
}

// PaymentResult reports the customer after a payment. Overpaid is set when
// the payment pushed the balance below zero.
type PaymentResult struct {
	Customer Customer `json:"customer"`
	Overpaid bool     `json:"overpaid"`
}

// NormalizeName returns the form of a customer name used for matching.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// UpsertStore is the persistence needed to resolve a customer by name.
type UpsertStore interface {
	FindByName(ctx context.Context, name string) (Customer, error)
	Insert(ctx context.Context, c Customer) (int64, error)
	Touch(ctx context.Context, id int64, phone *string, updatedAt int64) error
}

// Upsert returns the id of the customer named name, creating one with a zero
// balance when none exists. An existing customer's phone is replaced only
// when phone is non-empty.
func Upsert(ctx context.Context, store UpsertStore, name, phone string, now int64) (int64, error) {
	name = NormalizeName(name)
	if name == "" {
		return 0, shared.Validationf("customer name is required")
	}
	var phonePtr *string
	if p := strings.TrimSpace(phone); p != "" {
		phonePtr = &p
	}

	existing, err := store.FindByName(ctx, name)
	switch {
	case err == nil:
		if err := store.Touch(ctx, existing.ID, phonePtr, now); err != nil {
			return 0, err
		}
		return existing.ID, nil
	case errors.Is(err, shared.ErrNotFound):
	default:
		return 0, err
	}

	id, err := store.Insert(ctx, Customer{
		Name:               name,
		PhoneNumber:        phonePtr,
		OutstandingBalance: decimal.Zero,
		CreatedAt:          now,
		UpdatedAt:          now,
	})
	if err != nil {
		return 0, fmt.Errorf("insert customer: %w", err)
	}
	return id, nil
}
