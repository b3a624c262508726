// Package customers keeps the customer ledger and credit balances.
package customers

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/hisab/hisab-ledger/internal/shared"
)

// RepositoryPort abstracts persistence for the customer ledger.
type RepositoryPort interface {
	UpsertStore
	AdjustBalance(ctx context.Context, id, deltaCents, updatedAt int64) (Customer, error)
	Get(ctx context.Context, id int64) (Customer, error)
	ListWithBalance(ctx context.Context) ([]Customer, error)
	ListAll(ctx context.Context) ([]Customer, error)
}

// Service implements customer ledger use cases.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
	now    func() int64
}

// NewService constructs the customer service.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger, now: shared.Now}
}

// UpsertCustomer resolves a customer by exact name, creating it when absent.
func (s *Service) UpsertCustomer(ctx context.Context, name, phone string) (int64, error) {
	id, err := Upsert(ctx, s.repo, name, phone, s.now())
	if err != nil {
		return 0, shared.WrapStorage("customers: upsert", err, false)
	}
	return id, nil
}

// AdjustBalance adds delta to a customer's outstanding balance. The result
// may be negative.
func (s *Service) AdjustBalance(ctx context.Context, customerID int64, delta decimal.Decimal) (Customer, error) {
	cents, err := shared.ToCents(delta)
	if err != nil {
		return Customer{}, err
	}
	c, err := s.repo.AdjustBalance(ctx, customerID, cents, s.now())
	if err != nil {
		return Customer{}, shared.WrapStorage("customers: adjust balance", err, false)
	}
	return c, nil
}

// RecordPayment settles amount against a customer's balance.
func (s *Service) RecordPayment(ctx context.Context, customerID int64, amount decimal.Decimal) (PaymentResult, error) {
	if !amount.IsPositive() {
		return PaymentResult{}, shared.Validationf("payment amount must be positive")
	}
	c, err := s.AdjustBalance(ctx, customerID, amount.Neg())
	if err != nil {
		return PaymentResult{}, err
	}
	res := PaymentResult{Customer: c, Overpaid: c.OutstandingBalance.IsNegative()}
	if res.Overpaid {
		s.logger.Warn("customer overpaid",
			slog.Int64("customer_id", customerID),
			slog.String("balance", c.OutstandingBalance.String()))
	}
	return res, nil
}

// GetCustomer returns one customer or shared.ErrNotFound.
func (s *Service) GetCustomer(ctx context.Context, id int64) (Customer, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return Customer{}, shared.WrapStorage("customers: get", err, false)
	}
	return c, nil
}

// ListCustomersWithBalance returns customers with a positive balance.
func (s *Service) ListCustomersWithBalance(ctx context.Context) ([]Customer, error) {
	list, err := s.repo.ListWithBalance(ctx)
	if err != nil {
		return nil, shared.WrapStorage("customers: list outstanding", err, false)
	}
	return list, nil
}

// ListAllCustomers returns every customer ordered by name.
func (s *Service) ListAllCustomers(ctx context.Context) ([]Customer, error) {
	list, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, shared.WrapStorage("customers: list", err, false)
	}
	return list, nil
}
