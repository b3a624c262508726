// Package sales finalizes and reverses sales against stock and credit.
package sales

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/hisab/hisab-ledger/internal/customers"
	"github.com/hisab/hisab-ledger/internal/platform/db"
	"github.com/hisab/hisab-ledger/internal/shared"
)

const defaultListLimit = 100

// RepositoryPort abstracts persistence for sales.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListTransactions(ctx context.Context, limit int) ([]Transaction, error)
	ListItems(ctx context.Context, transactionID int64) ([]TransactionItem, error)
}

// Observer is notified about committed sales.
type Observer interface {
	SaleCompleted(ctx context.Context, isCredit bool, total decimal.Decimal)
	SaleDeleted(ctx context.Context)
}

// ServiceConfig tunes sale completion.
type ServiceConfig struct {
	// AllowNegativeStock lets a sale decrement stock below zero.
	AllowNegativeStock bool
}

// Service implements the transaction engine.
type Service struct {
	repo     RepositoryPort
	cfg      ServiceConfig
	observer Observer
	logger   *slog.Logger
	now      func() int64
}

// NewService constructs the sales service. observer may be nil.
func NewService(repo RepositoryPort, cfg ServiceConfig, observer Observer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cfg: cfg, observer: observer, logger: logger, now: shared.Now}
}

// CompleteSale records a sale, charges credit to the customer and lowers stock
// in one transaction. It returns the new transaction id.
func (s *Service) CompleteSale(ctx context.Context, in SaleInput) (int64, error) {
	totalCents, err := validateSale(in)
	if err != nil {
		return 0, err
	}
	total := shared.FromCents(totalCents)

	var txID int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		now := s.now()

		var customerID *int64
		if in.IsCreditSale {
			id, err := customers.Upsert(ctx, tx.Customers(), in.CustomerName, in.CustomerPhone, now)
			if err != nil {
				return err
			}
			customerID = &id
		}

		id, err := tx.InsertTransaction(ctx, Transaction{
			Timestamp:    now,
			TotalAmount:  total,
			IsCreditSale: in.IsCreditSale,
			CustomerID:   customerID,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		if err != nil {
			return err
		}
		if err := tx.InsertItems(ctx, id, in.Lines); err != nil {
			return err
		}

		if customerID != nil {
			if _, err := tx.Customers().AdjustBalance(ctx, *customerID, totalCents, now); err != nil {
				return err
			}
		}

		for _, l := range in.Lines {
			if err := tx.DecrementStock(ctx, l.ProductID, l.Quantity, s.cfg.AllowNegativeStock, now); err != nil {
				return err
			}
		}
		txID = id
		return nil
	})
	if err != nil {
		return 0, shared.WrapStorage("sales: complete", err, db.IsCommitFailure(err))
	}

	s.logger.Info("sale completed",
		slog.Int64("transaction_id", txID),
		slog.Bool("credit", in.IsCreditSale),
		slog.String("total", total.String()))
	if s.observer != nil {
		s.observer.SaleCompleted(ctx, in.IsCreditSale, total)
	}
	return txID, nil
}

// Checkout completes a sale from cart and empties the cart on success.
func (s *Service) Checkout(ctx context.Context, cart *Cart, opts CheckoutOptions) (int64, error) {
	id, err := s.CompleteSale(ctx, SaleInput{
		Lines:         cart.Lines(),
		IsCreditSale:  opts.IsCreditSale,
		CustomerName:  opts.CustomerName,
		CustomerPhone: opts.CustomerPhone,
	})
	if err != nil {
		return 0, err
	}
	cart.Reset()
	return id, nil
}

// DeleteTransaction removes a sale. A credit sale's total is taken back off
// the customer's balance. Stock is not restored.
func (s *Service) DeleteTransaction(ctx context.Context, id int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		t, err := tx.GetTransactionForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if t.IsCreditSale && t.CustomerID != nil {
			cents, err := shared.ToCents(t.TotalAmount)
			if err != nil {
				return err
			}
			if _, err := tx.Customers().AdjustBalance(ctx, *t.CustomerID, -cents, s.now()); err != nil {
				return err
			}
		}
		return tx.DeleteTransaction(ctx, id)
	})
	if err != nil {
		return shared.WrapStorage("sales: delete", err, db.IsCommitFailure(err))
	}
	s.logger.Info("sale deleted", slog.Int64("transaction_id", id))
	if s.observer != nil {
		s.observer.SaleDeleted(ctx)
	}
	return nil
}

// ListTransactions returns the newest transactions. A non-positive limit
// uses the default of 100.
func (s *Service) ListTransactions(ctx context.Context, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	list, err := s.repo.ListTransactions(ctx, limit)
	if err != nil {
		return nil, shared.WrapStorage("sales: list", err, false)
	}
	return list, nil
}

// ListTransactionItems returns the lines recorded for one transaction.
func (s *Service) ListTransactionItems(ctx context.Context, transactionID int64) ([]TransactionItem, error) {
	items, err := s.repo.ListItems(ctx, transactionID)
	if err != nil {
		return nil, shared.WrapStorage("sales: list items", err, false)
	}
	return items, nil
}

func validateSale(in SaleInput) (int64, error) {
	if len(in.Lines) == 0 {
		return 0, shared.Validationf("a sale needs at least one line")
	}
	if in.IsCreditSale && customers.NormalizeName(in.CustomerName) == "" {
		return 0, shared.Validationf("credit sale needs a customer name")
	}
	var total int64
	for _, l := range in.Lines {
		if l.Quantity <= 0 {
			return 0, shared.Validationf("line for product %d has non-positive quantity", l.ProductID)
		}
		if l.UnitPrice.IsNegative() {
			return 0, shared.Validationf("line for product %d has negative price", l.ProductID)
		}
		cents, err := shared.ToCents(l.UnitPrice)
		if err != nil {
			return 0, err
		}
		line, err := shared.LineCents(cents, l.Quantity)
		if err != nil {
			return 0, fmt.Errorf("product %d: %w", l.ProductID, err)
		}
		if total, err = shared.AddCents(total, line); err != nil {
			return 0, err
		}
	}
	return total, nil
}
