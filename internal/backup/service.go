// Package backup exports and restores the whole ledger as a JSON document.
package backup

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hisab/hisab-ledger/internal/customers"
	"github.com/hisab/hisab-ledger/internal/platform/db"
	"github.com/hisab/hisab-ledger/internal/products"
	"github.com/hisab/hisab-ledger/internal/sales"
	"github.com/hisab/hisab-ledger/internal/shared"
)

// DefaultTransactionLimit caps the transactions included in an export.
const DefaultTransactionLimit = 1000

// TxRepository exposes the store operations of one backup transaction.
type TxRepository interface {
	Truncate(ctx context.Context) error
	ListProducts(ctx context.Context) ([]products.Product, error)
	ListCustomers(ctx context.Context) ([]customers.Customer, error)
	ListTransactions(ctx context.Context, limit int) ([]sales.Transaction, error)
	InsertProduct(ctx context.Context, p products.Product) (int64, error)
	InsertCustomer(ctx context.Context, c customers.Customer) (int64, error)
	InsertTransaction(ctx context.Context, t sales.Transaction) (int64, error)
}

// RepositoryPort runs backup work inside a transaction.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// ServiceConfig tunes exports.
type ServiceConfig struct {
	TransactionLimit int
}

// ImportSummary counts the rows restored by an import.
type ImportSummary struct {
	Products     int `json:"products"`
	Customers    int `json:"customers"`
	Transactions int `json:"transactions"`
}

// Service implements export, import and clear.
type Service struct {
	repo   RepositoryPort
	cfg    ServiceConfig
	logger *slog.Logger
	group  singleflight.Group
	clock  func() time.Time
}

// NewService constructs the backup service.
func NewService(repo RepositoryPort, cfg ServiceConfig, logger *slog.Logger) *Service {
	if cfg.TransactionLimit <= 0 {
		cfg.TransactionLimit = DefaultTransactionLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cfg: cfg, logger: logger, clock: time.Now}
}

// ExportAll serializes every product and customer and the newest
// transactions up to the configured limit. Concurrent callers share one
// snapshot and must not modify the returned bytes.
//
// The shared snapshot is detached from any single caller's context, so one
// caller giving up does not fail the others. Each caller still returns
// early when its own ctx is done.
func (s *Service) ExportAll(ctx context.Context) ([]byte, error) {
	detached := context.WithoutCancel(ctx)
	ch := s.group.DoChan("export", func() (any, error) {
		return s.export(detached)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			s.logger.Debug("export snapshot shared")
		}
		return res.Val.([]byte), nil
	}
}

func (s *Service) export(ctx context.Context) ([]byte, error) {
	var ds Dataset
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		if ds.Products, err = tx.ListProducts(ctx); err != nil {
			return err
		}
		if ds.Customers, err = tx.ListCustomers(ctx); err != nil {
			return err
		}
		ds.Transactions, err = tx.ListTransactions(ctx, s.cfg.TransactionLimit)
		return err
	})
	if err != nil {
		return nil, shared.WrapStorage("backup: export", err, false)
	}

	doc := encodeDocument(ds, s.clock().UTC().Format(exportDateLayout))
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	s.logger.Info("backup exported",
		slog.Int("products", len(doc.Products)),
		slog.Int("customers", len(doc.Customers)),
		slog.Int("transactions", len(doc.Transactions)))
	return out, nil
}

// ImportAll replaces the whole dataset with the content of document. The
// document is validated completely before the store is touched, and the
// replacement is a single transaction.
func (s *Service) ImportAll(ctx context.Context, document []byte) (ImportSummary, error) {
	ds, err := decodeDocument(document, s.clock().Unix())
	if err != nil {
		return ImportSummary{}, err
	}

	// Insert transactions oldest first so new ids follow sale time.
	txs := append([]sales.Transaction(nil), ds.Transactions...)
	sort.SliceStable(txs, func(i, j int) bool {
		if txs[i].Timestamp != txs[j].Timestamp {
			return txs[i].Timestamp < txs[j].Timestamp
		}
		return txs[i].ID < txs[j].ID
	})

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.Truncate(ctx); err != nil {
			return err
		}
		for _, p := range ds.Products {
			if _, err := tx.InsertProduct(ctx, p); err != nil {
				return err
			}
		}
		idMap := make(map[int64]int64, len(ds.Customers))
		for _, c := range ds.Customers {
			id, err := tx.InsertCustomer(ctx, c)
			if err != nil {
				return err
			}
			idMap[c.ID] = id
		}
		for _, t := range txs {
			if t.CustomerID != nil {
				newID := idMap[*t.CustomerID]
				t.CustomerID = &newID
			}
			if _, err := tx.InsertTransaction(ctx, t); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return ImportSummary{}, shared.WrapStorage("backup: import", err, db.IsCommitFailure(err))
	}

	summary := ImportSummary{Products: len(ds.Products), Customers: len(ds.Customers), Transactions: len(txs)}
	s.logger.Info("backup imported",
		slog.Int("products", summary.Products),
		slog.Int("customers", summary.Customers),
		slog.Int("transactions", summary.Transactions))
	return summary, nil
}

// ClearAll empties every table and resets identity counters.
func (s *Service) ClearAll(ctx context.Context) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.Truncate(ctx)
	})
	if err != nil {
		return shared.WrapStorage("backup: clear", err, db.IsCommitFailure(err))
	}
	s.logger.Warn("ledger cleared")
	return nil
}
