// Package products manages the product catalogue and stock on hand.
package products

import (
	"context"
	"log/slog"

	"github.com/hisab/hisab-ledger/internal/shared"
)

// RepositoryPort abstracts persistence for products.
type RepositoryPort interface {
	Insert(ctx context.Context, p Product) (int64, error)
	Update(ctx context.Context, id int64, in ProductInput, updatedAt int64) error
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (Product, error)
	List(ctx context.Context, filter Filter) ([]Product, error)
}

// ServiceConfig tunes product listing.
type ServiceConfig struct {
	DefaultSortBy SortField
}

// Service implements product use cases.
type Service struct {
	repo   RepositoryPort
	cfg    ServiceConfig
	logger *slog.Logger
	now    func() int64
}

// NewService constructs a product service.
func NewService(repo RepositoryPort, cfg ServiceConfig, logger *slog.Logger) *Service {
	if cfg.DefaultSortBy == "" {
		cfg.DefaultSortBy = SortByCreatedAt
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cfg: cfg, logger: logger, now: shared.Now}
}

// AddProduct validates and stores a new product.
func (s *Service) AddProduct(ctx context.Context, in ProductInput) (int64, error) {
	in, err := in.normalize()
	if err != nil {
		return 0, err
	}
	now := s.now()
	id, err := s.repo.Insert(ctx, Product{
		Name:      in.Name,
		SalePrice: in.SalePrice,
		Quantity:  in.Quantity,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return 0, shared.WrapStorage("products: add", err, false)
	}
	s.logger.Debug("product added", slog.Int64("product_id", id))
	return id, nil
}

// UpdateProduct rewrites an existing product. Unknown ids are ignored.
func (s *Service) UpdateProduct(ctx context.Context, id int64, in ProductInput) error {
	in, err := in.normalize()
	if err != nil {
		return err
	}
	if err := s.repo.Update(ctx, id, in, s.now()); err != nil {
		return shared.WrapStorage("products: update", err, false)
	}
	return nil
}

// DeleteProduct removes a product. Past transactions are untouched.
func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return shared.WrapStorage("products: delete", err, false)
	}
	return nil
}

// GetProductByID returns a product or shared.ErrNotFound.
func (s *Service) GetProductByID(ctx context.Context, id int64) (Product, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return Product{}, shared.WrapStorage("products: get", err, false)
	}
	return p, nil
}

// ListProducts returns products matching filter.
func (s *Service) ListProducts(ctx context.Context, filter Filter) ([]Product, error) {
	filter, err := filter.Normalize(s.cfg.DefaultSortBy)
	if err != nil {
		return nil, err
	}
	list, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, shared.WrapStorage("products: list", err, false)
	}
	return list, nil
}
