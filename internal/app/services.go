package app

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/hisab/hisab-ledger/internal/backup"
	"github.com/hisab/hisab-ledger/internal/customers"
	"github.com/hisab/hisab-ledger/internal/filterstate"
	"github.com/hisab/hisab-ledger/internal/observability"
	"github.com/hisab/hisab-ledger/internal/preferences"
	"github.com/hisab/hisab-ledger/internal/products"
	"github.com/hisab/hisab-ledger/internal/sales"
)

// Services holds the ledger use cases shared by the server, worker and CLI.
type Services struct {
	Products    *products.Service
	Customers   *customers.Service
	Sales       *sales.Service
	Backup      *backup.Service
	Preferences *preferences.Service
	Filters     *filterstate.Context
}

// NewServices wires every service against the pool and Redis client. metrics
// may be nil, in which case sale analytics are not recorded.
func NewServices(cfg *Config, pool *pgxpool.Pool, redisClient *redis.Client, metrics *observability.Metrics, logger *slog.Logger) *Services {
	prefs := preferences.NewService(redisClient, logger)

	var observer sales.Observer
	if metrics != nil {
		observer = observability.NewSalesObserver(metrics, prefs)
	}

	return &Services{
		Products:  products.NewService(products.NewRepository(pool), products.ServiceConfig{DefaultSortBy: cfg.DefaultSort()}, logger),
		Customers: customers.NewService(customers.NewRepository(pool), logger),
		Sales: sales.NewService(sales.NewRepository(pool), sales.ServiceConfig{
			AllowNegativeStock: cfg.SalesAllowNegativeStock,
		}, observer, logger),
		Backup: backup.NewService(backup.NewRepository(pool), backup.ServiceConfig{
			TransactionLimit: cfg.BackupTransactionLimit,
		}, logger),
		Preferences: prefs,
		Filters:     filterstate.NewContext(filterstate.NewRedisStore(redisClient, cfg.SessionTTL), cfg.DefaultSort()),
	}
}
