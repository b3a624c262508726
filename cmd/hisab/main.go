package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/hisab/hisab-ledger/cmd/hisab/cli"
	"github.com/hisab/hisab-ledger/internal/app"
	"github.com/hisab/hisab-ledger/internal/backup"
	"github.com/hisab/hisab-ledger/internal/customers"
	"github.com/hisab/hisab-ledger/internal/filterstate"
	"github.com/hisab/hisab-ledger/internal/observability"
	"github.com/hisab/hisab-ledger/internal/platform/cache"
	"github.com/hisab/hisab-ledger/internal/platform/db"
	"github.com/hisab/hisab-ledger/internal/preferences"
	"github.com/hisab/hisab-ledger/internal/products"
	"github.com/hisab/hisab-ledger/internal/sales"
	"github.com/hisab/hisab-ledger/internal/schema"
	"github.com/hisab/hisab-ledger/jobs"
)

const usage = `usage: hisab [command]

commands:
  serve                       run the HTTP server (default)
  schema                      create or migrate the schema
  backup export [-out path]   write a backup document
  backup import -in path      replace the ledger with a backup document
  backup clear -yes           delete every record
  jobs trigger backup         enqueue a forced backup run
  jobs stats                  show default queue statistics
`

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}
	decimal.MarshalJSONWithoutQuotes = true

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	args := os.Args[1:]
	command := "serve"
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	var code int
	switch command {
	case "serve":
		code = serve(ctx, cfg, logger)
	case "schema":
		code = migrate(ctx, cfg, logger)
	case "backup":
		code = runBackup(ctx, cfg, logger, args)
	case "jobs":
		code = runJobs(ctx, cfg, args)
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprint(os.Stderr, usage)
		code = 2
	}
	stop()
	os.Exit(code)
}

func openStores(ctx context.Context, cfg *app.Config, logger *slog.Logger) (*pgxpool.Pool, *redis.Client, error) {
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return nil, nil, err
	}
	if err := schema.NewManager(pool, logger).EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	redisClient, err := cache.New(ctx, cache.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return pool, redisClient, nil
}

func redisOpts(cfg *app.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
}

func serve(ctx context.Context, cfg *app.Config, logger *slog.Logger) int {
	pool, redisClient, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Error("open stores", slog.Any("error", err))
		return 1
	}
	defer pool.Close()
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	services := app.NewServices(cfg, pool, redisClient, metrics, logger)

	jobClient, err := jobs.NewClient(redisOpts(cfg))
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		return 1
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts(cfg))
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	filtersHandler := filterstate.NewHandler(logger, services.Filters)
	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Store:              pool,
		ProductsHandler:    products.NewHandler(logger, services.Products, filtersHandler),
		CustomersHandler:   customers.NewHandler(logger, services.Customers),
		SalesHandler:       sales.NewHandler(logger, services.Sales, services.Products),
		BackupHandler:      backup.NewHandler(logger, services.Backup, jobClient),
		FiltersHandler:     filtersHandler,
		PreferencesHandler: preferences.NewHandler(logger, services.Preferences),
		JobHandler:         jobs.NewHandler(inspector, logger),
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			logger.Error("http server", slog.Any("error", err))
			return 1
		}
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
		return 1
	}
	return 0
}

func migrate(ctx context.Context, cfg *app.Config, logger *slog.Logger) int {
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		return 1
	}
	defer pool.Close()
	if err := schema.NewManager(pool, logger).EnsureSchema(ctx); err != nil {
		logger.Error("ensure schema", slog.Any("error", err))
		return 1
	}
	logger.Info("schema ready")
	return 0
}

func runBackup(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string) int {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return 2
	}
	sub, args := args[0], args[1:]
	fs := flag.NewFlagSet("backup "+sub, flag.ContinueOnError)
	out := fs.String("out", "", "output file or directory (default stdout)")
	in := fs.String("in", "", "backup document to import")
	yes := fs.Bool("yes", false, "confirm deleting every record")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	pool, redisClient, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Error("open stores", slog.Any("error", err))
		return 1
	}
	defer pool.Close()
	defer redisClient.Close()

	commands := cli.NewBackupCLI(app.NewServices(cfg, pool, redisClient, nil, logger).Backup)
	switch sub {
	case "export":
		return commands.ExportCommand(ctx, cli.ExportOptions{Out: *out})
	case "import":
		return commands.ImportCommand(ctx, cli.ImportOptions{In: *in})
	case "clear":
		return commands.ClearCommand(ctx, cli.ClearOptions{Yes: *yes})
	}
	fmt.Fprint(os.Stderr, usage)
	return 2
}

func runJobs(ctx context.Context, cfg *app.Config, args []string) int {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return 2
	}
	commands, err := cli.NewJobsCLI(redisOpts(cfg))
	if err != nil {
		fmt.Fprintf(os.Stderr, "jobs: %v\n", err)
		return 1
	}
	defer commands.Close()

	switch args[0] {
	case "trigger":
		if len(args) < 2 {
			fmt.Fprint(os.Stderr, usage)
			return 2
		}
		return commands.TriggerCommand(ctx, cli.TriggerOptions{Name: args[1]})
	case "stats":
		stats, err := commands.InspectQueue(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "jobs stats: %v\n", err)
			return 1
		}
		fmt.Printf("queue=%s pending=%d active=%d scheduled=%d retry=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
		return 0
	}
	fmt.Fprint(os.Stderr, usage)
	return 2
}
