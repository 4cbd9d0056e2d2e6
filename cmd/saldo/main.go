package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"saldo/internal/amqp"
	"saldo/internal/cache"
	"saldo/internal/cli"
	"saldo/internal/config"
	apphttp "saldo/internal/http"
	"saldo/internal/ledger"
	"saldo/internal/log"
	"saldo/internal/services"
	"saldo/internal/sheets"
	gsheet "saldo/internal/sheets/google"
	"saldo/internal/state"
	"saldo/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()
	logger := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat, log.ComponentApp)
	cfg = cli.LoadAndValidateConfig(logger.Logger)

	loc := cfg.Location()
	startupCtx := context.Background()
	ledgerStore := cli.OpenLedger(startupCtx, logger.Logger, cfg)

	accounts := services.NewAccountService(ledgerStore.Store)
	categories := services.NewCategoryService(ledgerStore.Store)
	txs := services.NewTransactionService(ledgerStore.Store)
	analytics := services.NewAnalyticsService(ledgerStore.Store, loc)

	appState := state.New(accounts, categories, txs, analytics, state.Config{
		TransactionWindow: state.DefaultConfig().TransactionWindow,
		AnalyticsSize:     cfg.AnalyticsCacheSize,
		AnalyticsTTL:      cfg.AnalyticsCacheTTL,
	})
	if err := appState.Load(startupCtx); err != nil {
		logger.Error("Failed to load ledger state", log.FieldError, err)
		os.Exit(1)
	}

	cacheManager := cache.NewManager()
	cacheManager.Register(appState.AnalyticsCache())
	cacheManager.StartCleanup(10 * time.Minute)

	publisher, closePublisher := eventPublisher(startupCtx, logger, cfg, ledgerStore.Store)
	processor := services.NewSyncProcessor(ledgerStore.Store, publisher, services.SyncProcessorConfig{
		PollInterval:    cfg.OutboxPollInterval,
		BatchSize:       cfg.OutboxBatchSize,
		MaxRetries:      cfg.OutboxMaxRetries,
		CleanupInterval: services.DefaultSyncProcessorConfig().CleanupInterval,
		CleanupAge:      services.DefaultSyncProcessorConfig().CleanupAge,
	})

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Dependencies{
		State:              appState,
		Transactions:       txs,
		Ready:              ledgerStore.Store.Ping,
		Logger:             logger,
		Location:           loc,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	ctx, done := cli.GracefulShutdown(logger.Logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if err := processor.Stop(shutdownCtx); err != nil {
			logger.Warn("Outbox processor stop error", log.FieldError, err)
		}
		cacheManager.Stop()
		closePublisher()
		if err := ledgerStore.Cleanup(); err != nil {
			logger.Warn("Ledger store close error", log.FieldError, err)
		}
	})

	if err := processor.Start(ctx); err != nil {
		logger.Error("Failed to start outbox processor", log.FieldError, err)
		os.Exit(1)
	}
	go refreshState(ctx, appState, cfg.ReconcileInterval)

	logger.Info("Starting saldo server",
		"port", cfg.Port,
		"backend", cfg.LedgerBackend,
		"timezone", loc.String(),
		"seeded_categories", ledgerStore.Seeded)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}

// eventPublisher picks where outbox events go: the AMQP exchange when one
// is configured, otherwise an in-process worker.
func eventPublisher(ctx context.Context, logger *log.Logger, cfg *config.Config, store ledger.Store) (services.EventPublisher, func()) {
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		logger.Info("Publishing ledger events to AMQP", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		return client, func() {
			if err := client.Close(); err != nil {
				logger.Warn("AMQP close error", log.FieldError, err)
			}
		}
	}

	var exporter sheets.TransactionExporter
	if cfg.SheetsEnabled() {
		client, err := gsheet.NewFromCredentials(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, cfg.Location())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		exporter = client
	}
	logger.Info("No AMQP_URL set; ledger events are handled in process",
		"sheets_export", exporter != nil)
	w := worker.NewLedgerWorker(store, services.NewReconciler(store, cfg.ReconcileRepair), exporter)
	return w, func() {}
}

// refreshState reloads the cached view so repairs made outside this
// process become visible.
func refreshState(ctx context.Context, st *state.Store, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := st.Load(ctx); err != nil {
				slog.WarnContext(ctx, "Periodic state reload failed", log.FieldError, err)
			}
		}
	}
}
