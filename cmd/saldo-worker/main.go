package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"saldo/internal/amqp"
	"saldo/internal/cli"
	"saldo/internal/config"
	"saldo/internal/log"
	"saldo/internal/services"
	"saldo/internal/sheets"
	gsheet "saldo/internal/sheets/google"
	"saldo/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()
	logger := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat, log.ComponentWorker)
	cfg = cli.LoadAndValidateConfig(logger.Logger)

	logger.Info("Starting saldo-worker")

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}
	if cfg.LedgerBackend != "sqlite" {
		logger.Warn("Worker is not sharing a persistent ledger; reconciliation only sees its own store",
			"backend", cfg.LedgerBackend)
	}

	startupCtx := context.Background()
	ledgerStore := cli.OpenLedger(startupCtx, logger.Logger, cfg)
	defer func() {
		if err := ledgerStore.Cleanup(); err != nil {
			logger.Warn("Ledger store close error", log.FieldError, err)
		}
	}()

	var exporter sheets.TransactionExporter
	if cfg.SheetsEnabled() {
		client, err := gsheet.NewFromCredentials(startupCtx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, cfg.Location())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		exporter = client
		logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets export disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	reconciler := services.NewReconciler(ledgerStore.Store, cfg.ReconcileRepair)
	ledgerWorker := worker.NewLedgerWorker(ledgerStore.Store, reconciler, exporter)

	ctx, done := cli.GracefulShutdown(logger.Logger, 15*time.Second, nil)

	if err := ledgerWorker.StartupReconcile(ctx); err != nil {
		logger.Error("Startup reconcile failed", log.FieldError, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := amqpClient.ConsumeLedgerEvents(gctx, ledgerWorker.HandleLedgerEvent)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		ledgerWorker.RunPeriodicReconcile(gctx, cfg.ReconcileInterval)
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
