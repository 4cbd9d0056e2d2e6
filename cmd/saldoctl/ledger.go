package main

import (
	"context"
	"fmt"
	"log/slog"

	"saldo/internal/backend"
	"saldo/internal/config"
)

// openLedger opens the configured store without seeding it.
func openLedger(ctx context.Context) (*backend.BackendResult, *config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	backendCfg.SeedCategories = false

	result, err := backend.NewFactory(slog.Default()).CreateBackend(ctx, backendCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open ledger: %w", err)
	}
	return result, cfg, nil
}
