package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"saldo/internal/core"
	"saldo/internal/ledger"
	"saldo/internal/log"
)

// EventPublisher delivers committed ledger events to the outside world.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, ev core.LedgerEvent) error
}

type SyncProcessorConfig struct {
	// PollInterval is how often to check for pending events (default: 10s)
	PollInterval time.Duration

	// BatchSize is the max number of events to publish per poll cycle (default: 10)
	BatchSize int

	// MaxRetries is the number of attempts before an event is marked failed (default: 3)
	MaxRetries int

	// CleanupInterval is how often to purge published events (default: 1h)
	CleanupInterval time.Duration

	// CleanupAge is how old published events must be before cleanup (default: 24h)
	CleanupAge time.Duration
}

func DefaultSyncProcessorConfig() SyncProcessorConfig {
	return SyncProcessorConfig{
		PollInterval:    10 * time.Second,
		BatchSize:       10,
		MaxRetries:      3,
		CleanupInterval: 1 * time.Hour,
		CleanupAge:      24 * time.Hour,
	}
}

// SyncProcessor drains the ledger outbox into an EventPublisher.
type SyncProcessor struct {
	outbox    ledger.Outbox
	publisher EventPublisher
	config    SyncProcessorConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewSyncProcessor(outbox ledger.Outbox, publisher EventPublisher, config SyncProcessorConfig) *SyncProcessor {
	return &SyncProcessor{
		outbox:    outbox,
		publisher: publisher,
		config:    config,
	}
}

// Start begins the processing loop. Returns an error if already running.
func (p *SyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("sync processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Outbox processor started",
		log.FieldComponent, log.ComponentOutbox,
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)

	return nil
}

// Stop signals the loop and waits for the current batch to finish.
func (p *SyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	close(p.stopCh)

	select {
	case <-p.doneCh:
		slog.InfoContext(ctx, "Outbox processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Outbox processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	return nil
}

func (p *SyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *SyncProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	pollTicker := time.NewTicker(p.config.PollInterval)
	defer pollTicker.Stop()

	cleanupTicker := time.NewTicker(p.config.CleanupInterval)
	defer cleanupTicker.Stop()

	p.ProcessBatch(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-pollTicker.C:
			p.ProcessBatch(ctx)
		case <-cleanupTicker.C:
			p.cleanupPublished(ctx)
		}
	}
}

// ProcessBatch publishes up to BatchSize pending events and returns how
// many were delivered.
func (p *SyncProcessor) ProcessBatch(ctx context.Context) int {
	items, err := p.outbox.PendingEvents(ctx, p.config.BatchSize)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load pending events", "error", err)
		return 0
	}
	if len(items) == 0 {
		return 0
	}

	slog.DebugContext(ctx, "Publishing outbox batch", "count", len(items))

	published := 0
	for _, item := range items {
		select {
		case <-p.stopCh:
			return published
		case <-ctx.Done():
			return published
		default:
		}

		if err := p.publisher.PublishLedgerEvent(ctx, item.Event); err != nil {
			p.handleFailure(ctx, item, err)
			continue
		}
		if err := p.outbox.MarkEventPublished(ctx, item.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to mark event published", "id", item.ID, "error", err)
			continue
		}
		published++
	}
	return published
}

func (p *SyncProcessor) handleFailure(ctx context.Context, item ledger.OutboxItem, publishErr error) {
	slog.WarnContext(ctx, "Event publish failed",
		log.FieldEventID, item.Event.ID,
		log.FieldEventType, string(item.Event.Type),
		"attempt", item.Attempts+1,
		"error", publishErr)

	if item.Attempts+1 >= p.config.MaxRetries {
		if err := p.outbox.MarkEventFailed(ctx, item.ID, publishErr.Error()); err != nil {
			slog.ErrorContext(ctx, "Failed to mark event failed", "id", item.ID, "error", err)
		}
		slog.ErrorContext(ctx, "Event failed permanently after max retries",
			log.FieldEventID, item.Event.ID,
			"attempts", item.Attempts+1)
		return
	}

	if err := p.outbox.MarkEventRetry(ctx, item.ID, publishErr.Error()); err != nil {
		slog.ErrorContext(ctx, "Failed to record event attempt", "id", item.ID, "error", err)
	}
}

func (p *SyncProcessor) cleanupPublished(ctx context.Context) {
	cutoff := time.Now().Add(-p.config.CleanupAge)
	n, err := p.outbox.CleanupPublishedEvents(ctx, cutoff)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to clean up published events", "error", err)
		return
	}
	if n > 0 {
		slog.InfoContext(ctx, "Cleaned up published events", "count", n)
	}
}
