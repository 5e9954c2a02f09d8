// Package worker mirrors spending records from SQLite into the external
// ledger, driven by AMQP messages with a periodic catch-up for anything the
// broker lost.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"cardwise/internal/amqp"
	"cardwise/internal/core"
	"cardwise/internal/ledger"
)

// Store is the slice of the repository the worker reads and updates.
type Store interface {
	GetSpending(ctx context.Context, id int64) (core.SpendingRecord, error)
	CardName(ctx context.Context, cardID int64) (string, error)
	PendingSync(ctx context.Context, limit int) ([]int64, error)
	MarkSynced(ctx context.Context, id int64) error
	MarkSyncError(ctx context.Context, id int64) error
}

// Consumer delivers sync messages until its context ends. The AMQP client
// implements it.
type Consumer interface {
	ConsumeSpendingSync(ctx context.Context, handler func(context.Context, *amqp.SpendingSyncMessage) error) error
}

type ExportWorker struct {
	store     Store
	ledger    ledger.Writer
	batchSize int
	interval  time.Duration
}

func NewExportWorker(store Store, w ledger.Writer, batchSize int, interval time.Duration) *ExportWorker {
	return &ExportWorker{
		store:     store,
		ledger:    w,
		batchSize: batchSize,
		interval:  interval,
	}
}

// HandleSyncMessage exports the spending record named by one AMQP message.
func (w *ExportWorker) HandleSyncMessage(ctx context.Context, msg *amqp.SpendingSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message", "id", msg.ID)

	if err := w.export(ctx, msg.ID); err != nil {
		return fmt.Errorf("export spending %d: %w", msg.ID, err)
	}
	return nil
}

// ProcessPending exports any spending records whose messages never arrived.
// Failures are marked and skipped so one bad row cannot stall the batch.
func (w *ExportWorker) ProcessPending(ctx context.Context) error {
	ids, err := w.store.PendingSync(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list pending spending: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending spending records", "count", len(ids))

	for _, id := range ids {
		if err := w.export(ctx, id); err != nil {
			slog.ErrorContext(ctx, "Failed to export pending record", "id", id, "error", err)
		}
	}
	return nil
}

// Run supervises the AMQP consumer and the periodic catch-up until ctx is
// cancelled.
func (w *ExportWorker) Run(ctx context.Context, consumer Consumer) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := consumer.ConsumeSpendingSync(ctx, w.HandleSyncMessage); err != nil && err != context.Canceled {
			return fmt.Errorf("consume sync messages: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if err := w.ProcessPending(ctx); err != nil {
					slog.ErrorContext(ctx, "Periodic catch-up failed", "error", err)
				}
			}
		}
	})

	return g.Wait()
}

func (w *ExportWorker) export(ctx context.Context, id int64) error {
	rec, err := w.store.GetSpending(ctx, id)
	if err != nil {
		w.markError(ctx, id)
		return fmt.Errorf("get spending from storage: %w", err)
	}

	cardName, err := w.store.CardName(ctx, rec.CardID)
	if err != nil {
		w.markError(ctx, id)
		return fmt.Errorf("resolve card name: %w", err)
	}

	ref, err := w.ledger.Append(ctx, ledger.Entry{
		Date:        rec.Date,
		CardName:    cardName,
		Category:    rec.Category,
		Amount:      rec.Amount,
		MilesEarned: rec.MilesEarned,
	})
	if err != nil {
		w.markError(ctx, id)
		return fmt.Errorf("append to ledger: %w", err)
	}

	if err := w.store.MarkSynced(ctx, id); err != nil {
		// The export itself worked; only the bookkeeping failed.
		slog.ErrorContext(ctx, "Failed to mark record as synced", "id", id, "error", err)
		return nil
	}

	slog.InfoContext(ctx, "Exported spending record",
		"id", id,
		"ledger_ref", ref,
		"card", cardName,
		"amount", rec.Amount)

	return nil
}

func (w *ExportWorker) markError(ctx context.Context, id int64) {
	if err := w.store.MarkSyncError(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to mark sync error", "id", id, "error", err)
	}
}
