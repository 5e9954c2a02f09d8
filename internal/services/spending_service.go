package services

import (
	"context"
	"fmt"
	"log/slog"

	"cardwise/internal/calendar"
	"cardwise/internal/core"
)

// SpendingStore is the slice of the repository the spending service needs.
type SpendingStore interface {
	CardRates(ctx context.Context, cardID int64) (milesPerDollar, blockSize float64, err error)
	AddSpending(ctx context.Context, rec core.SpendingRecord) (int64, error)
	ListSpending(ctx context.Context, cardID *int64) ([]core.SpendingRecord, error)
}

// SyncPublisher publishes ledger export messages. The AMQP client implements
// it; a nil publisher disables the pipeline.
type SyncPublisher interface {
	PublishSpendingSync(ctx context.Context, id int64) error
}

type SpendingService struct {
	store     SpendingStore
	publisher SyncPublisher
}

func NewSpendingService(store SpendingStore, publisher SyncPublisher) *SpendingService {
	return &SpendingService{store: store, publisher: publisher}
}

// Record stores a spending transaction. The miles earned are computed once
// from the card's current rates and stored with the record; later changes to
// the card never rewrite history. After the local write an export message is
// published; a publish failure is logged and swallowed, since SQLite is the
// source of truth and the worker's periodic catch-up will pick the row up.
func (s *SpendingService) Record(ctx context.Context, cardID int64, amount float64, category string, date calendar.Date) (core.SpendingRecord, error) {
	rec := core.SpendingRecord{
		CardID:   cardID,
		Amount:   amount,
		Category: category,
		Date:     date,
	}
	if err := rec.Validate(); err != nil {
		return core.SpendingRecord{}, err
	}

	rate, block, err := s.store.CardRates(ctx, cardID)
	if err != nil {
		return core.SpendingRecord{}, fmt.Errorf("look up card rates: %w", err)
	}
	rec.MilesEarned = core.Miles(amount, block, rate)

	id, err := s.store.AddSpending(ctx, rec)
	if err != nil {
		return core.SpendingRecord{}, fmt.Errorf("save spending: %w", err)
	}
	rec.ID = id

	slog.InfoContext(ctx, "Spending recorded",
		"id", rec.ID,
		"card_id", cardID,
		"amount", amount,
		"miles_earned", rec.MilesEarned,
		"date", date.String())

	if s.publisher != nil {
		if err := s.publisher.PublishSpendingSync(ctx, id); err != nil {
			slog.ErrorContext(ctx, "Failed to publish ledger sync message",
				"id", id, "error", err)
		}
	}

	return rec, nil
}

// List returns spending records newest-first, optionally for one card.
func (s *SpendingService) List(ctx context.Context, cardID *int64) ([]core.SpendingRecord, error) {
	recs, err := s.store.ListSpending(ctx, cardID)
	if err != nil {
		return nil, fmt.Errorf("list spending: %w", err)
	}
	return recs, nil
}
