package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"cardwise/internal/amqp"
	"cardwise/internal/calendar"
	"cardwise/internal/core"
	"cardwise/internal/ledger/memory"
)

type fakeStore struct {
	records map[int64]core.SpendingRecord
	names   map[int64]string
	pending []int64
	synced  []int64
	failed  []int64
}

func newStoreWith(recs ...core.SpendingRecord) *fakeStore {
	s := &fakeStore{
		records: make(map[int64]core.SpendingRecord),
		names:   map[int64]string{1: "DBS Altitude"},
	}
	for _, r := range recs {
		s.records[r.ID] = r
		s.pending = append(s.pending, r.ID)
	}
	return s
}

func (s *fakeStore) GetSpending(_ context.Context, id int64) (core.SpendingRecord, error) {
	rec, ok := s.records[id]
	if !ok {
		return core.SpendingRecord{}, errors.New("not found")
	}
	return rec, nil
}

func (s *fakeStore) CardName(_ context.Context, cardID int64) (string, error) {
	name, ok := s.names[cardID]
	if !ok {
		return "", errors.New("card not found")
	}
	return name, nil
}

func (s *fakeStore) PendingSync(_ context.Context, limit int) ([]int64, error) {
	if len(s.pending) > limit {
		return s.pending[:limit], nil
	}
	return s.pending, nil
}

func (s *fakeStore) MarkSynced(_ context.Context, id int64) error {
	s.synced = append(s.synced, id)
	return nil
}

func (s *fakeStore) MarkSyncError(_ context.Context, id int64) error {
	s.failed = append(s.failed, id)
	return nil
}

func record(id int64) core.SpendingRecord {
	return core.SpendingRecord{
		ID:          id,
		CardID:      1,
		Amount:      42.50,
		Category:    "dining",
		Date:        calendar.New(2026, 2, 19),
		MilesEarned: 127.5,
	}
}

func TestHandleSyncMessageExportsRecord(t *testing.T) {
	store := newStoreWith(record(7))
	sink := memory.New()
	w := NewExportWorker(store, sink, 10, time.Minute)

	err := w.HandleSyncMessage(context.Background(), &amqp.SpendingSyncMessage{ID: 7})
	if err != nil {
		t.Fatalf("HandleSyncMessage failed: %v", err)
	}

	entries := sink.Entries()
	if len(entries) != 1 {
		t.Fatalf("got %d ledger entries, want 1", len(entries))
	}
	e := entries[0]
	if e.CardName != "DBS Altitude" || e.Amount != 42.50 || e.MilesEarned != 127.5 || e.Date != calendar.New(2026, 2, 19) {
		t.Errorf("entry mismatch: %+v", e)
	}
	if len(store.synced) != 1 || store.synced[0] != 7 {
		t.Errorf("record not marked synced: %v", store.synced)
	}
}

func TestHandleSyncMessageUnknownRecord(t *testing.T) {
	store := newStoreWith()
	w := NewExportWorker(store, memory.New(), 10, time.Minute)

	if err := w.HandleSyncMessage(context.Background(), &amqp.SpendingSyncMessage{ID: 99}); err == nil {
		t.Fatalf("expected error for unknown record")
	}
	if len(store.failed) != 1 || store.failed[0] != 99 {
		t.Errorf("record not marked errored: %v", store.failed)
	}
}

func TestProcessPendingExportsBatch(t *testing.T) {
	store := newStoreWith(record(1), record(2), record(3))
	sink := memory.New()
	w := NewExportWorker(store, sink, 2, time.Minute)

	if err := w.ProcessPending(context.Background()); err != nil {
		t.Fatalf("ProcessPending failed: %v", err)
	}

	// Batch size caps a single pass.
	if got := len(sink.Entries()); got != 2 {
		t.Errorf("exported %d entries, want 2 (batch size)", got)
	}
}

func TestProcessPendingSkipsBadRows(t *testing.T) {
	good := record(2)
	store := newStoreWith(good)
	store.pending = []int64{1, 2} // id 1 has no record behind it
	sink := memory.New()
	w := NewExportWorker(store, sink, 10, time.Minute)

	if err := w.ProcessPending(context.Background()); err != nil {
		t.Fatalf("ProcessPending failed: %v", err)
	}
	if len(sink.Entries()) != 1 {
		t.Errorf("good row not exported despite bad sibling")
	}
	if len(store.failed) != 1 || store.failed[0] != 1 {
		t.Errorf("bad row not marked: %v", store.failed)
	}
}

func TestProcessPendingEmptyIsNoop(t *testing.T) {
	w := NewExportWorker(newStoreWith(), memory.New(), 10, time.Minute)
	if err := w.ProcessPending(context.Background()); err != nil {
		t.Fatalf("ProcessPending on empty store failed: %v", err)
	}
}

type fakeConsumer struct {
	messages []*amqp.SpendingSyncMessage
}

func (c *fakeConsumer) ConsumeSpendingSync(ctx context.Context, handler func(context.Context, *amqp.SpendingSyncMessage) error) error {
	for _, msg := range c.messages {
		if err := handler(ctx, msg); err != nil {
			return err
		}
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestRunStopsOnContextCancel(t *testing.T) {
	store := newStoreWith(record(5))
	sink := memory.New()
	w := NewExportWorker(store, sink, 10, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	consumer := &fakeConsumer{messages: []*amqp.SpendingSyncMessage{{ID: 5}}}

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, consumer) }()

	// Give the consumer a moment to deliver, then shut down.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v, want nil on cancellation", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not stop after cancel")
	}

	if len(sink.Entries()) != 1 {
		t.Errorf("message not exported before shutdown")
	}
}
