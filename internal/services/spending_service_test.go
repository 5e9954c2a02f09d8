package services

import (
	"context"
	"errors"
	"testing"

	"cardwise/internal/calendar"
	"cardwise/internal/core"
)

type fakeSpendingStore struct {
	rate, block float64
	ratesErr    error
	addErr      error
	added       []core.SpendingRecord
	nextID      int64
}

func (f *fakeSpendingStore) CardRates(context.Context, int64) (float64, float64, error) {
	if f.ratesErr != nil {
		return 0, 0, f.ratesErr
	}
	return f.rate, f.block, nil
}

func (f *fakeSpendingStore) AddSpending(_ context.Context, rec core.SpendingRecord) (int64, error) {
	if f.addErr != nil {
		return 0, f.addErr
	}
	f.nextID++
	f.added = append(f.added, rec)
	return f.nextID, nil
}

func (f *fakeSpendingStore) ListSpending(context.Context, *int64) ([]core.SpendingRecord, error) {
	return f.added, nil
}

type fakePublisher struct {
	published []int64
	err       error
}

func (f *fakePublisher) PublishSpendingSync(_ context.Context, id int64) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, id)
	return nil
}

func TestRecordComputesMilesOnce(t *testing.T) {
	store := &fakeSpendingStore{rate: 10.0, block: 5.0}
	pub := &fakePublisher{}
	svc := NewSpendingService(store, pub)

	rec, err := svc.Record(context.Background(), 1, 42.50, "dining", calendar.New(2026, 2, 19))
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if rec.MilesEarned != 80.0 {
		t.Errorf("MilesEarned = %v, want 80", rec.MilesEarned)
	}
	if rec.ID != 1 {
		t.Errorf("ID = %d, want 1", rec.ID)
	}
	if len(store.added) != 1 || store.added[0].MilesEarned != 80.0 {
		t.Errorf("stored record = %+v", store.added)
	}
	if len(pub.published) != 1 || pub.published[0] != 1 {
		t.Errorf("published = %v, want [1]", pub.published)
	}
}

func TestRecordBelowBlockEarnsNothing(t *testing.T) {
	store := &fakeSpendingStore{rate: 10.0, block: 5.0}
	svc := NewSpendingService(store, nil)

	rec, err := svc.Record(context.Background(), 1, 3.0, "dining", calendar.New(2026, 2, 19))
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if rec.MilesEarned != 0.0 {
		t.Errorf("MilesEarned = %v, want 0", rec.MilesEarned)
	}
}

func TestRecordRejectsInvalidInput(t *testing.T) {
	svc := NewSpendingService(&fakeSpendingStore{rate: 3, block: 1}, nil)

	if _, err := svc.Record(context.Background(), 1, 0, "dining", calendar.New(2026, 2, 19)); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("zero amount: got %v, want ErrInvalidAmount", err)
	}
	if _, err := svc.Record(context.Background(), 1, 10, "  ", calendar.New(2026, 2, 19)); err == nil {
		t.Errorf("blank category accepted")
	}
}

func TestRecordPropagatesStoreErrors(t *testing.T) {
	boom := errors.New("db down")

	svc := NewSpendingService(&fakeSpendingStore{ratesErr: boom}, nil)
	if _, err := svc.Record(context.Background(), 1, 10, "dining", calendar.New(2026, 2, 19)); !errors.Is(err, boom) {
		t.Errorf("rates error not propagated: %v", err)
	}

	svc = NewSpendingService(&fakeSpendingStore{rate: 3, block: 1, addErr: boom}, nil)
	if _, err := svc.Record(context.Background(), 1, 10, "dining", calendar.New(2026, 2, 19)); !errors.Is(err, boom) {
		t.Errorf("add error not propagated: %v", err)
	}
}

func TestRecordPublishFailureIsNonFatal(t *testing.T) {
	store := &fakeSpendingStore{rate: 3.0, block: 1.0}
	pub := &fakePublisher{err: errors.New("broker unreachable")}
	svc := NewSpendingService(store, pub)

	rec, err := svc.Record(context.Background(), 1, 10.0, "dining", calendar.New(2026, 2, 19))
	if err != nil {
		t.Fatalf("Record should succeed when publish fails: %v", err)
	}
	if rec.ID == 0 || len(store.added) != 1 {
		t.Errorf("record not stored despite publish failure")
	}
}

func TestRecordWithoutPublisher(t *testing.T) {
	svc := NewSpendingService(&fakeSpendingStore{rate: 3.0, block: 1.0}, nil)
	if _, err := svc.Record(context.Background(), 1, 10.0, "dining", calendar.New(2026, 2, 19)); err != nil {
		t.Fatalf("Record without publisher failed: %v", err)
	}
}
