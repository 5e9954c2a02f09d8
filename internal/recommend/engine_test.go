package recommend

import (
	"context"
	"errors"
	"testing"

	"cardwise/internal/calendar"
	"cardwise/internal/core"
)

// fakeStore implements Store in memory with the same matching semantics the
// SQLite repository provides.
type fakeStore struct {
	cards    []core.Card
	spending map[int64][]core.SpendingRecord

	findErr error
	sumErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{spending: make(map[int64][]core.SpendingRecord)}
}

func (f *fakeStore) addCard(c core.Card) core.Card {
	c.ID = int64(len(f.cards) + 1)
	if c.PaymentCategories.Len() == 0 {
		c.PaymentCategories = core.NewCategorySet(core.DefaultPaymentCategories)
	}
	f.cards = append(f.cards, c)
	return c
}

func (f *fakeStore) addSpending(cardID int64, amount float64, date calendar.Date) {
	f.spending[cardID] = append(f.spending[cardID], core.SpendingRecord{
		CardID: cardID, Amount: amount, Category: "dining", Date: date,
	})
}

func (f *fakeStore) FindCardsByCategoryAndPayment(_ context.Context, category, payment string) ([]core.Card, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	var out []core.Card
	for _, c := range f.cards {
		if c.Categories.Contains(category) && c.PaymentCategories.Contains(payment) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) SumSpendingSince(_ context.Context, cardID int64, since calendar.Date) (float64, error) {
	if f.sumErr != nil {
		return 0, f.sumErr
	}
	var total float64
	for _, r := range f.spending[cardID] {
		if !r.Date.Before(since) {
			total += r.Amount
		}
	}
	return total, nil
}

func opt(v float64) *float64 { return &v }

func dining(name string, rate, block float64, renewal int) core.Card {
	return core.Card{
		Name:           name,
		Categories:     core.NewCategorySet([]string{"dining"}),
		MilesPerDollar: rate,
		BlockSize:      block,
		RenewalDay:     renewal,
	}
}

func recommend(t *testing.T, store *fakeStore, category string, amount float64, date calendar.Date) []core.Recommendation {
	t.Helper()
	got, err := NewEngine(store).Recommend(context.Background(), Request{
		Category:        category,
		PaymentCategory: "contactless",
		Amount:          amount,
		Date:            date,
	})
	if err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}
	return got
}

func TestRecommendSingleMatch(t *testing.T) {
	store := newFakeStore()
	store.addCard(dining("DBS Altitude", 3.0, 1.0, 1))

	got := recommend(t, store, "dining", 10.0, calendar.New(2026, 2, 19))
	if len(got) != 1 {
		t.Fatalf("got %d results, want 1", len(got))
	}
	r := got[0]
	if r.CardName != "DBS Altitude" || r.EffectiveRate != 3.0 || !r.Eligible || r.Reason != "Eligible" {
		t.Errorf("unexpected recommendation: %+v", r)
	}
	if r.RemainingLimit != nil {
		t.Errorf("RemainingLimit = %v, want nil for unlimited card", *r.RemainingLimit)
	}
}

func TestRecommendNoMatchIsEmptyNotError(t *testing.T) {
	store := newFakeStore()
	store.addCard(dining("Card A", 3.0, 1.0, 1))

	if got := recommend(t, store, "travel", 10.0, calendar.New(2026, 2, 19)); len(got) != 0 {
		t.Errorf("got %d results, want 0", len(got))
	}
}

func TestRecommendPaymentCategoryFilters(t *testing.T) {
	store := newFakeStore()
	c := dining("Contactless Only", 3.0, 1.0, 1)
	c.PaymentCategories = core.NewCategorySet([]string{"contactless"})
	store.addCard(c)

	got, err := NewEngine(store).Recommend(context.Background(), Request{
		Category: "dining", PaymentCategory: "online", Amount: 10.0, Date: calendar.New(2026, 2, 19),
	})
	if err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d results, want 0 for unsupported payment category", len(got))
	}
}

func TestRecommendRankedByEffectiveRate(t *testing.T) {
	store := newFakeStore()
	store.addCard(dining("Card A", 3.0, 1.0, 1))
	store.addCard(dining("Card B", 10.0, 5.0, 1)) // effective 2.0
	store.addCard(dining("Card C", 4.0, 1.0, 1))

	got := recommend(t, store, "dining", 10.0, calendar.New(2026, 2, 19))
	want := []string{"Card C", "Card A", "Card B"}
	for i, name := range want {
		if got[i].CardName != name {
			t.Errorf("rank %d = %s, want %s", i, got[i].CardName, name)
		}
	}
}

func TestRecommendEligibilityOutranksRate(t *testing.T) {
	store := newFakeStore()
	a := dining("Rate 3", 3.0, 1.0, 1)
	b := dining("Rate 4", 4.0, 1.0, 1)
	c := dining("Rate 2 blocked", 2.0, 1.0, 1)
	c.MinSpend = opt(500.0)
	store.addCard(a)
	store.addCard(b)
	store.addCard(c)

	got := recommend(t, store, "dining", 10.0, calendar.New(2026, 2, 19))
	want := []string{"Rate 4", "Rate 3", "Rate 2 blocked"}
	for i, name := range want {
		if got[i].CardName != name {
			t.Fatalf("rank %d = %s, want %s", i, got[i].CardName, name)
		}
	}
	if got[2].Eligible {
		t.Errorf("blocked card reported eligible")
	}
}

func TestRecommendStableOnRateTies(t *testing.T) {
	store := newFakeStore()
	store.addCard(dining("First", 3.0, 1.0, 1))
	store.addCard(dining("Second", 3.0, 1.0, 1))

	got := recommend(t, store, "dining", 10.0, calendar.New(2026, 2, 19))
	if got[0].CardName != "First" || got[1].CardName != "Second" {
		t.Errorf("tie order changed: %s, %s", got[0].CardName, got[1].CardName)
	}
}

func TestRecommendRewardLimit(t *testing.T) {
	store := newFakeStore()
	c := dining("Limited", 4.0, 1.0, 1)
	c.MaxRewardLimit = opt(100.0)
	c = store.addCard(c)
	store.addSpending(c.ID, 90.0, calendar.New(2026, 2, 5))

	ref := calendar.New(2026, 2, 19)

	// $20 does not fit in the $10 of remaining headroom.
	got := recommend(t, store, "dining", 20.0, ref)
	if got[0].Eligible {
		t.Fatalf("expected ineligible, got %+v", got[0])
	}
	if got[0].Reason != "Exceeds reward limit ($10.00 remaining)" {
		t.Errorf("Reason = %q", got[0].Reason)
	}
	if got[0].RemainingLimit == nil || *got[0].RemainingLimit != 10.0 {
		t.Errorf("RemainingLimit = %v, want 10", got[0].RemainingLimit)
	}

	// $10 exactly fits.
	got = recommend(t, store, "dining", 10.0, ref)
	if !got[0].Eligible {
		t.Errorf("expected eligible for $10, got %+v", got[0])
	}
}

func TestRecommendRemainingLimitNeverNegative(t *testing.T) {
	store := newFakeStore()
	c := dining("Overspent", 4.0, 1.0, 1)
	c.MaxRewardLimit = opt(100.0)
	c = store.addCard(c)
	store.addSpending(c.ID, 150.0, calendar.New(2026, 2, 5))

	got := recommend(t, store, "dining", 5.0, calendar.New(2026, 2, 19))
	if got[0].RemainingLimit == nil || *got[0].RemainingLimit != 0 {
		t.Errorf("RemainingLimit = %v, want 0", got[0].RemainingLimit)
	}
}

func TestRecommendMinSpend(t *testing.T) {
	store := newFakeStore()
	c := dining("Min Spend", 4.0, 1.0, 1)
	c.MinSpend = opt(500.0)
	c = store.addCard(c)

	ref := calendar.New(2026, 2, 19)

	// No prior spend: ineligible regardless of transaction size. The
	// prospective transaction cannot satisfy its own gate.
	got := recommend(t, store, "dining", 1000.0, ref)
	if got[0].Eligible {
		t.Fatalf("expected ineligible, got %+v", got[0])
	}
	if got[0].Reason != "Min spend not met ($500.00 more needed)" {
		t.Errorf("Reason = %q", got[0].Reason)
	}

	// $600 of prior spend in the cycle clears the gate.
	store.addSpending(c.ID, 600.0, calendar.New(2026, 2, 5))
	got = recommend(t, store, "dining", 10.0, ref)
	if !got[0].Eligible {
		t.Errorf("expected eligible after prior spend, got %+v", got[0])
	}
}

func TestRecommendLimitCheckedBeforeMinSpend(t *testing.T) {
	store := newFakeStore()
	c := dining("Both Gates", 4.0, 1.0, 1)
	c.MaxRewardLimit = opt(100.0)
	c.MinSpend = opt(500.0)
	c = store.addCard(c)
	store.addSpending(c.ID, 99.0, calendar.New(2026, 2, 5))

	got := recommend(t, store, "dining", 50.0, calendar.New(2026, 2, 19))
	if got[0].Reason != "Exceeds reward limit ($1.00 remaining)" {
		t.Errorf("Reason = %q, want the limit reason to win", got[0].Reason)
	}
}

func TestRecommendWeekendAdjustedCycle(t *testing.T) {
	// Renewal day 15 in Feb 2026 is a Sunday and adjusts to Friday the 13th,
	// so spending on the 14th is inside the current cycle and spending on the
	// 12th is not.
	store := newFakeStore()
	c := dining("Weekend", 4.0, 1.0, 15)
	c.MaxRewardLimit = opt(200.0)
	c = store.addCard(c)
	store.addSpending(c.ID, 150.0, calendar.New(2026, 2, 14))

	ref := calendar.New(2026, 2, 19)
	got := recommend(t, store, "dining", 60.0, ref)
	if got[0].Eligible {
		t.Fatalf("expected ineligible: $150 counted, $50 remaining")
	}
	if *got[0].RemainingLimit != 50.0 {
		t.Errorf("RemainingLimit = %v, want 50", *got[0].RemainingLimit)
	}

	// Move the spend before the adjusted boundary: previous cycle, ignored.
	store.spending[c.ID] = nil
	store.addSpending(c.ID, 180.0, calendar.New(2026, 2, 12))
	got = recommend(t, store, "dining", 50.0, ref)
	if !got[0].Eligible {
		t.Fatalf("expected eligible, previous-cycle spend must not count")
	}
	if *got[0].RemainingLimit != 200.0 {
		t.Errorf("RemainingLimit = %v, want 200", *got[0].RemainingLimit)
	}
}

func TestRecommendMilesEarned(t *testing.T) {
	store := newFakeStore()
	store.addCard(dining("Blocky", 10.0, 5.0, 1))

	got := recommend(t, store, "dining", 42.50, calendar.New(2026, 2, 19))
	if got[0].MilesEarned != 80.0 {
		t.Errorf("MilesEarned = %v, want 80", got[0].MilesEarned)
	}
}

func TestRecommendStorageErrorsPropagate(t *testing.T) {
	boom := errors.New("storage down")

	store := newFakeStore()
	store.findErr = boom
	if _, err := NewEngine(store).Recommend(context.Background(), Request{Category: "dining", PaymentCategory: "contactless"}); !errors.Is(err, boom) {
		t.Errorf("find error not propagated: %v", err)
	}

	store = newFakeStore()
	store.addCard(dining("Card A", 3.0, 1.0, 1))
	store.sumErr = boom
	got, err := NewEngine(store).Recommend(context.Background(), Request{
		Category: "dining", PaymentCategory: "contactless", Amount: 10, Date: calendar.New(2026, 2, 19),
	})
	if !errors.Is(err, boom) {
		t.Errorf("sum error not propagated: %v", err)
	}
	if got != nil {
		t.Errorf("expected no partial results, got %v", got)
	}
}
