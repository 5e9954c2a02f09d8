// Package recommend ranks the cards in the collection for a prospective
// transaction, filtering out cards that are temporarily ineligible because of
// per-cycle reward limits or unmet minimum-spend thresholds.
package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"cardwise/internal/calendar"
	"cardwise/internal/core"
)

// Store is the slice of the storage collaborator the engine reads from.
type Store interface {
	// FindCardsByCategoryAndPayment returns the distinct cards whose
	// category set contains category and whose payment-category set contains
	// paymentCategory, both case-insensitive.
	FindCardsByCategoryAndPayment(ctx context.Context, category, paymentCategory string) ([]core.Card, error)

	// SumSpendingSince returns the sum of recorded spending amounts for the
	// card dated on or after since. Zero when there are no records.
	SumSpendingSince(ctx context.Context, cardID int64, since calendar.Date) (float64, error)
}

// Request describes the prospective transaction.
type Request struct {
	Category        string
	PaymentCategory string
	Amount          float64
	Date            calendar.Date
}

type Engine struct {
	store Store
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// Recommend returns every qualifying card ranked best-first: eligible cards
// ahead of ineligible ones, descending effective rate within each group. The
// sort is stable, so rate ties keep the storage order. An empty result is not
// an error; a storage failure is, and yields no partial list.
//
// The cycle-to-date total counts only spending already recorded, never the
// prospective transaction itself. In particular a transaction cannot satisfy
// its own minimum-spend gate.
func (e *Engine) Recommend(ctx context.Context, req Request) ([]core.Recommendation, error) {
	cards, err := e.store.FindCardsByCategoryAndPayment(ctx, req.Category, req.PaymentCategory)
	if err != nil {
		return nil, fmt.Errorf("find candidate cards: %w", err)
	}

	results := make([]core.Recommendation, 0, len(cards))
	for _, card := range cards {
		cycleStart := calendar.CycleStart(card.RenewalDay, req.Date)
		cycleTotal, err := e.store.SumSpendingSince(ctx, card.ID, cycleStart)
		if err != nil {
			return nil, fmt.Errorf("sum cycle spending for card %d: %w", card.ID, err)
		}

		rec := evaluate(card, req.Amount, cycleTotal)

		slog.DebugContext(ctx, "Evaluated candidate card",
			"card", card.Name,
			"cycle_start", cycleStart.String(),
			"cycle_total", cycleTotal,
			"eligible", rec.Eligible)

		results = append(results, rec)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Eligible != results[j].Eligible {
			return results[i].Eligible
		}
		return results[i].EffectiveRate > results[j].EffectiveRate
	})

	return results, nil
}

// evaluate applies the eligibility rules to one candidate. The checks run in
// priority order and the first failing rule supplies the reason.
func evaluate(card core.Card, amount, cycleTotal float64) core.Recommendation {
	rec := core.Recommendation{
		CardName:       card.Name,
		MilesPerDollar: card.MilesPerDollar,
		BlockSize:      card.BlockSize,
		EffectiveRate:  card.EffectiveRate(),
		MilesEarned:    core.Miles(amount, card.BlockSize, card.MilesPerDollar),
	}

	if card.MaxRewardLimit != nil {
		remaining := *card.MaxRewardLimit - cycleTotal
		if remaining < 0 {
			remaining = 0
		}
		rec.RemainingLimit = &remaining

		if amount > remaining {
			rec.Eligible = false
			rec.Reason = fmt.Sprintf("Exceeds reward limit ($%.2f remaining)", remaining)
			return rec
		}
	}

	if card.MinSpend != nil && cycleTotal < *card.MinSpend {
		rec.Eligible = false
		rec.Reason = fmt.Sprintf("Min spend not met ($%.2f more needed)", *card.MinSpend-cycleTotal)
		return rec
	}

	rec.Eligible = true
	rec.Reason = "Eligible"
	return rec
}
