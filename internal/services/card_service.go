// Package services orchestrates card and spending operations across the
// SQLite repository and the AMQP export pipeline.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"cardwise/internal/core"
)

// CardStore is the slice of the repository the card service needs.
type CardStore interface {
	CreateCard(ctx context.Context, c core.Card) (int64, error)
	ListCards(ctx context.Context) ([]core.Card, error)
	DeleteCard(ctx context.Context, id int64) (bool, error)
}

type CardService struct {
	store CardStore
}

func NewCardService(store CardStore) *CardService {
	return &CardService{store: store}
}

// Create validates and persists a new card. Empty category lists fall back
// to the built-in defaults, so a card created without explicit categories
// earns on everything. Configuration problems (a zero block size, an
// impossible renewal day) are rejected here, before anything is stored, so
// the ranking engine never has to tolerate them.
func (s *CardService) Create(ctx context.Context, card core.Card) (core.Card, error) {
	if card.Categories.Len() == 0 {
		card.Categories = core.NewCategorySet(core.DefaultCategories)
	}
	if card.PaymentCategories.Len() == 0 {
		card.PaymentCategories = core.NewCategorySet(core.DefaultPaymentCategories)
	}

	if err := card.Validate(); err != nil {
		return core.Card{}, fmt.Errorf("invalid card configuration: %w", err)
	}

	id, err := s.store.CreateCard(ctx, card)
	if err != nil {
		return core.Card{}, fmt.Errorf("create card: %w", err)
	}
	card.ID = id

	slog.InfoContext(ctx, "Card created",
		"id", card.ID,
		"name", card.Name,
		"categories", card.Categories.Labels(),
		"renewal_day", card.RenewalDay)

	return card, nil
}

// List returns all cards in the collection.
func (s *CardService) List(ctx context.Context) ([]core.Card, error) {
	cards, err := s.store.ListCards(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	return cards, nil
}

// Delete removes a card and its spending records. Returns false when the id
// does not exist.
func (s *CardService) Delete(ctx context.Context, id int64) (bool, error) {
	removed, err := s.store.DeleteCard(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete card: %w", err)
	}
	if removed {
		slog.InfoContext(ctx, "Card removed", "id", id)
	}
	return removed, nil
}
