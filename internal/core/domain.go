// Package core holds the card and spending domain types shared by the
// storage layer, the recommendation engine and the user-facing surfaces.
package core

import (
	"errors"
	"strings"

	"cardwise/internal/calendar"
)

// DefaultCategories is the built-in spending taxonomy, used when a card is
// created without an explicit category list.
var DefaultCategories = []string{
	"dining",
	"travel",
	"groceries",
	"transport",
	"shopping",
	"entertainment",
}

// DefaultPaymentCategories lists the payment methods a card accepts when none
// are given explicitly.
var DefaultPaymentCategories = []string{
	"contactless",
	"online",
	"chip",
}

type (
	// CategorySet is a set of category labels with case-insensitive
	// membership. Labels keep their original casing for display.
	CategorySet struct {
		labels []string
		index  map[string]struct{}
	}

	// Card describes one credit card in the collection. A card is immutable
	// once created; changes happen by replacement or deletion.
	Card struct {
		ID                    int64
		Name                  string
		Categories            CategorySet
		PaymentCategories     CategorySet
		MilesPerDollar        float64 // miles earned per spending block
		MilesPerDollarForeign *float64 // informational only, never ranked on
		BlockSize             float64 // dollars per block, > 0
		RenewalDay            int     // day of month the statement renews, 1-31
		MaxRewardLimit        *float64 // reward-eligible spend per cycle, nil = unlimited
		MinSpend              *float64 // spend required before rewards accrue, nil = none
	}

	// SpendingRecord is one recorded transaction. MilesEarned is computed
	// once at recording time from the card's rates as they were then; it is
	// never recomputed if the card changes later.
	SpendingRecord struct {
		ID          int64
		CardID      int64
		Amount      float64
		Category    string
		Date        calendar.Date
		MilesEarned float64
	}

	// Recommendation is one ranked candidate for a prospective transaction.
	Recommendation struct {
		CardName       string
		MilesPerDollar float64
		BlockSize      float64
		EffectiveRate  float64
		MilesEarned    float64
		RemainingLimit *float64 // nil when the card has no reward limit
		Eligible       bool
		Reason         string
	}
)

// Card configuration errors, surfaced at creation time.
var (
	ErrEmptyName          = errors.New("card name must not be empty")
	ErrInvalidBlockSize   = errors.New("block size must be positive")
	ErrInvalidRate        = errors.New("miles per dollar must not be negative")
	ErrInvalidRenewalDay  = errors.New("renewal day must be between 1 and 31")
	ErrInvalidRewardLimit = errors.New("max reward limit must be positive")
	ErrInvalidMinSpend    = errors.New("min spend must be positive")
	ErrNoCategories       = errors.New("card must accept at least one spending category")
	ErrNoPaymentMethods   = errors.New("card must accept at least one payment category")
)

// ErrInvalidAmount rejects non-positive spending amounts.
var ErrInvalidAmount = errors.New("amount must be positive")

// NewCategorySet builds a set from labels, dropping blanks and
// case-insensitive duplicates while preserving first-seen order and casing.
func NewCategorySet(labels []string) CategorySet {
	s := CategorySet{index: make(map[string]struct{}, len(labels))}
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		key := strings.ToLower(l)
		if _, ok := s.index[key]; ok {
			continue
		}
		s.index[key] = struct{}{}
		s.labels = append(s.labels, l)
	}
	return s
}

// Contains reports case-insensitive membership.
func (s CategorySet) Contains(label string) bool {
	_, ok := s.index[strings.ToLower(label)]
	return ok
}

// Labels returns the member labels in insertion order.
func (s CategorySet) Labels() []string {
	return append([]string(nil), s.labels...)
}

// Len returns the number of members.
func (s CategorySet) Len() int {
	return len(s.labels)
}

// Validate checks the card's configuration. Anything that would make the
// ranking arithmetic meaningless (a zero block size above all) is rejected
// here rather than tolerated later.
func (c Card) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if c.BlockSize <= 0 {
		return ErrInvalidBlockSize
	}
	if c.MilesPerDollar < 0 {
		return ErrInvalidRate
	}
	if c.RenewalDay < 1 || c.RenewalDay > 31 {
		return ErrInvalidRenewalDay
	}
	if c.MaxRewardLimit != nil && *c.MaxRewardLimit <= 0 {
		return ErrInvalidRewardLimit
	}
	if c.MinSpend != nil && *c.MinSpend <= 0 {
		return ErrInvalidMinSpend
	}
	if c.Categories.Len() == 0 {
		return ErrNoCategories
	}
	if c.PaymentCategories.Len() == 0 {
		return ErrNoPaymentMethods
	}
	return nil
}

// EffectiveRate is the card's miles per single dollar: base rate divided by
// block size. Validate guarantees the divisor is positive.
func (c Card) EffectiveRate() float64 {
	return c.MilesPerDollar / c.BlockSize
}

// Validate checks a spending record before it is persisted.
func (r SpendingRecord) Validate() error {
	if r.Amount <= 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(r.Category) == "" {
		return errors.New("category must not be empty")
	}
	return nil
}
