package core

import (
	"errors"
	"testing"
)

func testCard() Card {
	return Card{
		Name:              "DBS Altitude",
		Categories:        NewCategorySet([]string{"dining", "travel"}),
		PaymentCategories: NewCategorySet(DefaultPaymentCategories),
		MilesPerDollar:    3.0,
		BlockSize:         1.0,
		RenewalDay:        15,
	}
}

func TestCardValidate(t *testing.T) {
	if err := testCard().Validate(); err != nil {
		t.Fatalf("expected valid card, got %v", err)
	}

	neg := -5.0
	zero := 0.0
	cases := []struct {
		name   string
		mutate func(*Card)
		want   error
	}{
		{"empty name", func(c *Card) { c.Name = "  " }, ErrEmptyName},
		{"zero block size", func(c *Card) { c.BlockSize = 0 }, ErrInvalidBlockSize},
		{"negative block size", func(c *Card) { c.BlockSize = -1 }, ErrInvalidBlockSize},
		{"negative rate", func(c *Card) { c.MilesPerDollar = -0.5 }, ErrInvalidRate},
		{"renewal day zero", func(c *Card) { c.RenewalDay = 0 }, ErrInvalidRenewalDay},
		{"renewal day 32", func(c *Card) { c.RenewalDay = 32 }, ErrInvalidRenewalDay},
		{"negative reward limit", func(c *Card) { c.MaxRewardLimit = &neg }, ErrInvalidRewardLimit},
		{"zero min spend", func(c *Card) { c.MinSpend = &zero }, ErrInvalidMinSpend},
		{"no categories", func(c *Card) { c.Categories = NewCategorySet(nil) }, ErrNoCategories},
		{"no payment methods", func(c *Card) { c.PaymentCategories = NewCategorySet(nil) }, ErrNoPaymentMethods},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := testCard()
			tc.mutate(&c)
			if err := c.Validate(); !errors.Is(err, tc.want) {
				t.Errorf("Validate() = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestCategorySet(t *testing.T) {
	s := NewCategorySet([]string{"Dining", " travel ", "dining", "", "TRAVEL"})
	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 (duplicates and blanks dropped)", s.Len())
	}
	for _, label := range []string{"dining", "DINING", "Travel"} {
		if !s.Contains(label) {
			t.Errorf("Contains(%q) = false, want true", label)
		}
	}
	if s.Contains("groceries") {
		t.Errorf("Contains(groceries) = true, want false")
	}
	// Original casing of the first occurrence is preserved for display.
	labels := s.Labels()
	if labels[0] != "Dining" || labels[1] != "travel" {
		t.Errorf("Labels() = %v, want [Dining travel]", labels)
	}
}

func TestEffectiveRate(t *testing.T) {
	c := testCard()
	c.MilesPerDollar = 10.0
	c.BlockSize = 5.0
	if got := c.EffectiveRate(); got != 2.0 {
		t.Errorf("EffectiveRate() = %v, want 2.0", got)
	}
}

func TestMiles(t *testing.T) {
	cases := []struct {
		amount, block, rate, want float64
	}{
		{42.50, 5.0, 10.0, 80.0},
		{3.0, 5.0, 10.0, 0.0},
		{42.50, 1.0, 3.0, 126.0},
		{100.0, 1.0, 3.0, 300.0},
		{4.999, 5.0, 10.0, 0.0},
		{5.0, 5.0, 10.0, 10.0},
		{0.0, 5.0, 10.0, 0.0},
	}
	for _, tc := range cases {
		if got := Miles(tc.amount, tc.block, tc.rate); got != tc.want {
			t.Errorf("Miles(%v, %v, %v) = %v, want %v", tc.amount, tc.block, tc.rate, got, tc.want)
		}
	}
}

func TestSpendingRecordValidate(t *testing.T) {
	bads := []SpendingRecord{
		{Amount: 0, Category: "dining"},
		{Amount: -10, Category: "dining"},
		{Amount: 10, Category: "  "},
	}
	for i, r := range bads {
		if err := r.Validate(); err == nil {
			t.Errorf("case %d expected error", i)
		}
	}
	ok := SpendingRecord{Amount: 12.5, Category: "dining"}
	if err := ok.Validate(); err != nil {
		t.Errorf("expected ok, got %v", err)
	}
}
