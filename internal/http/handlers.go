package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cardwise/internal/calendar"
	"cardwise/internal/core"
	"cardwise/internal/recommend"
	"cardwise/internal/storage"
)

// maxBodyBytes caps the size of accepted request bodies.
const maxBodyBytes = 1 << 20

type cardPayload struct {
	ID                    int64    `json:"id,omitempty"`
	Name                  string   `json:"name"`
	Categories            []string `json:"categories,omitempty"`
	PaymentCategories     []string `json:"payment_categories,omitempty"`
	MilesPerDollar        float64  `json:"miles_per_dollar"`
	MilesPerDollarForeign *float64 `json:"miles_per_dollar_foreign,omitempty"`
	BlockSize             float64  `json:"block_size"`
	RenewalDay            int      `json:"renewal_day"`
	MaxRewardLimit        *float64 `json:"max_reward_limit,omitempty"`
	MinSpend              *float64 `json:"min_spend,omitempty"`
}

type spendingPayload struct {
	ID          int64   `json:"id,omitempty"`
	CardID      int64   `json:"card_id"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
	Date        string  `json:"date,omitempty"`
	MilesEarned float64 `json:"miles_earned,omitempty"`
}

type recommendationPayload struct {
	CardName       string   `json:"card_name"`
	MilesPerDollar float64  `json:"miles_per_dollar"`
	BlockSize      float64  `json:"block_size"`
	EffectiveRate  float64  `json:"effective_rate"`
	MilesEarned    float64  `json:"miles_earned"`
	RemainingLimit *float64 `json:"remaining_limit,omitempty"`
	Eligible       bool     `json:"eligible"`
	Reason         string   `json:"reason"`
}

func cardToPayload(c core.Card) cardPayload {
	return cardPayload{
		ID:                    c.ID,
		Name:                  c.Name,
		Categories:            c.Categories.Labels(),
		PaymentCategories:     c.PaymentCategories.Labels(),
		MilesPerDollar:        c.MilesPerDollar,
		MilesPerDollarForeign: c.MilesPerDollarForeign,
		BlockSize:             c.BlockSize,
		RenewalDay:            c.RenewalDay,
		MaxRewardLimit:        c.MaxRewardLimit,
		MinSpend:              c.MinSpend,
	}
}

func spendingToPayload(rec core.SpendingRecord) spendingPayload {
	return spendingPayload{
		ID:          rec.ID,
		CardID:      rec.CardID,
		Amount:      rec.Amount,
		Category:    rec.Category,
		Date:        rec.Date.String(),
		MilesEarned: rec.MilesEarned,
	}
}

func (s *Server) handleCards(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListCards(w, r)
	case http.MethodPost:
		s.handleCreateCard(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	cards, err := s.cards.List(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "List cards failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	out := make([]cardPayload, 0, len(cards))
	for _, c := range cards {
		out = append(out, cardToPayload(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	var in cardPayload
	if err := readJSON(w, r, &in); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	card := core.Card{
		Name:                  strings.TrimSpace(in.Name),
		Categories:            core.NewCategorySet(in.Categories),
		PaymentCategories:     core.NewCategorySet(in.PaymentCategories),
		MilesPerDollar:        in.MilesPerDollar,
		MilesPerDollarForeign: in.MilesPerDollarForeign,
		BlockSize:             in.BlockSize,
		RenewalDay:            in.RenewalDay,
		MaxRewardLimit:        in.MaxRewardLimit,
		MinSpend:              in.MinSpend,
	}

	created, err := s.cards.Create(r.Context(), card)
	if err != nil {
		if isValidationError(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		slog.ErrorContext(r.Context(), "Create card failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, cardToPayload(created))
}

func (s *Server) handleCardByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	idStr := strings.TrimPrefix(r.URL.Path, "/cards/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id < 1 {
		http.Error(w, "invalid card id", http.StatusBadRequest)
		return
	}

	removed, err := s.cards.Delete(r.Context(), id)
	if err != nil {
		slog.ErrorContext(r.Context(), "Delete card failed", "error", err, "card_id", id)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !removed {
		http.Error(w, "card not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSpending(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListSpending(w, r)
	case http.MethodPost:
		s.handleRecordSpending(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleListSpending(w http.ResponseWriter, r *http.Request) {
	var cardID *int64
	if v := strings.TrimSpace(r.URL.Query().Get("card_id")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id < 1 {
			http.Error(w, "invalid card_id", http.StatusBadRequest)
			return
		}
		cardID = &id
	}

	records, err := s.spending.List(r.Context(), cardID)
	if err != nil {
		slog.ErrorContext(r.Context(), "List spending failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	out := make([]spendingPayload, 0, len(records))
	for _, rec := range records {
		out = append(out, spendingToPayload(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRecordSpending(w http.ResponseWriter, r *http.Request) {
	var in spendingPayload
	if err := readJSON(w, r, &in); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	date, err := parseDateOrToday(in.Date)
	if err != nil {
		http.Error(w, "invalid date, want YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	rec, err := s.spending.Record(r.Context(), in.CardID, in.Amount, strings.TrimSpace(in.Category), date)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			http.Error(w, "card not found", http.StatusNotFound)
		case isValidationError(err):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			slog.ErrorContext(r.Context(), "Record spending failed", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusCreated, spendingToPayload(rec))
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	category := strings.TrimSpace(q.Get("category"))
	payment := strings.TrimSpace(q.Get("payment"))
	if category == "" || payment == "" {
		http.Error(w, "category and payment are required", http.StatusBadRequest)
		return
	}

	amount, err := strconv.ParseFloat(strings.TrimSpace(q.Get("amount")), 64)
	if err != nil || amount <= 0 {
		http.Error(w, "amount must be a positive number", http.StatusBadRequest)
		return
	}

	date, err := parseDateOrToday(q.Get("date"))
	if err != nil {
		http.Error(w, "invalid date, want YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	recs, err := s.recommender.Recommend(r.Context(), recommend.Request{
		Category:        category,
		PaymentCategory: payment,
		Amount:          amount,
		Date:            date,
	})
	if err != nil {
		slog.ErrorContext(r.Context(), "Recommendation failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	out := make([]recommendationPayload, 0, len(recs))
	for _, rec := range recs {
		out = append(out, recommendationPayload{
			CardName:       rec.CardName,
			MilesPerDollar: rec.MilesPerDollar,
			BlockSize:      rec.BlockSize,
			EffectiveRate:  rec.EffectiveRate,
			MilesEarned:    rec.MilesEarned,
			RemainingLimit: rec.RemainingLimit,
			Eligible:       rec.Eligible,
			Reason:         rec.Reason,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// parseDateOrToday parses a YYYY-MM-DD date, defaulting to the current day
// when the input is blank.
func parseDateOrToday(v string) (calendar.Date, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		now := time.Now()
		return calendar.New(now.Year(), int(now.Month()), now.Day()), nil
	}
	return calendar.Parse(v)
}

func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.New("malformed request body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Encoding response failed", "error", err)
	}
}

// isValidationError reports whether err stems from rejected user input
// rather than an internal failure.
func isValidationError(err error) bool {
	for _, sentinel := range []error{
		core.ErrEmptyName,
		core.ErrInvalidBlockSize,
		core.ErrInvalidRate,
		core.ErrInvalidRenewalDay,
		core.ErrInvalidRewardLimit,
		core.ErrInvalidMinSpend,
		core.ErrNoCategories,
		core.ErrNoPaymentMethods,
		core.ErrInvalidAmount,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
