// Package storage persists cards and spending records in SQLite and serves
// as the single storage collaborator for the recommendation engine, the
// services and the export worker.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cardwise/internal/calendar"
	"cardwise/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a card or spending record does not exist.
var ErrNotFound = errors.New("not found")

// Spending sync states used by the ledger export pipeline.
const (
	SyncPending = "pending"
	SyncDone    = "synced"
	SyncError   = "error"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateCard inserts the card and its category sets in one transaction and
// returns the new id. The card must already be validated.
func (r *SQLiteRepository) CreateCard(ctx context.Context, c core.Card) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO cards (name, miles_per_dollar, miles_per_dollar_foreign, block_size, renewal_day, max_reward_limit, min_spend)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.Name, c.MilesPerDollar, nullable(c.MilesPerDollarForeign), c.BlockSize, c.RenewalDay,
		nullable(c.MaxRewardLimit), nullable(c.MinSpend))
	if err != nil {
		return 0, fmt.Errorf("insert card: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	for _, cat := range c.Categories.Labels() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO card_categories (card_id, category) VALUES (?, ?)`, id, cat); err != nil {
			return 0, fmt.Errorf("insert card category: %w", err)
		}
	}
	for _, pay := range c.PaymentCategories.Labels() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO card_payment_categories (card_id, payment_category) VALUES (?, ?)`, id, pay); err != nil {
			return 0, fmt.Errorf("insert card payment category: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return id, nil
}

// GetCard loads a single card with its category sets.
func (r *SQLiteRepository) GetCard(ctx context.Context, id int64) (core.Card, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, miles_per_dollar, miles_per_dollar_foreign, block_size, renewal_day, max_reward_limit, min_spend
		 FROM cards WHERE id = ?`, id)

	c, err := scanCard(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Card{}, fmt.Errorf("card %d: %w", id, ErrNotFound)
		}
		return core.Card{}, fmt.Errorf("get card: %w", err)
	}

	if err := r.loadCategorySets(ctx, &c); err != nil {
		return core.Card{}, err
	}
	return c, nil
}

// ListCards returns every card ordered by id.
func (r *SQLiteRepository) ListCards(ctx context.Context) ([]core.Card, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, miles_per_dollar, miles_per_dollar_foreign, block_size, renewal_day, max_reward_limit, min_spend
		 FROM cards ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	cards, err := collectCards(rows)
	if err != nil {
		return nil, err
	}
	for i := range cards {
		if err := r.loadCategorySets(ctx, &cards[i]); err != nil {
			return nil, err
		}
	}
	return cards, nil
}

// DeleteCard removes a card together with its category rows and spending
// records. Returns false when no card had the given id.
func (r *SQLiteRepository) DeleteCard(ctx context.Context, id int64) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM spending WHERE card_id = ?`,
		`DELETE FROM card_categories WHERE card_id = ?`,
		`DELETE FROM card_payment_categories WHERE card_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return false, fmt.Errorf("delete card dependents: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM cards WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete card: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit transaction: %w", err)
	}
	return affected > 0, nil
}

// FindCardsByCategoryAndPayment returns the distinct cards accepting both the
// spending category and the payment category, case-insensitively. The match
// is set membership on each dimension, independent of the card's other
// categories. Results come back in id order so rate ties rank predictably.
func (r *SQLiteRepository) FindCardsByCategoryAndPayment(ctx context.Context, category, paymentCategory string) ([]core.Card, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT c.id, c.name, c.miles_per_dollar, c.miles_per_dollar_foreign, c.block_size, c.renewal_day, c.max_reward_limit, c.min_spend
		 FROM cards c
		 JOIN card_categories cc ON cc.card_id = c.id
		 JOIN card_payment_categories cp ON cp.card_id = c.id
		 WHERE LOWER(cc.category) = LOWER(?)
		   AND LOWER(cp.payment_category) = LOWER(?)
		 ORDER BY c.id`,
		category, paymentCategory)
	if err != nil {
		return nil, fmt.Errorf("find cards by category: %w", err)
	}
	defer rows.Close()

	cards, err := collectCards(rows)
	if err != nil {
		return nil, err
	}
	for i := range cards {
		if err := r.loadCategorySets(ctx, &cards[i]); err != nil {
			return nil, err
		}
	}
	return cards, nil
}

// CardRates returns the card's per-block rate and block size, the two
// parameters needed to compute miles when recording spending.
func (r *SQLiteRepository) CardRates(ctx context.Context, cardID int64) (milesPerDollar, blockSize float64, err error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT miles_per_dollar, block_size FROM cards WHERE id = ?`, cardID)
	if err := row.Scan(&milesPerDollar, &blockSize); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, 0, fmt.Errorf("card %d: %w", cardID, ErrNotFound)
		}
		return 0, 0, fmt.Errorf("get card rates: %w", err)
	}
	return milesPerDollar, blockSize, nil
}

// AddSpending inserts a spending record and returns its id. MilesEarned must
// already be computed; it is stored as-is and never recomputed.
func (r *SQLiteRepository) AddSpending(ctx context.Context, rec core.SpendingRecord) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO spending (card_id, amount, category, date, miles_earned, sync_status)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.CardID, rec.Amount, rec.Category, rec.Date.String(), rec.MilesEarned, SyncPending)
	if err != nil {
		return 0, fmt.Errorf("insert spending: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// GetSpending loads one spending record.
func (r *SQLiteRepository) GetSpending(ctx context.Context, id int64) (core.SpendingRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, card_id, amount, category, date, miles_earned FROM spending WHERE id = ?`, id)

	rec, err := scanSpending(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.SpendingRecord{}, fmt.Errorf("spending %d: %w", id, ErrNotFound)
		}
		return core.SpendingRecord{}, fmt.Errorf("get spending: %w", err)
	}
	return rec, nil
}

// ListSpending returns spending records newest-first, optionally restricted
// to one card.
func (r *SQLiteRepository) ListSpending(ctx context.Context, cardID *int64) ([]core.SpendingRecord, error) {
	query := `SELECT id, card_id, amount, category, date, miles_earned FROM spending ORDER BY date DESC, id DESC`
	args := []any{}
	if cardID != nil {
		query = `SELECT id, card_id, amount, category, date, miles_earned FROM spending WHERE card_id = ? ORDER BY date DESC, id DESC`
		args = append(args, *cardID)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list spending: %w", err)
	}
	defer rows.Close()

	var out []core.SpendingRecord
	for rows.Next() {
		rec, err := scanSpending(rows)
		if err != nil {
			return nil, fmt.Errorf("scan spending: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SumSpendingSince sums recorded spending amounts for the card dated on or
// after since. ISO dates compare lexicographically, so the filter is a plain
// string comparison. Returns 0 when there are no matching records.
func (r *SQLiteRepository) SumSpendingSince(ctx context.Context, cardID int64, since calendar.Date) (float64, error) {
	var total float64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM spending WHERE card_id = ? AND date >= ?`,
		cardID, since.String()).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum spending: %w", err)
	}
	return total, nil
}

// CardName resolves a card's display name, used when exporting spending rows
// to the ledger.
func (r *SQLiteRepository) CardName(ctx context.Context, cardID int64) (string, error) {
	var name string
	err := r.db.QueryRowContext(ctx, `SELECT name FROM cards WHERE id = ?`, cardID).Scan(&name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("card %d: %w", cardID, ErrNotFound)
		}
		return "", fmt.Errorf("get card name: %w", err)
	}
	return name, nil
}

// PendingSync returns ids of spending records not yet exported, oldest first.
func (r *SQLiteRepository) PendingSync(ctx context.Context, limit int) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM spending WHERE sync_status = ? ORDER BY id LIMIT ?`, SyncPending, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending sync: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan pending id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MarkSynced records a successful ledger export.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE spending SET sync_status = ?, synced_at = ? WHERE id = ?`,
		SyncDone, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}
	return nil
}

// MarkSyncError flags a record whose export failed so the periodic catch-up
// does not loop on it.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE spending SET sync_status = ? WHERE id = ?`, SyncError, id)
	if err != nil {
		return fmt.Errorf("mark sync error: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) loadCategorySets(ctx context.Context, c *core.Card) error {
	cats, err := r.stringColumn(ctx,
		`SELECT category FROM card_categories WHERE card_id = ? ORDER BY rowid`, c.ID)
	if err != nil {
		return fmt.Errorf("load card categories: %w", err)
	}
	pays, err := r.stringColumn(ctx,
		`SELECT payment_category FROM card_payment_categories WHERE card_id = ? ORDER BY rowid`, c.ID)
	if err != nil {
		return fmt.Errorf("load card payment categories: %w", err)
	}
	c.Categories = core.NewCategorySet(cats)
	c.PaymentCategories = core.NewCategorySet(pays)
	return nil
}

func (r *SQLiteRepository) stringColumn(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (core.Card, error) {
	var (
		c       core.Card
		foreign sql.NullFloat64
		limit   sql.NullFloat64
		min     sql.NullFloat64
	)
	if err := row.Scan(&c.ID, &c.Name, &c.MilesPerDollar, &foreign, &c.BlockSize, &c.RenewalDay, &limit, &min); err != nil {
		return core.Card{}, err
	}
	c.MilesPerDollarForeign = fromNullable(foreign)
	c.MaxRewardLimit = fromNullable(limit)
	c.MinSpend = fromNullable(min)
	return c, nil
}

func collectCards(rows *sql.Rows) ([]core.Card, error) {
	var cards []core.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

func scanSpending(row rowScanner) (core.SpendingRecord, error) {
	var (
		rec     core.SpendingRecord
		dateStr string
	)
	if err := row.Scan(&rec.ID, &rec.CardID, &rec.Amount, &rec.Category, &dateStr, &rec.MilesEarned); err != nil {
		return core.SpendingRecord{}, err
	}
	date, err := calendar.Parse(dateStr)
	if err != nil {
		return core.SpendingRecord{}, fmt.Errorf("parse stored date %q: %w", dateStr, err)
	}
	rec.Date = date
	return rec, nil
}

func nullable(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func fromNullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
