package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"cardwise/internal/calendar"
)

var (
	addSpendingCard     int64
	addSpendingAmount   float64
	addSpendingCategory string
	addSpendingDate     string

	listSpendingCard int64
)

var addSpendingCmd = &cobra.Command{
	Use:   "add-spending",
	Short: "Record a transaction against a card",
	Long: `Record a transaction against a card. Miles earned are computed from
the card's rates at recording time and stored with the record.

Examples:
  cardwise add-spending --card 1 --amount 42.50 --category dining
  cardwise add-spending --card 2 --amount 120 --category travel --date 2026-02-19`,
	RunE: runAddSpending,
}

var listSpendingCmd = &cobra.Command{
	Use:   "list-spending",
	Short: "List recorded transactions, newest first",
	RunE:  runListSpending,
}

func init() {
	rootCmd.AddCommand(addSpendingCmd)
	rootCmd.AddCommand(listSpendingCmd)

	addSpendingCmd.Flags().Int64Var(&addSpendingCard, "card", 0, "Card id")
	addSpendingCmd.Flags().Float64Var(&addSpendingAmount, "amount", 0, "Transaction amount in dollars")
	addSpendingCmd.Flags().StringVar(&addSpendingCategory, "category", "", "Spending category")
	addSpendingCmd.Flags().StringVar(&addSpendingDate, "date", "", "Transaction date, YYYY-MM-DD (default: today)")
	_ = addSpendingCmd.MarkFlagRequired("card")
	_ = addSpendingCmd.MarkFlagRequired("amount")
	_ = addSpendingCmd.MarkFlagRequired("category")

	listSpendingCmd.Flags().Int64Var(&listSpendingCard, "card", 0, "Only show spending for this card id")
}

// parseDateFlag parses a YYYY-MM-DD flag value, defaulting to today when
// the flag was not given.
func parseDateFlag(v string) (calendar.Date, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		now := time.Now()
		return calendar.New(now.Year(), int(now.Month()), now.Day()), nil
	}
	return calendar.Parse(v)
}

func runAddSpending(cmd *cobra.Command, args []string) error {
	date, err := parseDateFlag(addSpendingDate)
	if err != nil {
		return fmt.Errorf("invalid --date %q, want YYYY-MM-DD", addSpendingDate)
	}

	svc, repo, err := newSpendingService()
	if err != nil {
		return err
	}
	defer repo.Close()

	rec, err := svc.Record(cmd.Context(), addSpendingCard, addSpendingAmount, strings.TrimSpace(addSpendingCategory), date)
	if err != nil {
		return err
	}

	fmt.Printf("Recorded $%.2f on card %d (%s, %s), earned %.2f miles\n",
		rec.Amount, rec.CardID, rec.Category, rec.Date, rec.MilesEarned)
	return nil
}

func runListSpending(cmd *cobra.Command, args []string) error {
	svc, repo, err := newSpendingService()
	if err != nil {
		return err
	}
	defer repo.Close()

	var cardID *int64
	if listSpendingCard > 0 {
		cardID = &listSpendingCard
	}

	records, err := svc.List(cmd.Context(), cardID)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No spending recorded yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCARD\tDATE\tCATEGORY\tAMOUNT\tMILES")
	for _, rec := range records {
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\t$%.2f\t%.2f\n",
			rec.ID, rec.CardID, rec.Date, rec.Category, rec.Amount, rec.MilesEarned)
	}
	return w.Flush()
}
