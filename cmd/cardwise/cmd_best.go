package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"cardwise/internal/recommend"
)

var (
	bestCategory string
	bestPayment  string
	bestAmount   float64
	bestDate     string
)

var bestCardCmd = &cobra.Command{
	Use:   "best-card",
	Short: "Rank the cards for a prospective purchase",
	Long: `Rank the cards that accept the given category and payment method,
best earner first. Cards that are over their reward limit or short of
their minimum spend for the current cycle are listed after the
eligible ones, with the reason.

Examples:
  cardwise best-card --category dining --payment contactless --amount 42.50
  cardwise best-card --category travel --payment online --amount 800 --date 2026-02-19`,
	RunE: runBestCard,
}

func init() {
	rootCmd.AddCommand(bestCardCmd)

	bestCardCmd.Flags().StringVar(&bestCategory, "category", "", "Spending category of the purchase")
	bestCardCmd.Flags().StringVar(&bestPayment, "payment", "", "Payment category of the purchase")
	bestCardCmd.Flags().Float64Var(&bestAmount, "amount", 0, "Purchase amount in dollars")
	bestCardCmd.Flags().StringVar(&bestDate, "date", "", "Purchase date, YYYY-MM-DD (default: today)")
	_ = bestCardCmd.MarkFlagRequired("category")
	_ = bestCardCmd.MarkFlagRequired("payment")
	_ = bestCardCmd.MarkFlagRequired("amount")
}

func runBestCard(cmd *cobra.Command, args []string) error {
	if bestAmount <= 0 {
		return fmt.Errorf("--amount must be positive")
	}

	date, err := parseDateFlag(bestDate)
	if err != nil {
		return fmt.Errorf("invalid --date %q, want YYYY-MM-DD", bestDate)
	}

	engine, repo, err := newEngine()
	if err != nil {
		return err
	}
	defer repo.Close()

	recs, err := engine.Recommend(cmd.Context(), recommend.Request{
		Category:        strings.TrimSpace(bestCategory),
		PaymentCategory: strings.TrimSpace(bestPayment),
		Amount:          bestAmount,
		Date:            date,
	})
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Printf("No card accepts %s via %s.\n", bestCategory, bestPayment)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CARD\tMILES/$\tBLOCK\tRATE\tMILES\tLIMIT LEFT\tSTATUS")
	for _, rec := range recs {
		fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%.4f\t%.2f\t%s\t%s\n",
			rec.CardName,
			rec.MilesPerDollar,
			rec.BlockSize,
			rec.EffectiveRate,
			rec.MilesEarned,
			formatOptional(rec.RemainingLimit),
			rec.Reason,
		)
	}
	return w.Flush()
}
