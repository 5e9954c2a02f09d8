package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"cardwise/internal/core"
)

var (
	addCardName            string
	addCardCategories      []string
	addCardPayments        []string
	addCardMilesPerDollar  float64
	addCardMilesForeign    float64
	addCardBlockSize       float64
	addCardRenewalDay      int
	addCardMaxRewardLimit  float64
	addCardMinSpend        float64
)

var addCardCmd = &cobra.Command{
	Use:   "add-card",
	Short: "Add a card to the collection",
	Long: `Add a card with its reward rules to the collection.

Categories and payment categories default to the built-in lists when
omitted. A zero --max-reward-limit means no limit; a zero --min-spend
means no minimum-spend requirement.

Examples:
  cardwise add-card --name "Voyager Elite" --miles-per-dollar 2 --block-size 5 --renewal-day 15
  cardwise add-card --name "Everyday" --categories groceries,transport --miles-per-dollar 1.2 --block-size 1 --renewal-day 1 --min-spend 500`,
	RunE: runAddCard,
}

var listCardsCmd = &cobra.Command{
	Use:   "list-cards",
	Short: "List the cards in the collection",
	RunE:  runListCards,
}

var removeCardCmd = &cobra.Command{
	Use:   "remove-card <id>",
	Short: "Remove a card and its spending records",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemoveCard,
}

func init() {
	rootCmd.AddCommand(addCardCmd)
	rootCmd.AddCommand(listCardsCmd)
	rootCmd.AddCommand(removeCardCmd)

	addCardCmd.Flags().StringVar(&addCardName, "name", "", "Card name")
	addCardCmd.Flags().StringSliceVar(&addCardCategories, "categories", nil, "Accepted spending categories (default: built-in list)")
	addCardCmd.Flags().StringSliceVar(&addCardPayments, "payment-categories", nil, "Accepted payment categories (default: built-in list)")
	addCardCmd.Flags().Float64Var(&addCardMilesPerDollar, "miles-per-dollar", 0, "Miles earned per spending block")
	addCardCmd.Flags().Float64Var(&addCardMilesForeign, "miles-per-dollar-foreign", 0, "Miles per block for foreign spend (informational)")
	addCardCmd.Flags().Float64Var(&addCardBlockSize, "block-size", 1, "Dollars per spending block")
	addCardCmd.Flags().IntVar(&addCardRenewalDay, "renewal-day", 1, "Day of month the statement cycle renews (1-31)")
	addCardCmd.Flags().Float64Var(&addCardMaxRewardLimit, "max-reward-limit", 0, "Reward-eligible spend per cycle (0 = unlimited)")
	addCardCmd.Flags().Float64Var(&addCardMinSpend, "min-spend", 0, "Prior-cycle spend required before rewards accrue (0 = none)")
	_ = addCardCmd.MarkFlagRequired("name")
	_ = addCardCmd.MarkFlagRequired("miles-per-dollar")
}

// optional converts the CLI's zero-means-absent flags to the domain's
// explicit optionals.
func optional(v float64) *float64 {
	if v == 0 {
		return nil
	}
	return &v
}

func runAddCard(cmd *cobra.Command, args []string) error {
	svc, repo, err := newCardService()
	if err != nil {
		return err
	}
	defer repo.Close()

	card := core.Card{
		Name:                  strings.TrimSpace(addCardName),
		Categories:            core.NewCategorySet(addCardCategories),
		PaymentCategories:     core.NewCategorySet(addCardPayments),
		MilesPerDollar:        addCardMilesPerDollar,
		MilesPerDollarForeign: optional(addCardMilesForeign),
		BlockSize:             addCardBlockSize,
		RenewalDay:            addCardRenewalDay,
		MaxRewardLimit:        optional(addCardMaxRewardLimit),
		MinSpend:              optional(addCardMinSpend),
	}

	created, err := svc.Create(cmd.Context(), card)
	if err != nil {
		return err
	}

	fmt.Printf("Added card %q with id %d\n", created.Name, created.ID)
	return nil
}

func runListCards(cmd *cobra.Command, args []string) error {
	svc, repo, err := newCardService()
	if err != nil {
		return err
	}
	defer repo.Close()

	cards, err := svc.List(cmd.Context())
	if err != nil {
		return err
	}
	if len(cards) == 0 {
		fmt.Println("No cards yet. Add one with 'cardwise add-card'.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tMILES/$\tBLOCK\tRENEWAL\tLIMIT\tMIN SPEND\tCATEGORIES\tPAYMENTS")
	for _, c := range cards {
		fmt.Fprintf(w, "%d\t%s\t%.2f\t%.2f\t%d\t%s\t%s\t%s\t%s\n",
			c.ID,
			c.Name,
			c.MilesPerDollar,
			c.BlockSize,
			c.RenewalDay,
			formatOptional(c.MaxRewardLimit),
			formatOptional(c.MinSpend),
			strings.Join(c.Categories.Labels(), ","),
			strings.Join(c.PaymentCategories.Labels(), ","),
		)
	}
	return w.Flush()
}

func formatOptional(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("$%.2f", *v)
}

func runRemoveCard(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id < 1 {
		return fmt.Errorf("invalid card id %q", args[0])
	}

	svc, repo, err := newCardService()
	if err != nil {
		return err
	}
	defer repo.Close()

	removed, err := svc.Delete(cmd.Context(), id)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("card %d not found", id)
	}

	fmt.Printf("Removed card %d\n", id)
	return nil
}
