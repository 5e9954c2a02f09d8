package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"cardwise/internal/cli"
	"cardwise/internal/config"
	"cardwise/internal/recommend"
	"cardwise/internal/services"
	"cardwise/internal/storage"
)

// rootCmd is the base command for the cardwise CLI
var rootCmd = &cobra.Command{
	Use:   "cardwise",
	Short: "Track credit cards and pick the one that earns the most miles",
	Long: `cardwise keeps a collection of credit cards with their reward rules,
records spending against them, and answers the one question that matters
at the till: which card earns the most miles for this purchase?`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(func() {
		// Keep tables readable: CLI logging goes to stderr, warnings only.
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelWarn,
		}))
		slog.SetDefault(logger)
		cli.LoadEnvFile()
	})
}

func loadConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openRepository opens the SQLite repository at the configured path.
func openRepository() (*storage.SQLiteRepository, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", cfg.SQLiteDBPath, err)
	}
	return repo, nil
}

// newCardService wires a card service over a fresh repository. The caller
// closes the returned repository.
func newCardService() (*services.CardService, *storage.SQLiteRepository, error) {
	repo, err := openRepository()
	if err != nil {
		return nil, nil, err
	}
	return services.NewCardService(repo), repo, nil
}

// newSpendingService wires a spending service with no publisher: the CLI
// records locally and leaves export to the worker's periodic catch-up.
func newSpendingService() (*services.SpendingService, *storage.SQLiteRepository, error) {
	repo, err := openRepository()
	if err != nil {
		return nil, nil, err
	}
	return services.NewSpendingService(repo, nil), repo, nil
}

func newEngine() (*recommend.Engine, *storage.SQLiteRepository, error) {
	repo, err := openRepository()
	if err != nil {
		return nil, nil, err
	}
	return recommend.NewEngine(repo), repo, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
