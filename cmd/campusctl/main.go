// Command campusctl runs operator tasks against the CampusKart database:
// schema migrations, manual unlock grants and admin API key management.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/campuskart/campuskart/internal/repository"
)

var (
	databaseURL string
	timeout     time.Duration
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "campusctl",
	Short: "Operator tooling for CampusKart",
	Long: `campusctl manages a CampusKart deployment directly through PostgreSQL.

Available commands:
  migrate - Apply, roll back or inspect schema migrations
  grant   - Unlock the next listing for a user
  apikey  - Create or revoke admin API keys`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Overall command timeout")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log service activity to stderr")

	rootCmd.AddCommand(migrateCmd, grantCmd, apikeyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func requireDatabaseURL() error {
	if databaseURL == "" {
		return fmt.Errorf("--database-url or DATABASE_URL is required")
	}
	return nil
}

// openRepository connects to the database for the lifetime of one command.
func openRepository(cmd *cobra.Command) (context.Context, *repository.Repository, func(), error) {
	if err := requireDatabaseURL(); err != nil {
		return nil, nil, nil, err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	repo, err := repository.New(ctx, databaseURL)
	if err != nil {
		cancel()
		return nil, nil, nil, fmt.Errorf("connect database: %w", err)
	}
	return ctx, repo, func() {
		repo.Close()
		cancel()
	}, nil
}

func newLogger(w io.Writer) *slog.Logger {
	if !verbose {
		w = io.Discard
	}
	return slog.New(slog.NewTextHandler(w, nil))
}
