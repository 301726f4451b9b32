package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/campuskart/campuskart/internal/metrics"
	"github.com/campuskart/campuskart/internal/service"
)

var grantAmount float64

var grantCmd = &cobra.Command{
	Use:   "grant <user-id>",
	Short: "Unlock the next listing for a user",
	Long: `Sets the user's next-listing flag and records a receipt, exactly as the
simulated unlock flow does. Granting an already unlocked user is a no-op.`,
	Args: cobra.ExactArgs(1),
	RunE: runGrant,
}

func init() {
	grantCmd.Flags().Float64Var(&grantAmount, "amount", 20, "Amount recorded on the receipt")
}

func runGrant(cmd *cobra.Command, args []string) error {
	ctx, repo, closeRepo, err := openRepository(cmd)
	if err != nil {
		return err
	}
	defer closeRepo()

	tracker := service.NewEntitlementTracker(repo, grantAmount, newLogger(cmd.ErrOrStderr()), metrics.NewNoop())
	user, err := tracker.GrantNextListing(ctx, args[0])
	if err != nil {
		return err
	}

	e := user.Entitlement
	fmt.Fprintf(cmd.OutOrStdout(), "%s: can_list_next=%t has_used_free_listing=%t listings=%d\n",
		user.ID, e.CanListNext, e.HasUsedFreeListing, e.ListingsCount)
	return nil
}
