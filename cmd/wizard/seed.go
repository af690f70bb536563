package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/migratemate/cancellation-flow/internal/api/dto"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create a development user with an active subscription",
	Long:  `Calls POST /dev/seed-user. Servers running with APP_ENV=production refuse it.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := setup(cmd)
		if err != nil {
			return err
		}
		defer s.logger.Sync() //nolint:errcheck

		email, _ := cmd.Flags().GetString("email")
		req := dto.SeedUserRequest{Email: email}
		if cmd.Flags().Changed("price") {
			price, _ := cmd.Flags().GetInt("price")
			req.MonthlyPrice = &price
		}

		resp, err := s.client.SeedDevUser(cmd.Context(), req)
		if err != nil {
			return fmt.Errorf("seed user: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "user %s (%s)\nsubscription %s at %d cents/month, %s\n",
			resp.User.ID, resp.User.Email, resp.Subscription.ID, resp.Subscription.MonthlyPrice, resp.Subscription.Status)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().String("email", "", "Email for the new user (default generated)")
	seedCmd.Flags().Int("price", 2500, "Monthly price in cents")
}
