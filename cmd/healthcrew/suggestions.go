package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/healthcrew/healthcrew/internal/learning"
)

var suggestionsCmd = &cobra.Command{
	Use:   "suggestions",
	Short: "Manage proposed health checks awaiting review",
}

var suggestionsStatus string

func init() {
	suggestionsListCmd.Flags().StringVar(&suggestionsStatus, "status", "pending", "filter by status (pending, approved, rejected)")
	suggestionsCmd.AddCommand(suggestionsListCmd)
	suggestionsCmd.AddCommand(suggestionsApproveCmd)
	suggestionsCmd.AddCommand(suggestionsRejectCmd)
}

var suggestionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List check suggestions",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup()
		if err != nil {
			return err
		}
		suggestions := openStore(cfg).Suggestions(learning.SuggestionStatus(suggestionsStatus))
		if len(suggestions) == 0 {
			fmt.Printf("No %s suggestions.\n", suggestionsStatus)
			return nil
		}
		for _, s := range suggestions {
			fmt.Printf("%s  [%s]\n", s.ID, s.Status)
			fmt.Printf("  %s\n", s.Title)
			if s.TrackerID != "" {
				fmt.Printf("  tracker: %s\n", s.TrackerID)
			}
			if s.ProposedCheck != "" {
				fmt.Printf("  check:   %s\n", s.ProposedCheck)
			}
		}
		return nil
	},
}

var suggestionsApproveCmd = &cobra.Command{
	Use:   "approve <id>",
	Short: "Approve a pending check suggestion",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup()
		if err != nil {
			return err
		}
		if err := openStore(cfg).ApproveSuggestion(args[0]); err != nil {
			return err
		}
		fmt.Printf("Approved %s\n", args[0])
		return nil
	},
}

var suggestionsRejectCmd = &cobra.Command{
	Use:   "reject <id>",
	Short: "Reject a pending check suggestion",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup()
		if err != nil {
			return err
		}
		if err := openStore(cfg).RejectSuggestion(args[0]); err != nil {
			return err
		}
		fmt.Printf("Rejected %s\n", args[0])
		return nil
	},
}
