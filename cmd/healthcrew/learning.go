package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var learningCmd = &cobra.Command{
	Use:   "learning",
	Short: "Inspect cross-run learning data",
}

var (
	trendsDays int
	fixFailed  bool
)

func init() {
	learningTrendsCmd.Flags().IntVar(&trendsDays, "days", 7, "window size in days")
	learningRecordFixCmd.Flags().BoolVar(&fixFailed, "failed", false, "record the fix attempt as unsuccessful")
	learningCmd.AddCommand(learningStatsCmd)
	learningCmd.AddCommand(learningTrendsCmd)
	learningCmd.AddCommand(learningPatternsCmd)
	learningCmd.AddCommand(learningRecordFixCmd)
}

var learningStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the learning document",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup()
		if err != nil {
			return err
		}
		stats := openStore(cfg).Stats()
		fmt.Printf("Total runs:          %d\n", stats.TotalRuns)
		fmt.Printf("Patterns discovered: %d\n", stats.PatternsDiscovered)
		fmt.Printf("Recurring tracked:   %d\n", stats.RecurringTracked)
		fmt.Printf("Fixes recorded:      %d\n", stats.FixesRecorded)
		fmt.Printf("History entries:     %d\n", stats.HistoryEntries)
		fmt.Printf("Pending suggestions: %d\n", stats.PendingSuggestions)
		if !stats.Created.IsZero() {
			fmt.Printf("Learning since:      %s\n", stats.Created.Format("2006-01-02"))
		}
		return nil
	},
}

var learningTrendsCmd = &cobra.Command{
	Use:   "trends",
	Short: "Show issue trends over a recent window",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup()
		if err != nil {
			return err
		}
		trends := openStore(cfg).Trends(trendsDays)
		fmt.Printf("Issues in the last %d day(s): %d\n", trends.PeriodDays, trends.TotalIssues)
		if len(trends.ByType) > 0 {
			fmt.Println("By type:")
			for typ, n := range trends.ByType {
				fmt.Printf("  %-24s %d\n", typ, n)
			}
		}
		if len(trends.ByBaseName) > 0 {
			fmt.Println("By component:")
			for name, n := range trends.ByBaseName {
				fmt.Printf("  %-24s %d\n", name, n)
			}
		}
		return nil
	},
}

var learningRecordFixCmd = &cobra.Command{
	Use:   "record-fix <issue-key> <description>",
	Short: "Record a fix that was applied for an issue key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup()
		if err != nil {
			return err
		}
		if err := openStore(cfg).RecordFix(args[0], args[1], !fixFailed); err != nil {
			return err
		}
		fmt.Printf("Recorded fix for %s\n", args[0])
		return nil
	},
}

var learningPatternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "List learned recurring patterns",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup()
		if err != nil {
			return err
		}
		store := openStore(cfg)
		patterns := store.Patterns()
		if len(patterns) == 0 {
			fmt.Println("No learned patterns yet.")
			return nil
		}
		for _, p := range patterns {
			fmt.Printf("%s\n", p.Key)
			fmt.Printf("  confidence: %d, discovered: %s\n", p.Confidence, p.DiscoveredAt.Format("2006-01-02"))
			fmt.Printf("  keywords:   %s\n", strings.Join(p.Keywords, ", "))
			if fix, ok := store.SuggestedFix(p.Key); ok {
				fmt.Printf("  suggested fix (%.0f%% success over %d tries): %s\n",
					fix.SuccessRate*100, fix.TimesTried, fix.Description)
			}
		}
		return nil
	},
}
