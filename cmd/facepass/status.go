package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether a face is registered and the recent activity",
	Long: `Show whether a face is registered and the recent activity.

Activity is kept in PostgreSQL when DATABASE_URL is set, otherwise in a
YAML file next to --store (facepass.yaml keeps it in facepass.activity.yaml).
With only REDIS_URL, or no backend at all, it covers the current run only.`,
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().Int("limit", 10, "Number of activity events to show")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	registered, err := s.svcs.Credentials.Registered(ctx)
	if err != nil {
		return fmt.Errorf("failed to check credential: %w", err)
	}
	faceID := "not registered"
	if registered {
		faceID = "registered"
	}
	fmt.Printf("Face ID:    %s\n", faceID)
	fmt.Printf("Match mode: %s\n", s.cfg.MatchMode)

	events, err := s.svcs.Activity.Recent(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to load activity: %w", err)
	}
	if len(events) == 0 {
		fmt.Println("\nNo recent activity")
		return nil
	}
	fmt.Println("\nRecent activity:")
	for _, e := range events {
		fmt.Printf("  %s  %-20s %s\n", e.OccurredAt.Local().Format(time.DateTime), e.Kind, e.FlowID)
	}
	return nil
}
