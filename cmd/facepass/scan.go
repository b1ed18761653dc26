package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/facepass/facepass/internal/flow"
)

var scanCmd = &cobra.Command{
	Use:   "scan <image-file|data-uri>",
	Short: "Run the full face scan flow for an image",
	Long: `Runs one flow session end to end: the simulated scan with its progress
bar, then registration when no face is stored yet or verification when one
is.`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	handle, err := loadHandle(args[0])
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	ctrl := s.svcs.Flows.Create()
	updates, unsubscribe := ctrl.Subscribe()
	defer unsubscribe()

	if _, err := ctrl.Start(); err != nil {
		return err
	}
	if _, err := ctrl.Capture(handle); err != nil {
		return err
	}

	bar := progressbar.NewOptions(100,
		progressbar.OptionSetDescription("Scanning face"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)

	var final flow.State
	for st := range updates {
		if st.Step == flow.StepScanning {
			_ = bar.Set(st.Progress)
			if st.Progress >= 100 && st.Busy {
				bar.Describe("Verifying face")
			}
			continue
		}
		final = st
		break
	}
	_ = bar.Finish()
	fmt.Println()

	switch final.Step {
	case flow.StepRegister:
		fmt.Println("No face registered yet, registering this one")
		st, err := ctrl.Register(ctx)
		if err != nil {
			return fmt.Errorf("failed to register: %w", err)
		}
		final = st
	case flow.StepIntro:
		return errors.New("face not recognized")
	case flow.StepSuccess:
	case "":
		return errors.New("flow closed before the scan finished")
	default:
		return fmt.Errorf("scan ended in unexpected step %q", final.Step)
	}

	if final.Step != flow.StepSuccess {
		return fmt.Errorf("scan ended in step %q", final.Step)
	}
	tok, err := s.svcs.Tokens.Issue(ctrl.ID())
	if err != nil {
		return err
	}
	fmt.Println("Authentication successful")
	fmt.Printf("Access token (expires %s):\n%s\n", tok.ExpiresAt.Local().Format(time.DateTime), tok.AccessToken)
	return nil
}
