package main

import (
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/facepass/facepass/internal/activity"
)

var registerCmd = &cobra.Command{
	Use:   "register <image-file|data-uri>",
	Short: "Store an image as the registered face",
	Long:  `Replaces the registered face with the given image after the simulated processing delay.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runRegister,
}

var authenticateCmd = &cobra.Command{
	Use:   "authenticate <image-file|data-uri>",
	Short: "Check an image against the registered face",
	Long: `Reports whether the image is accepted. With the default presence match
mode any image is accepted once a face is registered.`,
	Args: cobra.ExactArgs(1),
	RunE: runAuthenticate,
}

func init() {
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(authenticateCmd)
}

func runRegister(cmd *cobra.Command, args []string) error {
	handle, err := loadHandle(args[0])
	if err != nil {
		return err
	}

	ctx := activity.WithFlow(cmd.Context(), "cli")
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	err = withSpinner("Registering face", func() error {
		return s.svcs.Credentials.Register(ctx, handle)
	})
	if err != nil {
		return fmt.Errorf("failed to register: %w", err)
	}
	fmt.Println("Face registered")
	return nil
}

func runAuthenticate(cmd *cobra.Command, args []string) error {
	handle, err := loadHandle(args[0])
	if err != nil {
		return err
	}

	ctx := activity.WithFlow(cmd.Context(), "cli")
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	var ok bool
	err = withSpinner("Verifying face", func() error {
		var authErr error
		ok, authErr = s.svcs.Credentials.Authenticate(ctx, handle)
		return authErr
	})
	if err != nil {
		return fmt.Errorf("failed to authenticate: %w", err)
	}
	if !ok {
		return fmt.Errorf("face not recognized")
	}
	fmt.Println("Authentication successful")
	return nil
}

// withSpinner shows an indeterminate bar while fn runs.
func withSpinner(description string, fn func() error) error {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				_ = bar.Add(1)
			}
		}
	}()

	err := fn()
	close(done)
	<-stopped
	_ = bar.Finish()
	return err
}
