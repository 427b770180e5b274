package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobtrail/internal/model"
	"github.com/amishk599/jobtrail/internal/review"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Browse stored postings and update their status (TUI)",
	Long:  "Loads every stored posting into a table. Enter advances the selected posting's status, f cycles the status filter, o opens the posting.",
	RunE:  runReview,
}

func init() {
	rootCmd.AddCommand(reviewCmd)
}

func runReview(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}

	// Log output before the alt-screen starts corrupts the display.
	silentLogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := newApp(context.Background(), cfg, silentLogger, false, false)
	if err != nil {
		return err
	}
	defer a.Close()

	postings, err := review.RunLoader("Loading postings", func(ctx context.Context) ([]model.JobPosting, error) {
		return a.store.List(ctx)
	})
	if err != nil {
		return fmt.Errorf("load postings: %w", err)
	}
	if len(postings) == 0 {
		fmt.Println("No postings stored yet. Run `jobtrail run` first.")
		return nil
	}

	return review.Run(postings, a.store)
}
