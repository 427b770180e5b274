package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobtrail/internal/pipeline"
	"github.com/amishk599/jobtrail/internal/runlock"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline once over every enabled source",
	Long:  "Enumerates every enabled source once, stores new relevant postings, prints a summary and exits.",
	RunE:  runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}

	lock, err := runlock.Acquire(cfg.Pipeline.LockFile)
	if err != nil {
		return err
	}
	defer lock.Release()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger, false, wantsRenderer(cfg))
	if err != nil {
		return err
	}
	defer a.Close()

	orch, err := a.orchestrator(setupNotifier(cfg, a.client, logger))
	if err != nil {
		return err
	}

	printSummary(orch.RunOnce(ctx))
	return nil
}

func printSummary(sum pipeline.Summary) {
	fmt.Printf("\n%-40s %6s %6s %6s %6s %6s  %s\n", "Source", "Found", "New", "Dup", "Filt", "Fail", "Error")
	fmt.Println(strings.Repeat("─", 90))
	for _, st := range sum.Sources {
		errText := ""
		if st.Err != nil {
			errText = st.Err.Error()
		}
		fmt.Printf("%-40s %6d %6d %6d %6d %6d  %s\n",
			truncate(st.Source, 40), st.Candidates, st.Processed, st.Duplicates, st.Filtered, st.Failed, truncate(errText, 60))
	}
	fmt.Printf("\nProcessed %d, skipped %d (%d duplicate, %d filtered), failed %d, source errors %d in %s\n",
		sum.Processed, sum.Skipped(), sum.Duplicates, sum.Filtered, sum.Failed, sum.SourceErrs, sum.Duration.Round(time.Second))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
