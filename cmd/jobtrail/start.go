package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobtrail/internal/runlock"
	"github.com/amishk599/jobtrail/internal/scheduler"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the pipeline daemon",
	Long:  "Runs the pipeline every pipeline.interval; blocks until SIGINT/SIGTERM.",
	RunE:  runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}

	logger.Info("config loaded",
		"interval", cfg.Pipeline.Interval.String(),
		"sources", len(cfg.Sources),
		"filter_mode", cfg.Filters.Mode,
		"store", cfg.Store.Driver,
		"concurrent", cfg.Pipeline.ConcurrentSources,
	)

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

	sched := scheduler.NewScheduler(orch, cfg.Pipeline.Interval, logger)
	if err := sched.Run(ctx); err != nil {
		return err
	}

	logger.Info("goodbye")
	return nil
}
