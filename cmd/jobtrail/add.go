package main

import (
	"context"
	"fmt"
	"net/url"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobtrail/internal/filter"
	"github.com/amishk599/jobtrail/internal/model"
	"github.com/amishk599/jobtrail/internal/pipeline"
	"github.com/amishk599/jobtrail/internal/runlock"
)

var (
	addCompany string
	addAll     bool
)

var addCmd = &cobra.Command{
	Use:   "add <url>...",
	Short: "Track postings from URLs you supply",
	Long:  "Fetches each posting page, extracts its fields and stores it like any discovered posting. The relevance filter still applies unless --all is given.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAdd,
}

func init() {
	addCmd.Flags().StringVar(&addCompany, "company", "", "company name to use when the page does not state one")
	addCmd.Flags().BoolVar(&addAll, "all", false, "store the postings even if the filter rejects them")
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	for _, raw := range args {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("not a posting URL: %q", raw)
		}
	}

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

	a, err := newApp(ctx, cfg, logger, false, cfg.Acquisition.Render)
	if err != nil {
		return err
	}
	defer a.Close()

	st, err := a.stages(true)
	if err != nil {
		return err
	}
	if addAll {
		st.Filter = filter.All{filter.TitlePresent}
	}

	src := pipeline.NewURLSource("manual", args, addCompany)
	orch := pipeline.NewOrchestrator([]model.SourceEnumerator{src}, st, a.options(), setupNotifier(cfg, a.client, logger), logger)
	printSummary(orch.RunOnce(ctx))
	return nil
}
