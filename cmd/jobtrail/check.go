package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/amishk599/jobtrail/internal/model"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run once, print matches, store nothing",
	Long:  "Dry run: every enabled source goes through the pipeline, relevant postings are printed and nothing is written to the store.",
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

var (
	matchTitle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	matchDetail  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	matchHeading = lipgloss.NewStyle().Bold(true).MarginTop(1)
)

// printer is a model.Notifier that writes postings to stdout.
type printer struct{}

func (printer) Notify(postings []model.JobPosting) error {
	fmt.Println(matchHeading.Render(fmt.Sprintf("%d matching postings", len(postings))))
	for _, p := range postings {
		fmt.Println(matchTitle.Render(p.Title) + "  " + p.Company)
		detail := p.Location
		if p.JobType != "" {
			detail += " · " + p.JobType
		}
		if p.Salary != "" {
			detail += " · " + p.Salary
		}
		fmt.Println(matchDetail.Render(detail))
		fmt.Println(matchDetail.Render(p.URL))
	}
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}

	logger.Info("check mode: nothing will be stored")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger, true, wantsRenderer(cfg))
	if err != nil {
		return err
	}
	defer a.Close()

	orch, err := a.orchestrator(printer{})
	if err != nil {
		return err
	}

	sum := orch.RunOnce(ctx)
	if len(sum.New) == 0 {
		fmt.Println("No matching postings.")
	}
	printSummary(sum)
	return nil
}
