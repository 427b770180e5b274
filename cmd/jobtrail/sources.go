package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/amishk599/jobtrail/internal/config"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List all configured sources",
	Long:  "Reads the config and prints a table of all configured sources.",
	RunE:  runSources,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

func runSources(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}

	fmt.Println(sourcesTable(cfg.Sources))

	enabled := 0
	for _, s := range cfg.Sources {
		if s.Enabled {
			enabled++
		}
	}
	fmt.Printf("\nTotal: %d sources (%d enabled, %d disabled)\n", len(cfg.Sources), enabled, len(cfg.Sources)-enabled)
	return nil
}

func sourcesTable(sources []config.SourceConfig) string {
	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)
	disabled := cell.Foreground(lipgloss.Color("241"))

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers("Source", "Platform", "Boards / URL", "Status").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			if row >= 0 && row < len(sources) && !sources[row].Enabled {
				return disabled
			}
			return cell
		})

	for _, s := range sources {
		target := s.URL
		if s.Structured() {
			target = strings.Join(s.Companies, ", ")
		}
		status := "enabled"
		if !s.Enabled {
			status = "disabled"
		}
		t.Row(s.Name, s.Platform, truncate(target, 60), status)
	}
	return t.String()
}
