// Package review is the terminal UI for working through stored postings and
// moving them along the application stages.
package review

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/jobtrail/internal/model"
)

// StatusUpdater is the slice of the store the review UI writes through.
type StatusUpdater interface {
	UpdateStatus(ctx context.Context, url string, status model.Status) error
}

const (
	colStatus   = 14
	colCompany  = 18
	colLocation = 20
	colAdded    = 10
	minTitle    = 20
)

var (
	baseStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240"))

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
)

// filterOrder is the sequence the "f" key steps through; "" shows everything.
var filterOrder = []model.Status{"", model.StatusNotApplied, model.StatusApplied, model.StatusInterviewing, model.StatusOffer}

// statusUpdatedMsg is sent when an async status write completes.
type statusUpdatedMsg struct {
	url    string
	status model.Status
	err    error
}

type reviewModel struct {
	postings []model.JobPosting
	visible  []int // indices into postings shown by the table
	filter   model.Status
	table    table.Model
	store    StatusUpdater
	message  string
	failed   bool
}

func newReviewModel(postings []model.JobPosting, store StatusUpdater) reviewModel {
	sort.SliceStable(postings, func(i, j int) bool {
		return postings[i].DateAdded.After(postings[j].DateAdded)
	})

	t := table.New(
		table.WithColumns(columns(100)),
		table.WithFocused(true),
		table.WithHeight(15),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("15")).
		Background(lipgloss.Color("24")).
		Bold(false)
	t.SetStyles(s)

	m := reviewModel{postings: postings, table: t, store: store}
	m.refresh()
	return m
}

func columns(width int) []table.Column {
	title := width - colStatus - colCompany - colLocation - colAdded - 12
	if title < minTitle {
		title = minTitle
	}
	return []table.Column{
		{Title: "Status", Width: colStatus},
		{Title: "Title", Width: title},
		{Title: "Company", Width: colCompany},
		{Title: "Location", Width: colLocation},
		{Title: "Added", Width: colAdded},
	}
}

// refresh rebuilds the visible rows from postings and the current filter.
func (m *reviewModel) refresh() {
	m.visible = nil
	rows := make([]table.Row, 0, len(m.postings))
	for i, p := range m.postings {
		if m.filter != "" && p.Status != m.filter {
			continue
		}
		m.visible = append(m.visible, i)
		added := ""
		if !p.DateAdded.IsZero() {
			added = p.DateAdded.Local().Format("2006-01-02")
		}
		rows = append(rows, table.Row{string(p.Status), p.Title, p.Company, p.Location, added})
	}
	m.table.SetRows(rows)
	if c := m.table.Cursor(); c >= len(rows) {
		m.table.SetCursor(max(len(rows)-1, 0))
	}
}

// selected returns the index into postings of the highlighted row.
func (m reviewModel) selected() (int, bool) {
	c := m.table.Cursor()
	if c < 0 || c >= len(m.visible) {
		return 0, false
	}
	return m.visible[c], true
}

func (m reviewModel) Init() tea.Cmd {
	return nil
}

func (m reviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.table.SetColumns(columns(msg.Width))
		m.table.SetHeight(max(msg.Height-7, 3))
		return m, nil

	case statusUpdatedMsg:
		if msg.err != nil {
			m.message = fmt.Sprintf("update failed: %v", msg.err)
			m.failed = true
			return m, nil
		}
		for i := range m.postings {
			if m.postings[i].URL == msg.url {
				m.postings[i].Status = msg.status
			}
		}
		m.message = fmt.Sprintf("marked %s", msg.status)
		m.failed = false
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "enter", " ", "s":
			i, ok := m.selected()
			if !ok {
				return m, nil
			}
			p := m.postings[i]
			return m, m.updateStatusCmd(p.URL, p.Status.Next())
		case "f":
			m.filter = nextFilter(m.filter)
			m.message = ""
			m.refresh()
			return m, nil
		case "o":
			if i, ok := m.selected(); ok {
				openURL(m.postings[i].URL)
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m reviewModel) updateStatusCmd(url string, status model.Status) tea.Cmd {
	store := m.store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return statusUpdatedMsg{url: url, status: status, err: store.UpdateStatus(ctx, url, status)}
	}
}

func nextFilter(cur model.Status) model.Status {
	for i, f := range filterOrder {
		if f == cur {
			return filterOrder[(i+1)%len(filterOrder)]
		}
	}
	return ""
}

func (m reviewModel) View() string {
	label := "all"
	if m.filter != "" {
		label = string(m.filter)
	}
	header := titleStyle.Render(fmt.Sprintf("Job applications (%d shown, filter: %s)", len(m.visible), label))

	msg := m.message
	if m.failed {
		msg = errorStyle.Render(msg)
	}
	bar := statusBarStyle.Render("↑/↓ move  enter advance status  f filter  o open  q quit")

	return header + "\n" + baseStyle.Render(m.table.View()) + "\n" + bar + "\n" + msg
}

// openURL opens url in the default system browser, fire-and-forget.
func openURL(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return
	}
	_ = cmd.Start()
}

// Run launches the review table in the alternate screen.
func Run(postings []model.JobPosting, store StatusUpdater) error {
	p := tea.NewProgram(newReviewModel(postings, store), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
