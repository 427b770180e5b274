package notifier

import (
	"log/slog"

	"github.com/amishk599/jobtrail/internal/model"
)

var _ model.Notifier = (*LogNotifier)(nil)

// LogNotifier writes newly stored postings to the logger.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs one line per posting. It never fails.
func (n *LogNotifier) Notify(postings []model.JobPosting) error {
	for _, p := range postings {
		args := []any{"company", p.Company, "title", p.Title, "location", p.Location, "url", p.URL}
		if p.Salary != "" {
			args = append(args, "salary", p.Salary)
		}
		if p.JobType != "" {
			args = append(args, "job_type", p.JobType)
		}
		n.logger.Info("new posting", args...)
	}
	return nil
}
