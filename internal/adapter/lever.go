package adapter

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"strings"
	"time"

	"github.com/amishk599/jobtrail/internal/model"
)

const (
	leverBaseURL  = "https://api.lever.co/v0/postings"
	leverPageSize = 100
)

// leverCategories represents the categories object in a Lever job.
type leverCategories struct {
	Team         string   `json:"team"`
	Department   string   `json:"department"`
	Location     string   `json:"location"`
	Commitment   string   `json:"commitment"`
	AllLocations []string `json:"allLocations"`
}

// leverJob represents a single job in the Lever API response.
type leverJob struct {
	ID            string          `json:"id"`
	Text          string          `json:"text"`
	Categories    leverCategories `json:"categories"`
	CreatedAt     int64           `json:"createdAt"`
	WorkplaceType string          `json:"workplaceType"`
	HostedURL     string          `json:"hostedUrl"`
}

// LeverAdapter enumerates postings from the Lever public postings API.
type LeverAdapter struct {
	companySlug string
	companyName string
	client      *http.Client
}

var _ model.SourceEnumerator = (*LeverAdapter)(nil)

// NewLeverAdapter creates a new adapter for a Lever board.
func NewLeverAdapter(companySlug string, companyName string, client *http.Client) *LeverAdapter {
	return &LeverAdapter{
		companySlug: companySlug,
		companyName: companyName,
		client:      client,
	}
}

func (a *LeverAdapter) Name() string           { return "lever/" + a.companySlug }
func (a *LeverAdapter) Kind() model.SourceKind { return model.KindStructured }

// Enumerate pages through the board with skip/limit until a short page.
func (a *LeverAdapter) Enumerate(ctx context.Context) iter.Seq2[model.Candidate, error] {
	return func(yield func(model.Candidate, error) bool) {
		for skip := 0; ; skip += leverPageSize {
			url := fmt.Sprintf("%s/%s?mode=json&skip=%d&limit=%d", leverBaseURL, a.companySlug, skip, leverPageSize)

			var jobs []leverJob
			if err := getJSON(ctx, a.client, url, "lever fetch for "+a.companySlug, &jobs); err != nil {
				yield(model.Candidate{}, unavailable(a.Name(), err))
				return
			}

			for _, lj := range jobs {
				if lj.HostedURL == "" {
					continue
				}
				if !yield(a.candidate(lj), nil) {
					return
				}
			}

			if len(jobs) < leverPageSize {
				return
			}
		}
	}
}

func (a *LeverAdapter) candidate(lj leverJob) model.Candidate {
	// Prefer allLocations if available, fallback to location.
	location := lj.Categories.Location
	if len(lj.Categories.AllLocations) > 0 {
		location = strings.Join(lj.Categories.AllLocations, ", ")
	}
	if location == "" && lj.WorkplaceType == "remote" {
		location = "Remote"
	}

	// createdAt is Unix milliseconds.
	var created *time.Time
	if lj.CreatedAt > 0 {
		t := time.UnixMilli(lj.CreatedAt)
		created = &t
	}

	return model.Candidate{
		URL:        lj.HostedURL,
		Company:    a.companyName,
		Department: lj.Categories.Department,
		UpdatedAt:  created,
		Fields: &model.JobFields{
			Title:    model.Str(lj.Text),
			Company:  model.Str(a.companyName),
			Location: model.Str(location),
			JobType:  model.Str(lj.Categories.Commitment),
		},
	}
}
