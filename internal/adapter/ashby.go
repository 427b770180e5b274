package adapter

import (
	"context"
	"fmt"
	"iter"
	"net/http"

	"github.com/amishk599/jobtrail/internal/model"
)

const ashbyBaseURL = "https://api.ashbyhq.com/posting-api/job-board"

// ashbyJob represents a single job in the Ashby API response.
type ashbyJob struct {
	Title          string `json:"title"`
	Location       string `json:"location"`
	Department     string `json:"department"`
	EmploymentType string `json:"employmentType"`
	IsRemote       bool   `json:"isRemote"`
	JobUrl         string `json:"jobUrl"`
	PublishedAt    string `json:"publishedAt"`
	IsListed       bool   `json:"isListed"`
}

// ashbyResponse is the top-level Ashby job board API response.
type ashbyResponse struct {
	Jobs []ashbyJob `json:"jobs"`
}

// AshbyAdapter enumerates postings from the Ashby public job board API.
// The board is returned in one response.
type AshbyAdapter struct {
	boardToken  string
	companyName string
	client      *http.Client
}

var _ model.SourceEnumerator = (*AshbyAdapter)(nil)

// NewAshbyAdapter creates a new adapter for an Ashby job board.
func NewAshbyAdapter(boardToken string, companyName string, client *http.Client) *AshbyAdapter {
	return &AshbyAdapter{
		boardToken:  boardToken,
		companyName: companyName,
		client:      client,
	}
}

func (a *AshbyAdapter) Name() string           { return "ashby/" + a.boardToken }
func (a *AshbyAdapter) Kind() model.SourceKind { return model.KindStructured }

func (a *AshbyAdapter) Enumerate(ctx context.Context) iter.Seq2[model.Candidate, error] {
	return func(yield func(model.Candidate, error) bool) {
		url := fmt.Sprintf("%s/%s", ashbyBaseURL, a.boardToken)

		var resp ashbyResponse
		if err := getJSON(ctx, a.client, url, "ashby fetch for "+a.boardToken, &resp); err != nil {
			yield(model.Candidate{}, unavailable(a.Name(), err))
			return
		}

		for _, aj := range resp.Jobs {
			if !aj.IsListed || aj.JobUrl == "" {
				continue
			}

			location := aj.Location
			if location == "" && aj.IsRemote {
				location = "Remote"
			}

			c := model.Candidate{
				URL:        aj.JobUrl,
				Company:    a.companyName,
				Department: aj.Department,
				UpdatedAt:  parseTime(aj.PublishedAt),
				Fields: &model.JobFields{
					Title:    model.Str(aj.Title),
					Company:  model.Str(a.companyName),
					Location: model.Str(location),
					JobType:  model.Str(aj.EmploymentType),
				},
			}
			if !yield(c, nil) {
				return
			}
		}
	}
}
