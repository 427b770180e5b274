package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/http"

	"github.com/amishk599/jobtrail/internal/model"
)

const greenhouseBaseURL = "https://boards-api.greenhouse.io/v1/boards"

// greenhouseMaxPages bounds pagination for boards that ignore the page parameter.
const greenhouseMaxPages = 50

// greenhouseJob represents a single job in the Greenhouse API response.
type greenhouseJob struct {
	ID          int64                `json:"id"`
	Title       string               `json:"title"`
	CompanyName string               `json:"company_name"`
	Location    greenhouseNamed      `json:"location"`
	AbsoluteURL string               `json:"absolute_url"`
	UpdatedAt   string               `json:"updated_at"`
	Department  json.RawMessage      `json:"department"`
	Departments []greenhouseNamed    `json:"departments"`
	Metadata    []greenhouseMetadata `json:"metadata"`
}

type greenhouseNamed struct {
	Name string `json:"name"`
}

type greenhouseMetadata struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

// greenhouseResponse is the top-level Greenhouse jobs API response.
type greenhouseResponse struct {
	Jobs []greenhouseJob `json:"jobs"`
	Meta struct {
		Total int `json:"total"`
	} `json:"meta"`
}

// GreenhouseAdapter enumerates postings from the Greenhouse public boards API.
type GreenhouseAdapter struct {
	boardToken  string
	companyName string
	client      *http.Client
}

var _ model.SourceEnumerator = (*GreenhouseAdapter)(nil)

// NewGreenhouseAdapter creates a new adapter for a Greenhouse board.
func NewGreenhouseAdapter(boardToken string, companyName string, client *http.Client) *GreenhouseAdapter {
	return &GreenhouseAdapter{
		boardToken:  boardToken,
		companyName: companyName,
		client:      client,
	}
}

func (a *GreenhouseAdapter) Name() string           { return "greenhouse/" + a.boardToken }
func (a *GreenhouseAdapter) Kind() model.SourceKind { return model.KindStructured }

// Enumerate walks the board page by page. It stops on an empty page, once
// meta.total postings were yielded, or when a page brings nothing new.
func (a *GreenhouseAdapter) Enumerate(ctx context.Context) iter.Seq2[model.Candidate, error] {
	return func(yield func(model.Candidate, error) bool) {
		seen := make(map[string]struct{})
		for page := 1; page <= greenhouseMaxPages; page++ {
			url := fmt.Sprintf("%s/%s/jobs?content=true&page=%d", greenhouseBaseURL, a.boardToken, page)

			var resp greenhouseResponse
			if err := getJSON(ctx, a.client, url, "greenhouse fetch for "+a.boardToken, &resp); err != nil {
				yield(model.Candidate{}, unavailable(a.Name(), err))
				return
			}
			if len(resp.Jobs) == 0 {
				return
			}

			fresh := 0
			for _, gj := range resp.Jobs {
				if gj.AbsoluteURL == "" {
					continue
				}
				if _, dup := seen[gj.AbsoluteURL]; dup {
					continue
				}
				seen[gj.AbsoluteURL] = struct{}{}
				fresh++
				if !yield(a.candidate(gj), nil) {
					return
				}
			}

			if fresh == 0 || (resp.Meta.Total > 0 && len(seen) >= resp.Meta.Total) {
				return
			}
		}
	}
}

func (a *GreenhouseAdapter) candidate(gj greenhouseJob) model.Candidate {
	company := a.companyName
	if company == "" {
		company = gj.CompanyName
	}
	if company == "" {
		company = a.boardToken
	}

	dept := departmentName(gj.Department)
	if dept == "" && len(gj.Departments) > 0 {
		dept = gj.Departments[0].Name
	}

	var jobType string
	if len(gj.Metadata) > 0 {
		// metadata values may be strings, lists or null; only strings map to a job type
		_ = json.Unmarshal(gj.Metadata[0].Value, &jobType)
	}

	return model.Candidate{
		URL:        gj.AbsoluteURL,
		Company:    company,
		Department: dept,
		UpdatedAt:  parseTime(gj.UpdatedAt),
		Fields: &model.JobFields{
			Title:    model.Str(gj.Title),
			Company:  model.Str(company),
			Location: model.Str(gj.Location.Name),
			JobType:  model.Str(jobType),
		},
	}
}

// departmentName reads "department" as either {"name": ...} or a list of them.
func departmentName(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var one greenhouseNamed
	if err := json.Unmarshal(raw, &one); err == nil {
		return one.Name
	}
	var many []greenhouseNamed
	if err := json.Unmarshal(raw, &many); err == nil && len(many) > 0 {
		return many[0].Name
	}
	return ""
}
