package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/amishk599/jobtrail/internal/model"
)

var _ model.Notifier = (*SlackNotifier)(nil)

// maxDigestPostings keeps a digest under Slack's 50-block message limit.
const maxDigestPostings = 15

// SlackNotifier posts a digest of new postings to a Slack Incoming Webhook.
type SlackNotifier struct {
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewSlackNotifier(webhookURL string, httpClient *http.Client, logger *slog.Logger) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Notify sends the postings as one or more digest messages of up to
// maxDigestPostings each. It returns an error only if every message failed.
func (s *SlackNotifier) Notify(postings []model.JobPosting) error {
	if len(postings) == 0 {
		return nil
	}

	var sent, failed int
	for start := 0; start < len(postings); start += maxDigestPostings {
		end := min(start+maxDigestPostings, len(postings))
		if start > 0 {
			time.Sleep(500 * time.Millisecond)
		}
		if err := s.send(buildDigest(postings[start:end], len(postings))); err != nil {
			s.logger.Error("slack notification failed", "postings", end-start, "error", err)
			failed++
			continue
		}
		sent++
	}

	if sent == 0 {
		return fmt.Errorf("all %d slack messages failed", failed)
	}
	s.logger.Info("slack notifications complete", "messages", sent, "failed", failed, "postings", len(postings))
	return nil
}

// send posts payload, retrying once after a 429.
func (s *SlackNotifier) send(payload slackPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	status, retryAfter, err := s.post(body)
	if err != nil {
		return err
	}
	if status == http.StatusTooManyRequests {
		s.logger.Warn("slack rate limited, retrying", "retry_after", retryAfter)
		time.Sleep(retryAfter)
		if status, _, err = s.post(body); err != nil {
			return fmt.Errorf("retry: %w", err)
		}
	}
	if status != http.StatusOK {
		return fmt.Errorf("slack returned %d", status)
	}
	return nil
}

func (s *SlackNotifier) post(body []byte) (int, time.Duration, error) {
	resp, err := s.httpClient.Post(s.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return 0, 0, fmt.Errorf("post to slack: %w", err)
	}
	defer resp.Body.Close()

	secs, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
	if secs <= 0 {
		secs = 1
	}
	return resp.StatusCode, time.Duration(secs) * time.Second, nil
}

// Block Kit payload types.

type slackPayload struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type      string        `json:"type"`
	Text      *slackText    `json:"text,omitempty"`
	Fields    []slackText   `json:"fields,omitempty"`
	Accessory *slackElement `json:"accessory,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackElement struct {
	Type string    `json:"type"`
	Text slackText `json:"text"`
	URL  string    `json:"url"`
}

// SendTestMessage sends a sample posting to verify the integration works.
func SendTestMessage(n model.Notifier) error {
	return n.Notify([]model.JobPosting{{
		Title:     "Test Notification",
		Company:   "jobtrail",
		Location:  "Remote",
		JobType:   "Full-time",
		URL:       "https://example.com/jobs/test",
		Status:    model.StatusNotApplied,
		DateAdded: time.Now(),
	}})
}

func buildDigest(postings []model.JobPosting, total int) slackPayload {
	title := fmt.Sprintf("%d new job posting", total)
	if total != 1 {
		title += "s"
	}

	blocks := []slackBlock{{
		Type: "header",
		Text: &slackText{Type: "plain_text", Text: title},
	}}
	for _, p := range postings {
		fields := []slackText{
			{Type: "mrkdwn", Text: "*Location:*\n" + orDash(p.Location)},
			{Type: "mrkdwn", Text: "*Type:*\n" + orDash(p.JobType)},
		}
		if p.Salary != "" {
			fields = append(fields, slackText{Type: "mrkdwn", Text: "*Salary:*\n" + p.Salary})
		}
		blocks = append(blocks,
			slackBlock{
				Type: "section",
				Text: &slackText{Type: "mrkdwn", Text: fmt.Sprintf("*%s*\n%s", p.Title, p.Company)},
				Accessory: &slackElement{
					Type: "button",
					Text: slackText{Type: "plain_text", Text: "View"},
					URL:  p.URL,
				},
			},
			slackBlock{Type: "section", Fields: fields},
			slackBlock{Type: "divider"},
		)
	}
	return slackPayload{Text: title, Blocks: blocks}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
