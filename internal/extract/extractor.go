package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/amishk599/jobtrail/internal/model"
)

// Response keys in the order the instruction lists them.
const (
	keyTitle    = "job_title"
	keyCompany  = "company_name"
	keyLocation = "location"
	keySalary   = "salary_range"
	keyJobType  = "job_type"
)

var responseKeys = []string{keyTitle, keyCompany, keyLocation, keySalary, keyJobType}

// Extractor implements model.FieldExtractor on top of an LLMProvider.
type Extractor struct {
	provider LLMProvider
	tmpl     *template.Template
	maxChars int
	logger   *slog.Logger
}

var _ model.FieldExtractor = (*Extractor)(nil)

// NewExtractor creates an extractor. Text longer than maxChars runes is cut
// before it is sent; maxChars <= 0 disables the cap.
func NewExtractor(provider LLMProvider, tmpl *template.Template, maxChars int, logger *slog.Logger) *Extractor {
	return &Extractor{
		provider: provider,
		tmpl:     tmpl,
		maxChars: maxChars,
		logger:   logger,
	}
}

// Extract asks the provider for the five canonical fields. Provider failures
// are returned as-is; unusable responses come back as *model.ParseError.
func (e *Extractor) Extract(ctx context.Context, text, sourceURL string) (model.JobFields, error) {
	var promptBuf bytes.Buffer
	if err := e.tmpl.Execute(&promptBuf, struct{ URL, Text string }{
		URL:  sourceURL,
		Text: capRunes(text, e.maxChars),
	}); err != nil {
		return model.JobFields{}, fmt.Errorf("render prompt: %w", err)
	}

	raw, err := e.provider.Complete(ctx, promptBuf.String())
	if err != nil {
		return model.JobFields{}, fmt.Errorf("llm complete: %w", err)
	}

	fields, err := ParseFields(raw)
	if err != nil {
		e.logger.Debug("unparseable extraction response", "url", sourceURL, "raw", truncate(raw, 500))
		return model.JobFields{}, err
	}
	return fields, nil
}

// ParseFields recovers the JSON object from a response that may be wrapped in
// prose or code fences: it decodes the text between the first '{' and the last '}'.
// Every key must be present; each value must be a string or null.
func ParseFields(raw string) (model.JobFields, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return model.JobFields{}, &model.ParseError{Raw: raw, Err: errors.New("no JSON object in response")}
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw[start:end+1]), &obj); err != nil {
		return model.JobFields{}, &model.ParseError{Raw: raw, Err: err}
	}

	values := make(map[string]*string, len(responseKeys))
	for _, key := range responseKeys {
		v, ok := obj[key]
		if !ok {
			return model.JobFields{}, &model.ParseError{Raw: raw, Err: fmt.Errorf("missing key %q", key)}
		}
		s, err := decodeValue(v)
		if err != nil {
			return model.JobFields{}, &model.ParseError{Raw: raw, Err: fmt.Errorf("key %q: %w", key, err)}
		}
		values[key] = s
	}

	return model.JobFields{
		Title:    values[keyTitle],
		Company:  values[keyCompany],
		Location: values[keyLocation],
		Salary:   values[keySalary],
		JobType:  values[keyJobType],
	}, nil
}

// decodeValue maps null and blank strings to nil. Bare numbers are kept as
// their literal text since services sometimes emit a salary as a number.
func decodeValue(v json.RawMessage) (*string, error) {
	trimmed := bytes.TrimSpace(v)
	if bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return model.Str(strings.TrimSpace(s)), nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err == nil {
		return model.Str(n.String()), nil
	}
	return nil, fmt.Errorf("want string or null, got %s", truncate(string(trimmed), 40))
}

func capRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
