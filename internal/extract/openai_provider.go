package extract

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const extractionSystemPrompt = "You extract structured data from job postings and answer with JSON only."

// OpenAIProvider talks to any server exposing the OpenAI chat completions API.
type OpenAIProvider struct {
	endpoint string
	header   http.Header
	model    string
	client   *http.Client
}

func NewOpenAIProvider(baseURL, apiKey, model string, httpClient *http.Client) *OpenAIProvider {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+apiKey)
	return &OpenAIProvider{
		endpoint: strings.TrimRight(baseURL, "/") + "/chat/completions",
		header:   h,
		model:    model,
		client:   httpClient,
	}
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    int            `json:"temperature"`
	MaxTokens      int            `json:"max_tokens"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Error   *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Complete returns the first choice's content. JSON mode does not guarantee
// a bare object; ParseFields handles surrounding text.
func (p *OpenAIProvider) Complete(ctx context.Context, prompt string) (string, error) {
	in := chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: extractionSystemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens:      512,
		ResponseFormat: responseFormat{Type: "json_object"},
	}

	var out chatResponse
	if err := postJSON(ctx, p.client, p.endpoint, "openai", p.header, in, &out); err != nil {
		return "", err
	}
	switch {
	case out.Error != nil:
		return "", fmt.Errorf("openai error (%s): %s", out.Error.Type, out.Error.Message)
	case len(out.Choices) == 0:
		return "", errors.New("openai returned no choices")
	}
	return out.Choices[0].Message.Content, nil
}
