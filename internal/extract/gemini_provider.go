package extract

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// GeminiProvider calls the Generative Language generateContent REST endpoint.
type GeminiProvider struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewGeminiProvider creates a provider for the given Gemini model.
func NewGeminiProvider(baseURL, apiKey, model string, httpClient *http.Client) *GeminiProvider {
	return &GeminiProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: httpClient,
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		Temperature      float64 `json:"temperature"`
		ResponseMIMEType string  `json:"responseMimeType,omitempty"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// Complete sends prompt as a single user turn and joins the text parts of the first candidate.
func (p *GeminiProvider) Complete(ctx context.Context, prompt string) (string, error) {
	var in geminiRequest
	in.Contents = []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}}
	in.GenerationConfig.ResponseMIMEType = "application/json"

	header := http.Header{}
	header.Set("x-goog-api-key", p.apiKey)
	url := fmt.Sprintf("%s/models/%s:generateContent", p.baseURL, p.model)

	var out geminiResponse
	if err := postJSON(ctx, p.httpClient, url, "gemini", header, in, &out); err != nil {
		return "", err
	}
	if out.Error != nil {
		return "", fmt.Errorf("gemini error (%s): %s", out.Error.Status, out.Error.Message)
	}
	if len(out.Candidates) == 0 {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	var sb strings.Builder
	for _, part := range out.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}
