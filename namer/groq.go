package namer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"shorts-bot/video"
)

const (
	defaultModel   = "llama-3.3-70b-versatile"
	defaultBaseURL = "https://api.groq.com"
)

// GroqGenerator produces titles and descriptions via the Groq chat
// completions API.
type GroqGenerator struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// GroqOption configures a GroqGenerator.
type GroqOption func(*GroqGenerator)

// WithModel sets the Groq model to use.
func WithModel(model string) GroqOption {
	return func(g *GroqGenerator) {
		g.model = model
	}
}

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) GroqOption {
	return func(g *GroqGenerator) {
		g.baseURL = url
	}
}

// NewGroqGenerator creates a Groq-backed title generator.
func NewGroqGenerator(apiKey string, opts ...GroqOption) *GroqGenerator {
	g := &GroqGenerator{
		apiKey:     apiKey,
		model:      defaultModel,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate produces a title and description for the candidate.
func (g *GroqGenerator) Generate(ctx context.Context, cand video.Candidate) (string, string, error) {
	prompt := buildPrompt(cand)

	reqBody := groqRequest{
		Model: g.model,
		Messages: []groqMessage{
			{Role: "user", Content: prompt},
		},
		MaxTokens:   200,
		Temperature: 0.9,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", "", fmt.Errorf("marshal request: %w", err)
	}

	url := g.baseURL + "/openai/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var groqResp groqResponse
	if err := json.NewDecoder(resp.Body).Decode(&groqResp); err != nil {
		return "", "", fmt.Errorf("decode response: %w", err)
	}

	if len(groqResp.Choices) == 0 {
		return "", "", fmt.Errorf("no choices in response")
	}

	title, description, err := parseGenerated(groqResp.Choices[0].Message.Content)
	if err != nil {
		return "", "", err
	}
	return title, description, nil
}

func buildPrompt(cand video.Candidate) string {
	return fmt.Sprintf(`Create viral YouTube Shorts content.

Original: %q by %s
Views: %d

Respond with exactly two lines:
TITLE: (max 60 chars, catchy)
DESCRIPTION: (2-3 lines)`, cand.Title, cand.Channel, cand.ViewCount)
}

// parseGenerated extracts the TITLE:/DESCRIPTION: lines from the model
// output.
func parseGenerated(content string) (string, string, error) {
	var title, description string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if after, ok := strings.CutPrefix(line, "TITLE:"); ok {
			title = cleanTitle(after)
		} else if after, ok := strings.CutPrefix(line, "DESCRIPTION:"); ok {
			description = strings.TrimSpace(after)
		}
	}

	if title == "" || description == "" {
		return "", "", fmt.Errorf("generated content missing title or description")
	}
	return title, description, nil
}

func cleanTitle(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`)
	return strings.TrimSpace(s)
}

// Groq API types

type groqRequest struct {
	Model       string        `json:"model"`
	Messages    []groqMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type groqResponse struct {
	Choices []groqChoice `json:"choices"`
}

type groqChoice struct {
	Message groqMessage `json:"message"`
}
