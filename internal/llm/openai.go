package llm

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"
)

// OpenAIProvider generates text with the OpenAI chat completions API.
type OpenAIProvider struct {
	Model       string
	APIKey      string
	Temperature float64
	baseURL     string
	client      *http.Client
}

// NewOpenAIProvider creates a provider reading its key from apiKeyEnv.
func NewOpenAIProvider(model, apiKeyEnv string) *OpenAIProvider {
	return &OpenAIProvider{
		Model:       model,
		APIKey:      os.Getenv(apiKeyEnv),
		Temperature: 0.7,
		baseURL:     "https://api.openai.com/v1",
		client:      &http.Client{Timeout: 180 * time.Second},
	}
}

// IsConfigured reports whether an API key was found.
func (o *OpenAIProvider) IsConfigured() bool {
	return o.APIKey != ""
}

// Generate sends prompt as a single user message and returns the first choice.
func (o *OpenAIProvider) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if o.APIKey == "" {
		return "", fmt.Errorf("OpenAI API key not configured")
	}

	body := map[string]any{
		"model":       o.Model,
		"messages":    []chatMessage{{Role: "user", Content: prompt}},
		"max_tokens":  maxTokens,
		"temperature": o.Temperature,
	}
	header := http.Header{"Authorization": {"Bearer " + o.APIKey}}

	var reply struct {
		Choices []struct {
			Message chatMessage `json:"message"`
		} `json:"choices"`
	}
	if err := postJSON(ctx, o.client, o.baseURL+"/chat/completions", header, body, &reply); err != nil {
		return "", fmt.Errorf("OpenAI chat: %w", err)
	}
	if len(reply.Choices) == 0 {
		return "", fmt.Errorf("no choices in OpenAI response")
	}
	return reply.Choices[0].Message.Content, nil
}
