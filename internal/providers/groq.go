package providers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// GroqProvider streams completions from Groq's OpenAI-compatible API.
type GroqProvider struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

func NewGroqProvider(apiKey, baseURL, model string) *GroqProvider {
	if strings.TrimSpace(model) == "" {
		model = "llama3-70b-8192"
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = "https://api.groq.com/openai/v1"
	}
	return &GroqProvider{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

func (g *GroqProvider) GenerateStream(ctx context.Context, req GenerateRequest, onDelta func(string) error) (ProviderInfo, error) {
	info := ProviderInfo{Name: "groq", Model: g.model}
	if g.apiKey == "" {
		return info, fmt.Errorf("groq key missing")
	}
	if err := streamChatCompletion(ctx, g.client, g.baseURL+"/chat/completions", g.apiKey, g.model, req, onDelta); err != nil {
		return info, fmt.Errorf("groq generate: %w", err)
	}
	return info, nil
}
