package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OpenAIProvider uses the OpenAI REST API for both streaming chat and
// embeddings.
type OpenAIProvider struct {
	apiKey     string
	baseURL    string
	model      string
	embedModel string
	client     *http.Client
}

func NewOpenAIProvider(apiKey, baseURL, model, embedModel string) *OpenAIProvider {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &OpenAIProvider{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		embedModel: embedModel,
		client:     &http.Client{Timeout: 120 * time.Second},
	}
}

func (o *OpenAIProvider) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	info := ProviderInfo{Name: "openai", Model: o.embedModel}
	if o.apiKey == "" {
		return nil, info, fmt.Errorf("openai key missing")
	}
	payload, _ := json.Marshal(map[string]any{"model": o.embedModel, "input": req.Inputs})
	httpReq, _ := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/embeddings", bytes.NewReader(payload))
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, info, fmt.Errorf("openai embedding request failed: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return nil, info, fmt.Errorf("openai embedding error %d: %s", resp.StatusCode, string(body))
	}
	var parsed struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, info, fmt.Errorf("decode embedding response: %w", err)
	}
	out := make([][]float32, 0, len(parsed.Data))
	for _, d := range parsed.Data {
		out = append(out, d.Embedding)
	}
	return out, info, nil
}

func (o *OpenAIProvider) GenerateStream(ctx context.Context, req GenerateRequest, onDelta func(string) error) (ProviderInfo, error) {
	info := ProviderInfo{Name: "openai", Model: o.model}
	if o.apiKey == "" {
		return info, fmt.Errorf("openai key missing")
	}
	if err := streamChatCompletion(ctx, o.client, o.baseURL+"/chat/completions", o.apiKey, o.model, req, onDelta); err != nil {
		return info, fmt.Errorf("openai generate: %w", err)
	}
	return info, nil
}
