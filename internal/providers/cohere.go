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

// CohereProvider calls Cohere's embed endpoint. Inputs are sent in batches
// because the API caps the number of texts per request.
type CohereProvider struct {
	apiKey  string
	baseURL string
	model   string
	batch   int
	client  *http.Client
}

func NewCohereProvider(apiKey, baseURL, model string, batch int) *CohereProvider {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = "https://api.cohere.com"
	}
	if strings.TrimSpace(model) == "" {
		model = "embed-english-v3.0"
	}
	if batch <= 0 || batch > 96 {
		batch = 96
	}
	return &CohereProvider{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		batch:   batch,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *CohereProvider) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	info := ProviderInfo{Name: "cohere", Model: c.model}
	if c.apiKey == "" {
		return nil, info, fmt.Errorf("cohere key missing")
	}
	if len(req.Inputs) == 0 {
		return nil, info, fmt.Errorf("no embedding inputs")
	}
	inputType := req.InputType
	if inputType == "" {
		inputType = InputTypeDocument
	}
	out := make([][]float32, 0, len(req.Inputs))
	for start := 0; start < len(req.Inputs); start += c.batch {
		end := min(start+c.batch, len(req.Inputs))
		vecs, err := c.embedBatch(ctx, req.Inputs[start:end], inputType)
		if err != nil {
			return nil, info, err
		}
		out = append(out, vecs...)
	}
	return out, info, nil
}

func (c *CohereProvider) embedBatch(ctx context.Context, texts []string, inputType string) ([][]float32, error) {
	payload, _ := json.Marshal(map[string]any{
		"model":      c.model,
		"texts":      texts,
		"input_type": inputType,
		"truncate":   "END",
	})
	httpReq, _ := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/embed", bytes.NewReader(payload))
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("cohere embedding request failed: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("cohere embedding error %d: %s", resp.StatusCode, string(body))
	}
	var parsed struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode cohere embedding response: %w", err)
	}
	if len(parsed.Embeddings) != len(texts) {
		return nil, fmt.Errorf("cohere returned %d embeddings for %d texts", len(parsed.Embeddings), len(texts))
	}
	return parsed.Embeddings, nil
}
