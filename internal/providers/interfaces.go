package providers

import "context"

// Cohere-style input types. Providers that do not distinguish documents from
// queries ignore them.
const (
	InputTypeDocument = "search_document"
	InputTypeQuery    = "search_query"
)

type ProviderInfo struct {
	Name  string `json:"name"`
	Model string `json:"model"`
}

type GenerateRequest struct {
	Operation string   `json:"operation"`
	System    string   `json:"system"`
	Prompt    string   `json:"prompt"`
	Context   []string `json:"context"`
}

type EmbedRequest struct {
	Operation string   `json:"operation"`
	InputType string   `json:"input_type"`
	Inputs    []string `json:"inputs"`
}

// LLMProvider streams a completion. onDelta receives each text fragment in
// order; a non-nil return from onDelta aborts the stream with that error.
type LLMProvider interface {
	GenerateStream(ctx context.Context, req GenerateRequest, onDelta func(string) error) (ProviderInfo, error)
}

type EmbeddingProvider interface {
	Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error)
}
