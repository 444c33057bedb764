package providers

import (
	"fmt"
	"strings"

	"docchat/internal/config"
)

// Manager holds the provider pair selected by configuration.
type Manager struct {
	llm   LLMProvider
	embed EmbeddingProvider
}

func NewManager(cfg config.Config, creds config.Credentials) (*Manager, error) {
	llm, err := buildLLM(cfg, creds)
	if err != nil {
		return nil, err
	}
	embed, err := buildEmbedder(cfg, creds)
	if err != nil {
		return nil, err
	}
	return &Manager{llm: llm, embed: embed}, nil
}

func (m *Manager) LLM() LLMProvider { return m.llm }

func (m *Manager) Embedder() EmbeddingProvider { return m.embed }

func buildLLM(cfg config.Config, creds config.Credentials) (LLMProvider, error) {
	switch strings.ToLower(cfg.LLMProvider) {
	case "groq":
		return NewGroqProvider(creds.LLMKey, cfg.GroqBaseURL, cfg.LLMModel), nil
	case "openai":
		return NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.OpenAIEmbedModel), nil
	case "mock":
		return NewMockProvider(cfg.MockEmbedDim), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.LLMProvider)
	}
}

func buildEmbedder(cfg config.Config, creds config.Credentials) (EmbeddingProvider, error) {
	switch strings.ToLower(cfg.EmbedProvider) {
	case "cohere":
		return NewCohereProvider(creds.EmbedKey, cfg.CohereBaseURL, cfg.EmbedModel, cfg.EmbedBatch), nil
	case "openai":
		return NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.OpenAIEmbedModel), nil
	case "ollama":
		return NewOllamaEmbeddingProvider(cfg.OllamaBaseURL, cfg.OllamaEmbedModel), nil
	case "mock":
		return NewMockProvider(cfg.MockEmbedDim), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.EmbedProvider)
	}
}
