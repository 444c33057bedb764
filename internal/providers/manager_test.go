package providers

import (
	"testing"

	"docchat/internal/config"

	"github.com/stretchr/testify/require"
)

func TestNewManagerSelectsProviders(t *testing.T) {
	creds := config.Credentials{ParseKey: "p", LLMKey: "l", EmbedKey: "e"}
	cfg := config.Config{LLMProvider: "groq", EmbedProvider: "cohere", LLMModel: "llama3-70b-8192"}
	m, err := NewManager(cfg, creds)
	require.NoError(t, err)
	require.IsType(t, &GroqProvider{}, m.LLM())
	require.IsType(t, &CohereProvider{}, m.Embedder())

	cfg.LLMProvider, cfg.EmbedProvider = "mock", "ollama"
	m, err = NewManager(cfg, creds)
	require.NoError(t, err)
	require.IsType(t, &MockProvider{}, m.LLM())
	require.IsType(t, &OllamaEmbeddingProvider{}, m.Embedder())

	cfg.EmbedProvider = "word2vec"
	_, err = NewManager(cfg, creds)
	require.Error(t, err)
}
