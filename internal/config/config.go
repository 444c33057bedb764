package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	EnvParseKey = "LLAMA_CLOUD_API_KEY"
	EnvLLMKey   = "GROQ_API_KEY"
	EnvEmbedKey = "COHERE_API_KEY"
)

// ErrMissingCredentials is returned when any required API key is absent.
var ErrMissingCredentials = errors.New("API keys not found")

// Credentials holds the three secrets the server needs before it may start.
type Credentials struct {
	ParseKey string
	LLMKey   string
	EmbedKey string
}

// LoadCredentials reads the parsing, language-model and embedding keys from
// the environment. Blank values count as missing.
func LoadCredentials() (Credentials, error) {
	c := Credentials{
		ParseKey: strings.TrimSpace(os.Getenv(EnvParseKey)),
		LLMKey:   strings.TrimSpace(os.Getenv(EnvLLMKey)),
		EmbedKey: strings.TrimSpace(os.Getenv(EnvEmbedKey)),
	}
	missing := make([]string, 0, 3)
	if c.ParseKey == "" {
		missing = append(missing, EnvParseKey)
	}
	if c.LLMKey == "" {
		missing = append(missing, EnvLLMKey)
	}
	if c.EmbedKey == "" {
		missing = append(missing, EnvEmbedKey)
	}
	if len(missing) > 0 {
		return Credentials{}, fmt.Errorf("%w: set %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}
	return c, nil
}

type Config struct {
	APIAddr           string
	LLMModel          string
	EmbedModel        string
	Parser            string
	LLMProvider       string
	EmbedProvider     string
	IndexBackend      string
	BuildMode         string
	PostgresURL       string
	QdrantAddr        string
	TemporalAddress   string
	TemporalTaskQueue string
	UploadDir         string
	LlamaParseBaseURL string
	GroqBaseURL       string
	CohereBaseURL     string
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	OpenAIModel       string
	OpenAIEmbedModel  string
	OllamaBaseURL     string
	OllamaEmbedModel  string
	MockEmbedDim      int
	ChunkSize         int
	ChunkOverlap      int
	TopK              int
	EmbedBatch        int
	ParsePollMillis   int
}

func Load() Config {
	return Config{
		APIAddr:           getenv("DOCCHAT_API_ADDR", "0.0.0.0:8080"),
		LLMModel:          getenv("DOCCHAT_LLM_MODEL", "llama3-70b-8192"),
		EmbedModel:        getenv("DOCCHAT_EMBED_MODEL", "embed-english-v3.0"),
		Parser:            getenv("DOCCHAT_PARSER", "llamaparse"),
		LLMProvider:       getenv("DOCCHAT_LLM_PROVIDER", "groq"),
		EmbedProvider:     getenv("DOCCHAT_EMBED_PROVIDER", "cohere"),
		IndexBackend:      getenv("DOCCHAT_INDEX_BACKEND", "memory"),
		BuildMode:         getenv("DOCCHAT_BUILD_MODE", "inline"),
		PostgresURL:       getenv("DOCCHAT_POSTGRES_URL", ""),
		QdrantAddr:        getenv("DOCCHAT_QDRANT_ADDR", "localhost:6334"),
		TemporalAddress:   getenv("DOCCHAT_TEMPORAL_ADDRESS", "localhost:7233"),
		TemporalTaskQueue: getenv("DOCCHAT_TEMPORAL_TASK_QUEUE", "docchat"),
		UploadDir:         getenv("DOCCHAT_UPLOAD_DIR", "./data/uploads"),
		LlamaParseBaseURL: getenv("DOCCHAT_LLAMAPARSE_BASE_URL", "https://api.cloud.llamaindex.ai"),
		GroqBaseURL:       getenv("DOCCHAT_GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		CohereBaseURL:     getenv("DOCCHAT_COHERE_BASE_URL", "https://api.cohere.com"),
		OpenAIAPIKey:      getenv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:     getenv("DOCCHAT_OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:       getenv("DOCCHAT_OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIEmbedModel:  getenv("DOCCHAT_OPENAI_EMBED_MODEL", "text-embedding-3-small"),
		OllamaBaseURL:     getenv("DOCCHAT_OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaEmbedModel:  getenv("DOCCHAT_OLLAMA_EMBED_MODEL", "nomic-embed-text"),
		MockEmbedDim:      getenvInt("DOCCHAT_MOCK_EMBED_DIM", 256),
		ChunkSize:         getenvInt("DOCCHAT_CHUNK_SIZE", 1200),
		ChunkOverlap:      getenvInt("DOCCHAT_CHUNK_OVERLAP", 200),
		TopK:              getenvInt("DOCCHAT_TOP_K", 2),
		EmbedBatch:        getenvInt("DOCCHAT_EMBED_BATCH", 96),
		ParsePollMillis:   getenvInt("DOCCHAT_PARSE_POLL_MS", 1000),
	}
}

func getenv(k, fallback string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return fallback
	}
	return v
}

func getenvInt(k string, fallback int) int {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
