package activities

import "docchat/internal/models"

type ExtractTextInput struct {
	Path string `json:"path"`
}

type ExtractTextOutput struct {
	Filename string `json:"filename"`
	Text     string `json:"text"`
}

type ChunkTextInput struct {
	Filename     string `json:"filename"`
	Text         string `json:"text"`
	ChunkSize    int    `json:"chunk_size"`
	ChunkOverlap int    `json:"chunk_overlap"`
}

type ChunkTextOutput struct {
	Chunks []models.Chunk `json:"chunks"`
}

type EmbedChunksInput struct {
	Chunks []models.Chunk `json:"chunks"`
}

type EmbedChunksOutput struct {
	Vectors      [][]float32 `json:"vectors"`
	ProviderName string      `json:"provider_name"`
	Model        string      `json:"model"`
}

type LogLLMCallInput struct {
	Operation    string `json:"operation"`
	Filename     string `json:"filename"`
	ProviderName string `json:"provider_name"`
	Model        string `json:"model"`
	Status       string `json:"status"`
	ErrorType    string `json:"error_type"`
	LatencyMS    int64  `json:"latency_ms"`
}
