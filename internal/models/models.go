package models

import "time"

// Document is the extracted content of one uploaded file.
type Document struct {
	Path     string `json:"path"`
	Filename string `json:"filename"`
	Text     string `json:"text"`
}

type Chunk struct {
	ChunkID string `json:"chunk_id"`
	Ordinal int    `json:"ordinal"`
	Text    string `json:"text"`
}

type ChunkResult struct {
	ChunkID string  `json:"chunk_id"`
	Ordinal int     `json:"ordinal"`
	Text    string  `json:"text"`
	Score   float64 `json:"score"`
}

// IndexInfo describes the index currently held by the session.
type IndexInfo struct {
	IndexID   string    `json:"index_id"`
	Filename  string    `json:"filename"`
	Chunks    int       `json:"chunks"`
	Backend   string    `json:"backend"`
	CreatedAt time.Time `json:"created_at"`
}
