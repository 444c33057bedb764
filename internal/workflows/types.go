package workflows

type IndexBuildInput struct {
	Path         string `json:"path"`
	ChunkSize    int    `json:"chunk_size"`
	ChunkOverlap int    `json:"chunk_overlap"`
}

type IndexBuildProgress struct {
	Path     string `json:"path"`
	Filename string `json:"filename,omitempty"`
	Stage    string `json:"stage"`
	Chunks   int    `json:"chunks"`
	Embedder string `json:"embedder,omitempty"`
	Error    string `json:"error,omitempty"`
}
