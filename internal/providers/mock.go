package providers

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"unicode"
)

// MockProvider is an offline stand-in for both the embedder and the LLM.
// Embeddings are hashed bags of words, so texts sharing vocabulary land close
// together; answers echo the retrieved context.
type MockProvider struct {
	dim int
}

func NewMockProvider(dim int) *MockProvider {
	if dim <= 0 {
		dim = 256
	}
	return &MockProvider{dim: dim}
}

func (m *MockProvider) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	info := ProviderInfo{Name: "mock", Model: fmt.Sprintf("mock-embed-%d", m.dim)}
	if err := ctx.Err(); err != nil {
		return nil, info, err
	}
	vectors := make([][]float32, 0, len(req.Inputs))
	for _, input := range req.Inputs {
		vectors = append(vectors, bagOfWordsVector(input, m.dim))
	}
	return vectors, info, nil
}

func (m *MockProvider) GenerateStream(ctx context.Context, req GenerateRequest, onDelta func(string) error) (ProviderInfo, error) {
	info := ProviderInfo{Name: "mock", Model: "mock-llm-v1"}
	answer := "Mock answer."
	if ctxText := promptContext(req); ctxText != "" {
		answer = "Based on the document: " + ctxText
	}
	words := strings.Fields(answer)
	for i, w := range words {
		if err := ctx.Err(); err != nil {
			return info, err
		}
		if i < len(words)-1 {
			w += " "
		}
		if err := onDelta(w); err != nil {
			return info, err
		}
	}
	return info, nil
}

// promptContext pulls the passages out of a QA prompt, falling back to the
// explicit context list.
func promptContext(req GenerateRequest) string {
	parts := strings.SplitN(req.Prompt, contextRule, 3)
	if len(parts) == 3 {
		return strings.Join(strings.Fields(parts[1]), " ")
	}
	return strings.Join(strings.Fields(strings.Join(req.Context, " ")), " ")
}

func bagOfWordsVector(input string, dim int) []float32 {
	vec := make([]float32, dim)
	words := strings.FieldsFunc(strings.ToLower(input), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	if len(words) == 0 {
		words = []string{"empty"}
	}
	for _, w := range words {
		h := sha256.Sum256([]byte(w))
		vec[binary.BigEndian.Uint32(h[:4])%uint32(dim)]++
	}
	return normalize(vec)
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := float32(1.0 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
	return v
}
