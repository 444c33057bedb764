package assistant

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"docchat/internal/extract"
	"docchat/internal/index"
	"docchat/internal/metrics"
	"docchat/internal/models"
	"docchat/internal/providers"
	"docchat/internal/session"
	"docchat/internal/storage"
	"docchat/internal/vector"
)

const (
	MsgNoIndex     = "Please upload the file to begin chat."
	MsgQueryFailed = "An error occurred while processing your request. Please try again."
	msgReady       = "Ready to provide responses based on: "
)

var errStreamAbandoned = errors.New("stream consumer stopped")

// CallRecorder persists one row per model call.
type CallRecorder interface {
	Insert(ctx context.Context, rec storage.LLMCallRecord) error
}

type Options struct {
	Registry *extract.Registry
	Preparer index.Preparer
	Opener   vector.Opener
	Embedder providers.EmbeddingProvider
	LLM      providers.LLMProvider
	TopK     int
	Metrics  *metrics.Metrics
	Audit    CallRecorder
	Logger   *slog.Logger
}

type Service struct {
	registry *extract.Registry
	preparer index.Preparer
	opener   vector.Opener
	embedder providers.EmbeddingProvider
	llm      providers.LLMProvider
	topK     int
	metrics  *metrics.Metrics
	audit    CallRecorder
	logger   *slog.Logger

	session *session.Session
	buildMu sync.Mutex
}

func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		registry: opts.Registry,
		preparer: opts.Preparer,
		opener:   opts.Opener,
		embedder: opts.Embedder,
		llm:      opts.LLM,
		topK:     opts.TopK,
		metrics:  opts.Metrics,
		audit:    opts.Audit,
		logger:   logger.With("component", "assistant"),
		session:  session.New(logger),
	}
	s.session.OnChange(func(idx *index.Index) {
		if idx == nil {
			s.metrics.SetIndex(false, 0)
			return
		}
		s.metrics.SetIndex(true, idx.Chunks)
	})
	return s
}

func (s *Service) Validate(path string) error {
	return s.registry.Validate(path)
}

// BuildIndex prepares path, stores its chunks and installs the result as the
// current index. Builds are serialized; on any error the session is left as
// it was.
func (s *Service) BuildIndex(ctx context.Context, path string) (*index.Index, error) {
	if err := s.Validate(path); err != nil {
		return nil, err
	}
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	start := time.Now()
	prep, err := s.preparer.Prepare(ctx, path)
	if err != nil {
		s.metrics.ObserveBuild("failed", time.Since(start))
		return nil, err
	}
	idx, err := index.Build(ctx, s.opener, s.embedder, prep, s.topK)
	if err != nil {
		s.metrics.ObserveBuild("failed", time.Since(start))
		return nil, err
	}
	s.session.Set(ctx, idx)
	s.metrics.ObserveBuild("ok", time.Since(start))
	s.logger.Info("index ready",
		"index_id", idx.ID,
		"file", idx.Filename,
		"chunks", idx.Chunks,
		"backend", idx.Backend,
		"elapsed", time.Since(start),
	)
	return idx, nil
}

// LoadFile builds an index for path and describes the outcome as user-facing
// text.
func (s *Service) LoadFile(ctx context.Context, path string) string {
	idx, err := s.BuildIndex(ctx, path)
	if err != nil {
		var ve *extract.ValidationError
		if errors.As(err, &ve) {
			return ve.Message
		}
		name := filepath.Base(path)
		s.logger.Error("index build failed", "file", name, "error", err)
		return fmt.Sprintf("Failed to process %s: %v", name, err)
	}
	return msgReady + idx.Filename
}

// Respond streams the answer to message as successively longer prefixes.
// Without an index it yields the upload hint once. A backend failure ends the
// stream with MsgQueryFailed in place of any partial answer. A consumer that
// stops early or cancels ctx gets nothing further.
func (s *Service) Respond(ctx context.Context, message string) iter.Seq[string] {
	return func(yield func(string) bool) {
		idx, err := s.session.Require()
		if err != nil {
			s.metrics.ObserveQuery("no_index", 0)
			yield(MsgNoIndex)
			return
		}

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		start := time.Now()
		var answer strings.Builder
		emitted, stopped := false, false
		info, err := idx.Query(ctx, s.llm, message, func(fragment string) error {
			if stopped {
				return errStreamAbandoned
			}
			answer.WriteString(fragment)
			emitted = true
			if !yield(answer.String()) {
				stopped = true
				cancel()
				return errStreamAbandoned
			}
			return nil
		})
		class := providers.ClassifyError(err)
		if stopped || class == providers.ErrorCanceled {
			s.logger.Info("query abandoned", "index_id", idx.ID, "provider", info.Name)
			s.metrics.ObserveQuery("abandoned", time.Since(start))
			s.record(ctx, idx, info, "abandoned", "", start)
			return
		}
		if err != nil {
			s.logger.Error("query failed",
				"index_id", idx.ID,
				"provider", info.Name,
				"error_type", class,
				"error", err,
			)
			s.metrics.ObserveQuery("error", time.Since(start))
			provider := info.Name
			if provider == "" {
				provider = "retrieval"
			}
			s.metrics.ProviderError(provider, string(class))
			s.record(ctx, idx, info, "error", string(class), start)
			yield(MsgQueryFailed)
			return
		}
		s.metrics.ObserveQuery("ok", time.Since(start))
		s.record(ctx, idx, info, "ok", "", start)
		if !emitted {
			yield("")
		}
	}
}

func (s *Service) record(ctx context.Context, idx *index.Index, info providers.ProviderInfo, status, errType string, start time.Time) {
	if s.audit == nil {
		return
	}
	err := s.audit.Insert(context.WithoutCancel(ctx), storage.LLMCallRecord{
		Operation:    "query",
		IndexID:      idx.ID,
		Filename:     idx.Filename,
		ProviderName: info.Name,
		Model:        info.Model,
		Status:       status,
		ErrorType:    errType,
		LatencyMS:    time.Since(start).Milliseconds(),
	})
	if err != nil {
		s.logger.Warn("audit insert failed", "error", err)
	}
}

// ClearResult is the reset value for the shell: no file, empty status.
type ClearResult struct {
	File   *string `json:"file"`
	Status string  `json:"status"`
}

// ClearState drops the current index, if any. Calling it repeatedly is
// harmless.
func (s *Service) ClearState(ctx context.Context) ClearResult {
	if s.session.Clear(ctx) {
		s.logger.Info("session cleared")
	}
	return ClearResult{File: nil, Status: ""}
}

func (s *Service) Ready() bool {
	_, ok := s.session.Get()
	return ok
}

func (s *Service) Current() (models.IndexInfo, bool) {
	idx, ok := s.session.Get()
	if !ok {
		return models.IndexInfo{}, false
	}
	return idx.Info(), true
}
