package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"docchat/internal/api"
	"docchat/internal/assistant"
	"docchat/internal/config"
	"docchat/internal/extract"
	"docchat/internal/index"
	"docchat/internal/metrics"
	"docchat/internal/providers"
	"docchat/internal/storage"
	"docchat/internal/util"
	"docchat/internal/vector"
	"docchat/internal/workflows"

	"github.com/joho/godotenv"
	tclient "go.temporal.io/sdk/client"
)

func main() {
	_ = godotenv.Load(".env")
	creds, err := config.LoadCredentials()
	if err != nil {
		log.Fatal(err)
	}
	cfg := config.Load()
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pm, err := providers.NewManager(cfg, creds)
	if err != nil {
		log.Fatal(err)
	}
	parser, err := extract.NewParser(cfg, creds, logger)
	if err != nil {
		log.Fatal(err)
	}
	registry := extract.NewRegistry(parser)
	if err := util.EnsureDir(cfg.UploadDir); err != nil {
		log.Fatal(err)
	}

	var db *storage.DB
	if cfg.PostgresURL != "" {
		connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		db, err = storage.NewDB(connCtx, cfg.PostgresURL)
		if err == nil {
			err = db.EnsureSchema(connCtx)
		}
		cancel()
		if err != nil {
			log.Fatal(err)
		}
		defer db.Close()
	}

	opener, closeOpener, err := newOpener(cfg, db)
	if err != nil {
		log.Fatal(err)
	}
	defer closeOpener()

	preparer, closePreparer, err := newPreparer(cfg, registry, pm, logger)
	if err != nil {
		log.Fatal(err)
	}
	defer closePreparer()

	var audit assistant.CallRecorder
	if db != nil {
		audit = storage.NewLLMAuditRepo(db)
	}
	m := metrics.New()
	svc := assistant.NewService(assistant.Options{
		Registry: registry,
		Preparer: preparer,
		Opener:   opener,
		Embedder: pm.Embedder(),
		LLM:      pm.LLM(),
		TopK:     cfg.TopK,
		Metrics:  m,
		Audit:    audit,
		Logger:   logger,
	})

	h := api.NewServer(svc, cfg.UploadDir, m.Handler(), logger)
	srv := &http.Server{
		Addr:              cfg.APIAddr,
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		svc.ClearState(shutdownCtx)
	}()

	log.Printf("docchat api listening on %s parser=%s llm=%s embed=%s index=%s build=%s",
		cfg.APIAddr, cfg.Parser, cfg.LLMProvider, cfg.EmbedProvider, opener.Backend(), cfg.BuildMode)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}

func newOpener(cfg config.Config, db *storage.DB) (vector.Opener, func(), error) {
	switch strings.ToLower(cfg.IndexBackend) {
	case "memory":
		return vector.MemoryOpener{}, func() {}, nil
	case "pgvector":
		if db == nil {
			return nil, nil, fmt.Errorf("index backend pgvector requires DOCCHAT_POSTGRES_URL")
		}
		return vector.NewPGVectorOpener(db), func() {}, nil
	case "qdrant":
		q, err := vector.NewQdrantOpener(cfg.QdrantAddr)
		if err != nil {
			return nil, nil, err
		}
		return q, func() { _ = q.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported index backend: %s", cfg.IndexBackend)
	}
}

func newPreparer(cfg config.Config, registry *extract.Registry, pm *providers.Manager, logger *slog.Logger) (index.Preparer, func(), error) {
	switch strings.ToLower(cfg.BuildMode) {
	case "inline":
		return index.NewPipeline(registry, pm.Embedder(), cfg.ChunkSize, cfg.ChunkOverlap, logger), func() {}, nil
	case "temporal":
		c, err := tclient.Dial(tclient.Options{HostPort: cfg.TemporalAddress, Logger: logger})
		if err != nil {
			return nil, nil, fmt.Errorf("dial temporal: %w", err)
		}
		return workflows.NewTemporalPreparer(c, cfg.TemporalTaskQueue, cfg.ChunkSize, cfg.ChunkOverlap, logger), c.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported build mode: %s", cfg.BuildMode)
	}
}
