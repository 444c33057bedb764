package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"docchat/internal/activities"
	"docchat/internal/config"
	"docchat/internal/extract"
	"docchat/internal/providers"
	"docchat/internal/storage"
	"docchat/internal/workflows"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

func main() {
	_ = godotenv.Load(".env")
	creds, err := config.LoadCredentials()
	if err != nil {
		log.Fatal(err)
	}
	cfg := config.Load()
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	c, err := client.Dial(client.Options{HostPort: cfg.TemporalAddress, Logger: logger})
	if err != nil {
		log.Fatal(err)
	}
	defer c.Close()

	pm, err := providers.NewManager(cfg, creds)
	if err != nil {
		log.Fatal(err)
	}
	parser, err := extract.NewParser(cfg, creds, logger)
	if err != nil {
		log.Fatal(err)
	}

	var db *storage.DB
	if cfg.PostgresURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		db, err = storage.NewDB(ctx, cfg.PostgresURL)
		if err == nil {
			err = db.EnsureSchema(ctx)
		}
		cancel()
		if err != nil {
			log.Fatal(err)
		}
		defer db.Close()
	}

	w := worker.New(c, cfg.TemporalTaskQueue, worker.Options{})
	workflows.Register(w)
	activities.Register(w, activities.New(extract.NewRegistry(parser), pm.Embedder(), cfg.ChunkSize, cfg.ChunkOverlap, db))

	log.Printf("docchat worker listening on %s queue=%s parser=%s embed=%s", cfg.TemporalAddress, cfg.TemporalTaskQueue, cfg.Parser, cfg.EmbedProvider)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatal(err)
	}
}
