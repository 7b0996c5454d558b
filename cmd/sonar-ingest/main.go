// Command sonar-ingest embeds a JSONL dataset and loads it into the
// document store used by the search API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/quarry-ml/sonar/internal/config"
	"github.com/quarry-ml/sonar/internal/engine/embedder"
	"github.com/quarry-ml/sonar/internal/ingest"
	"github.com/quarry-ml/sonar/internal/logging"
	"github.com/quarry-ml/sonar/internal/store/sqlite"
)

func main() {
	input := flag.String("input", "", "path to JSONL dataset (one {title, content} object per line)")
	batchSize := flag.Int("batch", 32, "records embedded per batch")
	flag.Parse()

	if err := run(*input, *batchSize); err != nil {
		fmt.Fprintf(os.Stderr, "sonar-ingest: %v\n", err)
		os.Exit(1)
	}
}

func run(input string, batchSize int) error {
	if input == "" {
		return fmt.Errorf("-input is required")
	}

	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		return err
	}

	logger, err := logging.New(env, cfg.Logging.Level)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	emb, err := embedder.New(embedder.Config{
		ModelPath:      cfg.Model.EncoderPath,
		VocabPath:      cfg.Model.VocabPath,
		LibraryPath:    cfg.Model.LibraryPath,
		MaxSeqLen:      cfg.Model.MaxSeqLen,
		IntraOpThreads: cfg.Model.IntraOpThreads,
		InterOpThreads: cfg.Model.InterOpThreads,
		Workers:        cfg.Model.Workers,
	})
	if err != nil {
		return err
	}
	defer emb.Close()

	store, err := sqlite.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}

	f, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	ing := ingest.New(emb, store, logger, ingest.WithBatchSize(batchSize))

	start := time.Now()
	written, err := ing.Run(ctx, f)
	if err != nil {
		return err
	}

	logger.Info("dataset loaded",
		zap.Int("documents", written),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}
