// Command sonar serves the embedding and semantic search API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/quarry-ml/sonar/internal/config"
	"github.com/quarry-ml/sonar/internal/engine"
	"github.com/quarry-ml/sonar/internal/engine/embedder"
	"github.com/quarry-ml/sonar/internal/logging"
	"github.com/quarry-ml/sonar/internal/metrics"
	"github.com/quarry-ml/sonar/internal/server"
	"github.com/quarry-ml/sonar/internal/store/sqlite"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "sonar: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
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

	metrics.Register()

	logger.Info("loading encoder",
		zap.String("model", cfg.Model.EncoderPath),
		zap.String("vocab", cfg.Model.VocabPath))

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
	if err := store.EnsureSchema(context.Background()); err != nil {
		return err
	}

	eng := engine.New(emb, store)
	srv := server.New(eng, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      srv.Routes(),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			zap.Int("port", cfg.HTTP.Port),
			zap.Int("dim", eng.Dim()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
