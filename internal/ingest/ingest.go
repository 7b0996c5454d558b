// Package ingest computes and persists document embeddings as an offline
// batch job, reusing the embedding pipeline the serving path uses.
package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quarry-ml/sonar/internal/engine/embedder"
	"github.com/quarry-ml/sonar/internal/model"
)

const defaultBatchSize = 32

// Writer persists embedded documents.
type Writer interface {
	Insert(ctx context.Context, doc model.Document) error
}

// record is one JSONL input line.
type record struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Ingestor reads a JSONL dataset, embeds each record's content, and writes
// the resulting documents to a store.
type Ingestor struct {
	embedder  embedder.Embedder
	store     Writer
	batchSize int
	logger    *zap.Logger
}

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithBatchSize sets how many records are embedded per batched call.
func WithBatchSize(n int) Option {
	return func(i *Ingestor) {
		if n > 0 {
			i.batchSize = n
		}
	}
}

// New creates an Ingestor.
func New(emb embedder.Embedder, store Writer, logger *zap.Logger, opts ...Option) *Ingestor {
	ing := &Ingestor{
		embedder:  emb,
		store:     store,
		batchSize: defaultBatchSize,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(ing)
	}
	return ing
}

// Run ingests the whole dataset. Returns the number of documents written.
// A failing record aborts the run; partial progress up to the failing batch
// remains in the store.
func (i *Ingestor) Run(ctx context.Context, r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var (
		batch   []record
		written int
		line    int
	)
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var rec record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return written, fmt.Errorf("ingest: line %d: %w", line, err)
		}
		if rec.Content == "" {
			return written, fmt.Errorf("ingest: line %d: empty content: %w", line, model.ErrInvalidArgument)
		}
		batch = append(batch, rec)
		if len(batch) == i.batchSize {
			n, err := i.flush(ctx, batch)
			written += n
			if err != nil {
				return written, err
			}
			batch = batch[:0]
		}
	}
	if err := scanner.Err(); err != nil {
		return written, fmt.Errorf("ingest: read input: %w", err)
	}
	if len(batch) > 0 {
		n, err := i.flush(ctx, batch)
		written += n
		if err != nil {
			return written, err
		}
	}

	i.logger.Info("ingest complete", zap.Int("documents", written))
	return written, nil
}

// flush embeds one batch and writes the documents.
func (i *Ingestor) flush(ctx context.Context, batch []record) (int, error) {
	texts := make([]string, len(batch))
	for j, rec := range batch {
		texts[j] = rec.Content
	}

	vecs, err := i.embedder.EmbedMany(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("ingest: embed batch: %w", err)
	}

	now := time.Now().UTC()
	written := 0
	for j, rec := range batch {
		doc := model.Document{
			ID:        uuid.NewString(),
			Title:     rec.Title,
			Content:   rec.Content,
			Embedding: vecs[j],
			Dim:       len(vecs[j]),
			CreatedAt: now,
		}
		if err := i.store.Insert(ctx, doc); err != nil {
			return written, fmt.Errorf("ingest: store document: %w", err)
		}
		written++
	}

	i.logger.Debug("batch embedded", zap.Int("size", len(batch)))
	return written, nil
}
