package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/quarry-ml/sonar/internal/engine/embedder"
	"github.com/quarry-ml/sonar/internal/engine/rank"
	"github.com/quarry-ml/sonar/internal/metrics"
	"github.com/quarry-ml/sonar/internal/model"
)

// DocumentStore lists the searchable document collection. Implementations
// return a snapshot that is not mutated while a search call scans it.
type DocumentStore interface {
	ListAll(ctx context.Context) ([]model.Document, error)
}

// Engine orchestrates the embedding pipeline and the similarity ranking
// engine over a stored document collection.
type Engine struct {
	embedder embedder.Embedder
	store    DocumentStore
}

// New creates an Engine with the provided components.
func New(emb embedder.Embedder, store DocumentStore) *Engine {
	return &Engine{embedder: emb, store: store}
}

// Dim returns the live model's embedding dimensionality.
func (e *Engine) Dim() int {
	return e.embedder.Dim()
}

// Embed produces an embedding vector for a single text.
func (e *Engine) Embed(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	vec, err := e.embedder.Embed(ctx, text)
	observeEmbed("embed", start, err)
	return vec, err
}

// EmbedMany produces one embedding per text. One failing text aborts the
// whole batch; no partial results are returned.
func (e *Engine) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	vecs, err := e.embedder.EmbedMany(ctx, texts)
	observeEmbed("embed_many", start, err)
	return vecs, err
}

// Similarity embeds both texts and returns their cosine similarity along
// with the two vectors.
func (e *Engine) Similarity(ctx context.Context, textA, textB string) (float64, [][]float32, error) {
	vecs, err := e.embedder.EmbedMany(ctx, []string{textA, textB})
	if err != nil {
		return 0, nil, err
	}
	score, err := rank.CosineSimilarity(vecs[0], vecs[1])
	if err != nil {
		return 0, nil, err
	}
	return score, vecs, nil
}

// Search embeds the query and ranks the stored collection against it,
// returning the topK closest documents. Stored vectors whose dimensionality
// does not match the live model indicate a store/model version mismatch.
func (e *Engine) Search(ctx context.Context, query string, topK int) ([]rank.Result, error) {
	qvec, err := e.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	docs, err := e.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("engine: list documents: %w", err)
	}
	for _, doc := range docs {
		if len(doc.Embedding) != len(qvec) {
			return nil, fmt.Errorf("engine: document %s has dim %d, model dim %d: %w",
				doc.ID, len(doc.Embedding), len(qvec), model.ErrInternal)
		}
	}

	start := time.Now()
	results, err := rank.Search(qvec, docs, topK)
	if err != nil {
		return nil, err
	}
	metrics.SearchDuration.Observe(time.Since(start).Seconds())
	metrics.SearchDocumentsScanned.Observe(float64(len(docs)))
	return results, nil
}

func observeEmbed(op string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.EmbedRequestsTotal.WithLabelValues(op, status).Inc()
	if err == nil {
		metrics.EmbedDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
}
