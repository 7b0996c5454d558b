package sonar

import (
	"context"
	"fmt"
	"time"

	"github.com/quarry-ml/sonar/internal/engine/embedder"
	"github.com/quarry-ml/sonar/internal/engine/rank"
	"github.com/quarry-ml/sonar/internal/model"
)

// Document is a searchable text with its precomputed embedding. Embedding
// may be left nil when passing documents to Index-style helpers that embed
// for you; Search requires it to be set and match the model dimension.
type Document struct {
	ID        string    `json:"id"`
	Title     string    `json:"title,omitempty"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"embedding,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Result is a scored search hit.
type Result struct {
	Doc   Document `json:"doc"`
	Score float64  `json:"score"`
}

// Sonar is a text embedding and similarity search engine.
// Safe for concurrent use.
type Sonar struct {
	embedder embedder.Embedder
}

// New creates a Sonar instance, loading the encoder and vocabulary.
// This is an expensive operation — create once, reuse across requests.
func New(opts ...Option) (*Sonar, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	modelPath, vocabPath, libraryPath := resolvePaths(o)

	emb, err := embedder.New(embedder.Config{
		ModelPath:      modelPath,
		VocabPath:      vocabPath,
		LibraryPath:    libraryPath,
		MaxSeqLen:      o.maxSeqLen,
		IntraOpThreads: o.intraOpThreads,
		InterOpThreads: o.interOpThreads,
		Workers:        o.workers,
	})
	if err != nil {
		return nil, fmt.Errorf("sonar: %w", err)
	}

	return &Sonar{embedder: emb}, nil
}

// Dim returns the embedding dimensionality of the loaded model.
func (s *Sonar) Dim() int {
	return s.embedder.Dim()
}

// Embed encodes a single text into a unit-length embedding vector.
func (s *Sonar) Embed(text string) ([]float32, error) {
	return s.embedder.Embed(context.Background(), text)
}

// EmbedContext is Embed with a caller-supplied context.
func (s *Sonar) EmbedContext(ctx context.Context, text string) ([]float32, error) {
	return s.embedder.Embed(ctx, text)
}

// EmbedMany encodes multiple texts concurrently. One failing text aborts
// the whole batch.
func (s *Sonar) EmbedMany(texts []string) ([][]float32, error) {
	return s.embedder.EmbedMany(context.Background(), texts)
}

// Similarity embeds both texts and returns their cosine similarity.
func (s *Sonar) Similarity(textA, textB string) (float64, error) {
	vecs, err := s.embedder.EmbedMany(context.Background(), []string{textA, textB})
	if err != nil {
		return 0, err
	}
	return rank.CosineSimilarity(vecs[0], vecs[1])
}

// Index embeds the content of each document in place, filling the
// Embedding field. Documents that already have an embedding are
// re-embedded.
func (s *Sonar) Index(docs []Document) error {
	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Content
	}
	vecs, err := s.embedder.EmbedMany(context.Background(), texts)
	if err != nil {
		return err
	}
	for i := range docs {
		docs[i].Embedding = vecs[i]
	}
	return nil
}

// Search embeds the query and ranks the given documents against it by
// cosine similarity, returning up to topK results in descending score
// order. Every document must carry an embedding of the model's dimension.
func (s *Sonar) Search(query string, docs []Document, topK int) ([]Result, error) {
	qvec, err := s.embedder.Embed(context.Background(), query)
	if err != nil {
		return nil, err
	}

	internal := make([]model.Document, len(docs))
	for i, doc := range docs {
		internal[i] = model.Document{
			ID:        doc.ID,
			Title:     doc.Title,
			Content:   doc.Content,
			Embedding: doc.Embedding,
			Dim:       len(doc.Embedding),
			CreatedAt: doc.CreatedAt,
		}
	}

	ranked, err := rank.Search(qvec, internal, topK)
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(ranked))
	for i, res := range ranked {
		results[i] = Result{Doc: documentFromInternal(res.Doc), Score: res.Score}
	}
	return results, nil
}

// Close releases the inference session. The instance must not be used
// after Close.
func (s *Sonar) Close() error {
	return s.embedder.Close()
}

func documentFromInternal(doc model.Document) Document {
	return Document{
		ID:        doc.ID,
		Title:     doc.Title,
		Content:   doc.Content,
		Embedding: doc.Embedding,
		CreatedAt: doc.CreatedAt,
	}
}
