package sonar

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"testing"

	"github.com/quarry-ml/sonar/internal/model"
)

type stubEmbedder struct {
	vectors map[string][]float32
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec, ok := s.vectors[text]
	if !ok {
		return nil, fmt.Errorf("sonar_test: no stub vector for %q: %w", text, model.ErrInvalidArgument)
	}
	return vec, nil
}

func (s *stubEmbedder) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := s.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vecs[i] = vec
	}
	return vecs, nil
}

func (s *stubEmbedder) Dim() int     { return 2 }
func (s *stubEmbedder) Close() error { return nil }

func newStubSonar() *Sonar {
	return &Sonar{embedder: &stubEmbedder{
		vectors: map[string][]float32{
			"query": {1, 0},
			"alt":   {0, 1},
			"doc a": {1, 0.1},
			"doc b": {0, 1},
		},
	}}
}

func TestNewBadPathReturnsError(t *testing.T) {
	_, err := New(WithModelDir("/nonexistent/path"))
	if err == nil {
		t.Fatal("expected error for bad model path, got nil")
	}
}

func TestResolvePathsDefaults(t *testing.T) {
	modelPath, vocab, library := resolvePaths(defaultOptions())
	if modelPath != filepath.Join("models", "encoder.onnx") {
		t.Errorf("model = %q", modelPath)
	}
	if vocab != filepath.Join("models", "vocab.txt") {
		t.Errorf("vocab = %q", vocab)
	}
	if library != "" {
		t.Errorf("library = %q, want empty", library)
	}
}

func TestResolvePathsExplicitWins(t *testing.T) {
	o := defaultOptions()
	WithModelDir("ignored")(&o)
	WithModelPaths("/m.onnx", "/v.txt", "/lib.so")(&o)

	modelPath, vocab, library := resolvePaths(o)
	if modelPath != "/m.onnx" || vocab != "/v.txt" || library != "/lib.so" {
		t.Errorf("got %q, %q, %q", modelPath, vocab, library)
	}
}

func TestSimilarity(t *testing.T) {
	s := newStubSonar()

	score, err := s.Similarity("query", "query")
	if err != nil {
		t.Fatalf("Similarity() error: %v", err)
	}
	if math.Abs(score-1.0) > 1e-6 {
		t.Errorf("score = %f, want 1.0", score)
	}

	score, err = s.Similarity("query", "alt")
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(score) > 1e-6 {
		t.Errorf("score = %f, want 0.0", score)
	}
}

func TestIndexFillsEmbeddings(t *testing.T) {
	s := newStubSonar()

	docs := []Document{
		{ID: "a", Content: "doc a"},
		{ID: "b", Content: "doc b"},
	}
	if err := s.Index(docs); err != nil {
		t.Fatalf("Index() error: %v", err)
	}
	for _, doc := range docs {
		if len(doc.Embedding) != 2 {
			t.Errorf("document %s embedding = %v", doc.ID, doc.Embedding)
		}
	}
}

func TestSearchRanksDocuments(t *testing.T) {
	s := newStubSonar()

	docs := []Document{
		{ID: "b", Content: "doc b", Embedding: []float32{0, 1}},
		{ID: "a", Content: "doc a", Embedding: []float32{1, 0.1}},
	}
	results, err := s.Search("query", docs, 2)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Doc.ID != "a" {
		t.Errorf("top result = %s, want a", results[0].Doc.ID)
	}
	if results[0].Score <= results[1].Score {
		t.Errorf("scores not descending: %f, %f", results[0].Score, results[1].Score)
	}
}

func TestSearchDimMismatch(t *testing.T) {
	s := newStubSonar()

	docs := []Document{{ID: "bad", Embedding: []float32{1, 0, 0}}}
	_, err := s.Search("query", docs, 1)
	if err == nil {
		t.Fatal("expected error for mismatched embedding dimension")
	}
}

func TestDim(t *testing.T) {
	s := newStubSonar()
	if got := s.Dim(); got != 2 {
		t.Errorf("Dim() = %d, want 2", got)
	}
}
