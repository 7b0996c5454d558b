package embedder

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/quarry-ml/sonar/internal/metrics"
	"github.com/quarry-ml/sonar/internal/model"
)

// Embedder produces vector embeddings from text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedMany(ctx context.Context, texts []string) ([][]float32, error)
	Dim() int
	Close() error
}

// Config holds the artifacts and tuning knobs for a local embedding pipeline.
type Config struct {
	ModelPath string
	VocabPath string
	// LibraryPath locates the ONNX Runtime shared library; empty means
	// libonnxruntime.so next to the model.
	LibraryPath    string
	MaxSeqLen      int
	IntraOpThreads int
	InterOpThreads int
	Workers        int
}

// Pipeline is the text→vector embedding pipeline:
// tokenize → build tensors → inference → pool → normalize.
type Pipeline struct {
	tok    *Tokenizer
	runner Runner
}

// New creates a Pipeline by loading the vocabulary and the ONNX encoder.
// Both artifacts are fatal startup dependencies.
func New(cfg Config) (*Pipeline, error) {
	tok, err := NewTokenizer(cfg.VocabPath)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}
	if cfg.MaxSeqLen > 0 {
		tok.SetMaxSeqLen(cfg.MaxSeqLen)
	}

	sess, err := NewSession(SessionConfig{
		ModelPath:      cfg.ModelPath,
		LibraryPath:    cfg.LibraryPath,
		IntraOpThreads: cfg.IntraOpThreads,
		InterOpThreads: cfg.InterOpThreads,
		Workers:        cfg.Workers,
	})
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}

	return &Pipeline{tok: tok, runner: sess}, nil
}

// Embed produces a single unit-norm embedding vector for the given text.
// Failures from any stage propagate unchanged.
func (p *Pipeline) Embed(ctx context.Context, text string) ([]float32, error) {
	seq, err := p.tok.Tokenize(text)
	if err != nil {
		return nil, err
	}
	if seq.Truncated {
		metrics.TokenizerTruncationsTotal.Inc()
	}

	tensors := BuildTensors(seq.IDs())

	outputs, err := p.runner.Run(ctx, tensors.inputs(), []string{HiddenStateOutput})
	if err != nil {
		return nil, err
	}
	hidden, ok := outputs[HiddenStateOutput]
	if !ok {
		return nil, fmt.Errorf("embedder: runtime did not return %s: %w",
			HiddenStateOutput, model.ErrInternal)
	}

	return PoolAndNormalize(hidden)
}

// EmbedMany embeds each text as an independent inference call, issued
// concurrently against the shared session. A single failing text aborts the
// whole batch.
func (p *Pipeline) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vecs := make([][]float32, len(texts))
	g, ctx := errgroup.WithContext(ctx)
	for i, text := range texts {
		g.Go(func() error {
			vec, err := p.Embed(ctx, text)
			if err != nil {
				return fmt.Errorf("embedder: text %d: %w", i, err)
			}
			vecs[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vecs, nil
}

// Dim returns the embedding dimensionality.
func (p *Pipeline) Dim() int {
	return p.runner.HiddenDim()
}

// Close releases the inference session.
func (p *Pipeline) Close() error {
	return p.runner.Close()
}
