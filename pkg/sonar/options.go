package sonar

import "path/filepath"

type options struct {
	modelDir       string
	modelPath      string
	vocabPath      string
	libraryPath    string
	maxSeqLen      int
	intraOpThreads int
	interOpThreads int
	workers        int
}

// Option configures a Sonar instance.
type Option func(*options)

// WithModelDir sets the directory containing model files.
// Expects: encoder.onnx, vocab.txt, and optionally libonnxruntime.so.
func WithModelDir(dir string) Option {
	return func(o *options) {
		o.modelDir = dir
	}
}

// WithModelPaths sets explicit paths for each model file.
// Use this when model files aren't in the default directory layout.
// library may be empty, in which case the ONNX Runtime shared library is
// expected next to the encoder.
func WithModelPaths(model, vocab, library string) Option {
	return func(o *options) {
		o.modelPath = model
		o.vocabPath = vocab
		o.libraryPath = library
	}
}

// WithMaxSeqLen caps tokenized input length. Values outside [1, 512] are
// ignored. Default: 512.
func WithMaxSeqLen(n int) Option {
	return func(o *options) {
		o.maxSeqLen = n
	}
}

// WithThreads sets the intra-op and inter-op thread counts for the
// inference session. Defaults: 20 intra, 40 inter.
func WithThreads(intra, inter int) Option {
	return func(o *options) {
		o.intraOpThreads = intra
		o.interOpThreads = inter
	}
}

// WithWorkers sets how many inference calls may run concurrently.
// Default: 4.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

func defaultOptions() options {
	return options{}
}

// resolvePaths determines the encoder, vocab, and runtime library paths
// from the configured options. Explicit paths take precedence over modelDir.
func resolvePaths(o options) (model, vocab, library string) {
	if o.modelPath != "" {
		return o.modelPath, o.vocabPath, o.libraryPath
	}
	dir := o.modelDir
	if dir == "" {
		dir = "models"
	}
	return filepath.Join(dir, "encoder.onnx"),
		filepath.Join(dir, "vocab.txt"),
		""
}
