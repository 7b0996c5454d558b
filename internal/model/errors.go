package model

import "errors"

var (
	// ErrInvalidArgument signals malformed or empty caller input. Surfaced
	// immediately, never retried.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrTokenizerUnavailable signals that the vocabulary artifact could not
	// be loaded. Fatal at startup; the process must not serve traffic.
	ErrTokenizerUnavailable = errors.New("tokenizer unavailable")
	// ErrModelArtifactMissing signals that the encoder model file could not
	// be loaded. Fatal at startup.
	ErrModelArtifactMissing = errors.New("model artifact missing")
	// ErrInternal signals a contract violation from the inference runtime,
	// e.g. wrong output rank or count. Indicates a model/version mismatch.
	ErrInternal = errors.New("internal error")
)
