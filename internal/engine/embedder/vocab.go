package embedder

import (
	"bufio"
	"fmt"
	"os"

	"github.com/quarry-ml/sonar/internal/model"
)

// Special marker tokens. The encoder's embedding table reserves index 0 for
// the sequence-start marker; see remap in tokenizer.go.
const (
	padToken = "<pad>"
	unkToken = "<unk>"
	bosToken = "<s>"
	eosToken = "</s>"
)

// vocab holds a subword vocabulary loaded from a plain-text vocab file.
// Native token IDs are determined by line number (0-indexed).
type vocab struct {
	tokenToID map[string]int64
	idToToken []string

	padID int64
	unkID int64
	bosID int64
	eosID int64
}

// loadVocab reads a vocab file where each line is a token and the line
// number (0-indexed) is the token's native ID. Any load failure is a fatal
// startup condition.
func loadVocab(path string) (*vocab, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("vocab: %w: %v", model.ErrTokenizerUnavailable, err)
	}
	defer f.Close()

	var tokens []string
	tokenToID := make(map[string]int64, 250000)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		tok := scanner.Text()
		id := int64(len(tokens))
		tokenToID[tok] = id
		tokens = append(tokens, tok)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("vocab: %w: read %s: %v", model.ErrTokenizerUnavailable, path, err)
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("vocab: %w: file is empty: %s", model.ErrTokenizerUnavailable, path)
	}

	v := &vocab{
		tokenToID: tokenToID,
		idToToken: tokens,
	}

	// Resolve special token IDs.
	specials := []struct {
		name string
		dest *int64
	}{
		{padToken, &v.padID},
		{unkToken, &v.unkID},
		{bosToken, &v.bosID},
		{eosToken, &v.eosID},
	}
	for _, s := range specials {
		id, ok := tokenToID[s.name]
		if !ok {
			return nil, fmt.Errorf("vocab: %w: missing special token %s", model.ErrTokenizerUnavailable, s.name)
		}
		*s.dest = id
	}

	return v, nil
}

// contains reports whether the token is in the vocabulary.
func (v *vocab) contains(token string) bool {
	_, ok := v.tokenToID[token]
	return ok
}

// size returns the number of tokens in the vocabulary.
func (v *vocab) size() int {
	return len(v.idToToken)
}
