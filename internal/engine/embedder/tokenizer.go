package embedder

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/quarry-ml/sonar/internal/model"
)

// DefaultMaxSeqLen is the encoder's position limit; id sequences longer than
// this are truncated before inference.
const DefaultMaxSeqLen = 512

// wordStart prefixes the first subword of each whitespace-delimited word,
// SentencePiece-style.
const wordStart = "▁"

// maxWordRunes guards the greedy matcher against pathological words.
const maxWordRunes = 200

// Token is one subword together with its remapped ID.
type Token struct {
	Text string
	ID   int64
}

// TokenSequence is the immutable result of tokenizing one text. IDs carry
// the encoder's remapping (see remap) and are truncated to the maximum
// sequence length.
type TokenSequence struct {
	Tokens    []Token
	Truncated bool
}

// IDs returns the id sequence as a fresh slice.
func (s TokenSequence) IDs() []int64 {
	ids := make([]int64, len(s.Tokens))
	for i, t := range s.Tokens {
		ids[i] = t.ID
	}
	return ids
}

// Len returns the number of tokens.
func (s TokenSequence) Len() int {
	return len(s.Tokens)
}

// Tokenizer converts raw text into subword token IDs the encoder accepts.
type Tokenizer struct {
	vocab  *vocab
	maxLen int
}

// NewTokenizer creates a Tokenizer from a vocab file. Failure to load the
// vocabulary is fatal (ErrTokenizerUnavailable), not a per-call condition.
func NewTokenizer(vocabPath string) (*Tokenizer, error) {
	v, err := loadVocab(vocabPath)
	if err != nil {
		return nil, err
	}
	return &Tokenizer{vocab: v, maxLen: DefaultMaxSeqLen}, nil
}

// SetMaxSeqLen lowers the truncation limit. Values outside [1, DefaultMaxSeqLen]
// are ignored; the encoder has no positions beyond the default.
func (t *Tokenizer) SetMaxSeqLen(n int) {
	if n >= 1 && n <= DefaultMaxSeqLen {
		t.maxLen = n
	}
}

// Tokenize converts a single text into a remapped, truncated token sequence:
// <s> subwords... </s>. Empty or whitespace-only text is rejected.
func (t *Tokenizer) Tokenize(text string) (TokenSequence, error) {
	if strings.TrimSpace(text) == "" {
		return TokenSequence{}, fmt.Errorf("tokenizer: empty text: %w", model.ErrInvalidArgument)
	}

	words := strings.Fields(normalize(text))

	tokens := make([]Token, 0, len(words)+2)
	tokens = append(tokens, Token{Text: bosToken, ID: t.vocab.bosID})
	for _, word := range words {
		tokens = append(tokens, t.subwords(word)...)
	}
	tokens = append(tokens, Token{Text: eosToken, ID: t.vocab.eosID})

	tokens = t.remap(tokens)

	truncated := false
	if len(tokens) > t.maxLen {
		tokens = tokens[:t.maxLen]
		truncated = true
	}

	return TokenSequence{Tokens: tokens, Truncated: truncated}, nil
}

// remap applies the encoder's ID offset: its embedding table reserves index 0
// for the start marker, which the native vocabulary does not. The start marker
// in first position becomes 0, an end marker keeps its native id, and every
// other token's native id is incremented by 1.
func (t *Tokenizer) remap(tokens []Token) []Token {
	out := make([]Token, len(tokens))
	for i, tok := range tokens {
		switch {
		case i == 0 && tok.ID == t.vocab.bosID:
			out[i] = Token{Text: tok.Text, ID: 0}
		case tok.ID == t.vocab.eosID:
			out[i] = tok
		default:
			out[i] = Token{Text: tok.Text, ID: tok.ID + 1}
		}
	}
	return out
}

// subwords decomposes a single word into vocabulary pieces by greedy
// longest-prefix matching, with the word-start marker prepended. A word with
// no decomposition collapses to a single <unk>.
func (t *Tokenizer) subwords(word string) []Token {
	runes := []rune(wordStart + word)
	if len(runes) > maxWordRunes {
		return []Token{{Text: unkToken, ID: t.vocab.unkID}}
	}

	var pieces []Token
	start := 0
	for start < len(runes) {
		end := len(runes)
		found := false
		for end > start {
			piece := string(runes[start:end])
			if id, ok := t.vocab.tokenToID[piece]; ok {
				pieces = append(pieces, Token{Text: piece, ID: id})
				found = true
				break
			}
			end--
		}
		if !found {
			return []Token{{Text: unkToken, ID: t.vocab.unkID}}
		}
		start = end
	}
	return pieces
}

// normalize cleans control characters, applies NFKC, and isolates CJK
// ideographs as single-character words. The encoder is multilingual and
// cased, so no lowercasing or accent stripping happens here.
func normalize(text string) string {
	text = cleanText(text)
	text = norm.NFKC.String(text)
	return isolateCJK(text)
}

// cleanText removes control characters and replaces whitespace with spaces.
func cleanText(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r == 0 || r == 0xFFFD || isControl(r) {
			continue
		}
		if isWhitespace(r) {
			b.WriteRune(' ')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// isolateCJK adds spaces around CJK Unified Ideographs so each becomes its
// own word for the greedy matcher.
func isolateCJK(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4)
	for _, r := range text {
		if isCJK(r) {
			b.WriteRune(' ')
			b.WriteRune(r)
			b.WriteRune(' ')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isWhitespace(r rune) bool {
	if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
		return true
	}
	return unicode.Is(unicode.Zs, r)
}

func isControl(r rune) bool {
	if r == '\t' || r == '\n' || r == '\r' {
		return false
	}
	return unicode.IsControl(r)
}

func isCJK(r rune) bool {
	// CJK Unified Ideographs and extension ranges.
	return (r >= 0x4E00 && r <= 0x9FFF) ||
		(r >= 0x3400 && r <= 0x4DBF) ||
		(r >= 0x20000 && r <= 0x2A6DF) ||
		(r >= 0x2A700 && r <= 0x2B73F) ||
		(r >= 0x2B740 && r <= 0x2B81F) ||
		(r >= 0x2B820 && r <= 0x2CEAF) ||
		(r >= 0xF900 && r <= 0xFAFF) ||
		(r >= 0x2F800 && r <= 0x2FA1F)
}
