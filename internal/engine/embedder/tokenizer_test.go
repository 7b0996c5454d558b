package embedder

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/quarry-ml/sonar/internal/model"
)

// writeVocab writes a vocab file where line number = native token ID.
func writeVocab(t *testing.T, tokens []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vocab.txt")
	if err := os.WriteFile(path, []byte(strings.Join(tokens, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write vocab: %v", err)
	}
	return path
}

// testVocab has the specials at their conventional positions plus a few
// subword pieces. Native IDs: <pad>=0 <unk>=1 <s>=2 </s>=3 ▁hello=4
// ▁world=5 ▁foo=6 bar=7 ▁中=8.
func testVocab(t *testing.T) string {
	t.Helper()
	return writeVocab(t, []string{
		"<pad>", "<unk>", "<s>", "</s>",
		"▁hello", "▁world", "▁foo", "bar", "▁中",
	})
}

func newTestTokenizer(t *testing.T) *Tokenizer {
	t.Helper()
	tok, err := NewTokenizer(testVocab(t))
	if err != nil {
		t.Fatalf("NewTokenizer() error: %v", err)
	}
	return tok
}

func TestTokenizeRemapsIDs(t *testing.T) {
	tok := newTestTokenizer(t)

	seq, err := tok.Tokenize("hello world")
	if err != nil {
		t.Fatalf("Tokenize() error: %v", err)
	}

	// <s> in first position becomes 0, </s> keeps its native ID 3,
	// everything else is native+1.
	want := []int64{0, 5, 6, 3}
	got := seq.IDs()
	if len(got) != len(want) {
		t.Fatalf("got %d ids %v, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("id[%d] = %d, want %d", i, got[i], want[i])
		}
	}
	if seq.Truncated {
		t.Error("Truncated = true for short input")
	}
}

func TestTokenizeGreedyLongestPrefix(t *testing.T) {
	tok := newTestTokenizer(t)

	seq, err := tok.Tokenize("foobar")
	if err != nil {
		t.Fatalf("Tokenize() error: %v", err)
	}

	// ▁foo (native 6) then bar (native 7), both shifted +1.
	want := []int64{0, 7, 8, 3}
	got := seq.IDs()
	if len(got) != len(want) {
		t.Fatalf("got ids %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("id[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestTokenizeUnknownWordCollapsesToUnk(t *testing.T) {
	tok := newTestTokenizer(t)

	seq, err := tok.Tokenize("zzz")
	if err != nil {
		t.Fatalf("Tokenize() error: %v", err)
	}

	// <unk> native 1, shifted to 2.
	want := []int64{0, 2, 3}
	got := seq.IDs()
	if len(got) != len(want) {
		t.Fatalf("got ids %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("id[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestTokenizeEmptyText(t *testing.T) {
	tok := newTestTokenizer(t)

	for _, text := range []string{"", "   ", "\t\n"} {
		_, err := tok.Tokenize(text)
		if !errors.Is(err, model.ErrInvalidArgument) {
			t.Errorf("Tokenize(%q) error = %v, want ErrInvalidArgument", text, err)
		}
	}
}

func TestTokenizeTruncates(t *testing.T) {
	tok := newTestTokenizer(t)
	tok.SetMaxSeqLen(5)

	seq, err := tok.Tokenize("hello world hello world hello world")
	if err != nil {
		t.Fatalf("Tokenize() error: %v", err)
	}

	if seq.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", seq.Len())
	}
	if !seq.Truncated {
		t.Error("Truncated = false, want true")
	}
	// Truncation drops the tail; the end marker is not re-inserted.
	last := seq.Tokens[len(seq.Tokens)-1]
	if last.Text == eosToken {
		t.Errorf("last token = %q, end marker should have been cut", last.Text)
	}
}

func TestSetMaxSeqLenIgnoresOutOfRange(t *testing.T) {
	tok := newTestTokenizer(t)

	for _, n := range []int{0, -1, DefaultMaxSeqLen + 1} {
		tok.SetMaxSeqLen(n)
		if tok.maxLen != DefaultMaxSeqLen {
			t.Errorf("SetMaxSeqLen(%d) changed maxLen to %d", n, tok.maxLen)
		}
	}

	tok.SetMaxSeqLen(128)
	if tok.maxLen != 128 {
		t.Errorf("SetMaxSeqLen(128): maxLen = %d", tok.maxLen)
	}
}

func TestTokenizeIsolatesCJK(t *testing.T) {
	tok := newTestTokenizer(t)

	// Adjacent ideographs become separate words, each matching ▁中.
	seq, err := tok.Tokenize("中中")
	if err != nil {
		t.Fatalf("Tokenize() error: %v", err)
	}

	want := []int64{0, 9, 9, 3}
	got := seq.IDs()
	if len(got) != len(want) {
		t.Fatalf("got ids %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("id[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestTokenizeNFKCFoldsCompatibilityForms(t *testing.T) {
	tok := newTestTokenizer(t)

	// Full-width latin folds to ASCII under NFKC.
	seq, err := tok.Tokenize("ｈｅｌｌｏ")
	if err != nil {
		t.Fatalf("Tokenize() error: %v", err)
	}

	if len(seq.Tokens) != 3 || seq.Tokens[1].Text != "▁hello" {
		t.Errorf("tokens = %+v, want ▁hello in the middle", seq.Tokens)
	}
}

func TestTokenizeKeepsCase(t *testing.T) {
	tok := newTestTokenizer(t)

	// The vocabulary is cased; HELLO has no match and collapses to <unk>.
	seq, err := tok.Tokenize("HELLO")
	if err != nil {
		t.Fatalf("Tokenize() error: %v", err)
	}
	if seq.Tokens[1].Text != unkToken {
		t.Errorf("token = %q, want %q (no lowercasing)", seq.Tokens[1].Text, unkToken)
	}
}

func TestNewTokenizerMissingFile(t *testing.T) {
	_, err := NewTokenizer(filepath.Join(t.TempDir(), "nope.txt"))
	if !errors.Is(err, model.ErrTokenizerUnavailable) {
		t.Fatalf("error = %v, want ErrTokenizerUnavailable", err)
	}
}

func TestNewTokenizerMissingSpecialToken(t *testing.T) {
	path := writeVocab(t, []string{"<pad>", "<unk>", "<s>", "▁hello"})
	_, err := NewTokenizer(path)
	if !errors.Is(err, model.ErrTokenizerUnavailable) {
		t.Fatalf("error = %v, want ErrTokenizerUnavailable", err)
	}
}

func TestNewTokenizerEmptyVocab(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.txt")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := NewTokenizer(path)
	if !errors.Is(err, model.ErrTokenizerUnavailable) {
		t.Fatalf("error = %v, want ErrTokenizerUnavailable", err)
	}
}

func TestVocabLookup(t *testing.T) {
	v, err := loadVocab(testVocab(t))
	if err != nil {
		t.Fatalf("loadVocab() error: %v", err)
	}
	if v.size() != 9 {
		t.Errorf("size() = %d, want 9", v.size())
	}
	if !v.contains("▁hello") {
		t.Error("contains(▁hello) = false")
	}
	if v.contains("missing") {
		t.Error("contains(missing) = true")
	}
	if v.bosID != 2 || v.eosID != 3 || v.unkID != 1 || v.padID != 0 {
		t.Errorf("special ids = pad %d unk %d bos %d eos %d", v.padID, v.unkID, v.bosID, v.eosID)
	}
}

func TestIDsReturnsFreshSlice(t *testing.T) {
	tok := newTestTokenizer(t)

	seq, err := tok.Tokenize("hello")
	if err != nil {
		t.Fatal(err)
	}
	ids := seq.IDs()
	ids[0] = 999
	if seq.Tokens[0].ID == 999 {
		t.Error("mutating IDs() result leaked into the sequence")
	}
}
