package embedding

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// maxWordRunes is the longest word WordPiece will split; longer words become [UNK].
const maxWordRunes = 100

// WordPieceTokenizer is the uncased BERT tokenizer driven by a model's vocab.txt: lowercase,
// strip accents, split on whitespace and punctuation, then greedy longest-match subwords.
type WordPieceTokenizer struct {
	vocab map[string]int64
	cls   int64
	sep   int64
	unk   int64
	pad   int64
}

// LoadWordPiece reads a vocab.txt file: one token per line, the line number is the id.
func LoadWordPiece(path string) (*WordPieceTokenizer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadWordPiece(f)
}

// ReadWordPiece builds a tokenizer from vocab.txt content. [CLS], [SEP] and [UNK] are required.
func ReadWordPiece(r io.Reader) (*WordPieceTokenizer, error) {
	vocab := make(map[string]int64)
	scanner := bufio.NewScanner(r)
	var id int64
	for scanner.Scan() {
		tok := strings.TrimRight(scanner.Text(), "\r")
		if _, dup := vocab[tok]; !dup {
			vocab[tok] = id
		}
		id++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read vocab: %w", err)
	}
	t := &WordPieceTokenizer{vocab: vocab}
	for _, special := range []struct {
		name string
		dst  *int64
	}{{"[CLS]", &t.cls}, {"[SEP]", &t.sep}, {"[UNK]", &t.unk}} {
		v, ok := vocab[special.name]
		if !ok {
			return nil, fmt.Errorf("vocab has no %s token", special.name)
		}
		*special.dst = v
	}
	if v, ok := vocab["[PAD]"]; ok {
		t.pad = v
	}
	return t, nil
}

// Pieces returns the subword tokens of text without special tokens.
func (t *WordPieceTokenizer) Pieces(text string) []string {
	var out []string
	for _, word := range basicTokens(text) {
		out = append(out, t.wordPieces(word)...)
	}
	return out
}

// Tokenize encodes text as [CLS] pieces [SEP] followed by [PAD], maxTokens ids long.
func (t *WordPieceTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)
	for i := range inputIDs {
		inputIDs[i] = t.pad
	}

	ids := []int64{t.cls}
	for _, p := range t.Pieces(text) {
		if len(ids) >= maxTokens-1 {
			break
		}
		ids = append(ids, t.vocab[p])
	}
	if len(ids) < maxTokens {
		ids = append(ids, t.sep)
	}
	for i, id := range ids {
		inputIDs[i] = id
		attentionMask[i] = 1
	}
	return inputIDs, attentionMask, tokenTypeIDs
}

// wordPieces splits one basic token greedily into vocabulary entries. Continuations carry
// the "##" prefix. A word with any unmatched remainder is a single [UNK].
func (t *WordPieceTokenizer) wordPieces(word string) []string {
	runes := []rune(word)
	if len(runes) > maxWordRunes {
		return []string{"[UNK]"}
	}
	var pieces []string
	for start := 0; start < len(runes); {
		end := len(runes)
		match := ""
		for ; end > start; end-- {
			cand := string(runes[start:end])
			if start > 0 {
				cand = "##" + cand
			}
			if _, ok := t.vocab[cand]; ok {
				match = cand
				break
			}
		}
		if match == "" {
			return []string{"[UNK]"}
		}
		pieces = append(pieces, match)
		start = end
	}
	return pieces
}

// basicTokens lowercases, strips accents and control characters, and splits on whitespace
// with every punctuation mark and CJK ideograph as its own token.
func basicTokens(text string) []string {
	decomposed := norm.NFD.String(strings.ToLower(text))
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range decomposed {
		switch {
		case r == 0 || r == unicode.ReplacementChar || unicode.Is(unicode.Mn, r):
		case unicode.IsSpace(r):
			flush()
		case unicode.IsControl(r):
		case isPunct(r) || unicode.Is(unicode.Han, r):
			flush()
			tokens = append(tokens, string(r))
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return tokens
}

// isPunct treats every non-alphanumeric ASCII character as punctuation, like BERT.
func isPunct(r rune) bool {
	if (r >= 33 && r <= 47) || (r >= 58 && r <= 64) || (r >= 91 && r <= 96) || (r >= 123 && r <= 126) {
		return true
	}
	return unicode.IsPunct(r)
}

// NewTokenizer loads the WordPiece vocabulary at vocabPath. When the file does not exist
// the hashing WordTokenizer is returned with hashed set.
func NewTokenizer(vocabPath string) (tok Tokenizer, hashed bool, err error) {
	if vocabPath == "" {
		return WordTokenizer{}, true, nil
	}
	wp, err := LoadWordPiece(vocabPath)
	if errors.Is(err, os.ErrNotExist) {
		return WordTokenizer{}, true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load vocabulary %s: %w", vocabPath, err)
	}
	return wp, false, nil
}
