package embedding

import (
	"hash/fnv"
	"strings"
	"unicode"
)

// BERT special token ids and the id range words are hashed into.
const (
	tokenPAD   = 0
	tokenCLS   = 101
	tokenSEP   = 102
	vocabFirst = 1000
	vocabSize  = 29000
)

const defaultMaxTokens = 256

// Tokenizer produces token IDs for BERT-style models (input_ids, attention_mask, token_type_ids).
type Tokenizer interface {
	Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64)
}

// WordTokenizer lowercases text, splits it on anything that is not a letter or digit
// and hashes each word into the vocabulary range. No vocabulary file is needed.
type WordTokenizer struct{}

// Words returns the lowercase words Tokenize would encode, before truncation.
func (WordTokenizer) Words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// Tokenize encodes text as [CLS] words [SEP] followed by padding, maxTokens ids long.
func (t WordTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)

	ids := []int64{tokenCLS}
	for _, w := range t.Words(text) {
		if len(ids) >= maxTokens-1 {
			break
		}
		ids = append(ids, vocabFirst+int64(termHash(w)%vocabSize))
	}
	if len(ids) < maxTokens {
		ids = append(ids, tokenSEP)
	}
	for i, id := range ids {
		inputIDs[i] = id
		attentionMask[i] = 1
	}
	return inputIDs, attentionMask, tokenTypeIDs
}

// termHash is the 32-bit FNV-1a hash of s.
func termHash(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}
