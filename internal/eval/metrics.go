package eval

import (
	"math"
	"strings"
	"unicode"

	porterstemmer "github.com/blevesearch/go-porterstemmer"
)

const (
	bleuMaxOrder = 4
	bleuEpsilon  = 0.1
)

// rougeTokens lowercases text, splits on anything that is not a letter or digit,
// and Porter-stems tokens longer than three characters.
func rougeTokens(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	for i, f := range fields {
		if len(f) > 3 {
			fields[i] = porterstemmer.StemString(f)
		}
	}
	return fields
}

// RougeL returns the ROUGE-L F-measure of candidate against reference.
func RougeL(reference, candidate string) float64 {
	ref, hyp := rougeTokens(reference), rougeTokens(candidate)
	if len(ref) == 0 || len(hyp) == 0 {
		return 0
	}
	lcs := float64(lcsLength(ref, hyp))
	precision := lcs / float64(len(hyp))
	recall := lcs / float64(len(ref))
	if precision+recall == 0 {
		return 0
	}
	return 2 * precision * recall / (precision + recall)
}

func lcsLength(a, b []string) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
			} else {
				cur[j] = max(prev[j], cur[j-1])
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// BLEU returns sentence BLEU-4 of candidate against one reference, with uniform weights,
// the brevity penalty, and zero n-gram precisions smoothed to epsilon over the n-gram count.
// Tokens are whitespace-separated and case-sensitive.
func BLEU(reference, candidate string) float64 {
	ref := strings.FieldsFunc(reference, unicode.IsSpace)
	hyp := strings.FieldsFunc(candidate, unicode.IsSpace)
	if len(hyp) == 0 {
		return 0
	}

	var logSum float64
	for n := 1; n <= bleuMaxOrder; n++ {
		matches, total := clippedMatches(ref, hyp, n)
		if n == 1 && matches == 0 {
			return 0
		}
		total = max(total, 1)
		p := float64(matches) / float64(total)
		if matches == 0 {
			p = bleuEpsilon / float64(total)
		}
		logSum += math.Log(p) / bleuMaxOrder
	}
	return brevityPenalty(len(ref), len(hyp)) * math.Exp(logSum)
}

// clippedMatches counts candidate n-grams that also occur in the reference, each clipped to its
// reference count, and the total number of candidate n-grams.
func clippedMatches(ref, hyp []string, n int) (int, int) {
	refCounts := ngramCounts(ref, n)
	hypCounts := ngramCounts(hyp, n)
	matches, total := 0, 0
	for gram, c := range hypCounts {
		total += c
		matches += min(c, refCounts[gram])
	}
	return matches, total
}

func ngramCounts(tokens []string, n int) map[string]int {
	counts := make(map[string]int)
	for i := 0; i+n <= len(tokens); i++ {
		counts[strings.Join(tokens[i:i+n], "\x00")]++
	}
	return counts
}

func brevityPenalty(refLen, hypLen int) float64 {
	if hypLen > refLen {
		return 1
	}
	if hypLen == 0 {
		return 0
	}
	return math.Exp(1 - float64(refLen)/float64(hypLen))
}

// Round4 rounds x to four decimal places.
func Round4(x float64) float64 {
	return math.Round(x*1e4) / 1e4
}
