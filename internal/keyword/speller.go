package keyword

import (
	"sort"
	"strings"
	"sync"
)

// Speller proposes corrections for query terms that do not occur in the corpus,
// e.g. "diabetis" -> "diabetes".
type Speller struct {
	dict        TermDictionary
	maxDistance int

	mu    sync.RWMutex
	terms map[string]int
}

// NewSpeller returns a Speller over dict. maxDistance <= 0 defaults to 2.
func NewSpeller(dict TermDictionary, maxDistance int) *Speller {
	if maxDistance <= 0 {
		maxDistance = 2
	}
	return &Speller{dict: dict, maxDistance: maxDistance}
}

// Refresh reloads the term dictionary. Call after the passage index is replaced.
func (s *Speller) Refresh() error {
	terms, err := s.dict.Terms()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.terms = terms
	s.mu.Unlock()
	return nil
}

// Correct returns the query with each unknown term replaced by its best known neighbour,
// and whether anything changed.
func (s *Speller) Correct(query string) (string, bool, error) {
	s.mu.RLock()
	loaded := s.terms != nil
	s.mu.RUnlock()
	if !loaded {
		if err := s.Refresh(); err != nil {
			return query, false, err
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	words := tokenizeQuery(query)
	changed := false
	for i, w := range words {
		if _, ok := s.terms[w]; ok {
			continue
		}
		if best, ok := s.closest(w); ok {
			words[i] = best
			changed = true
		}
	}
	return strings.Join(words, " "), changed, nil
}

type candidate struct {
	term string
	dist int
	freq int
}

// closest picks the known term with the smallest distance, then highest frequency, then lexical order.
func (s *Speller) closest(word string) (string, bool) {
	n := len([]rune(word))
	var cands []candidate
	for term, freq := range s.terms {
		diff := len([]rune(term)) - n
		if diff < 0 {
			diff = -diff
		}
		if diff > s.maxDistance {
			continue
		}
		if d := LevenshteinDistance(word, term); d <= s.maxDistance {
			cands = append(cands, candidate{term: term, dist: d, freq: freq})
		}
	}
	if len(cands) == 0 {
		return "", false
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].dist != cands[j].dist {
			return cands[i].dist < cands[j].dist
		}
		if cands[i].freq != cands[j].freq {
			return cands[i].freq > cands[j].freq
		}
		return cands[i].term < cands[j].term
	})
	return cands[0].term, true
}
