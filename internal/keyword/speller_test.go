package keyword

import (
	"errors"
	"testing"
)

type mapDict map[string]int

func (m mapDict) Terms() (map[string]int, error) { return m, nil }

type failingDict struct{}

func (failingDict) Terms() (map[string]int, error) { return nil, errors.New("boom") }

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"fever", "fever", 0},
		{"diabetis", "diabetes", 1},
		{"kitten", "sitting", 3},
		{"naïve", "naive", 1},
	}
	for _, tt := range tests {
		if got := LevenshteinDistance(tt.a, tt.b); got != tt.want {
			t.Errorf("LevenshteinDistance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSpeller_Correct(t *testing.T) {
	s := NewSpeller(mapDict{"diabetes": 5, "diabetic": 2, "insulin": 3, "asthma": 4}, 2)

	tests := []struct {
		query   string
		want    string
		changed bool
	}{
		{"insulin", "insulin", false},
		{"Diabetis insulin", "diabetes insulin", true},
		{"asthmaa", "asthma", true},
		{"xyzzyq", "xyzzyq", false},
	}
	for _, tt := range tests {
		got, changed, err := s.Correct(tt.query)
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want || changed != tt.changed {
			t.Errorf("Correct(%q) = %q, %v; want %q, %v", tt.query, got, changed, tt.want, tt.changed)
		}
	}
}

func TestSpeller_prefersFrequentTerm(t *testing.T) {
	s := NewSpeller(mapDict{"cold": 1, "colt": 9}, 1)
	got, _, _ := s.Correct("colx")
	if got != "colt" {
		t.Errorf("got %q, want the more frequent neighbour", got)
	}
}

func TestSpeller_dictionaryError(t *testing.T) {
	s := NewSpeller(failingDict{}, 0)
	got, changed, err := s.Correct("fever")
	if err == nil || changed || got != "fever" {
		t.Errorf("Correct = %q, %v, %v", got, changed, err)
	}
}
