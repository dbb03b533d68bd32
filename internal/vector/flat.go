package vector

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/siddhikamalkar/AI-Medibot/pkg/utils"
)

// FlatL2Index is a brute-force index under squared L2 distance.
type FlatL2Index struct {
	dimensions int
	vectors    [][]float32
	mu         sync.RWMutex
}

// NewFlatL2Index creates an empty flat index for vectors of the given dimension.
func NewFlatL2Index(dimensions int) (*FlatL2Index, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &FlatL2Index{dimensions: dimensions}, nil
}

// Type returns the index type identifier.
func (f *FlatL2Index) Type() string {
	return string(IndexTypeFlat)
}

// Add appends vectors; the first one added gets ordinal Size().
func (f *FlatL2Index) Add(ctx context.Context, vectors [][]float32) error {
	for i, vec := range vectors {
		if len(vec) != f.dimensions {
			return fmt.Errorf("vector %d dimension mismatch: got %d, expected %d", i, len(vec), f.dimensions)
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, vec := range vectors {
		v := make([]float32, f.dimensions)
		copy(v, vec)
		f.vectors = append(f.vectors, v)
	}
	return nil
}

// Search returns up to k results ordered by ascending distance, ties broken by lower ordinal.
func (f *FlatL2Index) Search(ctx context.Context, query []float32, k int) ([]Result, error) {
	if len(query) != f.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), f.dimensions)
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if k <= 0 || len(f.vectors) == 0 {
		return nil, nil
	}
	results := make([]Result, len(f.vectors))
	for i, vec := range f.vectors {
		results[i] = Result{Ordinal: i, Distance: utils.SquaredL2(query, vec)}
	}
	sortResults(results)
	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

// Size returns the number of vectors in the index.
func (f *FlatL2Index) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.vectors)
}

// Dimensions returns the vector dimension.
func (f *FlatL2Index) Dimensions() int {
	return f.dimensions
}

// Close is a no-op for FlatL2Index.
func (f *FlatL2Index) Close() error {
	return nil
}

func sortResults(results []Result) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].Ordinal < results[j].Ordinal
	})
}
