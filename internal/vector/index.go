// Package vector provides nearest-neighbour indexes over chunk embeddings.
package vector

import "context"

// Index stores vectors in insertion order and answers nearest-neighbour queries.
// The position of a vector in insertion order is its ordinal.
type Index interface {
	Add(ctx context.Context, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]Result, error)
	Size() int
	Dimensions() int
	Close() error
}

// Result is a single search hit. Distance is the squared Euclidean distance to the query.
type Result struct {
	Ordinal  int
	Distance float32
}
