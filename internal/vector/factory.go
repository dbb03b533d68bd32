package vector

import (
	"context"
	"fmt"
)

// IndexType names a vector index implementation.
type IndexType string

const (
	// IndexTypeFlat is the pure Go brute-force index.
	IndexTypeFlat IndexType = "flat"
	// IndexTypeFAISS is a FAISS IndexFlatL2; it needs the faiss build tag and libfaiss_c.
	IndexTypeFAISS IndexType = "faiss"
)

// IndexTypes lists the accepted index type names.
var IndexTypes = []IndexType{IndexTypeFlat, IndexTypeFAISS}

// NewIndex creates an empty index. An empty type selects flat.
func NewIndex(indexType string, dimensions int) (Index, error) {
	switch IndexType(indexType) {
	case "", IndexTypeFlat:
		return NewFlatL2Index(dimensions)
	case IndexTypeFAISS:
		return NewFAISSIndex(dimensions)
	}
	return nil, fmt.Errorf("unknown index type %q, want one of %v", indexType, IndexTypes)
}

// Build creates an index and adds vectors in order. The index is closed if Add fails.
func Build(ctx context.Context, indexType string, dimensions int, vectors [][]float32) (Index, error) {
	idx, err := NewIndex(indexType, dimensions)
	if err != nil {
		return nil, err
	}
	if err = idx.Add(ctx, vectors); err != nil {
		_ = idx.Close()
		return nil, err
	}
	return idx, nil
}

// IsFAISSAvailable reports whether this binary was built with FAISS support.
func IsFAISSAvailable() bool { return faissCompiled }
