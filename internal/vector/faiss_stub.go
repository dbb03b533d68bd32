//go:build !faiss || !cgo

package vector

import (
	"context"
	"errors"
)

const faissCompiled = false

var errNoFAISS = errors.New("faiss: not compiled in, rebuild with -tags=faiss and libfaiss_c installed")

// FAISSIndex stands in for the FAISS-backed index in builds without the faiss tag.
type FAISSIndex struct{}

func NewFAISSIndex(int) (*FAISSIndex, error) { return nil, errNoFAISS }

func (*FAISSIndex) Type() string { return string(IndexTypeFAISS) }

func (*FAISSIndex) Add(context.Context, [][]float32) error { return errNoFAISS }

func (*FAISSIndex) Search(context.Context, []float32, int) ([]Result, error) {
	return nil, errNoFAISS
}

func (*FAISSIndex) Size() int { return 0 }

func (*FAISSIndex) Dimensions() int { return 0 }

func (*FAISSIndex) Close() error { return nil }
