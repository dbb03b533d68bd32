//go:build !cgo

package embedding

import (
	"context"
	"errors"
)

var errONNXUnavailable = errors.New("onnx embedder needs a cgo build with the onnxruntime library")

// ONNXEmbedder cannot run in a build without cgo. NewONNXEmbedder always fails.
type ONNXEmbedder struct{}

func NewONNXEmbedder(_, _ string, _ Tokenizer, _, _, _ int) (*ONNXEmbedder, error) {
	return nil, errONNXUnavailable
}

func (*ONNXEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, errONNXUnavailable
}

func (*ONNXEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, errONNXUnavailable
}

func (*ONNXEmbedder) Dimensions() int { return 0 }

func (*ONNXEmbedder) ModelID() string { return "" }

func (*ONNXEmbedder) Close() error { return nil }
