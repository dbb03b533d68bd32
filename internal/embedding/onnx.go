//go:build cgo

package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/siddhikamalkar/AI-Medibot/pkg/utils"
)

var (
	onnxInputs  = []string{"input_ids", "attention_mask", "token_type_ids"}
	onnxOutputs = []string{"output"}
)

// onnxBindings are the tensors bound to a session. Run reads the inputs and writes output in place.
type onnxBindings struct {
	inputs [3]*ort.Tensor[int64]
	output *ort.Tensor[float32]
}

func newONNXBindings(seqLen, dimensions int) (*onnxBindings, error) {
	b := &onnxBindings{}
	for i, name := range onnxInputs {
		t, err := ort.NewEmptyTensor[int64](ort.NewShape(1, int64(seqLen)))
		if err != nil {
			b.destroy()
			return nil, fmt.Errorf("create %s tensor: %w", name, err)
		}
		b.inputs[i] = t
	}
	out, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(dimensions)))
	if err != nil {
		b.destroy()
		return nil, fmt.Errorf("create output tensor: %w", err)
	}
	b.output = out
	return b, nil
}

func (b *onnxBindings) load(columns ...[]int64) {
	for i, col := range columns {
		copy(b.inputs[i].GetData(), col)
	}
}

func (b *onnxBindings) inputValues() []ort.ArbitraryTensor {
	vals := make([]ort.ArbitraryTensor, len(b.inputs))
	for i, t := range b.inputs {
		vals[i] = t
	}
	return vals
}

func (b *onnxBindings) destroy() {
	for i, t := range b.inputs {
		if t != nil {
			_ = t.Destroy()
			b.inputs[i] = nil
		}
	}
	if b.output != nil {
		_ = b.output.Destroy()
		b.output = nil
	}
}

var ortEnv struct {
	once sync.Once
	err  error
}

func ensureRuntime() error {
	ortEnv.once.Do(func() {
		if !ort.IsInitialized() {
			ortEnv.err = ort.InitializeEnvironment()
		}
	})
	return ortEnv.err
}

// ONNXEmbedder runs a pooled sentence-embedding export (all-MiniLM-L6-v2 style, one "output"
// of the model dimension) through ONNX Runtime. It needs CGO and the onnxruntime shared library.
type ONNXEmbedder struct {
	modelID    string
	dimensions int
	seqLen     int
	tokenizer  Tokenizer
	cache      *EmbeddingCache

	mu       sync.Mutex
	session  *ort.AdvancedSession
	bindings *onnxBindings
}

// NewONNXEmbedder loads the model at modelPath with inputs fixed at maxTokens ids.
// A nil tokenizer selects WordTokenizer.
func NewONNXEmbedder(modelID, modelPath string, tokenizer Tokenizer, dimensions, maxTokens, cacheSize int) (*ONNXEmbedder, error) {
	if err := ensureRuntime(); err != nil {
		return nil, fmt.Errorf("initialize onnx runtime: %w", err)
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	if tokenizer == nil {
		tokenizer = WordTokenizer{}
	}
	bindings, err := newONNXBindings(maxTokens, dimensions)
	if err != nil {
		return nil, err
	}
	session, err := ort.NewAdvancedSession(modelPath, onnxInputs, onnxOutputs,
		bindings.inputValues(), []ort.ArbitraryTensor{bindings.output}, nil)
	if err != nil {
		bindings.destroy()
		return nil, fmt.Errorf("load onnx model %s: %w", modelPath, err)
	}
	return &ONNXEmbedder{
		modelID:    modelID,
		dimensions: dimensions,
		seqLen:     maxTokens,
		tokenizer:  tokenizer,
		cache:      NewEmbeddingCache(cacheSize),
		session:    session,
		bindings:   bindings,
	}, nil
}

// Embed returns the unit-length embedding for text. Results are cached by exact text.
func (e *ONNXEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := e.cache.Get(text); ok {
		return vec, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil, errors.New("onnx embedder is closed")
	}
	e.bindings.load(e.tokenizer.Tokenize(text, e.seqLen))
	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("onnx inference: %w", err)
	}
	vec := append([]float32(nil), e.bindings.output.GetData()[:e.dimensions]...)
	utils.NormalizeL2(vec)
	e.cache.Set(text, vec)
	return vec, nil
}

// EmbedBatch embeds texts one at a time; the bound tensors hold a single sequence.
func (e *ONNXEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, texts, e.Embed)
}

func (e *ONNXEmbedder) Dimensions() int { return e.dimensions }

func (e *ONNXEmbedder) ModelID() string { return e.modelID }

// CacheStats reports embedding cache hits and misses.
func (e *ONNXEmbedder) CacheStats() (hits, misses uint64) {
	return e.cache.Stats()
}

// Close releases the session and its tensors. Embed fails afterwards.
func (e *ONNXEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil
	}
	err := e.session.Destroy()
	e.session = nil
	e.bindings.destroy()
	return err
}
