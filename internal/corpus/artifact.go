// Package corpus persists the retrieval artifact: chunk texts and their embeddings in one file.
//
// Layout (little-endian):
//
//	magic    [4]byte "MBIX"
//	version  uint32
//	modelLen uint32, model id bytes
//	dim      uint32
//	count    uint32
//	vectors  count*dim float32
//	chunks   count * (len uint32, utf-8 bytes)
package corpus

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/siddhikamalkar/AI-Medibot/internal/errs"
	"github.com/siddhikamalkar/AI-Medibot/internal/vector"
)

const (
	magic         = "MBIX"
	formatVersion = 1
	maxModelIDLen = 1 << 10
)

// Artifact is the immutable result of ingestion. Vectors[i] is the embedding of Chunks[i].
type Artifact struct {
	ModelID string
	Dim     int
	Chunks  []string
	Vectors [][]float32
}

// Len returns the number of chunks.
func (a *Artifact) Len() int {
	return len(a.Chunks)
}

// Validate checks that chunks and vectors are aligned and every vector has Dim components.
func (a *Artifact) Validate() error {
	if a.Dim <= 0 {
		return errs.New("corpus.Validate", errs.ErrCorruptIndex, "dimension must be positive, got %d", a.Dim)
	}
	if len(a.Chunks) != len(a.Vectors) {
		return errs.New("corpus.Validate", errs.ErrCorruptIndex, "%d chunks but %d vectors", len(a.Chunks), len(a.Vectors))
	}
	if len(a.ModelID) > maxModelIDLen {
		return errs.New("corpus.Validate", errs.ErrCorruptIndex, "model id too long")
	}
	for i, v := range a.Vectors {
		if len(v) != a.Dim {
			return errs.New("corpus.Validate", errs.ErrCorruptIndex, "vector %d has %d components, want %d", i, len(v), a.Dim)
		}
	}
	return nil
}

// Index builds a nearest-neighbour index over the artifact's vectors.
func (a *Artifact) Index(ctx context.Context, indexType string) (vector.Index, error) {
	idx, err := vector.Build(ctx, indexType, a.Dim, a.Vectors)
	if err != nil {
		return nil, fmt.Errorf("failed to build index: %w", err)
	}
	return idx, nil
}

// Save writes a to path atomically: a temp file in the same directory is written, synced and
// renamed over path. On any error the previous file at path is left untouched.
func Save(path string, a *Artifact) error {
	const op = "corpus.Save"
	if err := a.Validate(); err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errs.Wrap(op, errs.ErrIO, fmt.Errorf("failed to create artifact dir: %w", err))
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return errs.Wrap(op, errs.ErrIO, fmt.Errorf("failed to create temp file: %w", err))
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	w := bufio.NewWriterSize(tmp, 1<<20)
	if err := encode(w, a); err != nil {
		return errs.Wrap(op, errs.ErrIO, fmt.Errorf("failed to write artifact: %w", err))
	}
	if err := w.Flush(); err != nil {
		return errs.Wrap(op, errs.ErrIO, fmt.Errorf("failed to flush artifact: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		return errs.Wrap(op, errs.ErrIO, fmt.Errorf("failed to sync artifact: %w", err))
	}
	if err := tmp.Close(); err != nil {
		return errs.Wrap(op, errs.ErrIO, fmt.Errorf("failed to close artifact: %w", err))
	}
	if err := os.Rename(tmpName, path); err != nil {
		return errs.Wrap(op, errs.ErrIO, fmt.Errorf("failed to rename artifact: %w", err))
	}
	committed = true
	syncDir(dir)
	return nil
}

func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}

func encode(w io.Writer, a *Artifact) error {
	if _, err := io.WriteString(w, magic); err != nil {
		return err
	}
	if err := writeUint32(w, formatVersion); err != nil {
		return err
	}
	if err := writeString(w, a.ModelID); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(a.Dim)); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(len(a.Chunks))); err != nil {
		return err
	}
	buf := make([]byte, a.Dim*4)
	for _, v := range a.Vectors {
		for j, x := range v {
			binary.LittleEndian.PutUint32(buf[j*4:], math.Float32bits(x))
		}
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	for _, c := range a.Chunks {
		if err := writeString(w, c); err != nil {
			return err
		}
	}
	return nil
}

// Load reads the artifact at path. A missing or unreadable file is ErrIO. A malformed file, or one
// built with a different model (when expectModelID is non-empty) or dimension (when expectDim is
// positive), is ErrCorruptIndex.
func Load(path, expectModelID string, expectDim int) (*Artifact, error) {
	const op = "corpus.Load"
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(op, errs.ErrIO, fmt.Errorf("failed to open artifact: %w", err))
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, errs.Wrap(op, errs.ErrIO, fmt.Errorf("failed to stat artifact: %w", err))
	}

	a, err := decode(bufio.NewReaderSize(f, 1<<20), info.Size())
	if err != nil {
		if errors.Is(err, errs.ErrCorruptIndex) {
			return nil, err
		}
		var pathErr *os.PathError
		if errors.As(err, &pathErr) {
			return nil, errs.Wrap(op, errs.ErrIO, err)
		}
		return nil, errs.Wrap(op, errs.ErrCorruptIndex, err)
	}
	if expectModelID != "" && a.ModelID != expectModelID {
		return nil, errs.New(op, errs.ErrCorruptIndex,
			"artifact built with model %q, embedder is %q; re-run ingest", a.ModelID, expectModelID)
	}
	if expectDim > 0 && a.Dim != expectDim {
		return nil, errs.New(op, errs.ErrCorruptIndex, "artifact dimension %d, embedder dimension %d", a.Dim, expectDim)
	}
	return a, nil
}

func decode(r io.Reader, size int64) (*Artifact, error) {
	const op = "corpus.decode"
	head := make([]byte, len(magic))
	if _, err := io.ReadFull(r, head); err != nil {
		return nil, fmt.Errorf("read magic: %w", err)
	}
	if string(head) != magic {
		return nil, errs.New(op, errs.ErrCorruptIndex, "bad magic %q", head)
	}
	version, err := readUint32(r)
	if err != nil {
		return nil, fmt.Errorf("read version: %w", err)
	}
	if version != formatVersion {
		return nil, errs.New(op, errs.ErrCorruptIndex, "unsupported format version %d", version)
	}
	modelID, err := readString(r, maxModelIDLen)
	if err != nil {
		return nil, fmt.Errorf("read model id: %w", err)
	}
	dim, err := readUint32(r)
	if err != nil {
		return nil, fmt.Errorf("read dimension: %w", err)
	}
	count, err := readUint32(r)
	if err != nil {
		return nil, fmt.Errorf("read count: %w", err)
	}
	if dim == 0 {
		return nil, errs.New(op, errs.ErrCorruptIndex, "zero dimension")
	}
	if int64(count)*int64(dim)*4 > size {
		return nil, errs.New(op, errs.ErrCorruptIndex, "%d vectors of dimension %d exceed file size %d", count, dim, size)
	}

	a := &Artifact{
		ModelID: modelID,
		Dim:     int(dim),
		Chunks:  make([]string, count),
		Vectors: make([][]float32, count),
	}
	buf := make([]byte, int(dim)*4)
	for i := range a.Vectors {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("read vector %d: %w", i, err)
		}
		v := make([]float32, dim)
		for j := range v {
			v[j] = math.Float32frombits(binary.LittleEndian.Uint32(buf[j*4:]))
		}
		a.Vectors[i] = v
	}
	for i := range a.Chunks {
		c, err := readString(r, size)
		if err != nil {
			return nil, fmt.Errorf("read chunk %d: %w", i, err)
		}
		a.Chunks[i] = c
	}
	if n, _ := io.Copy(io.Discard, r); n > 0 {
		return nil, errs.New(op, errs.ErrCorruptIndex, "%d trailing bytes after last chunk", n)
	}
	return a, nil
}

func writeUint32(w io.Writer, v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func readUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func writeString(w io.Writer, s string) error {
	if err := writeUint32(w, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader, limit int64) (string, error) {
	n, err := readUint32(r)
	if err != nil {
		return "", err
	}
	if int64(n) > limit {
		return "", errs.New("corpus.readString", errs.ErrCorruptIndex, "string length %d exceeds limit %d", n, limit)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}
