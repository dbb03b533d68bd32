//go:build faiss && cgo

package vector

/*
#cgo CFLAGS: -I/opt/homebrew/include -I/usr/local/include
#cgo LDFLAGS: -L/opt/homebrew/lib -L/usr/local/lib -lfaiss_c

#include <stdlib.h>
#include <faiss/c_api/Index_c.h>
#include <faiss/c_api/IndexFlat_c.h>
#include <faiss/c_api/error_c.h>
*/
import "C"

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"unsafe"
)

const faissCompiled = true

// FAISSIndex keeps vectors in a FAISS IndexFlatL2. FAISS labels are insertion ordinals.
type FAISSIndex struct {
	dim int

	mu  sync.RWMutex
	ptr *C.FaissIndexFlatL2
}

// NewFAISSIndex allocates an empty IndexFlatL2 of dimension dim.
func NewFAISSIndex(dim int) (*FAISSIndex, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("faiss: dimension must be positive, got %d", dim)
	}
	var ptr *C.FaissIndexFlatL2
	if err := faissCall("new index", C.faiss_IndexFlatL2_new_with(&ptr, C.idx_t(dim))); err != nil {
		return nil, err
	}
	f := &FAISSIndex{dim: dim, ptr: ptr}
	// A swapped-out index is released when the last in-flight search lets go of it.
	runtime.SetFinalizer(f, func(f *FAISSIndex) { _ = f.Close() })
	return f, nil
}

// faissCall turns a non-zero FAISS return code into an error carrying the library message.
func faissCall(op string, rc C.int) error {
	if rc == 0 {
		return nil
	}
	msg := "unknown error"
	if cmsg := C.faiss_get_last_error(); cmsg != nil {
		msg = C.GoString(cmsg)
	}
	return fmt.Errorf("faiss: %s: %s", op, msg)
}

func (f *FAISSIndex) Type() string { return string(IndexTypeFAISS) }

// Add appends vectors in order. Every vector must have the index dimension.
func (f *FAISSIndex) Add(ctx context.Context, vectors [][]float32) error {
	if len(vectors) == 0 {
		return nil
	}
	packed := make([]float32, 0, len(vectors)*f.dim)
	for i, v := range vectors {
		if len(v) != f.dim {
			return fmt.Errorf("faiss: vector %d has dimension %d, index has %d", i, len(v), f.dim)
		}
		packed = append(packed, v...)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ptr == nil {
		return errors.New("faiss: index is closed")
	}
	return faissCall("add", C.faiss_Index_add(f.ptr, C.idx_t(len(vectors)), (*C.float)(unsafe.Pointer(&packed[0]))))
}

// Search returns up to k hits by ascending squared L2 distance, ties broken by lower ordinal.
// FAISS orders equal distances arbitrarily, so the search widens until the distance after the
// k-th hit is strictly larger; a tie across the cut-off then resolves to the lower ordinals.
func (f *FAISSIndex) Search(ctx context.Context, query []float32, k int) ([]Result, error) {
	if len(query) != f.dim {
		return nil, fmt.Errorf("faiss: query has dimension %d, index has %d", len(query), f.dim)
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.ptr == nil {
		return nil, errors.New("faiss: index is closed")
	}
	n := int(C.faiss_Index_ntotal(f.ptr))
	if k > n {
		k = n
	}
	if k <= 0 {
		return nil, nil
	}

	fetch := k + 1
	if fetch > n {
		fetch = n
	}
	for {
		hits, err := f.searchLocked(query, fetch)
		if err != nil {
			return nil, err
		}
		if fetch >= n || len(hits) <= k || hits[len(hits)-1].Distance > hits[k-1].Distance {
			sortResults(hits)
			if len(hits) > k {
				hits = hits[:k]
			}
			return hits, nil
		}
		fetch *= 2
		if fetch > n {
			fetch = n
		}
	}
}

// searchLocked asks FAISS for k neighbours, in FAISS order. The caller holds f.mu.
func (f *FAISSIndex) searchLocked(query []float32, k int) ([]Result, error) {
	dists := make([]float32, k)
	labels := make([]int64, k)
	rc := C.faiss_Index_search(f.ptr, 1,
		(*C.float)(unsafe.Pointer(&query[0])),
		C.idx_t(k),
		(*C.float)(unsafe.Pointer(&dists[0])),
		(*C.idx_t)(unsafe.Pointer(&labels[0])))
	if err := faissCall("search", rc); err != nil {
		return nil, err
	}
	hits := make([]Result, 0, k)
	for i, label := range labels {
		if label >= 0 {
			hits = append(hits, Result{Ordinal: int(label), Distance: dists[i]})
		}
	}
	return hits, nil
}

func (f *FAISSIndex) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.ptr == nil {
		return 0
	}
	return int(C.faiss_Index_ntotal(f.ptr))
}

func (f *FAISSIndex) Dimensions() int { return f.dim }

// Close frees the native index. It is safe to call more than once.
func (f *FAISSIndex) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ptr != nil {
		C.faiss_Index_free(f.ptr)
		f.ptr = nil
	}
	return nil
}
