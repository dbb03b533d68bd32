package models

import (
	"fmt"
	"strings"
)

// MaxTopK caps the number of passages a single request may ask for.
const MaxTopK = 50

// RetrieveRequest asks for the passages nearest to Query.
type RetrieveRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

// Validate rejects a blank query and clamps TopK into [1, MaxTopK], using defaultK when unset.
func (r *RetrieveRequest) Validate(defaultK int) error {
	if strings.TrimSpace(r.Query) == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if r.TopK <= 0 {
		r.TopK = defaultK
	}
	if r.TopK > MaxTopK {
		r.TopK = MaxTopK
	}
	return nil
}

// RetrieveResponse carries the joined context and the passages it was built from.
type RetrieveResponse struct {
	Query     string     `json:"query"`
	Context   string     `json:"context"`
	Passages  []*Passage `json:"passages"`
	QueryTime int64      `json:"query_time_ms"`
}

// PassageSearchResponse is the result of a lexical passage search.
// CorrectedQuery is set when the query was respelled to find matches.
type PassageSearchResponse struct {
	Query          string     `json:"query"`
	CorrectedQuery string     `json:"corrected_query,omitempty"`
	Passages       []*Passage `json:"passages"`
	Total          int        `json:"total"`
	QueryTime      int64      `json:"query_time_ms"`
}

// Status summarizes the loaded corpus and its on-disk footprint.
type Status struct {
	ModelID         string `json:"model_id"`
	Dimensions      int    `json:"dimensions"`
	Chunks          int    `json:"chunks"`
	IndexType       string `json:"index_type"`
	TopK            int    `json:"top_k"`
	Sources         int64  `json:"sources"`
	CatalogPassages int64  `json:"catalog_passages"`
	KeywordPassages uint64 `json:"keyword_passages"`
	ArtifactBytes   int64  `json:"artifact_bytes"`
	DatabaseBytes   int64  `json:"database_bytes"`
	KeywordBytes    int64  `json:"keyword_bytes"`
	DiskUsageBytes  int64  `json:"disk_usage_bytes"`
}
