// Package cli renders MediBot results for the terminal.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/siddhikamalkar/AI-Medibot/internal/eval"
	"github.com/siddhikamalkar/AI-Medibot/internal/indexer"
	"github.com/siddhikamalkar/AI-Medibot/internal/models"
	"github.com/siddhikamalkar/AI-Medibot/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// passagePreview is how many characters of a passage the text format shows.
const passagePreview = 200

// ParseFormat maps a --output flag value to an OutputFormat.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteRetrieve writes a retrieval result. The text format prints the joined context,
// which is what the chat model receives.
func WriteRetrieve(w io.Writer, resp *models.RetrieveResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	fmt.Fprintf(w, "\nRetrieved %d passage(s) in %dms\n\n", len(resp.Passages), resp.QueryTime)
	fmt.Fprintln(w, resp.Context)
	fmt.Fprintln(w)
	return nil
}

// WritePassageSearch writes lexical search hits.
func WritePassageSearch(w io.Writer, resp *models.PassageSearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	if resp.CorrectedQuery != "" {
		fmt.Fprintf(w, "\nNo matches for %q; showing results for %q\n", resp.Query, resp.CorrectedQuery)
	}
	fmt.Fprintf(w, "\nFound %d passage(s) in %dms\n\n", resp.Total, resp.QueryTime)
	for i, p := range resp.Passages {
		writePassage(w, i+1, p)
	}
	return nil
}

func writePassage(w io.Writer, rank int, p *models.Passage) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "Rank: %d | Chunk: %d | Score: %.4f\n", rank, p.Ordinal, p.Score)
	if p.SourceID != "" {
		fmt.Fprintf(w, "Source: %s\n", p.SourceID)
	}
	fmt.Fprintf(w, "\n%s\n\n", utils.Truncate(p.Content, passagePreview))
}

// WriteStatus writes the corpus summary.
func WriteStatus(w io.Writer, s *models.Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, s)
	}
	fmt.Fprintf(w, "model_id:           %s\n", s.ModelID)
	fmt.Fprintf(w, "dimensions:         %d\n", s.Dimensions)
	fmt.Fprintf(w, "chunks:             %d   # passages in the artifact\n", s.Chunks)
	fmt.Fprintf(w, "index_type:         %s\n", s.IndexType)
	fmt.Fprintf(w, "top_k:              %d\n", s.TopK)
	fmt.Fprintf(w, "sources:            %d   # files in the catalog\n", s.Sources)
	fmt.Fprintf(w, "catalog_passages:   %d\n", s.CatalogPassages)
	fmt.Fprintf(w, "keyword_passages:   %d\n", s.KeywordPassages)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "# disk usage")
	fmt.Fprintf(w, "artifact:           %s\n", HumanBytes(s.ArtifactBytes))
	fmt.Fprintf(w, "database:           %s\n", HumanBytes(s.DatabaseBytes))
	fmt.Fprintf(w, "keyword_index:      %s\n", HumanBytes(s.KeywordBytes))
	fmt.Fprintf(w, "total:              %s\n", HumanBytes(s.DiskUsageBytes))
	return nil
}

// WriteIngestReport summarizes an ingest run.
func WriteIngestReport(w io.Writer, r *indexer.Report, dst string) {
	fmt.Fprintf(w, "Ingested %d source(s) into %d chunk(s) in %s\n", len(r.Sources), r.Chunks, r.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "Model: %s (%d dims)\n", r.ModelID, r.Dim)
	fmt.Fprintf(w, "Artifact: %s\n", dst)
}

// WriteEvalSummary prints the mean scores of an evaluation run.
func WriteEvalSummary(w io.Writer, res *eval.Result, output string) {
	m := res.Means()
	fmt.Fprintf(w, "Evaluated %d row(s)\n", len(res.Scores))
	fmt.Fprintf(w, "  %-14s %.4f\n", eval.ColumnRougeL, m.RougeL)
	fmt.Fprintf(w, "  %-14s %.4f\n", eval.ColumnBLEU, m.BLEU)
	fmt.Fprintf(w, "  %-14s %.4f\n", eval.ColumnSemantic, m.Semantic)
	fmt.Fprintf(w, "Report written to %s\n", output)
}

// HumanBytes formats n with a binary unit suffix.
func HumanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
