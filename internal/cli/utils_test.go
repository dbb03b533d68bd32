package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/siddhikamalkar/AI-Medibot/internal/eval"
	"github.com/siddhikamalkar/AI-Medibot/internal/indexer"
	"github.com/siddhikamalkar/AI-Medibot/internal/models"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", OutputText, false},
		{"text", OutputText, false},
		{"json", OutputJSON, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWriteRetrieve_JSON(t *testing.T) {
	resp := &models.RetrieveResponse{
		Query:     "headache",
		Context:   "Migraine is a headache disorder.",
		Passages:  []*models.Passage{{Ordinal: 4, Content: "Migraine is a headache disorder.", Distance: 0.25}},
		QueryTime: 7,
	}
	var buf bytes.Buffer
	if err := WriteRetrieve(&buf, resp, OutputJSON); err != nil {
		t.Fatalf("WriteRetrieve(json): %v", err)
	}
	var decoded models.RetrieveResponse
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if decoded.Context != resp.Context || len(decoded.Passages) != 1 || decoded.Passages[0].Ordinal != 4 {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestWriteRetrieve_Text(t *testing.T) {
	resp := &models.RetrieveResponse{
		Query:    "fever",
		Context:  "Fever is a rise in body temperature.\n\nAntipyretics reduce fever.",
		Passages: []*models.Passage{{Ordinal: 0}, {Ordinal: 1}},
	}
	var buf bytes.Buffer
	if err := WriteRetrieve(&buf, resp, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "Retrieved 2 passage(s)") {
		t.Errorf("missing summary line: %s", out)
	}
	if !strings.Contains(out, "Antipyretics reduce fever.") {
		t.Errorf("missing context: %s", out)
	}
}

func TestWritePassageSearch_Text(t *testing.T) {
	long := strings.Repeat("a", 300)
	resp := &models.PassageSearchResponse{
		Query:          "diabetis",
		CorrectedQuery: "diabetes",
		Passages: []*models.Passage{
			{Ordinal: 2, SourceID: "src-1", Content: "Diabetes mellitus", Score: 1.5},
			{Ordinal: 9, Content: long},
		},
		Total: 2,
	}
	var buf bytes.Buffer
	if err := WritePassageSearch(&buf, resp, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		`showing results for "diabetes"`,
		"Rank: 1 | Chunk: 2 | Score: 1.5000",
		"Source: src-1",
		"Rank: 2 | Chunk: 9",
		strings.Repeat("a", 200) + "...",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, strings.Repeat("a", 201)) {
		t.Error("long passage should be truncated")
	}
}

func TestWritePassageSearch_JSONOmitsCorrection(t *testing.T) {
	var buf bytes.Buffer
	resp := &models.PassageSearchResponse{Query: "asthma", Passages: []*models.Passage{}}
	if err := WritePassageSearch(&buf, resp, OutputJSON); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "corrected_query") {
		t.Errorf("corrected_query should be omitted when empty: %s", buf.String())
	}
}

func TestWriteStatus(t *testing.T) {
	s := &models.Status{
		ModelID:        "hash-sin-v1/16",
		Dimensions:     16,
		Chunks:         3,
		IndexType:      "flat",
		TopK:           3,
		ArtifactBytes:  2048,
		DiskUsageBytes: 3 << 20,
	}
	var buf bytes.Buffer
	if err := WriteStatus(&buf, s, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"model_id:           hash-sin-v1/16", "chunks:             3", "artifact:           2.0 KiB", "total:              3.0 MiB"} {
		if !strings.Contains(out, want) {
			t.Errorf("status output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := WriteStatus(&buf, s, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded models.Status
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded != *s {
		t.Errorf("decoded = %+v, want %+v", decoded, *s)
	}
}

func TestWriteIngestReport(t *testing.T) {
	r := &indexer.Report{
		Sources:  []*models.Source{{ID: "a"}, {ID: "b"}},
		Chunks:   12,
		ModelID:  "hash-sin-v1/8",
		Dim:      8,
		Duration: 1500 * time.Millisecond,
	}
	var buf bytes.Buffer
	WriteIngestReport(&buf, r, "/tmp/medibot.idx")
	out := buf.String()
	if !strings.Contains(out, "Ingested 2 source(s) into 12 chunk(s) in 1.5s") {
		t.Errorf("unexpected report: %s", out)
	}
	if !strings.Contains(out, "/tmp/medibot.idx") {
		t.Errorf("missing artifact path: %s", out)
	}
}

func TestWriteEvalSummary(t *testing.T) {
	res := &eval.Result{Scores: []eval.Scores{
		{RougeL: 1, BLEU: 0.5, Semantic: 0.8},
		{RougeL: 0, BLEU: 0.5, Semantic: 0.6},
	}}
	var buf bytes.Buffer
	WriteEvalSummary(&buf, res, "out.xlsx")
	out := buf.String()
	for _, want := range []string{"Evaluated 2 row(s)", "ROUGE-L        0.5000", "BLEU           0.5000", "BERTScore_F1   0.7000"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestHumanBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{5 << 30, "5.0 GiB"},
	}
	for _, tt := range tests {
		if got := HumanBytes(tt.in); got != tt.want {
			t.Errorf("HumanBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
