// Package eval scores chatbot responses against reference answers.
package eval

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/siddhikamalkar/AI-Medibot/internal/embedding"
	"github.com/siddhikamalkar/AI-Medibot/internal/errs"
	"github.com/siddhikamalkar/AI-Medibot/pkg/utils"
)

// Input and output column names.
const (
	ColumnAnswer   = "Answer"
	ColumnResponse = "Chatbot_Response"
	ColumnRougeL   = "ROUGE-L"
	ColumnBLEU     = "BLEU"
	ColumnSemantic = "BERTScore_F1"
)

// Table is a CSV sheet: a header row and the records under it.
type Table struct {
	Header  []string
	Records [][]string
}

// Scores are the rounded metrics of one row.
type Scores struct {
	RougeL   float64
	BLEU     float64
	Semantic float64
}

// Result pairs the input table with per-row scores.
type Result struct {
	Table  *Table
	Scores []Scores
}

// Means returns the average of each metric over all rows.
func (r *Result) Means() Scores {
	var m Scores
	if len(r.Scores) == 0 {
		return m
	}
	for _, s := range r.Scores {
		m.RougeL += s.RougeL
		m.BLEU += s.BLEU
		m.Semantic += s.Semantic
	}
	n := float64(len(r.Scores))
	return Scores{RougeL: Round4(m.RougeL / n), BLEU: Round4(m.BLEU / n), Semantic: Round4(m.Semantic / n)}
}

// Evaluator scores rows. The semantic score is the cosine similarity of the
// embedder's vectors for the answer and the response.
type Evaluator struct {
	embedder embedding.Embedder
	logger   *zap.Logger
}

// NewEvaluator creates an Evaluator. embedder may be nil, in which case the semantic score is 0.
func NewEvaluator(embedder embedding.Embedder, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{embedder: embedder, logger: logger}
}

// ReadCSV reads a table from path. A leading UTF-8 byte order mark is ignored.
func ReadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap("eval.ReadCSV", errs.ErrIO, err)
	}
	defer f.Close()
	return readTable(f)
}

func readTable(r io.Reader) (*Table, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, errs.Wrap("eval.ReadCSV", errs.ErrIO, fmt.Errorf("failed to parse CSV: %w", err))
	}
	if len(records) == 0 {
		return nil, errs.New("eval.ReadCSV", errs.ErrConfig, "CSV has no header row")
	}
	header := records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	return &Table{Header: header, Records: records[1:]}, nil
}

// Evaluate scores every record of t. Missing Answer or Chatbot_Response columns are ErrConfig.
func (e *Evaluator) Evaluate(ctx context.Context, t *Table) (*Result, error) {
	ansCol, respCol := columnIndex(t.Header, ColumnAnswer), columnIndex(t.Header, ColumnResponse)
	var missing []string
	if ansCol < 0 {
		missing = append(missing, ColumnAnswer)
	}
	if respCol < 0 {
		missing = append(missing, ColumnResponse)
	}
	if len(missing) > 0 {
		return nil, errs.New("eval.Evaluate", errs.ErrConfig, "CSV is missing required columns: %s", strings.Join(missing, ", "))
	}

	res := &Result{Table: t, Scores: make([]Scores, len(t.Records))}
	for i, rec := range t.Records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ref, hyp := field(rec, ansCol), field(rec, respCol)
		res.Scores[i] = Scores{
			RougeL:   Round4(RougeL(ref, hyp)),
			BLEU:     Round4(BLEU(ref, hyp)),
			Semantic: Round4(e.semantic(ctx, i+1, ref, hyp)),
		}
		e.logger.Debug("evaluated row", zap.Int("row", i+1), zap.Int("rows", len(t.Records)))
	}
	return res, nil
}

func (e *Evaluator) semantic(ctx context.Context, row int, ref, hyp string) float64 {
	if e.embedder == nil {
		return 0
	}
	vecs, err := e.embedder.EmbedBatch(ctx, []string{hyp, ref})
	if err == nil && len(vecs) != 2 {
		err = errors.New("embedder returned wrong vector count")
	}
	if err != nil {
		e.logger.Warn("semantic score failed", zap.Int("row", row), zap.Error(err))
		return 0
	}
	return utils.Cosine(vecs[0], vecs[1])
}

// Run reads the CSV at input, scores it and writes the report to output.
func (e *Evaluator) Run(ctx context.Context, input, output string) (*Result, error) {
	t, err := ReadCSV(input)
	if err != nil {
		return nil, err
	}
	e.logger.Info("evaluation input loaded", zap.String("path", input), zap.Int("rows", len(t.Records)), zap.Strings("columns", t.Header))
	res, err := e.Evaluate(ctx, t)
	if err != nil {
		return nil, err
	}
	if err := WriteReport(output, res); err != nil {
		return nil, err
	}
	e.logger.Info("evaluation report written", zap.String("path", output))
	return res, nil
}

func columnIndex(header []string, name string) int {
	for i, h := range header {
		if strings.TrimSpace(h) == name {
			return i
		}
	}
	return -1
}

func field(rec []string, i int) string {
	if i < len(rec) {
		return rec[i]
	}
	return ""
}
