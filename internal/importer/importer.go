package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/leetease/catalog-engine/internal/models"
)

// Column aliases, matched after header normalization
var (
	colTitle      = []string{"title", "question", "problem"}
	colLink       = []string{"link", "url"}
	colCompany    = []string{"company"}
	colBucket     = []string{"bucket"}
	colDifficulty = []string{"difficulty", "leetdiff"}
	colFrequency  = []string{"frequency"}
	colAcceptance = []string{"acceptancerate", "acceptance"}
)

// Writer is the catalog surface an import writes through
type Writer interface {
	UpsertQuestion(ctx context.Context, link, title string, hint models.Difficulty) (models.QuestionID, error)
	UpsertCompany(ctx context.Context, name string) (models.CompanyID, error)
	UpsertPlacement(ctx context.Context, p models.Placement) error
}

// Row is one catalog row of an import source
type Row struct {
	Title          string
	Link           string
	Company        string
	Bucket         string
	Difficulty     models.Difficulty
	Frequency      float64
	AcceptanceRate float64
}

// Result summarizes an import
type Result struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// Add accumulates other into r
func (r *Result) Add(other *Result) {
	if other == nil {
		return
	}
	r.Imported += other.Imported
	r.Skipped += other.Skipped
}

// Importer writes spreadsheet rows into the catalog
type Importer struct {
	w Writer
}

// New creates an importer
func New(w Writer) *Importer {
	return &Importer{w: w}
}

// ImportFile parses an uploaded CSV or XLSX file and imports its rows. The
// file must carry title, link (or url), company and bucket columns.
func (im *Importer) ImportFile(ctx context.Context, name string, r io.Reader) (*Result, error) {
	table, err := ReadFile(name, r)
	if err != nil {
		return nil, err
	}
	if table.Len() == 0 {
		return nil, models.NewValidationError("file", "uploaded file contained no rows")
	}

	if missing := missingColumns(table); len(missing) > 0 {
		return nil, models.NewValidationError("file", "missing required columns: %s", strings.Join(missing, ", "))
	}

	rows, skipped := TableRows(table, "", "")
	res, err := im.Import(ctx, rows)
	if res != nil {
		res.Skipped += skipped
	}
	return res, err
}

func missingColumns(t *Table) []string {
	var missing []string
	for _, col := range [][]string{colTitle[:1], colLink, colCompany, colBucket} {
		if !t.Has(col...) {
			missing = append(missing, strings.Join(col, "|"))
		}
	}
	return missing
}

// TableRows converts table records to rows. company and bucket, when not
// empty, override the corresponding columns. Records without a title, link,
// company or bucket are skipped and counted.
func TableRows(t *Table, company, bucket string) ([]Row, int) {
	rows := make([]Row, 0, t.Len())
	skipped := 0

	for i := 0; i < t.Len(); i++ {
		row := Row{
			Title:          t.Value(i, colTitle...),
			Link:           t.Value(i, colLink...),
			Company:        company,
			Bucket:         bucket,
			Difficulty:     models.NormalizeDifficulty(t.Value(i, colDifficulty...)),
			Frequency:      parseNumber(t.Value(i, colFrequency...)),
			AcceptanceRate: parseNumber(t.Value(i, colAcceptance...)),
		}
		if row.Company == "" {
			row.Company = t.Value(i, colCompany...)
		}
		if row.Bucket == "" {
			row.Bucket = t.Value(i, colBucket...)
		}

		if row.Title == "" || row.Link == "" || row.Company == "" || row.Bucket == "" {
			skipped++
			continue
		}
		rows = append(rows, row)
	}

	return rows, skipped
}

// parseNumber reads a numeric cell. Blank, malformed or non-finite cells
// count as 0; a trailing percent sign is accepted.
func parseNumber(s string) float64 {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Import upserts every row. Rows rejected by validation are skipped and
// counted; any other failure aborts the import.
func (im *Importer) Import(ctx context.Context, rows []Row) (*Result, error) {
	res := &Result{}
	companies := make(map[string]models.CompanyID)
	questions := make(map[string]models.QuestionID)

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		err := im.importRow(ctx, row, companies, questions)
		switch {
		case err == nil:
			res.Imported++
		case errors.Is(err, models.ErrValidation):
			slog.Debug("skipping import row", "link", row.Link, "company", row.Company, "error", err)
			res.Skipped++
		default:
			return res, fmt.Errorf("failed to import %q: %w", row.Link, err)
		}
	}

	return res, nil
}

func (im *Importer) importRow(ctx context.Context, row Row, companies map[string]models.CompanyID, questions map[string]models.QuestionID) error {
	cid, ok := companies[row.Company]
	if !ok {
		var err error
		cid, err = im.w.UpsertCompany(ctx, row.Company)
		if err != nil {
			return err
		}
		companies[row.Company] = cid
	}

	qid, ok := questions[row.Link]
	if !ok {
		var err error
		qid, err = im.w.UpsertQuestion(ctx, row.Link, row.Title, row.Difficulty)
		if err != nil {
			return err
		}
		questions[row.Link] = qid
	}

	return im.w.UpsertPlacement(ctx, models.Placement{
		CompanyID:      cid,
		QuestionID:     qid,
		Bucket:         row.Bucket,
		Frequency:      row.Frequency,
		AcceptanceRate: row.AcceptanceRate,
	})
}
