package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/leetease/catalog-engine/internal/models"
)

// Table is a parsed spreadsheet: a normalized header and its data records
type Table struct {
	columns map[string]int
	records [][]string
}

// Len returns the number of data records
func (t *Table) Len() int {
	return len(t.records)
}

// Has reports whether any of the given column names is present
func (t *Table) Has(names ...string) bool {
	_, ok := t.index(names...)
	return ok
}

// Value returns the trimmed cell of record i under the first present column
// of names, or "" when the column or cell is absent.
func (t *Table) Value(i int, names ...string) string {
	col, ok := t.index(names...)
	if !ok {
		return ""
	}
	rec := t.records[i]
	if col >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[col])
}

func (t *Table) index(names ...string) (int, bool) {
	for _, name := range names {
		if col, ok := t.columns[normalizeHeader(name)]; ok {
			return col, true
		}
	}
	return 0, false
}

// normalizeHeader makes header matching case, space and underscore insensitive
func normalizeHeader(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(s)
}

func newTable(rows [][]string) (*Table, error) {
	if len(rows) == 0 {
		return nil, models.NewValidationError("file", "file contained no header row")
	}

	columns := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		key := normalizeHeader(name)
		if key == "" {
			continue
		}
		if _, dup := columns[key]; !dup {
			columns[key] = i
		}
	}

	records := make([][]string, 0, len(rows)-1)
	for _, rec := range rows[1:] {
		if isBlank(rec) {
			continue
		}
		records = append(records, rec)
	}

	return &Table{columns: columns, records: records}, nil
}

func isBlank(rec []string) bool {
	for _, cell := range rec {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// ReadCSV parses a CSV stream. Records may have varying field counts.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, models.NewValidationError("file", "could not parse CSV: %v", err)
	}
	return newTable(rows)
}

// ReadXLSX parses the first sheet of an Excel workbook
func ReadXLSX(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, models.NewValidationError("file", "could not parse workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, models.NewValidationError("file", "workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return newTable(rows)
}

// ReadFile parses r according to the extension of name
func ReadFile(name string, r io.Reader) (*Table, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return ReadCSV(r)
	case ".xlsx":
		return ReadXLSX(r)
	default:
		return nil, models.NewValidationError("file", "unsupported file type %q: only CSV and XLSX are accepted", filepath.Ext(name))
	}
}
