package dataprocessing

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"attendash/internal/errors"
	"attendash/internal/security"
	"attendash/pkg/contracts/domain"
)

var lineBreak = regexp.MustCompile(`\r?\n`)

// Parser converts raw upload text into normalized attendance records.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a parser. A nil logger falls back to slog.Default.
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger.With(slog.String("component", "csv_parser"))}
}

// tableRow pairs a tokenized row with its 1-based source line number so
// failures can point the uploader at the offending line.
type tableRow struct {
	line  int
	cells []string
}

// Parse validates and normalizes a whole CSV document. It fails closed: the
// first structural or per-row problem aborts the parse and no records are
// returned.
func (p *Parser) Parse(text string) ([]domain.AttendanceRecord, error) {
	if err := security.EnsureNoBinaryData(text); err != nil {
		return nil, err
	}

	var header []string
	var rows []tableRow
	for i, raw := range lineBreak.Split(text, -1) {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		if header == nil {
			header = trimCells(ParseLine(trimmed))
			continue
		}
		rows = append(rows, tableRow{line: i + 1, cells: trimCells(ParseLine(trimmed))})
	}

	if header == nil {
		return nil, errors.NewFormatError("CSV file is empty")
	}

	records, err := p.parseTable(header, rows)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("parsed CSV document",
		slog.Int("data_rows", len(rows)),
		slog.Int("records", len(records)))
	return records, nil
}

// parseTable normalizes tokenized rows against a validated header. It is
// shared by the CSV and workbook entry points.
func (p *Parser) parseTable(header []string, rows []tableRow) ([]domain.AttendanceRecord, error) {
	if missing := missingColumns(header); len(missing) > 0 {
		return nil, errors.NewFormatError(
			fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", ")))
	}

	records := make([]domain.AttendanceRecord, 0, len(rows))
	for _, row := range rows {
		if err := security.CheckRowLimit(len(records) + 1); err != nil {
			return nil, err
		}

		cells := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(row.cells) {
				cells[name] = row.cells[i]
			} else {
				cells[name] = ""
			}
		}

		rec, err := NormalizeRow(cells)
		if err != nil {
			return nil, errors.NewRowError(row.line, err)
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, errors.NewFormatError("CSV contains no data rows")
	}
	return records, nil
}

// missingColumns returns required column names absent from the header, in
// schema order. Matching is exact and case-sensitive after trimming.
func missingColumns(header []string) []string {
	present := make(map[string]bool, len(header))
	for _, name := range header {
		present[name] = true
	}

	var missing []string
	for _, name := range RequiredColumns {
		if !present[name] {
			missing = append(missing, name)
		}
	}
	return missing
}

func trimCells(cells []string) []string {
	for i, c := range cells {
		cells[i] = strings.TrimSpace(c)
	}
	return cells
}
