package dataprocessing

import (
	"io"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"attendash/internal/errors"
	"attendash/internal/security"
	"attendash/pkg/contracts/domain"
)

// ParseWorkbook reads an Excel workbook and runs its first sheet through the
// same guard and normalization pipeline as a CSV upload. The sheet must carry
// the attendance header row followed by data rows.
func (p *Parser) ParseWorkbook(r io.Reader) ([]domain.AttendanceRecord, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrTypeFormat, "could not open Excel workbook", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.NewFormatError("workbook contains no sheets")
	}

	sheetRows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.NewAppError(errors.ErrTypeFormat, "could not read workbook sheet", err)
	}

	var header []string
	var rows []tableRow
	for i, cells := range sheetRows {
		trimmed := trimCells(cells)
		if isBlankRow(trimmed) {
			continue
		}
		if err := security.EnsureNoBinaryData(strings.Join(trimmed, " ")); err != nil {
			return nil, err
		}
		if header == nil {
			header = trimmed
			continue
		}
		rows = append(rows, tableRow{line: i + 1, cells: trimmed})
	}

	if header == nil {
		return nil, errors.NewFormatError("workbook sheet is empty")
	}

	records, err := p.parseTable(header, rows)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("parsed workbook sheet",
		slog.String("sheet", sheets[0]),
		slog.Int("records", len(records)))
	return records, nil
}

func isBlankRow(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}
