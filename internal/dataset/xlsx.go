package dataset

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/domain"
)

// DefaultSheet is used when no sheet name is given.
const DefaultSheet = "Sheet1"

// ReadXLSX reads one sheet of a workbook. An empty sheet name reads the
// first sheet. Trailing empty cells, which excelize omits, are restored
// as missing values.
func ReadXLSX(r io.Reader, sheet, target string) (*domain.Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("xlsx: open: %w", err)
	}
	defer f.Close() //nolint:errcheck

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("xlsx: workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("xlsx: read %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("xlsx: sheet %s is empty", sheet)
	}

	width := len(rows[0])
	for i := 1; i < len(rows); i++ {
		if len(rows[i]) < width {
			padded := make([]string, width)
			copy(padded, rows[i])
			rows[i] = padded
		}
	}
	return fromRecords(rows, target)
}

// WriteXLSX writes ds as a single-sheet workbook.
func WriteXLSX(w io.Writer, ds *domain.Dataset, sheet string) error {
	if sheet == "" {
		sheet = DefaultSheet
	}
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	if sheet != DefaultSheet {
		if err := f.SetSheetName(DefaultSheet, sheet); err != nil {
			return fmt.Errorf("xlsx: rename sheet: %w", err)
		}
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("xlsx: stream writer: %w", err)
	}
	if err := sw.SetRow("A1", toCells(ds.Columns)); err != nil {
		return fmt.Errorf("xlsx: write header: %w", err)
	}
	for r, row := range ds.Rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, toCells(row)); err != nil {
			return fmt.Errorf("xlsx: write row %d: %w", r+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("xlsx: flush: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx: write: %w", err)
	}
	return nil
}

func toCells(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
