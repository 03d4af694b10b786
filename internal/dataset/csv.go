// Package dataset reads and writes tabular datasets as CSV or XLSX and
// curates the raw UCI German credit file.
package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/domain"
)

// ErrUnsupportedFormat is returned for file extensions other than .csv
// and .xlsx.
var ErrUnsupportedFormat = errors.New("unsupported dataset format")

// ReadCSV parses CSV with a header row. Header names are trimmed and a
// UTF-8 byte order mark is dropped. target names the label column and may
// be empty.
func ReadCSV(r io.Reader, target string) (*domain.Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv: parse: %w", err)
	}
	return fromRecords(records, target)
}

// LoadCSV reads the CSV file at p.
func LoadCSV(p, target string) (*domain.Dataset, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("csv: open %s: %w", p, err)
	}
	defer f.Close() //nolint:errcheck

	ds, err := ReadCSV(f, target)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}
	return ds, nil
}

// WriteCSV writes ds with a header row.
func WriteCSV(w io.Writer, ds *domain.Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ds.Columns); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}
	if err := cw.WriteAll(ds.Rows); err != nil {
		return fmt.Errorf("csv: write rows: %w", err)
	}
	return nil
}

// fromRecords builds a dataset from a header row and data rows.
func fromRecords(records [][]string, target string) (*domain.Dataset, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("dataset is empty (no header row)")
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	rows := make([][]string, 0, len(records)-1)
	for i, record := range records[1:] {
		if len(record) != len(headers) {
			return nil, fmt.Errorf("row %d has %d columns, expected %d", i+2, len(record), len(headers))
		}
		rows = append(rows, record)
	}

	ds := &domain.Dataset{Columns: headers, Rows: rows, Target: target}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return ds, nil
}

// Decode parses data according to the extension of name.
func Decode(name string, data []byte, target string) (*domain.Dataset, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".csv", ".txt":
		return ReadCSV(bytes.NewReader(data), target)
	case ".xlsx":
		return ReadXLSX(bytes.NewReader(data), "", target)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}

// Encode serialises ds according to the extension of name.
func Encode(name string, ds *domain.Dataset) ([]byte, error) {
	var buf bytes.Buffer
	switch strings.ToLower(path.Ext(name)) {
	case ".csv", ".txt":
		if err := WriteCSV(&buf, ds); err != nil {
			return nil, err
		}
	case ".xlsx":
		if err := WriteXLSX(&buf, ds, ""); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
	return buf.Bytes(), nil
}
