package domain

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Dataset is a tabular dataset held as strings, exactly as read from CSV
// or spreadsheet sources. Typed views are produced on demand by the
// preprocessing stage.
type Dataset struct {
	// Columns holds the header names in file order.
	Columns []string `json:"columns"`

	// Rows holds one record per row, aligned with Columns. Empty strings
	// are missing values.
	Rows [][]string `json:"rows"`

	// Target is the name of the label column, empty when unknown.
	Target string `json:"target,omitempty"`
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// ColumnIndex returns the position of the named column, or -1.
func (d *Dataset) ColumnIndex(name string) int {
	return slices.Index(d.Columns, name)
}

// Column returns a copy of the named column's values.
func (d *Dataset) Column(name string) ([]string, error) {
	idx := d.ColumnIndex(name)
	if idx < 0 {
		return nil, fmt.Errorf("column %q: %w", name, ErrKeyNotFound)
	}
	out := make([]string, len(d.Rows))
	for i, row := range d.Rows {
		out[i] = row[idx]
	}
	return out, nil
}

// FloatColumn parses the named column as floats. Missing values are
// reported through the returned mask.
func (d *Dataset) FloatColumn(name string) (values []float64, missing []bool, err error) {
	raw, err := d.Column(name)
	if err != nil {
		return nil, nil, err
	}
	values = make([]float64, len(raw))
	missing = make([]bool, len(raw))
	for i, s := range raw {
		s = strings.TrimSpace(s)
		if IsMissing(s) {
			missing[i] = true
			continue
		}
		v, perr := strconv.ParseFloat(s, 64)
		if perr != nil {
			return nil, nil, fmt.Errorf("column %q row %d: %w", name, i, perr)
		}
		values[i] = v
	}
	return values, missing, nil
}

// Labels parses the target column as binary labels. Accepted values are
// 0/1, true/false and yes/no in any case.
func (d *Dataset) Labels() ([]bool, error) {
	if d.Target == "" {
		return nil, fmt.Errorf("dataset has no target column: %w", ErrInvalidConfiguration)
	}
	raw, err := d.Column(d.Target)
	if err != nil {
		return nil, err
	}
	out := make([]bool, len(raw))
	for i, s := range raw {
		v, perr := ParseLabel(s)
		if perr != nil {
			return nil, fmt.Errorf("target %q row %d: %w", d.Target, i, perr)
		}
		out[i] = v
	}
	return out, nil
}

// ParseLabel parses a binary class label.
func ParseLabel(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "1.0", "true", "yes", "bad":
		return true, nil
	case "0", "0.0", "false", "no", "good":
		return false, nil
	default:
		return false, fmt.Errorf("invalid binary label %q", s)
	}
}

// IsMissing reports whether a raw cell holds a missing value.
func IsMissing(s string) bool {
	switch strings.TrimSpace(s) {
	case "", "NA", "NaN", "nan", "null", "NULL", "?":
		return true
	}
	return false
}

// Subset returns a dataset holding the given rows, in the given order.
// Row slices are shared with the receiver.
func (d *Dataset) Subset(indices []int) *Dataset {
	rows := make([][]string, len(indices))
	for i, idx := range indices {
		rows[i] = d.Rows[idx]
	}
	return &Dataset{Columns: slices.Clone(d.Columns), Rows: rows, Target: d.Target}
}

// Features returns the column names other than the target.
func (d *Dataset) Features() []string {
	out := make([]string, 0, len(d.Columns))
	for _, c := range d.Columns {
		if c != d.Target {
			out = append(out, c)
		}
	}
	return out
}

// Validate checks that every row has one value per column and that the
// target, when set, is a known column.
func (d *Dataset) Validate() error {
	verr := NewValidationError("Dataset")
	if len(d.Columns) == 0 {
		verr.AddError("no columns")
	}
	for i, row := range d.Rows {
		if len(row) != len(d.Columns) {
			verr.AddError(fmt.Sprintf("row %d has %d values, expected %d", i, len(row), len(d.Columns)))
			break
		}
	}
	if d.Target != "" && d.ColumnIndex(d.Target) < 0 {
		verr.AddError(fmt.Sprintf("target column %q not found", d.Target))
	}
	if verr.HasErrors() {
		return verr
	}
	return nil
}
