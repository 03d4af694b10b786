package dataset

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/domain"
	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/testutils"
)

func TestReadCSV(t *testing.T) {
	input := "\ufeffAge, Sex ,CreditRisk\n25,male,1\n31,,0\n"

	ds, err := ReadCSV(strings.NewReader(input), "CreditRisk")
	require.NoError(t, err)

	assert.Equal(t, []string{"Age", "Sex", "CreditRisk"}, ds.Columns, "headers are trimmed")
	assert.Equal(t, 2, ds.Len())
	assert.Equal(t, "", ds.Rows[1][1], "empty cells stay empty")

	labels, err := ds.Labels()
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false}, labels)
}

func TestReadCSV_Errors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		target string
	}{
		{name: "empty", input: ""},
		{name: "ragged", input: "a,b\n1\n"},
		{name: "unknown target", input: "a,b\n1,2\n", target: "y"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.input), tt.target)
			assert.Error(t, err)
		})
	}
}

func TestCSV_RoundTrip(t *testing.T) {
	ds := testutils.GenerateCreditDataset(50, 7)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, ds))

	back, err := ReadCSV(&buf, ds.Target)
	require.NoError(t, err)
	assert.Equal(t, ds.Columns, back.Columns)
	assert.Equal(t, ds.Rows, back.Rows)
}

func TestLoadCSV(t *testing.T) {
	p := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(p, []byte("x,y\n1,0\n"), 0o600))

	ds, err := LoadCSV(p, "y")
	require.NoError(t, err)
	assert.Equal(t, 1, ds.Len())

	_, err = LoadCSV(filepath.Join(t.TempDir(), "missing.csv"), "y")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestXLSX_RoundTrip(t *testing.T) {
	ds := &domain.Dataset{
		Columns: []string{"Age", "Purpose", "CreditRisk"},
		Rows: [][]string{
			{"25", "car", "1"},
			{"40", "", "0"},
			{"33", "radio/TV", ""},
		},
		Target: "CreditRisk",
	}

	for _, sheet := range []string{"", "credit"} {
		t.Run("sheet="+sheet, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WriteXLSX(&buf, ds, sheet))

			back, err := ReadXLSX(&buf, sheet, "CreditRisk")
			require.NoError(t, err)
			assert.Equal(t, ds.Columns, back.Columns)
			assert.Equal(t, ds.Rows, back.Rows, "trailing empty cells are restored")
		})
	}
}

func TestDecodeEncode_ByExtension(t *testing.T) {
	ds := testutils.GenerateCreditDataset(20, 3)

	for _, name := range []string{"raw/credit.csv", "raw/CREDIT.XLSX"} {
		t.Run(name, func(t *testing.T) {
			data, err := Encode(name, ds)
			require.NoError(t, err)

			back, err := Decode(name, data, ds.Target)
			require.NoError(t, err)
			assert.Equal(t, ds.Rows, back.Rows)
		})
	}

	_, err := Decode("credit.parquet", nil, "")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	_, err = Encode("credit.json", ds)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

const germanSample = `A11 6 A34 A43 1169 A65 A75 4 A93 A101 4 A121 67 A143 A152 2 A173 1 A192 A201 1
A12 48 A32 A43 5951 A61 A73 2 A92 A101 2 A121 22 A143 A152 1 A173 1 A191 A201 2

A14 12 A34 A410 2096 A61 A74 2 A93 A101 3 A121 49 A143 A152 1 A172 2 A191 A201 1
`

func TestCurateGerman(t *testing.T) {
	ds, err := CurateGerman(strings.NewReader(germanSample))
	require.NoError(t, err)

	require.Equal(t, 3, ds.Len(), "blank lines are skipped")
	assert.Equal(t, GermanColumns, ds.Columns)
	require.NoError(t, ds.Validate())

	row := ds.Rows[0]
	at := func(col string) string { return row[ds.ColumnIndex(col)] }
	assert.Equal(t, "< 0 DM", at("Status"))
	assert.Equal(t, "radio/TV", at("Purpose"))
	assert.Equal(t, "1169", at("CreditAmount"))
	assert.Equal(t, "own", at("Housing"))
	assert.Equal(t, "yes, registered under customer's name", at("Telephone"))

	assert.Equal(t, "others", ds.Rows[2][ds.ColumnIndex("Purpose")])

	labels, err := ds.Labels()
	require.NoError(t, err)
	assert.Equal(t, []bool{false, true, false}, labels, "1=good becomes 0, 2=bad becomes 1")

	groups := GermanFeatureGroups()
	for _, col := range groups.All() {
		assert.GreaterOrEqual(t, ds.ColumnIndex(col), 0, "feature %s must exist", col)
	}
	assert.Len(t, groups.All(), len(GermanColumns)-1)
}

func TestCurateGerman_Errors(t *testing.T) {
	_, err := CurateGerman(strings.NewReader(""))
	assert.Error(t, err)

	_, err = CurateGerman(strings.NewReader("A11 6 A34\n"))
	assert.Error(t, err)

	bad := strings.Replace(strings.SplitN(germanSample, "\n", 2)[0], "A201 1", "A201 3", 1)
	_, err = CurateGerman(strings.NewReader(bad))
	assert.Error(t, err)
}

func TestCurateGerman_UnknownCodeIsMissing(t *testing.T) {
	line := strings.Replace(strings.SplitN(germanSample, "\n", 2)[0], "A43", "A99", 1)
	ds, err := CurateGerman(strings.NewReader(line))
	require.NoError(t, err)
	assert.True(t, domain.IsMissing(ds.Rows[0][ds.ColumnIndex("Purpose")]))
}
