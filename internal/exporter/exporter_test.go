package exporter

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"econdash/internal/config"
	"econdash/internal/shared/testutil"
	"econdash/internal/view"
)

func f64(v float64) *float64 { return &v }

func sampleTable() view.Table {
	return view.Table{
		Name:    "combined_data",
		Columns: []string{"Year", "Internet Banking", "GDP per Capita"},
		Rows: []view.Row{
			{Label: "2019", Values: []*float64{f64(1.5e6), f64(11414.21)}},
			{Label: "2020", Values: []*float64{f64(2e6), nil}},
			{Label: `Q1, "provisional"`, Values: []*float64{f64(-0.25), f64(0)}},
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"csv", FormatCSV, false},
		{".CSV", FormatCSV, false},
		{"xlsx", FormatXLSX, false},
		{"pdf", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriteCSVQuotesFields(t *testing.T) {
	var buf bytes.Buffer
	exp := New(t.TempDir(), testutil.Logger(t))

	require.NoError(t, exp.Write(&buf, sampleTable(), FormatCSV))

	want := "Year,Internet Banking,GDP per Capita\n" +
		"2019,1500000,11414.21\n" +
		"2020,2000000,0\n" +
		"\"Q1, \"\"provisional\"\"\",-0.25,0\n"
	assert.Equal(t, want, buf.String())

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, `Q1, "provisional"`, rows[3][0])
}

func TestWriteCSVWithBOM(t *testing.T) {
	var buf bytes.Buffer
	exp := New(t.TempDir(), testutil.Logger(t)).WithBOM(true)

	require.NoError(t, exp.Write(&buf, view.Table{Columns: []string{"Year"}}, FormatCSV))
	assert.Equal(t, "\xEF\xBB\xBFYear\n", buf.String())
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(t.TempDir(), testutil.Logger(t)).Write(&buf, sampleTable(), FormatXLSX))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Year", "Internet Banking", "GDP per Capita"}, rows[0])
	assert.Equal(t, "2019", rows[1][0])
	assert.Equal(t, "11414.21", rows[1][2])
	assert.Equal(t, []string{"2020", "2000000"}, rows[2][:2])
}

func TestWriteUnsupportedFormat(t *testing.T) {
	var buf bytes.Buffer
	err := New(t.TempDir(), testutil.Logger(t)).Write(&buf, sampleTable(), Format("pdf"))
	assert.Error(t, err)
}

func TestSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	logger, logs := testutil.NewTestLogger(t)
	exp := New(dir, logger)

	path, err := exp.Save(sampleTable(), FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "combined_data.csv"), path)

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(body), "2020,2000000,0")
	assert.True(t, logs.ContainsMessage("Export written"))

	path, err = exp.Save(view.Table{Name: "../escape", Columns: []string{"Year"}}, FormatXLSX)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "escape.xlsx"), path)
}

func TestSaveFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.ExecutableDir = t.TempDir()
	exp := FromConfig(cfg, testutil.Logger(t))

	path, err := exp.Save(view.Table{Name: "../gdp_data", Columns: []string{"Year"}}, FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, cfg.ExportPath("gdp_data.csv"), path)
	assert.Equal(t, cfg.GetExportsDir(), filepath.Dir(path))
	assert.True(t, config.FileExists(path))
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "gdp_data.csv", Filename(view.Table{Name: "gdp_data"}, FormatCSV))
	assert.Equal(t, "export.xlsx", Filename(view.Table{}, FormatXLSX))
}
