package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleDataset() Dataset {
	return Dataset{
		Headers: []string{"Student", "Average"},
		Rows: []map[string]string{
			{"Student": "Ada Lovelace", "Average": "91.50"},
			{"Student": "Alan Turing", "Average": "55.00"},
		},
	}
}

func TestParseFormat(t *testing.T) {
	f, ok := ParseFormat(" XLSX ")
	require.True(t, ok)
	assert.Equal(t, FormatXLSX, f)
	assert.Equal(t, "text/csv", FormatCSV.ContentType())

	_, ok = ParseFormat("docx")
	assert.False(t, ok)
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset(), "ignored")
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"Student", "Average"}, records[0])
	assert.Equal(t, []string{"Alan Turing", "55.00"}, records[2])
}

func TestPDFExporterRender(t *testing.T) {
	rows := make([]map[string]string, 0, 120)
	for i := 0; i < 120; i++ {
		rows = append(rows, map[string]string{"Student": "Student", "Average": "70.00"})
	}
	out, err := NewPDFExporter().Render(Dataset{Headers: []string{"Student", "Average"}, Rows: rows}, "Roster")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestXLSXExporterRender(t *testing.T) {
	out, err := NewXLSXExporter().Render(sampleDataset(), "At-risk: Algebra/1")
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	sheet := f.GetSheetName(0)
	assert.Equal(t, "At-risk Algebra1", sheet)
	value, err := f.GetCellValue(sheet, "A2")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", value)
	value, err = f.GetCellValue(sheet, "B3")
	require.NoError(t, err)
	assert.Equal(t, "55.00", value)
}

func TestRegistryRejectsUnknownFormatAndEmptyHeaders(t *testing.T) {
	reg := DefaultRegistry()
	_, err := reg.Render(Format("docx"), sampleDataset(), "")
	assert.Error(t, err)

	for _, f := range []Format{FormatCSV, FormatPDF, FormatXLSX} {
		_, err := reg.Render(f, Dataset{}, "")
		assert.Error(t, err, f)
	}
}
