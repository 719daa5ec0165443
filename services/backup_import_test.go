package services

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xuri/excelize/v2"
)

func buildBackupWorkbook(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", sheetInstructions)
	f.NewSheet(sheetExpedientes)

	for i, header := range importHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetExpedientes, cell, header)
	}
	for r, row := range rows {
		for c, value := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			f.SetCellValue(sheetExpedientes, cell, value)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("failed to build workbook: %v", err)
	}
	return buf
}

func TestParseExcelBackup(t *testing.T) {
	buf := buildBackupWorkbook(t, [][]interface{}{
		{"CDH-2026-001", "2026-01-15", "Salud", "IMSS", "L. Martínez", "Admitido", "2026-01-20", "Primer contacto"},
		{"CDH-2026-002", "2026-01-16", "Educación", "SEP", "R. Gómez"},
		{"", "2026-01-17", "ignored"}, // Empty folio rows are skipped
	})

	records, err := ParseExcelBackup(buf)
	assert.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, "CDH-2026-001", records[0].Folio)
	assert.Equal(t, "Primer contacto", records[0].Notes)
	assert.Equal(t, "CDH-2026-002", records[1].Folio)
	assert.Empty(t, records[1].Status)
}

func TestGenerateExcelTemplateRoundTrips(t *testing.T) {
	buf, err := GenerateExcelTemplate()
	assert.NoError(t, err)

	records, err := ParseExcelBackup(bytes.NewReader(buf.Bytes()))
	assert.NoError(t, err)
	// The example row parses cleanly
	assert.Len(t, records, 1)
	assert.Equal(t, "CDH-2026-001", records[0].Folio)
}

func TestImportRecordsMixedOutcomes(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.Create(sampleInput("CDH-2026-010"))
	assert.NoError(t, err)

	var records []ExpedienteInput
	// Seven clean records
	for i := 0; i < 7; i++ {
		records = append(records, sampleInput(fmt.Sprintf("CDH-2026-10%d", i+1)))
	}
	// Two duplicates of the pre-existing folio, differing only in shape
	records = append(records, sampleInput("CDH-2026-010"))
	records = append(records, sampleInput("cdh/2026/010"))
	// One invalid record
	bad := sampleInput("CDH-2026-200")
	bad.Handler = ""
	records = append(records, bad)

	result := ImportRecords(repo, records)
	assert.Equal(t, 10, result.TotalProcessed)
	assert.Equal(t, 7, result.Imported)
	assert.Equal(t, 2, result.SkippedDuplicates)
	assert.Equal(t, 1, result.Failed)
	assert.Len(t, result.Errors, 3)

	// The batch finished despite the failures
	assert.Equal(t, 8, repo.Count())
}

func TestBulkCreateFromExcel(t *testing.T) {
	repo := newTestRepo(t)

	buf := buildBackupWorkbook(t, [][]interface{}{
		{"CDH-2026-301", "2026-01-15", "Salud", "IMSS", "L. Martínez"},
		{"CDH-2026-301", "2026-01-15", "Salud", "IMSS", "L. Martínez"}, // Duplicate within the file
		{"CDH-2026-302", "2199-01-01", "Salud", "IMSS", "L. Martínez"}, // Future date
	})

	result, err := BulkCreateFromExcel(repo, buf)
	assert.NoError(t, err)
	assert.Equal(t, 3, result.TotalProcessed)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 1, result.SkippedDuplicates)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, repo.Count())
}
