package services

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"expedientes_app_go/models"

	"github.com/xuri/excelize/v2"
)

// ImportResult contains the summary of a backup import. Each record is
// attempted independently; one bad row never aborts the batch.
type ImportResult struct {
	TotalProcessed    int      `json:"total_processed"`
	Imported          int      `json:"imported"`
	SkippedDuplicates int      `json:"skipped_duplicates"`
	Failed            int      `json:"failed"`
	Errors            []string `json:"errors"`
}

// ImportRecords creates each record through the repository, counting
// imported / skipped-duplicate / failed outcomes per record.
func ImportRecords(repo *CaseRepository, records []ExpedienteInput) *ImportResult {
	result := &ImportResult{Errors: []string{}}

	for i, in := range records {
		result.TotalProcessed++
		_, err := repo.Create(in)
		switch {
		case err == nil:
			result.Imported++
		case IsConflict(err):
			result.SkippedDuplicates++
			result.Errors = append(result.Errors, fmt.Sprintf("Record %d: skipped duplicate: %v", i+1, err))
		default:
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("Record %d: %v", i+1, err))
		}
	}
	return result
}

const (
	sheetInstructions = "Instrucciones"
	sheetExpedientes  = "Expedientes"
)

var importHeaders = []string{
	"Folio*",           // A
	"Filing Date*",     // B (YYYY-MM-DD)
	"Rights Category*", // C
	"Authority*",       // D
	"Handler*",         // E
	"Status",           // F
	"Last Movement",    // G (YYYY-MM-DD)
	"Notes",            // H
}

// GenerateExcelTemplate builds the data-entry workbook for backup
// imports: an instructions sheet plus an empty expedientes sheet with
// an example row.
func GenerateExcelTemplate() (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", sheetInstructions)

	f.SetCellValue(sheetInstructions, "A1", "Importación de expedientes")
	f.SetCellValue(sheetInstructions, "A3", "Consideraciones:")
	f.SetCellValue(sheetInstructions, "A4", "- El folio debe seguir el formato PREFIJO-AAAA-NNN (3 a 6 dígitos).")
	f.SetCellValue(sheetInstructions, "A5", "- Las fechas usan el formato AAAA-MM-DD y no pueden ser futuras.")
	f.SetCellValue(sheetInstructions, "A6", "- La última actuación no puede ser anterior a la fecha de registro.")
	f.SetCellValue(sheetInstructions, "A7", "- Los folios duplicados se omiten sin detener la importación.")
	f.SetCellValue(sheetInstructions, "A8", fmt.Sprintf("- Estados válidos: %s.", strings.Join(models.AllStatuses(), ", ")))

	mainTitleStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	f.SetCellStyle(sheetInstructions, "A1", "A1", mainTitleStyle)
	f.SetColWidth(sheetInstructions, "A", "A", 80)

	f.NewSheet(sheetExpedientes)
	for i, header := range importHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetExpedientes, cell, header)
	}
	f.SetColWidth(sheetExpedientes, "A", "H", 22)

	// Example row
	f.SetCellValue(sheetExpedientes, "A2", "CDH-2026-001")
	f.SetCellValue(sheetExpedientes, "B2", "2026-01-15")
	f.SetCellValue(sheetExpedientes, "C2", "Derecho de petición")
	f.SetCellValue(sheetExpedientes, "D2", "Secretaría de Salud")
	f.SetCellValue(sheetExpedientes, "E2", "L. Martínez")
	f.SetCellValue(sheetExpedientes, "F2", models.StatusAdmitido)
	f.SetCellValue(sheetExpedientes, "G2", "2026-01-15")
	f.SetCellValue(sheetExpedientes, "H2", "Observaciones del caso...")

	headerStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	f.SetCellStyle(sheetExpedientes, "A1", "H1", headerStyle)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write excel buffer: %w", err)
	}
	return buf, nil
}

// ParseExcelBackup reads the expedientes sheet of a backup workbook
// into raw inputs, skipping empty rows. Validation happens record by
// record during import.
func ParseExcelBackup(file io.Reader) ([]ExpedienteInput, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	sheetName := ""
	for _, s := range sheets {
		if s == sheetExpedientes {
			sheetName = s
			break
		}
	}
	if sheetName == "" {
		if len(sheets) < 2 {
			return nil, fmt.Errorf("invalid excel format: missing expedientes sheet")
		}
		sheetName = sheets[1]
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read expedientes sheet: %w", err)
	}

	cell := func(row []string, idx int) string {
		if idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
		return ""
	}

	var records []ExpedienteInput
	for i, row := range rows {
		if i == 0 {
			continue // Header
		}
		if cell(row, 0) == "" {
			continue
		}
		records = append(records, ExpedienteInput{
			Folio:            cell(row, 0),
			FilingDate:       cell(row, 1),
			RightsCategory:   cell(row, 2),
			Authority:        cell(row, 3),
			Handler:          cell(row, 4),
			Status:           cell(row, 5),
			LastMovementDate: cell(row, 6),
			Notes:            cell(row, 7),
		})
	}
	return records, nil
}

// BulkCreateFromExcel parses a backup workbook and imports its records.
func BulkCreateFromExcel(repo *CaseRepository, file io.Reader) (*ImportResult, error) {
	records, err := ParseExcelBackup(file)
	if err != nil {
		return nil, err
	}
	return ImportRecords(repo, records), nil
}
