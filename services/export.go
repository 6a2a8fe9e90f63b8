package services

import (
	"context"
	"fmt"
	"time"

	"manuals-backend/internal/logger"

	"github.com/xuri/excelize/v2"
)

const modelsSheetName = "Models"

// ExportService renders catalog listings as Excel workbooks.
type ExportService struct {
	catalog *CatalogService
}

func NewExportService(catalog *CatalogService) *ExportService {
	return &ExportService{catalog: catalog}
}

// ModelsWorkbook returns an xlsx file listing every record of company, plus
// a summary sheet.
func (es *ExportService) ModelsWorkbook(ctx context.Context, company string) ([]byte, int, error) {
	entries, err := es.catalog.Models(ctx, company)
	if err != nil {
		return nil, 0, err
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			logger.Warn("Error closing Excel file", "error", err)
		}
	}()

	index, err := f.NewSheet(modelsSheetName)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, 0, fmt.Errorf("failed to remove default sheet: %w", err)
	}

	headers := []string{"ID", "Company Name", "Product Name", "Filename", "URI"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(modelsSheetName, cell, header)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		f.SetCellStyle(modelsSheetName, "A1", "E1", headerStyle)
	}

	for i, e := range entries {
		row := i + 2
		f.SetCellValue(modelsSheetName, fmt.Sprintf("A%d", row), e.ID)
		f.SetCellValue(modelsSheetName, fmt.Sprintf("B%d", row), e.CompanyName)
		f.SetCellValue(modelsSheetName, fmt.Sprintf("C%d", row), e.ProductName)
		f.SetCellValue(modelsSheetName, fmt.Sprintf("D%d", row), e.Filename)
		f.SetCellValue(modelsSheetName, fmt.Sprintf("E%d", row), e.URI)
	}
	f.SetColWidth(modelsSheetName, "A", "A", 28)
	f.SetColWidth(modelsSheetName, "B", "E", 24)

	summarySheetName := "Summary"
	if _, err := f.NewSheet(summarySheetName); err != nil {
		return nil, 0, fmt.Errorf("failed to create summary sheet: %w", err)
	}
	summaryData := [][]interface{}{
		{"Company", company},
		{"Export Date", time.Now().UTC().Format("2006-01-02 15:04:05")},
		{"Total Records", len(entries)},
	}
	for i, row := range summaryData {
		for j, cell := range row {
			cellRef, _ := excelize.CoordinatesToCellName(j+1, i+1)
			f.SetCellValue(summarySheetName, cellRef, cell)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), len(entries), nil
}
