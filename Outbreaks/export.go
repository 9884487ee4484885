package Outbreaks

import (
	"fmt"
	"io"

	"github.com/360EntSecGroup-Skylar/excelize"
)

const (
	detailSheet  = "Outbreaks"
	summarySheet = "Cities"
)

// WriteXLSX writes the sorted entries as a workbook with one row per city and
// condition, plus a per-city summary sheet.
func WriteXLSX(w io.Writer, entries []Entry) error {
	file := excelize.NewFile()
	file.NewSheet(detailSheet)
	summary := file.NewSheet(summarySheet)
	file.DeleteSheet("Sheet1")

	headers := map[string]string{
		"A1": "City",
		"B1": "Condition",
		"C1": "Reports",
	}
	for k, v := range headers {
		file.SetCellValue(detailSheet, k, v)
	}
	file.SetCellValue(summarySheet, "A1", "City")
	file.SetCellValue(summarySheet, "B1", "Total reports")
	file.SetCellValue(summarySheet, "C1", "Top condition")

	row := 2
	for i, entry := range entries {
		for _, d := range entry.Diseases {
			appendDetailRow(file, row, entry.City, d)
			row++
		}
		appendSummaryRow(file, i+2, entry)
	}

	file.SetActiveSheet(summary)
	if err := file.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func appendDetailRow(file *excelize.File, row int, city string, d DiseaseCount) {
	file.SetCellValue(detailSheet, fmt.Sprintf("A%v", row), city)
	file.SetCellValue(detailSheet, fmt.Sprintf("B%v", row), d.Disease)
	file.SetCellValue(detailSheet, fmt.Sprintf("C%v", row), d.Count)
}

func appendSummaryRow(file *excelize.File, row int, entry Entry) {
	file.SetCellValue(summarySheet, fmt.Sprintf("A%v", row), entry.City)
	file.SetCellValue(summarySheet, fmt.Sprintf("B%v", row), entry.Total)
	if len(entry.Diseases) > 0 {
		file.SetCellValue(summarySheet, fmt.Sprintf("C%v", row), entry.Diseases[0].Disease)
	}
}
