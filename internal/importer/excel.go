package importer

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ImportBatchExcel imports items from the first sheet of an Excel file. When
// the workbook also has a sheet named "defects" (any case), plate defects
// are read from it.
func ImportBatchExcel(path string) ImportResult {
	result := ImportResult{}

	f, err := excelize.OpenFile(path)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot open Excel file: %v", err))
		return result
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		result.Errors = append(result.Errors, "Excel file has no sheets")
		return result
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot read Excel data: %v", err))
		return result
	}
	if len(rows) == 0 {
		result.Errors = append(result.Errors, "Sheet is empty")
		return result
	}
	result = itemsFromRows(rows, "Row", result)

	for _, name := range sheets[1:] {
		if !strings.EqualFold(name, "defects") {
			continue
		}
		rows, err := f.GetRows(name)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Cannot read sheet %s: %v", name, err))
			break
		}
		if len(rows) > 0 {
			result = defectsFromRows(rows, name+" row", result)
		}
		break
	}
	return result
}
