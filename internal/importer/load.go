package importer

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/piwi3910/platecut/internal/model"
)

// Load reads a batch file and an optional defects file and builds the
// problem for params. The file format follows the extension: .xlsx/.xlsm
// for Excel, .dxf for defect drawings (plate 0), CSV otherwise. Warnings
// of both files are returned.
func Load(batchPath, defectsPath string, params model.Params) (*model.Problem, []string, error) {
	var batch ImportResult
	switch strings.ToLower(filepath.Ext(batchPath)) {
	case ".xlsx", ".xlsm", ".xls":
		batch = ImportBatchExcel(batchPath)
	default:
		batch = ImportBatchCSV(batchPath)
	}
	if err := batch.Err(); err != nil {
		return nil, batch.Warnings, fmt.Errorf("importing batch %s: %w", batchPath, err)
	}
	warnings := batch.Warnings
	defects := batch.Defects

	if defectsPath != "" {
		var res ImportResult
		switch strings.ToLower(filepath.Ext(defectsPath)) {
		case ".dxf":
			res = ImportDefectsDXF(defectsPath, 0)
		default:
			res = ImportDefectsCSV(defectsPath)
		}
		warnings = append(warnings, res.Warnings...)
		// A defects file may legitimately be empty.
		if err := res.Err(); err != nil && !(errors.Is(err, ErrNoData) && len(res.Errors) == 0) {
			return nil, warnings, fmt.Errorf("importing defects %s: %w", defectsPath, err)
		}
		defects = append(defects, res.Defects...)
	}

	problem, err := model.NewProblem(batch.Items, defects, params)
	if err != nil {
		return nil, warnings, fmt.Errorf("building problem: %w", err)
	}
	return problem, warnings, nil
}
