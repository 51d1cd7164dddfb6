// Package importer reads item batches and plate defects from CSV or Excel
// files. It supports automatic delimiter detection, flexible column mapping,
// and case-insensitive header recognition. The default layout is the ROADEF
// one: ITEM_ID;LENGTH_ITEM;WIDTH_ITEM;STACK;SEQUENCE for batches and
// DEFECT_ID;PLATE_ID;X;Y;WIDTH;HEIGHT for defects.
package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/piwi3910/platecut/internal/model"
)

// ErrNoData is returned when a file holds no usable record.
var ErrNoData = errors.New("no data rows found")

// ImportResult holds the results of an import operation.
type ImportResult struct {
	Items    []model.Item
	Defects  []model.Defect
	Errors   []string
	Warnings []string
}

// Err summarizes the result as a single error: ErrNoData when nothing was
// read, the row errors otherwise, nil on success.
func (r ImportResult) Err() error {
	if len(r.Items) == 0 && len(r.Defects) == 0 {
		if len(r.Errors) > 0 {
			return fmt.Errorf("%w: %s", ErrNoData, strings.Join(r.Errors, "; "))
		}
		return ErrNoData
	}
	if len(r.Errors) > 0 {
		return fmt.Errorf("%d rows rejected: %s", len(r.Errors), strings.Join(r.Errors, "; "))
	}
	return nil
}

// layout describes one file format: its column roles, the aliases that
// identify them in a header, and the positional order used without header.
type layout struct {
	roles    []string
	required []string
	aliases  map[string][]string
}

var batchLayout = layout{
	roles:    []string{"id", "length", "width", "stack", "sequence"},
	required: []string{"id", "length", "width"},
	aliases: map[string][]string{
		"id":       {"item_id", "id", "item", "item id"},
		"length":   {"length_item", "length", "len", "l", "height", "h"},
		"width":    {"width_item", "width", "w"},
		"stack":    {"stack", "stack_id", "stack id"},
		"sequence": {"sequence", "seq", "order", "position"},
	},
}

var defectLayout = layout{
	roles:    []string{"id", "plate", "x", "y", "width", "height"},
	required: []string{"plate", "x", "y", "width", "height"},
	aliases: map[string][]string{
		"id":     {"defect_id", "id", "defect"},
		"plate":  {"plate_id", "plate", "plate id", "sheet"},
		"x":      {"x", "pos_x", "left"},
		"y":      {"y", "pos_y", "bottom"},
		"width":  {"width", "w", "width_defect"},
		"height": {"height", "h", "height_defect"},
	},
}

// DetectCSVDelimiter reads the file content and determines the most likely
// CSV delimiter among semicolon, comma, tab and pipe. The delimiter giving
// the most rows with the same column count as the first row wins.
func DetectCSVDelimiter(data []byte) rune {
	best := ';'
	bestScore := 0
	for _, delim := range []rune{';', ',', '\t', '|'} {
		reader := csv.NewReader(bytes.NewReader(data))
		reader.Comma = delim
		reader.LazyQuotes = true
		reader.FieldsPerRecord = -1

		records, err := reader.ReadAll()
		if err != nil || len(records) == 0 || len(records[0]) < 2 {
			continue
		}
		cols := len(records[0])
		consistent := 0
		for _, row := range records {
			if len(row) == cols {
				consistent++
			}
		}
		if score := consistent*10 + cols; score > bestScore {
			bestScore = score
			best = delim
		}
	}
	return best
}

// detectColumns maps the roles of l to column indices using a header row.
// It reports false, with the positional mapping, when row is not a header.
func detectColumns(row []string, l layout) (map[string]int, bool) {
	mapping := make(map[string]int, len(l.roles))
	for i, cell := range row {
		normalized := strings.ToLower(strings.TrimSpace(cell))
		for _, role := range l.roles {
			if _, taken := mapping[role]; taken {
				continue
			}
			for _, alias := range l.aliases[role] {
				if normalized == alias {
					mapping[role] = i
					break
				}
			}
		}
	}
	if len(mapping) > 0 {
		return mapping, true
	}
	for i, role := range l.roles {
		mapping[role] = i
	}
	return mapping, false
}

// getCell safely retrieves a cell value from a row by role.
func getCell(row []string, mapping map[string]int, role string) string {
	idx, ok := mapping[role]
	if !ok || idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// parseMillimetres reads an integer length. Decimal values are rounded with
// a warning.
func parseMillimetres(s, name, rowLabel string) (int, string, string) {
	if s == "" {
		return 0, "", fmt.Sprintf("%s: Missing %s value", rowLabel, name)
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v, "", ""
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return 0, "", fmt.Sprintf("%s: Invalid %s '%s'", rowLabel, name, s)
	}
	return int(math.Round(f)), fmt.Sprintf("%s: %s '%s' rounded to whole millimetres", rowLabel, name, s), ""
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// parseItem extracts an item from a batch row. Returns the item, a warning
// and an error message.
func parseItem(row []string, mapping map[string]int, rowLabel string, fallbackID int) (model.Item, string, string) {
	var warnings []string
	fields := map[string]int{}
	for _, role := range []string{"length", "width"} {
		v, warn, errMsg := parseMillimetres(getCell(row, mapping, role), role, rowLabel)
		if errMsg != "" {
			return model.Item{}, "", errMsg
		}
		if warn != "" {
			warnings = append(warnings, warn)
		}
		fields[role] = v
	}
	if fields["length"] <= 0 || fields["width"] <= 0 {
		return model.Item{}, "", fmt.Sprintf("%s: Length and width must be positive", rowLabel)
	}

	item := model.Item{
		ID:     fallbackID,
		Width:  fields["width"],
		Height: fields["length"],
		Stack:  fallbackID,
	}
	if s := getCell(row, mapping, "id"); s != "" {
		id, err := strconv.Atoi(s)
		if err != nil {
			return model.Item{}, "", fmt.Sprintf("%s: Invalid item id '%s'", rowLabel, s)
		}
		item.ID = id
		item.Stack = id
	}
	if s := getCell(row, mapping, "stack"); s != "" {
		stack, err := strconv.Atoi(s)
		if err != nil {
			return model.Item{}, "", fmt.Sprintf("%s: Invalid stack '%s'", rowLabel, s)
		}
		item.Stack = stack
	}
	if s := getCell(row, mapping, "sequence"); s != "" {
		seq, err := strconv.Atoi(s)
		if err != nil {
			return model.Item{}, "", fmt.Sprintf("%s: Invalid sequence '%s'", rowLabel, s)
		}
		item.Seq = seq
	}
	return item.Canonical(), strings.Join(warnings, "; "), ""
}

// parseDefect extracts a defect from a defects row.
func parseDefect(row []string, mapping map[string]int, rowLabel string, fallbackID int) (model.Defect, string, string) {
	var warnings []string
	fields := map[string]int{}
	for _, role := range []string{"x", "y", "width", "height"} {
		v, warn, errMsg := parseMillimetres(getCell(row, mapping, role), role, rowLabel)
		if errMsg != "" {
			return model.Defect{}, "", errMsg
		}
		if warn != "" {
			warnings = append(warnings, warn)
		}
		fields[role] = v
	}
	if fields["width"] <= 0 || fields["height"] <= 0 || fields["x"] < 0 || fields["y"] < 0 {
		return model.Defect{}, "", fmt.Sprintf("%s: Defect position must be non-negative and its size positive", rowLabel)
	}

	plateStr := getCell(row, mapping, "plate")
	plate, err := strconv.Atoi(plateStr)
	if err != nil || plate < 0 {
		return model.Defect{}, "", fmt.Sprintf("%s: Invalid plate '%s'", rowLabel, plateStr)
	}

	d := model.Defect{
		ID:    fallbackID,
		Plate: plate,
		Rect:  model.NewRect(fields["x"], fields["y"], fields["width"], fields["height"]),
	}
	if s := getCell(row, mapping, "id"); s != "" {
		id, err := strconv.Atoi(s)
		if err != nil {
			return model.Defect{}, "", fmt.Sprintf("%s: Invalid defect id '%s'", rowLabel, s)
		}
		d.ID = id
	}
	return d, strings.Join(warnings, "; "), ""
}

// readCSV loads a CSV file, detecting its delimiter.
func readCSV(path string, result *ImportResult) [][]string {
	data, err := os.ReadFile(path)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot open file: %v", err))
		return nil
	}
	if len(bytes.TrimSpace(data)) == 0 {
		result.Errors = append(result.Errors, "File is empty")
		return nil
	}

	delimiter := DetectCSVDelimiter(data)
	if delimiter != ';' {
		name := map[rune]string{',': "comma", '\t': "tab", '|': "pipe"}[delimiter]
		result.Warnings = append(result.Warnings, fmt.Sprintf("Detected %s delimiter", name))
	}
	return readRecords(bytes.NewReader(data), delimiter, result)
}

func readRecords(r io.Reader, delimiter rune, result *ImportResult) [][]string {
	reader := csv.NewReader(r)
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot read CSV: %v", err))
		return nil
	}
	if len(records) == 0 {
		result.Errors = append(result.Errors, "File is empty")
		return nil
	}
	return records
}

// ImportBatchCSV imports items from a batch CSV file.
func ImportBatchCSV(path string) ImportResult {
	result := ImportResult{}
	records := readCSV(path, &result)
	if records == nil {
		return result
	}
	return itemsFromRows(records, "Line", result)
}

// ImportBatchReader imports items from CSV data with a known delimiter.
func ImportBatchReader(r io.Reader, delimiter rune) ImportResult {
	result := ImportResult{}
	records := readRecords(r, delimiter, &result)
	if records == nil {
		return result
	}
	return itemsFromRows(records, "Line", result)
}

// ImportDefectsCSV imports plate defects from a CSV file.
func ImportDefectsCSV(path string) ImportResult {
	result := ImportResult{}
	records := readCSV(path, &result)
	if records == nil {
		return result
	}
	return defectsFromRows(records, "Line", result)
}

// ImportDefectsReader imports plate defects from CSV data with a known
// delimiter.
func ImportDefectsReader(r io.Reader, delimiter rune) ImportResult {
	result := ImportResult{}
	records := readRecords(r, delimiter, &result)
	if records == nil {
		return result
	}
	return defectsFromRows(records, "Line", result)
}

// dataStart detects the header and returns the mapping and first data row.
// It records an error when required columns are missing.
func dataStart(rows [][]string, l layout, result *ImportResult) (map[string]int, int, bool) {
	mapping, hasHeader := detectColumns(rows[0], l)
	if !hasHeader {
		// An unrecognized header still has a non-numeric second column.
		if len(rows[0]) > 1 {
			if _, err := strconv.ParseFloat(strings.TrimSpace(rows[0][1]), 64); err != nil {
				result.Warnings = append(result.Warnings, "Detected header row, skipping")
				return mapping, 1, true
			}
		}
		return mapping, 0, true
	}

	result.Warnings = append(result.Warnings, "Detected header row, skipping")
	var missing []string
	for _, role := range l.required {
		if _, ok := mapping[role]; !ok {
			missing = append(missing, role)
		}
	}
	if len(missing) > 0 {
		result.Errors = append(result.Errors, fmt.Sprintf("Required columns not found in header: %s", strings.Join(missing, ", ")))
		return nil, 0, false
	}
	return mapping, 1, true
}

func itemsFromRows(rows [][]string, rowPrefix string, result ImportResult) ImportResult {
	mapping, start, ok := dataStart(rows, batchLayout, &result)
	if !ok {
		return result
	}
	for i := start; i < len(rows); i++ {
		if isEmptyRow(rows[i]) {
			continue
		}
		rowLabel := fmt.Sprintf("%s %d", rowPrefix, i+1)
		item, warning, errMsg := parseItem(rows[i], mapping, rowLabel, len(result.Items))
		if errMsg != "" {
			result.Errors = append(result.Errors, errMsg)
			continue
		}
		if warning != "" {
			result.Warnings = append(result.Warnings, warning)
		}
		result.Items = append(result.Items, item)
	}
	if len(result.Items) == 0 && len(result.Errors) == 0 {
		result.Errors = append(result.Errors, "No data rows found")
	}
	return result
}

func defectsFromRows(rows [][]string, rowPrefix string, result ImportResult) ImportResult {
	mapping, start, ok := dataStart(rows, defectLayout, &result)
	if !ok {
		return result
	}
	for i := start; i < len(rows); i++ {
		if isEmptyRow(rows[i]) {
			continue
		}
		rowLabel := fmt.Sprintf("%s %d", rowPrefix, i+1)
		d, warning, errMsg := parseDefect(rows[i], mapping, rowLabel, len(result.Defects))
		if errMsg != "" {
			result.Errors = append(result.Errors, errMsg)
			continue
		}
		if warning != "" {
			result.Warnings = append(result.Warnings, warning)
		}
		result.Defects = append(result.Defects, d)
	}
	return result
}
