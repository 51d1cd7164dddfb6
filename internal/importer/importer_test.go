package importer

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/piwi3910/platecut/internal/model"
	"github.com/xuri/excelize/v2"
	"github.com/yofu/dxf"
	"github.com/yofu/dxf/drawing"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func hasWarning(result ImportResult, substr string) bool {
	for _, w := range result.Warnings {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}

// ─── Delimiter Detection Tests ─────────────────────────────

func TestDetectCSVDelimiter(t *testing.T) {
	tests := []struct {
		name string
		data string
		want rune
	}{
		{"semicolon", "ITEM_ID;LENGTH_ITEM;WIDTH_ITEM\n0;100;200\n", ';'},
		{"comma", "id,length,width\n0,100,200\n1,50,60\n", ','},
		{"tab", "id\tlength\twidth\n0\t100\t200\n", '\t'},
		{"pipe", "id|length|width\n0|100|200\n", '|'},
		{"single column defaults to semicolon", "hello\nworld\n", ';'},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectCSVDelimiter([]byte(tt.data)); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

// ─── Column Detection Tests ────────────────────────────────

func TestDetectColumns_ROADEFHeader(t *testing.T) {
	mapping, ok := detectColumns([]string{"ITEM_ID", "LENGTH_ITEM", "WIDTH_ITEM", "STACK", "SEQUENCE"}, batchLayout)
	if !ok {
		t.Fatal("expected header to be recognized")
	}
	want := map[string]int{"id": 0, "length": 1, "width": 2, "stack": 3, "sequence": 4}
	for role, idx := range want {
		if mapping[role] != idx {
			t.Errorf("role %s: expected column %d, got %d", role, idx, mapping[role])
		}
	}
}

func TestDetectColumns_ReorderedAliases(t *testing.T) {
	mapping, ok := detectColumns([]string{" Width ", "Len", "ID"}, batchLayout)
	if !ok {
		t.Fatal("expected header to be recognized")
	}
	if mapping["width"] != 0 || mapping["length"] != 1 || mapping["id"] != 2 {
		t.Errorf("unexpected mapping %v", mapping)
	}
	if _, ok := mapping["stack"]; ok {
		t.Error("stack should not be mapped")
	}
}

func TestDetectColumns_Positional(t *testing.T) {
	mapping, ok := detectColumns([]string{"0", "100", "200", "1", "1"}, batchLayout)
	if ok {
		t.Fatal("numeric row must not be taken as a header")
	}
	for i, role := range batchLayout.roles {
		if mapping[role] != i {
			t.Errorf("role %s: expected positional column %d, got %d", role, i, mapping[role])
		}
	}
}

// ─── Batch CSV Tests ───────────────────────────────────────

func TestImportBatchCSV_ROADEF(t *testing.T) {
	path := writeTempFile(t, "batch.csv",
		"ITEM_ID;LENGTH_ITEM;WIDTH_ITEM;STACK;SEQUENCE\n"+
			"0;1200;800;0;1\n"+
			"1;500;900;0;2\n"+
			"2;300;300;1;1\n")

	result := ImportBatchCSV(path)

	if err := result.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(result.Items))
	}

	first := result.Items[0]
	if first.ID != 0 || first.Width != 800 || first.Height != 1200 || first.Stack != 0 || first.Seq != 1 {
		t.Errorf("unexpected first item %+v", first)
	}
	// 500x900 is canonicalized so that width <= height.
	second := result.Items[1]
	if second.Width != 500 || second.Height != 900 {
		t.Errorf("expected canonical 500x900, got %dx%d", second.Width, second.Height)
	}
	if result.Items[2].Stack != 1 {
		t.Errorf("expected stack 1, got %d", result.Items[2].Stack)
	}
	if hasWarning(result, "delimiter") {
		t.Errorf("semicolon files should not warn about the delimiter: %v", result.Warnings)
	}
}

func TestImportBatchCSV_CommaWithoutOptionalColumns(t *testing.T) {
	path := writeTempFile(t, "batch.csv", "id,length,width\n7,400,300\n9,250,250\n")

	result := ImportBatchCSV(path)

	if err := result.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !hasWarning(result, "comma") {
		t.Errorf("expected comma delimiter warning, got %v", result.Warnings)
	}
	// Without a stack column every item is its own stack.
	for _, it := range result.Items {
		if it.Stack != it.ID {
			t.Errorf("item %d: expected stack %d, got %d", it.ID, it.ID, it.Stack)
		}
	}
}

func TestImportBatchReader_Positional(t *testing.T) {
	result := ImportBatchReader(strings.NewReader("0;100;200;3;2\n1;50;60;3;1\n"), ';')

	if err := result.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(result.Items))
	}
	if result.Items[1].Stack != 3 || result.Items[1].Seq != 1 {
		t.Errorf("unexpected item %+v", result.Items[1])
	}
	if hasWarning(result, "header") {
		t.Errorf("positional file should not report a header: %v", result.Warnings)
	}
}

func TestImportBatchReader_RoundsDecimals(t *testing.T) {
	result := ImportBatchReader(strings.NewReader("id;length;width\n0;100,6;200.2\n"), ';')

	if err := result.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	it := result.Items[0]
	if it.Width != 101 || it.Height != 200 {
		t.Errorf("expected 101x200, got %dx%d", it.Width, it.Height)
	}
	if !hasWarning(result, "rounded") {
		t.Errorf("expected rounding warning, got %v", result.Warnings)
	}
}

func TestImportBatchReader_RowErrors(t *testing.T) {
	result := ImportBatchReader(strings.NewReader(
		"id;length;width\n"+
			"0;100;200\n"+
			"1;abc;200\n"+
			"2;0;200\n"+
			";;\n"+
			"3;;50\n"), ';')

	if len(result.Items) != 1 {
		t.Errorf("expected 1 valid item, got %d", len(result.Items))
	}
	if len(result.Errors) != 3 {
		t.Fatalf("expected 3 errors, got %d: %v", len(result.Errors), result.Errors)
	}
	if !strings.Contains(result.Errors[0], "Line 3") {
		t.Errorf("expected error to name line 3, got %q", result.Errors[0])
	}
	err := result.Err()
	if err == nil || errors.Is(err, ErrNoData) {
		t.Errorf("expected row rejection error, got %v", err)
	}
}

func TestImportBatchReader_MissingRequiredColumn(t *testing.T) {
	result := ImportBatchReader(strings.NewReader("id;length;stack\n0;100;1\n"), ';')

	if len(result.Items) != 0 {
		t.Errorf("expected no items, got %d", len(result.Items))
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "width") {
		t.Errorf("expected missing width error, got %v", result.Errors)
	}
}

func TestImportBatchCSV_EmptyFile(t *testing.T) {
	path := writeTempFile(t, "empty.csv", "   \n")

	result := ImportBatchCSV(path)

	if !errors.Is(result.Err(), ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", result.Err())
	}
}

func TestImportBatchCSV_HeaderOnly(t *testing.T) {
	path := writeTempFile(t, "header.csv", "ITEM_ID;LENGTH_ITEM;WIDTH_ITEM\n")

	result := ImportBatchCSV(path)

	if !errors.Is(result.Err(), ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", result.Err())
	}
}

func TestImportBatchCSV_MissingFile(t *testing.T) {
	result := ImportBatchCSV(filepath.Join(t.TempDir(), "nope.csv"))

	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "Cannot open") {
		t.Errorf("expected open error, got %v", result.Errors)
	}
}

// ─── Defect CSV Tests ──────────────────────────────────────

func TestImportDefectsCSV_ROADEF(t *testing.T) {
	path := writeTempFile(t, "defects.csv",
		"DEFECT_ID;PLATE_ID;X;Y;WIDTH;HEIGHT\n"+
			"0;0;1500;200;40;30\n"+
			"1;2;10;10;5;5\n")

	result := ImportDefectsCSV(path)

	if err := result.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Defects) != 2 {
		t.Fatalf("expected 2 defects, got %d", len(result.Defects))
	}
	d := result.Defects[0]
	want := model.Rect{MinX: 1500, MinY: 200, MaxX: 1540, MaxY: 230}
	if d.Plate != 0 || d.Rect != want {
		t.Errorf("expected plate 0 rect %v, got plate %d rect %v", want, d.Plate, d.Rect)
	}
	if result.Defects[1].Plate != 2 || result.Defects[1].ID != 1 {
		t.Errorf("unexpected second defect %+v", result.Defects[1])
	}
}

func TestImportDefectsReader_InvalidRows(t *testing.T) {
	result := ImportDefectsReader(strings.NewReader(
		"0;0;10;10;5;5\n"+
			"1;x;10;10;5;5\n"+
			"2;0;-1;10;5;5\n"+
			"3;0;10;10;0;5\n"), ';')

	if len(result.Defects) != 1 {
		t.Errorf("expected 1 defect, got %d", len(result.Defects))
	}
	if len(result.Errors) != 3 {
		t.Errorf("expected 3 errors, got %d: %v", len(result.Errors), result.Errors)
	}
}

// ─── Excel Import Tests ────────────────────────────────────

func createTestExcel(t *testing.T, sheets map[string][][]interface{}, order []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "batch.xlsx")

	f := excelize.NewFile()
	for i, name := range order {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
				t.Fatalf("failed to rename sheet: %v", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			t.Fatalf("failed to create sheet: %v", err)
		}
		for r, row := range sheets[name] {
			for c, cell := range row {
				cellRef, err := excelize.CoordinatesToCellName(c+1, r+1)
				if err != nil {
					t.Fatalf("failed to create cell reference: %v", err)
				}
				if err := f.SetCellValue(name, cellRef, cell); err != nil {
					t.Fatalf("failed to set cell value: %v", err)
				}
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		t.Fatalf("failed to save Excel file: %v", err)
	}
	return path
}

func TestImportBatchExcel_ItemsAndDefects(t *testing.T) {
	path := createTestExcel(t, map[string][][]interface{}{
		"batch": {
			{"ITEM_ID", "LENGTH_ITEM", "WIDTH_ITEM", "STACK", "SEQUENCE"},
			{0, 1000, 600, 0, 1},
			{1, 700, 700, 0, 2},
		},
		"Defects": {
			{"DEFECT_ID", "PLATE_ID", "X", "Y", "WIDTH", "HEIGHT"},
			{0, 1, 100, 100, 20, 20},
		},
	}, []string{"batch", "Defects"})

	result := ImportBatchExcel(path)

	if err := result.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(result.Items))
	}
	if result.Items[0].Width != 600 || result.Items[0].Height != 1000 {
		t.Errorf("unexpected first item %+v", result.Items[0])
	}
	if len(result.Defects) != 1 || result.Defects[0].Plate != 1 {
		t.Errorf("expected one defect on plate 1, got %+v", result.Defects)
	}
}

func TestImportBatchExcel_IgnoresOtherSheets(t *testing.T) {
	path := createTestExcel(t, map[string][][]interface{}{
		"batch": {{0, 100, 100}},
		"notes": {{"DEFECT_ID", "PLATE_ID", "X", "Y", "WIDTH", "HEIGHT"}, {0, 0, 1, 1, 1, 1}},
	}, []string{"batch", "notes"})

	result := ImportBatchExcel(path)

	if len(result.Items) != 1 {
		t.Errorf("expected 1 item, got %d", len(result.Items))
	}
	if len(result.Defects) != 0 {
		t.Errorf("expected no defects, got %d", len(result.Defects))
	}
}

func TestImportBatchExcel_InvalidFile(t *testing.T) {
	path := writeTempFile(t, "broken.xlsx", "not a zip")

	result := ImportBatchExcel(path)

	if len(result.Errors) == 0 {
		t.Error("expected an error for an invalid workbook")
	}
}

// ─── DXF Defect Tests ──────────────────────────────────────

func createTestDXF(t *testing.T, build func(d *drawing.Drawing)) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "defects.dxf")
	d := dxf.NewDrawing()
	build(d)
	if err := d.SaveAs(path); err != nil {
		t.Fatalf("failed to save DXF file: %v", err)
	}
	return path
}

func TestImportDefectsDXF_ClosedShapes(t *testing.T) {
	path := createTestDXF(t, func(d *drawing.Drawing) {
		// A 40x30 rectangle drawn as four loose lines.
		d.Line(100, 200, 0, 140, 200, 0)
		d.Line(140, 200, 0, 140, 230, 0)
		d.Line(140, 230, 0, 100, 230, 0)
		d.Line(100, 230, 0, 100, 200, 0)
		d.Circle(1000, 500, 0, 10)
	})

	result := ImportDefectsDXF(path, 3)

	if err := result.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Defects) != 2 {
		t.Fatalf("expected 2 defects, got %d", len(result.Defects))
	}

	found := map[model.Rect]bool{}
	for _, d := range result.Defects {
		if d.Plate != 3 {
			t.Errorf("expected plate 3, got %d", d.Plate)
		}
		found[d.Rect] = true
	}
	for _, want := range []model.Rect{
		{MinX: 100, MinY: 200, MaxX: 140, MaxY: 230},
		{MinX: 990, MinY: 490, MaxX: 1010, MaxY: 510},
	} {
		if !found[want] {
			t.Errorf("missing defect %v in %+v", want, result.Defects)
		}
	}
}

func TestImportDefectsDXF_OpenChainIgnored(t *testing.T) {
	path := createTestDXF(t, func(d *drawing.Drawing) {
		d.Line(0, 0, 0, 10, 0, 0)
		d.Line(10, 0, 0, 10, 10, 0)
	})

	result := ImportDefectsDXF(path, 0)

	if len(result.Defects) != 0 {
		t.Errorf("expected no defects, got %+v", result.Defects)
	}
	if len(result.Errors) == 0 {
		t.Error("expected an error when no closed shape exists")
	}
}

func TestChainBoxes(t *testing.T) {
	segs := []segment{
		{point{0, 0}, point{5, 0}},
		{point{5, 5}, point{0, 5}},
		{point{5, 0}, point{5, 5}},
		{point{0, 5}, point{0, 0}},
		{point{20, 20}, point{30, 20}},
	}

	boxes := chainBoxes(segs, 0.01)

	if len(boxes) != 1 {
		t.Fatalf("expected 1 closed chain, got %d", len(boxes))
	}
	if got := boxes[0].rect(); got != (model.Rect{MinX: 0, MinY: 0, MaxX: 5, MaxY: 5}) {
		t.Errorf("unexpected box %v", got)
	}
}

func TestBulgePoints_HalfCircle(t *testing.T) {
	// A bulge of 1 is a half circle; going counterclockwise from (0,0) to
	// (10,0) it dips to y = -5.
	var b box
	for _, p := range bulgePoints(point{0, 0}, point{10, 0}, 1, 64) {
		b.add(p)
	}
	if math.Abs(b.minX) > 1e-9 || math.Abs(b.maxX-10) > 1e-9 {
		t.Errorf("expected x extent [0,10], got [%f,%f]", b.minX, b.maxX)
	}
	if math.Abs(b.minY+5) > 1e-9 || math.Abs(b.maxY) > 1e-9 {
		t.Errorf("expected y extent [-5,0], got [%f,%f]", b.minY, b.maxY)
	}
}

// ─── Load Tests ────────────────────────────────────────────

func TestLoad_BatchAndDefects(t *testing.T) {
	batch := writeTempFile(t, "batch.csv", "ITEM_ID;LENGTH_ITEM;WIDTH_ITEM;STACK;SEQUENCE\n0;100;50;0;1\n1;80;60;0;2\n")
	defects := writeTempFile(t, "defects.csv", "DEFECT_ID;PLATE_ID;X;Y;WIDTH;HEIGHT\n0;0;10;10;5;5\n")

	problem, warnings, err := Load(batch, defects, model.DefaultParams())

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(problem.Items) != 2 || len(problem.Stacks) != 1 {
		t.Errorf("expected 2 items in 1 stack, got %d items in %d stacks", len(problem.Items), len(problem.Stacks))
	}
	if len(problem.DefectsOn(0)) != 1 {
		t.Errorf("expected 1 defect on plate 0, got %d", len(problem.DefectsOn(0)))
	}
	if len(warnings) != 2 {
		t.Errorf("expected two header warnings, got %v", warnings)
	}
}

func TestLoad_EmptyDefectsFile(t *testing.T) {
	batch := writeTempFile(t, "batch.csv", "0;100;50\n")
	defects := writeTempFile(t, "defects.csv", "DEFECT_ID;PLATE_ID;X;Y;WIDTH;HEIGHT\n")

	problem, _, err := Load(batch, defects, model.DefaultParams())

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(problem.Defects) != 0 {
		t.Errorf("expected no defects, got %v", problem.Defects)
	}
}

func TestLoad_DefectOutsidePlate(t *testing.T) {
	batch := writeTempFile(t, "batch.csv", "0;100;50\n")
	defects := writeTempFile(t, "defects.csv", "0;0;5990;10;50;5\n")

	_, _, err := Load(batch, defects, model.DefaultParams())

	if !errors.Is(err, model.ErrInvalidProblem) {
		t.Errorf("expected ErrInvalidProblem, got %v", err)
	}
}

func TestLoad_BadBatch(t *testing.T) {
	batch := writeTempFile(t, "batch.csv", "id;length;width\n0;x;y\n")

	_, _, err := Load(batch, "", model.DefaultParams())

	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "importing batch") {
		t.Errorf("unexpected error %v", err)
	}
}
