package export

import (
	"fmt"

	"github.com/piwi3910/platecut/internal/model"
	"github.com/yofu/dxf"
	"github.com/yofu/dxf/color"
	"github.com/yofu/dxf/drawing"
)

// DXF layer names.
const (
	LayerPlate   = "PLATE"
	LayerCuts    = "CUTS"
	LayerRows    = "ROWS"
	LayerItems   = "ITEMS"
	LayerDefects = "DEFECTS"
	LayerText    = "LABELS"
)

// plateGap separates plates stacked along Y in the drawing.
const plateGap = 200.0

type dxfWriter struct {
	d       *drawing.Drawing
	offsetY float64
	err     error
}

func (w *dxfWriter) layer(name string) {
	if w.err == nil {
		w.err = w.d.ChangeLayer(name)
	}
}

func (w *dxfWriter) line(x1, y1, x2, y2 float64) {
	if w.err != nil {
		return
	}
	_, w.err = w.d.Line(x1, y1+w.offsetY, 0, x2, y2+w.offsetY, 0)
}

func (w *dxfWriter) rect(r model.Rect) {
	x0, y0 := float64(r.MinX), float64(r.MinY)
	x1, y1 := float64(r.MaxX), float64(r.MaxY)
	w.line(x0, y0, x1, y0)
	w.line(x1, y0, x1, y1)
	w.line(x1, y1, x0, y1)
	w.line(x0, y1, x0, y0)
}

func (w *dxfWriter) text(s string, x, y, height float64) {
	if w.err != nil {
		return
	}
	_, w.err = w.d.Text(s, x, y+w.offsetY, 0, height)
}

// ExportDXF writes a drawing of every plate: outline, cuts, rows, items
// and defects on separate layers, plates stacked upwards in index order.
// Item outlines carry their id as text.
func ExportDXF(path string, problem *model.Problem, params model.Params, sol *model.Solution) error {
	if len(sol.Plates) == 0 {
		return fmt.Errorf("no plates to export")
	}

	d := dxf.NewDrawing()
	layers := []struct {
		name  string
		color color.ColorNumber
	}{
		{LayerPlate, color.White},
		{LayerCuts, color.Red},
		{LayerRows, color.Yellow},
		{LayerItems, color.Green},
		{LayerDefects, color.Magenta},
		{LayerText, color.Cyan},
	}
	for _, l := range layers {
		if _, err := d.AddLayer(l.name, l.color, dxf.DefaultLineType, false); err != nil {
			return fmt.Errorf("adding layer %s: %w", l.name, err)
		}
	}

	w := &dxfWriter{d: d}
	for _, plate := range sol.Plates {
		w.offsetY = float64(plate.Index) * (float64(params.PlateHeight) + plateGap)
		writePlate(w, problem, params, plate)
	}
	if w.err != nil {
		return fmt.Errorf("drawing plates: %w", w.err)
	}

	if err := d.SaveAs(path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}

func writePlate(w *dxfWriter, problem *model.Problem, params model.Params, plate model.PlateSolution) {
	w.layer(LayerPlate)
	w.rect(model.NewRect(0, 0, params.PlateWidth, params.PlateHeight))

	w.layer(LayerText)
	w.text(fmt.Sprintf("Plate %d", plate.Index), 0, float64(params.PlateHeight)+20, 60)

	for _, cut := range plate.Cuts {
		w.layer(LayerCuts)
		w.rect(cut.Rect)
		for _, row := range cut.Rows {
			w.layer(LayerRows)
			w.rect(row.Rect)
			for _, p := range row.Items {
				w.layer(LayerItems)
				w.rect(p.Rect)

				h := textHeight(p.Rect)
				w.layer(LayerText)
				w.text(fmt.Sprintf("%d", p.ItemID), float64(p.Rect.MinX)+h/2, float64(p.Rect.MinY)+h/2, h)
			}
		}
	}

	w.layer(LayerDefects)
	for _, d := range problem.DefectsOn(plate.Index) {
		w.rect(d.Rect)
	}
}

// textHeight scales item labels with the item, between 10 and 80mm.
func textHeight(r model.Rect) float64 {
	h := float64(min(r.Width(), r.Height())) / 5
	return max(10, min(h, 80))
}
