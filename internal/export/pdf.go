// Package export writes packing solutions to files: the solution CSV, PDF
// plate drawings, QR-coded item labels and DXF cut drawings.
package export

import (
	"fmt"
	"math"

	"github.com/go-pdf/fpdf"
	"github.com/piwi3910/platecut/internal/model"
)

// itemColor represents an RGB color for a placed item.
type itemColor struct {
	R, G, B int
}

// itemColors cycles per stack so items of one stack share a color.
var itemColors = []itemColor{
	{R: 76, G: 175, B: 80},  // green
	{R: 33, G: 150, B: 243}, // blue
	{R: 255, G: 152, B: 0},  // orange
	{R: 156, G: 39, B: 176}, // purple
	{R: 0, G: 188, B: 212},  // cyan
	{R: 244, G: 67, B: 54},  // red
	{R: 255, G: 235, B: 59}, // yellow
	{R: 121, G: 85, B: 72},  // brown
}

// Page layout constants (A4 landscape in mm).
const (
	pageWidth    = 297.0
	pageHeight   = 210.0
	marginLeft   = 15.0
	marginRight  = 15.0
	marginTop    = 15.0
	marginBottom = 15.0
	headerHeight = 12.0
	statsHeight  = 20.0
	drawAreaTop  = marginTop + headerHeight + 5.0
)

// plateCanvas maps plate millimetres to page coordinates. The plate origin
// is bottom-left; the page origin is top-left.
type plateCanvas struct {
	scale, offsetX, offsetY float64
	width, height           float64 // canvas size on the page
}

func newPlateCanvas(params model.Params) plateCanvas {
	drawWidth := pageWidth - marginLeft - marginRight
	drawHeight := pageHeight - drawAreaTop - marginBottom - statsHeight

	scale := math.Min(drawWidth/float64(params.PlateWidth), drawHeight/float64(params.PlateHeight))
	c := plateCanvas{
		scale:  scale,
		width:  float64(params.PlateWidth) * scale,
		height: float64(params.PlateHeight) * scale,
	}
	c.offsetX = marginLeft + (drawWidth-c.width)/2
	c.offsetY = drawAreaTop
	return c
}

// rect returns the page position and size of r.
func (c plateCanvas) rect(r model.Rect) (x, y, w, h float64) {
	x = c.offsetX + float64(r.MinX)*c.scale
	y = c.offsetY + c.height - float64(r.MaxY)*c.scale
	return x, y, float64(r.Width()) * c.scale, float64(r.Height()) * c.scale
}

// ExportPDF generates a PDF document with one page per plate showing its
// cuts, rows, items and defects, followed by a summary page.
func ExportPDF(path string, problem *model.Problem, params model.Params, sol *model.Solution) error {
	if len(sol.Plates) == 0 {
		return fmt.Errorf("no plates to export")
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, marginBottom)

	for _, plate := range sol.Plates {
		pdf.AddPage()
		renderPlatePage(pdf, problem, params, plate)
	}

	pdf.AddPage()
	renderSummaryPage(pdf, problem, params, sol)

	return pdf.OutputFileAndClose(path)
}

// renderPlatePage draws a single plate on the current PDF page.
func renderPlatePage(pdf *fpdf.Fpdf, problem *model.Problem, params model.Params, plate model.PlateSolution) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetXY(marginLeft, marginTop)
	title := fmt.Sprintf("Plate %d (%d x %d mm)", plate.Index, params.PlateWidth, params.PlateHeight)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, headerHeight, title, "", 0, "L", false, 0, "")

	plateArea := float64(params.PlateWidth) * float64(params.PlateHeight)
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetXY(marginLeft, marginTop+headerHeight)
	stats := fmt.Sprintf("Items: %d | Cuts: %d | Used area: %d mm² | Efficiency: %.1f%%",
		plate.Count, len(plate.Cuts), plate.UsedArea(), float64(plate.UsedArea())/plateArea*100)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 5, stats, "", 0, "L", false, 0, "")

	c := newPlateCanvas(params)

	// Plate background, waste color
	pdf.SetFillColor(225, 235, 240)
	pdf.SetDrawColor(100, 100, 100)
	pdf.SetLineWidth(0.5)
	pdf.Rect(c.offsetX, c.offsetY, c.width, c.height, "FD")

	if plate.Rect.MaxX < params.PlateWidth {
		residual := model.Rect{MinX: plate.Rect.MaxX, MaxX: params.PlateWidth, MaxY: params.PlateHeight}
		x, y, w, h := c.rect(residual)
		pdf.SetFillColor(245, 245, 245)
		pdf.Rect(x, y, w, h, "F")
	}

	for _, cut := range plate.Cuts {
		for _, row := range cut.Rows {
			for _, p := range row.Items {
				drawItem(pdf, c, problem, p)
			}
			x, y, w, h := c.rect(row.Rect)
			pdf.SetDrawColor(90, 90, 90)
			pdf.SetLineWidth(0.15)
			pdf.Rect(x, y, w, h, "D")
		}
		x, y, w, h := c.rect(cut.Rect)
		pdf.SetDrawColor(0, 0, 0)
		pdf.SetLineWidth(0.4)
		pdf.Rect(x, y, w, h, "D")
	}

	drawDefects(pdf, c, problem.DefectsOn(plate.Index))
	drawDimensionAnnotations(pdf, params, c)
	drawItemsLegend(pdf, plate, c.offsetY+c.height+5)
}

func drawItem(pdf *fpdf.Fpdf, c plateCanvas, problem *model.Problem, p model.ItemPlacement) {
	stack := p.ItemID
	if it, ok := problem.Item(p.ItemID); ok {
		stack = it.Stack
	}
	col := itemColors[abs(stack)%len(itemColors)]
	px, py, pw, ph := c.rect(p.Rect)

	pdf.SetFillColor(col.R, col.G, col.B)
	pdf.SetDrawColor(30, 30, 30)
	pdf.SetLineWidth(0.2)
	pdf.Rect(px, py, pw, ph, "FD")

	// Label only if rectangle is large enough
	if pw <= 10 || ph <= 6 {
		return
	}
	pdf.SetFont("Helvetica", "", labelFontSize(pw, ph))
	pdf.SetTextColor(0, 0, 0)

	label := fmt.Sprintf("#%d", p.ItemID)
	dims := fmt.Sprintf("%dx%d", p.Rect.Width(), p.Rect.Height())
	labelW := pdf.GetStringWidth(label)
	dimsW := pdf.GetStringWidth(dims)

	if labelW < pw-2 {
		pdf.SetXY(px+(pw-labelW)/2, py+ph/2-4)
		pdf.CellFormat(labelW, 4, label, "", 0, "C", false, 0, "")
	}
	if ph > 12 && dimsW < pw-2 {
		pdf.SetXY(px+(pw-dimsW)/2, py+ph/2)
		pdf.CellFormat(dimsW, 4, dims, "", 0, "C", false, 0, "")
	}
}

// drawDefects renders plate defects as hatched red zones.
func drawDefects(pdf *fpdf.Fpdf, c plateCanvas, defects []model.Defect) {
	for _, d := range defects {
		zx, zy, zw, zh := c.rect(d.Rect)
		// Defects can be much smaller than a millimetre on the page.
		zw, zh = math.Max(zw, 0.8), math.Max(zh, 0.8)

		pdf.SetFillColor(255, 200, 200)
		pdf.SetDrawColor(200, 0, 0)
		pdf.SetLineWidth(0.3)
		pdf.Rect(zx, zy, zw, zh, "FD")
		drawHatchPattern(pdf, zx, zy, zw, zh)

		if zw > 20 && zh > 8 {
			pdf.SetFont("Helvetica", "B", 6)
			pdf.SetTextColor(180, 0, 0)
			labelW := pdf.GetStringWidth("DEFECT")
			pdf.SetXY(zx+(zw-labelW)/2, zy+zh/2-2)
			pdf.CellFormat(labelW, 4, "DEFECT", "", 0, "C", false, 0, "")
		}
	}
	pdf.SetTextColor(0, 0, 0)
}

// drawHatchPattern draws diagonal lines inside a rectangle.
func drawHatchPattern(pdf *fpdf.Fpdf, x, y, w, h float64) {
	pdf.SetDrawColor(200, 0, 0)
	pdf.SetLineWidth(0.15)

	spacing := 2.0
	for d := spacing; d < w+h; d += spacing {
		x1 := x + math.Max(0, d-h)
		y1 := y + math.Min(h, d)
		x2 := x + math.Min(w, d)
		y2 := y + math.Max(0, d-w)
		pdf.Line(x1, y1, x2, y2)
	}
}

// drawDimensionAnnotations adds width and height labels outside the plate.
func drawDimensionAnnotations(pdf *fpdf.Fpdf, params model.Params, c plateCanvas) {
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(80, 80, 80)

	widthLabel := fmt.Sprintf("%d mm", params.PlateWidth)
	wLabelW := pdf.GetStringWidth(widthLabel)
	pdf.SetXY(c.offsetX+(c.width-wLabelW)/2, c.offsetY+c.height+1)
	pdf.CellFormat(wLabelW, 4, widthLabel, "", 0, "C", false, 0, "")

	heightLabel := fmt.Sprintf("%d mm", params.PlateHeight)
	pdf.TransformBegin()
	pdf.TransformRotate(90, c.offsetX-3, c.offsetY+c.height/2)
	hLabelW := pdf.GetStringWidth(heightLabel)
	pdf.SetXY(c.offsetX-3-hLabelW/2, c.offsetY+c.height/2-2)
	pdf.CellFormat(hLabelW, 4, heightLabel, "", 0, "C", false, 0, "")
	pdf.TransformEnd()

	pdf.SetTextColor(0, 0, 0)
}

// drawItemsLegend lists the plate's items in cutting order.
func drawItemsLegend(pdf *fpdf.Fpdf, plate model.PlateSolution, startY float64) {
	placed := plate.Placements()
	if len(placed) == 0 {
		return
	}

	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(marginLeft, startY)
	pdf.CellFormat(30, 4, "Cutting order:", "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	xPos := marginLeft + 32
	maxX := pageWidth - marginRight

	for _, p := range placed {
		label := fmt.Sprintf("#%d (%dx%d)", p.ItemID, p.Rect.Width(), p.Rect.Height())
		if p.Rotated {
			label += " R"
		}
		labelW := pdf.GetStringWidth(label) + 2
		if xPos+labelW > maxX {
			startY += 4
			xPos = marginLeft
			if startY > pageHeight-marginBottom {
				return
			}
		}
		pdf.SetXY(xPos, startY)
		pdf.CellFormat(labelW, 4, label, "", 0, "L", false, 0, "")
		xPos += labelW + 2
	}
}

// renderSummaryPage draws the final page with run statistics and the
// machine geometry.
func renderSummaryPage(pdf *fpdf.Fpdf, problem *model.Problem, params model.Params, sol *model.Solution) {
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetXY(marginLeft, marginTop)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 10, "Packing Summary", "", 0, "L", false, 0, "")

	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.5)
	pdf.Line(marginLeft, marginTop+12, pageWidth-marginRight, marginTop+12)

	y := marginTop + 18

	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, "Overall Statistics", "", 0, "L", false, 0, "")
	y += 9

	placed := sol.ItemCount()
	summaryItems := []struct {
		label string
		value string
	}{
		{"Plates Used", fmt.Sprintf("%d", len(sol.Plates))},
		{"Efficiency", fmt.Sprintf("%.1f%%", sol.Efficiency())},
		{"Items Placed", fmt.Sprintf("%d", placed)},
		{"Items Not Placed", fmt.Sprintf("%d", len(sol.Sequence)-sol.Start-placed)},
		{"Defects", fmt.Sprintf("%d", countDefects(problem))},
	}

	pdf.SetFont("Helvetica", "", 10)
	for _, item := range summaryItems {
		pdf.SetXY(marginLeft+5, y)
		pdf.CellFormat(60, 6, item.label+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(40, 6, item.value, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		y += 7
	}

	y += 5

	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, "Plate Breakdown", "", 0, "L", false, 0, "")
	y += 9

	colWidths := []float64{20, 35, 35, 35, 40, 50}
	headers := []string{"Plate", "Cuts", "Items", "Used Width", "Efficiency", "Used Area"}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	xPos := marginLeft
	for i, header := range headers {
		pdf.SetXY(xPos, y)
		pdf.CellFormat(colWidths[i], 6, header, "1", 0, "C", true, 0, "")
		xPos += colWidths[i]
	}
	y += 6

	plateArea := float64(params.PlateWidth) * float64(params.PlateHeight)
	pdf.SetFont("Helvetica", "", 9)
	for i, plate := range sol.Plates {
		if y > pageHeight-marginBottom-40 {
			pdf.AddPage()
			y = marginTop
		}
		xPos = marginLeft
		rowData := []string{
			fmt.Sprintf("%d", plate.Index),
			fmt.Sprintf("%d", len(plate.Cuts)),
			fmt.Sprintf("%d", plate.Count),
			fmt.Sprintf("%d mm", plate.Rect.MaxX),
			fmt.Sprintf("%.1f%%", float64(plate.UsedArea())/plateArea*100),
			fmt.Sprintf("%d mm²", plate.UsedArea()),
		}

		if i%2 == 0 {
			pdf.SetFillColor(245, 245, 245)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}
		for j, cell := range rowData {
			pdf.SetXY(xPos, y)
			pdf.CellFormat(colWidths[j], 6, cell, "1", 0, "C", true, 0, "")
			xPos += colWidths[j]
		}
		y += 6
	}

	y += 8
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, "Machine Geometry", "", 0, "L", false, 0, "")
	y += 9

	geometry := []struct {
		label string
		value string
	}{
		{"Plate", fmt.Sprintf("%d x %d mm", params.PlateWidth, params.PlateHeight)},
		{"Cut Width", fmt.Sprintf("%d - %d mm", params.MinXX, params.MaxXX)},
		{"Min Row Height", fmt.Sprintf("%d mm", params.MinYY)},
		{"Min Waste", fmt.Sprintf("%d mm", params.MinWaste)},
	}

	pdf.SetFont("Helvetica", "", 9)
	for _, item := range geometry {
		pdf.SetXY(marginLeft+5, y)
		pdf.CellFormat(50, 5, item.label+":", "", 0, "L", false, 0, "")
		pdf.CellFormat(30, 5, item.value, "", 0, "L", false, 0, "")
		y += 5
	}

	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.SetXY(marginLeft, pageHeight-marginBottom)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 4, "Generated by platecut - guillotine plate packer", "", 0, "C", false, 0, "")
}

// labelFontSize returns an appropriate font size based on the rectangle dimensions.
func labelFontSize(w, h float64) float64 {
	minDim := math.Min(w, h)
	switch {
	case minDim > 40:
		return 8
	case minDim > 20:
		return 7
	default:
		return 6
	}
}

func countDefects(problem *model.Problem) int {
	total := 0
	for _, ds := range problem.Defects {
		total += len(ds)
	}
	return total
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
