package export

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-pdf/fpdf"
	"github.com/piwi3910/platecut/internal/model"
	qrcode "github.com/skip2/go-qrcode"
)

// LabelInfo holds the data encoded into each item label's QR code.
type LabelInfo struct {
	ItemID  int  `json:"item"`
	Stack   int  `json:"stack"`
	Width   int  `json:"width_mm"`
	Height  int  `json:"height_mm"`
	Plate   int  `json:"plate"`
	Cut     int  `json:"cut"`
	Row     int  `json:"row"`
	Rotated bool `json:"rotated"`
	X       int  `json:"x_mm"`
	Y       int  `json:"y_mm"`
	Order   int  `json:"order"` // position in the cutting sequence
}

// Label layout constants for Avery 5160-compatible labels (3 columns, 10 rows per page).
// Each label cell is approximately 66.7mm x 25.4mm on US Letter paper.
const (
	labelPageWidth  = 215.9 // US Letter width in mm
	labelPageHeight = 279.4 // US Letter height in mm
	labelMarginTop  = 12.7  // mm
	labelMarginLeft = 4.8   // mm
	labelWidth      = 66.7  // mm per label
	labelHeight     = 25.4  // mm per label
	labelCols       = 3
	labelRows       = 10
	labelsPerPage   = labelCols * labelRows
	qrSize          = 20.0 // QR code size in mm
	labelPadding    = 2.0  // mm internal padding
)

// ExportLabels generates a PDF of QR-coded labels for all placed items, in
// cutting order. Each label shows the item id, its size and position, and a
// QR code encoding the same data as JSON.
func ExportLabels(path string, problem *model.Problem, sol *model.Solution) error {
	if len(sol.Plates) == 0 {
		return fmt.Errorf("no plates to generate labels for")
	}

	labels := CollectLabelInfos(problem, sol)
	if len(labels) == 0 {
		return fmt.Errorf("no items placed to generate labels for")
	}

	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetAutoPageBreak(false, 0)

	for i, label := range labels {
		if i%labelsPerPage == 0 {
			pdf.AddPage()
		}

		posOnPage := i % labelsPerPage
		col := posOnPage % labelCols
		row := posOnPage / labelCols

		x := labelMarginLeft + float64(col)*labelWidth
		y := labelMarginTop + float64(row)*labelHeight

		if err := renderLabel(pdf, x, y, label); err != nil {
			return fmt.Errorf("failed to render label for item %d: %w", label.ItemID, err)
		}
	}

	return pdf.OutputFileAndClose(path)
}

// renderLabel draws a single label at the given position.
func renderLabel(pdf *fpdf.Fpdf, x, y float64, info LabelInfo) error {
	// Light border as cutting guide
	pdf.SetDrawColor(200, 200, 200)
	pdf.SetLineWidth(0.1)
	pdf.Rect(x, y, labelWidth, labelHeight, "D")

	qrData, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal label info: %w", err)
	}

	qrPNG, err := qrcode.Encode(string(qrData), qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("failed to generate QR code: %w", err)
	}

	// Item ids are unique, so they name the images.
	imgName := fmt.Sprintf("qr_item_%d", info.ItemID)
	pdf.RegisterImageOptionsReader(imgName, fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(qrPNG))

	qrX := x + labelWidth - qrSize - labelPadding
	qrY := y + (labelHeight-qrSize)/2
	pdf.ImageOptions(imgName, qrX, qrY, qrSize, qrSize, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")

	textX := x + labelPadding
	textW := labelWidth - qrSize - 3*labelPadding

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(textX, y+labelPadding)
	pdf.CellFormat(textW, 4.5, fmt.Sprintf("Item %d", info.ItemID), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	pdf.SetXY(textX, y+labelPadding+5)
	dims := fmt.Sprintf("%d x %d mm  (stack %d)", info.Width, info.Height, info.Stack)
	pdf.CellFormat(textW, 3.5, dims, "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 6)
	pdf.SetTextColor(100, 100, 100)
	pdf.SetXY(textX, y+labelPadding+9)
	where := fmt.Sprintf("Plate %d cut %d row %d @ (%d, %d)", info.Plate, info.Cut, info.Row, info.X, info.Y)
	pdf.CellFormat(textW, 3, where, "", 1, "L", false, 0, "")

	pdf.SetXY(textX, y+labelPadding+12.5)
	pdf.CellFormat(textW, 3, fmt.Sprintf("#%d in sequence", info.Order+1), "", 1, "L", false, 0, "")

	if info.Rotated {
		pdf.SetXY(textX, y+labelPadding+16)
		pdf.SetFont("Helvetica", "I", 6)
		pdf.SetTextColor(150, 100, 0)
		pdf.CellFormat(textW, 3, "Rotated 90\xb0", "", 0, "L", false, 0, "")
	}

	pdf.SetTextColor(0, 0, 0)
	return nil
}

// CollectLabelInfos lists the label data of every placed item in cutting
// order.
func CollectLabelInfos(problem *model.Problem, sol *model.Solution) []LabelInfo {
	var labels []LabelInfo
	order := sol.Start
	for _, plate := range sol.Plates {
		for ci, cut := range plate.Cuts {
			for ri, row := range cut.Rows {
				for _, p := range row.Items {
					info := LabelInfo{
						ItemID:  p.ItemID,
						Stack:   p.ItemID,
						Width:   p.Rect.Width(),
						Height:  p.Rect.Height(),
						Plate:   plate.Index,
						Cut:     ci,
						Row:     ri,
						Rotated: p.Rotated,
						X:       p.Rect.MinX,
						Y:       p.Rect.MinY,
						Order:   order,
					}
					if it, ok := problem.Item(p.ItemID); ok {
						info.Stack = it.Stack
					}
					labels = append(labels, info)
					order++
				}
			}
		}
	}
	return labels
}
