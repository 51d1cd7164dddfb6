package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/piwi3910/platecut/internal/model"
)

// Node types of the solution CSV. Non-negative types are item ids.
const (
	NodeWaste    = -1
	NodeBranch   = -2
	NodeResidual = -3
)

// SolutionHeader is the header row of the solution CSV.
var SolutionHeader = []string{"PLATE_ID", "NODE_ID", "X", "Y", "WIDTH", "HEIGHT", "TYPE", "CUT", "PARENT"}

// Node is one node of the cutting tree of a plate. Level 0 is the plate,
// level 1 the vertical cuts, level 2 the rows, level 3 the pieces of a row
// and level 4 an item with the waste strip above or below it.
type Node struct {
	Plate  int
	ID     int
	Rect   model.Rect
	Type   int
	Cut    int
	Parent int // -1 for the plate node
}

type treeBuilder struct {
	params model.Params
	nodes  []Node
	plate  int
}

func (b *treeBuilder) add(r model.Rect, typ, level, parent int) int {
	id := len(b.nodes)
	b.nodes = append(b.nodes, Node{Plate: b.plate, ID: id, Rect: r, Type: typ, Cut: level, Parent: parent})
	return id
}

// addItem adds an item filling its row slot, or a branch splitting the
// slot into the item and a waste strip.
func (b *treeBuilder) addItem(row model.Rect, it model.ItemPlacement, parent int) {
	ir := it.Rect
	if ir.MinY == row.MinY && ir.MaxY == row.MaxY {
		b.add(ir, it.ItemID, 3, parent)
		return
	}
	slot := model.Rect{MinX: ir.MinX, MinY: row.MinY, MaxX: ir.MaxX, MaxY: row.MaxY}
	branch := b.add(slot, NodeBranch, 3, parent)
	if ir.MinY > row.MinY {
		b.add(model.Rect{MinX: ir.MinX, MinY: row.MinY, MaxX: ir.MaxX, MaxY: ir.MinY}, NodeWaste, 4, branch)
		b.add(ir, it.ItemID, 4, branch)
		return
	}
	b.add(ir, it.ItemID, 4, branch)
	b.add(model.Rect{MinX: ir.MinX, MinY: ir.MaxY, MaxX: ir.MaxX, MaxY: row.MaxY}, NodeWaste, 4, branch)
}

func (b *treeBuilder) addRow(row model.RowSolution, parent int) {
	if len(row.Items) == 0 {
		b.add(row.Rect, NodeWaste, 2, parent)
		return
	}
	id := b.add(row.Rect, NodeBranch, 2, parent)
	x := row.Rect.MinX
	for _, it := range row.Items {
		if it.Rect.MinX > x {
			b.add(model.Rect{MinX: x, MinY: row.Rect.MinY, MaxX: it.Rect.MinX, MaxY: row.Rect.MaxY}, NodeWaste, 3, id)
		}
		b.addItem(row.Rect, it, id)
		x = it.Rect.MaxX
	}
	if x < row.Rect.MaxX {
		b.add(model.Rect{MinX: x, MinY: row.Rect.MinY, MaxX: row.Rect.MaxX, MaxY: row.Rect.MaxY}, NodeWaste, 3, id)
	}
}

func (b *treeBuilder) addPlate(p model.PlateSolution) {
	b.plate = p.Index
	root := b.add(model.NewRect(0, 0, b.params.PlateWidth, b.params.PlateHeight), NodeBranch, 0, -1)
	for _, cut := range p.Cuts {
		if len(cut.Rows) == 0 {
			b.add(cut.Rect, NodeWaste, 1, root)
			continue
		}
		id := b.add(cut.Rect, NodeBranch, 1, root)
		for _, row := range cut.Rows {
			b.addRow(row, id)
		}
	}
	if p.Rect.MaxX < b.params.PlateWidth {
		b.add(model.Rect{MinX: p.Rect.MaxX, MaxX: b.params.PlateWidth, MaxY: b.params.PlateHeight}, NodeResidual, 1, root)
	}
}

// SolutionNodes flattens a solution into cutting tree nodes, plate by plate
// in depth-first order. Node ids are unique across the solution.
func SolutionNodes(sol *model.Solution, params model.Params) []Node {
	b := &treeBuilder{params: params}
	for _, p := range sol.Plates {
		b.addPlate(p)
	}
	return b.nodes
}

// WriteSolutionCSV writes the cutting tree of sol as semicolon separated
// values.
func WriteSolutionCSV(w io.Writer, sol *model.Solution, params model.Params) error {
	cw := csv.NewWriter(w)
	cw.Comma = ';'
	if err := cw.Write(SolutionHeader); err != nil {
		return err
	}
	for _, n := range SolutionNodes(sol, params) {
		parent := ""
		if n.Parent >= 0 {
			parent = strconv.Itoa(n.Parent)
		}
		record := []string{
			strconv.Itoa(n.Plate),
			strconv.Itoa(n.ID),
			strconv.Itoa(n.Rect.MinX),
			strconv.Itoa(n.Rect.MinY),
			strconv.Itoa(n.Rect.Width()),
			strconv.Itoa(n.Rect.Height()),
			strconv.Itoa(n.Type),
			strconv.Itoa(n.Cut),
			parent,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportCSV writes the solution CSV to path.
func ExportCSV(path string, sol *model.Solution, params model.Params) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := WriteSolutionCSV(f, sol, params); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
