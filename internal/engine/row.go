package engine

import (
	"log/slog"

	"github.com/piwi3910/platecut/internal/model"
)

// rowDesc summarizes the best layout of consecutive items in a row.
type rowDesc struct {
	count    int
	usedX    int  // right edge of the last item, region MinX when empty
	usedY    int  // height of the tallest item
	tightY   bool // every shorter item leaves at least MinWaste above it
	flushTop bool // some item had to sit against the top edge
}

// placedItem is one item of the row being built.
type placedItem struct {
	offset  int // sequence offset
	x, w, h int
	rotated bool
	top     bool
}

const (
	cellStart uint8 = iota
	cellGap
	cellItem
)

// rowCell is one state of the exact row program: count items end at this
// abscissa, reached from prev.
type rowCell struct {
	count int32 // -1 when unreachable
	prev  int32
	kind  uint8
	rot   bool
	top   bool
}

// rowSolver packs consecutive sequence items left to right in a row region.
// It is the only layer that reads item sizes, so it also tracks the
// sequence horizon.
type rowSolver struct {
	params  model.Params
	mode    model.Mode
	items   []model.Item
	horizon int
	log     *slog.Logger

	defects []model.Rect
	placed  []placedItem
	cells   []rowCell
}

func newRowSolver(params model.Params, mode model.Mode, items []model.Item, log *slog.Logger) *rowSolver {
	return &rowSolver{
		params:  params,
		mode:    mode,
		items:   items,
		horizon: -1,
		log:     log,
	}
}

// item returns the item at sequence offset k and records the read.
func (r *rowSolver) item(k int) (model.Item, bool) {
	if k >= len(r.items) {
		return model.Item{}, false
	}
	if k > r.horizon {
		r.horizon = k
	}
	return r.items[k], true
}

// orient returns the footprint of an item. Rotated puts the long side
// along X.
func orient(it model.Item, rotated bool) (w, h int) {
	if rotated {
		return it.Height, it.Width
	}
	return it.Width, it.Height
}

// count describes the best row that starts with the item at offset start.
// The region height is exact; its MaxX is an upper bound.
func (r *rowSolver) count(start int, region model.Rect, defects []model.Rect) rowDesc {
	r.filter(region, defects)
	return r.solve(start, region)
}

// materialize builds the row described by count for the same arguments.
func (r *rowSolver) materialize(start int, region model.Rect, defects []model.Rect) (model.RowSolution, rowDesc) {
	r.filter(region, defects)
	d := r.solve(start, region)

	row := model.RowSolution{Rect: region}
	for _, p := range r.placed {
		y := region.MinY
		if p.top {
			y = region.MaxY - p.h
		}
		row.Items = append(row.Items, model.ItemPlacement{
			ItemID:  r.items[p.offset].ID,
			Rect:    model.NewRect(p.x, y, p.w, p.h),
			Rotated: p.rotated,
		})
	}
	return row, d
}

func (r *rowSolver) solve(start int, region model.Rect) rowDesc {
	switch r.mode {
	case model.ModeExact:
		return r.exact(start, region)
	case model.ModeDiagnose:
		a := r.greedy(start, region)
		e := r.exact(start, region)
		if a.count != e.count || a.usedX != e.usedX {
			r.log.Warn("row packing diverged",
				"start", start, "region", region.String(),
				"approx_count", a.count, "exact_count", e.count,
				"approx_used_x", a.usedX, "exact_used_x", e.usedX)
		}
		return e
	default:
		return r.greedy(start, region)
	}
}

func (r *rowSolver) filter(region model.Rect, defects []model.Rect) {
	r.defects = r.defects[:0]
	for _, d := range defects {
		if d.Intersects(region) {
			r.defects = append(r.defects, d)
		}
	}
}

// fitsVertically reports whether an item of height h leaves either no strip
// or a valid waste strip in a row of height rowH.
func (r *rowSolver) fitsVertically(h, rowH int) bool {
	return h == rowH || (h < rowH && rowH-h >= r.params.MinWaste)
}

// lineOK reports whether a vertical slice line may be cut at x.
func (r *rowSolver) lineOK(x int, region model.Rect) bool {
	if x == region.MinX {
		return true
	}
	for _, d := range r.defects {
		if d.CrossesVertical(x, region.MinY, region.MaxY) {
			return false
		}
	}
	return true
}

// blockedBy returns the largest MaxX of the defects overlapping rect, or -1.
func (r *rowSolver) blockedBy(rect model.Rect) int {
	m := -1
	for _, d := range r.defects {
		if d.Intersects(rect) && d.MaxX > m {
			m = d.MaxX
		}
	}
	return m
}

// place tries an item flush to the row bottom, then flush to the top. When
// both are blocked, next is the smallest abscissa that clears one of them.
func (r *rowSolver) place(x, w, h int, region model.Rect) (top, ok bool, next int) {
	bb := r.blockedBy(model.NewRect(x, region.MinY, w, h))
	if bb < 0 {
		return false, true, 0
	}
	if h == region.Height() {
		return false, false, bb
	}
	tb := r.blockedBy(model.NewRect(x, region.MaxY-h, w, h))
	if tb < 0 {
		return true, true, 0
	}
	return false, false, min(bb, tb)
}

// leftmost finds the smallest x >= cur where an item of size w x h can be
// placed, honouring the waste gap and defect rules.
func (r *rowSolver) leftmost(cur, w, h int, region model.Rect) (x int, top, ok bool) {
	mw := r.params.MinWaste
	x = cur
	for x+w <= region.MaxX {
		if x > cur && x < cur+mw {
			x = cur + mw
			continue
		}
		need := x
		for _, d := range r.defects {
			if x != region.MinX && d.CrossesVertical(x, region.MinY, region.MaxY) {
				need = max(need, d.MaxX)
			}
			if d.CrossesVertical(x+w, region.MinY, region.MaxY) {
				need = max(need, d.MaxX-w)
			}
		}
		if need > x {
			x = need
			continue
		}
		top, fits, next := r.place(x, w, h, region)
		if fits {
			return x, top, true
		}
		x = next
	}
	return 0, false, false
}

// greedy places each next item at its leftmost position, choosing the
// orientation that ends first. It stops at the first item that does not fit.
func (r *rowSolver) greedy(start int, region model.Rect) rowDesc {
	r.placed = r.placed[:0]
	cur := region.MinX
	for k := start; ; k++ {
		it, ok := r.item(k)
		if !ok {
			break
		}
		best := placedItem{x: -1}
		for _, rot := range [...]bool{false, true} {
			if rot && it.Width == it.Height {
				continue
			}
			w, h := orient(it, rot)
			if !r.fitsVertically(h, region.Height()) {
				continue
			}
			x, top, fits := r.leftmost(cur, w, h, region)
			if !fits {
				continue
			}
			if best.x < 0 || x+w < best.x+best.w {
				best = placedItem{offset: k, x: x, w: w, h: h, rotated: rot, top: top}
			}
		}
		if best.x < 0 {
			break
		}
		r.placed = append(r.placed, best)
		cur = best.x + best.w
	}
	return r.describe(region)
}

// exact runs a dynamic program over every abscissa of the region and keeps
// the layout with the most items, ending as far left as possible.
func (r *rowSolver) exact(start int, region model.Rect) rowDesc {
	width := region.Width()
	x0 := region.MinX
	mw := r.params.MinWaste

	if cap(r.cells) < width+1 {
		r.cells = make([]rowCell, width+1)
	}
	cells := r.cells[:width+1]
	for i := range cells {
		cells[i] = rowCell{count: -1, prev: -1}
	}
	cells[0] = rowCell{count: 0, prev: -1, kind: cellStart}

	gapBest, gapFrom := int32(-1), int32(-1)
	for i := 0; i <= width; i++ {
		if p := i - mw; p >= 0 && cells[p].count > gapBest {
			gapBest, gapFrom = cells[p].count, int32(p)
		}
		if gapBest > cells[i].count && r.lineOK(x0+i, region) {
			cells[i] = rowCell{count: gapBest, prev: gapFrom, kind: cellGap}
		}

		c := cells[i]
		if c.count < 0 {
			continue
		}
		it, ok := r.item(start + int(c.count))
		if !ok {
			continue
		}
		for _, rot := range [...]bool{false, true} {
			if rot && it.Width == it.Height {
				continue
			}
			w, h := orient(it, rot)
			j := i + w
			if j > width || !r.fitsVertically(h, region.Height()) || c.count+1 <= cells[j].count {
				continue
			}
			if !r.lineOK(x0+j, region) {
				continue
			}
			top, fits, _ := r.place(x0+i, w, h, region)
			if !fits {
				continue
			}
			cells[j] = rowCell{count: c.count + 1, prev: int32(i), kind: cellItem, rot: rot, top: top}
		}
	}

	best := 0
	for i := 1; i <= width; i++ {
		if cells[i].count > cells[best].count {
			best = i
		}
	}

	r.placed = r.placed[:0]
	for i := best; i > 0; i = int(cells[i].prev) {
		c := cells[i]
		if c.kind != cellItem {
			continue
		}
		k := start + int(c.count) - 1
		w, h := orient(r.items[k], c.rot)
		r.placed = append(r.placed, placedItem{offset: k, x: x0 + int(c.prev), w: w, h: h, rotated: c.rot, top: c.top})
	}
	for i, j := 0, len(r.placed)-1; i < j; i, j = i+1, j-1 {
		r.placed[i], r.placed[j] = r.placed[j], r.placed[i]
	}
	return r.describe(region)
}

func (r *rowSolver) describe(region model.Rect) rowDesc {
	d := rowDesc{count: len(r.placed), usedX: region.MinX, tightY: true}
	for _, p := range r.placed {
		d.usedX = p.x + p.w
		d.usedY = max(d.usedY, p.h)
		if p.top {
			d.flushTop = true
		}
	}
	for _, p := range r.placed {
		if gap := d.usedY - p.h; gap > 0 && gap < r.params.MinWaste {
			d.tightY = false
		}
	}
	return d
}
