package engine

import (
	"log/slog"

	"github.com/piwi3910/platecut/internal/model"
)

// cutDesc summarizes the best stack of rows in a cut.
type cutDesc struct {
	count  int
	usedX  int  // right edge of the widest row, band MinX when empty
	tightX bool // every narrower row ends at usedX or at least MinWaste before it
}

// cutNode records one row in the arena: the row ends at coord and the rows
// below it hold value items in total.
type cutNode struct {
	coord  int
	value  int
	parent int
	usedX  int
}

type triedRow struct {
	end int
	d   rowDesc
}

// cutSolver stacks rows bottom to top inside a vertical band of the plate
// using a Pareto front over the row boundaries.
type cutSolver struct {
	params model.Params
	mode   model.Mode
	row    *rowSolver
	trace  bool
	log    *slog.Logger

	front   Front
	nodes   []cutNode
	defects []model.Rect
	tried   []triedRow
}

func newCutSolver(params model.Params, mode model.Mode, row *rowSolver, trace bool, log *slog.Logger) *cutSolver {
	return &cutSolver{
		params: params,
		mode:   mode,
		row:    row,
		trace:  trace,
		log:    log,
	}
}

// count describes the best cut for band, starting with the item at offset
// start. The band MaxX is an upper bound; its full height is always used.
func (c *cutSolver) count(start int, band model.Rect, defects []model.Rect) cutDesc {
	c.filter(band, defects)
	return c.describe(c.solve(start, band), band)
}

// materialize builds the cut described by count for the same arguments. Rows
// keep the band width; the caller trims them to the final cut position.
func (c *cutSolver) materialize(start int, band model.Rect, defects []model.Rect) (model.CutSolution, cutDesc) {
	c.filter(band, defects)
	last := c.solve(start, band)
	d := c.describe(last, band)

	var path []int
	for n := last.Prev; c.nodes[n].parent >= 0; n = c.nodes[n].parent {
		path = append(path, n)
	}

	cut := model.CutSolution{Rect: band}
	for i := len(path) - 1; i >= 0; i-- {
		node := c.nodes[path[i]]
		parent := c.nodes[node.parent]
		region := model.Rect{MinX: band.MinX, MinY: parent.coord, MaxX: band.MaxX, MaxY: node.coord}
		row, rd := c.row.materialize(start+parent.value, region, c.defects)
		invariant(rd.count == node.value-parent.value, "cut",
			"row %v holds %d items, expected %d", region, rd.count, node.value-parent.value)
		cut.Rows = append(cut.Rows, row)
	}
	if last.Coord < band.MaxY {
		cut.Rows = append(cut.Rows, model.RowSolution{
			Rect: model.Rect{MinX: band.MinX, MinY: last.Coord, MaxX: band.MaxX, MaxY: band.MaxY},
		})
	}
	return cut, d
}

func (c *cutSolver) solve(start int, band model.Rect) Element {
	switch c.mode {
	case model.ModeExact:
		return c.search(start, band, model.ModeExact)
	case model.ModeDiagnose:
		a := c.describe(c.search(start, band, model.ModeApproximate), band)
		last := c.search(start, band, model.ModeExact)
		if e := c.describe(last, band); e.count != a.count || e.usedX != a.usedX {
			c.log.Warn("cut packing diverged",
				"start", start, "band", band.String(),
				"approx_count", a.count, "exact_count", e.count,
				"approx_used_x", a.usedX, "exact_used_x", e.usedX)
		}
		return last
	default:
		return c.search(start, band, model.ModeApproximate)
	}
}

func (c *cutSolver) filter(band model.Rect, defects []model.Rect) {
	c.defects = c.defects[:0]
	for _, d := range defects {
		if d.Intersects(band) {
			c.defects = append(c.defects, d)
		}
	}
}

func (c *cutSolver) search(start int, band model.Rect, mode model.Mode) Element {
	c.front.Reset()
	c.nodes = append(c.nodes[:0], cutNode{parent: -1, usedX: band.MinX})
	c.front.Insert(Element{Coord: band.MinY})

	for i := 0; i < c.front.Len(); i++ {
		e := c.front.At(i)
		if e.Coord >= band.MaxY {
			continue
		}
		if mode == model.ModeExact {
			c.expandExact(start, band, e)
		} else {
			c.expandApprox(start, band, e)
		}
	}

	if c.trace {
		c.front.Check("cut")
		c.log.Debug("cut front", "start", start, "band", band.String(), "mode", mode.String(), "size", c.front.Len())
	}
	last, _ := c.front.Last()
	return last
}

// expandApprox tries row heights from the tallest admissible one downwards.
// Each step drops below the tallest item of the previous row; rows that do
// not need their full height are also tried snapped to their content.
func (c *cutSolver) expandApprox(start int, band model.Rect, e Element) {
	c.tried = c.tried[:0]
	y := e.Coord
	minYY := c.params.MinYY

	end := c.highestEnd(band.MaxY, band)
	for end >= y+minYY {
		d := c.try(start, band, e, end)
		if d.count == 0 {
			break
		}
		if !d.flushTop {
			snap := y + d.usedY
			if !d.tightY {
				snap += c.params.MinWaste
			}
			if s := c.lowestEnd(max(snap, y+minYY), end-1, band); s >= 0 {
				c.try(start, band, e, s)
			}
		}
		end = c.highestEnd(min(y+d.usedY-1, end-1), band)
	}

	for _, df := range c.defects {
		for _, b := range [...]int{df.MinY, df.MaxY} {
			if b >= y+minYY && c.validEnd(b, band) {
				c.try(start, band, e, b)
			}
		}
	}
}

func (c *cutSolver) expandExact(start int, band model.Rect, e Element) {
	for end := e.Coord + c.params.MinYY; end <= band.MaxY; end++ {
		if c.validEnd(end, band) {
			c.evaluate(start, band, e, end)
		}
	}
}

// try evaluates a row once per front element.
func (c *cutSolver) try(start int, band model.Rect, e Element, end int) rowDesc {
	for _, t := range c.tried {
		if t.end == end {
			return t.d
		}
	}
	d := c.evaluate(start, band, e, end)
	c.tried = append(c.tried, triedRow{end: end, d: d})
	return d
}

// evaluate packs the row [e.Coord, end] and offers the result to the front.
func (c *cutSolver) evaluate(start int, band model.Rect, e Element, end int) rowDesc {
	region := model.Rect{MinX: band.MinX, MinY: e.Coord, MaxX: band.MaxX, MaxY: end}
	d := c.row.count(start+e.Value, region, c.defects)
	if d.count == 0 {
		return d
	}
	v := e.Value + d.count
	if c.front.Dominated(end, v) {
		return d
	}
	invariant(end > e.Coord, "cut", "row end %d does not advance past %d", end, e.Coord)
	c.nodes = append(c.nodes, cutNode{coord: end, value: v, parent: e.Prev, usedX: d.usedX})
	c.front.Insert(Element{Coord: end, Value: v, Prev: len(c.nodes) - 1})
	return d
}

// validEnd reports whether a row may end at y: the rest of the band is
// empty or tall enough for a waste row, and the line crosses no defect.
func (c *cutSolver) validEnd(y int, band model.Rect) bool {
	if y == band.MaxY {
		return true
	}
	if band.MaxY-y < c.params.MinYY {
		return false
	}
	_, crossed := c.crossing(y, band)
	return !crossed
}

func (c *cutSolver) crossing(y int, band model.Rect) (model.Rect, bool) {
	for _, d := range c.defects {
		if d.CrossesHorizontal(y, band.MinX, band.MaxX) {
			return d, true
		}
	}
	return model.Rect{}, false
}

// highestEnd returns the largest valid row end <= y, or -1.
func (c *cutSolver) highestEnd(y int, band model.Rect) int {
	for y >= band.MinY {
		if y == band.MaxY {
			return y
		}
		if band.MaxY-y < c.params.MinYY {
			y = band.MaxY - c.params.MinYY
			continue
		}
		if d, crossed := c.crossing(y, band); crossed {
			y = d.MinY
			continue
		}
		return y
	}
	return -1
}

// lowestEnd returns the smallest valid row end in [y, limit], or -1.
func (c *cutSolver) lowestEnd(y, limit int, band model.Rect) int {
	for y <= limit {
		if y == band.MaxY {
			return y
		}
		if band.MaxY-y < c.params.MinYY {
			y = band.MaxY
			continue
		}
		if d, crossed := c.crossing(y, band); crossed {
			y = d.MaxY
			continue
		}
		return y
	}
	return -1
}

// describe walks the rows leading to last.
func (c *cutSolver) describe(last Element, band model.Rect) cutDesc {
	d := cutDesc{count: last.Value, usedX: band.MinX, tightX: true}
	for n := last.Prev; c.nodes[n].parent >= 0; n = c.nodes[n].parent {
		d.usedX = max(d.usedX, c.nodes[n].usedX)
	}
	for n := last.Prev; c.nodes[n].parent >= 0; n = c.nodes[n].parent {
		if gap := d.usedX - c.nodes[n].usedX; gap > 0 && gap < c.params.MinWaste {
			d.tightX = false
		}
	}
	return d
}
