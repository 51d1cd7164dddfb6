package engine

import (
	"log/slog"
	"slices"

	"github.com/piwi3910/platecut/internal/model"
)

// plateNode records one item-carrying cut in the arena. The cut spans
// [start, coord]; when start lies past the parent's coord an empty waste
// cut fills the gap. bound is the right edge the cut was evaluated with.
type plateNode struct {
	coord  int
	value  int
	parent int
	start  int
	bound  int
}

type cutKey struct {
	start int
	x0    int
	bound int
}

// plateSolver lays out 1st-level cuts left to right on one plate using a
// Pareto front over the cut boundaries.
type plateSolver struct {
	params model.Params
	mode   model.Mode
	cut    *cutSolver
	trace  bool
	log    *slog.Logger

	front   Front
	nodes   []plateNode
	defects []model.Rect
	cache   map[cutKey]cutDesc
}

func newPlateSolver(params model.Params, mode model.Mode, cut *cutSolver, trace bool, log *slog.Logger) *plateSolver {
	return &plateSolver{
		params: params,
		mode:   mode,
		cut:    cut,
		trace:  trace,
		log:    log,
		cache:  make(map[cutKey]cutDesc),
	}
}

// reset prepares the solver for a new plate.
func (p *plateSolver) reset(defects []model.Rect) {
	p.defects = defects
	clear(p.cache)
}

// pack fills the plate with the items starting at offset start. remaining
// is the number of items left in the sequence; a plate that takes all of
// them stops after its last item cut instead of running to the plate edge.
func (p *plateSolver) pack(start, remaining int) model.PlateSolution {
	last := p.solve(start)
	ps := model.PlateSolution{Count: last.Value}
	if last.Value == 0 {
		return ps
	}

	var path []int
	for n := last.Prev; p.nodes[n].parent >= 0; n = p.nodes[n].parent {
		path = append(path, n)
	}
	nodes := make([]plateNode, len(path))
	for i, n := range path {
		nodes[len(path)-1-i] = p.nodes[n]
	}
	parents := make([]plateNode, len(path))
	for i, n := range path {
		parents[len(path)-1-i] = p.nodes[p.nodes[n].parent]
	}

	for i, node := range nodes {
		parent := parents[i]
		if node.start > parent.coord {
			ps.Cuts = append(ps.Cuts, p.wasteCut(parent.coord, node.start))
		}
		cut, d := p.cut.materialize(start+parent.value, p.band(node.start, node.bound), p.defects)
		invariant(d.count == node.value-parent.value, "plate",
			"cut at %d holds %d items, expected %d", node.start, d.count, node.value-parent.value)
		invariant(d.usedX <= node.coord, "plate",
			"cut at %d uses %d beyond its end %d", node.start, d.usedX, node.coord)
		ps.Cuts = append(ps.Cuts, trimCut(cut, node.coord))
	}

	end := last.Coord
	if last.Value < remaining {
		for _, b := range p.wasteTiling(end) {
			ps.Cuts = append(ps.Cuts, p.wasteCut(end, b))
			end = b
		}
		invariant(end == p.params.PlateWidth, "plate", "waste cuts stop at %d", end)
	}
	ps.Rect = model.Rect{MaxX: end, MaxY: p.params.PlateHeight}
	return ps
}

func (p *plateSolver) solve(start int) Element {
	switch p.mode {
	case model.ModeExact:
		return p.search(start, model.ModeExact)
	case model.ModeDiagnose:
		a := p.search(start, model.ModeApproximate)
		last := p.search(start, model.ModeExact)
		if a.Value != last.Value || a.Coord != last.Coord {
			p.log.Warn("plate packing diverged",
				"start", start,
				"approx_count", a.Value, "exact_count", last.Value,
				"approx_end", a.Coord, "exact_end", last.Coord)
		}
		return last
	default:
		return p.search(start, model.ModeApproximate)
	}
}

func (p *plateSolver) search(start int, mode model.Mode) Element {
	p.front.Reset()
	p.nodes = append(p.nodes[:0], plateNode{parent: -1})
	p.front.Insert(Element{})

	for i := 0; i < p.front.Len(); i++ {
		e := p.front.At(i)
		if e.Coord >= p.params.PlateWidth {
			continue
		}
		if p.expandFrom(start, e, e.Coord, mode) {
			continue
		}
		// Nothing fits from here: skip ahead with an empty cut.
		for _, s := range p.wasteEnds(e.Coord, mode) {
			p.expandFrom(start, e, s, mode)
		}
	}

	if p.trace {
		p.front.Check("plate")
		p.log.Debug("plate front", "start", start, "mode", mode.String(), "size", p.front.Len())
	}
	last, _ := p.front.Last()
	return last
}

// expandFrom evaluates cuts whose left edge is s, following element e. It
// reports whether any of them holds an item.
func (p *plateSolver) expandFrom(start int, e Element, s int, mode model.Mode) bool {
	lo := s + p.params.MinXX
	hi := min(s+p.params.MaxXX, p.params.PlateWidth)
	if lo > hi {
		return false
	}

	packed := false
	if mode == model.ModeExact {
		for bound := hi; bound >= lo; bound-- {
			if d := p.cutCount(start+e.Value, s, bound); d.count > 0 {
				packed = true
				p.close(e, s, bound, d)
			}
		}
		return packed
	}

	bound := hi
	for bound >= lo {
		d := p.cutCount(start+e.Value, s, bound)
		if d.count == 0 {
			break
		}
		packed = true
		p.close(e, s, bound, d)
		bound = min(d.usedX-1, bound-1)
	}
	for _, df := range p.defects {
		for _, b := range [...]int{df.MinX, df.MaxX} {
			if b < lo || b > hi {
				continue
			}
			if d := p.cutCount(start+e.Value, s, b); d.count > 0 {
				packed = true
				p.close(e, s, b, d)
			}
		}
	}
	return packed
}

// close ends a cut at the smallest admissible position and offers it to
// the front.
func (p *plateSolver) close(e Element, s, bound int, d cutDesc) {
	var c int
	if d.tightX && d.usedX >= s+p.params.MinXX && p.validEnd(d.usedX) {
		c = d.usedX
	} else {
		c = p.lowestEnd(max(d.usedX+p.params.MinWaste, s+p.params.MinXX), bound)
	}
	if c < 0 {
		return
	}
	v := e.Value + d.count
	if p.front.Dominated(c, v) {
		return
	}
	invariant(c > e.Coord, "plate", "cut end %d does not advance past %d", c, e.Coord)
	p.nodes = append(p.nodes, plateNode{coord: c, value: v, parent: e.Prev, start: s, bound: bound})
	p.front.Insert(Element{Coord: c, Value: v, Prev: len(p.nodes) - 1})
}

func (p *plateSolver) cutCount(start, x0, bound int) cutDesc {
	key := cutKey{start: start, x0: x0, bound: bound}
	if d, ok := p.cache[key]; ok {
		return d
	}
	d := p.cut.count(start, p.band(x0, bound), p.defects)
	p.cache[key] = d
	return d
}

func (p *plateSolver) band(x0, x1 int) model.Rect {
	return model.Rect{MinX: x0, MaxX: x1, MaxY: p.params.PlateHeight}
}

func (p *plateSolver) wasteCut(x0, x1 int) model.CutSolution {
	return model.CutSolution{Rect: p.band(x0, x1)}
}

// trimCut moves the right edge of a cut and its rows to x.
func trimCut(cut model.CutSolution, x int) model.CutSolution {
	cut.Rect = cut.Rect.WithMaxX(x)
	for i := range cut.Rows {
		cut.Rows[i].Rect = cut.Rows[i].Rect.WithMaxX(x)
	}
	return cut
}

// lineOK reports whether a full-height cut line may run at x.
func (p *plateSolver) lineOK(x int) (model.Rect, bool) {
	for _, d := range p.defects {
		if d.CrossesVertical(x, 0, p.params.PlateHeight) {
			return d, false
		}
	}
	return model.Rect{}, true
}

// validEnd reports whether a cut may end at x and the plate still be
// completed with waste cuts.
func (p *plateSolver) validEnd(x int) bool {
	if x == p.params.PlateWidth {
		return true
	}
	if p.params.PlateWidth-x < p.params.MinXX {
		return false
	}
	if _, ok := p.lineOK(x); !ok {
		return false
	}
	return p.closable(x)
}

// lowestEnd returns the smallest valid cut end in [x, limit], or -1.
func (p *plateSolver) lowestEnd(x, limit int) int {
	for x <= limit {
		if x == p.params.PlateWidth {
			return x
		}
		if p.params.PlateWidth-x < p.params.MinXX {
			x = p.params.PlateWidth
			continue
		}
		if d, ok := p.lineOK(x); !ok {
			x = d.MaxX
			continue
		}
		if !p.closable(x) {
			x++
			continue
		}
		return x
	}
	return -1
}

// highestLine returns the largest admissible cut line in [lo, x], or -1.
func (p *plateSolver) highestLine(x, lo int) int {
	for x >= lo {
		if d, ok := p.lineOK(x); !ok {
			x = d.MinX
			continue
		}
		return x
	}
	return -1
}

// wasteBoundary returns where an empty cut starting at x should end.
func (p *plateSolver) wasteBoundary(x int) int {
	hi := min(x+p.params.MaxXX, p.params.PlateWidth-p.params.MinXX)
	return p.highestLine(hi, x+p.params.MinXX)
}

// wasteEnds returns where an empty cut starting at x may end so that an
// item cut can follow: the widest admissible line and the defect edges in
// range, or every admissible line in exact mode.
func (p *plateSolver) wasteEnds(x int, mode model.Mode) []int {
	lo := x + p.params.MinXX
	hi := min(x+p.params.MaxXX, p.params.PlateWidth-p.params.MinXX)
	if lo > hi {
		return nil
	}

	var out []int
	if mode == model.ModeExact {
		for s := hi; s >= lo; s-- {
			if _, ok := p.lineOK(s); ok {
				out = append(out, s)
			}
		}
		return out
	}

	if s := p.wasteBoundary(x); s >= lo {
		out = append(out, s)
	}
	for _, d := range p.defects {
		for _, s := range [...]int{d.MinX, d.MaxX} {
			if s < lo || s > hi || slices.Contains(out, s) {
				continue
			}
			if _, ok := p.lineOK(s); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

// wasteTiling returns the boundaries of the empty cuts that take the plate
// from x to its right edge, taking the widest admissible cut each time.
func (p *plateSolver) wasteTiling(x int) []int {
	var out []int
	for p.params.PlateWidth-x > p.params.MaxXX {
		next := p.wasteBoundary(x)
		if next < 0 {
			return nil
		}
		out = append(out, next)
		x = next
	}
	if x < p.params.PlateWidth {
		out = append(out, p.params.PlateWidth)
	}
	return out
}

func (p *plateSolver) closable(x int) bool {
	for p.params.PlateWidth-x > p.params.MaxXX {
		next := p.wasteBoundary(x)
		if next < 0 {
			return false
		}
		x = next
	}
	return true
}
