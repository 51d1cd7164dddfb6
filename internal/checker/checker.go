// Package checker verifies that a solution can be cut by a three-stage
// guillotine machine.
package checker

import (
	"fmt"

	"github.com/piwi3910/platecut/internal/model"
)

// Rule names reported in violations.
const (
	RuleSequence = "sequence"
	RulePlate    = "plate"
	RuleCut      = "cut"
	RuleRow      = "row"
	RuleItem     = "item"
	RuleDefect   = "defect"
)

// Violation is one broken cutting rule.
type Violation struct {
	Plate int    `json:"plate"`
	Rule  string `json:"rule"`
	Msg   string `json:"message"`
}

func (v Violation) String() string {
	return fmt.Sprintf("plate %d: %s: %s", v.Plate, v.Rule, v.Msg)
}

// Check analyzes a solution against the problem it was packed for and
// returns every violation found. An empty result means the solution is
// valid.
//
// Checked rules:
//  1. Items appear in sequence order, each with its own size.
//  2. Cuts tile each plate; only the last plate may stop early.
//  3. Cut widths lie in [MinXX, MaxXX]; rows tile their cut and are at
//     least MinYY high.
//  4. Waste pieces beside items are either absent or at least MinWaste.
//  5. No cut line and no item crosses a defect.
func Check(problem *model.Problem, params model.Params, sol *model.Solution) []Violation {
	c := &checker{problem: problem, params: params}
	c.checkSequence(sol)
	for i, plate := range sol.Plates {
		c.plate = plate.Index
		c.defects = c.defects[:0]
		for _, d := range problem.DefectsOn(plate.Index) {
			c.defects = append(c.defects, d.Rect)
		}
		if plate.Index != i {
			c.add(RulePlate, "plate at position %d has index %d", i, plate.Index)
		}
		c.checkPlate(plate, i == len(sol.Plates)-1)
	}
	return c.viol
}

type checker struct {
	problem *model.Problem
	params  model.Params
	plate   int
	defects []model.Rect
	viol    []Violation
}

func (c *checker) add(rule, format string, args ...any) {
	c.viol = append(c.viol, Violation{Plate: c.plate, Rule: rule, Msg: fmt.Sprintf(format, args...)})
}

func (c *checker) checkSequence(sol *model.Solution) {
	next := sol.Start
	for i, plate := range sol.Plates {
		c.plate = plate.Index
		if plate.First != next {
			c.add(RuleSequence, "plate %d starts at offset %d, expected %d", i, plate.First, next)
		}
		placed := plate.Placements()
		if len(placed) != plate.Count {
			c.add(RuleSequence, "plate %d counts %d items but holds %d", i, plate.Count, len(placed))
		}
		for _, p := range placed {
			if next >= len(sol.Sequence) {
				c.add(RuleSequence, "item %d placed past the end of the sequence", p.ItemID)
				return
			}
			if want := sol.Sequence[next]; p.ItemID != want {
				c.add(RuleSequence, "offset %d holds item %d, expected %d", next, p.ItemID, want)
			}
			next++

			it, ok := c.problem.Item(p.ItemID)
			if !ok {
				c.add(RuleItem, "unknown item %d", p.ItemID)
				continue
			}
			w, h := it.Width, it.Height
			if p.Rotated {
				w, h = h, w
			}
			if p.Rect.Width() != w || p.Rect.Height() != h {
				c.add(RuleItem, "item %d placed as %dx%d, expected %dx%d", p.ItemID, p.Rect.Width(), p.Rect.Height(), w, h)
			}
		}
	}
}

func (c *checker) checkPlate(plate model.PlateSolution, last bool) {
	pw, ph := c.params.PlateWidth, c.params.PlateHeight
	r := plate.Rect
	if r.MinX != 0 || r.MinY != 0 || r.MaxY != ph || r.MaxX > pw {
		c.add(RulePlate, "covered area %v does not start at the plate origin", r)
	}
	if r.MaxX < pw {
		if !last {
			c.add(RulePlate, "only the last plate may stop at %d before the edge %d", r.MaxX, pw)
		}
		if pw-r.MaxX < c.params.MinXX {
			c.add(RulePlate, "residual of width %d is narrower than %d", pw-r.MaxX, c.params.MinXX)
		}
		c.checkVerticalLine(RulePlate, r.MaxX, 0, ph)
	}

	x := 0
	for _, cut := range plate.Cuts {
		cr := cut.Rect
		if cr.MinX != x || cr.MinY != 0 || cr.MaxY != ph {
			c.add(RuleCut, "cut %v does not continue the plate at %d", cr, x)
		}
		if w := cr.Width(); w < c.params.MinXX || w > c.params.MaxXX {
			c.add(RuleCut, "cut %v width %d outside [%d, %d]", cr, w, c.params.MinXX, c.params.MaxXX)
		}
		if cr.MaxX < pw {
			c.checkVerticalLine(RuleCut, cr.MaxX, 0, ph)
		}
		c.checkCut(cut)
		x = cr.MaxX
	}
	if x != r.MaxX {
		c.add(RulePlate, "cuts end at %d, plate at %d", x, r.MaxX)
	}
}

func (c *checker) checkCut(cut model.CutSolution) {
	if len(cut.Rows) == 0 {
		return
	}
	cr := cut.Rect
	y := cr.MinY
	for _, row := range cut.Rows {
		rr := row.Rect
		if rr.MinY != y || rr.MinX != cr.MinX || rr.MaxX != cr.MaxX {
			c.add(RuleRow, "row %v does not continue cut %v at %d", rr, cr, y)
		}
		if rr.Height() < c.params.MinYY {
			c.add(RuleRow, "row %v is lower than %d", rr, c.params.MinYY)
		}
		if rr.MaxY < cr.MaxY {
			c.checkHorizontalLine(rr.MaxY, rr.MinX, rr.MaxX)
		}
		c.checkRow(row)
		y = rr.MaxY
	}
	if y != cr.MaxY {
		c.add(RuleRow, "rows of cut %v end at %d", cr, y)
	}
}

func (c *checker) checkRow(row model.RowSolution) {
	rr := row.Rect
	mw := c.params.MinWaste
	x := rr.MinX
	for _, p := range row.Items {
		ir := p.Rect
		if !rr.Contains(ir) {
			c.add(RuleItem, "item %d %v leaves row %v", p.ItemID, ir, rr)
		}
		if ir.MinY != rr.MinY && ir.MaxY != rr.MaxY {
			c.add(RuleItem, "item %d %v touches neither row edge", p.ItemID, ir)
		}
		if gap := rr.Height() - ir.Height(); gap > 0 && gap < mw {
			c.add(RuleItem, "item %d leaves a strip of %d", p.ItemID, gap)
		}
		if gap := ir.MinX - x; gap < 0 {
			c.add(RuleItem, "item %d overlaps its left neighbour", p.ItemID)
		} else if gap > 0 && gap < mw {
			c.add(RuleItem, "item %d leaves a gap of %d on its left", p.ItemID, gap)
		}
		if ir.MinX > rr.MinX {
			c.checkVerticalLine(RuleItem, ir.MinX, rr.MinY, rr.MaxY)
		}
		c.checkVerticalLine(RuleItem, ir.MaxX, rr.MinY, rr.MaxY)
		for _, d := range c.defects {
			if d.Intersects(ir) {
				c.add(RuleDefect, "item %d %v covers defect %v", p.ItemID, ir, d)
			}
		}
		x = ir.MaxX
	}
	if len(row.Items) > 0 {
		if gap := rr.MaxX - x; gap > 0 && gap < mw {
			c.add(RuleItem, "row %v leaves a gap of %d after its last item", rr, gap)
		}
	}
}

func (c *checker) checkVerticalLine(rule string, x, y0, y1 int) {
	for _, d := range c.defects {
		if d.CrossesVertical(x, y0, y1) {
			c.add(RuleDefect, "%s line x=%d over [%d, %d] crosses defect %v", rule, x, y0, y1, d)
		}
	}
}

func (c *checker) checkHorizontalLine(y, x0, x1 int) {
	for _, d := range c.defects {
		if d.CrossesHorizontal(y, x0, x1) {
			c.add(RuleDefect, "row line y=%d over [%d, %d] crosses defect %v", y, x0, x1, d)
		}
	}
}
