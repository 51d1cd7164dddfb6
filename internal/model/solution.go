package model

import "github.com/google/uuid"

// ItemPlacement is an item cut at its final position.
type ItemPlacement struct {
	ItemID  int  `json:"item_id"`
	Rect    Rect `json:"rect"`
	Rotated bool `json:"rotated"` // Placed with its long side along X
}

// RowSolution is a 2nd-level strip of a cut; items run left to right.
type RowSolution struct {
	Rect  Rect            `json:"rect"`
	Items []ItemPlacement `json:"items"`
}

// CutSolution is a 1st-level vertical band of a plate, split into rows.
type CutSolution struct {
	Rect Rect          `json:"rect"`
	Rows []RowSolution `json:"rows"`
}

// ItemCount returns the number of items placed in the cut.
func (c CutSolution) ItemCount() int {
	n := 0
	for _, r := range c.Rows {
		n += len(r.Items)
	}
	return n
}

// PlateSolution is one plate with its cuts. Rect is the part of the plate
// covered by cuts; only the last plate of a solution may stop short of the
// plate width, leaving a residual.
//
// Horizon is the last sequence offset examined while packing the plate. A
// plate whose horizon lies before a change in the sequence would be packed
// identically and can be reused.
type PlateSolution struct {
	Index   int           `json:"index"`
	Rect    Rect          `json:"rect"`
	Cuts    []CutSolution `json:"cuts"`
	First   int           `json:"first"` // sequence offset of the first item on this plate
	Count   int           `json:"count"`
	Horizon int           `json:"horizon"`
}

// ItemCount returns the number of items placed on the plate.
func (p PlateSolution) ItemCount() int {
	n := 0
	for _, c := range p.Cuts {
		n += c.ItemCount()
	}
	return n
}

// Placements lists the plate's items in cutting order.
func (p PlateSolution) Placements() []ItemPlacement {
	var out []ItemPlacement
	for _, c := range p.Cuts {
		for _, r := range c.Rows {
			out = append(out, r.Items...)
		}
	}
	return out
}

// UsedArea returns the total area of items on the plate.
func (p PlateSolution) UsedArea() int64 {
	var total int64
	for _, it := range p.Placements() {
		total += it.Rect.Area()
	}
	return total
}

// Solution is the result of packing a sequence.
type Solution struct {
	ID       string          `json:"id"`
	Sequence []int           `json:"sequence"` // item ids in the order they were packed
	Start    int             `json:"start"`    // sequence offset packing started from
	Plates   []PlateSolution `json:"plates"`
}

// NewSolution creates an empty solution for a sequence.
func NewSolution(sequence []int, start int) *Solution {
	seq := make([]int, len(sequence))
	copy(seq, sequence)
	return &Solution{
		ID:       uuid.New().String()[:8],
		Sequence: seq,
		Start:    start,
		Plates:   []PlateSolution{},
	}
}

// ItemCount returns the number of placed items.
func (s *Solution) ItemCount() int {
	n := 0
	for _, p := range s.Plates {
		n += p.Count
	}
	return n
}

// Placements lists every placed item in cutting order.
func (s *Solution) Placements() []ItemPlacement {
	var out []ItemPlacement
	for _, p := range s.Plates {
		out = append(out, p.Placements()...)
	}
	return out
}

// UsedArea returns the total area of placed items.
func (s *Solution) UsedArea() int64 {
	var total int64
	for _, p := range s.Plates {
		total += p.UsedArea()
	}
	return total
}

// TotalArea returns the area consumed by the solution: every plate is fully
// consumed except the covered part of the last one.
func (s *Solution) TotalArea() int64 {
	var total int64
	for _, p := range s.Plates {
		total += p.Rect.Area()
	}
	return total
}

// Efficiency returns the usage percentage of the consumed area.
func (s *Solution) Efficiency() float64 {
	ta := s.TotalArea()
	if ta == 0 {
		return 0
	}
	return float64(s.UsedArea()) / float64(ta) * 100.0
}

// Residual returns the reusable remnant to the right of the last plate, if
// packing stopped before the plate edge.
func (s *Solution) Residual(params Params) (Rect, bool) {
	if len(s.Plates) == 0 {
		return Rect{}, false
	}
	last := s.Plates[len(s.Plates)-1]
	if last.Rect.MaxX >= params.PlateWidth {
		return Rect{}, false
	}
	return Rect{MinX: last.Rect.MaxX, MinY: 0, MaxX: params.PlateWidth, MaxY: params.PlateHeight}, true
}
