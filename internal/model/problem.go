package model

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidProblem is returned when items or defects violate basic geometry.
var ErrInvalidProblem = errors.New("invalid problem")

// Item is a rectangle to cut. Width <= Height after canonicalization; the
// engine decides the orientation.
type Item struct {
	ID     int `json:"id"`
	Width  int `json:"width"`
	Height int `json:"height"`
	Stack  int `json:"stack"`
	Seq    int `json:"seq"` // position inside the stack, 1-based in ROADEF files
}

// Canonical returns the item with Width <= Height.
func (it Item) Canonical() Item {
	if it.Width > it.Height {
		it.Width, it.Height = it.Height, it.Width
	}
	return it
}

// Area returns the item area in square mm.
func (it Item) Area() int64 {
	return int64(it.Width) * int64(it.Height)
}

// Stack is an ordered list of items that must be cut in that relative order.
type Stack struct {
	ID    int    `json:"id"`
	Items []Item `json:"items"`
}

// Defect is a zone of a plate that no item or cut line may cross.
type Defect struct {
	ID    int  `json:"id"`
	Plate int  `json:"plate"`
	Rect  Rect `json:"rect"`
}

// Problem is the immutable input of a packing run.
type Problem struct {
	Items   []Item           `json:"items"`
	Stacks  []Stack          `json:"stacks"`
	Defects map[int][]Defect `json:"defects"`

	index map[int]int // item id -> position in Items
}

// NewProblem canonicalizes items, groups them into stacks ordered by Seq and
// indexes defects per plate. Defects must lie inside the plate described by
// params.
func NewProblem(items []Item, defects []Defect, params Params) (*Problem, error) {
	p := &Problem{
		Items:   make([]Item, len(items)),
		Defects: make(map[int][]Defect),
		index:   make(map[int]int, len(items)),
	}

	plate := NewRect(0, 0, params.PlateWidth, params.PlateHeight)
	stacks := make(map[int][]Item)
	for i, it := range items {
		if it.Width <= 0 || it.Height <= 0 {
			return nil, fmt.Errorf("%w: item %d has non-positive size %dx%d", ErrInvalidProblem, it.ID, it.Width, it.Height)
		}
		if _, dup := p.index[it.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate item id %d", ErrInvalidProblem, it.ID)
		}
		it = it.Canonical()
		p.Items[i] = it
		p.index[it.ID] = i
		stacks[it.Stack] = append(stacks[it.Stack], it)
	}

	stackIDs := make([]int, 0, len(stacks))
	for id := range stacks {
		stackIDs = append(stackIDs, id)
	}
	sort.Ints(stackIDs)
	for _, id := range stackIDs {
		s := stacks[id]
		sort.SliceStable(s, func(i, j int) bool { return s[i].Seq < s[j].Seq })
		p.Stacks = append(p.Stacks, Stack{ID: id, Items: s})
	}

	for _, d := range defects {
		if d.Rect.Empty() || !plate.Contains(d.Rect) {
			return nil, fmt.Errorf("%w: defect %d %v is outside plate %v", ErrInvalidProblem, d.ID, d.Rect, plate)
		}
		p.Defects[d.Plate] = append(p.Defects[d.Plate], d)
	}
	for plateID := range p.Defects {
		ds := p.Defects[plateID]
		sort.Slice(ds, func(i, j int) bool { return ds[i].Rect.MinX < ds[j].Rect.MinX })
	}
	return p, nil
}

// Item returns the item with the given id. Problems built by NewProblem
// answer from an index; others fall back to a scan and are never modified,
// so Item is safe for concurrent use.
func (p *Problem) Item(id int) (Item, bool) {
	if p.index == nil {
		for _, it := range p.Items {
			if it.ID == id {
				return it, true
			}
		}
		return Item{}, false
	}
	i, ok := p.index[id]
	if !ok {
		return Item{}, false
	}
	return p.Items[i], true
}

// DefectsOn returns the defects of a plate, sorted by MinX.
func (p *Problem) DefectsOn(plate int) []Defect {
	return p.Defects[plate]
}

// DefaultSequence concatenates the stacks in id order.
func (p *Problem) DefaultSequence() []int {
	seq := make([]int, 0, len(p.Items))
	for _, s := range p.Stacks {
		for _, it := range s.Items {
			seq = append(seq, it.ID)
		}
	}
	return seq
}

// ValidateSequence checks that seq references known items at most once and
// keeps every stack in order. seq may be a subset of the items.
func (p *Problem) ValidateSequence(seq []int) error {
	next := make(map[int]int, len(p.Stacks)) // stack id -> position of next expected item
	pos := make(map[int]int, len(p.Items))   // item id -> position inside its stack
	for _, s := range p.Stacks {
		for i, it := range s.Items {
			pos[it.ID] = i
		}
	}
	seen := make(map[int]bool, len(seq))
	for i, id := range seq {
		it, ok := p.Item(id)
		if !ok {
			return fmt.Errorf("%w: sequence position %d references unknown item %d", ErrInvalidProblem, i, id)
		}
		if seen[id] {
			return fmt.Errorf("%w: item %d appears twice in the sequence", ErrInvalidProblem, id)
		}
		seen[id] = true
		if pos[id] != next[it.Stack] {
			return fmt.Errorf("%w: item %d is out of order in stack %d", ErrInvalidProblem, id, it.Stack)
		}
		next[it.Stack]++
	}
	return nil
}
