package engine

import "sort"

// Element is one entry of a Front: Value items are packed in a layout that
// ends at Coord. Prev is the index of the arena node that produced it.
type Element struct {
	Coord int
	Value int
	Prev  int
}

// Front is a monotone Pareto front. Elements are sorted by strictly
// increasing Coord and strictly increasing Value; an element A dominates B
// when A.Coord <= B.Coord and A.Value >= B.Value, and dominated elements are
// never stored.
type Front struct {
	elts    []Element
	scratch []Element
}

// Reset empties the front, keeping its buffers.
func (f *Front) Reset() {
	f.elts = f.elts[:0]
}

func (f *Front) Len() int { return len(f.elts) }

func (f *Front) At(i int) Element { return f.elts[i] }

// Last returns the element with the largest value.
func (f *Front) Last() (Element, bool) {
	if len(f.elts) == 0 {
		return Element{}, false
	}
	return f.elts[len(f.elts)-1], true
}

// Dominated reports whether a stored element dominates (coord, value).
func (f *Front) Dominated(coord, value int) bool {
	// The rightmost element at or before coord carries the best value there.
	i := sort.Search(len(f.elts), func(i int) bool { return f.elts[i].Coord > coord })
	return i > 0 && f.elts[i-1].Value >= value
}

// Insert adds e unless it is dominated, dropping the elements e dominates.
// It reports whether e was stored.
func (f *Front) Insert(e Element) bool {
	if f.Dominated(e.Coord, e.Value) {
		return false
	}
	out := f.scratch[:0]
	placed := false
	for _, x := range f.elts {
		if x.Coord < e.Coord {
			out = append(out, x)
			continue
		}
		if !placed {
			out = append(out, e)
			placed = true
		}
		if x.Coord > e.Coord && x.Value > e.Value {
			out = append(out, x)
		}
	}
	if !placed {
		out = append(out, e)
	}
	f.scratch = f.elts
	f.elts = out
	return true
}

// Check panics if the ordering invariant does not hold.
func (f *Front) Check(layer string) {
	for i := 1; i < len(f.elts); i++ {
		a, b := f.elts[i-1], f.elts[i]
		invariant(a.Coord < b.Coord && a.Value < b.Value, layer,
			"front element %d (%d, %d) does not follow (%d, %d)", i, b.Coord, b.Value, a.Coord, a.Value)
	}
}
