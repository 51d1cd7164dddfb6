package model

import "fmt"

// Rect is an axis-aligned rectangle in integer millimetres. It covers
// [MinX, MaxX) x [MinY, MaxY); two rectangles that only share an edge do not
// intersect.
type Rect struct {
	MinX int `json:"min_x"`
	MinY int `json:"min_y"`
	MaxX int `json:"max_x"`
	MaxY int `json:"max_y"`
}

// NewRect builds a rectangle from its origin and size.
func NewRect(x, y, w, h int) Rect {
	return Rect{MinX: x, MinY: y, MaxX: x + w, MaxY: y + h}
}

func (r Rect) Width() int  { return r.MaxX - r.MinX }
func (r Rect) Height() int { return r.MaxY - r.MinY }
func (r Rect) Area() int64 { return int64(r.Width()) * int64(r.Height()) }

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.MaxX <= r.MinX || r.MaxY <= r.MinY
}

// Valid reports whether the corners are ordered.
func (r Rect) Valid() bool {
	return r.MinX <= r.MaxX && r.MinY <= r.MaxY
}

// Intersects returns true if the interiors of both rectangles overlap.
func (r Rect) Intersects(o Rect) bool {
	return r.MinX < o.MaxX && o.MinX < r.MaxX &&
		r.MinY < o.MaxY && o.MinY < r.MaxY
}

// Contains returns true if o lies entirely inside r.
func (r Rect) Contains(o Rect) bool {
	return r.MinX <= o.MinX && o.MaxX <= r.MaxX &&
		r.MinY <= o.MinY && o.MaxY <= r.MaxY
}

// CrossesVertical reports whether the vertical segment at x spanning
// [y0, y1] passes through the interior of r.
func (r Rect) CrossesVertical(x, y0, y1 int) bool {
	return r.MinX < x && x < r.MaxX && r.MinY < y1 && y0 < r.MaxY
}

// CrossesHorizontal reports whether the horizontal segment at y spanning
// [x0, x1] passes through the interior of r.
func (r Rect) CrossesHorizontal(y, x0, x1 int) bool {
	return r.MinY < y && y < r.MaxY && r.MinX < x1 && x0 < r.MaxX
}

// WithMaxX returns a copy of r with its right edge moved to x.
func (r Rect) WithMaxX(x int) Rect {
	r.MaxX = x
	return r
}

func (r Rect) String() string {
	return fmt.Sprintf("[%d,%d]x[%d,%d]", r.MinX, r.MaxX, r.MinY, r.MaxY)
}
