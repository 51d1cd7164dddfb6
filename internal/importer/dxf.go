package importer

import (
	"fmt"
	"math"

	"github.com/piwi3910/platecut/internal/model"
	"github.com/yofu/dxf"
	"github.com/yofu/dxf/entity"
)

type point struct {
	x, y float64
}

// segment is a line between two points, used to chain loose LINE and ARC
// entities into closed outlines.
type segment struct {
	start, end point
}

// box is a floating-point bounding box.
type box struct {
	minX, minY, maxX, maxY float64
	set                    bool
}

func (b *box) add(p point) {
	if !b.set {
		*b = box{minX: p.x, minY: p.y, maxX: p.x, maxY: p.y, set: true}
		return
	}
	b.minX = math.Min(b.minX, p.x)
	b.minY = math.Min(b.minY, p.y)
	b.maxX = math.Max(b.maxX, p.x)
	b.maxY = math.Max(b.maxY, p.y)
}

// rect rounds the box outwards to whole millimetres.
func (b box) rect() model.Rect {
	return model.Rect{
		MinX: int(math.Floor(b.minX)),
		MinY: int(math.Floor(b.minY)),
		MaxX: int(math.Ceil(b.maxX)),
		MaxY: int(math.Ceil(b.maxY)),
	}
}

// ImportDefectsDXF reads the defects of one plate from a DXF drawing in
// plate coordinates. Every closed shape (LWPOLYLINE, CIRCLE, or chain of
// connected LINEs and ARCs) becomes a defect covering its bounding box.
func ImportDefectsDXF(path string, plate int) ImportResult {
	result := ImportResult{}

	drawing, err := dxf.Open(path)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot open DXF file: %v", err))
		return result
	}

	entities := drawing.Entities()
	if len(entities) == 0 {
		result.Errors = append(result.Errors, "DXF file contains no entities")
		return result
	}

	var boxes []box
	var segments []segment
	for _, ent := range entities {
		switch e := ent.(type) {
		case *entity.LwPolyline:
			if len(e.Vertices) < 3 {
				result.Warnings = append(result.Warnings, "Skipped LWPOLYLINE with fewer than 3 vertices")
				continue
			}
			boxes = append(boxes, polylineBox(e))

		case *entity.Circle:
			c := point{e.Center[0], e.Center[1]}
			var b box
			b.add(point{c.x - e.Radius, c.y - e.Radius})
			b.add(point{c.x + e.Radius, c.y + e.Radius})
			boxes = append(boxes, b)

		case *entity.Arc:
			pts := arcPoints(e, 32)
			for i := 0; i+1 < len(pts); i++ {
				segments = append(segments, segment{pts[i], pts[i+1]})
			}

		case *entity.Line:
			segments = append(segments, segment{
				start: point{e.Start[0], e.Start[1]},
				end:   point{e.End[0], e.End[1]},
			})
		}
	}
	boxes = append(boxes, chainBoxes(segments, 0.01)...)

	if len(boxes) == 0 {
		result.Errors = append(result.Errors, "No closed shapes found in DXF file")
		return result
	}

	for _, b := range boxes {
		r := b.rect()
		if r.Empty() {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("Skipped degenerate shape (%.2f x %.2f mm)", b.maxX-b.minX, b.maxY-b.minY))
			continue
		}
		if r.MinX < 0 || r.MinY < 0 {
			result.Errors = append(result.Errors, fmt.Sprintf("Shape %v lies outside the plate", r))
			continue
		}
		result.Defects = append(result.Defects, model.Defect{ID: len(result.Defects), Plate: plate, Rect: r})
	}
	return result
}

// polylineBox bounds a LWPOLYLINE, following bulged segments along their
// arcs.
func polylineBox(lw *entity.LwPolyline) box {
	var b box
	n := len(lw.Vertices)
	for i, v := range lw.Vertices {
		cur := point{v[0], v[1]}
		b.add(cur)
		if i < len(lw.Bulges) && math.Abs(lw.Bulges[i]) > 1e-9 {
			w := lw.Vertices[(i+1)%n]
			for _, p := range bulgePoints(cur, point{w[0], w[1]}, lw.Bulges[i], 32) {
				b.add(p)
			}
		}
	}
	return b
}

// bulgePoints samples the arc between two vertices. The bulge is the tangent
// of a quarter of the included angle; its sign gives the direction.
func bulgePoints(p1, p2 point, bulge float64, n int) []point {
	dx, dy := p2.x-p1.x, p2.y-p1.y
	chord := math.Hypot(dx, dy)
	if chord < 1e-9 {
		return []point{p1, p2}
	}

	sagitta := math.Abs(bulge) * chord / 2
	radius := (chord*chord/(4*sagitta) + sagitta) / 2
	px, py := -dy/chord, dx/chord
	if bulge > 0 {
		px, py = -px, -py
	}
	cx := (p1.x+p2.x)/2 + px*(radius-sagitta)
	cy := (p1.y+p2.y)/2 + py*(radius-sagitta)

	start := math.Atan2(p1.y-cy, p1.x-cx)
	end := math.Atan2(p2.y-cy, p2.x-cx)
	if bulge < 0 && end > start {
		end -= 2 * math.Pi
	} else if bulge > 0 && end < start {
		end += 2 * math.Pi
	}

	pts := make([]point, n+1)
	for i := range pts {
		a := start + float64(i)/float64(n)*(end-start)
		pts[i] = point{cx + radius*math.Cos(a), cy + radius*math.Sin(a)}
	}
	return pts
}

// arcPoints samples a DXF ARC entity.
func arcPoints(a *entity.Arc, n int) []point {
	cx, cy, r := a.Circle.Center[0], a.Circle.Center[1], a.Circle.Radius
	start := a.Angle[0] * math.Pi / 180
	end := a.Angle[1] * math.Pi / 180
	if end <= start {
		end += 2 * math.Pi
	}
	pts := make([]point, n+1)
	for i := range pts {
		t := start + float64(i)/float64(n)*(end-start)
		pts[i] = point{cx + r*math.Cos(t), cy + r*math.Sin(t)}
	}
	return pts
}

// chainBoxes connects segments whose ends meet within tolerance and bounds
// every closed chain. Open chains are ignored.
func chainBoxes(segs []segment, tolerance float64) []box {
	used := make([]bool, len(segs))
	var out []box
	for first := range segs {
		if used[first] {
			continue
		}
		used[first] = true
		chain := []point{segs[first].start, segs[first].end}

		for extended := true; extended; {
			extended = false
			tail := chain[len(chain)-1]
			for i, s := range segs {
				if used[i] {
					continue
				}
				switch {
				case pointsClose(tail, s.start, tolerance):
					chain = append(chain, s.end)
				case pointsClose(tail, s.end, tolerance):
					chain = append(chain, s.start)
				default:
					continue
				}
				used[i] = true
				extended = true
				break
			}
		}

		if len(chain) < 4 || !pointsClose(chain[0], chain[len(chain)-1], tolerance) {
			continue
		}
		var b box
		for _, p := range chain {
			b.add(p)
		}
		out = append(out, b)
	}
	return out
}

func pointsClose(a, b point, tolerance float64) bool {
	return math.Hypot(a.x-b.x, a.y-b.y) <= tolerance
}
