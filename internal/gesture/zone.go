package gesture

// ZoneKind identifies the geometry of an activation zone
type ZoneKind string

const (
	ZoneRectangle ZoneKind = "rectangle"
	ZoneCircle    ZoneKind = "circle"
	ZonePolygon   ZoneKind = "polygon"
)

// Point is a position in normalized screen space, both axes in [0,1]
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Zone is a geometric region in normalized input space that gates whether a
// mapping is eligible to produce output. Exactly one of the shape fields is
// meaningful, selected by Kind.
type Zone struct {
	Kind ZoneKind `json:"kind"`

	// Rectangle: origin is the top-left corner
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`

	// Circle
	CenterX float64 `json:"centerX,omitempty"`
	CenterY float64 `json:"centerY,omitempty"`
	Radius  float64 `json:"radius,omitempty"`

	// Polygon vertices in order; the edge from the last vertex back to the
	// first is implied
	Vertices []Point `json:"vertices,omitempty"`
}

// Contains reports whether the point falls inside the zone. Points exactly on
// a rectangle or circle boundary are considered inside.
func (z *Zone) Contains(p Point) bool {
	switch z.Kind {
	case ZoneRectangle:
		return p.X >= z.X && p.X <= z.X+z.Width &&
			p.Y >= z.Y && p.Y <= z.Y+z.Height
	case ZoneCircle:
		dx := p.X - z.CenterX
		dy := p.Y - z.CenterY
		return dx*dx+dy*dy <= z.Radius*z.Radius
	case ZonePolygon:
		return polygonContains(z.Vertices, p)
	default:
		return false
	}
}

// polygonContains implements the even-odd ray casting rule with a horizontal
// ray extending in the +X direction from p
func polygonContains(vertices []Point, p Point) bool {
	if len(vertices) < 3 {
		return false
	}
	inside := false
	j := len(vertices) - 1
	for i := 0; i < len(vertices); i++ {
		vi, vj := vertices[i], vertices[j]
		if (vi.Y > p.Y) != (vj.Y > p.Y) {
			crossX := (vj.X-vi.X)*(p.Y-vi.Y)/(vj.Y-vi.Y) + vi.X
			if p.X < crossX {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}
