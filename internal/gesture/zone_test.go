package gesture

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRectangleZoneContains(t *testing.T) {
	zone := &Zone{Kind: ZoneRectangle, X: 0.25, Y: 0.25, Width: 0.5, Height: 0.5}

	tests := []struct {
		name   string
		point  Point
		inside bool
	}{
		{"center", Point{0.5, 0.5}, true},
		{"top-left corner", Point{0.25, 0.25}, true},
		{"bottom-right corner", Point{0.75, 0.75}, true},
		{"left of zone", Point{0.1, 0.5}, false},
		{"below zone", Point{0.5, 0.9}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.inside, zone.Contains(tt.point))
		})
	}
}

func TestCircleZoneContains(t *testing.T) {
	zone := &Zone{Kind: ZoneCircle, CenterX: 0.5, CenterY: 0.5, Radius: 0.25}

	assert.True(t, zone.Contains(Point{0.5, 0.5}))
	assert.True(t, zone.Contains(Point{0.75, 0.5}), "boundary point is inside")
	assert.False(t, zone.Contains(Point{0.76, 0.5}))
	assert.False(t, zone.Contains(Point{0.0, 0.0}))
}

func TestPolygonZoneContains(t *testing.T) {
	// Diamond centered at (0.5, 0.5)
	zone := &Zone{Kind: ZonePolygon, Vertices: []Point{
		{0.5, 0.0}, {1.0, 0.5}, {0.5, 1.0}, {0.0, 0.5},
	}}

	assert.True(t, zone.Contains(Point{0.5, 0.5}))
	assert.True(t, zone.Contains(Point{0.6, 0.5}))
	assert.False(t, zone.Contains(Point{0.1, 0.1}), "corner outside the diamond")
	assert.False(t, zone.Contains(Point{0.9, 0.9}))
}

func TestPolygonZoneDegenerateNeverContains(t *testing.T) {
	zone := &Zone{Kind: ZonePolygon, Vertices: []Point{{0, 0}, {1, 1}}}
	assert.False(t, zone.Contains(Point{0.5, 0.5}))
}

func TestUnknownZoneKindNeverContains(t *testing.T) {
	zone := &Zone{Kind: ZoneKind("blob")}
	assert.False(t, zone.Contains(Point{0.5, 0.5}))
}

func TestValidateZone(t *testing.T) {
	assert.NoError(t, ValidateZone(nil))
	assert.NoError(t, ValidateZone(&Zone{Kind: ZoneRectangle, Width: 0.5, Height: 0.5}))
	assert.ErrorIs(t, ValidateZone(&Zone{Kind: ZoneRectangle, Width: 0, Height: 0.5}), ErrInvalidZone)
	assert.ErrorIs(t, ValidateZone(&Zone{Kind: ZoneCircle, Radius: 0}), ErrInvalidZone)
	assert.ErrorIs(t, ValidateZone(&Zone{Kind: ZonePolygon, Vertices: []Point{{0, 0}}}), ErrInvalidZone)
	assert.ErrorIs(t, ValidateZone(&Zone{Kind: ZoneKind("blob")}), ErrInvalidZone)
}
