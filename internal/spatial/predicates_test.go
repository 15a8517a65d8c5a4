package spatial

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

var unitSquare = orb.MultiPolygon{{{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}}}

func TestContainsStrict(t *testing.T) {
	assert.True(t, ContainsStrict(unitSquare, orb.Point{5, 5}))
	assert.False(t, ContainsStrict(unitSquare, orb.Point{0, 5}), "boundary is excluded")
	assert.False(t, ContainsStrict(unitSquare, orb.Point{10, 10}), "vertex is excluded")
	assert.False(t, ContainsStrict(unitSquare, orb.Point{11, 5}))
}

func TestContainsStrict_Hole(t *testing.T) {
	withHole := orb.MultiPolygon{{
		{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}},
		{{4, 4}, {6, 4}, {6, 6}, {4, 6}, {4, 4}},
	}}
	assert.False(t, ContainsStrict(withHole, orb.Point{5, 5}))
	assert.True(t, ContainsStrict(withHole, orb.Point{2, 2}))
}

func TestWithinDistance(t *testing.T) {
	assert.True(t, WithinDistance(unitSquare, orb.Point{5, 5}, 1), "interior points are inside the buffer")
	assert.True(t, WithinDistance(unitSquare, orb.Point{11, 5}, 2))
	assert.False(t, WithinDistance(unitSquare, orb.Point{11, 5}, 1), "exactly at the buffer distance is outside")
	assert.True(t, WithinDistance(unitSquare, orb.Point{11, 11}, 1.5))
	assert.False(t, WithinDistance(unitSquare, orb.Point{11, 11}, 1.4), "corner buffers are rounded")
}

func TestDistanceToBoundary(t *testing.T) {
	assert.InDelta(t, 5.0, DistanceToBoundary(unitSquare, orb.Point{5, 5}), 1e-12)
	assert.InDelta(t, 3.0, DistanceToBoundary(unitSquare, orb.Point{13, 5}), 1e-12)
	assert.Zero(t, DistanceToBoundary(unitSquare, orb.Point{10, 3}))
}

func TestSegmentsIntersect(t *testing.T) {
	tests := []struct {
		name           string
		p1, p2, q1, q2 orb.Point
		want           bool
	}{
		{"crossing", orb.Point{0, 0}, orb.Point{4, 4}, orb.Point{0, 4}, orb.Point{4, 0}, true},
		{"touching endpoint", orb.Point{0, 0}, orb.Point{2, 2}, orb.Point{2, 2}, orb.Point{4, 0}, true},
		{"T junction", orb.Point{0, 0}, orb.Point{4, 0}, orb.Point{2, 0}, orb.Point{2, 3}, true},
		{"collinear overlap", orb.Point{0, 0}, orb.Point{4, 0}, orb.Point{2, 0}, orb.Point{6, 0}, true},
		{"collinear disjoint", orb.Point{0, 0}, orb.Point{1, 0}, orb.Point{2, 0}, orb.Point{3, 0}, false},
		{"parallel", orb.Point{0, 0}, orb.Point{4, 0}, orb.Point{0, 1}, orb.Point{4, 1}, false},
		{"apart", orb.Point{0, 0}, orb.Point{1, 1}, orb.Point{3, 0}, orb.Point{2, 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, segmentsIntersect(tt.p1, tt.p2, tt.q1, tt.q2))
			assert.Equal(t, tt.want, segmentsIntersect(tt.q1, tt.q2, tt.p1, tt.p2))
		})
	}
}

func TestLineIntersects(t *testing.T) {
	through := orb.MultiLineString{{{-5, 5}, {15, 5}}}
	inside := orb.MultiLineString{{{2, 2}, {3, 3}}}
	outside := orb.MultiLineString{{{-5, -5}, {-1, 20}}}
	touching := orb.MultiLineString{{{10, 12}, {10, 10}}}

	assert.True(t, LineIntersects(unitSquare, through), "no vertex inside but the segment crosses")
	assert.True(t, LineIntersects(unitSquare, inside))
	assert.False(t, LineIntersects(unitSquare, outside))
	assert.True(t, LineIntersects(unitSquare, touching))
}

func TestBoundIntersects(t *testing.T) {
	tests := []struct {
		name string
		b    orb.Bound
		want bool
	}{
		{"cell inside polygon", orb.Bound{Min: orb.Point{2, 2}, Max: orb.Point{3, 3}}, true},
		{"polygon inside cell", orb.Bound{Min: orb.Point{-1, -1}, Max: orb.Point{11, 11}}, true},
		{"overlapping corner", orb.Bound{Min: orb.Point{8, 8}, Max: orb.Point{12, 12}}, true},
		{"crossing band", orb.Bound{Min: orb.Point{-2, 4}, Max: orb.Point{12, 6}}, true},
		{"disjoint", orb.Bound{Min: orb.Point{20, 20}, Max: orb.Point{21, 21}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BoundIntersects(unitSquare, tt.b))
		})
	}

	triangle := orb.MultiPolygon{{{{0, 0}, {10, 0}, {0, 10}, {0, 0}}}}
	assert.False(t, BoundIntersects(triangle, orb.Bound{Min: orb.Point{8, 8}, Max: orb.Point{10, 10}}),
		"bounds overlap but the cell lies beyond the hypotenuse")
}
