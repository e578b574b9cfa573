package physics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"regoth/internal/geom"
)

func TestRayCast(t *testing.T) {
	w := NewWorld(
		Box{Name: "wall", Min: geom.V(5, 0, -2), Max: geom.V(6, 3, 2)},
		Box{Name: "crate", Min: geom.V(9, 1, 9), Max: geom.V(8, 0, 8)},
	)

	tests := []struct {
		name     string
		from, to geom.Vec3
		hit      bool
		distance float64
	}{
		{"through wall", geom.V(0, 1, 0), geom.V(10, 1, 0), true, 5},
		{"short of wall still reports hit", geom.V(0, 1, 0), geom.V(2, 1, 0), true, 5},
		{"above wall", geom.V(0, 4, 0), geom.V(10, 4, 0), false, 0},
		{"beside wall", geom.V(0, 1, 3), geom.V(10, 1, 3), false, 0},
		{"away from wall", geom.V(0, 1, 0), geom.V(-10, 1, 0), false, 0},
		{"diagonal into crate", geom.V(0, 0.5, 0), geom.V(1, 0.5, 1), true, 8 * 1.4142135623730951},
		{"zero length", geom.V(1, 1, 1), geom.V(1, 1, 1), false, 0},
		{"from inside", geom.V(5.5, 1, 0), geom.V(20, 1, 0), false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hit, d := w.RayCast(tt.from, tt.to)
			assert.Equal(t, tt.hit, hit)
			assert.InDelta(t, tt.distance, d, 1e-9)
		})
	}
}

func TestAddBoxNormalizesCorners(t *testing.T) {
	w := NewWorld(Box{Min: geom.V(1, 1, 1), Max: geom.V(0, 0, 0)})
	b := w.Boxes()[0]
	assert.Equal(t, geom.V(0, 0, 0), b.Min)
	assert.Equal(t, geom.V(1, 1, 1), b.Max)
}
