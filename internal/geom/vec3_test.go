package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMoveTowards(t *testing.T) {
	tests := []struct {
		name     string
		from, to Vec3
		step     float64
		expected Vec3
	}{
		{"partial step", V(0, 0, 0), V(10, 0, 0), 2, V(2, 0, 0)},
		{"overshoot clamps to target", V(0, 0, 0), V(1, 0, 0), 5, V(1, 0, 0)},
		{"already there", V(3, 1, 3), V(3, 1, 3), 1, V(3, 1, 3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MoveTowards(tt.from, tt.to, tt.step)
			assert.InDelta(t, tt.expected.X, got.X, 1e-9)
			assert.InDelta(t, tt.expected.Y, got.Y, 1e-9)
			assert.InDelta(t, tt.expected.Z, got.Z, 1e-9)
		})
	}
}

func TestHorizontalAndYaw(t *testing.T) {
	v := V(1, 5, 0)
	assert.Equal(t, V(1, 0, 0), v.Horizontal())
	assert.InDelta(t, math.Pi/2, Yaw(v), 1e-9)
	assert.Equal(t, Vec3{}, Vec3{}.Normalized())
}
