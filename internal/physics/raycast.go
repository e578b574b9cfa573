// Package physics provides the collision queries the AI needs: a ray cast
// against static axis-aligned obstacles.
package physics

import (
	"math"

	"regoth/internal/geom"
)

// Box is an axis-aligned obstacle.
type Box struct {
	Name string    `yaml:"name"`
	Min  geom.Vec3 `yaml:"min"`
	Max  geom.Vec3 `yaml:"max"`
}

// World is a set of static obstacles.
type World struct {
	boxes []Box
}

// NewWorld creates a world with the given obstacles.
func NewWorld(boxes ...Box) *World {
	w := &World{}
	for _, b := range boxes {
		w.AddBox(b)
	}
	return w
}

// AddBox adds an obstacle. Min and Max are swapped per axis if needed.
func (w *World) AddBox(b Box) {
	lo := geom.V(math.Min(b.Min.X, b.Max.X), math.Min(b.Min.Y, b.Max.Y), math.Min(b.Min.Z, b.Max.Z))
	hi := geom.V(math.Max(b.Min.X, b.Max.X), math.Max(b.Min.Y, b.Max.Y), math.Max(b.Min.Z, b.Max.Z))
	w.boxes = append(w.boxes, Box{Name: b.Name, Min: lo, Max: hi})
}

// Boxes returns the obstacles.
func (w *World) Boxes() []Box {
	return append([]Box(nil), w.boxes...)
}

// RayCast casts a ray from from in the direction of to and reports the
// distance to the closest obstacle it enters. The ray is not limited to the
// segment; callers compare the distance with their own range.
func (w *World) RayCast(from, to geom.Vec3) (hit bool, distance float64) {
	dir := to.Sub(from)
	length := dir.Length()
	if length == 0 {
		return false, 0
	}
	dir = dir.Scale(1 / length)

	distance = math.Inf(1)
	for _, b := range w.boxes {
		if d, ok := intersect(from, dir, b); ok && d < distance {
			distance = d
			hit = true
		}
	}
	if !hit {
		return false, 0
	}
	return true, distance
}

// intersect is the slab test. A ray starting inside a box does not hit it.
func intersect(origin, dir geom.Vec3, b Box) (float64, bool) {
	tMin, tMax := 0.0, math.Inf(1)
	axes := [3][4]float64{
		{origin.X, dir.X, b.Min.X, b.Max.X},
		{origin.Y, dir.Y, b.Min.Y, b.Max.Y},
		{origin.Z, dir.Z, b.Min.Z, b.Max.Z},
	}
	inside := true
	for _, a := range axes {
		o, d, lo, hi := a[0], a[1], a[2], a[3]
		if o < lo || o > hi {
			inside = false
		}
		if d == 0 {
			if o < lo || o > hi {
				return 0, false
			}
			continue
		}
		t1, t2 := (lo-o)/d, (hi-o)/d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tMin = math.Max(tMin, t1)
		tMax = math.Min(tMax, t2)
		if tMin > tMax {
			return 0, false
		}
	}
	if inside {
		return 0, false
	}
	return tMin, true
}
