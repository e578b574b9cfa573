// Package geom has the small amount of vector math the AI core needs.
// Y is up, units are meters.
package geom

import "math"

// Vec3 is a position or direction in world space.
type Vec3 struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
	Z float64 `yaml:"z" json:"z"`
}

func V(x, y, z float64) Vec3 { return Vec3{X: x, Y: y, Z: z} }

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

func (v Vec3) Scale(f float64) Vec3 { return Vec3{v.X * f, v.Y * f, v.Z * f} }

func (v Vec3) Dot(o Vec3) float64 { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }

func (v Vec3) Length() float64 { return math.Sqrt(v.Dot(v)) }

func (v Vec3) SquaredLength() float64 { return v.Dot(v) }

// Normalized returns the unit vector, or the zero vector for zero input.
func (v Vec3) Normalized() Vec3 {
	l := v.Length()
	if l == 0 {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

// Horizontal drops the vertical component.
func (v Vec3) Horizontal() Vec3 { return Vec3{X: v.X, Z: v.Z} }

func Distance(a, b Vec3) float64 { return b.Sub(a).Length() }

func SquaredDistance(a, b Vec3) float64 { return b.Sub(a).SquaredLength() }

// Yaw returns the heading of a direction around the up axis in radians.
func Yaw(dir Vec3) float64 { return math.Atan2(dir.X, dir.Z) }

// MoveTowards steps from towards to by at most maxStep.
func MoveTowards(from, to Vec3, maxStep float64) Vec3 {
	delta := to.Sub(from)
	dist := delta.Length()
	if dist <= maxStep || dist == 0 {
		return to
	}
	return from.Add(delta.Scale(maxStep / dist))
}
