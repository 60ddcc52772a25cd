// Package vec2 provides the integer and floating 2-D vectors used
// throughout the replica, pathfinder, and task packages.
package vec2

import "math"

// I is an integer 2-D vector, used for tile, grid, and segment coordinates.
type I struct {
	X, Y int32
}

func NewI(x, y int32) I { return I{X: x, Y: y} }

func ZeroI() I { return I{} }

func OnlyX(x int32) I { return I{X: x} }

func OnlyY(y int32) I { return I{Y: y} }

func (v I) WithX(x int32) I { return I{X: x, Y: v.Y} }

func (v I) WithY(y int32) I { return I{X: v.X, Y: y} }

func (v I) Add(o I) I { return I{X: v.X + o.X, Y: v.Y + o.Y} }

func (v I) Sub(o I) I { return I{X: v.X - o.X, Y: v.Y - o.Y} }

func (v I) Mul(o I) I { return I{X: v.X * o.X, Y: v.Y * o.Y} }

func (v I) MulScalar(s int32) I { return I{X: v.X * s, Y: v.Y * s} }

// Center returns the midpoint of the tile this vector addresses.
func (v I) Center() F {
	return F{X: float64(v.X) + 0.5, Y: float64(v.Y) + 0.5}
}

// FloorDiv divides by value using floor (rather than truncating) division,
// so negative coordinates map to the grid below rather than toward zero.
func (v I) FloorDiv(value int32) I {
	return I{X: floorDivI32(v.X, value), Y: floorDivI32(v.Y, value)}
}

func floorDivI32(a, b int32) int32 {
	q := a / b
	r := a % b
	if (r != 0) && ((r < 0) != (b < 0)) {
		q--
	}
	return q
}

func FromF(v F) I {
	return I{X: int32(math.Floor(v.X)), Y: int32(math.Floor(v.Y))}
}

// F is a floating point 2-D vector, used for object and sub-tile positions.
type F struct {
	X, Y float64
}

func NewF(x, y float64) F { return F{X: x, Y: y} }

func FromI(v I) F { return F{X: float64(v.X), Y: float64(v.Y)} }

func (v F) Add(o F) F { return F{X: v.X + o.X, Y: v.Y + o.Y} }

func (v F) Sub(o F) F { return F{X: v.X - o.X, Y: v.Y - o.Y} }

func (v F) Mul(o F) F { return F{X: v.X * o.X, Y: v.Y * o.Y} }

func (v F) MulScalar(s float64) F { return F{X: v.X * s, Y: v.Y * s} }

func (v F) DivScalar(s float64) F { return F{X: v.X / s, Y: v.Y / s} }

func (v F) Neg() F { return F{X: -v.X, Y: -v.Y} }

func (v F) Norm() float64 { return math.Hypot(v.X, v.Y) }

func (v F) Distance(o F) float64 { return o.Sub(v).Norm() }

func (v F) Floor() F { return F{X: math.Floor(v.X), Y: math.Floor(v.Y)} }

// FloorBy floors the vector after dividing by a scalar, used to convert a
// world position into whole map-click units.
func (v F) FloorBy(value float64) F {
	return v.DivScalar(value).Floor()
}
