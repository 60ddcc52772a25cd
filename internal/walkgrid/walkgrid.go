// Package walkgrid implements the deterministic 2-D line rasterizer used by
// the pathfinder's shortcut validity checks.
package walkgrid

import (
	"math"

	"github.com/elsid/hafen-botserver/internal/vec2"
)

const epsilon = 1e-9

// Walk enumerates every integer cell touched by the closed segment from
// begin to end, calling visit with the fractional position inside each
// visited cell. It stops as soon as visit returns false, or once the
// segment is exhausted.
func Walk(begin, end vec2.F, visit func(position vec2.F) bool) {
	fracX := adjustFraction(fract(begin.X))
	fracY := adjustFraction(fract(begin.Y))
	point := vec2.I{X: int32(math.Floor(begin.X)), Y: int32(math.Floor(begin.Y))}

	to := end.Sub(makePosition(point, fracX, fracY))
	norm := to.Norm()
	var dirX, dirY float64
	if norm != 0 {
		dirX, dirY = to.X/norm, to.Y/norm
	}
	signX := signum(dirX)
	signY := signum(dirY)

	toBorderX := fracX
	if signX >= 0 {
		toBorderX = 1.0 - fracX
	}
	toBorderY := fracY
	if signY >= 0 {
		toBorderY = 1.0 - fracY
	}

	avx := math.Abs(dirX)
	avy := math.Abs(dirY)
	nx := math.Abs(to.X)
	ny := math.Abs(to.Y)

	var ax, ay float64

	for {
		switch {
		case avx != 0 && avy != 0 && ax <= nx && ay <= ny:
			p := point
			if !visit(makePosition(p, fracX, fracY)) {
				return
			}
			dtx := toBorderX / avx
			dty := toBorderY / avy
			if dtx < dty {
				point.X += signX
				dy := avy * dtx
				ax += toBorderX
				ay += dy
				toBorderX = 1.0
				toBorderY = math.Max(toBorderY-dy, 0)
			} else {
				point.Y += signY
				dx := avx * dty
				ax += dx
				ay += toBorderY
				toBorderX = math.Max(toBorderX-dx, 0)
				toBorderY = 1.0
			}
		case avx != 0 && avy == 0 && ax <= nx:
			p := point
			if !visit(makePosition(p, fracX, fracY)) {
				return
			}
			point.X += signX
			ax += toBorderX
			toBorderX = 1.0
		case avx == 0 && avy != 0 && ay <= ny:
			p := point
			if !visit(makePosition(p, fracX, fracY)) {
				return
			}
			point.Y += signY
			ay += toBorderY
			toBorderY = 1.0
		default:
			return
		}
	}
}

func adjustFraction(value float64) float64 {
	switch {
	case value > 0 && value < epsilon:
		return epsilon
	case value > 1.0-epsilon && value < 1.0:
		return 1.0 - epsilon
	default:
		return value
	}
}

func makePosition(point vec2.I, fracX, fracY float64) vec2.F {
	return vec2.F{X: float64(point.X) + fracX, Y: float64(point.Y) + fracY}
}

func fract(v float64) float64 {
	return v - math.Floor(v)
}

func signum(v float64) int32 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
