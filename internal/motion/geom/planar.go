package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// Transform2D is a character's planar placement: ground position plus heading.
type Transform2D struct {
	Position r2.Vec
	Heading  float64
}

// Planar projects a 3D point onto the ground plane.
func Planar(v r3.Vec) r2.Vec {
	return r2.Vec{X: v.X, Y: v.Z}
}

// RotatePlanar rotates a ground-plane vector by heading radians, matching
// a rotation about +Y applied to (X, Z).
func RotatePlanar(v r2.Vec, heading float64) r2.Vec {
	sin, cos := math.Sincos(heading)
	return r2.Vec{
		X: v.X*cos + v.Y*sin,
		Y: -v.X*sin + v.Y*cos,
	}
}

// WrapAngle maps an angle into (-π, π].
func WrapAngle(a float64) float64 {
	a = math.Mod(a+math.Pi, 2*math.Pi)
	if a <= 0 {
		a += 2 * math.Pi
	}
	return a - math.Pi
}

// ToLocal expresses a world ground point in this transform's frame.
func (t Transform2D) ToLocal(p r2.Vec) r2.Vec {
	return RotatePlanar(r2.Sub(p, t.Position), -t.Heading)
}

// FromLocal maps a point in this transform's frame back to the ground plane.
func (t Transform2D) FromLocal(p r2.Vec) r2.Vec {
	return r2.Add(t.Position, RotatePlanar(p, t.Heading))
}

// Forward returns the unit ground-plane direction of the heading.
func (t Transform2D) Forward() r2.Vec {
	return r2.Vec{X: math.Sin(t.Heading), Y: math.Cos(t.Heading)}
}

// Interpolate2D blends two planar transforms: linear on position, shortest
// arc on heading.
func Interpolate2D(a, b Transform2D, t float64) Transform2D {
	return Transform2D{
		Position: r2.Add(a.Position, r2.Scale(t, r2.Sub(b.Position, a.Position))),
		Heading:  WrapAngle(a.Heading + t*WrapAngle(b.Heading-a.Heading)),
	}
}
