package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

const tol = 1e-9

func assertVec(t *testing.T, want, got r3.Vec) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, 1e-6, "X")
	assert.InDelta(t, want.Y, got.Y, 1e-6, "Y")
	assert.InDelta(t, want.Z, got.Z, 1e-6, "Z")
}

func TestYawRotationForward(t *testing.T) {
	for _, heading := range []float64{0, 0.3, math.Pi / 2, -2.5, math.Pi} {
		f := Rotate(YawRotation(heading), UnitZ)
		assertVec(t, r3.Vec{X: math.Sin(heading), Z: math.Cos(heading)}, f)
		assert.InDelta(t, 0, WrapAngle(Yaw(YawRotation(heading))-heading), 1e-9)
	}
}

func TestInverseComposesToIdentity(t *testing.T) {
	tr := Transform{
		Rotation:    Normalize(AxisAngle(r3.Vec{X: 1, Y: 2, Z: 0.5}, 1.1)),
		Translation: r3.Vec{X: 3, Y: -1, Z: 7},
	}
	id := Mul(tr.Inverse(), tr)
	assertVec(t, r3.Vec{}, id.Translation)
	assert.InDelta(t, 0, AngleBetween(id.Rotation, IdentityRotation), 1e-6)

	p := r3.Vec{X: 0.2, Y: 0.4, Z: -1}
	assertVec(t, p, tr.Inverse().Apply(tr.Apply(p)))
}

func TestSlerpEndpointsAndMidpoint(t *testing.T) {
	a := YawRotation(0)
	b := YawRotation(math.Pi / 2)

	assert.InDelta(t, 0, AngleBetween(Slerp(a, b, 0), a), 1e-6)
	assert.InDelta(t, 0, AngleBetween(Slerp(a, b, 1), b), 1e-6)
	assert.InDelta(t, math.Pi/4, Yaw(Slerp(a, b, 0.5)), 1e-9)
}

func TestSlerpTakesShortArc(t *testing.T) {
	a := YawRotation(3)
	b := YawRotation(-3)
	mid := Yaw(Slerp(a, b, 0.5))
	assert.InDelta(t, math.Pi, math.Abs(mid), 1e-6)
}

func TestStripYawKeepsPitch(t *testing.T) {
	pitch := AxisAngle(UnitX, 0.2)
	q := Normalize(quat.Mul(YawRotation(1.3), pitch))
	stripped := StripYaw(q)
	assert.InDelta(t, 0, Yaw(stripped), 1e-9)
	assert.InDelta(t, 0, AngleBetween(stripped, pitch), 1e-6)
}

func TestPlanarRoundTrip(t *testing.T) {
	frame := Transform2D{Position: r2.Vec{X: 2, Y: -1}, Heading: 0.7}
	p := r2.Vec{X: 5, Y: 4}
	back := frame.FromLocal(frame.ToLocal(p))
	assert.InDelta(t, p.X, back.X, tol)
	assert.InDelta(t, p.Y, back.Y, tol)

	// A point straight ahead has local coordinates on +Y (world +Z).
	ahead := r2.Add(frame.Position, frame.Forward())
	local := frame.ToLocal(ahead)
	assert.InDelta(t, 0, local.X, tol)
	assert.InDelta(t, 1, local.Y, tol)
}

func TestRotatePlanarMatchesYawRotation(t *testing.T) {
	v := r3.Vec{X: 0.3, Z: 1.7}
	heading := -0.9
	want := Planar(Rotate(YawRotation(heading), v))
	got := RotatePlanar(Planar(v), heading)
	assert.InDelta(t, want.X, got.X, 1e-9)
	assert.InDelta(t, want.Y, got.Y, 1e-9)
}

func TestInterpolate2DWrapsHeading(t *testing.T) {
	a := Transform2D{Heading: math.Pi - 0.1}
	b := Transform2D{Position: r2.Vec{X: 2}, Heading: -math.Pi + 0.1}
	mid := Interpolate2D(a, b, 0.5)
	assert.InDelta(t, 1, mid.Position.X, tol)
	assert.InDelta(t, math.Pi, math.Abs(mid.Heading), 1e-9)
}

func TestWrapAngle(t *testing.T) {
	tests := []struct{ in, want float64 }{
		{0, 0},
		{math.Pi, math.Pi},
		{-math.Pi, math.Pi},
		{3 * math.Pi / 2, -math.Pi / 2},
		{-5 * math.Pi / 2, -math.Pi / 2},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, WrapAngle(tt.in), 1e-9, "WrapAngle(%v)", tt.in)
	}
}
