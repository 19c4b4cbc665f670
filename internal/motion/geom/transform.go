// Package geom holds the rigid-transform math shared by the motion layers.
//
// Conventions: Y is up and the ground plane is XZ. A planar r2.Vec stores
// world (X, Z) in its (X, Y) fields. A root joint faces local +Z; a heading
// of θ maps local +Z to world (sin θ, 0, cos θ).
package geom

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	UnitX = r3.Vec{X: 1}
	UnitY = r3.Vec{Y: 1}
	UnitZ = r3.Vec{Z: 1}
)

// slerpLinearThreshold is the quaternion dot product above which Slerp
// falls back to normalised linear interpolation.
const slerpLinearThreshold = 0.9995

// Transform is a rigid transform: rotate by Rotation, then translate.
// Rotation is a unit quaternion.
type Transform struct {
	Rotation    quat.Number
	Translation r3.Vec
}

// IdentityRotation is the unit quaternion with no rotation.
var IdentityRotation = quat.Number{Real: 1}

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{Rotation: IdentityRotation}
}

// AxisAngle returns the rotation of angle radians about axis.
func AxisAngle(axis r3.Vec, angle float64) quat.Number {
	return quat.Number(r3.NewRotation(angle, axis))
}

// Rotate applies the unit quaternion q to v.
func Rotate(q quat.Number, v r3.Vec) r3.Vec {
	return r3.Rotation(q).Rotate(v)
}

// Normalize returns q scaled to unit length. The zero quaternion maps to identity.
func Normalize(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n == 0 || math.IsNaN(n) {
		return IdentityRotation
	}
	return quat.Scale(1/n, q)
}

// Apply transforms the point p.
func (t Transform) Apply(p r3.Vec) r3.Vec {
	return r3.Add(Rotate(t.Rotation, p), t.Translation)
}

// Mul returns the composition a·b, which applies b first and then a.
func Mul(a, b Transform) Transform {
	return Transform{
		Rotation:    Normalize(quat.Mul(a.Rotation, b.Rotation)),
		Translation: r3.Add(Rotate(a.Rotation, b.Translation), a.Translation),
	}
}

// Inverse returns the transform that undoes t.
func (t Transform) Inverse() Transform {
	inv := quat.Conj(t.Rotation)
	return Transform{
		Rotation:    inv,
		Translation: r3.Scale(-1, Rotate(inv, t.Translation)),
	}
}

// Lerp linearly interpolates between two vectors.
func Lerp(a, b r3.Vec, t float64) r3.Vec {
	return r3.Add(a, r3.Scale(t, r3.Sub(b, a)))
}

// Slerp spherically interpolates between two unit quaternions along the
// shorter arc.
func Slerp(a, b quat.Number, t float64) quat.Number {
	dot := a.Real*b.Real + a.Imag*b.Imag + a.Jmag*b.Jmag + a.Kmag*b.Kmag
	if dot < 0 {
		b = quat.Scale(-1, b)
		dot = -dot
	}
	if dot > slerpLinearThreshold {
		return Normalize(quat.Add(a, quat.Scale(t, quat.Sub(b, a))))
	}
	theta := math.Acos(dot)
	sin := math.Sin(theta)
	wa := math.Sin((1-t)*theta) / sin
	wb := math.Sin(t*theta) / sin
	return Normalize(quat.Add(quat.Scale(wa, a), quat.Scale(wb, b)))
}

// Interpolate blends two transforms: linear on translation, spherical on rotation.
func Interpolate(a, b Transform, t float64) Transform {
	return Transform{
		Rotation:    Slerp(a.Rotation, b.Rotation, t),
		Translation: Lerp(a.Translation, b.Translation, t),
	}
}

// Yaw returns the planar heading of q: the angle of its rotated +Z axis
// projected onto the ground plane. A forward axis pointing straight up or
// down has no heading and reports 0.
func Yaw(q quat.Number) float64 {
	f := Rotate(q, UnitZ)
	if math.Hypot(f.X, f.Z) < 1e-9 {
		return 0
	}
	return math.Atan2(f.X, f.Z)
}

// YawRotation returns a rotation of heading radians about +Y.
func YawRotation(heading float64) quat.Number {
	return AxisAngle(UnitY, heading)
}

// StripYaw removes the heading component from q, leaving pitch and roll
// relative to a forward-facing frame.
func StripYaw(q quat.Number) quat.Number {
	return Normalize(quat.Mul(quat.Conj(YawRotation(Yaw(q))), q))
}

// AngleBetween returns the rotation angle in radians separating two unit quaternions.
func AngleBetween(a, b quat.Number) float64 {
	dot := math.Abs(a.Real*b.Real + a.Imag*b.Imag + a.Jmag*b.Jmag + a.Kmag*b.Kmag)
	if dot > 1 {
		dot = 1
	}
	return 2 * math.Acos(dot)
}
