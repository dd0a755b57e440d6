package gamemath

import "math"

// Vec3 is a world-space vector. Y is up; avatars move on the XZ plane.
type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

func (v Vec3) Scale(k float64) Vec3 {
	return Vec3{X: v.X * k, Y: v.Y * k, Z: v.Z * k}
}

func (v Vec3) Len() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Normalized returns the unit vector in the direction of v. The zero vector
// stays zero.
func (v Vec3) Normalized() Vec3 {
	l := v.Len()
	if l == 0 {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

// KnockbackImpulse returns the impulse applied to the receiver when the
// initiator bumps into it: away from the initiator, scaled by strongK when the
// initiator is powered up and weakK otherwise.
func KnockbackImpulse(initiator, receiver Vec3, strong bool, strongK, weakK float64) Vec3 {
	k := weakK
	if strong {
		k = strongK
	}
	return receiver.Sub(initiator).Normalized().Scale(k)
}

// Redirect keeps the direction of force but replaces its magnitude.
func Redirect(force Vec3, magnitude float64) Vec3 {
	return force.Normalized().Scale(magnitude)
}
