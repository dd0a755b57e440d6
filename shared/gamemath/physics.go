package gamemath

import "github.com/MekelWibi/SumoProjectKP/shared/netconfig"

// ApplyFriction reduces speed toward zero by friction amount.
func ApplyFriction(speed, friction float64) float64 {
	if speed > friction {
		return speed - friction
	}
	if speed < -friction {
		return speed + friction
	}
	return 0
}

// ClampSpeed clamps a value to [-max, max].
func ClampSpeed(speed, max float64) float64 {
	if speed > max {
		return max
	}
	if speed < -max {
		return -max
	}
	return speed
}

// MoveDirection turns raw input axes into a ground-plane direction of at most
// unit length.
func MoveDirection(horizontal, forward float64) Vec3 {
	return Vec3{X: horizontal, Z: forward}.Normalized()
}

// Movement tunes the avatar integration step, in arena pixels and seconds.
type Movement struct {
	Acceleration float64
	Friction     float64
	MaxSpeed     float64
}

// Step applies input acceleration, ground friction and the speed clamp to vel
// over secs. It returns the new velocity and the displacement to apply.
func (m Movement) Step(vel Vec3, horizontal, forward, secs float64) (Vec3, Vec3) {
	dir := MoveDirection(horizontal, forward)
	vel = vel.Add(dir.Scale(m.Acceleration * secs))

	vel.X = ApplyFriction(vel.X, m.Friction*secs)
	vel.Z = ApplyFriction(vel.Z, m.Friction*secs)

	if l := vel.Len(); l > m.MaxSpeed {
		vel = vel.Scale(m.MaxSpeed / l)
	}
	return vel, vel.Scale(secs)
}

// AvatarMovement is the avatar step used by the authority and by participant
// prediction.
var AvatarMovement = Movement{
	Acceleration: netconfig.PlayerSpeed * netconfig.UnitScale * 4,
	Friction:     2.0 * netconfig.UnitScale,
	MaxSpeed:     20.0 * netconfig.UnitScale,
}
