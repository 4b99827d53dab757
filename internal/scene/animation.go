package scene

import "math"

// Glow and camera animation constants. Timestamps are milliseconds from an
// arbitrary monotonic origin, as delivered by the frame scheduler.
const (
	GlowDefault   = 0.3
	GlowSelected  = 1.2
	GlowBase      = 0.3
	GlowAmplitude = 0.08
	GlowSpeed     = 0.003 // radians per ms
	GlowPhaseStep = 0.5   // phase offset per registration

	FollowFactor   = 0.05
	FocusDistance  = 2.5
	FocusDuration  = 1200.0 // ms
	focusCompleted = 1.0
)

// PulseIntensity is the glow of an unselected entity registered as the
// seq-th entity, at timestamp ts. The result is clamped to [0, 1].
func PulseIntensity(ts float64, seq int) float64 {
	v := GlowBase + GlowAmplitude*math.Sin(ts*GlowSpeed+float64(seq)*GlowPhaseStep)
	return math.Max(0, math.Min(1, v))
}

// EaseInOut is the cosine ease for progress p in [0, 1].
func EaseInOut(p float64) float64 {
	return 0.5 - 0.5*math.Cos(math.Pi*p)
}

// direction returns the unit vector towards target, falling back to the
// camera's own direction when target sits at the origin.
func direction(camera, target Vec3) Vec3 {
	if dir := target.Normalize(); !dir.IsZero() {
		return dir
	}
	if dir := camera.Normalize(); !dir.IsZero() {
		return dir
	}
	return DefaultCameraPosition.Normalize()
}

// FollowStep moves camera a fraction FollowFactor towards the point in
// target's direction at the camera's current distance from the origin.
func FollowStep(camera, target Vec3) Vec3 {
	desired := direction(camera, target).Scale(camera.Len())
	return camera.Lerp(desired, FollowFactor)
}

// FocusEnd is the point the focus animation flies to for target.
func FocusEnd(camera, target Vec3) Vec3 {
	return direction(camera, target).Scale(FocusDistance)
}

// FocusPosition is the camera position elapsed ms into a focus animation
// from start to end. done is true once the duration has passed.
func FocusPosition(start, end Vec3, elapsed float64) (pos Vec3, done bool) {
	p := elapsed / FocusDuration
	if p < 0 {
		p = 0
	}
	if p >= focusCompleted {
		return end, true
	}
	return start.Lerp(end, EaseInOut(p)), false
}

// focusAnimation is the single in-flight camera focus. startTS is set by the
// first tick after the animation is triggered.
type focusAnimation struct {
	start   Vec3
	end     Vec3
	startTS float64
	started bool
}
