package scene

import (
	"math"
	"testing"
)

func TestEaseInOut(t *testing.T) {
	tests := []struct {
		p, want float64
	}{
		{0, 0},
		{0.5, 0.5},
		{1, 1},
		{0.25, 0.5 - 0.5*math.Cos(math.Pi/4)},
	}
	for _, tt := range tests {
		if got := EaseInOut(tt.p); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("EaseInOut(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestPulseIntensity(t *testing.T) {
	for seq := 0; seq < 10; seq++ {
		for ts := 0.0; ts < 5000; ts += 37 {
			v := PulseIntensity(ts, seq)
			if v < GlowBase-GlowAmplitude-1e-12 || v > GlowBase+GlowAmplitude+1e-12 {
				t.Fatalf("PulseIntensity(%v, %d) = %v outside pulse band", ts, seq, v)
			}
		}
	}

	want := GlowBase + GlowAmplitude*math.Sin(1000*GlowSpeed+2*GlowPhaseStep)
	if got := PulseIntensity(1000, 2); math.Abs(got-want) > 1e-12 {
		t.Errorf("PulseIntensity(1000, 2) = %v, want %v", got, want)
	}
}

func TestFocusPosition(t *testing.T) {
	start := Vec3{Z: 3.5}
	end := Vec3{X: 2.5}

	if pos, done := FocusPosition(start, end, -10); pos != start || done {
		t.Errorf("before start: (%v, %v)", pos, done)
	}
	if pos, done := FocusPosition(start, end, FocusDuration*2); pos != end || !done {
		t.Errorf("past end: (%v, %v)", pos, done)
	}
	pos, done := FocusPosition(start, end, FocusDuration/4)
	if done {
		t.Error("quarter way should not be done")
	}
	if want := start.Lerp(end, EaseInOut(0.25)); !approxVec(pos, want, 1e-12) {
		t.Errorf("quarter way = %v, want %v", pos, want)
	}
}

func TestFocusEnd(t *testing.T) {
	cam := Vec3{Z: 3.5}

	if got := FocusEnd(cam, Vec3{Y: 1.04}); !approxVec(got, Vec3{Y: FocusDistance}, 1e-12) {
		t.Errorf("FocusEnd = %v", got)
	}
	// A target at the origin has no direction; keep the camera's.
	if got := FocusEnd(cam, Vec3{}); !approxVec(got, Vec3{Z: FocusDistance}, 1e-12) {
		t.Errorf("FocusEnd(origin) = %v", got)
	}
}

func TestFollowStepConverges(t *testing.T) {
	cam := Vec3{Z: 3.5}
	target := Vec3{X: 1.04}

	for i := 0; i < 300; i++ {
		cam = FollowStep(cam, target)
	}
	dir := cam.Normalize()
	if !approxVec(dir, Vec3{X: 1}, 1e-3) {
		t.Errorf("after many steps camera direction = %v, want +X", dir)
	}
}

func TestFromGeodetic(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon float64
		want     Vec3
	}{
		{"null island", 0, 0, Vec3{X: 1.04}},
		{"north pole", 90, 0, Vec3{Y: 1.04}},
		{"lon 90", 0, 90, Vec3{Z: 1.04}},
		{"lon -180", 0, -180, Vec3{X: -1.04}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromGeodetic(tt.lat, tt.lon, 1.04)
			if !approxVec(got, tt.want, 1e-12) {
				t.Errorf("FromGeodetic = %v, want %v", got, tt.want)
			}
		})
	}

	for lat := -90.0; lat <= 90; lat += 15 {
		for lon := -180.0; lon <= 180; lon += 30 {
			if n := FromGeodetic(lat, lon, 1.04).Len(); math.Abs(n-1.04) > 1e-12 {
				t.Fatalf("|FromGeodetic(%v, %v)| = %v, want 1.04", lat, lon, n)
			}
		}
	}
}
