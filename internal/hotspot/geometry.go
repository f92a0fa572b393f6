package hotspot

import (
	"fmt"
	"math"
)

// Pose is the viewer's look direction in radians. Yaw 0 faces -Z,
// positive yaw turns right; positive pitch looks up.
type Pose struct {
	Yaw   float64 `json:"yaw"`
	Pitch float64 `json:"pitch"`
}

// maxPitch keeps anchors off the sphere poles, where markers from
// devices with different vertical offsets stop lining up.
const maxPitch = 80 * math.Pi / 180

// Project computes the anchor position at distance along the pose's
// forward vector. Placement edits that change only the distance must go
// through this same function so the two paths cannot drift.
func Project(pose Pose, distance float64) Position {
	pitch := clampPitch(pose.Pitch)

	x := distance * math.Cos(pitch) * math.Sin(pose.Yaw)
	y := distance * math.Sin(pitch)
	z := -distance * math.Cos(pitch) * math.Cos(pose.Yaw)

	return Position{
		X:         x,
		Y:         y,
		Z:         z,
		Placement: fmt.Sprintf("%.3f %.3f %.3f", x, y, z),
	}
}

// PoseOf recovers the look direction a position was projected from, so
// distance edits can re-project without storing the original pose.
func PoseOf(p Position) Pose {
	d := math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
	if d == 0 {
		return Pose{}
	}
	return Pose{
		Yaw:   math.Atan2(p.X, -p.Z),
		Pitch: math.Asin(p.Y / d),
	}
}

func clampPitch(pitch float64) float64 {
	if pitch > maxPitch {
		return maxPitch
	}
	if pitch < -maxPitch {
		return -maxPitch
	}
	return pitch
}
