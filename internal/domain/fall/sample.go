package fall

import (
	"fmt"
	"math"
)

// Sample is one 6-axis reading from the motion sensor in sensor-native units.
type Sample struct {
	// AX, AY and AZ are the signed acceleration components.
	AX, AY, AZ int16
	// GX, GY and GZ are the signed angular rate components.
	GX, GY, GZ int16
}

// Magnitude returns the rounded Euclidean norm of the acceleration vector.
func (s Sample) Magnitude() int64 {
	ax, ay, az := int64(s.AX), int64(s.AY), int64(s.AZ)

	return int64(math.Round(math.Sqrt(float64(ax*ax + ay*ay + az*az))))
}

// MaxRotation returns the largest absolute angular rate over the three axes.
func (s Sample) MaxRotation() int64 {
	return max(abs(int64(s.GX)), abs(int64(s.GY)), abs(int64(s.GZ)))
}

// String renders the sample for debug logs.
func (s Sample) String() string {
	return fmt.Sprintf("a=(%d,%d,%d) g=(%d,%d,%d)", s.AX, s.AY, s.AZ, s.GX, s.GY, s.GZ)
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}

	return v
}
