package fall

import (
	"errors"
	"fmt"
)

// Thresholds classify acceleration magnitudes and angular rates.
// All values are in sensor-native units; the defaults are calibrated for the ±2g range.
type Thresholds struct {
	// OneG is the magnitude that corresponds to 1 g.
	OneG int64 `yaml:"one_g"`
	// FreeFall is the magnitude below which the wearer is considered falling.
	FreeFall int64 `yaml:"free_fall_threshold"`
	// Impact is the magnitude above which a free fall is considered to have hit the ground.
	Impact int64 `yaml:"impact_threshold"`
	// StandingMin is the exclusive lower bound of the standing band.
	StandingMin int64 `yaml:"standing_min"`
	// StandingMax is the exclusive upper bound of the standing band.
	StandingMax int64 `yaml:"standing_max"`
	// Rotation is the per-axis angular rate that counts as deliberate movement.
	Rotation int64 `yaml:"rotation_threshold"`
}

// Default thresholds for an MPU6050 in its default ±2g range.
const (
	DefaultOneG        = 16384
	DefaultFreeFall    = 8000
	DefaultImpact      = 40000
	DefaultStandingMin = 14000
	DefaultStandingMax = 19000
	DefaultRotation    = 3000
)

var errThresholdOrder = errors.New("thresholds are not ordered")

// DefaultThresholds returns the calibration used by the wristband hardware.
func DefaultThresholds() Thresholds {
	return Thresholds{
		OneG:        DefaultOneG,
		FreeFall:    DefaultFreeFall,
		Impact:      DefaultImpact,
		StandingMin: DefaultStandingMin,
		StandingMax: DefaultStandingMax,
		Rotation:    DefaultRotation,
	}
}

// Validate checks that the thresholds describe a usable classification.
// Free fall must sit below the standing band, which must sit below impact.
func (t Thresholds) Validate() error {
	switch {
	case t.OneG <= 0, t.FreeFall <= 0, t.Rotation <= 0:
		return fmt.Errorf("%w: one_g, free_fall_threshold and rotation_threshold must be positive", errThresholdOrder)
	case t.FreeFall >= t.StandingMin:
		return fmt.Errorf("%w: free_fall_threshold %d >= standing_min %d", errThresholdOrder, t.FreeFall, t.StandingMin)
	case t.StandingMin >= t.StandingMax:
		return fmt.Errorf("%w: standing_min %d >= standing_max %d", errThresholdOrder, t.StandingMin, t.StandingMax)
	case t.StandingMax >= t.Impact:
		return fmt.Errorf("%w: standing_max %d >= impact_threshold %d", errThresholdOrder, t.StandingMax, t.Impact)
	}

	return nil
}

// IsFreeFall reports whether magnitude is below the free-fall threshold.
func (t Thresholds) IsFreeFall(magnitude int64) bool {
	return magnitude < t.FreeFall
}

// IsImpact reports whether magnitude is above the impact threshold.
func (t Thresholds) IsImpact(magnitude int64) bool {
	return magnitude > t.Impact
}

// IsRecovery reports whether the sample looks like the wearer standing back up:
// magnitude inside the standing band and movement on at least one axis.
func (t Thresholds) IsRecovery(magnitude int64, s Sample) bool {
	return magnitude > t.StandingMin && magnitude < t.StandingMax && s.MaxRotation() > t.Rotation
}

// InG converts a magnitude to multiples of g.
func (t Thresholds) InG(magnitude int64) float64 {
	if t.OneG == 0 {
		return 0
	}

	return float64(magnitude) / float64(t.OneG)
}
