package domain

import "fmt"

// Classification is the three-tier solar potential label.
type Classification string

const (
	ClassificationHigh   Classification = "high"
	ClassificationMedium Classification = "medium"
	ClassificationLow    Classification = "low"
)

// Thresholds are the tunable cut-offs for group classification.
type Thresholds struct {
	HighSunHours   float64 `json:"high_sun_hours" yaml:"high_sun_hours" mapstructure:"high_sun_hours"`
	HighReadyRatio float64 `json:"high_ready_ratio" yaml:"high_ready_ratio" mapstructure:"high_ready_ratio"`
	LowSunHours    float64 `json:"low_sun_hours" yaml:"low_sun_hours" mapstructure:"low_sun_hours"`
	LowReadyRatio  float64 `json:"low_ready_ratio" yaml:"low_ready_ratio" mapstructure:"low_ready_ratio"`
}

// Grid strategy defaults.
const (
	GridHighSunHours   = 4.6
	GridHighReadyRatio = 0.5
	GridLowSunHours    = 4.3
	GridLowReadyRatio  = 0.25
)

// Cluster strategy defaults.
const (
	ClusterHighSunHours   = 4.6
	ClusterHighReadyRatio = 0.45
	ClusterLowSunHours    = 4.2
	ClusterLowReadyRatio  = 0.25
)

// Per-rooftop marker rule.
const (
	RooftopHighSunHours = 4.6
	RooftopLowSunHours  = 4.2
)

// DefaultGridThresholds returns the thresholds used by the grid strategy.
func DefaultGridThresholds() Thresholds {
	return Thresholds{
		HighSunHours:   GridHighSunHours,
		HighReadyRatio: GridHighReadyRatio,
		LowSunHours:    GridLowSunHours,
		LowReadyRatio:  GridLowReadyRatio,
	}
}

// DefaultClusterThresholds returns the thresholds used by the cluster strategy.
func DefaultClusterThresholds() Thresholds {
	return Thresholds{
		HighSunHours:   ClusterHighSunHours,
		HighReadyRatio: ClusterHighReadyRatio,
		LowSunHours:    ClusterLowSunHours,
		LowReadyRatio:  ClusterLowReadyRatio,
	}
}

// Validate checks that ratios are within [0,1] and sun hours within [0,24].
func (t Thresholds) Validate() error {
	if err := checkRange("high_sun_hours", t.HighSunHours, 24); err != nil {
		return err
	}
	if err := checkRange("high_ready_ratio", t.HighReadyRatio, 1); err != nil {
		return err
	}
	if err := checkRange("low_sun_hours", t.LowSunHours, 24); err != nil {
		return err
	}
	return checkRange("low_ready_ratio", t.LowReadyRatio, 1)
}

// Classify labels a group from its metrics. The high check runs before the
// low check, so metrics meeting both resolve to high.
func (t Thresholds) Classify(m GroupMetrics) Classification {
	switch {
	case m.AvgSunHours >= t.HighSunHours && m.ContactReadyRatio >= t.HighReadyRatio:
		return ClassificationHigh
	case m.AvgSunHours < t.LowSunHours || m.ContactReadyRatio < t.LowReadyRatio:
		return ClassificationLow
	default:
		return ClassificationMedium
	}
}

func checkRange(name string, v, upper float64) error {
	if v < 0 || v > upper {
		return fmt.Errorf("%s must be between 0 and %g, got %g", name, upper, v)
	}
	return nil
}

// ClassifyRooftop labels a single rooftop for marker colouring,
// independent of any group it belongs to.
func ClassifyRooftop(r Rooftop) Classification {
	switch {
	case r.SunHoursPerDay >= RooftopHighSunHours && r.ContactReady:
		return ClassificationHigh
	case r.SunHoursPerDay < RooftopLowSunHours && !r.ContactReady:
		return ClassificationLow
	default:
		return ClassificationMedium
	}
}
