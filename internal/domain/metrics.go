package domain

// GroupMetrics aggregates a group's member rooftops.
// RooftopCount and TotalGenerationMWh are informational and never feed classification.
type GroupMetrics struct {
	RooftopCount       int     `json:"rooftop_count" yaml:"rooftop_count"`
	TotalArea          float64 `json:"total_area" yaml:"total_area"`
	TotalPanels        int     `json:"total_panels" yaml:"total_panels"`
	TotalGenerationMWh float64 `json:"total_generation_mwh" yaml:"total_generation_mwh"`
	AvgSunHours        float64 `json:"avg_sun_hours" yaml:"avg_sun_hours"`
	ContactReadyRatio  float64 `json:"contact_ready_ratio" yaml:"contact_ready_ratio"`
}

// ComputeMetrics sums and averages the members. An empty slice yields the
// zero value, so averages and ratios are 0 rather than NaN.
func ComputeMetrics(members []Rooftop) GroupMetrics {
	var (
		m        GroupMetrics
		sunTotal float64
		ready    int
	)
	for _, r := range members {
		m.TotalArea += r.AreaM2
		m.TotalPanels += r.EstimatedPanels
		m.TotalGenerationMWh += r.AnnualGenerationMWh
		sunTotal += r.SunHoursPerDay
		if r.ContactReady {
			ready++
		}
	}

	n := len(members)
	m.RooftopCount = n
	if n == 0 {
		return m
	}
	m.AvgSunHours = sunTotal / float64(n)
	m.ContactReadyRatio = float64(ready) / float64(n)
	return m
}
