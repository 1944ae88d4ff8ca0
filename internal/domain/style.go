package domain

import "math"

// Style carries rendering hints for a group's map overlay.
type Style struct {
	FillColor   string  `json:"fill_color" yaml:"fill_color"`
	StrokeColor string  `json:"stroke_color" yaml:"stroke_color"`
	FillOpacity float64 `json:"fill_opacity" yaml:"fill_opacity"`
	RadiusM     float64 `json:"radius_m" yaml:"radius_m"`
}

const (
	baseOverlayRadiusM = 20000.0
	maxOverlayGrowthM  = 40000.0
	overlayAreaFactor  = 25.0
	overlayPerRooftopM = 1500.0
	defaultFillOpacity = 0.2
	highlightedOpacity = 0.25
)

// StyleFor picks overlay colours by classification and sizes the circle by
// total area and member count.
func StyleFor(c Classification, m GroupMetrics) Style {
	growth := math.Sqrt(math.Max(m.TotalArea, 1))*overlayAreaFactor + float64(m.RooftopCount)*overlayPerRooftopM
	s := Style{RadiusM: baseOverlayRadiusM + math.Min(maxOverlayGrowthM, growth)}

	switch c {
	case ClassificationHigh:
		s.FillColor, s.StrokeColor, s.FillOpacity = "#22c55e", "#16a34a", highlightedOpacity
	case ClassificationMedium:
		s.FillColor, s.StrokeColor, s.FillOpacity = "#facc15", "#eab308", defaultFillOpacity
	default:
		s.FillColor, s.StrokeColor, s.FillOpacity = "#f87171", "#ef4444", defaultFillOpacity
	}
	return s
}
