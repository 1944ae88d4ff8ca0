package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeMetrics(t *testing.T) {
	members := []Rooftop{
		{ID: "a", AreaM2: 1200, EstimatedPanels: 240, AnnualGenerationMWh: 310, SunHoursPerDay: 4.8, ContactReady: true},
		{ID: "b", AreaM2: 800.5, EstimatedPanels: 150, AnnualGenerationMWh: 190, SunHoursPerDay: 4.2, ContactReady: false},
		{ID: "c", AreaM2: 500, EstimatedPanels: 90, AnnualGenerationMWh: 120, SunHoursPerDay: 4.5, ContactReady: true},
		{ID: "d", AreaM2: 0, EstimatedPanels: 0, AnnualGenerationMWh: 0, SunHoursPerDay: 4.5, ContactReady: false},
	}

	m := ComputeMetrics(members)

	assert.Equal(t, 4, m.RooftopCount)
	assert.InDelta(t, 2500.5, m.TotalArea, 1e-9)
	assert.Equal(t, 480, m.TotalPanels)
	assert.InDelta(t, 620, m.TotalGenerationMWh, 1e-9)
	assert.InDelta(t, 4.5, m.AvgSunHours, 1e-9)
	assert.InDelta(t, 0.5, m.ContactReadyRatio, 1e-12)
}

func TestComputeMetrics_EmptyIsZeroNotNaN(t *testing.T) {
	for _, members := range [][]Rooftop{nil, {}} {
		m := ComputeMetrics(members)

		assert.Equal(t, GroupMetrics{}, m)
		assert.False(t, math.IsNaN(m.AvgSunHours))
		assert.False(t, math.IsNaN(m.ContactReadyRatio))
	}
}

func TestComputeMetrics_RatioBounds(t *testing.T) {
	cases := [][]Rooftop{
		{{ContactReady: true}},
		{{ContactReady: false}},
		{{ContactReady: true}, {ContactReady: false}, {ContactReady: false}},
	}
	for _, members := range cases {
		m := ComputeMetrics(members)
		assert.GreaterOrEqual(t, m.ContactReadyRatio, 0.0)
		assert.LessOrEqual(t, m.ContactReadyRatio, 1.0)
		assert.GreaterOrEqual(t, m.AvgSunHours, 0.0)
	}
}
