package domain

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rooftop(id string, lat, lng, sun float64, ready bool) Rooftop {
	return Rooftop{
		ID:              id,
		Latitude:        lat,
		Longitude:       lng,
		AreaM2:          1000,
		EstimatedPanels: 200,
		SunHoursPerDay:  sun,
		ContactReady:    ready,
	}
}

func TestGridPartitioner_BucketWorkedExample(t *testing.T) {
	g := NewGridPartitioner(0.8, DefaultGridThresholds())

	latB, lngB := g.Bucket(35.0, 139.0)
	assert.Equal(t, 43, latB)
	assert.Equal(t, 173, lngB)

	b := g.CellBounds(latB, lngB)
	assert.InDelta(t, 34.4, b.South, 1e-9)
	assert.InDelta(t, 35.2, b.North, 1e-9)
	assert.InDelta(t, 138.4, b.West, 1e-9)
	assert.InDelta(t, 139.2, b.East, 1e-9)
	assert.True(t, b.Contains(Point{Lat: 35.0, Lng: 139.0}))
}

func TestGridPartitioner_BoundsContainPoint(t *testing.T) {
	cellSizes := []float64{0.8, 0.1, 0.25, 1, 0.3}
	edgeCases := []Point{
		{Lat: 0, Lng: 0},
		{Lat: 2.4, Lng: 0.8},     // exact multiples of 0.8
		{Lat: -0.8, Lng: -139.2}, // negative edges
		{Lat: 0.3, Lng: 0.9},     // 0.3/0.1 rounds up
		{Lat: 35.6895, Lng: 139.6917},
		{Lat: -33.8688, Lng: 151.2093},
	}

	rng := rand.New(rand.NewPCG(1, 2))
	for range 500 {
		edgeCases = append(edgeCases, Point{Lat: rng.Float64()*180 - 90, Lng: rng.Float64()*360 - 180})
	}

	for _, size := range cellSizes {
		g := NewGridPartitioner(size, DefaultGridThresholds())
		for _, p := range edgeCases {
			b := g.CellBounds(g.Bucket(p.Lat, p.Lng))
			assert.Truef(t, b.Contains(p), "cell size %g: %+v not in %+v", size, p, b)
		}
	}
}

func TestGridPartitioner_PartitionsInputExactly(t *testing.T) {
	rooftops := []Rooftop{
		rooftop("rt-1", 35.68, 139.76, 4.7, true),
		rooftop("rt-2", 35.66, 139.70, 4.5, false),
		rooftop("rt-3", 34.69, 135.50, 4.9, true),
		rooftop("rt-4", 35.44, 139.64, 4.4, true),
		rooftop("rt-5", 33.59, 130.40, 4.1, false),
	}
	g := NewGridPartitioner(DefaultCellSize, DefaultGridThresholds())

	parts := g.Partition(rooftops)

	seen := make(map[string]int)
	for _, p := range parts {
		require.NotEmpty(t, p.Members, "grid never materializes empty cells")
		require.NotNil(t, p.Bounds)
		for _, r := range p.Members {
			seen[r.ID]++
			assert.True(t, p.Bounds.Contains(r.Location()))
		}
	}
	require.Len(t, seen, len(rooftops))
	for id, n := range seen {
		assert.Equalf(t, 1, n, "%s appears in %d cells", id, n)
	}
}

func TestGridPartitioner_OrderAndKeys(t *testing.T) {
	rooftops := []Rooftop{
		rooftop("south", 33.59, 130.42, 4.5, true),
		rooftop("north-east", 35.68, 139.76, 4.5, true),
		rooftop("north-west", 35.68, 135.10, 4.5, true),
	}
	g := NewGridPartitioner(0.8, DefaultGridThresholds())

	parts := g.Partition(rooftops)

	require.Len(t, parts, 3)
	assert.Equal(t, "44:168", parts[0].ID)
	assert.Equal(t, "44:174", parts[1].ID)
	assert.Equal(t, "41:163", parts[2].ID)
	assert.Equal(t, parts[0].Bounds.Center(), parts[0].Center)
}

func TestGridPartitioner_EmptyInput(t *testing.T) {
	g := NewGridPartitioner(0.8, DefaultGridThresholds())
	assert.Empty(t, Summarize(g, nil))
}

func TestClusterPartitioner_OverlapAndEmpty(t *testing.T) {
	clusters := []Cluster{
		{ID: "a", Name: "A", Center: Point{Lat: 35.68, Lng: 139.76}, RadiusKM: 20},
		{ID: "b", Name: "B", Center: Point{Lat: 35.60, Lng: 139.70}, RadiusKM: 20},
		{ID: "empty", Name: "Empty", Center: Point{Lat: 43.06, Lng: 141.35}, RadiusKM: 10},
	}
	rooftops := []Rooftop{
		rooftop("both", 35.64, 139.73, 4.8, true),
		rooftop("far", 34.69, 135.50, 4.8, true),
	}
	c := NewClusterPartitioner(clusters, DefaultClusterThresholds())

	parts := c.Partition(rooftops)

	require.Len(t, parts, 3)
	assert.Equal(t, []string{"a", "b", "empty"}, []string{parts[0].ID, parts[1].ID, parts[2].ID})
	require.Len(t, parts[0].Members, 1)
	require.Len(t, parts[1].Members, 1)
	assert.Equal(t, "both", parts[0].Members[0].ID)
	assert.Equal(t, "both", parts[1].Members[0].ID)
	assert.Empty(t, parts[2].Members)
	assert.Nil(t, parts[0].Bounds)
	assert.Equal(t, 20.0, parts[0].RadiusKM)
}

func TestClusterPartitioner_RadiusIsInclusive(t *testing.T) {
	center := Point{Lat: 35.0, Lng: 139.0}
	p := Point{Lat: 35.1, Lng: 139.0}
	d := HaversineKM(center, p)

	cl := Cluster{ID: "edge", Center: center, RadiusKM: d}
	assert.True(t, cl.Contains(p))

	cl.RadiusKM = d - 0.001
	assert.False(t, cl.Contains(p))
}

func TestSummarize_EmptyClusterIsLowWithZeroMetrics(t *testing.T) {
	c := NewClusterPartitioner([]Cluster{
		{ID: "sapporo", Name: "Sapporo", Center: Point{Lat: 43.06, Lng: 141.35}, RadiusKM: 20},
	}, DefaultClusterThresholds())

	groups := Summarize(c, []Rooftop{rooftop("tokyo", 35.68, 139.76, 5.0, true)})

	require.Len(t, groups, 1)
	g := groups[0]
	assert.Equal(t, GroupMetrics{}, g.Metrics)
	assert.Equal(t, ClassificationLow, g.Classification)
	assert.NotNil(t, g.Rooftops)
	assert.Empty(t, g.Rooftops)
	assert.Equal(t, StrategyCluster, g.Strategy)
}

func TestSummarize_AllClustersWithNoRooftops(t *testing.T) {
	c := NewClusterPartitioner(DefaultClusters(), DefaultClusterThresholds())

	groups := Summarize(c, nil)

	require.Len(t, groups, len(DefaultClusters()))
	for _, g := range groups {
		assert.Equal(t, ClassificationLow, g.Classification)
		assert.Zero(t, g.Metrics.AvgSunHours)
		assert.Zero(t, g.Metrics.ContactReadyRatio)
	}
}

func TestSummarize_SingleShadedRooftop(t *testing.T) {
	r := rooftop("shaded", 35.68, 139.76, 4.0, false)
	c := NewClusterPartitioner([]Cluster{
		{ID: "tokyo", Name: "Tokyo", Center: Point{Lat: 35.68, Lng: 139.76}, RadiusKM: 5},
	}, DefaultClusterThresholds())

	groups := Summarize(c, []Rooftop{r})

	require.Len(t, groups, 1)
	assert.Equal(t, ClassificationLow, groups[0].Classification)
	assert.Equal(t, ClassificationLow, ClassifyRooftop(r))
}

func TestSummarize_UniformSunnyGroupIsHigh(t *testing.T) {
	rooftops := []Rooftop{
		rooftop("rt-1", 35.61, 139.71, 4.8, true),
		rooftop("rt-2", 35.62, 139.72, 4.8, true),
		rooftop("rt-3", 35.63, 139.73, 4.8, true),
	}
	g := NewGridPartitioner(0.8, DefaultGridThresholds())

	groups := Summarize(g, rooftops)

	require.Len(t, groups, 1)
	assert.InDelta(t, 1.0, groups[0].Metrics.ContactReadyRatio, 1e-12)
	assert.InDelta(t, 4.8, groups[0].Metrics.AvgSunHours, 1e-12)
	assert.Equal(t, ClassificationHigh, groups[0].Classification)
	assert.Equal(t, "#22c55e", groups[0].Style.FillColor)
}

func TestSummarize_DoesNotMutateInput(t *testing.T) {
	rooftops := []Rooftop{
		rooftop("rt-1", 35.61, 139.71, 4.8, true),
		rooftop("rt-2", 34.69, 135.50, 4.1, false),
	}
	snapshot := append([]Rooftop(nil), rooftops...)

	Summarize(NewGridPartitioner(0.8, DefaultGridThresholds()), rooftops)
	Summarize(NewClusterPartitioner(DefaultClusters(), DefaultClusterThresholds()), rooftops)

	assert.Equal(t, snapshot, rooftops)
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("grid")
	require.NoError(t, err)
	assert.Equal(t, StrategyGrid, s)

	s, err = ParseStrategy(" Cluster ")
	require.NoError(t, err)
	assert.Equal(t, StrategyCluster, s)

	_, err = ParseStrategy("hexbin")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownStrategy))
}

func TestDefaultClusters_UniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for _, c := range DefaultClusters() {
		assert.False(t, seen[c.ID], "duplicate cluster id %s", c.ID)
		seen[c.ID] = true
		assert.Positive(t, c.RadiusKM)
	}
}
