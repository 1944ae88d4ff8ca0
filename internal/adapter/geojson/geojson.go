// Package geojson renders classified groups and rooftops as GeoJSON for the
// map page.
package geojson

import (
	"encoding/json"
	"fmt"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sorasolar/site-api/internal/domain"
)

// Groups converts groups to a FeatureCollection. Grid cells become polygons
// of their bounds; clusters become points at their center.
func Groups(groups []domain.GeoGroup) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(groups))}
	for _, g := range groups {
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         g.ID,
			Geometry:   groupGeometry(g),
			Properties: groupProperties(g),
		})
	}
	return fc
}

// Rooftops converts rooftops to point features carrying the per-rooftop
// classification.
func Rooftops(rooftops []domain.Rooftop) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(rooftops))}
	for _, r := range rooftops {
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       r.ID,
			Geometry: point(r.Location()),
			Properties: map[string]any{
				"id":                r.ID,
				"address":           r.Address,
				"roof_type":         r.RoofType,
				"area_m2":           r.AreaM2,
				"estimated_panels":  r.EstimatedPanels,
				"sun_hours_per_day": r.SunHoursPerDay,
				"contact_ready":     r.ContactReady,
				"classification":    string(domain.ClassifyRooftop(r)),
			},
		})
	}
	return fc
}

// Marshal encodes a FeatureCollection.
func Marshal(fc *geojson.FeatureCollection) ([]byte, error) {
	data, err := json.Marshal(fc)
	if err != nil {
		return nil, fmt.Errorf("encode geojson: %w", err)
	}
	return data, nil
}

func groupGeometry(g domain.GeoGroup) geom.T {
	if g.Bounds == nil {
		return point(g.Center)
	}
	b := g.Bounds
	// GeoJSON rings are lng,lat and closed.
	ring := []float64{
		b.West, b.South,
		b.East, b.South,
		b.East, b.North,
		b.West, b.North,
		b.West, b.South,
	}
	return geom.NewPolygonFlat(geom.XY, ring, []int{len(ring)}).SetSRID(4326)
}

func point(p domain.Point) *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{p.Lng, p.Lat}).SetSRID(4326)
}

func groupProperties(g domain.GeoGroup) map[string]any {
	props := map[string]any{
		"id":                   g.ID,
		"strategy":             string(g.Strategy),
		"classification":       string(g.Classification),
		"rooftop_count":        g.Metrics.RooftopCount,
		"total_area":           g.Metrics.TotalArea,
		"total_panels":         g.Metrics.TotalPanels,
		"total_generation_mwh": g.Metrics.TotalGenerationMWh,
		"avg_sun_hours":        g.Metrics.AvgSunHours,
		"contact_ready_ratio":  g.Metrics.ContactReadyRatio,
		"fill_color":           g.Style.FillColor,
		"stroke_color":         g.Style.StrokeColor,
		"fill_opacity":         g.Style.FillOpacity,
		"radius_m":             g.Style.RadiusM,
	}
	if g.Name != "" {
		props["name"] = g.Name
	}
	if g.RadiusKM > 0 {
		props["radius_km"] = g.RadiusKM
	}
	if g.PlaceName != "" {
		props["place_name"] = g.PlaceName
	}
	ids := make([]string, len(g.Rooftops))
	for i, r := range g.Rooftops {
		ids[i] = r.ID
	}
	props["rooftop_ids"] = ids
	return props
}
