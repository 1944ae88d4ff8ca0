// Package export writes classified groups to spreadsheet and document
// formats for offline review by the sales team.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/tealeg/xlsx/v2"
	"gopkg.in/yaml.v3"

	"github.com/sorasolar/site-api/internal/adapter/geojson"
	"github.com/sorasolar/site-api/internal/domain"
)

// Format names an export encoding.
type Format string

const (
	FormatXLSX    Format = "xlsx"
	FormatYAML    Format = "yaml"
	FormatJSON    Format = "json"
	FormatGeoJSON Format = "geojson"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatXLSX, FormatYAML, FormatJSON, FormatGeoJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown export format %q (want xlsx, yaml, json, or geojson)", s)
	}
}

// Report is the exported document.
type Report struct {
	Strategy domain.Strategy   `json:"strategy" yaml:"strategy"`
	Groups   []domain.GeoGroup `json:"groups" yaml:"groups"`
}

// Write encodes the groups in the given format.
func Write(w io.Writer, format Format, strategy domain.Strategy, groups []domain.GeoGroup) error {
	switch format {
	case FormatXLSX:
		return WriteXLSX(w, groups)
	case FormatYAML:
		return WriteYAML(w, Report{Strategy: strategy, Groups: groups})
	case FormatJSON:
		return WriteJSON(w, Report{Strategy: strategy, Groups: groups})
	case FormatGeoJSON:
		data, err := geojson.Marshal(geojson.Groups(groups))
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("export json: %w", err)
	}
	return nil
}

// WriteYAML writes the report as YAML.
func WriteYAML(w io.Writer, r Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("export yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("export yaml: %w", err)
	}
	return nil
}

var (
	groupHeader = []string{
		"id", "name", "strategy", "place_name", "center_lat", "center_lng",
		"rooftop_count", "total_area_m2", "total_panels", "total_generation_mwh",
		"avg_sun_hours", "contact_ready_ratio", "classification",
	}
	rooftopHeader = []string{
		"group_id", "rooftop_id", "address", "latitude", "longitude", "area_m2",
		"estimated_panels", "sun_hours_per_day", "contact_ready", "classification",
	}
)

// WriteXLSX writes a workbook with a "groups" summary sheet and a
// "rooftops" sheet listing every membership. A rooftop in two overlapping
// clusters appears twice.
func WriteXLSX(w io.Writer, groups []domain.GeoGroup) error {
	f := xlsx.NewFile()

	groupSheet, err := f.AddSheet("groups")
	if err != nil {
		return fmt.Errorf("export xlsx: %w", err)
	}
	addHeader(groupSheet, groupHeader)
	for _, g := range groups {
		row := groupSheet.AddRow()
		addStrings(row, g.ID, g.Name, string(g.Strategy), g.PlaceName)
		addFloats(row, g.Center.Lat, g.Center.Lng)
		row.AddCell().SetInt(g.Metrics.RooftopCount)
		row.AddCell().SetFloat(g.Metrics.TotalArea)
		row.AddCell().SetInt(g.Metrics.TotalPanels)
		addFloats(row, g.Metrics.TotalGenerationMWh, g.Metrics.AvgSunHours, g.Metrics.ContactReadyRatio)
		addStrings(row, string(g.Classification))
	}

	rooftopSheet, err := f.AddSheet("rooftops")
	if err != nil {
		return fmt.Errorf("export xlsx: %w", err)
	}
	addHeader(rooftopSheet, rooftopHeader)
	for _, g := range groups {
		for _, r := range g.Rooftops {
			row := rooftopSheet.AddRow()
			addStrings(row, g.ID, r.ID, r.Address)
			addFloats(row, r.Latitude, r.Longitude, r.AreaM2)
			row.AddCell().SetInt(r.EstimatedPanels)
			addFloats(row, r.SunHoursPerDay)
			row.AddCell().SetBool(r.ContactReady)
			addStrings(row, string(domain.ClassifyRooftop(r)))
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("export xlsx: %w", err)
	}
	return nil
}

func addHeader(sheet *xlsx.Sheet, names []string) {
	row := sheet.AddRow()
	addStrings(row, names...)
}

func addStrings(row *xlsx.Row, values ...string) {
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

func addFloats(row *xlsx.Row, values ...float64) {
	for _, v := range values {
		row.AddCell().SetFloat(v)
	}
}
