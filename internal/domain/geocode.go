package domain

import (
	"context"
	"log/slog"
)

// LabelGroups reverse-geocodes each group's center and sets PlaceName.
// A nil geocoder or a failed lookup leaves the group unlabelled; the map
// still renders without place names. The input slice is not modified.
func LabelGroups(ctx context.Context, groups []GeoGroup, geocoder Geocoder, logger *slog.Logger) []GeoGroup {
	if geocoder == nil {
		return groups
	}

	labelled := make([]GeoGroup, len(groups))
	copy(labelled, groups)

	for i := range labelled {
		if ctx.Err() != nil {
			return labelled
		}
		g := &labelled[i]
		result, err := geocoder.ReverseGeocode(ctx, g.Center.Lat, g.Center.Lng)
		if err != nil {
			logger.Warn("reverse geocoding failed",
				"group_id", g.ID,
				"lat", g.Center.Lat,
				"lng", g.Center.Lng,
				"error", err,
			)
			continue
		}
		switch {
		case result.PlaceName != "":
			g.PlaceName = result.PlaceName
		case result.FormattedAddress != "":
			g.PlaceName = result.FormattedAddress
		}
	}
	return labelled
}
