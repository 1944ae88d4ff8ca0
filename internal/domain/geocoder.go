package domain

import "context"

// GeocodingResult contains location data returned by a geocoding provider.
type GeocodingResult struct {
	Lat              float64
	Lng              float64
	FormattedAddress string
	PlaceName        string
	Confidence       float64 // 0.0–1.0 provider confidence score
}

// Geocoder resolves between addresses and coordinates.
type Geocoder interface {
	// ForwardGeocode converts a street address to coordinates. country is an
	// ISO 3166 alpha-2 filter and may be empty.
	ForwardGeocode(ctx context.Context, address, country string) (GeocodingResult, error)

	// ReverseGeocode converts coordinates to place details.
	ReverseGeocode(ctx context.Context, lat, lng float64) (GeocodingResult, error)
}
