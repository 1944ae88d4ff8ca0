// Package domain models the SoraSolar rooftop dataset and the geo-classification
// rules used by the map page.
//
// # Data Source
//
// Rooftop and partner records are read-only snapshots supplied by a dataset
// provider (embedded JSON, a local file, or an HTTP URL). Records are never
// mutated here; every derived value is recomputed from the snapshot on each call.
//
// # Partitioning
//
// Rooftops are grouped geographically by one of two strategies:
//
//	grid:    fixed-size lat/lng cells (default 0.8°). Bucket indices are
//	         floor(lat/cellSize) and floor(lng/cellSize); the key is "lat:lng".
//	         Only cells with at least one rooftop are produced.
//	cluster: a curated list of named clusters (center, radius km). A rooftop
//	         belongs to every cluster whose center is within the radius by
//	         haversine distance (R = 6371 km). Every cluster is produced, even
//	         when empty.
//
// # Classification
//
// Each group is labelled from its metrics, checked in this order:
//
//	high:   avgSunHours >= HighSunHours AND contactReadyRatio >= HighReadyRatio
//	low:    avgSunHours <  LowSunHours  OR  contactReadyRatio <  LowReadyRatio
//	medium: otherwise
//
// Threshold defaults per strategy:
//
//	grid:    4.6 / 0.50 / 4.3 / 0.25
//	cluster: 4.6 / 0.45 / 4.2 / 0.25
//
// Individual rooftops (cluster map markers) use a simpler rule: high when
// sun hours >= 4.6 and contact-ready, low when sun hours < 4.2 and not
// contact-ready, medium otherwise. See [ClassifyRooftop].
//
// An empty group reports zero for every metric and therefore classifies low.
package domain
