package domain

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Strategy names a partitioning scheme.
type Strategy string

const (
	StrategyGrid    Strategy = "grid"
	StrategyCluster Strategy = "cluster"
)

// DefaultCellSize is the grid cell edge length in degrees.
const DefaultCellSize = 0.8

// ErrUnknownStrategy is returned by ParseStrategy for unrecognised names.
var ErrUnknownStrategy = errors.New("unknown partition strategy")

// ParseStrategy converts a user-supplied name to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategyGrid:
		return StrategyGrid, nil
	case StrategyCluster:
		return StrategyCluster, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
	}
}

// Partition is one geographic bucket and the rooftops that fall in it.
// Members keeps input order.
type Partition struct {
	ID       string
	Name     string
	Center   Point
	Bounds   *Bounds
	RadiusKM float64
	Members  []Rooftop
}

// Partitioner splits a rooftop snapshot into geographic partitions.
type Partitioner interface {
	Strategy() Strategy
	Thresholds() Thresholds
	Partition(rooftops []Rooftop) []Partition
}

// GeoGroup is a classified partition as served to the map.
type GeoGroup struct {
	ID             string         `json:"id" yaml:"id"`
	Name           string         `json:"name,omitempty" yaml:"name,omitempty"`
	Strategy       Strategy       `json:"strategy" yaml:"strategy"`
	Center         Point          `json:"center" yaml:"center"`
	Bounds         *Bounds        `json:"bounds,omitempty" yaml:"bounds,omitempty"`
	RadiusKM       float64        `json:"radius_km,omitempty" yaml:"radius_km,omitempty"`
	PlaceName      string         `json:"place_name,omitempty" yaml:"place_name,omitempty"`
	Metrics        GroupMetrics   `json:"metrics" yaml:"metrics"`
	Classification Classification `json:"classification" yaml:"classification"`
	Style          Style          `json:"style" yaml:"style"`
	Rooftops       []Rooftop      `json:"rooftops" yaml:"rooftops"`
}

// Summarize partitions the rooftops and reduces each partition to metrics and
// a classification. It does not modify the input.
func Summarize(p Partitioner, rooftops []Rooftop) []GeoGroup {
	parts := p.Partition(rooftops)
	thresholds := p.Thresholds()

	groups := make([]GeoGroup, 0, len(parts))
	for _, part := range parts {
		metrics := ComputeMetrics(part.Members)
		class := thresholds.Classify(metrics)
		members := part.Members
		if members == nil {
			members = []Rooftop{}
		}
		groups = append(groups, GeoGroup{
			ID:             part.ID,
			Name:           part.Name,
			Strategy:       p.Strategy(),
			Center:         part.Center,
			Bounds:         part.Bounds,
			RadiusKM:       part.RadiusKM,
			Metrics:        metrics,
			Classification: class,
			Style:          StyleFor(class, metrics),
			Rooftops:       members,
		})
	}
	return groups
}

// GridPartitioner buckets rooftops into uniform lat/lng cells.
type GridPartitioner struct {
	cellSize   float64
	thresholds Thresholds
}

// NewGridPartitioner creates a grid partitioner. cellSize must be positive.
func NewGridPartitioner(cellSize float64, t Thresholds) *GridPartitioner {
	return &GridPartitioner{cellSize: cellSize, thresholds: t}
}

func (g *GridPartitioner) Strategy() Strategy     { return StrategyGrid }
func (g *GridPartitioner) Thresholds() Thresholds { return g.thresholds }

// CellSize returns the cell edge length in degrees.
func (g *GridPartitioner) CellSize() float64 { return g.cellSize }

// Bucket returns the integer cell indices for a coordinate.
func (g *GridPartitioner) Bucket(lat, lng float64) (latBucket, lngBucket int) {
	return bucketIndex(lat, g.cellSize), bucketIndex(lng, g.cellSize)
}

// CellBounds returns the bounds of the cell with the given indices.
func (g *GridPartitioner) CellBounds(latBucket, lngBucket int) Bounds {
	return Bounds{
		South: float64(latBucket) * g.cellSize,
		North: float64(latBucket+1) * g.cellSize,
		West:  float64(lngBucket) * g.cellSize,
		East:  float64(lngBucket+1) * g.cellSize,
	}
}

type cellKey struct{ lat, lng int }

// Partition groups rooftops by cell. Only occupied cells are returned, ordered
// north to south then west to east.
func (g *GridPartitioner) Partition(rooftops []Rooftop) []Partition {
	cells := make(map[cellKey][]Rooftop)
	for _, r := range rooftops {
		latB, lngB := g.Bucket(r.Latitude, r.Longitude)
		k := cellKey{latB, lngB}
		cells[k] = append(cells[k], r)
	}

	keys := make([]cellKey, 0, len(cells))
	for k := range cells {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].lat != keys[j].lat {
			return keys[i].lat > keys[j].lat
		}
		return keys[i].lng < keys[j].lng
	})

	parts := make([]Partition, 0, len(keys))
	for _, k := range keys {
		b := g.CellBounds(k.lat, k.lng)
		parts = append(parts, Partition{
			ID:      CellID(k.lat, k.lng),
			Center:  b.Center(),
			Bounds:  &b,
			Members: cells[k],
		})
	}
	return parts
}

// CellID formats the grid key "lat:lng".
func CellID(latBucket, lngBucket int) string {
	return strconv.Itoa(latBucket) + ":" + strconv.Itoa(lngBucket)
}

// bucketIndex floors v/size, then corrects the result when the division
// rounded across a cell edge so that the bounds always contain v.
func bucketIndex(v, size float64) int {
	b := int(math.Floor(v / size))
	if float64(b)*size > v {
		b--
	} else if float64(b+1)*size <= v {
		b++
	}
	return b
}

// Cluster is a named circular region.
type Cluster struct {
	ID       string  `json:"id" yaml:"id" mapstructure:"id"`
	Name     string  `json:"name" yaml:"name" mapstructure:"name"`
	Center   Point   `json:"center" yaml:"center" mapstructure:"center"`
	RadiusKM float64 `json:"radius_km" yaml:"radius_km" mapstructure:"radius_km"`
}

// Contains reports whether p is within the cluster radius.
func (c Cluster) Contains(p Point) bool {
	return HaversineKM(c.Center, p) <= c.RadiusKM
}

// DefaultClusters is the curated cluster list for the Japan map.
func DefaultClusters() []Cluster {
	return []Cluster{
		{ID: "tokyo", Name: "Tokyo 23 Wards", Center: Point{Lat: 35.6895, Lng: 139.6917}, RadiusKM: 18},
		{ID: "tama", Name: "Tama", Center: Point{Lat: 35.6620, Lng: 139.3230}, RadiusKM: 20},
		{ID: "yokohama", Name: "Yokohama & Kawasaki", Center: Point{Lat: 35.4850, Lng: 139.6380}, RadiusKM: 20},
		{ID: "saitama", Name: "Saitama", Center: Point{Lat: 35.8617, Lng: 139.6455}, RadiusKM: 22},
		{ID: "chiba", Name: "Chiba Bayside", Center: Point{Lat: 35.6073, Lng: 140.1063}, RadiusKM: 25},
		{ID: "kitakanto", Name: "Kita-Kanto", Center: Point{Lat: 36.3900, Lng: 139.0600}, RadiusKM: 45},
		{ID: "nagoya", Name: "Nagoya", Center: Point{Lat: 35.1815, Lng: 136.9066}, RadiusKM: 30},
		{ID: "osaka", Name: "Osaka & Kobe", Center: Point{Lat: 34.6937, Lng: 135.3500}, RadiusKM: 35},
		{ID: "fukuoka", Name: "Fukuoka", Center: Point{Lat: 33.5904, Lng: 130.4017}, RadiusKM: 30},
	}
}

// ClusterPartitioner assigns rooftops to every cluster whose radius covers them.
type ClusterPartitioner struct {
	clusters   []Cluster
	thresholds Thresholds
}

// NewClusterPartitioner creates a cluster partitioner over a fixed list.
func NewClusterPartitioner(clusters []Cluster, t Thresholds) *ClusterPartitioner {
	return &ClusterPartitioner{clusters: clusters, thresholds: t}
}

func (c *ClusterPartitioner) Strategy() Strategy     { return StrategyCluster }
func (c *ClusterPartitioner) Thresholds() Thresholds { return c.thresholds }

// Clusters returns the configured cluster list.
func (c *ClusterPartitioner) Clusters() []Cluster { return c.clusters }

// Partition returns one partition per cluster in configuration order, empty
// clusters included. Overlapping clusters each receive the rooftop.
func (c *ClusterPartitioner) Partition(rooftops []Rooftop) []Partition {
	parts := make([]Partition, 0, len(c.clusters))
	for _, cl := range c.clusters {
		var members []Rooftop
		for _, r := range rooftops {
			if cl.Contains(r.Location()) {
				members = append(members, r)
			}
		}
		parts = append(parts, Partition{
			ID:       cl.ID,
			Name:     cl.Name,
			Center:   cl.Center,
			RadiusKM: cl.RadiusKM,
			Members:  members,
		})
	}
	return parts
}
