// Package cluster turns normalized report features into map-ready nodes: a
// zoom-dependent spatial clustering over S2 cells and a zoom-independent
// administrative grouping tree.
package cluster

import (
	"fmt"
	"sort"
	"sync"

	"github.com/golang/geo/s2"

	"github.com/DarrenVictoria/InfoUnityResponse-sub001/internal/domain"
)

const (
	// DefaultMaxZoom is the zoom at which merging stops and every report
	// renders as its own marker.
	DefaultMaxZoom = 16

	minCellLevel = 2
	maxCellLevel = 30
)

// Bounds is a latitude/longitude viewport.
type Bounds struct {
	MinLat float64 `json:"minLat"`
	MinLon float64 `json:"minLon"`
	MaxLat float64 `json:"maxLat"`
	MaxLon float64 `json:"maxLon"`
}

func (b Bounds) contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// WorldBounds covers every coordinate.
func WorldBounds() Bounds {
	return Bounds{MinLat: -90, MinLon: -180, MaxLat: 90, MaxLon: 180}
}

// Node is one map marker: either a singleton wrapping a single report
// feature, or an aggregate of two or more features with a centroid.
type Node struct {
	ClusterID uint64                `json:"clusterId,omitempty"`
	ReportID  string                `json:"reportId,omitempty"`
	Count     int                   `json:"count"`
	Lat       float64               `json:"lat"`
	Lon       float64               `json:"lon"`
	Feature   *domain.ReportFeature `json:"feature,omitempty"`
}

// Singleton reports whether the node wraps exactly one feature.
func (n Node) Singleton() bool { return n.ReportID != "" }

func (n Node) sortKey() string {
	if n.Singleton() {
		return "r:" + n.ReportID
	}
	return fmt.Sprintf("c:%020d", n.ClusterID)
}

// Index is an immutable spatial index over features with valid coordinates.
// Leaf cells are precomputed at build time; the per-level bucket maps are
// derived lazily on first query at that level and cached.
type Index struct {
	maxZoom  int
	features []domain.ReportFeature
	leaves   []s2.CellID

	mu      sync.Mutex
	buckets map[int]map[s2.CellID][]int
}

// NewIndex builds the index, excluding features without valid coordinates.
// maxZoom <= 0 selects DefaultMaxZoom.
func NewIndex(features []domain.ReportFeature, maxZoom int) *Index {
	if maxZoom <= 0 {
		maxZoom = DefaultMaxZoom
	}
	ix := &Index{
		maxZoom: maxZoom,
		buckets: map[int]map[s2.CellID][]int{},
	}
	for _, f := range features {
		if !f.HasCoordinates {
			continue
		}
		ix.features = append(ix.features, f)
		ix.leaves = append(ix.leaves, s2.CellIDFromLatLng(s2.LatLngFromDegrees(f.Lat, f.Lon)))
	}
	return ix
}

// Len is the number of indexed features.
func (ix *Index) Len() int { return len(ix.features) }

func cellLevelForZoom(zoom int) int {
	level := zoom + 2
	if level < minCellLevel {
		level = minCellLevel
	}
	if level > maxCellLevel {
		level = maxCellLevel
	}
	return level
}

func (ix *Index) bucketsForLevel(level int) map[s2.CellID][]int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if b, ok := ix.buckets[level]; ok {
		return b
	}
	b := make(map[s2.CellID][]int)
	for i, leaf := range ix.leaves {
		parent := leaf.Parent(level)
		b[parent] = append(b[parent], i)
	}
	ix.buckets[level] = b
	return b
}

// Clusters returns the nodes visible in the viewport at the given zoom.
// Every indexed feature lands in exactly one node per zoom; a cell holding a
// single feature renders as a singleton, never a one-point aggregate.
func (ix *Index) Clusters(b Bounds, zoom int) []Node {
	if len(ix.features) == 0 {
		return nil
	}
	if zoom >= ix.maxZoom {
		return ix.singletons(b)
	}

	level := cellLevelForZoom(zoom)
	var nodes []Node
	for cell, members := range ix.bucketsForLevel(level) {
		if len(members) == 1 {
			f := ix.features[members[0]]
			if !b.contains(f.Lat, f.Lon) {
				continue
			}
			nodes = append(nodes, singletonNode(f))
			continue
		}
		var latSum, lonSum float64
		for _, i := range members {
			latSum += ix.features[i].Lat
			lonSum += ix.features[i].Lon
		}
		lat := latSum / float64(len(members))
		lon := lonSum / float64(len(members))
		if !b.contains(lat, lon) {
			continue
		}
		nodes = append(nodes, Node{
			ClusterID: uint64(cell),
			Count:     len(members),
			Lat:       lat,
			Lon:       lon,
		})
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].sortKey() < nodes[j].sortKey() })
	return nodes
}

func (ix *Index) singletons(b Bounds) []Node {
	var nodes []Node
	for _, f := range ix.features {
		if !b.contains(f.Lat, f.Lon) {
			continue
		}
		nodes = append(nodes, singletonNode(f))
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ReportID < nodes[j].ReportID })
	return nodes
}

func singletonNode(f domain.ReportFeature) Node {
	feature := f
	return Node{
		ReportID: f.ID,
		Count:    1,
		Lat:      f.Lat,
		Lon:      f.Lon,
		Feature:  &feature,
	}
}

// Expand returns the exact feature set absorbed by an aggregate node. The
// cluster id is the S2 cell id of the merging cell, which encodes its own
// level, so membership is recovered by re-parenting each leaf to that level.
// Unknown or invalid ids yield an empty slice.
func (ix *Index) Expand(clusterID uint64) []domain.ReportFeature {
	cell := s2.CellID(clusterID)
	if !cell.IsValid() {
		return nil
	}
	level := cell.Level()
	var out []domain.ReportFeature
	for i, leaf := range ix.leaves {
		if leaf.Parent(level) == cell {
			out = append(out, ix.features[i])
		}
	}
	return out
}
