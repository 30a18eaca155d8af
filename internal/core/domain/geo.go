package domain

import "github.com/samirrijal/metromap/internal/pkg/geospatial"

// SegmentEpsilon is the tolerance, in meters, used when deciding whether a
// clicked point lies on the chord between two stations.
const SegmentEpsilon = 20.0

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Add returns p+q component-wise.
func (p GeoPoint) Add(q GeoPoint) GeoPoint {
	return GeoPoint{Lat: p.Lat + q.Lat, Lon: p.Lon + q.Lon}
}

// Sub returns p-q component-wise.
func (p GeoPoint) Sub(q GeoPoint) GeoPoint {
	return GeoPoint{Lat: p.Lat - q.Lat, Lon: p.Lon - q.Lon}
}

// Scale multiplies both components by f.
func (p GeoPoint) Scale(f float64) GeoPoint {
	return GeoPoint{Lat: p.Lat * f, Lon: p.Lon * f}
}

// Lerp linearly interpolates between p and q.
func (p GeoPoint) Lerp(q GeoPoint, t float64) GeoPoint {
	return p.Add(q.Sub(p).Scale(t))
}

// DistanceTo returns the great-circle distance to q in meters.
func (p GeoPoint) DistanceTo(q GeoPoint) float64 {
	return geospatial.Haversine(p.Lat, p.Lon, q.Lat, q.Lon)
}

// PointOnSegment reports whether p lies on the chord a-b: the detour a→p→b
// must be within epsilon meters of the direct distance a→b.
func PointOnSegment(a, b, p GeoPoint, epsilon float64) bool {
	direct := a.DistanceTo(b)
	detour := a.DistanceTo(p) + b.DistanceTo(p)
	return direct+epsilon > detour && direct-epsilon < detour
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// Extend grows b so that it contains p. A zero Bounds is treated as empty.
func (b Bounds) Extend(p GeoPoint) Bounds {
	if b == (Bounds{}) {
		return Bounds{MinLat: p.Lat, MinLon: p.Lon, MaxLat: p.Lat, MaxLon: p.Lon}
	}
	return Bounds{
		MinLat: min(b.MinLat, p.Lat),
		MinLon: min(b.MinLon, p.Lon),
		MaxLat: max(b.MaxLat, p.Lat),
		MaxLon: max(b.MaxLon, p.Lon),
	}
}

// MapMeta holds the editor viewport persisted alongside a document.
type MapMeta struct {
	Center GeoPoint `json:"center"`
	Zoom   int      `json:"zoom"`
}

// DefaultMapMeta centres on Berlin.
func DefaultMapMeta() MapMeta {
	return MapMeta{Center: GeoPoint{Lat: 52.511, Lon: 13.411}, Zoom: 13}
}
