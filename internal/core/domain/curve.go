package domain

// CubicSegment is one cubic Bézier piece of a line's curve, running from one
// station through two control points to the next station.
type CubicSegment struct {
	P0 GeoPoint `json:"p0"`
	P1 GeoPoint `json:"p1"`
	P2 GeoPoint `json:"p2"`
	P3 GeoPoint `json:"p3"`
}

// Eval evaluates the segment at parameter t in [0, 1].
func (c CubicSegment) Eval(t float64) GeoPoint {
	mt := 1 - t
	a := mt * mt * mt
	b := 3 * mt * mt * t
	d := 3 * mt * t * t
	e := t * t * t
	return GeoPoint{
		Lat: a*c.P0.Lat + b*c.P1.Lat + d*c.P2.Lat + e*c.P3.Lat,
		Lon: a*c.P0.Lon + b*c.P1.Lon + d*c.P2.Lon + e*c.P3.Lon,
	}
}

// Flatten approximates consecutive segments with a polyline, sampling each
// segment at steps evenly spaced parameters. Shared endpoints are emitted once.
func Flatten(segments []CubicSegment, steps int) []GeoPoint {
	if len(segments) == 0 {
		return nil
	}
	if steps < 1 {
		steps = 1
	}
	pts := make([]GeoPoint, 0, len(segments)*steps+1)
	pts = append(pts, segments[0].P0)
	for _, seg := range segments {
		for i := 1; i <= steps; i++ {
			pts = append(pts, seg.Eval(float64(i)/float64(steps)))
		}
	}
	return pts
}

// PathCommand is one element of an SVG-like path: "M" carries the start
// point, "C" carries two control points and an end point.
type PathCommand struct {
	Op     string     `json:"op"`
	Points []GeoPoint `json:"points"`
}

// chordControlPoints returns the handles at 1/3 and 2/3 of the straight chord
// a-b, so an untouched segment renders as a straight line.
func chordControlPoints(a, b GeoPoint) (GeoPoint, GeoPoint) {
	return a.Lerp(b, 1.0/3.0), a.Lerp(b, 2.0/3.0)
}
