package usecases

import (
	"context"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/metromap/internal/core/domain"
)

// GeoJSON exports the session as a feature collection: one LineString per
// line with its curves flattened, one Point per station.
func (s *EditorService) GeoJSON(ctx context.Context, mapID string) (*geojson.FeatureCollection, error) {
	var fc *geojson.FeatureCollection
	err := s.view(ctx, mapID, func(sess *session) error {
		fc = NetworkFeatures(sess.network, s.opts.GeoJSONSteps)
		return nil
	})
	return fc, err
}

// NetworkFeatures builds the feature collection of a network.
func NetworkFeatures(n *domain.Network, steps int) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	var all orb.MultiPoint

	for _, l := range n.Lines() {
		pts := domain.Flatten(l.Segments(), steps)
		if len(pts) < 2 {
			continue
		}
		ls := make(orb.LineString, len(pts))
		for i, p := range pts {
			ls[i] = toOrb(p)
		}
		all = append(all, ls...)

		f := geojson.NewFeature(ls)
		f.ID = fmt.Sprintf("line-%d", l.ID())
		f.Properties["kind"] = "line"
		f.Properties["name"] = l.Name()
		f.Properties["line_type"] = string(l.LineType().ID)
		f.Properties["color"] = l.LineType().Color
		f.Properties["circle"] = l.IsCircle()
		f.Properties["stations"] = l.StationIDs()
		fc.Append(f)
	}

	for _, st := range n.Stations() {
		p := toOrb(st.Position())
		all = append(all, p)

		f := geojson.NewFeature(p)
		f.ID = fmt.Sprintf("station-%d", st.ID())
		f.Properties["kind"] = "station"
		f.Properties["name"] = st.Name()
		f.Properties["icon"] = st.IconKind()
		f.Properties["lines"] = st.LineIDs()
		fc.Append(f)
	}

	if len(all) > 0 {
		fc.BBox = geojson.NewBBox(all.Bound())
	}
	return fc
}

// orb points are (lon, lat).
func toOrb(p domain.GeoPoint) orb.Point {
	return orb.Point{p.Lon, p.Lat}
}
