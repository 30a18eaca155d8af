package domain_test

import (
	"math"
	"testing"
	"time"

	"github.com/samirrijal/metromap/internal/core/domain"
)

func TestPointOnSegment(t *testing.T) {
	tests := []struct {
		name string
		p    domain.GeoPoint
		want bool
	}{
		{"midpoint", domain.GeoPoint{Lat: 52.50, Lon: 13.41}, true},
		{"endpoint", ptA, true},
		{"slightly off", domain.GeoPoint{Lat: 52.5001, Lon: 13.41}, true},
		{"far off", domain.GeoPoint{Lat: 52.51, Lon: 13.41}, false},
		{"beyond end", domain.GeoPoint{Lat: 52.50, Lon: 13.43}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := domain.PointOnSegment(ptA, ptB, tt.p, domain.SegmentEpsilon); got != tt.want {
				t.Errorf("PointOnSegment(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestCubicSegment_StraightHandles(t *testing.T) {
	seg := domain.CubicSegment{
		P0: ptA,
		P1: ptA.Lerp(ptB, 1.0/3.0),
		P2: ptA.Lerp(ptB, 2.0/3.0),
		P3: ptB,
	}
	for _, tc := range []float64{0, 0.25, 0.5, 1} {
		got := seg.Eval(tc)
		want := ptA.Lerp(ptB, tc)
		if math.Abs(got.Lat-want.Lat) > 1e-12 || math.Abs(got.Lon-want.Lon) > 1e-12 {
			t.Errorf("Eval(%v) = %v, want %v", tc, got, want)
		}
	}

	pts := domain.Flatten([]domain.CubicSegment{seg, {P0: ptB, P1: ptB, P2: ptC, P3: ptC}}, 4)
	if len(pts) != 9 {
		t.Fatalf("expected 9 points, got %d", len(pts))
	}
	if pts[0] != ptA || pts[4] != ptB || pts[8] != ptC {
		t.Errorf("expected segment endpoints to be kept, got %v", pts)
	}
}

func TestBounds_Extend(t *testing.T) {
	var b domain.Bounds
	b = b.Extend(ptA).Extend(ptE)
	if b.MinLat != ptA.Lat || b.MaxLat != ptE.Lat || b.MinLon != ptA.Lon || b.MaxLon != ptE.Lon {
		t.Errorf("unexpected bounds %+v", b)
	}
}

func TestFindClosestPlace(t *testing.T) {
	places := []domain.NamedPlace{
		{Name: "Zoologischer Garten", Location: domain.GeoPoint{Lat: 52.5069, Lon: 13.3323}},
		{Name: "Alexanderplatz", Location: domain.GeoPoint{Lat: 52.5219, Lon: 13.4132}},
		{Name: "Ostkreuz", Location: domain.GeoPoint{Lat: 52.5030, Lon: 13.4690}},
		{Name: "Gesundbrunnen", Location: domain.GeoPoint{Lat: 52.5484, Lon: 13.3883}},
	}
	domain.SortPlaces(places)

	got, dist, ok := domain.FindClosestPlace(places, domain.GeoPoint{Lat: 52.5215, Lon: 13.4110})
	if !ok {
		t.Fatal("expected a match")
	}
	if got.Name != "Alexanderplatz" {
		t.Errorf("expected Alexanderplatz, got %s", got.Name)
	}
	if dist > 200 {
		t.Errorf("expected distance under 200m, got %.0f", dist)
	}

	if _, _, ok := domain.FindClosestPlace(nil, ptA); ok {
		t.Error("expected no match for empty list")
	}
}

func TestStation_NextGeocodeSlot(t *testing.T) {
	n := domain.NewNetwork(nil)
	s := n.PlacePoint(ptA)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	first := s.NextGeocodeSlot(now)
	second := s.NextGeocodeSlot(now)
	if !first.Equal(now.Add(time.Second)) {
		t.Errorf("expected first slot one second out, got %v", first)
	}
	if second.Sub(first) != time.Second {
		t.Errorf("expected slots one second apart, got %v", second.Sub(first))
	}
}

func TestLineTypes(t *testing.T) {
	for _, lt := range domain.LineTypes() {
		path, ok := domain.IconPath(string(lt.ID))
		if !ok || path != lt.Icon {
			t.Errorf("icon path for %s: got %q %v", lt.ID, path, ok)
		}
	}
	if path, _ := domain.IconPath(domain.CrossingIconKind); path != domain.CrossingIcon {
		t.Errorf("expected crossing icon, got %q", path)
	}
	if _, ok := domain.IconPath("tram"); ok {
		t.Error("expected unknown kind")
	}
}
