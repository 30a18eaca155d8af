package domain

import (
	"math"
	"sort"
)

// closestPlaceWindow is how many neighbours on either side of the latitude
// match are compared by distance.
const closestPlaceWindow = 10

// NamedPlace is a reference location with a known name, such as a real
// transit stop.
type NamedPlace struct {
	Name     string   `json:"name"`
	Location GeoPoint `json:"location"`
}

// SortPlaces orders places by latitude, which FindClosestPlace requires.
func SortPlaces(places []NamedPlace) {
	sort.SliceStable(places, func(i, j int) bool {
		return places[i].Location.Lat < places[j].Location.Lat
	})
}

// FindClosestPlace approximates the nearest place to p. places must be
// sorted by latitude. It returns false for an empty slice.
func FindClosestPlace(places []NamedPlace, p GeoPoint) (NamedPlace, float64, bool) {
	if len(places) == 0 {
		return NamedPlace{}, 0, false
	}
	i := sort.Search(len(places), func(i int) bool {
		return places[i].Location.Lat >= p.Lat
	})
	best, bestDist := -1, math.Inf(1)
	for j := max(0, i-closestPlaceWindow); j < min(len(places), i+closestPlaceWindow); j++ {
		if d := p.DistanceTo(places[j].Location); d < bestDist {
			best, bestDist = j, d
		}
	}
	return places[best], bestDist, true
}
