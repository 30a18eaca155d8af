package main

import (
	"strings"

	"github.com/samirrijal/metromap/internal/core/domain"
)

// cleanUpName strips transit decorations from a stop name so it reads like
// a place: "S+U Alexanderplatz Bhf/Dircksenstr." becomes "Alexanderplatz Bhf".
func cleanUpName(name string) string {
	name = strings.TrimSpace(name)
	for _, prefix := range []string{"S ", "U "} {
		if strings.HasPrefix(name, prefix) {
			name = name[len(prefix):]
			break
		}
	}
	name = strings.TrimPrefix(name, "S+U ")
	name = strings.TrimSuffix(name, ", Bhf")
	name = strings.TrimSuffix(name, ", Hbf")

	// "Berlin, Hauptstraße" keeps the part after the locality.
	if i := strings.IndexByte(name, ','); i >= 0 {
		name = strings.TrimSpace(name[i+1:])
	}
	// Combined stops keep their first name.
	if i := strings.IndexByte(name, '/'); i >= 0 {
		name = strings.TrimSpace(name[:i])
	}
	return name
}

// dedupePlaces keeps the first place seen for each name.
func dedupePlaces(places []domain.NamedPlace) []domain.NamedPlace {
	seen := make(map[string]bool, len(places))
	out := places[:0]
	for _, p := range places {
		if seen[p.Name] {
			continue
		}
		seen[p.Name] = true
		out = append(out, p)
	}
	return out
}
