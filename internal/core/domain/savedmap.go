package domain

import "time"

// SavedMap is a persisted editor document.
type SavedMap struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Revision  uint64    `json:"revision"`
	Document  Document  `json:"document"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MapListing is the summary row of a saved map.
type MapListing struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Revision     uint64    `json:"revision"`
	LineCount    int       `json:"line_count"`
	StationCount int       `json:"station_count"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NameSuggestion carries reverse-geocoded candidates for one station.
type NameSuggestion struct {
	MapID      string   `json:"map_id"`
	StationID  int      `json:"station_id"`
	Candidates []string `json:"candidates"`
}
