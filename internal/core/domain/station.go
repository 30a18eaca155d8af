package domain

import (
	"fmt"
	"slices"
	"time"
)

// geocodeInterval is the minimum spacing between reverse-geocode requests
// issued for the same station.
const geocodeInterval = time.Second

// placement remembers where a station sat in a line and which control
// points left with it, so the exact same handles can be put back.
type placement struct {
	index         int
	controlPoints []*ControlPoint
}

// crossRecord is what un-crossing a station from one line leaves behind.
type crossRecord struct {
	membership int
	placements []placement
}

// Station is a point of interest owned by one or more lines.
type Station struct {
	id       int
	network  *Network
	position GeoPoint
	name     string
	lines    []*Line
	removed  bool

	// set by remove, consumed by restore
	placements map[*Line][]placement

	nextGeocodeAt time.Time
}

func (s *Station) ID() int            { return s.id }
func (s *Station) Name() string       { return s.name }
func (s *Station) Position() GeoPoint { return s.position }

// Removed reports whether the station has been deleted (it may come back via undo).
func (s *Station) Removed() bool { return s.removed }

// Lines returns the owning lines in membership order.
func (s *Station) Lines() []*Line { return slices.Clone(s.lines) }

// LineIDs returns the ids of the owning lines in membership order.
func (s *Station) LineIDs() []int {
	ids := make([]int, len(s.lines))
	for i, l := range s.lines {
		ids[i] = l.id
	}
	return ids
}

// BelongsTo reports whether l is one of the station's lines.
func (s *Station) BelongsTo(l *Line) bool {
	return slices.Contains(s.lines, l)
}

// PrimaryLineType is the type of the first owning line.
func (s *Station) PrimaryLineType() LineType {
	if len(s.lines) == 0 {
		return LineType{}
	}
	return s.lines[0].lineType
}

// IsCross reports whether the station is an interchange.
func (s *Station) IsCross() bool { return len(s.lines) > 1 }

// IsCrossOfDifferentLines reports whether any owning line has a type other
// than the primary one.
func (s *Station) IsCrossOfDifferentLines() bool {
	primary := s.PrimaryLineType().ID
	for _, l := range s.lines {
		if l.lineType.ID != primary {
			return true
		}
	}
	return false
}

// IconKind is CrossingIconKind for mixed-type interchanges, otherwise the
// primary line type id.
func (s *Station) IconKind() string {
	if s.IsCrossOfDifferentLines() {
		return CrossingIconKind
	}
	return string(s.PrimaryLineType().ID)
}

// NextGeocodeSlot reserves the next reverse-geocode slot for this station and
// returns the time the request may be sent. Slots advance by one second per
// call, starting from now on the first call.
func (s *Station) NextGeocodeSlot(now time.Time) time.Time {
	if s.nextGeocodeAt.IsZero() {
		s.nextGeocodeAt = now
	}
	s.nextGeocodeAt = s.nextGeocodeAt.Add(geocodeInterval)
	return s.nextGeocodeAt
}

func initialStationName(id int) string {
	return fmt.Sprintf("Station %d", id)
}

func (s *Station) setName(name string) {
	s.name = name
	s.network.markStation(s)
}

func (s *Station) setPosition(p GeoPoint) {
	s.position = p
	s.network.markStation(s)
	for _, l := range s.lines {
		s.network.markLine(l)
	}
}

// addMembership appends l and re-renders the station, whose icon may switch
// to the crossing variant.
func (s *Station) addMembership(l *Line) {
	s.insertMembership(l, len(s.lines))
}

func (s *Station) insertMembership(l *Line, index int) {
	index = min(max(index, 0), len(s.lines))
	s.lines = slices.Insert(s.lines, index, l)
	s.network.markStation(s)
}

// dropMembership removes l and returns the index it held, or -1.
func (s *Station) dropMembership(l *Line) int {
	i := slices.Index(s.lines, l)
	if i < 0 {
		return -1
	}
	s.lines = slices.Delete(s.lines, i, i+1)
	s.network.markStation(s)
	return i
}

// detachFrom removes every occurrence of s from l, highest index first.
// A circular line holds its terminal station twice.
func (s *Station) detachFrom(l *Line) []placement {
	var ps []placement
	for i := len(l.stations) - 1; i >= 0; i-- {
		if l.stations[i] == s {
			ps = append(ps, placement{index: i, controlPoints: l.removeStationAtIndex(i)})
		}
	}
	return ps
}

// reattachTo undoes detachFrom.
func (s *Station) reattachTo(l *Line, ps []placement) {
	for i := len(ps) - 1; i >= 0; i-- {
		l.insertStation(s, ps[i].index, ps[i].controlPoints)
	}
}

// remove takes the station out of every owning line. Membership is kept so
// that restore knows where to go back.
func (s *Station) remove() {
	s.placements = make(map[*Line][]placement, len(s.lines))
	for _, l := range s.lines {
		s.placements[l] = s.detachFrom(l)
	}
	s.removed = true
	s.network.markStation(s)
}

// restore re-adds the station to each owning line at its recorded positions.
func (s *Station) restore() {
	for _, l := range s.lines {
		s.reattachTo(l, s.placements[l])
	}
	s.placements = nil
	s.removed = false
	s.network.markStation(s)
}

// uncross removes the station from exactly one line.
func (s *Station) uncross(l *Line) crossRecord {
	ps := s.detachFrom(l)
	return crossRecord{membership: s.dropMembership(l), placements: ps}
}

// restoreCross undoes uncross.
func (s *Station) restoreCross(l *Line, rec crossRecord) {
	s.reattachTo(l, rec.placements)
	s.insertMembership(l, rec.membership)
}
