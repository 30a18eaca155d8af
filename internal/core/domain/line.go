package domain

import (
	"fmt"
	"slices"
)

// ControlPoint is one Bézier handle of a line segment.
type ControlPoint struct {
	line     *Line
	position GeoPoint
}

func (cp *ControlPoint) Line() *Line        { return cp.line }
func (cp *ControlPoint) Position() GeoPoint { return cp.position }

func (cp *ControlPoint) setPosition(p GeoPoint) {
	cp.position = p
	cp.line.network.markLine(cp.line)
}

// lineRemovalStep records how one station left a deleted line: either it was
// shared and only un-crossed, or it was exclusive and removed outright.
type lineRemovalStep struct {
	station *Station
	shared  bool
	cross   crossRecord
}

// Line is an ordered sequence of stations joined by cubic curves. The
// control-point slice always holds exactly two handles per segment.
type Line struct {
	id            int
	network       *Network
	stations      []*Station
	lineType      LineType
	name          string
	controlPoints []*ControlPoint

	// set by remove, consumed by restore
	removal []lineRemovalStep
}

func (l *Line) ID() int            { return l.id }
func (l *Line) Name() string       { return l.name }
func (l *Line) LineType() LineType { return l.lineType }
func (l *Line) Len() int           { return len(l.stations) }

// Stations returns the station sequence; first is start, last is end.
func (l *Line) Stations() []*Station { return slices.Clone(l.stations) }

// StationIDs returns the ids of the station sequence.
func (l *Line) StationIDs() []int {
	ids := make([]int, len(l.stations))
	for i, s := range l.stations {
		ids[i] = s.id
	}
	return ids
}

// ControlPoints returns the handles in segment order.
func (l *Line) ControlPoints() []*ControlPoint { return slices.Clone(l.controlPoints) }

// ControlPoint returns the handle at index i.
func (l *Line) ControlPoint(i int) (*ControlPoint, error) {
	if i < 0 || i >= len(l.controlPoints) {
		return nil, fmt.Errorf("%w: line %d index %d", ErrControlPointNotFound, l.id, i)
	}
	return l.controlPoints[i], nil
}

// IsCircle reports whether the line starts and ends at the same station.
func (l *Line) IsCircle() bool {
	n := len(l.stations)
	return n >= 2 && l.stations[0] == l.stations[n-1]
}

// Contains reports whether s is on the line.
func (l *Line) Contains(s *Station) bool {
	return slices.Contains(l.stations, s)
}

func (l *Line) initialName() string {
	return fmt.Sprintf("%s%d", l.lineType.NamePrefix, l.id)
}

// Segments returns the cubic pieces (s_i, cp_2i, cp_2i+1, s_i+1).
func (l *Line) Segments() []CubicSegment {
	if len(l.stations) < 2 {
		return nil
	}
	segs := make([]CubicSegment, 0, len(l.stations)-1)
	for i := 0; i+1 < len(l.stations); i++ {
		segs = append(segs, CubicSegment{
			P0: l.stations[i].position,
			P1: l.controlPoints[2*i].position,
			P2: l.controlPoints[2*i+1].position,
			P3: l.stations[i+1].position,
		})
	}
	return segs
}

// Path returns the curve as "M" followed by one "C" per segment.
func (l *Line) Path() []PathCommand {
	if len(l.stations) == 0 {
		return nil
	}
	path := []PathCommand{{Op: "M", Points: []GeoPoint{l.stations[0].position}}}
	for _, seg := range l.Segments() {
		path = append(path, PathCommand{Op: "C", Points: []GeoPoint{seg.P1, seg.P2, seg.P3}})
	}
	return path
}

// IndexNear finds the first segment [i-1, i] on whose chord p lies and
// returns i, the index a station inserted at p should take.
func (l *Line) IndexNear(p GeoPoint) (int, bool) {
	for i := 1; i < len(l.stations); i++ {
		if PointOnSegment(l.stations[i-1].position, l.stations[i].position, p, SegmentEpsilon) {
			return i, true
		}
	}
	return 0, false
}

// insertStation splices s in at index together with the two handles of the
// segment it now closes. Handles are created on the chord when cps is nil.
// At index 0 the handles belong to the new first segment instead.
func (l *Line) insertStation(s *Station, index int, cps []*ControlPoint) {
	l.stations = slices.Insert(l.stations, index, s)
	if len(l.stations) > 1 {
		at, from, to := 0, s, l.stations[1]
		if index > 0 {
			at, from, to = 2*index-2, l.stations[index-1], s
		}
		if cps == nil {
			a, b := chordControlPoints(from.position, to.position)
			cps = []*ControlPoint{{line: l, position: a}, {line: l, position: b}}
		}
		l.controlPoints = slices.Insert(l.controlPoints, at, cps...)
	}
	l.network.markLine(l)
}

// removeStationAtIndex is the inverse of insertStation and returns the two
// handles that left with the station.
func (l *Line) removeStationAtIndex(index int) []*ControlPoint {
	n := len(l.stations)
	l.stations = slices.Delete(l.stations, index, index+1)
	var removed []*ControlPoint
	if n > 1 {
		at := 0
		if index > 0 {
			at = 2*index - 2
		}
		removed = slices.Clone(l.controlPoints[at : at+2])
		l.controlPoints = slices.Delete(l.controlPoints, at, at+2)
	}
	l.network.markLine(l)
	return removed
}

func (l *Line) setName(name string) {
	l.name = name
	l.network.markLine(l)
}

// setLineType re-renders every station, since icons depend on line type.
func (l *Line) setLineType(lt LineType) {
	l.lineType = lt
	l.network.markLine(l)
	for _, s := range l.stations {
		l.network.markStation(s)
	}
}

// remove deletes every station on the line. Stations shared with another
// line are only un-crossed from this one.
func (l *Line) remove() {
	l.removal = l.removal[:0]
	for len(l.stations) > 0 {
		s := l.stations[0]
		step := lineRemovalStep{station: s}
		if len(s.lines) > 1 {
			step.shared = true
			step.cross = s.uncross(l)
		} else {
			s.remove()
		}
		l.removal = append(l.removal, step)
	}
	if l.network.drawing == l {
		l.network.drawing = nil
	}
	l.network.markLine(l)
}

// restore brings back every station removed by remove, in reverse order.
func (l *Line) restore() {
	for i := len(l.removal) - 1; i >= 0; i-- {
		step := l.removal[i]
		if step.shared {
			step.station.restoreCross(l, step.cross)
		} else {
			step.station.restore()
		}
	}
	l.removal = nil
	l.network.markLine(l)
}
