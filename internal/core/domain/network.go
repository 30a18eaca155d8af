package domain

import (
	"fmt"
	"slices"
)

// ClickOutcome says which branch a station click took.
type ClickOutcome int

const (
	ClickIgnored ClickOutcome = iota
	ClickClosedLoop
	ClickCrossed
	// ClickRename asks the caller to prompt for a new station name and
	// follow up with RenameStation.
	ClickRename
)

func (o ClickOutcome) String() string {
	switch o {
	case ClickClosedLoop:
		return "closed_loop"
	case ClickCrossed:
		return "crossed"
	case ClickRename:
		return "rename"
	default:
		return "ignored"
	}
}

// Network owns every line and station of one map, the line currently being
// drawn and the id counters. It is not safe for concurrent use.
type Network struct {
	lines    []*Line
	drawing  *Line
	lineType LineType

	nextStationID int
	nextLineID    int

	showControlPoints bool
	meta              MapMeta

	history  *History
	revision uint64

	dirtyLines    map[*Line]struct{}
	dirtyStations map[*Station]struct{}
}

// NewNetwork creates an empty network recording into history. A nil history
// gets a fresh one.
func NewNetwork(history *History) *Network {
	if history == nil {
		history = NewHistory()
	}
	n := &Network{
		lineType:          lineTypes[0],
		nextStationID:     1,
		nextLineID:        1,
		showControlPoints: true,
		meta:              DefaultMapMeta(),
		history:           history,
		dirtyLines:        make(map[*Line]struct{}),
		dirtyStations:     make(map[*Station]struct{}),
	}
	history.OnApply(func(Operation) { n.touch() })
	return n
}

// Revision increases on every change visible in the summary.
func (n *Network) Revision() uint64 { return n.revision }

// Drawing returns the line in progress, or nil when idle.
func (n *Network) Drawing() *Line { return n.drawing }

// CurrentLineType is the type the next new line will get.
func (n *Network) CurrentLineType() LineType { return n.lineType }

func (n *Network) ShowControlPoints() bool { return n.showControlPoints }
func (n *Network) Meta() MapMeta           { return n.meta }

// SetMeta stores the map view. A changed view counts as a revision so it
// gets saved, but it is not undoable.
func (n *Network) SetMeta(m MapMeta) bool {
	if n.meta == m {
		return false
	}
	n.meta = m
	n.touch()
	return true
}

func (n *Network) CanUndo() bool { return n.history.CanUndo() }
func (n *Network) CanRedo() bool { return n.history.CanRedo() }

// Lines returns every line that still has stations, in creation order.
func (n *Network) Lines() []*Line {
	out := make([]*Line, 0, len(n.lines))
	for _, l := range n.lines {
		if len(l.stations) > 0 {
			out = append(out, l)
		}
	}
	return out
}

// Stations returns the distinct stations over all lines, in order of first
// appearance.
func (n *Network) Stations() []*Station {
	seen := make(map[int]struct{})
	var out []*Station
	for _, l := range n.lines {
		for _, s := range l.stations {
			if _, ok := seen[s.id]; ok {
				continue
			}
			seen[s.id] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

// Line looks up a live line by id.
func (n *Network) Line(id int) (*Line, error) {
	for _, l := range n.lines {
		if l.id == id && (len(l.stations) > 0 || l == n.drawing) {
			return l, nil
		}
	}
	return nil, fmt.Errorf("%w: %d", ErrLineNotFound, id)
}

// Station looks up a live station by id.
func (n *Network) Station(id int) (*Station, error) {
	for _, l := range n.lines {
		for _, s := range l.stations {
			if s.id == id {
				return s, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %d", ErrStationNotFound, id)
}

// PlacePoint handles a click on empty map: it starts a line of the current
// type when idle, then appends a new station at pos.
func (n *Network) PlacePoint(pos GeoPoint) *Station {
	if n.drawing == nil {
		n.drawing = n.newLine(n.lineType)
	}
	s := n.newStation(pos, n.drawing)
	n.drawing.insertStation(s, len(n.drawing.stations), nil)
	n.record(&CreateStation{Station: s})
	return s
}

// ClickStation handles a click on an existing station. While drawing,
// clicking the first station of a line with at least two stations closes
// the loop; any other foreign station is crossed into the line. When idle
// the caller should prompt for a rename.
func (n *Network) ClickStation(s *Station) ClickOutcome {
	if s == nil || s.removed {
		return ClickIgnored
	}
	l := n.drawing
	if l == nil {
		return ClickRename
	}
	if len(l.stations) >= 2 && l.stations[0] == s {
		if l.IsCircle() {
			return ClickIgnored
		}
		l.insertStation(s, len(l.stations), nil)
		n.record(&CloseLoop{Line: l, Station: s})
		n.drawing = nil
		return ClickClosedLoop
	}
	if s.BelongsTo(l) {
		return ClickIgnored
	}
	index := len(l.stations)
	l.insertStation(s, index, nil)
	s.addMembership(l)
	n.record(&CrossStation{Station: s, Line: l, Index: index, membership: len(s.lines) - 1})
	return ClickCrossed
}

// ClickLine inserts a new station at pos when pos lies on one of the line's
// segments. It returns nil when no segment matches.
func (n *Network) ClickLine(l *Line, pos GeoPoint) *Station {
	if l == nil {
		return nil
	}
	i, ok := l.IndexNear(pos)
	if !ok {
		return nil
	}
	s := n.newStation(pos, l)
	l.insertStation(s, i, nil)
	n.record(&CreateStation{Station: s})
	return s
}

// FinishLine stops drawing.
func (n *Network) FinishLine() {
	if n.drawing != nil {
		n.drawing = nil
		n.touch()
	}
}

// ContinueLine resumes drawing an existing line.
func (n *Network) ContinueLine(l *Line) {
	n.drawing = l
	n.touch()
}

// SelectLineType sets the type for the next new line and finishes the
// current one.
func (n *Network) SelectLineType(id LineTypeID) error {
	lt, ok := LookupLineType(id)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownLineType, id)
	}
	n.lineType = lt
	n.FinishLine()
	n.touch()
	return nil
}

// SetShowControlPoints toggles handle rendering; every line is redrawn.
func (n *Network) SetShowControlPoints(show bool) {
	if n.showControlPoints == show {
		return
	}
	n.showControlPoints = show
	for _, l := range n.lines {
		n.markLine(l)
	}
}

// RenameStation reports false for an empty or unchanged name.
func (n *Network) RenameStation(s *Station, name string) bool {
	if s == nil || name == "" || name == s.name {
		return false
	}
	op := &RenameStation{Station: s, Old: s.name, New: name}
	s.setName(name)
	n.record(op)
	return true
}

// RemoveStation deletes s from every line it belongs to.
func (n *Network) RemoveStation(s *Station) bool {
	if s == nil || s.removed {
		return false
	}
	s.remove()
	n.record(&RemoveStation{Station: s})
	return true
}

// UncrossStation splits an interchange by removing s from l only.
func (n *Network) UncrossStation(s *Station, l *Line) bool {
	if s == nil || l == nil || !s.IsCross() || !s.BelongsTo(l) {
		return false
	}
	op := &UncrossStation{Station: s, Line: l}
	op.record = s.uncross(l)
	n.record(op)
	return true
}

// MoveStation records a completed drag of s to pos.
func (n *Network) MoveStation(s *Station, pos GeoPoint) bool {
	if s == nil || s.removed || s.position == pos {
		return false
	}
	op := &MoveStation{Station: s, Old: s.position, New: pos}
	s.setPosition(pos)
	n.record(op)
	return true
}

// MoveControlPoint records a completed drag of cp to pos.
func (n *Network) MoveControlPoint(cp *ControlPoint, pos GeoPoint) bool {
	if cp == nil || cp.position == pos {
		return false
	}
	op := &MoveControlPoint{ControlPoint: cp, Old: cp.position, New: pos}
	cp.setPosition(pos)
	n.record(op)
	return true
}

// RenameLine reports false for an empty or unchanged name.
func (n *Network) RenameLine(l *Line, name string) bool {
	if l == nil || name == "" || name == l.name {
		return false
	}
	op := &RenameLine{Line: l, Old: l.name, New: name}
	l.setName(name)
	n.record(op)
	return true
}

// RemoveLine deletes the line and every station it owns exclusively.
func (n *Network) RemoveLine(l *Line) bool {
	if l == nil || len(l.stations) == 0 {
		return false
	}
	l.remove()
	n.record(&RemoveLine{Line: l})
	return true
}

// ChangeLineType reassigns the line's type.
func (n *Network) ChangeLineType(l *Line, id LineTypeID) (bool, error) {
	lt, ok := LookupLineType(id)
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownLineType, id)
	}
	if l == nil || l.lineType.ID == id {
		return false, nil
	}
	op := &ChangeLineType{Line: l, Old: l.lineType.ID, New: id}
	l.setLineType(lt)
	n.record(op)
	return true, nil
}

// Undo reverts the latest operation.
func (n *Network) Undo() (Operation, bool) {
	return n.history.Undo()
}

// Redo re-applies the latest undone operation.
func (n *Network) Redo() (Operation, bool) {
	return n.history.Redo()
}

// ApplySuggestedName sets a looked-up name without recording an operation.
// Results for stations deleted in the meantime are dropped.
func (n *Network) ApplySuggestedName(s *Station, name string) bool {
	if s == nil || s.removed || name == "" || name == s.name {
		return false
	}
	s.setName(name)
	n.touch()
	return true
}

// PickUnusedName chooses a candidate no current station already uses,
// picking among those with intn. When every candidate is taken the first one
// is returned.
func (n *Network) PickUnusedName(candidates []string, intn func(int) int) string {
	if len(candidates) == 0 {
		return ""
	}
	used := make(map[string]struct{})
	for _, s := range n.Stations() {
		used[s.name] = struct{}{}
	}
	var free []string
	for _, c := range candidates {
		if _, ok := used[c]; !ok && c != "" {
			free = append(free, c)
		}
	}
	if len(free) == 0 {
		return candidates[0]
	}
	return free[intn(len(free))]
}

func (n *Network) newLine(lt LineType) *Line {
	l := &Line{id: n.nextLineID, network: n, lineType: lt}
	n.nextLineID++
	l.name = l.initialName()
	n.lines = append(n.lines, l)
	n.markLine(l)
	return l
}

func (n *Network) newStation(pos GeoPoint, l *Line) *Station {
	s := &Station{id: n.nextStationID, network: n, position: pos, lines: []*Line{l}}
	n.nextStationID++
	s.name = initialStationName(s.id)
	n.markStation(s)
	return s
}

func (n *Network) record(op Operation) {
	n.history.Record(op)
	n.touch()
}

func (n *Network) touch() { n.revision++ }

func (n *Network) markLine(l *Line) {
	n.dirtyLines[l] = struct{}{}
}

func (n *Network) markStation(s *Station) {
	n.dirtyStations[s] = struct{}{}
}

// sortedDirty returns the dirty lines in creation order and the dirty
// stations by id.
func (n *Network) sortedDirty() ([]*Line, []*Station) {
	lines := make([]*Line, 0, len(n.dirtyLines))
	for _, l := range n.lines {
		if _, ok := n.dirtyLines[l]; ok {
			lines = append(lines, l)
		}
	}
	stations := make([]*Station, 0, len(n.dirtyStations))
	for s := range n.dirtyStations {
		stations = append(stations, s)
	}
	slices.SortFunc(stations, func(a, b *Station) int { return a.id - b.id })
	return lines, stations
}
