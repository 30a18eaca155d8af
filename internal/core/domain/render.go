package domain

// LinePath is the drawable state of one line.
type LinePath struct {
	LineID        int           `json:"line_id"`
	Name          string        `json:"name"`
	LineType      LineTypeID    `json:"line_type"`
	Color         string        `json:"color"`
	Circle        bool          `json:"circle"`
	Path          []PathCommand `json:"path"`
	ControlPoints []GeoPoint    `json:"control_points,omitempty"`
}

// StationMarker is the drawable state of one station.
type StationMarker struct {
	StationID int      `json:"station_id"`
	Name      string   `json:"name"`
	Position  GeoPoint `json:"position"`
	IconKind  string   `json:"icon_kind"`
	Cross     bool     `json:"cross"`
	Lines     []int    `json:"lines"`
}

// Frame is the set of visual changes since the previous flush. Lines and
// stations that disappeared are listed by id only.
type Frame struct {
	Revision          uint64          `json:"revision"`
	Lines             []LinePath      `json:"lines,omitempty"`
	Stations          []StationMarker `json:"stations,omitempty"`
	RemovedLines      []int           `json:"removed_lines,omitempty"`
	RemovedStations   []int           `json:"removed_stations,omitempty"`
	ShowControlPoints bool            `json:"show_control_points"`
}

// Empty reports whether the frame carries no changes.
func (f Frame) Empty() bool {
	return len(f.Lines) == 0 && len(f.Stations) == 0 &&
		len(f.RemovedLines) == 0 && len(f.RemovedStations) == 0
}

type StationSummary struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type LineSummary struct {
	ID       int              `json:"id"`
	Name     string           `json:"name"`
	LineType LineTypeID       `json:"line_type"`
	Color    string           `json:"color"`
	Circle   bool             `json:"circle"`
	Stations []StationSummary `json:"stations"`
}

// Summary is the line and station listing shown next to the map.
type Summary struct {
	Revision uint64        `json:"revision"`
	Drawing  int           `json:"drawing,omitempty"`
	LineType LineTypeID    `json:"line_type"`
	CanUndo  bool          `json:"can_undo"`
	CanRedo  bool          `json:"can_redo"`
	Lines    []LineSummary `json:"lines"`
}

func (n *Network) linePath(l *Line) LinePath {
	lp := LinePath{
		LineID:   l.id,
		Name:     l.name,
		LineType: l.lineType.ID,
		Color:    l.lineType.Color,
		Circle:   l.IsCircle(),
		Path:     l.Path(),
	}
	if n.showControlPoints {
		lp.ControlPoints = make([]GeoPoint, len(l.controlPoints))
		for i, cp := range l.controlPoints {
			lp.ControlPoints[i] = cp.position
		}
	}
	return lp
}

func stationMarker(s *Station) StationMarker {
	return StationMarker{
		StationID: s.id,
		Name:      s.name,
		Position:  s.position,
		IconKind:  s.IconKind(),
		Cross:     s.IsCross(),
		Lines:     s.LineIDs(),
	}
}

// Flush returns everything marked dirty since the last call and clears the
// dirty sets.
func (n *Network) Flush() Frame {
	lines, stations := n.sortedDirty()
	f := Frame{Revision: n.revision, ShowControlPoints: n.showControlPoints}
	for _, l := range lines {
		if len(l.stations) == 0 {
			f.RemovedLines = append(f.RemovedLines, l.id)
			continue
		}
		f.Lines = append(f.Lines, n.linePath(l))
	}
	for _, s := range stations {
		if s.removed || len(s.lines) == 0 {
			f.RemovedStations = append(f.RemovedStations, s.id)
			continue
		}
		f.Stations = append(f.Stations, stationMarker(s))
	}
	clear(n.dirtyLines)
	clear(n.dirtyStations)
	return f
}

// Snapshot renders the whole network regardless of dirty state. Dirty sets
// are left untouched.
func (n *Network) Snapshot() Frame {
	f := Frame{Revision: n.revision, ShowControlPoints: n.showControlPoints}
	for _, l := range n.Lines() {
		f.Lines = append(f.Lines, n.linePath(l))
	}
	for _, s := range n.Stations() {
		f.Stations = append(f.Stations, stationMarker(s))
	}
	return f
}

// Summary lists the non-empty lines with their station names.
func (n *Network) Summary() Summary {
	sum := Summary{
		Revision: n.revision,
		LineType: n.lineType.ID,
		CanUndo:  n.CanUndo(),
		CanRedo:  n.CanRedo(),
		Lines:    []LineSummary{},
	}
	if n.drawing != nil {
		sum.Drawing = n.drawing.id
	}
	for _, l := range n.Lines() {
		ls := LineSummary{
			ID:       l.id,
			Name:     l.name,
			LineType: l.lineType.ID,
			Color:    l.lineType.Color,
			Circle:   l.IsCircle(),
			Stations: make([]StationSummary, len(l.stations)),
		}
		for i, s := range l.stations {
			ls.Stations[i] = StationSummary{ID: s.id, Name: s.name}
		}
		sum.Lines = append(sum.Lines, ls)
	}
	return sum
}
