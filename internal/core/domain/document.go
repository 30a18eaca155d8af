package domain

import (
	"encoding/json"
	"fmt"
	"math"
)

// DocumentStation is the serialized form of a station.
type DocumentStation struct {
	ID       int      `json:"id"`
	Position GeoPoint `json:"position"`
	Name     string   `json:"name"`
	Lines    []int    `json:"lines"`
}

// DocumentLine is the serialized form of a line.
type DocumentLine struct {
	ID            int        `json:"id"`
	Stations      []int      `json:"stations"`
	LineType      LineTypeID `json:"lineType"`
	ControlPoints []GeoPoint `json:"controlPoints"`
	Name          string     `json:"name"`
}

// Document is the portable representation of a network.
type Document struct {
	Stations []DocumentStation `json:"stations"`
	Lines    []DocumentLine    `json:"lines"`
	Meta     *MapMeta          `json:"meta,omitempty"`
}

// ParseDocument decodes and validates a JSON document.
func ParseDocument(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if err := doc.Validate(); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// Validate checks the document's internal references and the control point
// count of every line.
func (d Document) Validate() error {
	lines := make(map[int]DocumentLine, len(d.Lines))
	for _, l := range d.Lines {
		if l.ID < 0 {
			return malformed("negative line id %d", l.ID)
		}
		if _, dup := lines[l.ID]; dup {
			return malformed("duplicate line id %d", l.ID)
		}
		if _, ok := LookupLineType(l.LineType); !ok {
			return malformed("line %d: unknown line type %q", l.ID, l.LineType)
		}
		if want := 2 * max(0, len(l.Stations)-1); len(l.ControlPoints) != want {
			return malformed("line %d: %d control points, want %d", l.ID, len(l.ControlPoints), want)
		}
		lines[l.ID] = l
	}
	stations := make(map[int]DocumentStation, len(d.Stations))
	for _, s := range d.Stations {
		if s.ID < 0 {
			return malformed("negative station id %d", s.ID)
		}
		if _, dup := stations[s.ID]; dup {
			return malformed("duplicate station id %d", s.ID)
		}
		if len(s.Lines) == 0 {
			return malformed("station %d has no lines", s.ID)
		}
		seen := make(map[int]struct{}, len(s.Lines))
		for _, lid := range s.Lines {
			l, ok := lines[lid]
			if !ok {
				return malformed("station %d: unknown line %d", s.ID, lid)
			}
			if _, dup := seen[lid]; dup {
				return malformed("station %d: line %d listed twice", s.ID, lid)
			}
			seen[lid] = struct{}{}
			if !containsInt(l.Stations, s.ID) {
				return malformed("station %d claims line %d which does not contain it", s.ID, lid)
			}
		}
		stations[s.ID] = s
	}
	for _, l := range d.Lines {
		for _, sid := range l.Stations {
			s, ok := stations[sid]
			if !ok {
				return malformed("line %d: unknown station %d", l.ID, sid)
			}
			if !containsInt(s.Lines, l.ID) {
				return malformed("line %d contains station %d which does not list it", l.ID, sid)
			}
		}
	}
	return nil
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrMalformedDocument}, args...)...)
}

func containsInt(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

// Export serializes every non-empty line and every live station.
func (n *Network) Export() Document {
	doc := Document{
		Stations: []DocumentStation{},
		Lines:    []DocumentLine{},
	}
	meta := n.meta
	doc.Meta = &meta
	for _, s := range n.Stations() {
		doc.Stations = append(doc.Stations, DocumentStation{
			ID:       s.id,
			Position: s.position,
			Name:     s.name,
			Lines:    s.LineIDs(),
		})
	}
	for _, l := range n.Lines() {
		cps := make([]GeoPoint, len(l.controlPoints))
		for i, cp := range l.controlPoints {
			cps[i] = cp.position
		}
		doc.Lines = append(doc.Lines, DocumentLine{
			ID:            l.id,
			Stations:      l.StationIDs(),
			LineType:      l.lineType.ID,
			ControlPoints: cps,
			Name:          l.name,
		})
	}
	return doc
}

// Import adds the document's lines and stations next to the existing ones.
// Incoming ids are shifted by the current id counters so they never collide;
// afterwards both counters sit one past the largest id in use. The document
// is validated and fully staged before the network is touched, so a failing
// import leaves it unchanged. Import is not recorded in the history. The
// document's map view is only taken over by an empty network.
func (n *Network) Import(doc Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	lineOffset, stationOffset := n.nextLineID, n.nextStationID
	for _, dl := range doc.Lines {
		if dl.ID >= math.MaxInt-lineOffset {
			return malformed("line id %d out of range", dl.ID)
		}
	}
	for _, ds := range doc.Stations {
		if ds.ID >= math.MaxInt-stationOffset {
			return malformed("station id %d out of range", ds.ID)
		}
	}

	lines := make(map[int]*Line, len(doc.Lines))
	staged := make([]*Line, 0, len(doc.Lines))
	for _, dl := range doc.Lines {
		lt, _ := LookupLineType(dl.LineType)
		l := &Line{id: dl.ID + lineOffset, network: n, lineType: lt, name: dl.Name}
		if l.name == "" {
			l.name = l.initialName()
		}
		lines[dl.ID] = l
		staged = append(staged, l)
	}

	stations := make(map[int]*Station, len(doc.Stations))
	for _, ds := range doc.Stations {
		s := &Station{id: ds.ID + stationOffset, network: n, position: ds.Position, name: ds.Name}
		if s.name == "" {
			s.name = initialStationName(s.id)
		}
		for _, lid := range ds.Lines {
			s.lines = append(s.lines, lines[lid])
		}
		stations[ds.ID] = s
	}

	for _, dl := range doc.Lines {
		l := lines[dl.ID]
		l.stations = make([]*Station, len(dl.Stations))
		for i, sid := range dl.Stations {
			l.stations[i] = stations[sid]
		}
		l.controlPoints = make([]*ControlPoint, len(dl.ControlPoints))
		for i, p := range dl.ControlPoints {
			l.controlPoints[i] = &ControlPoint{line: l, position: p}
		}
	}

	empty := len(n.Lines()) == 0
	maxLine, maxStation := n.nextLineID-1, n.nextStationID-1
	for _, l := range staged {
		maxLine = max(maxLine, l.id)
	}
	for _, s := range stations {
		maxStation = max(maxStation, s.id)
	}

	n.lines = append(n.lines, staged...)
	n.nextLineID = maxLine + 1
	n.nextStationID = maxStation + 1
	if doc.Meta != nil && empty {
		n.meta = *doc.Meta
	}
	n.drawing = nil
	for _, l := range staged {
		n.markLine(l)
		for _, s := range l.stations {
			n.markStation(s)
		}
	}
	n.touch()
	return nil
}
