package domain_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/samirrijal/metromap/internal/core/domain"
)

var (
	ptA = domain.GeoPoint{Lat: 52.50, Lon: 13.40}
	ptB = domain.GeoPoint{Lat: 52.50, Lon: 13.42}
	ptC = domain.GeoPoint{Lat: 52.52, Lon: 13.42}
	ptD = domain.GeoPoint{Lat: 52.53, Lon: 13.38}
	ptE = domain.GeoPoint{Lat: 52.53, Lon: 13.44}
)

type fixture struct {
	n       *domain.Network
	l1, l2  *domain.Line
	a, b, c *domain.Station
	d, e    *domain.Station
}

// newFixture draws an U-Bahn line A-B-C and an S-Bahn line D-E.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{n: domain.NewNetwork(nil)}
	f.a = f.n.PlacePoint(ptA)
	f.b = f.n.PlacePoint(ptB)
	f.c = f.n.PlacePoint(ptC)
	f.l1 = f.n.Drawing()
	f.n.FinishLine()

	if err := f.n.SelectLineType(domain.LineTypeS); err != nil {
		t.Fatalf("select line type: %v", err)
	}
	f.d = f.n.PlacePoint(ptD)
	f.e = f.n.PlacePoint(ptE)
	f.l2 = f.n.Drawing()
	f.n.FinishLine()
	return f
}

func checkInvariants(t *testing.T, n *domain.Network) {
	t.Helper()
	for _, l := range n.Lines() {
		want := 2 * max(0, l.Len()-1)
		if got := len(l.ControlPoints()); got != want {
			t.Errorf("line %d: %d control points for %d stations, want %d", l.ID(), got, l.Len(), want)
		}
	}
	seen := make(map[int]bool)
	for _, s := range n.Stations() {
		if seen[s.ID()] {
			t.Errorf("station %d listed twice", s.ID())
		}
		seen[s.ID()] = true
		if s.IsCross() != (len(s.Lines()) > 1) {
			t.Errorf("station %d: IsCross=%v with %d lines", s.ID(), s.IsCross(), len(s.Lines()))
		}
		for _, l := range s.Lines() {
			if !l.Contains(s) {
				t.Errorf("station %d lists line %d which does not contain it", s.ID(), l.ID())
			}
		}
	}
}

func TestPlacePoint_StartsLine(t *testing.T) {
	n := domain.NewNetwork(nil)
	if n.Drawing() != nil {
		t.Fatal("expected idle network")
	}
	s := n.PlacePoint(ptA)
	l := n.Drawing()
	if l == nil {
		t.Fatal("expected a line in progress")
	}
	if s.Name() != "Station 1" {
		t.Errorf("expected default name Station 1, got %q", s.Name())
	}
	if l.Name() != "U1" {
		t.Errorf("expected default line name U1, got %q", l.Name())
	}
	n.PlacePoint(ptB)
	if n.Drawing() != l {
		t.Fatal("placing a second point must stay on the same line")
	}
	cps := l.ControlPoints()
	if len(cps) != 2 {
		t.Fatalf("expected 2 control points, got %d", len(cps))
	}
	want := ptA.Lerp(ptB, 1.0/3.0)
	if cps[0].Position() != want {
		t.Errorf("expected first handle at %v, got %v", want, cps[0].Position())
	}
	checkInvariants(t, n)
}

func TestClickStation_ClosesLoop(t *testing.T) {
	f := newFixture(t)
	f.n.ContinueLine(f.l1)

	if got := f.n.ClickStation(f.a); got != domain.ClickClosedLoop {
		t.Fatalf("expected closed loop, got %v", got)
	}
	if !f.l1.IsCircle() {
		t.Fatal("expected circular line")
	}
	if diff := cmp.Diff([]int{f.a.ID(), f.b.ID(), f.c.ID(), f.a.ID()}, f.l1.StationIDs()); diff != "" {
		t.Errorf("stations mismatch (-want +got):\n%s", diff)
	}
	if f.n.Drawing() != nil {
		t.Error("closing a loop must finish the line")
	}
	checkInvariants(t, f.n)

	f.n.Undo()
	if diff := cmp.Diff([]int{f.a.ID(), f.b.ID(), f.c.ID()}, f.l1.StationIDs()); diff != "" {
		t.Errorf("after undo (-want +got):\n%s", diff)
	}
	if f.l1.IsCircle() {
		t.Error("expected open line after undo")
	}
	checkInvariants(t, f.n)
}

func TestClickStation_Crosses(t *testing.T) {
	f := newFixture(t)
	f.n.ContinueLine(f.l2)

	if got := f.n.ClickStation(f.a); got != domain.ClickCrossed {
		t.Fatalf("expected crossed, got %v", got)
	}
	if diff := cmp.Diff([]int{f.d.ID(), f.e.ID(), f.a.ID()}, f.l2.StationIDs()); diff != "" {
		t.Errorf("L2 stations (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{f.l1.ID(), f.l2.ID()}, f.a.LineIDs()); diff != "" {
		t.Errorf("membership (-want +got):\n%s", diff)
	}
	if !f.a.IsCross() {
		t.Error("expected interchange")
	}
	if f.a.IconKind() != domain.CrossingIconKind {
		t.Errorf("expected crossing icon for U/S interchange, got %q", f.a.IconKind())
	}
	if f.n.Drawing() != f.l2 {
		t.Error("crossing must keep drawing")
	}
	checkInvariants(t, f.n)

	f.n.Undo()
	if diff := cmp.Diff([]int{f.d.ID(), f.e.ID()}, f.l2.StationIDs()); diff != "" {
		t.Errorf("L2 after undo (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{f.l1.ID()}, f.a.LineIDs()); diff != "" {
		t.Errorf("membership after undo (-want +got):\n%s", diff)
	}
	checkInvariants(t, f.n)
}

func TestClickStation_IgnoresSelfCross(t *testing.T) {
	f := newFixture(t)
	f.n.ContinueLine(f.l1)
	done := f.n.Revision()

	if got := f.n.ClickStation(f.b); got != domain.ClickIgnored {
		t.Fatalf("expected ignored, got %v", got)
	}
	if f.l1.Len() != 3 {
		t.Errorf("expected 3 stations, got %d", f.l1.Len())
	}
	if f.n.Revision() != done {
		t.Error("ignored click must not change the network")
	}
}

func TestClickStation_IdleAsksForRename(t *testing.T) {
	f := newFixture(t)
	if got := f.n.ClickStation(f.b); got != domain.ClickRename {
		t.Fatalf("expected rename outcome, got %v", got)
	}
}

func TestClickLine_InsertsAtMidpoint(t *testing.T) {
	f := newFixture(t)
	before := f.l1.ControlPoints()

	mid := domain.GeoPoint{Lat: 52.50, Lon: 13.41}
	s := f.n.ClickLine(f.l1, mid)
	if s == nil {
		t.Fatal("expected a station on the segment")
	}
	if diff := cmp.Diff([]int{f.a.ID(), s.ID(), f.b.ID(), f.c.ID()}, f.l1.StationIDs()); diff != "" {
		t.Errorf("stations (-want +got):\n%s", diff)
	}
	after := f.l1.ControlPoints()
	if len(after) != len(before)+2 {
		t.Fatalf("expected exactly 2 new handles, got %d -> %d", len(before), len(after))
	}
	for i, cp := range before {
		if after[i+2] != cp {
			t.Errorf("handle %d was replaced", i)
		}
	}
	checkInvariants(t, f.n)
}

func TestClickLine_OffSegmentIsNoop(t *testing.T) {
	f := newFixture(t)
	if s := f.n.ClickLine(f.l1, domain.GeoPoint{Lat: 52.40, Lon: 13.10}); s != nil {
		t.Fatalf("expected no station, got %d", s.ID())
	}
	if f.l1.Len() != 3 {
		t.Errorf("expected 3 stations, got %d", f.l1.Len())
	}
}

func TestRemoveLine_KeepsSharedStations(t *testing.T) {
	f := newFixture(t)
	f.n.ContinueLine(f.l2)
	f.n.ClickStation(f.a)
	f.n.FinishLine()

	if !f.n.RemoveLine(f.l2) {
		t.Fatal("expected line removal")
	}
	if f.a.Removed() {
		t.Error("shared station must survive")
	}
	if diff := cmp.Diff([]int{f.l1.ID()}, f.a.LineIDs()); diff != "" {
		t.Errorf("membership (-want +got):\n%s", diff)
	}
	if !f.d.Removed() || !f.e.Removed() {
		t.Error("exclusive stations must be removed")
	}
	if len(f.n.Lines()) != 1 {
		t.Errorf("expected 1 line, got %d", len(f.n.Lines()))
	}
	checkInvariants(t, f.n)

	f.n.Undo()
	if diff := cmp.Diff([]int{f.d.ID(), f.e.ID(), f.a.ID()}, f.l2.StationIDs()); diff != "" {
		t.Errorf("L2 after undo (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{f.l1.ID(), f.l2.ID()}, f.a.LineIDs()); diff != "" {
		t.Errorf("membership after undo (-want +got):\n%s", diff)
	}
	checkInvariants(t, f.n)
}

func TestRemoveStation_FirstOfLine(t *testing.T) {
	f := newFixture(t)
	f.n.RemoveStation(f.a)
	if diff := cmp.Diff([]int{f.b.ID(), f.c.ID()}, f.l1.StationIDs()); diff != "" {
		t.Errorf("stations (-want +got):\n%s", diff)
	}
	checkInvariants(t, f.n)
}

func TestRemoveStation_TerminalOfLoop(t *testing.T) {
	f := newFixture(t)
	f.n.ContinueLine(f.l1)
	f.n.ClickStation(f.a)
	before := f.n.Export()

	f.n.RemoveStation(f.a)
	if diff := cmp.Diff([]int{f.b.ID(), f.c.ID()}, f.l1.StationIDs()); diff != "" {
		t.Errorf("stations (-want +got):\n%s", diff)
	}
	checkInvariants(t, f.n)

	f.n.Undo()
	if diff := cmp.Diff(before, f.n.Export()); diff != "" {
		t.Errorf("undo mismatch (-want +got):\n%s", diff)
	}
}

func TestUncrossStation(t *testing.T) {
	f := newFixture(t)
	if f.n.UncrossStation(f.a, f.l1) {
		t.Fatal("a station on a single line cannot be uncrossed")
	}
	f.n.ContinueLine(f.l2)
	f.n.ClickStation(f.a)
	f.n.FinishLine()

	if !f.n.UncrossStation(f.a, f.l1) {
		t.Fatal("expected uncross")
	}
	if diff := cmp.Diff([]int{f.b.ID(), f.c.ID()}, f.l1.StationIDs()); diff != "" {
		t.Errorf("L1 (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{f.l2.ID()}, f.a.LineIDs()); diff != "" {
		t.Errorf("membership (-want +got):\n%s", diff)
	}
	checkInvariants(t, f.n)
}

func TestRenameRejectsEmptyAndUnchanged(t *testing.T) {
	f := newFixture(t)
	if f.n.RenameStation(f.a, "") {
		t.Error("empty station name must be ignored")
	}
	if f.n.RenameStation(f.a, f.a.Name()) {
		t.Error("unchanged station name must be ignored")
	}
	if f.n.RenameLine(f.l1, "") {
		t.Error("empty line name must be ignored")
	}
	f.n.Undo()
	f.n.Undo()
	if f.l2.Len() != 0 {
		t.Errorf("expected the two S stations undone, got %d", f.l2.Len())
	}
}

func TestChangeLineType_UnknownType(t *testing.T) {
	f := newFixture(t)
	if _, err := f.n.ChangeLineType(f.l1, "x"); !errors.Is(err, domain.ErrUnknownLineType) {
		t.Fatalf("expected ErrUnknownLineType, got %v", err)
	}
	if err := f.n.SelectLineType("x"); !errors.Is(err, domain.ErrUnknownLineType) {
		t.Fatalf("expected ErrUnknownLineType, got %v", err)
	}
}

func TestUndoRedoSymmetry(t *testing.T) {
	mid := domain.GeoPoint{Lat: 52.50, Lon: 13.41}
	tests := []struct {
		name  string
		setup func(f *fixture)
		apply func(t *testing.T, f *fixture)
	}{
		{"place point", nil, func(t *testing.T, f *fixture) { f.n.PlacePoint(ptE.Add(domain.GeoPoint{Lat: 0.01})) }},
		{"place point on drawing line", func(f *fixture) { f.n.ContinueLine(f.l1) },
			func(t *testing.T, f *fixture) { f.n.PlacePoint(ptD) }},
		{"midpoint", nil, func(t *testing.T, f *fixture) {
			if f.n.ClickLine(f.l1, mid) == nil {
				t.Fatal("expected insertion")
			}
		}},
		{"cross", func(f *fixture) { f.n.ContinueLine(f.l2) },
			func(t *testing.T, f *fixture) { f.n.ClickStation(f.b) }},
		{"close loop", func(f *fixture) { f.n.ContinueLine(f.l1) },
			func(t *testing.T, f *fixture) { f.n.ClickStation(f.a) }},
		{"uncross", func(f *fixture) {
			f.n.ContinueLine(f.l2)
			f.n.ClickStation(f.c)
			f.n.FinishLine()
		}, func(t *testing.T, f *fixture) { f.n.UncrossStation(f.c, f.l1) }},
		{"rename station", nil, func(t *testing.T, f *fixture) { f.n.RenameStation(f.b, "Alexanderplatz") }},
		{"remove middle station", nil, func(t *testing.T, f *fixture) { f.n.RemoveStation(f.b) }},
		{"remove first station", nil, func(t *testing.T, f *fixture) { f.n.RemoveStation(f.a) }},
		{"remove cross station", func(f *fixture) {
			f.n.ContinueLine(f.l2)
			f.n.ClickStation(f.b)
			f.n.FinishLine()
		}, func(t *testing.T, f *fixture) { f.n.RemoveStation(f.b) }},
		{"move station", nil, func(t *testing.T, f *fixture) { f.n.MoveStation(f.c, ptC.Add(domain.GeoPoint{Lon: 0.01})) }},
		{"rename line", nil, func(t *testing.T, f *fixture) { f.n.RenameLine(f.l1, "Ringbahn") }},
		{"remove line", nil, func(t *testing.T, f *fixture) { f.n.RemoveLine(f.l1) }},
		{"remove loop line", func(f *fixture) {
			f.n.ContinueLine(f.l1)
			f.n.ClickStation(f.a)
		}, func(t *testing.T, f *fixture) { f.n.RemoveLine(f.l1) }},
		{"change line type", nil, func(t *testing.T, f *fixture) {
			if _, err := f.n.ChangeLineType(f.l1, domain.LineTypeS); err != nil {
				t.Fatal(err)
			}
		}},
		{"move control point", nil, func(t *testing.T, f *fixture) {
			cp, err := f.l1.ControlPoint(2)
			if err != nil {
				t.Fatal(err)
			}
			f.n.MoveControlPoint(cp, ptA)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.setup != nil {
				tt.setup(f)
			}
			pre := f.n.Export()
			tt.apply(t, f)
			post := f.n.Export()
			if cmp.Equal(pre, post) {
				t.Fatal("operation changed nothing")
			}
			checkInvariants(t, f.n)

			if _, ok := f.n.Undo(); !ok {
				t.Fatal("expected undo")
			}
			if diff := cmp.Diff(pre, f.n.Export()); diff != "" {
				t.Errorf("undo did not restore pre-state (-want +got):\n%s", diff)
			}
			checkInvariants(t, f.n)

			if _, ok := f.n.Redo(); !ok {
				t.Fatal("expected redo")
			}
			if diff := cmp.Diff(post, f.n.Export()); diff != "" {
				t.Errorf("redo did not restore post-state (-want +got):\n%s", diff)
			}
			checkInvariants(t, f.n)
		})
	}
}

func TestUndoAll_ThenRedoAll(t *testing.T) {
	f := newFixture(t)
	f.n.ContinueLine(f.l2)
	f.n.ClickStation(f.a)
	f.n.FinishLine()
	f.n.ClickLine(f.l1, domain.GeoPoint{Lat: 52.50, Lon: 13.41})
	cp, _ := f.l1.ControlPoint(0)
	f.n.MoveControlPoint(cp, ptD)
	f.n.RemoveStation(f.b)
	f.n.RemoveLine(f.l2)
	final := f.n.Export()

	steps := 0
	for f.n.CanUndo() {
		f.n.Undo()
		steps++
		checkInvariants(t, f.n)
	}
	if len(f.n.Lines()) != 0 {
		t.Errorf("expected empty network, got %d lines", len(f.n.Lines()))
	}
	for i := 0; i < steps; i++ {
		f.n.Redo()
		checkInvariants(t, f.n)
	}
	if diff := cmp.Diff(final, f.n.Export()); diff != "" {
		t.Errorf("replay mismatch (-want +got):\n%s", diff)
	}
}

func TestFlush(t *testing.T) {
	n := domain.NewNetwork(nil)
	a := n.PlacePoint(ptA)
	n.PlacePoint(ptB)

	frame := n.Flush()
	if len(frame.Lines) != 1 || len(frame.Stations) != 2 {
		t.Fatalf("expected 1 line and 2 stations, got %d/%d", len(frame.Lines), len(frame.Stations))
	}
	path := frame.Lines[0].Path
	if len(path) != 2 || path[0].Op != "M" || path[1].Op != "C" {
		t.Errorf("unexpected path %+v", path)
	}
	if len(frame.Lines[0].ControlPoints) != 2 {
		t.Errorf("expected handles in frame, got %d", len(frame.Lines[0].ControlPoints))
	}
	if !n.Flush().Empty() {
		t.Fatal("expected empty frame after flush")
	}

	n.RemoveStation(a)
	frame = n.Flush()
	if diff := cmp.Diff([]int{a.ID()}, frame.RemovedStations); diff != "" {
		t.Errorf("removed stations (-want +got):\n%s", diff)
	}

	n.SetShowControlPoints(false)
	frame = n.Flush()
	if frame.ShowControlPoints || len(frame.Lines) != 1 || frame.Lines[0].ControlPoints != nil {
		t.Errorf("expected line redrawn without handles, got %+v", frame)
	}
}

func TestSummary(t *testing.T) {
	f := newFixture(t)
	rev := f.n.Revision()
	f.n.RenameLine(f.l2, "S42")
	sum := f.n.Summary()
	if sum.Revision <= rev {
		t.Errorf("expected revision to advance past %d, got %d", rev, sum.Revision)
	}
	if len(sum.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(sum.Lines))
	}
	if sum.Lines[1].Name != "S42" || len(sum.Lines[1].Stations) != 2 {
		t.Errorf("unexpected line summary %+v", sum.Lines[1])
	}
	if !sum.CanUndo || sum.CanRedo {
		t.Errorf("expected undo only, got undo=%v redo=%v", sum.CanUndo, sum.CanRedo)
	}

	f.n.Undo()
	if f.n.Revision() <= sum.Revision {
		t.Error("undo must advance the revision")
	}
}

func TestPickUnusedName(t *testing.T) {
	f := newFixture(t)
	f.n.RenameStation(f.a, "Hackescher Markt")

	first := func(int) int { return 0 }
	got := f.n.PickUnusedName([]string{"Hackescher Markt", "Monbijoupark"}, first)
	if got != "Monbijoupark" {
		t.Errorf("expected Monbijoupark, got %q", got)
	}
	got = f.n.PickUnusedName([]string{"Hackescher Markt"}, first)
	if got != "Hackescher Markt" {
		t.Errorf("expected fallback to first candidate, got %q", got)
	}
	if got := f.n.PickUnusedName(nil, first); got != "" {
		t.Errorf("expected empty name, got %q", got)
	}
}

func TestApplySuggestedName(t *testing.T) {
	f := newFixture(t)
	if !f.n.ApplySuggestedName(f.b, "Spittelmarkt") {
		t.Fatal("expected name applied")
	}
	if f.b.Name() != "Spittelmarkt" {
		t.Errorf("expected Spittelmarkt, got %q", f.b.Name())
	}
	f.n.Undo()
	if f.b.Name() != "Spittelmarkt" {
		t.Error("suggested names are not part of the history")
	}

	f.n.RemoveStation(f.c)
	if f.n.ApplySuggestedName(f.c, "Gone") {
		t.Error("expected result for removed station to be discarded")
	}
}

func TestLookup(t *testing.T) {
	f := newFixture(t)
	if s, err := f.n.Station(f.b.ID()); err != nil || s != f.b {
		t.Fatalf("expected station %d, got %v %v", f.b.ID(), s, err)
	}
	if _, err := f.n.Station(999); !errors.Is(err, domain.ErrStationNotFound) {
		t.Errorf("expected ErrStationNotFound, got %v", err)
	}
	if _, err := f.n.Line(999); !errors.Is(err, domain.ErrLineNotFound) {
		t.Errorf("expected ErrLineNotFound, got %v", err)
	}
	if _, err := f.l1.ControlPoint(4); !errors.Is(err, domain.ErrControlPointNotFound) {
		t.Errorf("expected ErrControlPointNotFound, got %v", err)
	}
}
