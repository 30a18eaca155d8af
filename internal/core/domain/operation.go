package domain

import "github.com/samirrijal/metromap/internal/core/undo"

// OperationKind tags a recorded operation.
type OperationKind string

const (
	KindCreateStation    OperationKind = "create_station"
	KindCrossStation     OperationKind = "cross_station"
	KindUncrossStation   OperationKind = "uncross_station"
	KindRenameStation    OperationKind = "rename_station"
	KindRemoveStation    OperationKind = "remove_station"
	KindMoveStation      OperationKind = "move_station"
	KindCloseLoop        OperationKind = "close_loop"
	KindRenameLine       OperationKind = "rename_line"
	KindRemoveLine       OperationKind = "remove_line"
	KindChangeLineType   OperationKind = "change_line_type"
	KindMoveControlPoint OperationKind = "move_control_point"
)

// Operation is a reversible edit. The set of implementations is closed.
type Operation interface {
	Kind() OperationKind
	operation()
}

// History is the command history used by a Network.
type History = undo.Manager[Operation]

// NewHistory returns an empty history wired to Inverse and Forward.
func NewHistory() *History {
	return undo.New(Inverse, Forward)
}

type CreateStation struct {
	Station *Station
}

// CrossStation appended Station to Line at Index and made it a member.
type CrossStation struct {
	Station *Station
	Line    *Line
	Index   int

	membership    int
	controlPoints []*ControlPoint
}

// UncrossStation removed Station from a single Line.
type UncrossStation struct {
	Station *Station
	Line    *Line

	record crossRecord
}

type RenameStation struct {
	Station  *Station
	Old, New string
}

type RemoveStation struct {
	Station *Station
}

type MoveStation struct {
	Station  *Station
	Old, New GeoPoint
}

// CloseLoop appended the line's first station again.
type CloseLoop struct {
	Line    *Line
	Station *Station

	controlPoints []*ControlPoint
}

type RenameLine struct {
	Line     *Line
	Old, New string
}

type RemoveLine struct {
	Line *Line
}

type ChangeLineType struct {
	Line     *Line
	Old, New LineTypeID
}

type MoveControlPoint struct {
	ControlPoint *ControlPoint
	Old, New     GeoPoint
}

func (*CreateStation) Kind() OperationKind    { return KindCreateStation }
func (*CrossStation) Kind() OperationKind     { return KindCrossStation }
func (*UncrossStation) Kind() OperationKind   { return KindUncrossStation }
func (*RenameStation) Kind() OperationKind    { return KindRenameStation }
func (*RemoveStation) Kind() OperationKind    { return KindRemoveStation }
func (*MoveStation) Kind() OperationKind      { return KindMoveStation }
func (*CloseLoop) Kind() OperationKind        { return KindCloseLoop }
func (*RenameLine) Kind() OperationKind       { return KindRenameLine }
func (*RemoveLine) Kind() OperationKind       { return KindRemoveLine }
func (*ChangeLineType) Kind() OperationKind   { return KindChangeLineType }
func (*MoveControlPoint) Kind() OperationKind { return KindMoveControlPoint }

func (*CreateStation) operation()    {}
func (*CrossStation) operation()     {}
func (*UncrossStation) operation()   {}
func (*RenameStation) operation()    {}
func (*RemoveStation) operation()    {}
func (*MoveStation) operation()      {}
func (*CloseLoop) operation()        {}
func (*RenameLine) operation()       {}
func (*RemoveLine) operation()       {}
func (*ChangeLineType) operation()   {}
func (*MoveControlPoint) operation() {}

// Inverse returns the effect that reverts op.
func Inverse(op Operation) undo.Effect {
	switch op := op.(type) {
	case *CreateStation:
		return op.Station.remove
	case *CrossStation:
		return func() {
			op.controlPoints = op.Line.removeStationAtIndex(op.Index)
			op.membership = op.Station.dropMembership(op.Line)
		}
	case *UncrossStation:
		return func() { op.Station.restoreCross(op.Line, op.record) }
	case *RenameStation:
		return func() { op.Station.setName(op.Old) }
	case *RemoveStation:
		return op.Station.restore
	case *MoveStation:
		return func() { op.Station.setPosition(op.Old) }
	case *CloseLoop:
		return func() { op.controlPoints = op.Line.removeStationAtIndex(op.Line.Len() - 1) }
	case *RenameLine:
		return func() { op.Line.setName(op.Old) }
	case *RemoveLine:
		return op.Line.restore
	case *ChangeLineType:
		return func() { op.Line.setLineType(mustLineType(op.Old)) }
	case *MoveControlPoint:
		return func() { op.ControlPoint.setPosition(op.Old) }
	}
	return nil
}

// Forward returns the effect that re-applies op after it was reverted.
func Forward(op Operation) undo.Effect {
	switch op := op.(type) {
	case *CreateStation:
		return op.Station.restore
	case *CrossStation:
		return func() {
			op.Line.insertStation(op.Station, op.Index, op.controlPoints)
			op.Station.insertMembership(op.Line, op.membership)
		}
	case *UncrossStation:
		return func() { op.record = op.Station.uncross(op.Line) }
	case *RenameStation:
		return func() { op.Station.setName(op.New) }
	case *RemoveStation:
		return op.Station.remove
	case *MoveStation:
		return func() { op.Station.setPosition(op.New) }
	case *CloseLoop:
		return func() { op.Line.insertStation(op.Station, op.Line.Len(), op.controlPoints) }
	case *RenameLine:
		return func() { op.Line.setName(op.New) }
	case *RemoveLine:
		return op.Line.remove
	case *ChangeLineType:
		return func() { op.Line.setLineType(mustLineType(op.New)) }
	case *MoveControlPoint:
		return func() { op.ControlPoint.setPosition(op.New) }
	}
	return nil
}

func mustLineType(id LineTypeID) LineType {
	lt, ok := LookupLineType(id)
	if !ok {
		panic("domain: unknown line type " + string(id))
	}
	return lt
}
