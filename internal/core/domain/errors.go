package domain

import "errors"

var (
	ErrStationNotFound      = errors.New("station not found")
	ErrLineNotFound         = errors.New("line not found")
	ErrControlPointNotFound = errors.New("control point not found")
	ErrUnknownLineType      = errors.New("unknown line type")
	ErrUnknownIconKind      = errors.New("unknown icon kind")
	ErrMalformedDocument    = errors.New("malformed document")
	ErrSessionNotFound      = errors.New("editor session not found")
	ErrTooManySessions      = errors.New("too many editor sessions")
	ErrMapNotFound          = errors.New("map not found")
)
