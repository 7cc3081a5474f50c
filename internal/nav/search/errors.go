package search

import "errors"

var (
	ErrNoGridData      = errors.New("no grid data")
	ErrStartInvalid    = errors.New("start position is off the grid")
	ErrEndInvalid      = errors.New("end position is off the grid")
	ErrUnlinkedAreas   = errors.New("start and end are in unlinked areas")
	ErrBudgetExhausted = errors.New("iteration budget exhausted")
	ErrNoPathFound     = errors.New("no path found")
)

type Status uint8

const (
	StatusInProgress Status = iota
	StatusFound
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusInProgress:
		return "in_progress"
	case StatusFound:
		return "found"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}
