package protocol

import (
	"context"
	"errors"

	"gridnav.ai/internal/nav/cost"
	"gridnav.ai/internal/nav/pathfinder"
	"gridnav.ai/internal/nav/search"
	"gridnav.ai/internal/nav/service"
)

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Request validation and search outcomes.
	ErrNoGridData      = "E_NO_GRID_DATA"
	ErrStartInvalid    = "E_START_INVALID"
	ErrEndInvalid      = "E_END_INVALID"
	ErrUnlinkedAreas   = "E_UNLINKED_AREAS"
	ErrBudgetExhausted = "E_BUDGET_EXHAUSTED"
	ErrNoPathFound     = "E_NO_PATH_FOUND"

	// Service state.
	ErrGridBusy    = "E_GRID_BUSY"
	ErrUnavailable = "E_UNAVAILABLE"
	ErrInternal    = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrNoGridData:      {},
	ErrStartInvalid:    {},
	ErrEndInvalid:      {},
	ErrUnlinkedAreas:   {},
	ErrBudgetExhausted: {},
	ErrNoPathFound:     {},
	ErrGridBusy:        {},
	ErrUnavailable:     {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}

// CodeForError maps a request error to its wire code. nil maps to "".
func CodeForError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, search.ErrNoGridData):
		return ErrNoGridData
	case errors.Is(err, search.ErrStartInvalid):
		return ErrStartInvalid
	case errors.Is(err, search.ErrEndInvalid):
		return ErrEndInvalid
	case errors.Is(err, search.ErrUnlinkedAreas):
		return ErrUnlinkedAreas
	case errors.Is(err, search.ErrBudgetExhausted):
		return ErrBudgetExhausted
	case errors.Is(err, search.ErrNoPathFound):
		return ErrNoPathFound
	case errors.Is(err, pathfinder.ErrGridBusy):
		return ErrGridBusy
	case errors.Is(err, pathfinder.ErrForeignCell), errors.Is(err, pathfinder.ErrBadGrid), errors.Is(err, cost.ErrUnknown):
		return ErrProtoBadRequest
	case errors.Is(err, service.ErrStopped), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrUnavailable
	}
	return ErrInternal
}
