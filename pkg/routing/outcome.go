package routing

import (
	"context"

	"github.com/pkg/errors"

	"offline_router/pkg/store"
)

var (
	// ErrNodeNotFound is returned when no graph node lies near a query point.
	ErrNodeNotFound = errors.New("no node near query point")
	// ErrNoRoute is returned when no route exists between the two points.
	ErrNoRoute = errors.New("no route found")
)

// Outcome classifies how a query ended.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeNotFound
	OutcomeNoRoute
	OutcomeCancelled
	OutcomeCorrupt
	OutcomeIO
)

var outcomeNames = [...]string{"ok", "not_found", "no_route", "cancelled", "corrupt", "io"}

func (o Outcome) String() string {
	if o < 0 || int(o) >= len(outcomeNames) {
		return "unknown"
	}
	return outcomeNames[o]
}

// Classify maps an error returned by the engine to its outcome. Errors it
// does not recognize count as I/O failures.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrNodeNotFound):
		return OutcomeNotFound
	case errors.Is(err, ErrNoRoute):
		return OutcomeNoRoute
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCancelled
	case errors.Is(err, store.ErrFormat), errors.Is(err, ErrNegativeWeight):
		return OutcomeCorrupt
	default:
		return OutcomeIO
	}
}
