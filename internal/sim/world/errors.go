package world

import (
	"errors"

	"go.uber.org/zap"
)

// Recoverable per-actor failures. Systems absorb these into fallback
// states; RunTick never returns them.
var (
	ErrMissingZone        = errors.New("missing zone")
	ErrStaleTarget        = errors.New("stale target")
	ErrBlockedMovement    = errors.New("blocked movement")
	ErrTransitionRejected = errors.New("transition rejected")
)

func errKind(err error) string {
	switch {
	case errors.Is(err, ErrMissingZone):
		return "missing_zone"
	case errors.Is(err, ErrStaleTarget):
		return "stale_target"
	case errors.Is(err, ErrBlockedMovement):
		return "blocked_movement"
	case errors.Is(err, ErrTransitionRejected):
		return "transition_rejected"
	}
	return "other"
}

// absorb records a recoverable error against the current pass.
func (w *World) absorb(err error) {
	if err == nil {
		return
	}
	kind := errKind(err)
	if w.pass.Absorbed == nil {
		w.pass.Absorbed = map[string]int{}
	}
	w.pass.Absorbed[kind]++
	w.metrics.AddAbsorbed(kind)
	w.log.Debug("absorbed", zap.String("kind", kind), zap.Error(err))
}
