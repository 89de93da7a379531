package session

import (
	"context"
	"fmt"
	"strings"
)

// ExitDecision is the user's answer to "save before exiting?".
type ExitDecision int

const (
	ExitCancel ExitDecision = iota
	ExitSave
	ExitDiscard
)

func (d ExitDecision) String() string {
	switch d {
	case ExitSave:
		return "save"
	case ExitDiscard:
		return "discard"
	default:
		return "cancel"
	}
}

// ParseExitDecision accepts "save"/"yes", "discard"/"no" and "cancel".
func ParseExitDecision(s string) (ExitDecision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "save", "yes", "y":
		return ExitSave, nil
	case "discard", "no", "n":
		return ExitDiscard, nil
	case "cancel", "":
		return ExitCancel, nil
	}
	return ExitCancel, fmt.Errorf("%w: unknown exit decision %q", ErrValidation, s)
}

// Exit applies the close contract. It reports whether the caller may close.
// Save flushes first and refuses to close when the flush fails, so nothing
// is lost; cancel never closes.
func (s *Session) Exit(ctx context.Context, decision ExitDecision) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch decision {
	case ExitSave:
		if err := s.persistLocked(ctx); err != nil {
			return false, err
		}
		s.log.Info("exiting after save")
		return true, nil
	case ExitDiscard:
		s.log.Info("exiting without saving", "dirty", s.dirty)
		return true, nil
	case ExitCancel:
		return false, nil
	}
	return false, fmt.Errorf("%w: unknown exit decision %d", ErrValidation, int(decision))
}
