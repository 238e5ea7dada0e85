package gesture

import (
	"errors"
	"time"
)

// ErrMixedTargets is reported when average-mode resolution meets candidates
// that drive different targets. It is never fatal: the resolver falls back to
// independent dispatch.
var ErrMixedTargets = errors.New("average resolution across mismatched targets")

// GestureConflict records one arbitration outcome for observability. A record
// is emitted for every exclusive group evaluated in a frame, including groups
// with exactly one active candidate (recorded with Contended=false).
type GestureConflict struct {
	Group      string                 `json:"group"`
	MappingIDs []MappingID            `json:"mappingIds"`
	Resolution ConflictResolutionMode `json:"resolution"`
	WinnerID   MappingID              `json:"winnerId,omitempty"`
	Contended  bool                   `json:"contended"`
	Fallback   bool                   `json:"fallback,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
}

// activeResult is one mapping's output for the current frame, before
// arbitration
type activeResult struct {
	mapping     *GestureMapping
	value       float64   // final value, scaled to the target range
	activatedAt time.Time // when the mapping last entered the active set
}

// resolveGroup arbitrates all active mappings of one exclusive group for the
// current frame. It returns the control updates to dispatch and the conflict
// record. The returned error is only ever ErrMixedTargets, reported for
// observability while the fallback updates are still dispatched.
func resolveGroup(group string, mode ConflictResolutionMode, candidates []activeResult, now time.Time) ([]ControlUpdate, GestureConflict, error) {
	ids := make([]MappingID, len(candidates))
	for i, c := range candidates {
		ids[i] = c.mapping.ID
	}
	conflict := GestureConflict{
		Group:      group,
		MappingIDs: ids,
		Resolution: mode,
		Contended:  len(candidates) > 1,
		Timestamp:  now,
	}

	if len(candidates) == 1 {
		c := candidates[0]
		conflict.WinnerID = c.mapping.ID
		return []ControlUpdate{newControlUpdate(c, now)}, conflict, nil
	}

	switch mode {
	case ResolveLatest:
		winner := candidates[0]
		for _, c := range candidates[1:] {
			if c.activatedAt.After(winner.activatedAt) {
				winner = c
			}
		}
		conflict.WinnerID = winner.mapping.ID
		return []ControlUpdate{newControlUpdate(winner, now)}, conflict, nil

	case ResolveAverage:
		targetKey := candidates[0].mapping.Target.Key()
		same := true
		for _, c := range candidates[1:] {
			if c.mapping.Target.Key() != targetKey {
				same = false
				break
			}
		}
		if !same {
			// Distinct targets cannot be averaged; dispatch each candidate
			// independently rather than dropping any of them.
			conflict.Fallback = true
			updates := make([]ControlUpdate, len(candidates))
			for i, c := range candidates {
				updates[i] = newControlUpdate(c, now)
			}
			return updates, conflict, ErrMixedTargets
		}
		sum := 0.0
		for _, c := range candidates {
			sum += c.value
		}
		mean := sum / float64(len(candidates))
		update := newControlUpdate(candidates[0], now)
		update.Value = mean
		update.MappingID = "" // blended output has no single source mapping
		return []ControlUpdate{update}, conflict, nil

	default: // ResolvePriority
		winner := candidates[0]
		for _, c := range candidates[1:] {
			if c.mapping.Arbitration.Priority > winner.mapping.Arbitration.Priority {
				winner = c
				continue
			}
			// Deterministic tie-break: the most recently updated mapping wins
			if c.mapping.Arbitration.Priority == winner.mapping.Arbitration.Priority &&
				c.mapping.UpdatedAt.After(winner.mapping.UpdatedAt) {
				winner = c
			}
		}
		conflict.WinnerID = winner.mapping.ID
		return []ControlUpdate{newControlUpdate(winner, now)}, conflict, nil
	}
}

func newControlUpdate(c activeResult, now time.Time) ControlUpdate {
	return ControlUpdate{
		Target:    c.mapping.Target,
		Value:     c.value,
		MappingID: c.mapping.ID,
		Timestamp: now,
	}
}
