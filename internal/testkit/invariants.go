// Package testkit provides invariant checkers shared by tests across the
// tracer packages.
package testkit

import (
	"fmt"

	"sightline/internal/event"
)

// CheckEventInvariants runs the session-wide ordering invariants on a
// captured event history:
// 1) event ids are strictly increasing with no gaps or reuse
// 2) call stack depth is never negative
// 3) parent_event_id, when present, references an earlier call-class event
func CheckEventInvariants(events []*event.TraceEvent) error {
	if len(events) == 0 {
		return nil
	}

	calls := make(map[uint64]bool, len(events))
	prev := events[0].EventID - 1

	for i, ev := range events {
		if ev == nil {
			return fmt.Errorf("nil event at index %d", i)
		}

		// 1) strict monotonic ids without gaps
		if ev.EventID != prev+1 {
			return fmt.Errorf("event id sequence broken at index %d: got=%d want=%d", i, ev.EventID, prev+1)
		}
		prev = ev.EventID

		// 2) depth sanity
		if ev.CallStackDepth < 0 {
			return fmt.Errorf("negative call stack depth on event %d", ev.EventID)
		}

		// 3) parent linkage
		if ev.ParentEventID != nil {
			pid := *ev.ParentEventID
			if pid >= ev.EventID {
				return fmt.Errorf("event %d has non-causal parent %d", ev.EventID, pid)
			}
			if !calls[pid] {
				return fmt.Errorf("event %d has parent %d which is not a call event", ev.EventID, pid)
			}
		}

		if ev.EventType.IsCall() {
			calls[ev.EventID] = true
		}
	}
	return nil
}

// CheckUniqueIDs verifies that no event id is reused across the given
// histories, for interleaved multi-goroutine captures where the combined
// stream need not be gap-free per feed.
func CheckUniqueIDs(histories ...[]*event.TraceEvent) error {
	seen := make(map[uint64]bool)
	for _, events := range histories {
		for _, ev := range events {
			if seen[ev.EventID] {
				return fmt.Errorf("event id %d reused", ev.EventID)
			}
			seen[ev.EventID] = true
		}
	}
	return nil
}
