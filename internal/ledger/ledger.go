// Package ledger reconstructs run state by replaying the event log.
//
// Nothing here is cached: every call folds the full event sequence, so the
// derived state can never drift from the log.
package ledger

import (
	"slices"
	"strings"
	"time"

	"github.com/XavTo/dexter/internal/domain"
)

// Rebuild folds events in order into a map of run ID to state, then adds an
// unknown-status entry for every run ID that only has a scratchpad trace.
// Events with an unrecognised type are ignored.
func Rebuild(events []domain.RunEvent, scratchpadRunIDs []string) map[string]*domain.RunState {
	states := make(map[string]*domain.RunState)
	for _, e := range events {
		if e.RunID == "" || !e.Type.IsKnown() {
			continue
		}
		st, ok := states[e.RunID]
		if !ok {
			st = &domain.RunState{RunID: e.RunID, Status: domain.RunStatusUnknown}
			states[e.RunID] = st
		}
		Apply(st, e)
	}

	for _, id := range scratchpadRunIDs {
		if _, ok := states[id]; ok || id == "" {
			continue
		}
		states[id] = &domain.RunState{RunID: id, Status: domain.RunStatusUnknown}
	}
	return states
}

// Apply updates st with a single event.
//
// Status precedence is error > completed > running: a terminal status is
// never downgraded by a later start, and an end arriving after an error
// records its answer without clearing the failure.
func Apply(st *domain.RunState, e domain.RunEvent) {
	if e.Query != "" {
		st.Query = e.Query
	}
	if e.StartedAt != nil {
		st.StartedAt = e.StartedAt
	}
	if e.FinishedAt != nil {
		st.FinishedAt = e.FinishedAt
	}

	switch e.Type {
	case domain.EventTypeStart:
		if !st.Status.IsTerminal() {
			st.Status = domain.RunStatusRunning
		}
	case domain.EventTypeEnd:
		if e.Answer != "" {
			st.Answer = e.Answer
		}
		if st.Status != domain.RunStatusError {
			st.Status = domain.RunStatusCompleted
		}
	case domain.EventTypeError:
		st.Error = e.Error
		st.Status = domain.RunStatusError
	}
}

// Sorted returns the states most recent first.
func Sorted(states map[string]*domain.RunState) []domain.RunState {
	out := make([]domain.RunState, 0, len(states))
	for _, st := range states {
		out = append(out, *st)
	}
	slices.SortStableFunc(out, compareRecentFirst)
	return out
}

// List is Rebuild followed by Sorted.
func List(events []domain.RunEvent, scratchpadRunIDs []string) []domain.RunState {
	return Sorted(Rebuild(events, scratchpadRunIDs))
}

// sortTime is the started_at of a run, or the creation time encoded in its
// ID when no start was recorded.
func sortTime(st domain.RunState) (time.Time, bool) {
	if st.StartedAt != nil {
		return *st.StartedAt, true
	}
	return domain.RunIDTime(st.RunID)
}

func compareRecentFirst(a, b domain.RunState) int {
	ta, okA := sortTime(a)
	tb, okB := sortTime(b)
	switch {
	case okA && okB:
		if c := tb.Compare(ta); c != 0 {
			return c
		}
	case okA:
		return -1
	case okB:
		return 1
	}
	return strings.Compare(b.RunID, a.RunID)
}
