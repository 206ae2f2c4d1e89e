package ledger

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XavTo/dexter/internal/domain"
)

func at(sec int) *time.Time {
	t := time.Date(2026, 10, 19, 12, 0, sec, 0, time.UTC)
	return &t
}

func start(id, query string, sec int) domain.RunEvent {
	return domain.RunEvent{Type: domain.EventTypeStart, RunID: id, Query: query, StartedAt: at(sec)}
}

func end(id, answer string) domain.RunEvent {
	return domain.RunEvent{Type: domain.EventTypeEnd, RunID: id, Answer: answer, FinishedAt: at(59)}
}

func fail(id, msg string) domain.RunEvent {
	return domain.RunEvent{Type: domain.EventTypeError, RunID: id, Error: msg, FinishedAt: at(59)}
}

// expectedStatus is the reference definition of the fold.
func expectedStatus(events []domain.RunEvent) domain.RunStatus {
	var sawEnd, sawStart bool
	for _, e := range events {
		switch e.Type {
		case domain.EventTypeError:
			return domain.RunStatusError
		case domain.EventTypeEnd:
			sawEnd = true
		case domain.EventTypeStart:
			sawStart = true
		}
	}
	if sawEnd {
		return domain.RunStatusCompleted
	}
	if sawStart {
		return domain.RunStatusRunning
	}
	return domain.RunStatusUnknown
}

func TestRebuildStatusMatchesReferenceForAllSequences(t *testing.T) {
	kinds := []domain.EventType{domain.EventTypeStart, domain.EventTypeEnd, domain.EventTypeError}

	var gen func(prefix []domain.RunEvent, depth int)
	gen = func(prefix []domain.RunEvent, depth int) {
		if len(prefix) > 0 {
			states := Rebuild(prefix, nil)
			require.Contains(t, states, "r")
			assert.Equal(t, expectedStatus(prefix), states["r"].Status, "sequence %v", typesOf(prefix))

			again := Rebuild(prefix, nil)
			assert.Equal(t, *states["r"], *again["r"], "re-folding must be idempotent")
		}
		if depth == 0 {
			return
		}
		for _, k := range kinds {
			next := append(append([]domain.RunEvent(nil), prefix...), domain.RunEvent{Type: k, RunID: "r", Error: "boom"})
			gen(next, depth-1)
		}
	}
	gen(nil, 4)
}

func typesOf(events []domain.RunEvent) []domain.EventType {
	out := make([]domain.EventType, len(events))
	for i, e := range events {
		out[i] = e.Type
	}
	return out
}

func TestRebuildFieldsFromLifecycle(t *testing.T) {
	states := Rebuild([]domain.RunEvent{
		start("r1", "AAPL outlook", 1),
		start("r2", "MSFT outlook", 2),
		end("r1", "bullish"),
		fail("r2", "agent execution failed: timeout"),
	}, nil)

	require.Len(t, states, 2)

	r1 := states["r1"]
	assert.Equal(t, domain.RunStatusCompleted, r1.Status)
	assert.Equal(t, "AAPL outlook", r1.Query)
	assert.Equal(t, "bullish", r1.Answer)
	assert.Equal(t, at(1), r1.StartedAt)
	assert.Equal(t, at(59), r1.FinishedAt)
	assert.Empty(t, r1.Error)

	r2 := states["r2"]
	assert.Equal(t, domain.RunStatusError, r2.Status)
	assert.Equal(t, "agent execution failed: timeout", r2.Error)
	assert.Equal(t, "MSFT outlook", r2.Query)
}

func TestRebuildStartDoesNotDowngradeTerminal(t *testing.T) {
	states := Rebuild([]domain.RunEvent{end("r1", "done"), start("r1", "q", 1)}, nil)
	assert.Equal(t, domain.RunStatusCompleted, states["r1"].Status)
	assert.Equal(t, "q", states["r1"].Query)
}

func TestRebuildEndAfterErrorKeepsError(t *testing.T) {
	states := Rebuild([]domain.RunEvent{start("r1", "q", 1), fail("r1", "boom"), end("r1", "late")}, nil)
	assert.Equal(t, domain.RunStatusError, states["r1"].Status)
	assert.Equal(t, "boom", states["r1"].Error)
	assert.Equal(t, "late", states["r1"].Answer)
}

func TestRebuildAddsScratchpadOnlyRuns(t *testing.T) {
	states := Rebuild([]domain.RunEvent{start("r1", "q", 1)}, []string{"r1", "orphan"})

	require.Len(t, states, 2)
	assert.Equal(t, domain.RunStatusRunning, states["r1"].Status)

	orphan := states["orphan"]
	assert.Equal(t, domain.RunStatusUnknown, orphan.Status)
	assert.Empty(t, orphan.Query)
	assert.Nil(t, orphan.StartedAt)
}

func TestRebuildIgnoresMalformedEventsLikeTheyWereAbsent(t *testing.T) {
	valid := []domain.RunEvent{start("r1", "q1", 1), start("r2", "q2", 2), end("r1", "a")}
	withJunk := []domain.RunEvent{valid[0], {Type: "start"}, valid[1], valid[2]}

	assert.Equal(t, Rebuild(valid, nil), Rebuild(withJunk, nil))
}

func TestRebuildIgnoresUnrecognisedEventTypes(t *testing.T) {
	events := []domain.RunEvent{
		{Type: "START", RunID: "x", Query: "q"},
		{Type: "progress", RunID: "r1", Query: "ignored"},
		start("r1", "q1", 1),
	}

	states := Rebuild(events, nil)
	assert.NotContains(t, states, "x")
	require.Contains(t, states, "r1")
	assert.Equal(t, domain.RunStatusRunning, states["r1"].Status)
	assert.Equal(t, "q1", states["r1"].Query)
}

func TestSortedMostRecentFirst(t *testing.T) {
	runs := List([]domain.RunEvent{
		start("a", "q", 10),
		start("b", "q", 30),
		start("c", "q", 20),
	}, nil)

	ids := make([]string, len(runs))
	for i, r := range runs {
		ids[i] = r.RunID
	}
	assert.Equal(t, []string{"b", "c", "a"}, ids)
}

func TestSortedTiesOrderedByRunID(t *testing.T) {
	events := []domain.RunEvent{start("x1", "q", 5), start("x3", "q", 5), start("x2", "q", 5)}

	for i := 0; i < 10; i++ {
		runs := List(events, nil)
		require.Len(t, runs, 3)
		assert.Equal(t, "x3", runs[0].RunID)
		assert.Equal(t, "x2", runs[1].RunID)
		assert.Equal(t, "x1", runs[2].RunID)
	}
}

func TestSortedFallsBackToRunIDTime(t *testing.T) {
	older := domain.NewRunID(time.Date(2026, 10, 19, 11, 0, 0, 0, time.UTC))
	newer := domain.NewRunID(time.Date(2026, 10, 19, 13, 0, 0, 0, time.UTC))

	runs := List([]domain.RunEvent{start("with-start", "q", 0)}, []string{older, newer, "zz-legacy", "aa-legacy"})

	ids := make([]string, len(runs))
	for i, r := range runs {
		ids[i] = r.RunID
	}
	// 13:00 (id time) > 12:00:00 (started_at) > 11:00 (id time) > runs without any time.
	assert.Equal(t, []string{newer, "with-start", older, "zz-legacy", "aa-legacy"}, ids)
}

func TestListEmpty(t *testing.T) {
	assert.Empty(t, List(nil, nil))
}

func BenchmarkRebuild(b *testing.B) {
	events := make([]domain.RunEvent, 0, 2000)
	for i := 0; i < 1000; i++ {
		id := fmt.Sprintf("r%04d", i)
		events = append(events, start(id, "q", i%60), end(id, "a"))
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = List(events, nil)
	}
}
