// Package store provides the file-backed persistence of the run ledger: an
// append-only event log and a directory of per-run scratchpad files.
package store

import (
	"context"

	"github.com/XavTo/dexter/internal/domain"
)

// EventLog is the append-only record of run lifecycle events.
type EventLog interface {
	// Append durably writes one event.
	Append(ctx context.Context, event domain.RunEvent) error

	// ReadAll returns every readable event in arrival order.
	ReadAll(ctx context.Context) ([]domain.RunEvent, error)
}

// Scratchpad holds per-run execution traces.
type Scratchpad interface {
	// Append adds an entry to the run's trace.
	Append(ctx context.Context, runID string, entry domain.ScratchpadEntry) error

	// RunIDs lists the runs that have a trace.
	RunIDs(ctx context.Context) ([]string, error)

	// Tail returns at most limit of the most recent entries of the run's
	// trace. exists is false when the run has no trace at all.
	Tail(ctx context.Context, runID string, limit int) (entries []domain.ScratchpadEntry, exists bool, err error)
}
