package service

import (
	"context"
	"fmt"

	"github.com/XavTo/dexter/internal/domain"
	"github.com/XavTo/dexter/internal/ledger"
)

// ListRuns returns every known run, most recent first.
func (s *Service) ListRuns(ctx context.Context) ([]domain.RunState, error) {
	events, err := s.events.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read event log: %w", err)
	}
	runIDs, err := s.scratchpad.RunIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list scratchpads: %w", err)
	}
	return ledger.List(events, runIDs), nil
}

// GetRun returns the current state of one run.
func (s *Service) GetRun(ctx context.Context, runID string) (*domain.RunState, error) {
	st, _, err := s.lookup(ctx, runID, 1)
	if err != nil {
		return nil, err
	}
	return st, nil
}

// GetRunDetail returns a run's state and the formatted tail of its trace.
func (s *Service) GetRunDetail(ctx context.Context, runID string) (*domain.RunDetail, error) {
	st, entries, err := s.lookup(ctx, runID, s.config.DetailEntryLimit)
	if err != nil {
		return nil, err
	}
	return &domain.RunDetail{
		Run:     *st,
		Entries: FormatEntries(entries, s.config.EntryCharBudget),
	}, nil
}

func (s *Service) lookup(ctx context.Context, runID string, limit int) (*domain.RunState, []domain.ScratchpadEntry, error) {
	if !domain.ValidRunID(runID) {
		return nil, nil, domain.ErrRunNotFound
	}

	events, err := s.events.ReadAll(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read event log: %w", err)
	}
	entries, hasTrace, err := s.scratchpad.Tail(ctx, runID, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read scratchpad: %w", err)
	}

	var scratchpadOnly []string
	if hasTrace {
		scratchpadOnly = []string{runID}
	}
	st, ok := ledger.Rebuild(events, scratchpadOnly)[runID]
	if !ok {
		return nil, nil, domain.ErrRunNotFound
	}
	return st, entries, nil
}
