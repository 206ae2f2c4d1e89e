package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/XavTo/dexter/internal/domain"
	"github.com/XavTo/dexter/internal/policy"
)

// LaunchRun records the start of a new run and hands it to the agent in the
// background. It returns once the start event is durable; the outcome is
// only observable through later ledger reads.
func (s *Service) LaunchRun(ctx context.Context, query string) (*domain.LaunchResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.ErrInvalidQuery
	}

	req := domain.AgentRequest{
		Query:         query,
		Model:         s.config.DefaultModel,
		Provider:      s.config.DefaultProvider,
		MaxIterations: s.config.MaxIterations,
	}
	if err := s.admit(ctx, req); err != nil {
		return nil, err
	}

	startedAt := s.now().UTC()
	req.RunID = domain.NewRunID(startedAt)

	if err := s.events.Append(ctx, domain.RunEvent{
		Type:      domain.EventTypeStart,
		RunID:     req.RunID,
		Query:     query,
		StartedAt: &startedAt,
	}); err != nil {
		return nil, fmt.Errorf("failed to record run start: %w", err)
	}

	s.logger.Info("run started", zap.String("run_id", req.RunID))

	s.inflight.Add(1)
	go s.executeRun(req)

	return &domain.LaunchResponse{
		RunID:     req.RunID,
		Status:    domain.RunStatusRunning,
		StartedAt: startedAt,
	}, nil
}

func (s *Service) admit(ctx context.Context, req domain.AgentRequest) error {
	if s.policyEngine == nil {
		return nil
	}
	decision, reason, err := s.policyEngine.Evaluate(ctx, policy.Input{
		Query:          req.Query,
		Model:          req.Model,
		Provider:       req.Provider,
		MaxQueryLength: s.config.MaxQueryLength,
	})
	if err != nil {
		return fmt.Errorf("failed to evaluate admission policy: %w", err)
	}
	if decision == policy.DecisionBlock {
		if reason == "" {
			return domain.ErrQueryRejected
		}
		return fmt.Errorf("%w: %s", domain.ErrQueryRejected, reason)
	}
	return nil
}

// executeRun drives one agent invocation to exactly one terminal event.
func (s *Service) executeRun(req domain.AgentRequest) {
	defer s.inflight.Done()

	ctx := context.Background()
	logger := s.logger.With(zap.String("run_id", req.RunID))

	if s.slots != nil {
		// Acquire cannot fail on a background context.
		_ = s.slots.Acquire(ctx, 1)
		defer s.slots.Release(1)
	}

	answer, err := s.invokeAgent(ctx, req)

	finishedAt := s.now().UTC()
	event := domain.RunEvent{RunID: req.RunID, FinishedAt: &finishedAt}
	if err != nil {
		event.Type = domain.EventTypeError
		event.Error = "agent execution failed: " + err.Error()
		logger.Warn("run failed", zap.Error(err))
	} else {
		event.Type = domain.EventTypeEnd
		event.Answer = answer
		logger.Info("run completed")
	}

	if err := s.events.Append(ctx, event); err != nil {
		logger.Error("failed to record run outcome", zap.String("type", string(event.Type)), zap.Error(err))
		s.recordOutcomeFailure(ctx, logger, req.RunID, err)
	}
}

// recordOutcomeFailure makes one more attempt to close the run, as an error,
// after its terminal event could not be written.
func (s *Service) recordOutcomeFailure(ctx context.Context, logger *zap.Logger, runID string, cause error) {
	finishedAt := s.now().UTC()
	event := domain.RunEvent{
		Type:       domain.EventTypeError,
		RunID:      runID,
		FinishedAt: &finishedAt,
		Error:      "failed to record run outcome: " + cause.Error(),
	}
	if err := s.events.Append(ctx, event); err != nil {
		logger.Error("run has no terminal event and will show as running", zap.Error(err))
	}
}

// invokeAgent consumes the agent's sequence up to its completion event.
func (s *Service) invokeAgent(ctx context.Context, req domain.AgentRequest) (answer string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("agent panicked: %v", r)
		}
	}()

	for ev, evErr := range s.agent.Run(ctx, req) {
		if evErr != nil {
			return "", evErr
		}
		if ev.Type == domain.AgentEventDone {
			return ev.Answer, nil
		}
	}
	return "", errors.New("agent finished without producing a final answer")
}
