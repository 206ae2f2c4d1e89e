// Package service implements the run ledger: launching runs, recording their
// lifecycle and answering queries over the reconstructed state.
package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/XavTo/dexter/internal/adapter/agent"
	"github.com/XavTo/dexter/internal/config"
	"github.com/XavTo/dexter/internal/policy"
	"github.com/XavTo/dexter/internal/store"
)

type Service struct {
	events       store.EventLog
	scratchpad   store.Scratchpad
	agent        agent.Agent
	config       *config.Config
	policyEngine *policy.Engine
	logger       *zap.Logger

	// slots bounds concurrently executing agent invocations; nil means
	// unbounded.
	slots    *semaphore.Weighted
	inflight sync.WaitGroup
	now      func() time.Time
}

func New(events store.EventLog, scratchpad store.Scratchpad, agent agent.Agent, cfg *config.Config, policyEngine *policy.Engine, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		events:       events,
		scratchpad:   scratchpad,
		agent:        agent,
		config:       cfg,
		policyEngine: policyEngine,
		logger:       logger,
		now:          time.Now,
	}
	if cfg.MaxConcurrentRuns > 0 {
		s.slots = semaphore.NewWeighted(int64(cfg.MaxConcurrentRuns))
	}
	return s
}

// Wait blocks until every launched run has written its terminal event, or
// ctx is done.
func (s *Service) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
