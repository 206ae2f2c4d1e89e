package service

import (
	"context"
	"iter"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/XavTo/dexter/internal/adapter/agent"
	"github.com/XavTo/dexter/internal/config"
	"github.com/XavTo/dexter/internal/domain"
	"github.com/XavTo/dexter/internal/policy"
	"github.com/XavTo/dexter/internal/store"
)

type testEnv struct {
	svc    *Service
	events *store.FileEventLog
	pad    *store.DirScratchpad
	cfg    *config.Config
}

func newTestEnv(t *testing.T, a agent.Agent, configure ...func(*config.Config)) *testEnv {
	t.Helper()

	dir := t.TempDir()
	cfg := config.Default()
	cfg.DataDir = dir
	cfg.AuthSecret = "test-secret"
	for _, fn := range configure {
		fn(cfg)
	}

	events := store.NewFileEventLog(filepath.Join(dir, "runs.jsonl"), nil)
	pad := store.NewDirScratchpad(filepath.Join(dir, "scratchpad"), nil)

	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	require.NoError(t, err)

	env := &testEnv{
		svc:    New(events, pad, agent.NewTraceRecorder(a, pad, nil), cfg, engine, nil),
		events: events,
		pad:    pad,
		cfg:    cfg,
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = env.svc.Wait(ctx)
	})
	return env
}

func (e *testEnv) wait(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.svc.Wait(ctx))
}

// gatedAgent blocks in its first step until release is closed.
type gatedAgent struct {
	release chan struct{}
	answer  string
}

func newGatedAgent(answer string) *gatedAgent {
	return &gatedAgent{release: make(chan struct{}), answer: answer}
}

func (g *gatedAgent) Run(ctx context.Context, req domain.AgentRequest) iter.Seq2[domain.AgentEvent, error] {
	return func(yield func(domain.AgentEvent, error) bool) {
		if !yield(domain.AgentEvent{Type: domain.AgentEventThinking, Content: "working on " + req.Query}, nil) {
			return
		}
		<-g.release
		yield(domain.AgentEvent{Type: domain.AgentEventDone, Answer: g.answer}, nil)
	}
}

func answering(answer string) agent.Agent {
	return agent.Func(func(ctx context.Context, req domain.AgentRequest) iter.Seq2[domain.AgentEvent, error] {
		return agent.Events(domain.AgentEvent{Type: domain.AgentEventDone, Answer: answer})
	})
}

func countByType(events []domain.RunEvent, runID string) map[domain.EventType]int {
	counts := make(map[domain.EventType]int)
	for _, e := range events {
		if e.RunID == runID {
			counts[e.Type]++
		}
	}
	return counts
}
