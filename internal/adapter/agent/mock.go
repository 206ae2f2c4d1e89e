package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"time"

	"github.com/XavTo/dexter/internal/domain"
)

// MockAgent is a deterministic local agent used in development and tests.
type MockAgent struct {
	// StepDelay is slept between steps to imitate real work.
	StepDelay time.Duration
}

// Ensure MockAgent implements Agent.
var _ Agent = (*MockAgent)(nil)

// NewMockAgent creates a new mock agent.
func NewMockAgent() *MockAgent {
	return &MockAgent{StepDelay: 100 * time.Millisecond}
}

// Run simulates a short research loop ending in a canned answer.
func (m *MockAgent) Run(ctx context.Context, req domain.AgentRequest) iter.Seq2[domain.AgentEvent, error] {
	return func(yield func(domain.AgentEvent, error) bool) {
		args, _ := json.Marshal(map[string]string{"query": req.Query})
		result, _ := json.Marshal(map[string]string{
			"summary": fmt.Sprintf("mock search results for %q", req.Query),
		})

		steps := []domain.AgentEvent{
			{Type: domain.AgentEventThinking, Content: "Planning research for: " + req.Query},
			{Type: domain.AgentEventToolCall, ToolName: "financial_search", Args: args},
			{Type: domain.AgentEventToolResult, ToolName: "financial_search", Args: args, Result: result},
			{Type: domain.AgentEventDone, Answer: "Mock answer for: " + req.Query},
		}

		for _, step := range steps {
			if err := m.sleep(ctx); err != nil {
				yield(domain.AgentEvent{}, err)
				return
			}
			if !yield(step, nil) {
				return
			}
		}
	}
}

func (m *MockAgent) sleep(ctx context.Context) error {
	if m.StepDelay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(m.StepDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
