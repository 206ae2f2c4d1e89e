// Package agent defines the boundary to the analytical agent that answers a
// run's query.
package agent

import (
	"context"
	"iter"

	"github.com/XavTo/dexter/internal/domain"
)

// Agent runs a query and reports its progress as a lazy, finite,
// non-restartable sequence. A well-behaved sequence ends with exactly one
// event of type done carrying the answer. A non-nil error in the sequence
// means the invocation failed.
type Agent interface {
	Run(ctx context.Context, req domain.AgentRequest) iter.Seq2[domain.AgentEvent, error]
}

// Func adapts a function to the Agent interface.
type Func func(ctx context.Context, req domain.AgentRequest) iter.Seq2[domain.AgentEvent, error]

// Run calls f.
func (f Func) Run(ctx context.Context, req domain.AgentRequest) iter.Seq2[domain.AgentEvent, error] {
	return f(ctx, req)
}

// Events returns a sequence that yields the given events in order.
func Events(events ...domain.AgentEvent) iter.Seq2[domain.AgentEvent, error] {
	return func(yield func(domain.AgentEvent, error) bool) {
		for _, e := range events {
			if !yield(e, nil) {
				return
			}
		}
	}
}

// Fail returns a sequence that yields the given events and then err.
func Fail(err error, events ...domain.AgentEvent) iter.Seq2[domain.AgentEvent, error] {
	return func(yield func(domain.AgentEvent, error) bool) {
		for _, e := range events {
			if !yield(e, nil) {
				return
			}
		}
		yield(domain.AgentEvent{}, err)
	}
}
