package agent

import (
	"context"
	"iter"
	"time"

	"go.uber.org/zap"

	"github.com/XavTo/dexter/internal/domain"
	"github.com/XavTo/dexter/internal/store"
)

// TraceRecorder wraps an Agent and writes its progress to the scratchpad:
// an init entry when the run begins, then one entry per thinking or
// tool_result event. Events pass through unchanged.
type TraceRecorder struct {
	inner  Agent
	pad    store.Scratchpad
	logger *zap.Logger
	now    func() time.Time
}

// Ensure TraceRecorder implements Agent.
var _ Agent = (*TraceRecorder)(nil)

// NewTraceRecorder creates a recorder around inner.
func NewTraceRecorder(inner Agent, pad store.Scratchpad, logger *zap.Logger) *TraceRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TraceRecorder{inner: inner, pad: pad, logger: logger, now: time.Now}
}

// Run implements Agent.
func (r *TraceRecorder) Run(ctx context.Context, req domain.AgentRequest) iter.Seq2[domain.AgentEvent, error] {
	return func(yield func(domain.AgentEvent, error) bool) {
		r.record(ctx, req.RunID, domain.ScratchpadEntry{
			Type:    domain.EntryTypeInit,
			Content: req.Query,
		})

		for ev, err := range r.inner.Run(ctx, req) {
			if err == nil {
				if entry, ok := entryFor(ev); ok {
					r.record(ctx, req.RunID, entry)
				}
			}
			if !yield(ev, err) {
				return
			}
		}
	}
}

// record never fails the run; a lost trace line only degrades the detail
// view.
func (r *TraceRecorder) record(ctx context.Context, runID string, entry domain.ScratchpadEntry) {
	entry.Timestamp = r.now().UTC()
	if err := r.pad.Append(ctx, runID, entry); err != nil {
		r.logger.Warn("failed to write scratchpad entry",
			zap.String("run_id", runID),
			zap.String("type", string(entry.Type)),
			zap.Error(err))
	}
}

func entryFor(ev domain.AgentEvent) (domain.ScratchpadEntry, bool) {
	switch ev.Type {
	case domain.AgentEventThinking:
		return domain.ScratchpadEntry{Type: domain.EntryTypeThinking, Content: ev.Content}, true
	case domain.AgentEventToolResult:
		return domain.ScratchpadEntry{
			Type:     domain.EntryTypeToolResult,
			ToolName: ev.ToolName,
			Args:     ev.Args,
			Result:   ev.Result,
			Content:  ev.Content,
		}, true
	}
	return domain.ScratchpadEntry{}, false
}
