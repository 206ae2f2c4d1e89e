// Package domain defines the core domain models for the run ledger.
package domain

// RunStatus represents the derived status of a run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusError     RunStatus = "error"
	RunStatusUnknown   RunStatus = "unknown"
)

// IsTerminal reports whether no further transition is expected.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusError
}

// EventType represents the type of a run lifecycle event.
type EventType string

const (
	EventTypeStart EventType = "start"
	EventTypeEnd   EventType = "end"
	EventTypeError EventType = "error"
)

// IsKnown reports whether t is one of the lifecycle event types.
func (t EventType) IsKnown() bool {
	return t == EventTypeStart || t == EventTypeEnd || t == EventTypeError
}

// EntryType represents the kind of a scratchpad entry.
type EntryType string

const (
	EntryTypeInit       EntryType = "init"
	EntryTypeToolResult EntryType = "tool_result"
	EntryTypeThinking   EntryType = "thinking"
)

// AgentEventType represents the kind of an event produced by the agent.
type AgentEventType string

const (
	AgentEventThinking   AgentEventType = "thinking"
	AgentEventToolCall   AgentEventType = "tool_call"
	AgentEventToolResult AgentEventType = "tool_result"
	AgentEventDone       AgentEventType = "done"
)
