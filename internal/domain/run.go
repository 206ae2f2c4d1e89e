package domain

import (
	"encoding/json"
	"time"
)

// RunEvent is one immutable line of the event log.
type RunEvent struct {
	Type       EventType  `json:"type"`
	RunID      string     `json:"run_id"`
	Query      string     `json:"query,omitempty"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Answer     string     `json:"answer,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// RunState is the current view of a run, derived by replaying its events.
type RunState struct {
	RunID      string     `json:"run_id"`
	Query      string     `json:"query"`
	Status     RunStatus  `json:"status"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Answer     string     `json:"answer,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// ScratchpadEntry is one step of a run's execution trace.
type ScratchpadEntry struct {
	Type      EntryType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Content   string          `json:"content,omitempty"`
	ToolName  string          `json:"tool_name,omitempty"`
	Args      json.RawMessage `json:"args,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Truncated bool            `json:"truncated,omitempty"`
}

// LaunchResponse is returned to the caller once a run has been started.
type LaunchResponse struct {
	RunID     string    `json:"run_id"`
	Status    RunStatus `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// RunDetail is a run's state plus the tail of its execution trace.
type RunDetail struct {
	Run     RunState          `json:"run"`
	Entries []ScratchpadEntry `json:"entries"`
}
