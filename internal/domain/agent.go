package domain

import "encoding/json"

// AgentRequest is the input handed to the agent for one run.
type AgentRequest struct {
	RunID         string `json:"run_id"`
	Query         string `json:"query"`
	Model         string `json:"model,omitempty"`
	Provider      string `json:"provider,omitempty"`
	MaxIterations int    `json:"max_iterations,omitempty"`
}

// AgentEvent is one step reported by the agent. Exactly one event of a
// well-behaved sequence has type done and carries the final answer.
type AgentEvent struct {
	Type     AgentEventType  `json:"type"`
	Content  string          `json:"content,omitempty"`
	ToolName string          `json:"tool_name,omitempty"`
	Args     json.RawMessage `json:"args,omitempty"`
	Result   json.RawMessage `json:"result,omitempty"`
	Answer   string          `json:"answer,omitempty"`
}
