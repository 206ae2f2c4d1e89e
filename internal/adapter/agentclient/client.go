// Package agentclient provides an HTTP client for invoking the external
// agent service with SSE streaming.
package agentclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"
	"time"

	"github.com/XavTo/dexter/internal/domain"
)

// SSEEvent represents a parsed SSE event.
type SSEEvent struct {
	Event string
	Data  string
}

// EventHandler is called for each SSE event from the agent.
type EventHandler func(event SSEEvent) error

// ErrorEventData is the data for an error SSE event.
type ErrorEventData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// doneEventData accepts both answer spellings agents send.
type doneEventData struct {
	Answer       string `json:"answer"`
	FinalMessage string `json:"final_message"`
}

// errStopped signals that the consumer stopped iterating.
var errStopped = errors.New("consumer stopped")

// maxEventSize bounds one SSE line. Tool results can be large.
const maxEventSize = 16 << 20

// Client is an HTTP client for invoking the agent.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a new agent client. timeout bounds a whole invocation.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
	}
}

// Run invokes the agent and exposes its SSE stream as a sequence. Stream
// errors, non-200 responses and agent error events end the sequence with a
// non-nil error.
func (c *Client) Run(ctx context.Context, req domain.AgentRequest) iter.Seq2[domain.AgentEvent, error] {
	return func(yield func(domain.AgentEvent, error) bool) {
		err := c.Invoke(ctx, req, func(event SSEEvent) error {
			agentEvent, ok, err := ParseEvent(event)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			if !yield(agentEvent, nil) {
				return errStopped
			}
			return nil
		})
		if err != nil && !errors.Is(err, errStopped) {
			yield(domain.AgentEvent{}, err)
		}
	}
}

// Invoke calls the agent's /invoke endpoint and streams SSE events.
func (c *Client) Invoke(ctx context.Context, req domain.AgentRequest, handler EventHandler) error {
	// Prepare request body
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	// Create HTTP request
	url := strings.TrimSuffix(c.baseURL, "/") + "/invoke"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("X-Run-ID", req.RunID)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to invoke agent: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("agent returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}

	return c.parseSSE(resp.Body, handler)
}

// parseSSE parses an SSE stream and calls the handler for each event.
func (c *Client) parseSSE(reader io.Reader, handler EventHandler) error {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)
	var event SSEEvent

	for scanner.Scan() {
		line := scanner.Text()

		// Empty line marks end of event
		if line == "" {
			if event.Event != "" || event.Data != "" {
				if err := handler(event); err != nil {
					return err
				}
				event = SSEEvent{}
			}
			continue
		}

		if strings.HasPrefix(line, "event:") {
			event.Event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		} else if strings.HasPrefix(line, "data:") {
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if event.Data != "" {
				event.Data += "\n" + data
			} else {
				event.Data = data
			}
		}
		// Ignore comments (lines starting with :) and other fields
	}

	if event.Event != "" || event.Data != "" {
		if err := handler(event); err != nil {
			return err
		}
	}

	return scanner.Err()
}

// ParseEvent converts an SSE event into an agent event. ok is false for
// event kinds the ledger does not track. An error event from the agent is
// returned as an error.
func ParseEvent(event SSEEvent) (domain.AgentEvent, bool, error) {
	switch event.Event {
	case "thinking", "tool_call", "tool_result":
		var ev domain.AgentEvent
		if err := json.Unmarshal([]byte(event.Data), &ev); err != nil {
			return domain.AgentEvent{}, false, fmt.Errorf("failed to parse %s event: %w", event.Event, err)
		}
		ev.Type = domain.AgentEventType(event.Event)
		return ev, true, nil

	case "done":
		done, err := ParseDoneEvent(event.Data)
		if err != nil {
			return domain.AgentEvent{}, false, err
		}
		return *done, true, nil

	case "error":
		errEvt, err := ParseErrorEvent(event.Data)
		if err != nil {
			return domain.AgentEvent{}, false, err
		}
		if errEvt.Code != "" {
			return domain.AgentEvent{}, false, fmt.Errorf("agent error (%s): %s", errEvt.Code, errEvt.Message)
		}
		return domain.AgentEvent{}, false, fmt.Errorf("agent error: %s", errEvt.Message)
	}
	return domain.AgentEvent{}, false, nil
}

// ParseDoneEvent parses a done event data.
func ParseDoneEvent(data string) (*domain.AgentEvent, error) {
	var done doneEventData
	if err := json.Unmarshal([]byte(data), &done); err != nil {
		return nil, fmt.Errorf("failed to parse done event: %w", err)
	}
	answer := done.Answer
	if answer == "" {
		answer = done.FinalMessage
	}
	return &domain.AgentEvent{Type: domain.AgentEventDone, Answer: answer}, nil
}

// ParseErrorEvent parses an error event data.
func ParseErrorEvent(data string) (*ErrorEventData, error) {
	var errEvt ErrorEventData
	if err := json.Unmarshal([]byte(data), &errEvt); err != nil {
		return nil, fmt.Errorf("failed to parse error event: %w", err)
	}
	return &errEvt, nil
}
