package agent

import (
	"strings"

	"go.uber.org/zap"

	"github.com/XavTo/dexter/internal/adapter/agentclient"
	"github.com/XavTo/dexter/internal/config"
	"github.com/XavTo/dexter/internal/store"
)

// ModeMock selects the mock agent through AGENT_MODE.
const ModeMock = "MOCK"

// Ensure the HTTP client implements Agent.
var _ Agent = (*agentclient.Client)(nil)

// New creates the agent described by cfg, wrapped so that it records its
// trace to pad. AGENT_MODE=MOCK selects MockAgent; anything else talks to
// the agent service at cfg.AgentURL.
func New(cfg *config.Config, pad store.Scratchpad, logger *zap.Logger) Agent {
	if logger == nil {
		logger = zap.NewNop()
	}

	var base Agent
	if strings.EqualFold(cfg.AgentMode, ModeMock) {
		logger.Info("AGENT_MODE=MOCK detected, using mock agent")
		base = NewMockAgent()
	} else {
		logger.Info("using remote agent", zap.String("agent_url", cfg.AgentURL))
		base = agentclient.NewClient(cfg.AgentURL, cfg.AgentTimeout)
	}
	return NewTraceRecorder(base, pad, logger)
}
