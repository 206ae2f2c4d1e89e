package http

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"iter"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XavTo/dexter/internal/adapter/agent"
	"github.com/XavTo/dexter/internal/config"
	"github.com/XavTo/dexter/internal/domain"
	"github.com/XavTo/dexter/internal/policy"
	"github.com/XavTo/dexter/internal/service"
	"github.com/XavTo/dexter/internal/store"
	"github.com/XavTo/dexter/internal/transport/ws"
)

const secret = "s3cret"

type gatedAgent struct {
	release chan struct{}
}

func (g *gatedAgent) Run(ctx context.Context, req domain.AgentRequest) iter.Seq2[domain.AgentEvent, error] {
	return func(yield func(domain.AgentEvent, error) bool) {
		if !yield(domain.AgentEvent{Type: domain.AgentEventThinking, Content: "researching"}, nil) {
			return
		}
		<-g.release
		yield(domain.AgentEvent{Type: domain.AgentEventDone, Answer: "Outlook: positive"}, nil)
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *service.Service, *gatedAgent) {
	t.Helper()

	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.AuthSecret = secret
	cfg.WatchInterval = 10 * time.Millisecond

	events := store.NewFileEventLog(cfg.EventLogPath(), nil)
	pad := store.NewDirScratchpad(cfg.ScratchpadDir(), nil)
	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	require.NoError(t, err)

	gated := &gatedAgent{release: make(chan struct{})}
	svc := service.New(events, pad, agent.NewTraceRecorder(gated, pad, nil), cfg, engine, nil)

	srv := httptest.NewServer(NewServer(svc, cfg, nil))
	t.Cleanup(func() {
		srv.Close()
		select {
		case <-gated.release:
		default:
			close(gated.release)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = svc.Wait(ctx)
	})
	return srv, svc, gated
}

func do(t *testing.T, srv *httptest.Server, method, path, auth, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestGateGuardsAPI(t *testing.T) {
	srv, _, _ := newTestServer(t)

	for _, auth := range []string{"", "Bearer wrong", "Basic " + base64.StdEncoding.EncodeToString([]byte("u:wrong")), secret} {
		resp, _ := do(t, srv, http.MethodPost, "/api/runs", auth, `{"query":"AAPL outlook"}`)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "auth=%q", auth)
		assert.Equal(t, `Basic realm="dexter"`, resp.Header.Get("WWW-Authenticate"))
	}

	resp, body := do(t, srv, http.MethodGet, "/api/runs", "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.NotContains(t, string(body), "runs")
}

func TestHealthBypassesGate(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, body := do(t, srv, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "healthy")
}

func TestCreateListCompleteScenario(t *testing.T) {
	srv, svc, gated := newTestServer(t)
	auth := "Basic " + base64.StdEncoding.EncodeToString([]byte("anyone:"+secret))

	resp, body := do(t, srv, http.MethodPost, "/api/runs", auth, `{"query":"AAPL outlook"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var created domain.LaunchResponse
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, domain.RunStatusRunning, created.Status)

	listRuns := func() []domain.RunState {
		resp, body := do(t, srv, http.MethodGet, "/api/runs", "Bearer "+secret, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var out struct {
			Runs []domain.RunState `json:"runs"`
		}
		require.NoError(t, json.Unmarshal(body, &out))
		return out.Runs
	}

	runs := listRuns()
	require.Len(t, runs, 1)
	assert.Equal(t, created.RunID, runs[0].RunID)
	assert.Equal(t, domain.RunStatusRunning, runs[0].Status)

	close(gated.release)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, svc.Wait(ctx))

	runs = listRuns()
	require.Len(t, runs, 1)
	assert.Equal(t, domain.RunStatusCompleted, runs[0].Status)
	assert.Equal(t, "Outlook: positive", runs[0].Answer)

	resp, body = do(t, srv, http.MethodGet, "/api/runs/"+created.RunID, "Bearer "+secret, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var detail domain.RunDetail
	require.NoError(t, json.Unmarshal(body, &detail))
	assert.Equal(t, domain.RunStatusCompleted, detail.Run.Status)
	assert.NotEmpty(t, detail.Entries)

	resp, _ = do(t, srv, http.MethodGet, "/api/runs/does-not-exist", "Bearer "+secret, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWatchStreamsUntilTerminal(t *testing.T) {
	srv, svc, gated := newTestServer(t)

	created, err := svc.LaunchRun(context.Background(), "AAPL outlook")
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/runs/" + created.RunID + "/watch"
	header := http.Header{"Authorization": []string{"Bearer " + secret}}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var first ws.Message
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, ws.TypeState, first.Type)
	require.NotNil(t, first.Run)
	assert.Equal(t, domain.RunStatusRunning, first.Run.Status)

	close(gated.release)

	var last ws.Message
	for {
		var msg ws.Message
		if err := conn.ReadJSON(&msg); err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "unexpected error: %v", err)
			break
		}
		last = msg
	}
	require.NotNil(t, last.Run)
	assert.Equal(t, domain.RunStatusCompleted, last.Run.Status)
	assert.Equal(t, "Outlook: positive", last.Run.Answer)
}

func TestWatchRequiresAuthAndKnownRun(t *testing.T) {
	srv, _, _ := newTestServer(t)
	base := "ws" + strings.TrimPrefix(srv.URL, "http")

	_, resp, err := websocket.DefaultDialer.Dial(base+"/api/runs/x/watch", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	header := http.Header{"Authorization": []string{"Bearer " + secret}}
	_, resp, err = websocket.DefaultDialer.Dial(base+"/api/runs/x/watch", header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
