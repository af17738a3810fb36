package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/orbit/pkg/agentclient"
	"github.com/cuemby/orbit/pkg/executor"
	"github.com/cuemby/orbit/pkg/types"
)

func newTestAgentServer(t *testing.T) (*Server, *Agent) {
	t.Helper()
	a := New(Config{DataDir: t.TempDir()}, nil, executor.NewProcess(t.TempDir()))
	return NewServer("127.0.0.1:0", a), a
}

func TestHandleDeploy_AcknowledgesImmediatelyAndStartsProcess(t *testing.T) {
	srv, a := newTestAgentServer(t)

	comp := &types.Component{
		ID:   "c1",
		Type: types.ComponentTypeBinary,
		Config: types.ComponentConfig{
			BinaryPath: "/bin/sleep",
			Environment: map[string]string{
				"DUMMY": "1",
			},
		},
	}
	// exec.Command("/bin/sleep") with no args exits immediately with a
	// usage error; that's fine here, the assertion is only that the
	// HTTP response comes back before the worker finishes at all.
	body, err := json.Marshal(agentclient.DeployRequest{BusinessID: "b1", Component: comp})
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/api/deploy", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	start := time.Now()
	srv.Router().ServeHTTP(rec, req)
	assert.Less(t, time.Since(start), time.Second, "deploy must ack before the worker completes")

	assert.Equal(t, 200, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp["status"])

	a.mu.RLock()
	_, tracked := a.components["c1"]
	a.mu.RUnlock()
	assert.True(t, tracked, "component must be tracked locally before the response is sent")
}

func TestHandleDeploy_RejectsMissingComponent(t *testing.T) {
	srv, _ := newTestAgentServer(t)

	body, _ := json.Marshal(agentclient.DeployRequest{BusinessID: "b1"})
	req := httptest.NewRequest("POST", "/api/deploy", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, 400, rec.Code)
}

func TestHandleStop_AcknowledgesImmediately(t *testing.T) {
	srv, a := newTestAgentServer(t)

	a.mu.Lock()
	a.components["c1"] = &types.Component{ID: "c1", Type: types.ComponentTypeBinary, Status: types.ComponentStatusRunning}
	a.mu.Unlock()

	stopReq := agentclient.StopRequest{ComponentID: "c1", ComponentType: types.ComponentTypeBinary, Permanently: true}
	body, _ := json.Marshal(stopReq)
	req := httptest.NewRequest("POST", "/api/stop", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp["status"])
}

func TestHandleStop_RejectsMissingComponentID(t *testing.T) {
	srv, _ := newTestAgentServer(t)

	body, _ := json.Marshal(agentclient.StopRequest{})
	req := httptest.NewRequest("POST", "/api/stop", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, 400, rec.Code)
}

func TestStopWorker_DeletesComponentWhenPermanent(t *testing.T) {
	a := New(Config{DataDir: t.TempDir()}, nil, executor.NewProcess(t.TempDir()))
	a.mu.Lock()
	a.components["c1"] = &types.Component{ID: "c1", Type: types.ComponentTypeBinary, Status: types.ComponentStatusRunning, ProcessID: 999999}
	a.mu.Unlock()

	a.stopWorker(context.Background(), agentclient.StopRequest{
		ComponentID:   "c1",
		ComponentType: types.ComponentTypeBinary,
		ProcessID:     999999,
		Permanently:   true,
	})

	a.mu.RLock()
	_, ok := a.components["c1"]
	a.mu.RUnlock()
	assert.False(t, ok, "permanently-stopped component must be dropped from local state")
}
