package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/orbit/pkg/managerclient"
	"github.com/cuemby/orbit/pkg/types"
)

// fakeManager records every /api/report body it receives and always
// answers registration with a fixed node_id and component list.
type fakeManager struct {
	mu      sync.Mutex
	reports []managerclient.ReportRequest
}

func (f *fakeManager) server(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/register":
			_ = json.NewEncoder(w).Encode(managerclient.RegisterResponse{
				NodeID:     "n1",
				Components: []*types.Component{{ID: "c1", Type: types.ComponentTypeBinary, Status: types.ComponentStatusRunning}},
			})
		case "/api/report":
			var req managerclient.ReportRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			f.mu.Lock()
			f.reports = append(f.reports, req)
			f.mu.Unlock()
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
}

func TestRegister_AdoptsNodeIDAndIngestsComponents(t *testing.T) {
	fm := &fakeManager{}
	srv := fm.server(t)
	defer srv.Close()

	a := New(Config{ManagerURL: srv.URL, DataDir: t.TempDir(), Port: 8081}, nil, nil)
	require.NoError(t, a.Register(context.Background()))

	assert.Equal(t, "n1", a.NodeID())
	assert.Equal(t, "n1", readAgentID(a.cfg.DataDir))

	a.mu.RLock()
	_, ok := a.components["c1"]
	a.mu.RUnlock()
	assert.True(t, ok)
}

func TestPushTelemetry_SkipsWhenUnregistered(t *testing.T) {
	fm := &fakeManager{}
	srv := fm.server(t)
	defer srv.Close()

	a := New(Config{ManagerURL: srv.URL, DataDir: t.TempDir()}, nil, nil)
	a.pushTelemetry(context.Background())

	fm.mu.Lock()
	defer fm.mu.Unlock()
	assert.Empty(t, fm.reports)
}

func TestPushTelemetry_ReportsTrackedComponentStatus(t *testing.T) {
	fm := &fakeManager{}
	srv := fm.server(t)
	defer srv.Close()

	a := New(Config{ManagerURL: srv.URL, DataDir: t.TempDir()}, nil, nil)
	require.NoError(t, a.Register(context.Background()))

	a.pushTelemetry(context.Background())

	fm.mu.Lock()
	defer fm.mu.Unlock()
	require.Len(t, fm.reports, 1)
	assert.Equal(t, "n1", fm.reports[0].NodeID)
	require.Len(t, fm.reports[0].Components, 1)
	assert.Equal(t, "c1", fm.reports[0].Components[0].ComponentID)
}
