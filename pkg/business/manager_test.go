package business

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"

	"github.com/cuemby/orbit/pkg/agentclient"
	"github.com/cuemby/orbit/pkg/apierr"
	"github.com/cuemby/orbit/pkg/metricscache"
	"github.com/cuemby/orbit/pkg/store"
	"github.com/cuemby/orbit/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*Manager, store.Store) {
	t.Helper()
	s, err := store.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	m := New(s, metricscache.New(), agentclient.New())
	return m, s
}

// fakeAgent records every /api/deploy and /api/stop call it receives
// and always acknowledges success.
type fakeAgent struct {
	mu      sync.Mutex
	deploys []agentclient.DeployRequest
	stops   []agentclient.StopRequest
}

func (f *fakeAgent) server(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/deploy":
			var req agentclient.DeployRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			f.mu.Lock()
			f.deploys = append(f.deploys, req)
			f.mu.Unlock()
		case "/api/stop":
			var req agentclient.StopRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			f.mu.Lock()
			f.stops = append(f.stops, req)
			f.mu.Unlock()
		}
		w.WriteHeader(http.StatusOK)
	}))
}

func nodeForServer(t *testing.T, id string, srv *httptest.Server) *types.Node {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	return &types.Node{ID: id, IPAddress: host, Port: port, Status: types.NodeStatusOnline}
}

func componentTemplate(id, image string) *types.ComponentTemplate {
	return &types.ComponentTemplate{
		ID:           id,
		TemplateName: image,
		Type:         types.ComponentTypeDocker,
		Config:       types.ComponentConfig{ImageName: image},
	}
}

func TestDeployBusiness_ValidationFailsWithNoWrites(t *testing.T) {
	m, s := newTestManager(t)

	_, _, err := m.DeployBusiness(context.Background(), BusinessSpec{Name: ""})
	require.Error(t, err)

	list, err := s.ListBusinesses()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestDeployBusiness_MissingComponentIDRejected(t *testing.T) {
	m, _ := newTestManager(t)

	spec := BusinessSpec{
		Name: "b1",
		Components: []*types.Component{
			{Name: "web", Type: types.ComponentTypeDocker, Config: types.ComponentConfig{ImageName: "nginx"}},
		},
	}
	_, _, err := m.DeployBusiness(context.Background(), spec)
	require.Error(t, err)
	assert.ErrorIs(t, err, apierr.ErrValidation)
}

func TestDeployBusiness_NoOnlineNodes_PersistsNoComponents(t *testing.T) {
	m, s := newTestManager(t)

	spec := BusinessSpec{
		Name: "b1",
		Components: []*types.Component{
			{ID: "web-0", Name: "web", Type: types.ComponentTypeDocker, Config: types.ComponentConfig{ImageName: "nginx"}},
		},
	}
	biz, failures, err := m.DeployBusiness(context.Background(), spec)
	require.NoError(t, err)
	require.Len(t, failures, 1)

	components, err := s.ListComponentsByBusiness(biz.ID)
	require.NoError(t, err)
	assert.Empty(t, components)
}

func TestDeployBusinessByTemplate_DualReferenceSpreadsAcrossNodes(t *testing.T) {
	m, s := newTestManager(t)

	agent1, agent2 := &fakeAgent{}, &fakeAgent{}
	srv1, srv2 := agent1.server(t), agent2.server(t)
	defer srv1.Close()
	defer srv2.Close()

	require.NoError(t, s.CreateNode(nodeForServer(t, "n1", srv1)))
	require.NoError(t, s.CreateNode(nodeForServer(t, "n2", srv2)))

	require.NoError(t, s.CreateComponentTemplate(componentTemplate("ctA", "nginx")))
	bt := &types.BusinessTemplate{ID: "btA", TemplateName: "btA", ComponentTemplateIDs: []string{"ctA", "ctA"}}
	require.NoError(t, s.CreateBusinessTemplate(bt))

	biz, failures, err := m.DeployBusinessByTemplate(context.Background(), "btA")
	require.NoError(t, err)
	assert.Empty(t, failures)

	components, err := s.ListComponentsByBusiness(biz.ID)
	require.NoError(t, err)
	require.Len(t, components, 2)
	assert.NotEqual(t, components[0].NodeID, components[1].NodeID)

	agent1.mu.Lock()
	agent2.mu.Lock()
	total := len(agent1.deploys) + len(agent2.deploys)
	agent1.mu.Unlock()
	agent2.mu.Unlock()
	assert.Equal(t, 2, total)
}

func TestStopBusiness_ThenStopAgainStaysStopped(t *testing.T) {
	m, s := newTestManager(t)

	agent := &fakeAgent{}
	srv := agent.server(t)
	defer srv.Close()
	require.NoError(t, s.CreateNode(nodeForServer(t, "n1", srv)))

	spec := BusinessSpec{
		Name: "b1",
		Components: []*types.Component{
			{ID: "web-0", Name: "web", Type: types.ComponentTypeDocker, Config: types.ComponentConfig{ImageName: "nginx"}},
		},
	}
	biz, failures, err := m.DeployBusiness(context.Background(), spec)
	require.NoError(t, err)
	require.Empty(t, failures)

	require.NoError(t, m.StopBusiness(context.Background(), biz.ID))
	components, err := s.ListComponentsByBusiness(biz.ID)
	require.NoError(t, err)
	require.Len(t, components, 1)
	assert.Equal(t, types.ComponentStatusStopped, components[0].Status)

	// Stopping again must be a no-op that leaves status stopped.
	require.NoError(t, m.StopBusiness(context.Background(), biz.ID))
	components, err = s.ListComponentsByBusiness(biz.ID)
	require.NoError(t, err)
	assert.Equal(t, types.ComponentStatusStopped, components[0].Status)
	assert.Empty(t, components[0].ContainerID)
	assert.Equal(t, types.BusinessStatusStopped, DeriveStatus(biz.Status, components))

	// The stored field records the stop as the last lifecycle command.
	stored, err := s.GetBusiness(biz.ID)
	require.NoError(t, err)
	assert.Equal(t, types.BusinessStatusStopped, stored.Status)
}

func TestStopBusiness_UnknownIDIsNotFound(t *testing.T) {
	m, _ := newTestManager(t)

	err := m.StopBusiness(context.Background(), "no-such-business")
	require.Error(t, err)
	assert.ErrorIs(t, err, apierr.ErrNotFound)
}

func TestRestartBusiness_PreservesNodeAssignment(t *testing.T) {
	m, s := newTestManager(t)

	agent := &fakeAgent{}
	srv := agent.server(t)
	defer srv.Close()
	require.NoError(t, s.CreateNode(nodeForServer(t, "n1", srv)))

	spec := BusinessSpec{
		Name: "b1",
		Components: []*types.Component{
			{ID: "web-0", Name: "web", Type: types.ComponentTypeDocker, Config: types.ComponentConfig{ImageName: "nginx"}},
		},
	}
	biz, failures, err := m.DeployBusiness(context.Background(), spec)
	require.NoError(t, err)
	require.Empty(t, failures)

	before, err := s.ListComponentsByBusiness(biz.ID)
	require.NoError(t, err)
	require.Len(t, before, 1)
	originalNode := before[0].NodeID

	require.NoError(t, m.RestartBusiness(context.Background(), biz.ID))

	after, err := s.ListComponentsByBusiness(biz.ID)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, originalNode, after[0].NodeID)
}

func TestDeleteBusiness_CascadesComponents(t *testing.T) {
	m, s := newTestManager(t)

	agent := &fakeAgent{}
	srv := agent.server(t)
	defer srv.Close()
	require.NoError(t, s.CreateNode(nodeForServer(t, "n1", srv)))

	spec := BusinessSpec{
		Name: "b1",
		Components: []*types.Component{
			{ID: "web-0", Name: "web", Type: types.ComponentTypeDocker, Config: types.ComponentConfig{ImageName: "nginx"}},
		},
	}
	biz, _, err := m.DeployBusiness(context.Background(), spec)
	require.NoError(t, err)

	require.NoError(t, m.DeleteBusiness(context.Background(), biz.ID))

	_, err = s.GetBusiness(biz.ID)
	assert.Error(t, err)
	components, err := s.ListComponentsByBusiness(biz.ID)
	require.NoError(t, err)
	assert.Empty(t, components)
}

func TestDeployComponent_RedeploysToExistingNode(t *testing.T) {
	m, s := newTestManager(t)

	agent := &fakeAgent{}
	srv := agent.server(t)
	defer srv.Close()
	require.NoError(t, s.CreateNode(nodeForServer(t, "n1", srv)))

	spec := BusinessSpec{
		Name: "b1",
		Components: []*types.Component{
			{ID: "web-0", Name: "web", Type: types.ComponentTypeDocker, Config: types.ComponentConfig{ImageName: "nginx"}},
		},
	}
	biz, failures, err := m.DeployBusiness(context.Background(), spec)
	require.NoError(t, err)
	require.Empty(t, failures)

	components, err := s.ListComponentsByBusiness(biz.ID)
	require.NoError(t, err)
	require.Len(t, components, 1)
	compID, originalNode := components[0].ID, components[0].NodeID

	require.NoError(t, m.DeployComponent(context.Background(), biz.ID, compID))

	got, err := s.GetComponent(compID)
	require.NoError(t, err)
	assert.Equal(t, originalNode, got.NodeID)
	assert.Equal(t, types.ComponentStatusRunning, got.Status)

	agent.mu.Lock()
	defer agent.mu.Unlock()
	assert.Len(t, agent.deploys, 2) // initial deploy + redeploy
}

func TestDeployBusiness_AffinityPin_UnmatchedNodeProducesFailure(t *testing.T) {
	m, s := newTestManager(t)

	agent := &fakeAgent{}
	srv := agent.server(t)
	defer srv.Close()
	n1 := nodeForServer(t, "n1", srv)
	n1.IPAddress = "10.0.0.1"
	require.NoError(t, s.CreateNode(n1))

	spec := BusinessSpec{
		Name: "b1",
		Components: []*types.Component{
			{
				ID:   "pinned-0",
				Name: "pinned",
				Type: types.ComponentTypeDocker,
				Config: types.ComponentConfig{
					ImageName: "nginx",
					Affinity:  map[string]string{"ip_address": "10.0.0.2"},
				},
			},
		},
	}
	biz, failures, err := m.DeployBusiness(context.Background(), spec)
	require.NoError(t, err)
	require.Len(t, failures, 1)

	components, err := s.ListComponentsByBusiness(biz.ID)
	require.NoError(t, err)
	assert.Empty(t, components)
}
