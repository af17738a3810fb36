package scheduler

import (
	"testing"

	"github.com/cuemby/orbit/pkg/metricscache"
	"github.com/cuemby/orbit/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func onlineNode(id, ip string) *types.Node {
	return &types.Node{ID: id, IPAddress: ip, Status: types.NodeStatusOnline}
}

func component(id string, affinity map[string]string) *types.Component {
	return &types.Component{
		ID:     id,
		Config: types.ComponentConfig{Affinity: affinity},
	}
}

// One online node with matching affinity gets the component.
func TestSchedule_AffinityPin(t *testing.T) {
	n := onlineNode("n1", "10.0.0.1")
	c := component("c1", map[string]string{"ip_address": "10.0.0.1"})

	assignments, failures := Schedule([]*types.Component{c}, []*types.Node{n}, metricscache.New())

	assert.Empty(t, failures)
	require.Contains(t, assignments, "c1")
	assert.Equal(t, "n1", assignments["c1"])
}

// Three nodes, three no-affinity components -> one each (spread).
func TestSchedule_SpreadAcrossNodes(t *testing.T) {
	nodes := []*types.Node{onlineNode("n1", "10.0.0.1"), onlineNode("n2", "10.0.0.2"), onlineNode("n3", "10.0.0.3")}
	components := []*types.Component{component("c1", nil), component("c2", nil), component("c3", nil)}

	assignments, failures := Schedule(components, nodes, metricscache.New())

	assert.Empty(t, failures)
	seen := make(map[string]bool)
	for _, nodeID := range assignments {
		assert.False(t, seen[nodeID], "node %s assigned more than once", nodeID)
		seen[nodeID] = true
	}
	assert.Len(t, seen, 3)
}

// Empty online set -> every component fails, nothing assigned.
func TestSchedule_NoOnlineNodes(t *testing.T) {
	offline := &types.Node{ID: "n1", Status: types.NodeStatusOffline}
	c := component("c1", nil)

	assignments, failures := Schedule([]*types.Component{c}, []*types.Node{offline}, metricscache.New())

	assert.Empty(t, assignments)
	require.Len(t, failures, 1)
	assert.Equal(t, "c1", failures[0].ComponentID)
}

// Affinity matches no node -> only that component fails, others
// still schedule.
func TestSchedule_UnmatchedAffinityDoesNotBlockOthers(t *testing.T) {
	nodes := []*types.Node{onlineNode("n1", "10.0.0.1")}
	pinned := component("c1", map[string]string{"ip_address": "10.0.0.99"})
	unaffined := component("c2", nil)

	assignments, failures := Schedule([]*types.Component{pinned, unaffined}, nodes, metricscache.New())

	require.Len(t, failures, 1)
	assert.Equal(t, "c1", failures[0].ComponentID)
	require.Contains(t, assignments, "c2")
	assert.Equal(t, "n1", assignments["c2"])
}

func TestSchedule_LoadTiebreak_PrefersLessLoadedNode(t *testing.T) {
	nodes := []*types.Node{onlineNode("n1", "10.0.0.1"), onlineNode("n2", "10.0.0.2")}
	cache := metricscache.New()
	cache.Set("n1", types.MetricSample{Kind: types.MetricKindCPU, CPU: &types.CPUSample{UsagePercent: 90}})
	cache.Set("n2", types.MetricSample{Kind: types.MetricKindCPU, CPU: &types.CPUSample{UsagePercent: 10}})

	// Both nodes tied at assigned_count=0, so the load tiebreak decides.
	c := component("c1", nil)
	assignments, failures := Schedule([]*types.Component{c}, nodes, cache)

	assert.Empty(t, failures)
	assert.Equal(t, "n2", assignments["c1"])
}

func TestSchedule_AffinityBypassesSpread_PicksHighestScoringAffineNode(t *testing.T) {
	nodes := []*types.Node{onlineNode("n1", "10.0.0.1"), onlineNode("n2", "10.0.0.1")}
	cache := metricscache.New()
	cache.Set("n1", types.MetricSample{Kind: types.MetricKindCPU, CPU: &types.CPUSample{UsagePercent: 80}})
	cache.Set("n2", types.MetricSample{Kind: types.MetricKindCPU, CPU: &types.CPUSample{UsagePercent: 5}})

	c := component("c1", map[string]string{"ip_address": "10.0.0.1"})
	assignments, failures := Schedule([]*types.Component{c}, nodes, cache)

	assert.Empty(t, failures)
	assert.Equal(t, "n2", assignments["c1"])
}

func TestMatchesAffinity_UnknownKeyExcludesNode(t *testing.T) {
	n := onlineNode("n1", "10.0.0.1")
	assert.False(t, matchesAffinity(n, map[string]string{"gpu_model": "a100"}))
}

// Every descriptor attribute is a legal affinity key, numeric ones
// included.
func TestMatchesAffinity_DescriptorAttributes(t *testing.T) {
	n := &types.Node{
		ID:        "n1",
		Hostname:  "h1",
		IPAddress: "10.0.0.1",
		OSInfo:    "linux",
		CPUModel:  "epyc",
		GPUCount:  2,
		Port:      8081,
		Status:    types.NodeStatusOnline,
	}

	assert.True(t, matchesAffinity(n, map[string]string{"gpu_count": "2"}))
	assert.True(t, matchesAffinity(n, map[string]string{"port": "8081"}))
	assert.True(t, matchesAffinity(n, map[string]string{"hostname": "h1", "gpu_count": "2", "port": "8081"}))

	assert.False(t, matchesAffinity(n, map[string]string{"gpu_count": "4"}))
	assert.False(t, matchesAffinity(n, map[string]string{"port": "9090"}))
}

func TestSchedule_GPUCountAffinityPlacesOnMatchingNode(t *testing.T) {
	plain := onlineNode("n1", "10.0.0.1")
	gpu := onlineNode("n2", "10.0.0.2")
	gpu.GPUCount = 2

	c := component("c1", map[string]string{"gpu_count": "2"})
	assignments, failures := Schedule([]*types.Component{c}, []*types.Node{plain, gpu}, metricscache.New())

	assert.Empty(t, failures)
	assert.Equal(t, "n2", assignments["c1"])
}
