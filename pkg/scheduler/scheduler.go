// Package scheduler implements Orbit's component placement algorithm as a
// pure function: no receiver state, no background loop, no Store writes.
// The Business Manager calls Schedule when it deploys components that have
// no node yet (restart keeps the existing assignment) and persists the
// resulting assignment itself.
package scheduler

import (
	"strconv"

	"github.com/cuemby/orbit/pkg/metrics"
	"github.com/cuemby/orbit/pkg/metricscache"
	"github.com/cuemby/orbit/pkg/types"
)

// Failure describes a component that could not be placed.
type Failure struct {
	ComponentID string
	Reason      string
}

// Schedule assigns each component to a node, in order, following the
// affinity-filter -> spread-selection -> load-tiebreak algorithm. It
// never mutates components or nodes and performs no I/O.
func Schedule(components []*types.Component, nodes []*types.Node, cache *metricscache.Cache) (map[string]string, []Failure) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.SchedulingLatency)

	assignments := make(map[string]string, len(components))
	var failures []Failure

	online := onlineNodes(nodes)
	assignedCount := make(map[string]int, len(online))

	for _, c := range components {
		candidates := online
		affine := len(c.Config.Affinity) > 0
		if affine {
			candidates = filterByAffinity(online, c.Config.Affinity)
		}

		if len(candidates) == 0 {
			failures = append(failures, Failure{ComponentID: c.ID, Reason: "no candidate node matches affinity"})
			metrics.ComponentsUnschedulable.Inc()
			continue
		}

		var chosen *types.Node
		if affine {
			// Affinity wins: skip spread, pick the highest-scoring affine
			// node directly.
			chosen = bestByScore(candidates, cache)
		} else {
			preferred := leastAssigned(candidates, assignedCount)
			chosen = bestByScore(preferred, cache)
		}

		if chosen == nil {
			failures = append(failures, Failure{ComponentID: c.ID, Reason: "no schedulable node"})
			metrics.ComponentsUnschedulable.Inc()
			continue
		}

		assignments[c.ID] = chosen.ID
		assignedCount[chosen.ID]++
		metrics.ComponentsScheduled.Inc()
	}

	return assignments, failures
}

func onlineNodes(nodes []*types.Node) []*types.Node {
	var online []*types.Node
	for _, n := range nodes {
		if n.Status == types.NodeStatusOnline {
			online = append(online, n)
		}
	}
	return online
}

// filterByAffinity keeps only nodes matching every affinity key. The
// "ip_address" key (alias "ip") must match the node's IPAddress exactly;
// any other key must equal-match the corresponding node descriptor
// attribute.
func filterByAffinity(nodes []*types.Node, affinity map[string]string) []*types.Node {
	var matched []*types.Node
	for _, n := range nodes {
		if matchesAffinity(n, affinity) {
			matched = append(matched, n)
		}
	}
	return matched
}

func matchesAffinity(n *types.Node, affinity map[string]string) bool {
	for key, want := range affinity {
		switch key {
		case "ip_address", "ip":
			if n.IPAddress != want {
				return false
			}
		case "hostname":
			if n.Hostname != want {
				return false
			}
		case "os_info":
			if n.OSInfo != want {
				return false
			}
		case "cpu_model":
			if n.CPUModel != want {
				return false
			}
		case "gpu_count":
			if strconv.Itoa(n.GPUCount) != want {
				return false
			}
		case "port":
			if strconv.Itoa(n.Port) != want {
				return false
			}
		default:
			// Keys outside the node descriptor never match; an affinity
			// constraint Orbit doesn't model excludes every node rather
			// than being silently ignored.
			return false
		}
	}
	return true
}

// leastAssigned returns the subset of candidates tied at the minimum
// assignedCount observed so far in this scheduling call.
func leastAssigned(candidates []*types.Node, assignedCount map[string]int) []*types.Node {
	min := -1
	for _, n := range candidates {
		c := assignedCount[n.ID]
		if min == -1 || c < min {
			min = c
		}
	}
	var preferred []*types.Node
	for _, n := range candidates {
		if assignedCount[n.ID] == min {
			preferred = append(preferred, n)
		}
	}
	return preferred
}

// bestByScore picks the node maximising
// score = 0.5*(100-cpu%) + 0.5*(100-mem%). A missing sample contributes 0
// to its term, the same as a fully loaded node.
func bestByScore(candidates []*types.Node, cache *metricscache.Cache) *types.Node {
	var best *types.Node
	bestScore := -1.0

	for _, n := range candidates {
		score := nodeScore(n.ID, cache)
		if best == nil || score > bestScore {
			best = n
			bestScore = score
		}
	}
	return best
}

func nodeScore(nodeID string, cache *metricscache.Cache) float64 {
	var score float64
	if cpuPct, ok := cache.CPUUsagePercent(nodeID); ok {
		score += 0.5 * (100 - cpuPct)
	}
	if memPct, ok := cache.MemoryUsagePercent(nodeID); ok {
		score += 0.5 * (100 - memPct)
	}
	return score
}
