// Package metricscache holds the process-wide in-memory latest-sample map
// the Scheduler and the Control Plane API read for hot-path node resource
// queries. It is intentionally ephemeral: durable component metric history
// lives in pkg/store, not here.
package metricscache

import (
	"sync"

	"github.com/cuemby/orbit/pkg/types"
)

// Cache is a process-wide map (node_id, kind) -> latest sample, guarded by
// one lock per kind so a burst of CPU samples never blocks a memory read.
type Cache struct {
	cpuMu sync.RWMutex
	cpu   map[string]types.MetricSample

	memMu sync.RWMutex
	mem   map[string]types.MetricSample
}

// New returns an empty Cache.
func New() *Cache {
	return &Cache{
		cpu: make(map[string]types.MetricSample),
		mem: make(map[string]types.MetricSample),
	}
}

// Set overwrites the latest sample for (nodeID, sample.Kind). The caller
// owns sample after the call returns; Set copies by value. The sample
// with the latest source timestamp wins: a push carrying an older
// timestamp than the cached entry is dropped, so out-of-order delivery
// cannot roll the cache backwards. There is no clock skew
// reconciliation beyond that.
func (c *Cache) Set(nodeID string, sample types.MetricSample) {
	sample.NodeID = nodeID
	switch sample.Kind {
	case types.MetricKindCPU:
		c.cpuMu.Lock()
		if prev, ok := c.cpu[nodeID]; !ok || !sample.Timestamp.Before(prev.Timestamp) {
			c.cpu[nodeID] = sample
		}
		c.cpuMu.Unlock()
	case types.MetricKindMemory:
		c.memMu.Lock()
		if prev, ok := c.mem[nodeID]; !ok || !sample.Timestamp.Before(prev.Timestamp) {
			c.mem[nodeID] = sample
		}
		c.memMu.Unlock()
	}
}

// Get returns the latest sample for (nodeID, kind) and whether one exists.
func (c *Cache) Get(nodeID string, kind types.MetricKind) (types.MetricSample, bool) {
	switch kind {
	case types.MetricKindCPU:
		c.cpuMu.RLock()
		defer c.cpuMu.RUnlock()
		s, ok := c.cpu[nodeID]
		return s, ok
	case types.MetricKindMemory:
		c.memMu.RLock()
		defer c.memMu.RUnlock()
		s, ok := c.mem[nodeID]
		return s, ok
	default:
		return types.MetricSample{}, false
	}
}

// CPUUsagePercent returns the node's latest CPU usage percent and whether
// a sample exists. The Scheduler contributes 0 to its scoring term when
// ok is false, which scores the node as if at 100% usage.
func (c *Cache) CPUUsagePercent(nodeID string) (percent float64, ok bool) {
	s, found := c.Get(nodeID, types.MetricKindCPU)
	if !found || s.CPU == nil {
		return 0, false
	}
	return s.CPU.UsagePercent, true
}

// MemoryUsagePercent returns the node's latest memory usage percent and
// whether a sample exists.
func (c *Cache) MemoryUsagePercent(nodeID string) (percent float64, ok bool) {
	s, found := c.Get(nodeID, types.MetricKindMemory)
	if !found || s.Memory == nil {
		return 0, false
	}
	return s.Memory.UsagePercent, true
}
