package metrics

import (
	"time"

	"github.com/cuemby/orbit/pkg/types"
)

// storeReader is the subset of store.Store the Collector needs. Declared
// locally so metrics does not import store (store already depends on
// types and apierr, not metrics; this keeps the dependency one-way).
type storeReader interface {
	ListNodes() ([]*types.Node, error)
	ListBusinesses() ([]*types.Business, error)
	ListComponents() ([]*types.Component, error)
}

// Collector periodically samples fleet-wide counts from the Store and
// publishes them as gauges.
type Collector struct {
	store  storeReader
	stopCh chan struct{}
}

// NewCollector creates a metrics collector over s.
func NewCollector(s storeReader) *Collector {
	return &Collector{
		store:  s,
		stopCh: make(chan struct{}),
	}
}

// Start begins collecting metrics every 15s, plus once immediately.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	c.collectNodeMetrics()
	c.collectBusinessMetrics()
	c.collectComponentMetrics()
}

func (c *Collector) collectNodeMetrics() {
	nodes, err := c.store.ListNodes()
	if err != nil {
		return
	}

	counts := make(map[string]int)
	for _, n := range nodes {
		counts[string(n.Status)]++
	}
	for status, count := range counts {
		NodesTotal.WithLabelValues(status).Set(float64(count))
	}
}

func (c *Collector) collectBusinessMetrics() {
	businesses, err := c.store.ListBusinesses()
	if err != nil {
		return
	}

	counts := make(map[string]int)
	for _, b := range businesses {
		counts[string(b.Status)]++
	}
	for status, count := range counts {
		BusinessesTotal.WithLabelValues(status).Set(float64(count))
	}
}

func (c *Collector) collectComponentMetrics() {
	components, err := c.store.ListComponents()
	if err != nil {
		return
	}

	counts := make(map[string]int)
	for _, comp := range components {
		counts[string(comp.Status)]++
	}
	for status, count := range counts {
		ComponentsTotal.WithLabelValues(status).Set(float64(count))
	}
}
