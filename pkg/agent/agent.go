// Package agent implements the per-node Agent: identity persistence,
// periodic collector dispatch and telemetry push, and an inbound HTTP
// listener for deploy/stop commands from the Manager.
package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/orbit/pkg/collector"
	"github.com/cuemby/orbit/pkg/executor"
	"github.com/cuemby/orbit/pkg/log"
	"github.com/cuemby/orbit/pkg/managerclient"
	"github.com/cuemby/orbit/pkg/types"
)

// Config configures an Agent instance.
type Config struct {
	ManagerURL       string
	Hostname         string
	NetworkInterface string
	DataDir          string
	Port             int
	IntervalSec      int
}

// Agent is the Agent Core: it owns local component state, the
// Manager-facing client, and the two workload executors.
type Agent struct {
	cfg        Config
	manager    *managerclient.Client
	docker     *executor.Docker
	process    *executor.Process
	collectors []collector.Collector

	logger zerolog.Logger

	mu         sync.RWMutex
	nodeID     string
	components map[string]*types.Component // keyed by component_id

	stopCh chan struct{}
}

// New builds an Agent. dockerExec may be nil if Docker is unavailable on
// this host; components of type docker will then fail to deploy.
func New(cfg Config, dockerExec *executor.Docker, processExec *executor.Process) *Agent {
	if cfg.IntervalSec <= 0 {
		cfg.IntervalSec = 5
	}
	return &Agent{
		cfg:        cfg,
		manager:    managerclient.New(cfg.ManagerURL),
		docker:     dockerExec,
		process:    processExec,
		collectors: []collector.Collector{collector.NewCPUCollector(), collector.NewMemoryCollector()},
		logger:     log.WithComponent("agent"),
		components: make(map[string]*types.Component),
		stopCh:     make(chan struct{}),
	}
}

// NodeID returns the identity currently in effect, "" before the first
// successful registration.
func (a *Agent) NodeID() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.nodeID
}

// Register sends local probes to the Manager, adopts the returned
// node_id, and ingests the returned component list into local state so
// a restarted Agent reconciles with whatever the Manager still believes
// is assigned to it.
func (a *Agent) Register(ctx context.Context) error {
	nodeID := readAgentID(a.cfg.DataDir)

	host := a.cfg.Hostname
	if host == "" {
		host = hostname()
	}

	resp, err := a.manager.Register(ctx, managerclient.RegisterRequest{
		NodeID:    nodeID,
		Hostname:  host,
		IPAddress: detectAddress(a.cfg.NetworkInterface),
		OSInfo:    osInfo(ctx),
		CPUModel:  cpuModel(ctx),
		GPUCount:  gpuCount(),
		Port:      a.cfg.Port,
	})
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}

	if err := writeAgentID(a.cfg.DataDir, resp.NodeID); err != nil {
		a.logger.Warn().Err(err).Msg("failed to persist agent_id")
	}

	a.mu.Lock()
	a.nodeID = resp.NodeID
	for _, c := range resp.Components {
		a.components[c.ID] = c
	}
	a.mu.Unlock()

	a.reconcileContainers(ctx)

	a.logger.Info().Str("node_id", resp.NodeID).Int("components", len(resp.Components)).Msg("registered")
	return nil
}

// reconcileContainers cross-checks ingested docker components against
// the containers actually present on the host. A component whose
// container has been removed while the Agent was down is demoted to
// unknown so the first telemetry push reflects it without waiting for
// an inspect to fail.
func (a *Agent) reconcileContainers(ctx context.Context) {
	if a.docker == nil {
		return
	}
	ids, err := a.docker.ManagedContainers(ctx)
	if err != nil {
		a.logger.Warn().Err(err).Msg("failed to list managed containers")
		return
	}
	present := make(map[string]bool, len(ids))
	for _, id := range ids {
		present[id] = true
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	for _, c := range a.components {
		if c.Type != types.ComponentTypeDocker || c.ContainerID == "" {
			continue
		}
		if c.Status == types.ComponentStatusRunning && !present[c.ContainerID] {
			c.Status = types.ComponentStatusUnknown
		}
	}
}

// Run starts the telemetry loop and blocks until ctx is cancelled or
// Stop is called. Callers also start the command HTTP server
// separately (see NewServer in this package).
func (a *Agent) Run(ctx context.Context) {
	a.telemetryLoop(ctx)
}

// Stop signals the telemetry loop to exit. Safe to call once.
func (a *Agent) Stop() {
	select {
	case <-a.stopCh:
	default:
		close(a.stopCh)
	}
}

// telemetryLoop polls every configured collector and the executor for
// each tracked component, then pushes one batched /api/report per
// cycle. It sleeps in 1-second increments so Stop is responsive even
// with a long configured interval.
func (a *Agent) telemetryLoop(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	elapsed := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-a.stopCh:
			return
		case <-ticker.C:
			elapsed++
			if elapsed < a.cfg.IntervalSec {
				continue
			}
			elapsed = 0
			a.pushTelemetry(ctx)
		}
	}
}

func (a *Agent) pushTelemetry(ctx context.Context) {
	nodeID := a.NodeID()
	if nodeID == "" {
		return
	}

	resource := &managerclient.Resource{}
	for _, c := range a.collectors {
		sample, err := c.Collect(ctx)
		if err != nil {
			a.logger.Warn().Err(err).Str("kind", string(c.Kind())).Msg("collector failed")
			continue
		}
		switch c.Kind() {
		case types.MetricKindCPU:
			resource.CPU = sample.CPU
		case types.MetricKindMemory:
			resource.Memory = sample.Memory
		}
	}

	components := a.queryComponents(ctx)

	req := managerclient.ReportRequest{
		NodeID:     nodeID,
		Timestamp:  time.Now(),
		Resource:   resource,
		Components: components,
	}
	if err := a.manager.Report(ctx, req); err != nil {
		a.logger.Warn().Err(err).Msg("telemetry push failed")
	}
}

func (a *Agent) queryComponents(ctx context.Context) []managerclient.ReportedComponent {
	a.mu.RLock()
	snapshot := make([]*types.Component, 0, len(a.components))
	for _, c := range a.components {
		snapshot = append(snapshot, c)
	}
	a.mu.RUnlock()

	reported := make([]managerclient.ReportedComponent, 0, len(snapshot))
	for _, c := range snapshot {
		handle := c.ContainerID
		if c.Type == types.ComponentTypeBinary {
			handle = fmt.Sprintf("%d", c.ProcessID)
		}
		status := c.Status
		var usage *types.ComponentMetric

		if handle != "" && handle != "0" && c.Status == types.ComponentStatusRunning {
			st, err := executor.For(c.Type, a.docker, a.process).Query(ctx, handle)
			if err != nil {
				status = types.ComponentStatusUnknown
			} else if !st.Running {
				status = types.ComponentStatusStopped
			} else {
				usage = &types.ComponentMetric{
					ComponentID: c.ID,
					Timestamp:   time.Now(),
					MemoryMB:    st.MemoryUsedMB,
					CPUPercent:  st.CPUPercent,
				}
			}
		}

		a.setComponentStatus(c.ID, status)
		reported = append(reported, managerclient.ReportedComponent{
			ComponentID:   c.ID,
			Type:          c.Type,
			Status:        status,
			ContainerID:   c.ContainerID,
			ProcessID:     c.ProcessID,
			ResourceUsage: usage,
		})
	}
	return reported
}

// setComponentStatus applies status to the tracked component, refusing
// moves the component state machine does not allow (a stopped component
// cannot drift to unknown, a scheduled one cannot jump to stopped).
func (a *Agent) setComponentStatus(id string, status types.ComponentStatus) {
	a.mu.Lock()
	defer a.mu.Unlock()
	c, ok := a.components[id]
	if !ok {
		return
	}
	if !transition(c.Status, status) {
		a.logger.Debug().
			Str("component_id", id).
			Str("from", string(c.Status)).
			Str("to", string(status)).
			Msg("ignoring illegal status transition")
		return
	}
	c.Status = status
}
