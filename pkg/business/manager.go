// Package business implements the Business Manager: template
// expansion, scheduling, and the deploy/stop/restart/delete pipelines
// that fan out to Agents over HTTP.
package business

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/cuemby/orbit/pkg/agentclient"
	"github.com/cuemby/orbit/pkg/apierr"
	"github.com/cuemby/orbit/pkg/log"
	"github.com/cuemby/orbit/pkg/metrics"
	"github.com/cuemby/orbit/pkg/metricscache"
	"github.com/cuemby/orbit/pkg/scheduler"
	"github.com/cuemby/orbit/pkg/store"
	"github.com/cuemby/orbit/pkg/types"
)

// maxFanout bounds how many concurrent Agent calls a single business
// operation issues at once.
const maxFanout = 8

// restartGrace is the pause between Stop and redeploy in RestartBusiness.
const restartGrace = 3 * time.Second

// Failure records one component that could not be placed or deployed.
type Failure struct {
	ComponentID string
	Reason      string
}

// Manager orchestrates business lifecycles across the fleet.
type Manager struct {
	store  store.Store
	cache  *metricscache.Cache
	agents *agentclient.Client
	logger zerolog.Logger
}

// New creates a Business Manager.
func New(s store.Store, cache *metricscache.Cache, agents *agentclient.Client) *Manager {
	return &Manager{
		store:  s,
		cache:  cache,
		agents: agents,
		logger: log.WithComponent("business"),
	}
}

// DeployBusiness validates spec, persists a fresh business and its
// components, schedules placement, and fans out /api/deploy calls.
func (m *Manager) DeployBusiness(ctx context.Context, spec BusinessSpec) (*types.Business, []Failure, error) {
	if err := validateSpec(spec); err != nil {
		return nil, nil, err
	}

	now := time.Now()
	biz := &types.Business{
		ID:        uuid.NewString(),
		Name:      spec.Name,
		Status:    types.BusinessStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.store.CreateBusiness(biz); err != nil {
		return nil, nil, fmt.Errorf("persist business: %w", err)
	}

	for _, c := range spec.Components {
		c.ID = uuid.NewString()
		c.BusinessID = biz.ID
		c.CreatedAt = now
		c.UpdatedAt = now
	}

	failures := m.scheduleAndDeploy(ctx, biz.ID, spec.Components)
	return biz, failures, nil
}

// DeployBusinessByTemplate loads bt, resolves every referenced
// component template, and deploys the expanded component list under a
// fresh business.
func (m *Manager) DeployBusinessByTemplate(ctx context.Context, businessTemplateID string) (*types.Business, []Failure, error) {
	bt, err := m.store.GetBusinessTemplate(businessTemplateID)
	if err != nil {
		return nil, nil, err
	}

	components, err := expandTemplate(bt, m.store.GetComponentTemplate)
	if err != nil {
		return nil, nil, err
	}

	return m.DeployBusiness(ctx, BusinessSpec{Name: bt.TemplateName, Components: components})
}

// scheduleAndDeploy places components onto nodes and fans out deploy
// calls. It never short-circuits: every component is attempted.
func (m *Manager) scheduleAndDeploy(ctx context.Context, businessID string, components []*types.Component) []Failure {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.BusinessDeployDuration)

	nodes, err := m.store.ListNodes()
	if err != nil {
		return []Failure{{Reason: fmt.Sprintf("list nodes: %v", err)}}
	}

	assignments, schedFailures := scheduler.Schedule(components, nodes, m.cache)
	failures := make([]Failure, 0, len(schedFailures))
	for _, f := range schedFailures {
		failures = append(failures, Failure{ComponentID: f.ComponentID, Reason: f.Reason})
	}

	nodeByID := make(map[string]*types.Node, len(nodes))
	for _, n := range nodes {
		nodeByID[n.ID] = n
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxFanout)
	failureCh := make(chan Failure, len(components))

	for _, c := range components {
		c := c
		nodeID, ok := assignments[c.ID]
		if !ok {
			continue // scheduling failure already recorded above
		}
		node, ok := nodeByID[nodeID]
		if !ok {
			failureCh <- Failure{ComponentID: c.ID, Reason: "assigned node vanished before deploy"}
			continue
		}

		c.NodeID = nodeID
		c.Status = types.ComponentStatusRunning
		if err := m.store.CreateComponent(c); err != nil {
			failureCh <- Failure{ComponentID: c.ID, Reason: fmt.Sprintf("persist component: %v", err)}
			continue
		}

		g.Go(func() error {
			if err := m.agents.Deploy(gctx, agentBaseURL(node), businessID, c); err != nil {
				m.logger.Warn().Err(err).Str("component_id", c.ID).Str("node_id", nodeID).Msg("deploy call failed")
				metrics.ComponentDeployFailuresTotal.Inc()
				c.Status = types.ComponentStatusError
				if uerr := m.store.UpdateComponent(c); uerr != nil {
					m.logger.Error().Err(uerr).Str("component_id", c.ID).Msg("failed to record deploy failure")
				}
				failureCh <- Failure{ComponentID: c.ID, Reason: err.Error()}
			}
			return nil
		})
	}

	_ = g.Wait()
	close(failureCh)
	for f := range failureCh {
		failures = append(failures, f)
	}

	return failures
}

// StopBusiness stops every component of business id, best-effort. The
// stored status records the stop as the last lifecycle command; read
// paths derive the live status from component state on top of it.
func (m *Manager) StopBusiness(ctx context.Context, id string) error {
	if _, err := m.store.GetBusiness(id); err != nil {
		return err
	}
	components, err := m.store.ListComponentsByBusiness(id)
	if err != nil {
		return err
	}
	m.stopComponents(ctx, id, components, false)
	return m.store.UpdateBusinessStatus(id, types.BusinessStatusStopped)
}

// RestartBusiness stops every component, waits a short grace period,
// then redeploys each to its originally assigned node without
// re-scheduling: the node_id assignment is preserved.
func (m *Manager) RestartBusiness(ctx context.Context, id string) error {
	if _, err := m.store.GetBusiness(id); err != nil {
		return err
	}
	components, err := m.store.ListComponentsByBusiness(id)
	if err != nil {
		return err
	}

	m.stopComponents(ctx, id, components, false)
	time.Sleep(restartGrace)

	nodes, err := m.store.ListNodes()
	if err != nil {
		return err
	}
	nodeByID := make(map[string]*types.Node, len(nodes))
	for _, n := range nodes {
		nodeByID[n.ID] = n
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxFanout)
	for _, c := range components {
		c := c
		node, ok := nodeByID[c.NodeID]
		if !ok {
			c.Status = types.ComponentStatusError
			_ = m.store.UpdateComponent(c)
			continue
		}
		g.Go(func() error {
			c.Status = types.ComponentStatusRunning
			if err := m.store.UpdateComponent(c); err != nil {
				return nil
			}
			if err := m.agents.Deploy(gctx, agentBaseURL(node), id, c); err != nil {
				m.logger.Warn().Err(err).Str("component_id", c.ID).Msg("restart deploy call failed")
				c.Status = types.ComponentStatusError
				_ = m.store.UpdateComponent(c)
			}
			return nil
		})
	}
	_ = g.Wait()
	return m.store.UpdateBusinessStatus(id, types.BusinessStatusRunning)
}

// DeleteBusiness stops every component, then cascade-deletes the
// business, its components, and their metric history.
func (m *Manager) DeleteBusiness(ctx context.Context, id string) error {
	if _, err := m.store.GetBusiness(id); err != nil {
		return err
	}
	components, err := m.store.ListComponentsByBusiness(id)
	if err != nil {
		return err
	}
	m.stopComponents(ctx, id, components, true)
	return m.store.DeleteBusiness(id)
}

// DeployComponent (re)deploys a single component: if it has never been
// scheduled, the Scheduler places it; otherwise it redeploys to its
// already-assigned node.
func (m *Manager) DeployComponent(ctx context.Context, businessID, componentID string) error {
	c, err := m.store.GetComponent(componentID)
	if err != nil {
		return err
	}
	if c.BusinessID != businessID {
		return apierr.NotFound("component", componentID)
	}

	if c.NodeID == "" {
		failures := m.scheduleAndDeploy(ctx, businessID, []*types.Component{c})
		if len(failures) > 0 {
			return apierr.Validation(failures[0].Reason)
		}
		return nil
	}

	node, err := m.store.GetNode(c.NodeID)
	if err != nil {
		return err
	}

	c.Status = types.ComponentStatusRunning
	if err := m.store.UpdateComponent(c); err != nil {
		return err
	}
	if err := m.agents.Deploy(ctx, agentBaseURL(node), businessID, c); err != nil {
		c.Status = types.ComponentStatusError
		_ = m.store.UpdateComponent(c)
		return fmt.Errorf("deploy component %s: %w", componentID, err)
	}
	return nil
}

// StopComponent stops a single component in place.
func (m *Manager) StopComponent(ctx context.Context, businessID, componentID string) error {
	c, err := m.store.GetComponent(componentID)
	if err != nil {
		return err
	}
	if c.BusinessID != businessID {
		return apierr.NotFound("component", componentID)
	}
	m.stopComponents(ctx, businessID, []*types.Component{c}, false)
	return nil
}

// stopComponents best-effort stops every component, logging failures
// without aborting the remaining set. permanently also asks the Agent
// to remove the component from its local state and on-disk work
// directory.
func (m *Manager) stopComponents(ctx context.Context, businessID string, components []*types.Component, permanently bool) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.BusinessStopDuration)

	nodes, err := m.store.ListNodes()
	if err != nil {
		m.logger.Error().Err(err).Msg("list nodes for stop")
		return
	}
	nodeByID := make(map[string]*types.Node, len(nodes))
	for _, n := range nodes {
		nodeByID[n.ID] = n
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxFanout)

	for _, c := range components {
		c := c
		if c.Status != types.ComponentStatusRunning {
			continue
		}
		node, ok := nodeByID[c.NodeID]
		if !ok {
			m.logger.Warn().Str("component_id", c.ID).Str("node_id", c.NodeID).Msg("node unavailable for stop")
			continue
		}

		g.Go(func() error {
			req := agentclient.StopRequest{
				ComponentID:   c.ID,
				BusinessID:    businessID,
				ComponentType: c.Type,
				ContainerID:   c.ContainerID,
				ProcessID:     c.ProcessID,
				Permanently:   permanently,
			}
			if err := m.agents.Stop(gctx, agentBaseURL(node), req); err != nil {
				m.logger.Warn().Err(err).Str("component_id", c.ID).Msg("stop call failed")
				return nil
			}
			c.Status = types.ComponentStatusStopped
			c.ContainerID = ""
			c.ProcessID = 0
			if err := m.store.UpdateComponent(c); err != nil {
				m.logger.Error().Err(err).Str("component_id", c.ID).Msg("failed to record stop")
			}
			return nil
		})
	}
	_ = g.Wait()
}

func agentBaseURL(n *types.Node) string {
	return fmt.Sprintf("http://%s:%d", n.IPAddress, n.Port)
}
