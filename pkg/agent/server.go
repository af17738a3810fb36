package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cuemby/orbit/pkg/agentclient"
	"github.com/cuemby/orbit/pkg/executor"
	"github.com/cuemby/orbit/pkg/metrics"
	"github.com/cuemby/orbit/pkg/types"
)

// Server is the Agent's inbound command surface: POST /api/deploy and
// POST /api/stop, both acknowledged immediately with the work handed
// off to a detached worker goroutine.
type Server struct {
	agent  *Agent
	router chi.Router
	http   *http.Server
}

// NewServer wires the Agent's command HTTP server on addr.
func NewServer(addr string, a *Agent) *Server {
	srv := &Server{agent: a}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Post("/api/deploy", srv.handleDeploy)
	r.Post("/api/stop", srv.handleStop)

	srv.router = r
	srv.http = &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}
	return srv
}

// Router exposes the underlying chi router, mainly for tests.
func (s *Server) Router() chi.Router { return s.router }

// ListenAndServe starts the HTTP server; it blocks until Shutdown is
// called or the server fails.
func (s *Server) ListenAndServe() error {
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func writeAck(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}{Status: "success", Message: message})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}{Status: "error", Message: message})
}

// handleDeploy validates the request, tracks the component locally as
// scheduled, acknowledges immediately, and hands off to a deploy worker.
func (s *Server) handleDeploy(w http.ResponseWriter, r *http.Request) {
	var req agentclient.DeployRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "malformed request body")
		return
	}
	if req.Component == nil || req.Component.ID == "" {
		writeBadRequest(w, "component is required")
		return
	}

	req.Component.BusinessID = req.BusinessID
	req.Component.Status = types.ComponentStatusScheduled

	s.agent.mu.Lock()
	s.agent.components[req.Component.ID] = req.Component
	s.agent.mu.Unlock()

	writeAck(w, "request is being processed asynchronously")

	comp := req.Component
	go s.agent.deployWorker(context.Background(), comp)
}

// handleStop validates the request, acknowledges immediately, and hands
// off to a stop worker that performs the TERM-then-KILL sequence.
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	var req agentclient.StopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "malformed request body")
		return
	}
	if req.ComponentID == "" {
		writeBadRequest(w, "component_id is required")
		return
	}

	writeAck(w, "request is being processed asynchronously")

	go s.agent.stopWorker(context.Background(), req)
}

// deployWorker uses the executor matching comp.Type to prepare and
// start the workload, transitioning comp's tracked status as it goes.
// Its outcome surfaces on the next telemetry push, never in this
// response.
func (a *Agent) deployWorker(ctx context.Context, comp *types.Component) {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.ExecutorStartDuration, string(comp.Type))

	if comp.Type != types.ComponentTypeBinary && a.docker == nil {
		a.logger.Warn().Str("component_id", comp.ID).Msg("docker unavailable on this host")
		a.setComponentStatus(comp.ID, types.ComponentStatusError)
		return
	}

	exec := executor.For(comp.Type, a.docker, a.process)

	if err := exec.Prepare(ctx, comp); err != nil {
		a.logger.Warn().Err(err).Str("component_id", comp.ID).Msg("prepare failed")
		a.setComponentStatus(comp.ID, types.ComponentStatusError)
		return
	}

	handle, err := exec.Start(ctx, comp)
	if err != nil {
		a.logger.Warn().Err(err).Str("component_id", comp.ID).Msg("start failed")
		a.setComponentStatus(comp.ID, types.ComponentStatusError)
		return
	}

	a.mu.Lock()
	if c, ok := a.components[comp.ID]; ok {
		if comp.Type == types.ComponentTypeBinary {
			if pid, err := strconv.Atoi(handle); err == nil {
				c.ProcessID = pid
			}
		} else {
			c.ContainerID = handle
		}
		c.Status = types.ComponentStatusRunning
	}
	a.mu.Unlock()
}

// stopWorker resolves the handle from either the request or local
// state, then asks the matching executor to stop it.
func (a *Agent) stopWorker(ctx context.Context, req agentclient.StopRequest) {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.ExecutorStopDuration, string(req.ComponentType))

	exec := executor.For(req.ComponentType, a.docker, a.process)

	handle := req.ContainerID
	if req.ComponentType == types.ComponentTypeBinary {
		handle = strconv.Itoa(req.ProcessID)
	}
	if handle == "" || handle == "0" {
		a.mu.RLock()
		if c, ok := a.components[req.ComponentID]; ok {
			handle = c.ContainerID
			if req.ComponentType == types.ComponentTypeBinary {
				handle = strconv.Itoa(c.ProcessID)
			}
		}
		a.mu.RUnlock()
	}

	if err := exec.Stop(ctx, req.ComponentID, handle, req.Permanently); err != nil {
		a.logger.Warn().Err(err).Str("component_id", req.ComponentID).Msg("stop failed")
	}

	a.mu.Lock()
	if req.Permanently {
		delete(a.components, req.ComponentID)
	} else if c, ok := a.components[req.ComponentID]; ok {
		c.Status = types.ComponentStatusStopped
		c.ContainerID = ""
		c.ProcessID = 0
	}
	a.mu.Unlock()
}
