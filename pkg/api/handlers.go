package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cuemby/orbit/pkg/apierr"
	"github.com/cuemby/orbit/pkg/business"
	"github.com/cuemby/orbit/pkg/managerclient"
	"github.com/cuemby/orbit/pkg/metrics"
	"github.com/cuemby/orbit/pkg/types"
)

// envelope is the {status, message, ...} shape every handler responds
// with.
type envelope struct {
	Status     string             `json:"status"`
	Message    string             `json:"message,omitempty"`
	NodeID     string             `json:"node_id,omitempty"`
	Components []*types.Component `json:"components,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, apierr.StatusCode(err), envelope{Status: "error", Message: err.Error()})
}

func writeSuccess(w http.ResponseWriter, v interface{}) {
	writeJSON(w, http.StatusOK, v)
}

func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apierr.Validation("malformed request body: " + err.Error())
	}
	return nil
}

// registerRequest mirrors managerclient.RegisterRequest field-for-field;
// kept local so pkg/api does not import the Agent-side client package.
type registerRequest struct {
	NodeID    string `json:"node_id,omitempty"`
	Hostname  string `json:"hostname"`
	IPAddress string `json:"ip_address"`
	OSInfo    string `json:"os_info"`
	CPUModel  string `json:"cpu_model"`
	GPUCount  int    `json:"gpu_count"`
	Port      int    `json:"port"`
}

// handleRegister assigns a fresh node_id to an unknown or absent one
// and refreshes the descriptor for a known one. Registration always
// touches liveness and always returns the components currently assigned
// to the node, so a restarted Agent can reconcile.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	now := time.Now()
	node, err := s.lookupNode(req.NodeID)
	switch {
	case err == nil:
		node.Hostname = req.Hostname
		node.IPAddress = req.IPAddress
		node.OSInfo = req.OSInfo
		node.CPUModel = req.CPUModel
		node.GPUCount = req.GPUCount
		node.Port = req.Port
		node.Status = types.NodeStatusOnline
		node.LastSeenAt = now
		if err := s.store.UpdateNode(node); err != nil {
			writeError(w, err)
			return
		}
	case apierr.StatusCode(err) == http.StatusNotFound:
		// Absent or unknown node_id both get a freshly generated one:
		// the client never gets to pick an id the Manager hasn't issued.
		node = &types.Node{
			ID:         uuid.NewString(),
			Hostname:   req.Hostname,
			IPAddress:  req.IPAddress,
			OSInfo:     req.OSInfo,
			CPUModel:   req.CPUModel,
			GPUCount:   req.GPUCount,
			Port:       req.Port,
			Status:     types.NodeStatusOnline,
			CreatedAt:  now,
			LastSeenAt: now,
		}
		if err := s.store.CreateNode(node); err != nil {
			writeError(w, err)
			return
		}
	default:
		writeError(w, err)
		return
	}

	components, err := s.store.ListComponentsByNode(node.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, envelope{Status: "success", NodeID: node.ID, Components: components})
}

// lookupNode returns apierr.NotFound when id is empty or unknown, so
// handleRegister's switch can treat "absent" and "unknown" identically.
func (s *Server) lookupNode(id string) (*types.Node, error) {
	if id == "" {
		return nil, apierr.NotFound("node", id)
	}
	return s.store.GetNode(id)
}

// handleHeartbeat is a liveness ping only: TouchNode(node_id).
func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	nodeID := chi.URLParam(r, "node_id")
	node, err := s.store.GetNode(nodeID)
	if err != nil {
		writeError(w, err)
		return
	}
	node.Status = types.NodeStatusOnline
	node.LastSeenAt = time.Now()
	if err := s.store.UpdateNode(node); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, envelope{Status: "success"})
}

// handleReport implements the unified telemetry + component-status push.
// Unknown component_ids are dropped silently (the Agent may have stale
// state); no resource kind is required to be present.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	var req managerclient.ReportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.NodeID == "" {
		writeError(w, apierr.Validation("node_id is required"))
		return
	}

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.ReportIngestDuration)
	metrics.ReportsIngestedTotal.Inc()

	node, err := s.store.GetNode(req.NodeID)
	if err != nil {
		writeError(w, err)
		return
	}
	node.Status = types.NodeStatusOnline
	node.LastSeenAt = time.Now()
	if err := s.store.UpdateNode(node); err != nil {
		writeError(w, err)
		return
	}

	if req.Resource != nil {
		if req.Resource.CPU != nil {
			s.cache.Set(req.NodeID, types.MetricSample{Kind: types.MetricKindCPU, Timestamp: req.Timestamp, CPU: req.Resource.CPU})
		}
		if req.Resource.Memory != nil {
			s.cache.Set(req.NodeID, types.MetricSample{Kind: types.MetricKindMemory, Timestamp: req.Timestamp, Memory: req.Resource.Memory})
		}
	}

	for _, rc := range req.Components {
		c, err := s.store.GetComponent(rc.ComponentID)
		if err != nil {
			continue // unknown component_id: dropped, not an error
		}
		c.Status = rc.Status
		// A handle is only meaningful for a running workload; anything
		// else keeps the component row handle-free.
		if rc.Status == types.ComponentStatusRunning {
			c.ContainerID = rc.ContainerID
			c.ProcessID = rc.ProcessID
		} else {
			c.ContainerID = ""
			c.ProcessID = 0
		}
		c.UpdatedAt = time.Now()
		if err := s.store.UpdateComponent(c); err != nil {
			continue
		}
		if rc.ResourceUsage != nil {
			m := *rc.ResourceUsage
			m.ComponentID = c.ID
			if m.Timestamp.IsZero() {
				m.Timestamp = req.Timestamp
			}
			_ = s.store.AppendComponentMetric(&m)
		}
	}

	writeSuccess(w, envelope{Status: "success"})
}

func (s *Server) handleListNodes(w http.ResponseWriter, r *http.Request) {
	nodes, err := s.store.ListNodes()
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, struct {
		Status string        `json:"status"`
		Nodes  []*types.Node `json:"nodes"`
	}{Status: "success", Nodes: nodes})
}

// nodeDetail decorates a node with its latest cached cpu/memory samples.
type nodeDetail struct {
	*types.Node
	LatestCPU    *types.CPUSample    `json:"latest_cpu,omitempty"`
	LatestMemory *types.MemorySample `json:"latest_memory,omitempty"`
}

func (s *Server) handleGetNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	node, err := s.store.GetNode(id)
	if err != nil {
		writeError(w, err)
		return
	}
	detail := nodeDetail{Node: node}
	if sample, ok := s.cache.Get(id, types.MetricKindCPU); ok {
		detail.LatestCPU = sample.CPU
	}
	if sample, ok := s.cache.Get(id, types.MetricKindMemory); ok {
		detail.LatestMemory = sample.Memory
	}
	writeSuccess(w, struct {
		Status string     `json:"status"`
		Node   nodeDetail `json:"node"`
	}{Status: "success", Node: detail})
}

// handleNodeResource returns an array of 0-1 entries.
func (s *Server) handleNodeResource(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	kind := types.MetricKind(chi.URLParam(r, "kind"))
	if kind != types.MetricKindCPU && kind != types.MetricKindMemory {
		writeError(w, apierr.Validation("kind must be cpu or memory"))
		return
	}

	samples := make([]types.MetricSample, 0, 1)
	if sample, ok := s.cache.Get(id, kind); ok {
		samples = append(samples, sample)
	}
	writeSuccess(w, struct {
		Status  string               `json:"status"`
		Samples []types.MetricSample `json:"samples"`
	}{Status: "success", Samples: samples})
}

// businessSpecRequest is the wire shape of POST /api/businesses.
type businessSpecRequest struct {
	BusinessName string             `json:"business_name"`
	Components   []*types.Component `json:"components"`
}

func (s *Server) handleListBusinesses(w http.ResponseWriter, r *http.Request) {
	businesses, err := s.store.ListBusinesses()
	if err != nil {
		writeError(w, err)
		return
	}
	for _, b := range businesses {
		components, err := s.store.ListComponentsByBusiness(b.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		b.Status = business.DeriveStatus(b.Status, components)
	}
	writeSuccess(w, struct {
		Status     string            `json:"status"`
		Businesses []*types.Business `json:"businesses"`
	}{Status: "success", Businesses: businesses})
}

func (s *Server) handleDeployBusiness(w http.ResponseWriter, r *http.Request) {
	var req businessSpecRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	biz, failures, err := s.business.DeployBusiness(r.Context(), business.BusinessSpec{
		Name:       req.BusinessName,
		Components: req.Components,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	respondBusinessDeploy(w, biz, failures)
}

func (s *Server) handleDeployBusinessFromTemplate(w http.ResponseWriter, r *http.Request) {
	tid := chi.URLParam(r, "tid")
	biz, failures, err := s.business.DeployBusinessByTemplate(r.Context(), tid)
	if err != nil {
		writeError(w, err)
		return
	}
	respondBusinessDeploy(w, biz, failures)
}

func respondBusinessDeploy(w http.ResponseWriter, biz *types.Business, failures []business.Failure) {
	status := "success"
	if len(failures) > 0 {
		status = "error"
	}
	writeSuccess(w, struct {
		Status     string             `json:"status"`
		BusinessID string             `json:"business_id"`
		Failures   []business.Failure `json:"failures,omitempty"`
	}{Status: status, BusinessID: biz.ID, Failures: failures})
}

func (s *Server) handleGetBusiness(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	biz, err := s.store.GetBusiness(id)
	if err != nil {
		writeError(w, err)
		return
	}
	components, err := s.store.ListComponentsByBusiness(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, struct {
		Status     string               `json:"status"`
		BusinessID string               `json:"business_id"`
		Name       string               `json:"business_name"`
		BizStatus  types.BusinessStatus `json:"business_status"`
		Components []*types.Component   `json:"components"`
	}{
		Status:     "success",
		BusinessID: biz.ID,
		Name:       biz.Name,
		BizStatus:  business.DeriveStatus(biz.Status, components),
		Components: components,
	})
}

func (s *Server) handleDeleteBusiness(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.business.DeleteBusiness(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, envelope{Status: "success"})
}

func (s *Server) handleStopBusiness(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.business.StopBusiness(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, envelope{Status: "success"})
}

func (s *Server) handleRestartBusiness(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.business.RestartBusiness(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, envelope{Status: "success"})
}

func (s *Server) handleDeployComponent(w http.ResponseWriter, r *http.Request) {
	bid, cid := chi.URLParam(r, "bid"), chi.URLParam(r, "cid")
	if err := s.business.DeployComponent(r.Context(), bid, cid); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, envelope{Status: "success"})
}

func (s *Server) handleStopComponent(w http.ResponseWriter, r *http.Request) {
	bid, cid := chi.URLParam(r, "bid"), chi.URLParam(r, "cid")
	if err := s.business.StopComponent(r.Context(), bid, cid); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, envelope{Status: "success"})
}

func (s *Server) handleListComponentTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.store.ListComponentTemplates()
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, struct {
		Status    string                     `json:"status"`
		Templates []*types.ComponentTemplate `json:"component_templates"`
	}{Status: "success", Templates: templates})
}

func (s *Server) handleUpsertComponentTemplate(w http.ResponseWriter, r *http.Request) {
	var tmpl types.ComponentTemplate
	if err := decodeJSON(r, &tmpl); err != nil {
		writeError(w, err)
		return
	}
	if id := chi.URLParam(r, "id"); id != "" {
		tmpl.ID = id
	}

	now := time.Now()
	tmpl.UpdatedAt = now
	var err error
	if existing, getErr := s.store.GetComponentTemplate(tmpl.ID); getErr == nil {
		tmpl.CreatedAt = existing.CreatedAt
		err = s.store.UpdateComponentTemplate(&tmpl)
	} else {
		if tmpl.ID == "" {
			tmpl.ID = uuid.NewString()
		}
		tmpl.CreatedAt = now
		err = s.store.CreateComponentTemplate(&tmpl)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, struct {
		Status              string `json:"status"`
		ComponentTemplateID string `json:"component_template_id"`
	}{Status: "success", ComponentTemplateID: tmpl.ID})
}

func (s *Server) handleGetComponentTemplate(w http.ResponseWriter, r *http.Request) {
	tmpl, err := s.store.GetComponentTemplate(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, struct {
		Status   string                   `json:"status"`
		Template *types.ComponentTemplate `json:"component_template"`
	}{Status: "success", Template: tmpl})
}

func (s *Server) handleDeleteComponentTemplate(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteComponentTemplate(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, envelope{Status: "success"})
}

func (s *Server) handleListBusinessTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.store.ListBusinessTemplates()
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, struct {
		Status    string                    `json:"status"`
		Templates []*types.BusinessTemplate `json:"business_templates"`
	}{Status: "success", Templates: templates})
}

func (s *Server) handleUpsertBusinessTemplate(w http.ResponseWriter, r *http.Request) {
	var tmpl types.BusinessTemplate
	if err := decodeJSON(r, &tmpl); err != nil {
		writeError(w, err)
		return
	}
	if id := chi.URLParam(r, "id"); id != "" {
		tmpl.ID = id
	}

	now := time.Now()
	tmpl.UpdatedAt = now
	var err error
	if existing, getErr := s.store.GetBusinessTemplate(tmpl.ID); getErr == nil {
		tmpl.CreatedAt = existing.CreatedAt
		err = s.store.UpdateBusinessTemplate(&tmpl)
	} else {
		if tmpl.ID == "" {
			tmpl.ID = uuid.NewString()
		}
		tmpl.CreatedAt = now
		err = s.store.CreateBusinessTemplate(&tmpl)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, struct {
		Status             string `json:"status"`
		BusinessTemplateID string `json:"business_template_id"`
	}{Status: "success", BusinessTemplateID: tmpl.ID})
}

func (s *Server) handleGetBusinessTemplate(w http.ResponseWriter, r *http.Request) {
	tmpl, err := s.store.GetBusinessTemplate(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, struct {
		Status   string                  `json:"status"`
		Template *types.BusinessTemplate `json:"business_template"`
	}{Status: "success", Template: tmpl})
}

func (s *Server) handleDeleteBusinessTemplate(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteBusinessTemplate(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, envelope{Status: "success"})
}
