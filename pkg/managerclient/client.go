// Package managerclient is the Agent's HTTP client for talking to the
// Manager: register, heartbeat, and telemetry report calls.
package managerclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cuemby/orbit/pkg/types"
)

const requestTimeout = 5 * time.Second

// Client calls the Manager's control plane over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a manager client bound to baseURL, with a 5s connect+read
// timeout.
func New(baseURL string) *Client {
	return &Client{baseURL: baseURL, httpClient: &http.Client{Timeout: requestTimeout}}
}

// RegisterRequest is the body POSTed to /api/register.
type RegisterRequest struct {
	NodeID    string `json:"node_id,omitempty"`
	Hostname  string `json:"hostname"`
	IPAddress string `json:"ip_address"`
	OSInfo    string `json:"os_info"`
	CPUModel  string `json:"cpu_model"`
	GPUCount  int    `json:"gpu_count"`
	Port      int    `json:"port"`
}

// RegisterResponse is the body returned by /api/register.
type RegisterResponse struct {
	NodeID     string             `json:"node_id"`
	Components []*types.Component `json:"components"`
}

// Register sends local probes and adopts whatever node_id the Manager
// assigns (or re-confirms, if req.NodeID was already known).
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	var resp RegisterResponse
	if err := c.postJSON(ctx, "/api/register", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Heartbeat pings liveness for nodeID with an empty JSON object as body.
func (c *Client) Heartbeat(ctx context.Context, nodeID string) error {
	return c.postJSON(ctx, "/api/heartbeat/"+nodeID, struct{}{}, nil)
}

// ReportedComponent is one component's status line within a /api/report push.
type ReportedComponent struct {
	ComponentID   string                 `json:"component_id"`
	Type          types.ComponentType    `json:"type"`
	Status        types.ComponentStatus  `json:"status"`
	ContainerID   string                 `json:"container_id,omitempty"`
	ProcessID     int                    `json:"process_id,omitempty"`
	ResourceUsage *types.ComponentMetric `json:"resource_usage,omitempty"`
}

// Resource carries both resource kinds a single telemetry cycle may
// report; at least one of CPU/Memory is normally set.
type Resource struct {
	CPU    *types.CPUSample    `json:"cpu,omitempty"`
	Memory *types.MemorySample `json:"memory,omitempty"`
}

// ReportRequest is the body POSTed to /api/report.
type ReportRequest struct {
	NodeID     string              `json:"node_id"`
	Timestamp  time.Time           `json:"timestamp"`
	Resource   *Resource           `json:"resource,omitempty"`
	Components []ReportedComponent `json:"components,omitempty"`
}

// Report pushes the telemetry + component-status batch for one cycle.
func (c *Client) Report(ctx context.Context, req ReportRequest) error {
	return c.postJSON(ctx, "/api/report", req, nil)
}

func (c *Client) postJSON(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("call %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("call %s: status %d", path, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response from %s: %w", path, err)
		}
	}
	return nil
}
