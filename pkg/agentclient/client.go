// Package agentclient is the Manager's HTTP client for talking to
// Agents: deploy and stop calls, fired by the Business Manager's
// fan-out.
package agentclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cuemby/orbit/pkg/apierr"
	"github.com/cuemby/orbit/pkg/types"
)

const requestTimeout = 5 * time.Second

// Client calls a single Agent's command surface over HTTP.
type Client struct {
	httpClient *http.Client
}

// New creates an agent client with a 5s connect+read timeout.
func New() *Client {
	return &Client{httpClient: &http.Client{Timeout: requestTimeout}}
}

// DeployRequest is the body POSTed to an Agent's /api/deploy.
type DeployRequest struct {
	BusinessID string           `json:"business_id"`
	Component  *types.Component `json:"component"`
}

// StopRequest is the body POSTed to an Agent's /api/stop.
type StopRequest struct {
	ComponentID   string              `json:"component_id"`
	BusinessID    string              `json:"business_id"`
	ContainerID   string              `json:"container_id,omitempty"`
	ProcessID     int                 `json:"process_id,omitempty"`
	ComponentType types.ComponentType `json:"component_type"`
	Permanently   bool                `json:"permanently,omitempty"`
}

type ackResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Deploy asks the agent at baseURL to start comp on behalf of businessID.
// The agent acknowledges the request is accepted; the actual outcome
// surfaces asynchronously through the telemetry channel.
func (c *Client) Deploy(ctx context.Context, baseURL, businessID string, comp *types.Component) error {
	return c.post(ctx, baseURL+"/api/deploy", DeployRequest{BusinessID: businessID, Component: comp})
}

// Stop asks the agent at baseURL to stop the component described by req.
func (c *Client) Stop(ctx context.Context, baseURL string, req StopRequest) error {
	return c.post(ctx, baseURL+"/api/stop", req)
}

func (c *Client) post(ctx context.Context, url string, body interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return apierr.Transient(fmt.Errorf("call %s: %v", url, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var ack ackResponse
		_ = json.NewDecoder(resp.Body).Decode(&ack)
		return fmt.Errorf("%s: status %d: %s", url, resp.StatusCode, ack.Message)
	}
	return nil
}
