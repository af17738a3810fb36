package agentclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cuemby/orbit/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeploy_SendsComponentAndBusinessID(t *testing.T) {
	var got DeployRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/deploy", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(ackResponse{Success: true})
	}))
	defer server.Close()

	c := New()
	comp := &types.Component{ID: "c1", Name: "web"}
	err := c.Deploy(context.Background(), server.URL, "b1", comp)
	require.NoError(t, err)
	assert.Equal(t, "b1", got.BusinessID)
	assert.Equal(t, "c1", got.Component.ID)
}

func TestStop_PropagatesNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(ackResponse{Success: false, Message: "agent busy"})
	}))
	defer server.Close()

	c := New()
	err := c.Stop(context.Background(), server.URL, StopRequest{ComponentID: "c1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "agent busy")
}
