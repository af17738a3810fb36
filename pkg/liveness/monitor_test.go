package liveness

import (
	"testing"
	"time"

	"github.com/cuemby/orbit/pkg/store"
	"github.com/cuemby/orbit/pkg/types"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *store.BoltStore {
	t.Helper()
	s, err := store.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// Scenario 4: node touched at t=0 with T_liveness=5s stays online at t=4,
// flips offline at t=6 with no intervening heartbeat.
func TestScan_FlipsStaleNodeOffline(t *testing.T) {
	s := newTestStore(t)
	base := time.Unix(0, 0)

	require.NoError(t, s.CreateNode(&types.Node{
		ID:         "n1",
		Status:     types.NodeStatusOnline,
		LastSeenAt: base,
	}))

	mon := New(s).WithTimeout(5 * time.Second)

	mon.Scan(base.Add(4 * time.Second))
	n, err := s.GetNode("n1")
	require.NoError(t, err)
	require.Equal(t, types.NodeStatusOnline, n.Status)

	mon.Scan(base.Add(6 * time.Second))
	n, err = s.GetNode("n1")
	require.NoError(t, err)
	require.Equal(t, types.NodeStatusOffline, n.Status)
}

func TestScan_NeverTouchesOfflineAgain(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreateNode(&types.Node{
		ID:         "n1",
		Status:     types.NodeStatusOffline,
		LastSeenAt: time.Unix(0, 0),
	}))

	mon := New(s).WithTimeout(5 * time.Second)
	mon.Scan(time.Unix(1000, 0))

	n, err := s.GetNode("n1")
	require.NoError(t, err)
	require.Equal(t, types.NodeStatusOffline, n.Status)
}

func TestScan_RecentlyTouchedNodeStaysOnline(t *testing.T) {
	s := newTestStore(t)
	now := time.Unix(1000, 0)
	require.NoError(t, s.CreateNode(&types.Node{
		ID:         "n1",
		Status:     types.NodeStatusOnline,
		LastSeenAt: now.Add(-1 * time.Second),
	}))

	mon := New(s).WithTimeout(5 * time.Second)
	mon.Scan(now)

	n, err := s.GetNode("n1")
	require.NoError(t, err)
	require.Equal(t, types.NodeStatusOnline, n.Status)
}
