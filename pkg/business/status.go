package business

import "github.com/cuemby/orbit/pkg/types"

// DeriveStatus computes a Business's read-side status from its
// components: a business is error if any component is
// neither running nor stopped; otherwise it mirrors whichever of
// running/stopped all components agree on, falling back to the
// business's own stored field for a mixed running/stopped set (the
// transient window right after a stop request has been issued but
// before every component's status push has landed).
func DeriveStatus(stored types.BusinessStatus, components []*types.Component) types.BusinessStatus {
	if len(components) == 0 {
		return stored
	}

	allRunning, allStopped := true, true
	for _, c := range components {
		switch c.Status {
		case types.ComponentStatusRunning:
			allStopped = false
		case types.ComponentStatusStopped:
			allRunning = false
		default:
			return types.BusinessStatusError
		}
	}

	switch {
	case allRunning:
		return types.BusinessStatusRunning
	case allStopped:
		return types.BusinessStatusStopped
	default:
		return stored
	}
}
