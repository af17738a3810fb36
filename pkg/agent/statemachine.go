package agent

import "github.com/cuemby/orbit/pkg/types"

// legalTransitions is the table governing component lifecycle: absent ->
// scheduling -> starting -> running <-> unknown; running -> stopping ->
// stopped; any state -> error. "scheduling" and "absent" are not distinct
// Component statuses in this data model (types.ComponentStatusScheduled
// already covers them), so the table below operates on the statuses the
// Agent actually tracks.
var legalTransitions = map[types.ComponentStatus]map[types.ComponentStatus]bool{
	types.ComponentStatusScheduled: {
		types.ComponentStatusRunning: true, // starting -> running, collapsed
		types.ComponentStatusError:   true,
	},
	types.ComponentStatusRunning: {
		types.ComponentStatusUnknown: true,
		types.ComponentStatusStopped: true, // stopping -> stopped, collapsed
		types.ComponentStatusError:   true,
	},
	types.ComponentStatusUnknown: {
		types.ComponentStatusRunning: true,
		types.ComponentStatusError:   true,
	},
	types.ComponentStatusStopped: {
		types.ComponentStatusRunning: true, // re-deploy
		types.ComponentStatusError:   true,
	},
	types.ComponentStatusError: {
		types.ComponentStatusRunning: true, // re-deploy after a fixed error
	},
}

// transition reports whether moving a component from `from` to `to` is a
// legal state machine step. Every state may move to error; that edge is
// always allowed here, whether or not the table above lists it.
func transition(from, to types.ComponentStatus) bool {
	if to == types.ComponentStatusError {
		return true
	}
	if from == to {
		return true
	}
	return legalTransitions[from][to]
}
