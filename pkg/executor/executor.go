// Package executor implements the Agent's container and process
// runtimes: the opaque capability that turns a Component record into a
// running workload on the local host.
package executor

import (
	"context"

	"github.com/cuemby/orbit/pkg/types"
)

// Status is a point-in-time read of a running workload.
type Status struct {
	Running      bool
	MemoryUsedMB int64
	CPUPercent   float64
}

// Executor realises a component on the local node: pull/download,
// start, stop, and query a running handle. Docker and Process are the
// two implementations selected by Component.Type.
type Executor interface {
	// Prepare pulls the image or downloads the binary and materializes
	// any config files, without starting the workload.
	Prepare(ctx context.Context, comp *types.Component) error

	// Start launches the workload and returns its handle: a container
	// ID for docker components, a stringified PID for binary ones.
	Start(ctx context.Context, comp *types.Component) (handle string, err error)

	// Stop stops the workload identified by handle. permanently also
	// removes the container/process's on-disk work directory.
	Stop(ctx context.Context, componentID, handle string, permanently bool) error

	// Query reports whether handle is still alive and its resource
	// usage, if available.
	Query(ctx context.Context, handle string) (Status, error)
}

// For selects the executor for a component type.
func For(t types.ComponentType, docker *Docker, process *Process) Executor {
	if t == types.ComponentTypeBinary {
		return process
	}
	return docker
}
