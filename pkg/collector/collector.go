// Package collector implements the Agent's pluggable resource collectors:
// typed snapshots of host CPU and memory, polled once per telemetry cycle.
package collector

import (
	"context"

	"github.com/cuemby/orbit/pkg/types"
)

// Collector produces one typed resource snapshot per call. Implementations
// must be safe to call repeatedly from the Agent's telemetry loop.
type Collector interface {
	Kind() types.MetricKind
	Collect(ctx context.Context) (types.MetricSample, error)
}
