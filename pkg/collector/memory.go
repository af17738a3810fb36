package collector

import (
	"context"
	"time"

	"github.com/cuemby/orbit/pkg/types"
	"github.com/shirou/gopsutil/v3/mem"
)

// MemoryCollector samples host memory usage via gopsutil.
type MemoryCollector struct{}

// NewMemoryCollector returns a MemoryCollector.
func NewMemoryCollector() *MemoryCollector { return &MemoryCollector{} }

func (c *MemoryCollector) Kind() types.MetricKind { return types.MetricKindMemory }

func (c *MemoryCollector) Collect(ctx context.Context) (types.MetricSample, error) {
	v, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return types.MetricSample{}, err
	}

	const mb = 1024 * 1024
	return types.MetricSample{
		Kind:      types.MetricKindMemory,
		Timestamp: time.Now(),
		Memory: &types.MemorySample{
			TotalMB:      int64(v.Total / mb),
			UsedMB:       int64(v.Used / mb),
			FreeMB:       int64(v.Free / mb),
			UsagePercent: v.UsedPercent,
		},
	}, nil
}
