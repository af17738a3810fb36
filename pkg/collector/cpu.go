package collector

import (
	"context"
	"time"

	"github.com/cuemby/orbit/pkg/types"
	gopsutilcpu "github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/load"
)

// CPUCollector samples host CPU usage and load averages via gopsutil.
type CPUCollector struct{}

// NewCPUCollector returns a CPUCollector.
func NewCPUCollector() *CPUCollector { return &CPUCollector{} }

func (c *CPUCollector) Kind() types.MetricKind { return types.MetricKindCPU }

func (c *CPUCollector) Collect(ctx context.Context) (types.MetricSample, error) {
	percents, err := gopsutilcpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return types.MetricSample{}, err
	}
	var usage float64
	if len(percents) > 0 {
		usage = percents[0]
	}

	counts, err := gopsutilcpu.CountsWithContext(ctx, true)
	if err != nil {
		return types.MetricSample{}, err
	}

	avg, err := load.AvgWithContext(ctx)
	if err != nil {
		// Load averages are unavailable on some platforms; still return
		// the usage/core reading rather than failing the whole sample.
		avg = &load.AvgStat{}
	}

	return types.MetricSample{
		Kind:      types.MetricKindCPU,
		Timestamp: time.Now(),
		CPU: &types.CPUSample{
			UsagePercent: usage,
			LoadAvg1m:    avg.Load1,
			LoadAvg5m:    avg.Load5,
			LoadAvg15m:   avg.Load15,
			CoreCount:    counts,
		},
	}, nil
}
