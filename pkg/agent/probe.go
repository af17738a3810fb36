package agent

import (
	"context"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
)

// cpuModel returns the first reported CPU model name, or "unknown". The
// original agent shelled out to "cat /proc/cpuinfo | grep model name";
// gopsutil already parses that file for us.
func cpuModel(ctx context.Context) string {
	info, err := cpu.InfoWithContext(ctx)
	if err != nil || len(info) == 0 {
		return "unknown"
	}
	return info[0].ModelName
}

// osInfo returns a short platform description ("ubuntu 22.04", ...).
func osInfo(ctx context.Context) string {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return "unknown"
	}
	return info.Platform + " " + info.PlatformVersion
}

// gpuCount is a best-effort probe. The original agent shelled out to a
// vendor-specific accelerator tool (ixsmi) that has no portable
// equivalent; Orbit reports 0 rather than depending on hardware that
// isn't present on most fleet nodes. There is no config setting for it;
// every node registers with a GPU count of 0.
func gpuCount() int {
	return 0
}
