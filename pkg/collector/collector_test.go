package collector

import (
	"context"
	"testing"
	"time"

	"github.com/cuemby/orbit/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCPUCollector_Kind(t *testing.T) {
	assert.Equal(t, types.MetricKindCPU, NewCPUCollector().Kind())
}

func TestMemoryCollector_Kind(t *testing.T) {
	assert.Equal(t, types.MetricKindMemory, NewMemoryCollector().Kind())
}

func TestCPUCollector_Collect(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	sample, err := NewCPUCollector().Collect(ctx)
	require.NoError(t, err)
	require.NotNil(t, sample.CPU)
	assert.Equal(t, types.MetricKindCPU, sample.Kind)
	assert.GreaterOrEqual(t, sample.CPU.CoreCount, 1)
}

func TestMemoryCollector_Collect(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	sample, err := NewMemoryCollector().Collect(ctx)
	require.NoError(t, err)
	require.NotNil(t, sample.Memory)
	assert.Equal(t, types.MetricKindMemory, sample.Kind)
	assert.Greater(t, sample.Memory.TotalMB, int64(0))
}
