package probe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGBFromBytes(t *testing.T) {
	cases := []struct {
		bytes uint64
		want  float64
	}{
		{0, 0},
		{1 << 30, 1.0},
		{512 << 20, 0.5},
		{3 << 29, 1.5},
		{120 << 30, 120.0},
	}
	for _, tc := range cases {
		assert.InDelta(t, tc.want, gbFromBytes(tc.bytes), 0.001, "bytes=%d", tc.bytes)
	}
}

func TestRound1(t *testing.T) {
	assert.InDelta(t, 12.3, round1(12.34), 0.0001)
	assert.InDelta(t, 12.4, round1(12.36), 0.0001)
	assert.InDelta(t, 0.0, round1(0.04), 0.0001)
	assert.InDelta(t, 100.0, round1(99.97), 0.0001)
}

func TestNewCollectorDefaults(t *testing.T) {
	assert.Equal(t, 500*time.Millisecond, NewCollector().SampleWindow)
}

func TestCollectSmoke(t *testing.T) {
	c := &Collector{SampleWindow: 10 * time.Millisecond}
	snap := c.Collect()
	require.NotNil(t, snap)
	assert.False(t, snap.CollectedAt.IsZero())

	// readings depend on the host; when present they must be sane
	if snap.CPUPct != nil {
		assert.GreaterOrEqual(t, *snap.CPUPct, 0.0)
		assert.LessOrEqual(t, *snap.CPUPct, 100.0)
	}
	if snap.DiskFreeGB != nil {
		assert.GreaterOrEqual(t, *snap.DiskFreeGB, 0.0)
	}
}
