package ring_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wifi-csi/radar/internal/ring"
)

func TestComputeAmplitude_HypotOfPairs(t *testing.T) {
	// step=1: pairs (3,4) and (5,12) -> hypot 5, 13.
	samples := []int16{3, 4, 5, 12}
	got := ring.ComputeAmplitude(samples, 1)
	require.Len(t, got, 2)
	assert.InDelta(t, 5.0, got[0], 1e-6)
	assert.InDelta(t, 13.0, got[1], 1e-6)
}

func TestWrite_RejectsSubcarrierLengthChange(t *testing.T) {
	b := ring.New(200, 10, 8)
	require.NoError(t, b.Write(0, 0, []float32{1, 2, 3}))
	err := b.Write(1, 10, []float32{1, 2})
	assert.Error(t, err)
}

func TestOutlier_DisabledByZeroThreshold(t *testing.T) {
	b := ring.New(200, 10, 0)
	for i := uint32(0); i < 5; i++ {
		require.NoError(t, b.Write(i, i*10, []float32{100, 100}))
		b.Advance()
	}
	assert.False(t, b.Outlier())
}

// TestOutlier_RejectedFrameStillWritten feeds a single amplitude spike
// surrounded by clean frames and checks every written amplitude survives at
// its own ring slot, regardless of Outlier's verdict for that frame.
// Advance must run unconditionally every iteration: if it were skipped
// whenever Outlier() rejects a frame, the next Write would reuse the ring
// cursor and overwrite the rejected frame's data instead of landing in the
// next slot (csi_outlier_filter_process's every return path still reaches
// csi_window_update).
func TestOutlier_RejectedFrameStillWritten(t *testing.T) {
	b := ring.New(400, 10, 8)
	amplitudes := [][]float32{
		{100, 100}, {100, 100}, {100, 100},
		{1000, 1000}, // spike: flagged, but below the 3-streak accept threshold
		{100, 100}, {100, 100}, {100, 100},
	}
	for i, amp := range amplitudes {
		require.NoError(t, b.Write(uint32(i), uint32(i)*10, amp))
		b.Outlier()
		b.Advance()
	}

	// Every frame must land in its own slot; none were skipped or clobbered.
	for i, amp := range amplitudes {
		assert.Equal(t, amp[0], b.Amplitude(i)[0], "slot %d", i)
	}
}

// TestOutlier_ThreeConsecutiveOutliersAcceptedAsNewBaseline checks that
// three consecutive outlier frames are all retained and, after the streak,
// Outlier stops flagging frames against the stale baseline.
func TestOutlier_ThreeConsecutiveOutliersAcceptedAsNewBaseline(t *testing.T) {
	b := ring.New(400, 10, 8)
	for i := uint32(0); i < 3; i++ {
		require.NoError(t, b.Write(i, i*10, []float32{100, 100}))
		assert.False(t, b.Outlier())
		b.Advance()
	}

	for i, seq := uint32(0), uint32(3); i < 3; i, seq = i+1, seq+1 {
		require.NoError(t, b.Write(seq, seq*10, []float32{1000, 1000}))
		rejected := b.Outlier()
		if i < 2 {
			assert.True(t, rejected, "streak %d should still be rejected", i)
		} else {
			assert.False(t, rejected, "the 3rd consecutive outlier accepts a new baseline")
		}
		b.Advance()
	}

	require.NoError(t, b.Write(6, 60, []float32{1000, 1000}))
	assert.False(t, b.Outlier(), "frames matching the accepted new baseline are no longer outliers")
	b.Advance()
}

func TestAdvance_EmitsOnHandleWindowFull(t *testing.T) {
	// handle_window = (csi_handle_time/csi_recv_interval)*2
	// choose csi_handle_time=100, csi_recv_interval=10 -> handle_window=20
	b := ring.New(100, 10, 0)
	emitted := false
	for i := uint32(0); i < 25; i++ {
		require.NoError(t, b.Write(i, i*10, []float32{1, 2}))
		if _, ok := b.Advance(); ok {
			emitted = true
		}
	}
	assert.True(t, emitted, "expected at least one window emission once handle_window frames accumulated")
}

func TestSplit_NoWrapReturnsSingleSegment(t *testing.T) {
	b := ring.New(1000, 10, 0)
	for i := uint32(0); i < 4; i++ {
		require.NoError(t, b.Write(i, i*10, []float32{float32(i)}))
	}
	idx := ring.WindowIndex{Begin: 0, End: 4, Window: 4}
	first, second := b.Split(idx)
	assert.Len(t, first, 4)
	assert.Nil(t, second)
}
