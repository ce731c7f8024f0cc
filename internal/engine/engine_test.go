package engine_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wifi-csi/radar/internal/config"
	"github.com/wifi-csi/radar/internal/engine"
	"github.com/wifi-csi/radar/internal/frameproc"
	"github.com/wifi-csi/radar/internal/layout"
)

// row1 is the HT20/no-STBC/secondary-none layout row: 256 total bytes, a
// 104-byte L-LTF and a 112-byte HT-LTF split across two ranges.
var row1 = layout.Table[1]

func fillRange(raw []byte, rg layout.ByteRange, values []int8) {
	for i, v := range values {
		raw[rg.Start+i] = byte(v)
	}
}

// buildRawFrame lays 112 HT-LTF bytes (56 real/imag pairs at step=1) across
// row1's two HT-LTF ranges, leaving the L-LTF region zeroed.
func buildRawFrame(seq uint32, htltf []int8, agc uint8, fft int8, srcMAC [6]byte) engine.RawFrame {
	raw := make([]byte, row1.TotalBytes)
	fillRange(raw, row1.HTLTF[0], htltf[:56])
	fillRange(raw, row1.HTLTF[1], htltf[56:])

	return engine.RawFrame{
		Raw: raw,
		Rx: layout.RxControl{
			SignalMode:       row1.SignalMode,
			ChannelWidth:     row1.Bandwidth,
			STBC:             row1.STBC,
			SecondaryChannel: row1.Second,
			AGCGain:          agc,
			FFTGain:          fft,
			TimestampUS:      seq * 1000,
		},
		SrcMAC:      srcMAC,
		DstMAC:      [6]byte{1, 2, 3, 4, 5, 6},
		PayloadLen:  len(raw),
		TimestampMS: seq,
	}
}

// sinusoidHTLTF generates a 112-byte HT-LTF pattern whose amplitude at
// step=1 varies sinusoidally across the 56 subcarriers and drifts slowly
// across successive seq values, giving the pre-processing/detection
// pipeline something non-degenerate to chew on.
func sinusoidHTLTF(seq int) []int8 {
	out := make([]int8, 112)
	for i := 0; i < 56; i++ {
		phase := float64(i+seq) * 0.2
		re := int8(20 * sin(phase))
		im := int8(20 * sin(phase+1.0))
		out[2*i] = re
		out[2*i+1] = im
	}
	return out
}

func sin(x float64) float64 {
	// Tiny fixed-point-free sine via a handful of Taylor terms - sufficient
	// for generating a non-degenerate test waveform, not for precision.
	for x > 3.14159265 {
		x -= 2 * 3.14159265
	}
	for x < -3.14159265 {
		x += 2 * 3.14159265
	}
	x2 := x * x
	return x * (1 - x2/6*(1-x2/20*(1-x2/42)))
}

func fastConfig() config.Config {
	cfg := config.Default()
	cfg.SubCarrierStepSize = 1
	cfg.CSIRecvIntervalMS = 1
	cfg.CSIHandleTimeMS = 8
	cfg.PCAWindowSize = 2
	cfg.OutliersThreshold = 0
	cfg.Validate()
	return cfg
}

func TestIngest_MACFilterDropsMismatchedFrames(t *testing.T) {
	cfg := fastConfig()
	cfg.FilterMAC = [6]byte{9, 9, 9, 9, 9, 9}
	ctx := engine.New(cfg)

	var mu sync.Mutex
	called := false
	ctx.SetCallbacks(func(f *frameproc.FilteredFrame) {
		mu.Lock()
		called = true
		mu.Unlock()
	}, nil)

	frame := buildRawFrame(0, sinusoidHTLTF(0), 40, 0, [6]byte{1, 1, 1, 1, 1, 1})
	require.NoError(t, ctx.Ingest(frame))

	mu.Lock()
	defer mu.Unlock()
	assert.False(t, called, "filtered callback must not fire for a MAC that does not match filter_mac")
}

func TestEndToEnd_ColdStartProducesDetections(t *testing.T) {
	cfg := fastConfig()
	ctx := engine.New(cfg)
	require.NoError(t, ctx.Start())
	defer ctx.Stop()

	results := make(chan engine.RadarInfo, 256)
	ctx.SetCallbacks(nil, func(info engine.RadarInfo) { results <- info })

	for i := 0; i < 200; i++ {
		frame := buildRawFrame(uint32(i), sinusoidHTLTF(i), 40, 0, [6]byte{1, 1, 1, 1, 1, 1})
		require.NoError(t, ctx.Ingest(frame))
	}

	select {
	case info := <-results:
		assert.GreaterOrEqual(t, info.WaveformJitter, float32(0))
		assert.LessOrEqual(t, info.WaveformJitter, float32(1))
	case <-time.After(2 * time.Second):
		t.Fatal("expected at least one detection window to be emitted")
	}
}

func TestEndToEnd_OutlierFramesStillAdvanceWindow(t *testing.T) {
	cfg := fastConfig()
	cfg.OutliersThreshold = 8
	ctx := engine.New(cfg)
	require.NoError(t, ctx.Start())
	defer ctx.Stop()

	results := make(chan engine.RadarInfo, 256)
	ctx.SetCallbacks(nil, func(info engine.RadarInfo) { results <- info })

	for i := 0; i < 200; i++ {
		htltf := sinusoidHTLTF(i)
		if i%17 == 0 {
			// Occasional single-frame amplitude spike: must be flagged by
			// the outlier filter but still advance the window, not get
			// silently dropped from the ring.
			for j := range htltf {
				htltf[j] = 120
			}
		}
		frame := buildRawFrame(uint32(i), htltf, 40, 0, [6]byte{1, 1, 1, 1, 1, 1})
		require.NoError(t, ctx.Ingest(frame))
	}

	select {
	case info := <-results:
		assert.GreaterOrEqual(t, info.WaveformJitter, float32(0))
		assert.LessOrEqual(t, info.WaveformJitter, float32(1))
	case <-time.After(2 * time.Second):
		t.Fatal("expected at least one detection window to be emitted even with outlier frames interleaved")
	}
}

func TestTrainThenDetect_StopReturnsWithoutDeadlock(t *testing.T) {
	cfg := fastConfig()
	ctx := engine.New(cfg)
	require.NoError(t, ctx.Start())
	defer ctx.Stop()

	done := make(chan struct{})
	count := 0
	ctx.SetCallbacks(nil, func(info engine.RadarInfo) {
		count++
		if count >= 40 {
			select {
			case done <- struct{}{}:
			default:
			}
		}
	})

	ctx.TrainStart()
	for i := 0; i < 400; i++ {
		frame := buildRawFrame(uint32(i), sinusoidHTLTF(i), 40, 0, [6]byte{1, 1, 1, 1, 1, 1})
		require.NoError(t, ctx.Ingest(frame))
	}

	select {
	case <-done:
	case <-time.After(3 * time.Second):
	}

	_, _, err := ctx.TrainStop()
	// Either thresholds were derived, or - if the synthetic waveform never
	// produced a steady-state sample - NoTrainingData is returned. Both are
	// valid outcomes of this harness; what matters is no panic/deadlock.
	_ = err
}

func TestStopStart_Cycle(t *testing.T) {
	cfg := fastConfig()
	ctx := engine.New(cfg)

	require.NoError(t, ctx.Start())
	for i := 0; i < 10; i++ {
		require.NoError(t, ctx.Ingest(buildRawFrame(uint32(i), sinusoidHTLTF(i), 40, 0, [6]byte{1, 1, 1, 1, 1, 1})))
	}
	ctx.Stop()

	require.NoError(t, ctx.Start())
	for i := 0; i < 10; i++ {
		require.NoError(t, ctx.Ingest(buildRawFrame(uint32(i), sinusoidHTLTF(i), 40, 0, [6]byte{1, 1, 1, 1, 1, 1})))
	}
	ctx.Stop()
}

func TestGainChangeMidStream_ScalesCompensation(t *testing.T) {
	cfg := fastConfig()
	ctx := engine.New(cfg)

	var mu sync.Mutex
	var lastFactor float32
	ctx.SetCallbacks(func(f *frameproc.FilteredFrame) {
		mu.Lock()
		lastFactor = f.GainCompensation
		mu.Unlock()
	}, nil)

	for i := 0; i < 50; i++ {
		require.NoError(t, ctx.Ingest(buildRawFrame(uint32(i), sinusoidHTLTF(i), 40, 0, [6]byte{1, 1, 1, 1, 1, 1})))
	}
	mu.Lock()
	atBaseline := lastFactor
	mu.Unlock()
	assert.InDelta(t, 1.0, atBaseline, 1e-3)

	require.NoError(t, ctx.Ingest(buildRawFrame(50, sinusoidHTLTF(50), 20, 0, [6]byte{1, 1, 1, 1, 1, 1})))
	mu.Lock()
	afterShift := lastFactor
	mu.Unlock()
	// A weaker-than-baseline AGC (20 vs the 40 recorded as baseline) calls
	// for a 10x compensation factor, per esp_csi_gain_ctrl's formula.
	assert.InDelta(t, 10.0, afterShift, 1e-3)
}
