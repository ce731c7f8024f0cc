// Package gain implements the RX-gain normaliser: a rolling median-of-50
// baseline and the compensation factor derived from it, grounded on
// esp_csi_gain_ctrl.c's esp_csi_gain_ctrl_get_gain_compensation.
package gain

import (
	"math"
	"sort"
	"sync"

	"github.com/wifi-csi/radar/internal/errs"
)

const baselineWindow = 50

type gainPair struct {
	agc uint8
	fft int8
}

// Baseline tracks the rolling (AGC, FFT) sample window and the derived
// median baseline used for gain compensation. It is shared process-wide, so
// the zero value is usable directly and all methods are safe for concurrent
// use even though only one actor (the ingestion path, engine.Context.Ingest)
// is expected to call Record/Compensate.
type Baseline struct {
	mu sync.Mutex

	samples        [baselineWindow]gainPair
	count          uint64
	baselineCount  int
	haveBaseline   bool
	agc0           uint8
	fft0           int8

	forceEnabled bool
	forceAGC     uint8
	forceFFT     int8
}

// Record appends an (agc, fft) observation to the rolling window.
func (b *Baseline) Record(agc uint8, fft int8) {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx := b.count % baselineWindow
	b.samples[idx] = gainPair{agc: agc, fft: fft}
	b.count++
	if b.baselineCount < baselineWindow {
		b.baselineCount++
	}
}

// Reset clears the rolling window, e.g. on re-init.
func (b *Baseline) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.baselineCount = 0
	b.count = 0
	b.haveBaseline = false
}

// ready reports whether baselineWindow samples have been observed. Caller
// must hold b.mu.
func (b *Baseline) ready() bool {
	return b.baselineCount >= baselineWindow
}

// computeBaseline sorts the current window by AGC and takes the middle
// element's (agc, fft) pair. Caller must hold b.mu and b.ready() must be true.
func (b *Baseline) computeBaseline() (uint8, int8) {
	tmp := make([]gainPair, baselineWindow)
	copy(tmp, b.samples[:])
	sort.Slice(tmp, func(i, j int) bool { return tmp[i].agc < tmp[j].agc })
	mid := tmp[baselineWindow/2]
	return mid.agc, mid.fft
}

// Factor returns the compensation factor for a sample observed at the given
// (agc, fft):
//
//	f = 10^(((agc-agc0) + (fft-fft0)/4) / -20)
//
// Returns errs.BaselineNotReady until 50 samples have been recorded.
func (b *Baseline) Factor(agc uint8, fft int8) (float32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.ready() {
		return 1.0, errs.New(errs.BaselineNotReady, "gain.Factor", "fewer than 50 samples recorded")
	}

	if !b.haveBaseline {
		b.agc0, b.fft0 = b.computeBaseline()
		b.haveBaseline = true
	}

	exponent := (float64(agc) - float64(b.agc0) + (float64(fft)-float64(b.fft0))/4.0) / -20.0
	return float32(math.Pow(10, exponent)), nil
}

// Compensate scales samples in place by the current compensation factor,
// rounding to the nearest integer and clamping to the given signed bit
// width (8 or 16). It is a no-op (returns BaselineNotReady, factor 1.0)
// until the baseline is ready.
func (b *Baseline) Compensate(samples []int16, agc uint8, fft int8, bits int) (float32, error) {
	factor, err := b.Factor(agc, fft)
	if err != nil {
		return factor, err
	}

	lo, hi := clampRange(bits)
	for i, s := range samples {
		scaled := int64(math.Round(float64(s) * float64(factor)))
		if scaled < int64(lo) {
			scaled = int64(lo)
		} else if scaled > int64(hi) {
			scaled = int64(hi)
		}
		samples[i] = int16(scaled)
	}
	return factor, nil
}

func clampRange(bits int) (int16, int16) {
	if bits <= 8 {
		return -128, 127
	}
	return -32768, 32767
}

// ForceGain sets (or releases, when en is false) the force-gain knob. It is
// a visible flag only: it does not itself scale samples. Guards against an
// unsafe AGC (<=25), matching esp_radar_set_rx_force_gain.
func (b *Baseline) ForceGain(en bool, agc uint8, fft int8) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !en {
		b.forceEnabled = false
		b.forceAGC, b.forceFFT = 0, 0
		return nil
	}

	if agc <= 25 {
		return errs.New(errs.UnsafeGain, "gain.ForceGain", "agc_gain <= 25 would prevent packets from being sent out properly")
	}

	b.forceEnabled = true
	b.forceAGC = agc
	b.forceFFT = fft
	return nil
}

// ForceGainStatus reports the current force-gain flag and its values.
func (b *Baseline) ForceGainStatus() (enabled bool, agc uint8, fft int8) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.forceEnabled, b.forceAGC, b.forceFFT
}
