// Package ring implements the sliding amplitude window over CSI frames: a
// fixed-capacity ring of per-frame amplitude vectors, the soft outlier
// filter, and the half-overlap window emission policy. Grounded on
// esp_radar.c's csi_data_buff_t / csi_window_ctx_t /
// csi_outlier_filter_process / csi_window_update.
package ring

import (
	"math"

	"github.com/wifi-csi/radar/internal/errs"
	"github.com/wifi-csi/radar/internal/telemetry"
)

// WindowIndex describes one detection window into the ring: [Begin, End)
// modulo the ring's capacity, spanning Window frames.
type WindowIndex struct {
	Begin  int
	End    int
	Window int
}

// Buffer is the amplitude ring plus its sliding-window bookkeeping. Not
// safe for concurrent use; the pre-processing worker is its sole writer.
type Buffer struct {
	capacity      int
	handleWindow  int
	csiHandleTime int

	subcarrierLen int
	amplitude     [][]float32
	timestampMS   []uint32
	seqID         []uint32

	windowStartSeq uint32
	nextSeq        uint32
	lastTimestamp  uint32

	outlierThreshold float32
	outlierStreak    int
}

// New builds a ring sized from csiHandleTime and csiRecvInterval (both in
// milliseconds), matching esp_radar_start's handle_window/buff_size
// derivation: handle_window = (csi_handle_time/csi_recv_interval)*2,
// buff_size = handle_window + 20.
func New(csiHandleTime, csiRecvInterval int, outlierThreshold float32) *Buffer {
	handleWindow := (csiHandleTime / csiRecvInterval) * 2
	capacity := handleWindow + 20

	return &Buffer{
		capacity:         capacity,
		handleWindow:     handleWindow,
		csiHandleTime:    csiHandleTime,
		timestampMS:      make([]uint32, capacity),
		seqID:            make([]uint32, capacity),
		outlierThreshold: outlierThreshold,
	}
}

// Capacity returns the ring's frame capacity (buff_size).
func (b *Buffer) Capacity() int { return b.capacity }

// HandleWindow returns the target window size in frames.
func (b *Buffer) HandleWindow() int { return b.handleWindow }

// SubcarrierLen reports the amplitude vector length, 0 until the first
// write allocates it.
func (b *Buffer) SubcarrierLen() int { return b.subcarrierLen }

// ComputeAmplitude converts a decoded LTF sample segment into one amplitude
// value per subcarrier, grounded on csi_write_frame_to_ring's hypot
// conversion: amplitude[i] = hypot(samples[i*step*2], samples[i*step*2+1]).
func ComputeAmplitude(samples []int16, step int) []float32 {
	n := (len(samples) / 2) / step
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		re := float64(samples[i*step*2])
		im := float64(samples[i*step*2+1])
		out[i] = float32(math.Hypot(re, im))
	}
	return out
}

// Write appends one frame's amplitude vector to the ring at the ring's own
// write cursor (b.nextSeq, advanced once per Advance call - not seq, which
// is only recorded as metadata), along with its receive timestamp in
// milliseconds. Grounded on csi_write_frame_to_ring: the write index is
// next_seq % buff_size, and seq_id is stored separately for display. The
// first call allocates the amplitude storage at the observed subcarrier
// length; a later call with a different length is a hard error
// (errs.LayoutMismatch) and the frame is dropped rather than reshaping the
// ring mid-stream.
func (b *Buffer) Write(seq uint32, timestampMS uint32, amplitude []float32) error {
	if b.subcarrierLen == 0 {
		b.subcarrierLen = len(amplitude)
		b.amplitude = make([][]float32, b.capacity)
		for i := range b.amplitude {
			b.amplitude[i] = make([]float32, b.subcarrierLen)
		}
	} else if len(amplitude) != b.subcarrierLen {
		return errs.New(errs.LayoutMismatch, "ring.Write", "subcarrier length changed mid-stream")
	}

	idx := int(b.nextSeq % uint32(b.capacity))
	copy(b.amplitude[idx], amplitude)
	b.timestampMS[idx] = timestampMS
	b.seqID[idx] = seq
	return nil
}

// Outlier runs the soft outlier filter against the 3 frames preceding
// nextSeq (the frame just written at nextSeq), grounded on
// csi_outlier_filter_process. Returns true if this frame's amplitude
// deviates sharply from its 3 predecessors and has not yet repeated 3 times
// in a row; the caller is expected to use this purely for bookkeeping (a
// drop counter, a log line) since the window-update policy always runs
// regardless of the verdict. A zero threshold disables the filter
// entirely, always returning false.
func (b *Buffer) Outlier() bool {
	if b.outlierThreshold <= 0 {
		return false
	}

	currSeq := b.nextSeq
	if currSeq < 3 {
		b.outlierStreak = 0
		return false
	}

	cap32 := uint32(b.capacity)
	hist0 := b.amplitude[(currSeq-3)%cap32]
	hist1 := b.amplitude[(currSeq-2)%cap32]
	hist2 := b.amplitude[(currSeq-1)%cap32]
	curr := b.amplitude[currSeq%cap32]

	outliers := 0
	for i := range curr {
		ref := (hist0[i] + hist1[i] + hist2[i]) / 3.0
		diff := curr[i] - ref
		if diff > b.outlierThreshold || diff < -b.outlierThreshold {
			outliers++
		}
	}

	isOutlier := outliers >= len(curr)/2
	if !isOutlier {
		b.outlierStreak = 0
		return false
	}

	b.outlierStreak++
	if b.outlierStreak >= 3 {
		// Three consecutive outlier frames: accept the run as a new
		// baseline rather than rejecting forever.
		b.outlierStreak = 0
		return false
	}
	return true
}

// Advance runs the window-update policy for the frame just written at
// nextSeq, grounded on csi_window_update. It always advances nextSeq and
// lastTimestamp; it returns a ready WindowIndex (and true) only when a
// detection window should be emitted.
func (b *Buffer) Advance() (WindowIndex, bool) {
	cap32 := uint32(b.capacity)
	idx := WindowIndex{
		Begin:  int(b.windowStartSeq % cap32),
		End:    int(b.nextSeq % cap32),
		Window: int(b.nextSeq - b.windowStartSeq),
	}

	spentTime := int32(b.timestampMS[idx.End]) - int32(b.timestampMS[idx.Begin])
	timeTamp := int32(b.timestampMS[idx.End]) - int32(b.lastTimestamp)

	emit := false

	if timeTamp < 0 || timeTamp > int32(b.csiHandleTime/2) {
		telemetry.Warnf("CSI stream discontinuity: window=%d timestamp=%dms last_timestamp=%dms",
			idx.Window, b.timestampMS[idx.End], b.lastTimestamp)
		if idx.Window > b.handleWindow/3 {
			idx.Window--
			idx.End = int((b.nextSeq - 1) % cap32)
			emit = true
		}
		b.windowStartSeq = b.nextSeq
	} else if spentTime >= int32(b.csiHandleTime*2) || idx.Window >= b.handleWindow {
		if idx.Window < b.handleWindow/3 {
			telemetry.Warnf("CSI window too short, skipped: window=%d spent_time=%dms", idx.Window, spentTime)
			b.windowStartSeq = b.nextSeq
		} else {
			emit = true
			b.windowStartSeq += uint32(idx.Window / 2)
		}
	}

	b.lastTimestamp = b.timestampMS[idx.End]
	b.nextSeq++

	if !emit {
		return WindowIndex{}, false
	}
	return idx, true
}

// Amplitude returns the amplitude vector stored at ring position i (already
// modulo capacity, as produced by a WindowIndex).
func (b *Buffer) Amplitude(i int) []float32 { return b.amplitude[i] }

// Split returns the two (possibly empty) contiguous segments of the ring
// spanning idx, in time order, handling the wrap-around case where
// idx.Begin > idx.End. Mirrors csi_detection_compute_pca's csi_data_0 /
// csi_data_1 split.
func (b *Buffer) Split(idx WindowIndex) (first, second [][]float32) {
	if idx.Begin <= idx.End {
		return b.amplitude[idx.Begin : idx.Begin+idx.Window], nil
	}
	firstLen := b.capacity - idx.Begin
	return b.amplitude[idx.Begin : idx.Begin+firstLen], b.amplitude[0 : idx.Window-firstLen]
}
