// Package detect runs PCA over each emitted window and derives the
// waveform jitter metric from a short rolling history of PCA outputs,
// grounded on esp_radar.c's csi_detection_task /
// csi_detection_update_waveform_metrics.
package detect

import (
	"github.com/wifi-csi/radar/internal/errs"
	"github.com/wifi-csi/radar/internal/pca"
)

// DefaultHistorySize is RADAR_PCA_WINDOW_DEFAULT.
const DefaultHistorySize = 4

// Result is one window's detection output before calibration-derived
// wander is folded in.
type Result struct {
	PCA    []float32
	Jitter float32 // reported value: 1 - max corr against recent history
	// CorrHistory is the raw (non-inverted) max-correlation value Jitter
	// was derived from; the calibration controller's dip detector needs
	// this exact pre-inversion quantity.
	CorrHistory float32
}

// Detector holds the rolling PCA-output history used to compute jitter.
type Detector struct {
	historySize int
	history     [][]float32
	numComputed uint64
	previous    []float32
}

// New creates a Detector with the given history size (pca_window_size;
// DefaultHistorySize if too small to be meaningful).
func New(historySize int) *Detector {
	if historySize < 2 {
		historySize = DefaultHistorySize
	}
	return &Detector{historySize: historySize}
}

// Previous returns the PCA output from the immediately preceding
// successful Process call (nil before the second call), used by the
// calibration controller's exemplar capture.
func (d *Detector) Previous() []float32 { return d.previous }

// NumComputed reports how many windows have produced a PCA output so far.
func (d *Detector) NumComputed() uint64 { return d.numComputed }

// Reset clears the rolling history, matching esp_radar_train_start's reset
// of s_pca_subcarrier_buff_num.
func (d *Detector) Reset() {
	d.history = nil
	d.numComputed = 0
	d.previous = nil
}

// Process runs PCA over (first, second) - the (possibly ring-wrapped)
// amplitude segments for one window - and folds the result into the
// rolling history, returning the reported jitter. Returns
// errs.PcaDivergence if the power iteration failed to converge, matching
// the original's "PCA calculation failed, skip window" behavior (the
// caller should drop the window and not call Process again until the next
// one).
func (d *Detector) Process(cols int, first, second [][]float32) (Result, error) {
	if d.history == nil {
		d.history = make([][]float32, d.historySize)
		for i := range d.history {
			d.history[i] = make([]float32, cols)
		}
	}

	out, err := pca.Compute(cols, first, second)
	if err != nil {
		return Result{}, err
	}

	slot := int(d.numComputed % uint64(d.historySize))
	if d.numComputed > 0 {
		d.previous = d.history[int((d.numComputed-1)%uint64(d.historySize))]
	}
	copy(d.history[slot], out)
	d.numComputed++

	corrHistory := float32(1.0)
	if d.numComputed >= uint64(d.historySize) {
		corrHistory = 0
		for i := 0; i < d.historySize-1; i++ {
			idx := int((d.numComputed - 2 - uint64(i)) % uint64(d.historySize))
			c := pca.Correlation(out, d.history[idx])
			if c < 0 {
				c = -c
			}
			if c > corrHistory {
				corrHistory = c
			}
		}
	}

	return Result{
		PCA:         out,
		Jitter:      1.0 - corrHistory,
		CorrHistory: corrHistory,
	}, nil
}

// ErrDivergence is a convenience alias for checking Process errors.
func ErrDivergence(err error) bool { return errs.Is(err, errs.PcaDivergence) }
