// Package calib implements the three-state calibration controller
// (Inactive/Collecting/Complete), grounded on esp_radar.c's
// radar_calibrate_t and esp_radar_train_start/remove/stop plus
// csi_training_collect_sample.
package calib

import (
	"sync"

	"github.com/wifi-csi/radar/internal/errs"
)

// Status is the calibration controller's lifecycle state.
type Status int

const (
	StatusInactive Status = iota
	StatusCollecting
	StatusComplete
)

const (
	maxExemplars     = 10    // CSI_CORR_NUM
	jitterBuffSize   = 3     // RADAR_BUFF_NUM
	outlierThreshold = 0.005 // RADAR_OUTLIERS_THRESHOLD
	corrThreshold    = 0.998 // CSI_CORR_THRESHOLD
)

// Controller tracks calibration exemplars and the statistics needed to
// derive wander/jitter detection thresholds once training completes.
type Controller struct {
	mu sync.Mutex

	status Status

	exemplars [maxExemplars][]float32
	dataNum   int

	jitterBuff [jitterBuffSize]float32
	buffSize   int
	staticCorr float32

	noneCorrSum   float32
	noneCorrCount float32
	noneCorr      float32

	waveformWanderLast float32
	subcarrierLen      int
}

// Status reports the current calibration state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Controller) resetStatsLocked() {
	c.buffSize = 0
	c.noneCorrSum = 0
	c.noneCorrCount = 0
	c.noneCorr = 1
	c.staticCorr = 1
	c.subcarrierLen = 0
}

// TrainStart begins (or restarts) exemplar collection.
func (c *Controller) TrainStart() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetStatsLocked()
	c.status = StatusCollecting
	c.waveformWanderLast = 0
}

// TrainRemove discards all exemplars and statistics, returning to Inactive.
func (c *Controller) TrainRemove() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.exemplars {
		c.exemplars[i] = nil
	}
	c.resetStatsLocked()
	c.dataNum = 0
	c.status = StatusInactive
	c.waveformWanderLast = 0
}

// TrainStop finalises calibration and derives the detection thresholds.
// Returns errs.NoTrainingData if no exemplars (or no steady-state samples)
// were collected, matching esp_radar_train_stop's guard.
func (c *Controller) TrainStop() (wanderThreshold, jitterThreshold float32, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dataNum == 0 || c.noneCorrCount == 0 {
		return 0, 0, errs.New(errs.NoTrainingData, "calib.TrainStop", "no training samples collected")
	}

	c.status = StatusComplete
	wanderThreshold = 1.0 - (c.noneCorrSum / c.noneCorrCount)
	jitterThreshold = 1.0 - c.staticCorr
	return wanderThreshold, jitterThreshold, nil
}

// CheckSubcarrierLen resets calibration data if cols changed mid-stream
// (the exemplars would no longer be comparable), matching the
// subcarrier-length-change branch in csi_detection_task.
func (c *Controller) CheckSubcarrierLen(cols int) {
	c.mu.Lock()
	changed := c.subcarrierLen != 0 && c.subcarrierLen != cols
	c.mu.Unlock()

	if changed {
		c.TrainRemove()
	}

	c.mu.Lock()
	c.subcarrierLen = cols
	c.mu.Unlock()
}

// ComputeWander returns the raw (non-inverted) maximum absolute
// correlation of current against the collected exemplars, matching
// csi_detection_compute_wander. Returns 1.0 when no exemplars exist yet
// (nothing to compare against).
func (c *Controller) ComputeWander(current []float32, corrFn func(a, b []float32) float32) float32 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dataNum == 0 {
		return 1.0
	}

	var wander float32
	limit := c.dataNum
	if limit > maxExemplars {
		limit = maxExemplars
	}
	for i := 0; i < limit; i++ {
		rec := c.exemplars[i%maxExemplars]
		if rec == nil {
			continue
		}
		v := corrFn(rec, current)
		if v < 0 {
			v = -v
		}
		if v > wander {
			wander = v
		}
	}
	return wander
}

// CollectSample folds one detection window's raw correlation-against-
// history value into the dip-detection buffer and, outside of a detected
// dip, either captures a new exemplar (from prevPCA, the detector's
// previous-iteration output) or accumulates the steady-state correlation
// average. Returns the wander value to report for this window (an
// exemplar capture forces it to 1.0, matching csi_training_collect_sample).
// Only valid once status is Collecting; callers should guard with Status().
func (c *Controller) CollectSample(corrHistory, rawWander float32, prevPCA []float32) float32 {
	c.mu.Lock()
	defer c.mu.Unlock()

	idxFirst := (c.buffSize + jitterBuffSize - 2) % jitterBuffSize
	idxSecond := (c.buffSize + jitterBuffSize - 1) % jitterBuffSize
	idxThird := c.buffSize % jitterBuffSize

	c.jitterBuff[idxThird] = corrHistory
	c.buffSize++

	if c.buffSize < jitterBuffSize {
		c.waveformWanderLast = rawWander
		return rawWander
	}

	first, second, third := c.jitterBuff[idxFirst], c.jitterBuff[idxSecond], c.jitterBuff[idxThird]

	if (first-second > outlierThreshold) && (third-second > outlierThreshold) {
		// A momentary dip surrounded by two higher values: a jitter
		// outlier, not a genuine change. Skip without updating state.
		return rawWander
	}

	if c.staticCorr > corrHistory {
		c.staticCorr = second
	}

	adjWander := rawWander
	if c.waveformWanderLast < corrThreshold {
		if prevPCA != nil {
			idx := c.dataNum % maxExemplars
			if c.exemplars[idx] == nil || len(c.exemplars[idx]) != len(prevPCA) {
				c.exemplars[idx] = make([]float32, len(prevPCA))
			}
			copy(c.exemplars[idx], prevPCA)
			c.dataNum++
			c.noneCorr = 1.0
			adjWander = 1.0
		}
	} else {
		c.noneCorr = c.waveformWanderLast
		if c.waveformWanderLast < 0.99999 {
			c.noneCorrSum += c.waveformWanderLast
			c.noneCorrCount++
		}
	}

	c.waveformWanderLast = adjWander
	return adjWander
}

// DataNum reports how many exemplars have been captured.
func (c *Controller) DataNum() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dataNum
}
