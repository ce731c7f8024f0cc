package calib_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/wifi-csi/radar/internal/calib"
	"github.com/wifi-csi/radar/internal/errs"
)

func TestTrainStop_RequiresCollectedSamples(t *testing.T) {
	var c calib.Controller
	c.TrainStart()
	_, _, err := c.TrainStop()
	assert.True(t, errs.Is(err, errs.NoTrainingData))
}

func TestComputeWander_NoExemplarsIsOne(t *testing.T) {
	var c calib.Controller
	corr := func(a, b []float32) float32 { return 1 }
	got := c.ComputeWander([]float32{1, 2, 3}, corr)
	assert.Equal(t, float32(1.0), got)
}

func TestCollectSample_CapturesExemplarWhenBelowThreshold(t *testing.T) {
	var c calib.Controller
	c.TrainStart()

	prev := []float32{1, 2, 3}
	// buffSize must reach 3 before any capture/accumulate logic triggers.
	c.CollectSample(0.5, 0.1, prev)
	c.CollectSample(0.5, 0.1, prev)
	wander := c.CollectSample(0.5, 0.1, prev)

	assert.Equal(t, float32(1.0), wander)
	assert.Equal(t, 1, c.DataNum())
}

func TestTrainRemove_ClearsExemplars(t *testing.T) {
	var c calib.Controller
	c.TrainStart()
	prev := []float32{1, 2, 3}
	c.CollectSample(0.5, 0.1, prev)
	c.CollectSample(0.5, 0.1, prev)
	c.CollectSample(0.5, 0.1, prev)
	assert.Equal(t, 1, c.DataNum())

	c.TrainRemove()
	assert.Equal(t, 0, c.DataNum())
	assert.Equal(t, calib.StatusInactive, c.Status())
}

func TestCheckSubcarrierLen_ResetsOnChange(t *testing.T) {
	var c calib.Controller
	c.TrainStart()
	prev := []float32{1, 2, 3}
	c.CheckSubcarrierLen(3)
	c.CollectSample(0.5, 0.1, prev)
	c.CollectSample(0.5, 0.1, prev)
	c.CollectSample(0.5, 0.1, prev)
	assert.Equal(t, 1, c.DataNum())

	c.CheckSubcarrierLen(5)
	assert.Equal(t, 0, c.DataNum())
}
