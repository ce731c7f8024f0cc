// Package engine wires the classifier, rebuilder, gain normaliser, ring
// buffer, PCA detector and calibration controller into a two-worker
// pipeline, grounded on esp_radar.c's esp_radar_csi_rx_cb /
// csi_preprocessing_task / csi_detection_task / esp_radar_start /
// esp_radar_stop.
package engine

import (
	"sync"
	"sync/atomic"

	"github.com/wifi-csi/radar/internal/calib"
	"github.com/wifi-csi/radar/internal/config"
	"github.com/wifi-csi/radar/internal/detect"
	"github.com/wifi-csi/radar/internal/errs"
	"github.com/wifi-csi/radar/internal/frameproc"
	"github.com/wifi-csi/radar/internal/gain"
	"github.com/wifi-csi/radar/internal/layout"
	"github.com/wifi-csi/radar/internal/pca"
	"github.com/wifi-csi/radar/internal/ring"
	"github.com/wifi-csi/radar/internal/telemetry"
)

const (
	csiInfoQueueDepth = 5 // xQueueCreate(5, sizeof(void *))
	csiDataQueueDepth = 1 // xQueueCreate(1, sizeof(csi_data_buff_index_t))
)

// RawFrame is one CSI packet as delivered by the packet source, before
// classification. It stands in for the Wi-Fi driver's wifi_csi_info_t.
type RawFrame struct {
	Raw         []byte
	Rx          layout.RxControl
	SrcMAC      [6]byte
	DstMAC      [6]byte
	PayloadLen  int
	TimestampMS uint32
}

// RadarInfo is the final per-window detection result, mirroring
// wifi_radar_info_t, delivered to the radar callback.
type RadarInfo struct {
	WaveformJitter float32
	WaveformWander float32
}

// FilteredCallback receives every classified-and-rebuilt frame, mirroring
// wifi_csi_filtered_cb_t. May be nil.
type FilteredCallback func(*frameproc.FilteredFrame)

// RadarCallback receives one RadarInfo per emitted detection window,
// mirroring wifi_radar_cb_t. May be nil.
type RadarCallback func(RadarInfo)

// Context is the radar engine's lifecycle owner: it owns the gain baseline,
// the calibration controller, the ring buffer and the two worker
// goroutines.
type Context struct {
	mu  sync.Mutex
	cfg config.Config

	gainBaseline *gain.Baseline
	calibrator   *calib.Controller
	detector     *detect.Detector
	ringBuf      *ring.Buffer

	filteredCB FilteredCallback
	radarCB    RadarCallback

	seq uint64

	running  atomic.Bool
	stopCh   chan struct{}
	wg       sync.WaitGroup
	infoCh   chan *frameproc.FilteredFrame
	dataCh   chan ring.WindowIndex

	runFlagWarned atomic.Bool
}

// New creates a Context with its process-wide gain baseline and
// calibration controller (both persist across Start/Stop cycles, matching
// the original's module-level static state).
func New(cfg config.Config) *Context {
	cfg.Validate()
	return &Context{
		cfg:          cfg,
		gainBaseline: &gain.Baseline{},
		calibrator:   &calib.Controller{},
	}
}

// SetCallbacks registers the filtered-frame and radar-info callbacks.
func (c *Context) SetCallbacks(filtered FilteredCallback, radar RadarCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filteredCB = filtered
	c.radarCB = radar
}

// GetConfig returns a copy of the current configuration.
func (c *Context) GetConfig() config.Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// Start allocates the ring buffer and queues and launches the
// pre-processing and detection workers, matching esp_radar_start. A
// second call while already running is a no-op (matching the original's
// early return).
func (c *Context) Start() error {
	if c.running.Load() {
		return nil
	}

	c.mu.Lock()
	cfg := c.cfg
	c.mu.Unlock()

	c.ringBuf = ring.New(cfg.CSIHandleTimeMS, cfg.CSIRecvIntervalMS, float32(cfg.OutliersThreshold))
	c.detector = detect.New(cfg.PCAWindowSize)
	c.stopCh = make(chan struct{})
	c.infoCh = make(chan *frameproc.FilteredFrame, csiInfoQueueDepth)
	c.dataCh = make(chan ring.WindowIndex, csiDataQueueDepth)
	atomic.StoreUint64(&c.seq, 0)
	c.runFlagWarned.Store(false)
	c.running.Store(true)

	telemetry.Infof("radar started: recv_interval=%dms handle_time=%dms handle_window=%d buff_size=%d",
		cfg.CSIRecvIntervalMS, cfg.CSIHandleTimeMS, c.ringBuf.HandleWindow(), c.ringBuf.Capacity())

	c.wg.Add(2)
	go c.preprocessingWorker(cfg)
	go c.detectionWorker(cfg)

	return nil
}

// Stop signals both workers to exit, waits for them, and drains and frees
// any frames still queued, matching esp_radar_stop's shutdown order:
// workers exit, then queues are drained, then the ring buffer is freed.
func (c *Context) Stop() {
	if !c.running.Swap(false) {
		return
	}

	close(c.stopCh)
	c.wg.Wait()

	drainFrames(c.infoCh)
	c.infoCh = nil
	drainWindows(c.dataCh)
	c.dataCh = nil

	c.ringBuf = nil
	telemetry.Infof("radar stopped")
}

// Deinit releases the engine entirely; after Deinit a fresh Context must
// be created before radar functions can be used again, matching
// esp_radar_deinit.
func (c *Context) Deinit() {
	c.Stop()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gainBaseline.Reset()
	c.calibrator.TrainRemove()
}

// ChangeConfig stops the engine (if running), applies cfg, and restarts
// it, matching esp_radar_change_config's stop -> apply -> restart
// semantics. Only meant to be called with the engine already started at
// least once.
func (c *Context) ChangeConfig(cfg config.Config) error {
	wasRunning := c.running.Load()
	if wasRunning {
		c.Stop()
	}

	cfg.Validate()
	c.mu.Lock()
	c.cfg = cfg
	c.mu.Unlock()

	if wasRunning {
		return c.Start()
	}
	return nil
}

// TrainStart begins calibration, also resetting the detector's rolling
// PCA history (matching esp_radar_train_start's reset of
// s_pca_subcarrier_buff_num).
func (c *Context) TrainStart() {
	c.calibrator.TrainStart()
	if c.detector != nil {
		c.detector.Reset()
	}
}

// TrainRemove discards all calibration data.
func (c *Context) TrainRemove() { c.calibrator.TrainRemove() }

// ForceGain sets (or, with en=false, releases) a forced AGC/FFT gain pair
// on the gain baseline, matching esp_radar_set_rx_force_gain. The force-gain
// value itself is only a visible flag toward the force-gain collaborator
// (§6); it is this Context's callers who are expected to push it out over
// that collaborator's serial/register interface.
func (c *Context) ForceGain(en bool, agc uint8, fft int8) error {
	return c.gainBaseline.ForceGain(en, agc, fft)
}

// ForceGainStatus reports the current force-gain flag and its values.
func (c *Context) ForceGainStatus() (enabled bool, agc uint8, fft int8) {
	return c.gainBaseline.ForceGainStatus()
}

// TrainStop finalises calibration and returns the derived thresholds.
func (c *Context) TrainStop() (wanderThreshold, jitterThreshold float32, err error) {
	return c.calibrator.TrainStop()
}

// Ingest classifies, rebuilds and gain-compensates one raw CSI packet and
// hands it to the pre-processing worker, matching
// esp_radar_csi_rx_cb. It is safe to call from any goroutine (e.g. a
// packet-source callback).
func (c *Context) Ingest(raw RawFrame) error {
	c.mu.Lock()
	cfg := c.cfg
	cb := c.filteredCB
	c.mu.Unlock()

	if !macPasses(cfg, raw) {
		return nil
	}

	row, err := layout.Classify(len(raw.Raw), raw.Rx, cfg.LLTF12BitOnly)
	if err != nil {
		return err
	}

	dt := frameproc.DataType8Bit
	if cfg.LLTF12BitOnly {
		dt = frameproc.DataType12BitPacked
	}

	frame, err := frameproc.Rebuild(raw.Raw, row, dt)
	if err != nil {
		return err
	}
	frame.Rx = raw.Rx
	frame.SrcMAC = raw.SrcMAC
	frame.DstMAC = raw.DstMAC
	frame.SeqID = atomic.AddUint64(&c.seq, 1) - 1

	c.gainBaseline.Record(raw.Rx.AGCGain, raw.Rx.FFTGain)
	if cfg.CSICompensateEn {
		bits := 8
		if dt == frameproc.DataType12BitPacked {
			bits = 16
		}
		gainFactor, gerr := c.gainBaseline.Compensate(frame.Samples, raw.Rx.AGCGain, raw.Rx.FFTGain, bits)
		if gerr == nil {
			frame.GainCompensation = gainFactor
		}
	}

	if cb != nil {
		cb(frame)
	}

	if !c.running.Load() {
		if !c.runFlagWarned.Swap(true) {
			telemetry.Warnf("radar not running, CSI data dropped")
		}
		return nil
	}

	select {
	case c.infoCh <- frame:
	default:
		telemetry.Warnf("failed to send CSI data to queue, data dropped")
	}
	return nil
}

// macPasses implements esp_radar_mac_addr_filter: an all-0xff filter_mac
// accepts everything; an all-zero filter_mac accepts only payload-len-14
// null-data frames (the WIFI_CSI_SEND_NULL_DATA_ENABLE path); any other
// value requires an exact source-MAC match. filter_dmac_flag additionally
// requires an exact destination-MAC match.
func macPasses(cfg config.Config, raw RawFrame) bool {
	isFull := addrIsFull(cfg.FilterMAC)
	isEmpty := addrIsEmpty(cfg.FilterMAC)

	switch {
	case isFull:
		// no source filtering
	case isEmpty:
		if raw.PayloadLen != 14 {
			return false
		}
	default:
		if raw.SrcMAC != cfg.FilterMAC {
			return false
		}
	}

	if cfg.FilterDMACFlag && raw.DstMAC != cfg.FilterDMAC {
		return false
	}
	return true
}

func addrIsFull(mac [6]byte) bool {
	var and byte = 0xff
	for _, b := range mac {
		and &= b
	}
	return and == 0xff
}

func addrIsEmpty(mac [6]byte) bool {
	var or byte
	for _, b := range mac {
		or |= b
	}
	return or == 0
}

// drainFrames empties ch without blocking, matching esp_radar_stop's
// queue-draining loop (held frames are simply let go of here; Go's GC
// reclaims them, unlike the original's explicit RADAR_FREE).
func drainFrames(ch chan *frameproc.FilteredFrame) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

func drainWindows(ch chan ring.WindowIndex) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

func ltfType(cfg config.Config) frameproc.LTFType {
	switch cfg.LTFType {
	case config.LTFTypeLLTF:
		return frameproc.LTFTypeLLTF
	case config.LTFTypeSTBCHTLTF:
		return frameproc.LTFTypeSTBCHTLTF
	case config.LTFTypeHELTF:
		return frameproc.LTFTypeHELTF
	case config.LTFTypeSTBCHELTF:
		return frameproc.LTFTypeSTBCHELTF
	default:
		return frameproc.LTFTypeHTLTF
	}
}

// preprocessingWorker mirrors csi_preprocessing_task: converts each
// frame's LTF segment to amplitude, writes it into the ring, runs the
// outlier filter, and emits a window index when the window-update policy
// says one is ready.
func (c *Context) preprocessingWorker(cfg config.Config) {
	defer c.wg.Done()
	lt := ltfType(cfg)

	for {
		select {
		case <-c.stopCh:
			return
		case frame, ok := <-c.infoCh:
			if !ok {
				return
			}
			c.processFrame(cfg, lt, frame)
		}
	}
}

func (c *Context) processFrame(cfg config.Config, lt frameproc.LTFType, frame *frameproc.FilteredFrame) {
	segment, err := frame.Segment(lt)
	if err != nil {
		return
	}

	amplitude := ring.ComputeAmplitude(segment, cfg.SubCarrierStepSize)

	if err := c.ringBuf.Write(uint32(frame.SeqID), frame.Rx.TimestampUS/1000, amplitude); err != nil {
		telemetry.Errorf("frame dropped: %s", err)
		return
	}

	// Outlier() is telemetry/streak bookkeeping only; the window-update
	// policy below always runs regardless of its verdict, matching
	// csi_outlier_filter_process's every return path feeding into
	// csi_window_update unconditionally.
	if c.ringBuf.Outlier() {
		telemetry.Debugf("frame rejected as outlier, streak not yet 3")
	}

	idx, ready := c.ringBuf.Advance()
	if !ready {
		return
	}

	select {
	case c.dataCh <- idx:
	default:
	}
}

// detectionWorker mirrors csi_detection_task: runs PCA over each ready
// window, folds the result into the jitter history, asks the calibration
// controller for wander (and, while training, lets it fold in this
// window's sample), then delivers the final RadarInfo.
func (c *Context) detectionWorker(cfg config.Config) {
	defer c.wg.Done()

	for {
		select {
		case <-c.stopCh:
			return
		case idx, ok := <-c.dataCh:
			if !ok {
				return
			}
			c.processWindow(idx)
		}
	}
}

func (c *Context) processWindow(idx ring.WindowIndex) {
	cols := c.ringBuf.SubcarrierLen()
	if cols == 0 {
		return
	}

	first, second := c.ringBuf.Split(idx)
	res, err := c.detector.Process(cols, first, second)
	if err != nil {
		if errs.Is(err, errs.PcaDivergence) {
			telemetry.Warnf("PCA calculation failed, skipping window")
		}
		return
	}

	c.calibrator.CheckSubcarrierLen(cols)
	rawWander := c.calibrator.ComputeWander(res.PCA, pca.Correlation)

	if c.calibrator.Status() == calib.StatusCollecting && c.detector.NumComputed() >= 2 {
		rawWander = c.calibrator.CollectSample(res.CorrHistory, rawWander, c.detector.Previous())
	}

	info := RadarInfo{
		WaveformJitter: res.Jitter,
		WaveformWander: 1.0 - rawWander,
	}

	c.mu.Lock()
	cb := c.radarCB
	c.mu.Unlock()
	if cb != nil {
		cb(info)
	}
}
