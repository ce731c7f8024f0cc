// Package telemetry is the core's logging surface: one call per notable
// event, with severity chosen up front by the caller, backed by
// github.com/charmbracelet/log.
package telemetry

import (
	"os"
	"sync"

	"github.com/charmbracelet/log"
)

var (
	mu  sync.Mutex
	lgr = log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "radar",
	})
)

// SetLevel adjusts the minimum severity that reaches the output.
func SetLevel(level log.Level) {
	mu.Lock()
	defer mu.Unlock()
	lgr.SetLevel(level)
}

// Debugf logs a dropped-frame / skipped-window style event: classification
// and layout failures are dropped and logged at this level rather than
// treated as fatal.
func Debugf(format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	lgr.Debugf(format, args...)
}

// Infof logs a lifecycle or calibration milestone.
func Infof(format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	lgr.Infof(format, args...)
}

// Warnf logs a recoverable anomaly: a discontinuity in the CSI stream, a
// short window skipped, a frame dropped on a full queue.
func Warnf(format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	lgr.Warnf(format, args...)
}

// Errorf logs something the caller should be told about via the error
// return too; this is for cases (e.g. OOM) where a human should notice.
func Errorf(format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	lgr.Errorf(format, args...)
}
