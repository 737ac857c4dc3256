package signal

import (
	"sync"
	"time"
)

// MetricsRecorder defines metrics hooks for signal operations. A publish is
// recorded once per dispatch, a delivery once per successfully invoked
// subscriber.
type MetricsRecorder interface {
	RecordPublish(signal string, mode string)
	RecordDelivery(signal string, mode string)
	RecordError(signal string, reason string)
	ObserveSubscribers(signal string, count int)
	ObservePublishDuration(signal string, mode string, d time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) RecordPublish(signal string, mode string)                            {}
func (nopMetrics) RecordDelivery(signal string, mode string)                           {}
func (nopMetrics) RecordError(signal string, reason string)                            {}
func (nopMetrics) ObserveSubscribers(signal string, count int)                         {}
func (nopMetrics) ObservePublishDuration(signal string, mode string, d time.Duration)  {}

var (
	metricsMu sync.RWMutex
	metrics   MetricsRecorder = nopMetrics{}
)

// SetMetricsRecorder sets the package-level signal metrics recorder. Passing
// nil restores the no-op recorder.
func SetMetricsRecorder(recorder MetricsRecorder) {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	if recorder == nil {
		metrics = nopMetrics{}
		return
	}
	metrics = recorder
}

func metricsRecorder() MetricsRecorder {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return metrics
}
