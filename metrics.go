package safedrive

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics instruments one Selector, per SPEC_FULL.md §2.5: counters for
// timer fires by kind and handler removals by cause, a counter of wait()
// calls and signaled exits, and a histogram of time spent inside wait().
// It implements prometheus.Collector directly (grounded on
// eventloop/metrics.go's hook style plus cuemby-warren's use of
// client_golang); registering it with a prometheus.Registry is left to the
// application.
type Metrics struct {
	timerFires      *prometheus.CounterVec
	handlerRemovals *prometheus.CounterVec
	waitCalls       prometheus.Counter
	waitSignals     prometheus.Counter
	waitDurations   prometheus.Histogram
}

func newMetrics() *Metrics {
	return &Metrics{
		timerFires: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "safedrive",
			Subsystem: "selector",
			Name:      "timer_fires_total",
			Help:      "Number of delta-list timer fires, by kind (oneshot or periodic).",
		}, []string{"kind"}),
		handlerRemovals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "safedrive",
			Subsystem: "selector",
			Name:      "handler_removals_total",
			Help:      "Number of Selector registrations removed, by cause (remove, once, error).",
		}, []string{"cause"}),
		waitCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "safedrive",
			Subsystem: "selector",
			Name:      "wait_calls_total",
			Help:      "Number of Selector.Wait invocations.",
		}),
		waitSignals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "safedrive",
			Subsystem: "selector",
			Name:      "wait_signaled_total",
			Help:      "Number of Selector.Wait calls that returned Signaled.",
		}),
		waitDurations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "safedrive",
			Subsystem: "selector",
			Name:      "wait_duration_seconds",
			Help:      "Time spent inside one Selector.Wait call.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.timerFires.Describe(ch)
	m.handlerRemovals.Describe(ch)
	ch <- m.waitCalls.Desc()
	ch <- m.waitSignals.Desc()
	ch <- m.waitDurations.Desc()
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.timerFires.Collect(ch)
	m.handlerRemovals.Collect(ch)
	ch <- m.waitCalls
	ch <- m.waitSignals
	ch <- m.waitDurations
}

func (m *Metrics) timerFired(kind string)     { m.timerFires.WithLabelValues(kind).Inc() }
func (m *Metrics) handlerRemoved(cause string) { m.handlerRemovals.WithLabelValues(cause).Inc() }
func (m *Metrics) waitCalled()                 { m.waitCalls.Inc() }
func (m *Metrics) waitSignaled()               { m.waitSignals.Inc() }
func (m *Metrics) waitDuration(d time.Duration) { m.waitDurations.Observe(d.Seconds()) }

var _ prometheus.Collector = (*Metrics)(nil)
