package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once sync.Once

	queueDepth      prom.Gauge
	fired           *prom.CounterVec
	resolverErrors  *prom.CounterVec
	dispatchLatency prom.Histogram
	dispatcherState *prom.GaugeVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics
// (idempotent per instance) against reg, creating a fresh registry when reg
// is nil.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.queueDepth = prom.NewGauge(prom.GaugeOpts{
			Namespace: "stitchcron",
			Name:      "queue_depth",
			Help:      "Number of schedules currently pending dispatch",
		})
		pr.fired = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "stitchcron",
			Name:      "fires_total",
			Help:      "Total schedule fires, by schedule id",
		}, []string{"schedule_id"})
		pr.resolverErrors = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "stitchcron",
			Name:      "resolver_errors_total",
			Help:      "Total resolver failures, by error category",
		}, []string{"category"})
		pr.dispatchLatency = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "stitchcron",
			Name:      "dispatch_latency_seconds",
			Help:      "Time between a schedule's deadline and its actual dispatch",
			Buckets:   prom.DefBuckets,
		})
		pr.dispatcherState = prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: "stitchcron",
			Name:      "dispatcher_state",
			Help:      "1 for the dispatcher's current state, 0 otherwise",
		}, []string{"state"})
		reg.MustRegister(pr.queueDepth, pr.fired, pr.resolverErrors, pr.dispatchLatency, pr.dispatcherState)
	})
	return pr
}

func (p *PrometheusRecorder) SetQueueDepth(n int) {
	if p == nil || p.queueDepth == nil {
		return
	}
	p.queueDepth.Set(float64(n))
}

func (p *PrometheusRecorder) IncFired(scheduleID string) {
	if p == nil || p.fired == nil {
		return
	}
	p.fired.WithLabelValues(scheduleID).Inc()
}

func (p *PrometheusRecorder) IncResolverError(category string) {
	if p == nil || p.resolverErrors == nil {
		return
	}
	p.resolverErrors.WithLabelValues(category).Inc()
}

func (p *PrometheusRecorder) ObserveDispatchLatency(d time.Duration) {
	if p == nil || p.dispatchLatency == nil {
		return
	}
	p.dispatchLatency.Observe(d.Seconds())
}

// SetDispatcherState sets state's gauge to 1 and every other known state to
// 0, so a single Prometheus query (`stitchcron_dispatcher_state == 1`) names
// the current state.
func (p *PrometheusRecorder) SetDispatcherState(state string) {
	if p == nil || p.dispatcherState == nil {
		return
	}
	for _, s := range []string{"created", "running", "suspended"} {
		if s == state {
			p.dispatcherState.WithLabelValues(s).Set(1)
		} else {
			p.dispatcherState.WithLabelValues(s).Set(0)
		}
	}
}
