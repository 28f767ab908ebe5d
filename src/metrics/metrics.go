// Package metrics records session outcomes in Prometheus collectors.
//
// A nil *Recorder is valid and records nothing, so callers never need to
// check whether metrics are enabled.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for sessions.
const (
	OutcomeReply     = "reply"     // payload delivered on the data connection
	OutcomeError     = "error"     // error reply sent on the control connection
	OutcomeAbandoned = "abandoned" // no reply could be delivered
)

type Recorder struct {
	sessions         *prometheus.CounterVec
	bytesSent        *prometheus.CounterVec
	sessionDuration  prometheus.Histogram
	dataDialFailures prometheus.Counter
}

// NewRecorder registers the ftserve collectors with reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	return &Recorder{
		sessions: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ftserve_sessions_total",
				Help: "Control connections served, by request mode and outcome",
			},
			[]string{"mode", "outcome"},
		),
		bytesSent: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ftserve_body_bytes_sent_total",
				Help: "Response body bytes sent, by response mode",
			},
			[]string{"mode"},
		),
		sessionDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name: "ftserve_session_duration_seconds",
				Help: "Time from accept to closing the control connection",
				Buckets: []float64{
					0.001, // 1ms - error replies
					0.01,
					0.1,
					1,
					10,
					60, // large files over slow links
				},
			},
		),
		dataDialFailures: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "ftserve_data_dial_failures_total",
				Help: "Data connections to clients that could not be opened",
			},
		),
	}
}

// ObserveSession records one finished session.
func (r *Recorder) ObserveSession(mode, outcome string, duration time.Duration) {
	if r == nil {
		return
	}
	r.sessions.WithLabelValues(mode, outcome).Inc()
	r.sessionDuration.Observe(duration.Seconds())
}

// ObserveBytesSent records a response body that was fully written.
func (r *Recorder) ObserveBytesSent(mode string, n int) {
	if r == nil {
		return
	}
	r.bytesSent.WithLabelValues(mode).Add(float64(n))
}

func (r *Recorder) DataDialFailed() {
	if r == nil {
		return
	}
	r.dataDialFailures.Inc()
}

// Handler exposes the collectors registered in reg.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}
