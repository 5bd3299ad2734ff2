// Package metrics exposes the Prometheus collectors that track session,
// PDU and delivery activity across the SMSC.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry bundles every collector the SMSC exports and implements the
// narrow session.Metrics interface so the session package never imports
// Prometheus directly.
type Registry struct {
	sessionsActive    *prometheus.GaugeVec
	pdusTotal         *prometheus.CounterVec
	submitTotal       *prometheus.CounterVec
	deliveryAttempts  *prometheus.CounterVec
	dlrEmittedTotal   prometheus.Counter
	queueDepth        *prometheus.GaugeVec
}

// New registers every collector against reg and returns the bundle. Pass
// prometheus.DefaultRegisterer to expose metrics on the default registry.
func New(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)
	return &Registry{
		sessionsActive: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "smsc_sessions_active",
			Help: "Number of sessions currently in each bind state.",
		}, []string{"bind"}),
		pdusTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "smsc_pdus_total",
			Help: "Total PDUs processed, by command and direction.",
		}, []string{"command", "direction"}),
		submitTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "smsc_submit_total",
			Help: "Total submit_sm requests, by outcome status.",
		}, []string{"status"}),
		deliveryAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "smsc_delivery_attempts_total",
			Help: "Total deliver_sm dispatch attempts, by outcome.",
		}, []string{"outcome"}),
		dlrEmittedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "smsc_dlr_emitted_total",
			Help: "Total delivery receipts generated.",
		}),
		queueDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "smsc_queue_depth",
			Help: "Current backlog length, by queue name.",
		}, []string{"queue"}),
	}
}

// PDUReceived implements session.Metrics.
func (r *Registry) PDUReceived(command string) {
	r.pdusTotal.WithLabelValues(command, "in").Inc()
}

// PDUSent implements session.Metrics.
func (r *Registry) PDUSent(command string) {
	r.pdusTotal.WithLabelValues(command, "out").Inc()
}

// SessionBound implements session.Metrics. kind is the bind state name
// ("BOUND_TX", "BOUND_RX", "BOUND_TRX").
func (r *Registry) SessionBound(kind string) {
	r.sessionsActive.WithLabelValues(kind).Inc()
}

// SessionClosed decrements the active-session gauge for the bind state the
// session held at close time. Call with "" if the session never bound.
func (r *Registry) SessionClosed(kind string) {
	if kind == "" {
		return
	}
	r.sessionsActive.WithLabelValues(kind).Dec()
}

// SubmitResult records a submit_sm outcome under the status label the
// caller chooses (the server uses "ok" and "msg_qfull").
func (r *Registry) SubmitResult(status string) {
	r.submitTotal.WithLabelValues(status).Inc()
}

// DeliveryAttempt records a single deliver_sm dispatch outcome: "delivered",
// "failed", "expired" or "retry".
func (r *Registry) DeliveryAttempt(outcome string) {
	r.deliveryAttempts.WithLabelValues(outcome).Inc()
}

// DLREmitted records a delivery receipt handed back to an ESME.
func (r *Registry) DLREmitted() {
	r.dlrEmittedTotal.Inc()
}

// SetQueueDepth records the current backlog of the named queue
// ("incoming", "outgoing", "events").
func (r *Registry) SetQueueDepth(queue string, depth int) {
	r.queueDepth.WithLabelValues(queue).Set(float64(depth))
}
