package auth

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes auth counters to Prometheus. It doubles as an ActivitySink.
type Metrics struct {
	events *prometheus.CounterVec
	mail   *prometheus.CounterVec
	tokens *prometheus.CounterVec
}

var _ ActivitySink = (*Metrics)(nil)

// NewMetrics registers the auth collectors with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "edutrial",
			Subsystem: "auth",
			Name:      "events_total",
			Help:      "Auth activity events by type and outcome.",
		}, []string{"event", "outcome"}),
		mail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "edutrial",
			Subsystem: "auth",
			Name:      "mail_total",
			Help:      "Verification mails by dispatch outcome.",
		}, []string{"outcome"}),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "edutrial",
			Subsystem: "auth",
			Name:      "token_validations_total",
			Help:      "Bearer token validations by result.",
		}, []string{"result"}),
	}

	if reg != nil {
		reg.MustRegister(m.events, m.mail, m.tokens)
	}
	return m
}

// Record implements ActivitySink
func (m *Metrics) Record(_ context.Context, event ActivityEvent) error {
	m.events.WithLabelValues(string(event.EventType), event.Outcome()).Inc()
	return nil
}

// ObserveMail counts a mail dispatch outcome: sent, failed or rejected
func (m *Metrics) ObserveMail(outcome string) {
	m.mail.WithLabelValues(outcome).Inc()
}

// ObserveTokenValidation counts a bearer token check. A nil error counts as valid.
func (m *Metrics) ObserveTokenValidation(err error) {
	result := "valid"
	if err != nil {
		result = string(CodeOf(err))
	}
	m.tokens.WithLabelValues(result).Inc()
}
