package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tbourn/go-complaints-backend/internal/events"
)

// ComplaintMetrics counts lifecycle events. It implements events.Notifier so
// it can sit in the same fan-out as the websocket hub and the broker.
type ComplaintMetrics struct {
	submitted   *prometheus.CounterVec
	transitions *prometheus.CounterVec
}

// NewComplaintMetrics creates the counters and registers them with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewComplaintMetrics(reg prometheus.Registerer) (*ComplaintMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &ComplaintMetrics{
		submitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "complaints_submitted_total",
			Help: "Complaints stored, by assigned category.",
		}, []string{"category"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "complaint_transitions_total",
			Help: "Successful status transitions, by source and target status.",
		}, []string{"from", "to"}),
	}
	for _, c := range []prometheus.Collector{m.submitted, m.transitions} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Notify implements events.Notifier.
func (m *ComplaintMetrics) Notify(_ context.Context, ev events.Event) {
	switch ev.Type {
	case events.ComplaintCreated:
		m.submitted.WithLabelValues(string(ev.Complaint.Category)).Inc()
	case events.ComplaintStatusChanged:
		m.transitions.WithLabelValues(string(ev.From), string(ev.Complaint.Status)).Inc()
	}
}
