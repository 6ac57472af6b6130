package metrics

import "github.com/prometheus/client_golang/prometheus"

// CoreMetrics counts the ordering flow's hot paths.
type CoreMetrics struct {
	orderSubmissions *prometheus.CounterVec
	orderTransitions *prometheus.CounterVec
	claimAttempts    *prometheus.CounterVec
	hubPublished     *prometheus.CounterVec
	hubDropped       *prometheus.CounterVec
}

// NewCoreMetrics registers the platform counters on the provided registerer.
func NewCoreMetrics(reg prometheus.Registerer) *CoreMetrics {
	if reg == nil {
		return &CoreMetrics{}
	}
	orderSubmissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_submissions_total",
		Help: "Order submission attempts by outcome.",
	}, []string{"outcome"})
	orderTransitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_total",
		Help: "Order lifecycle transitions by target status and outcome.",
	}, []string{"status", "outcome"})
	claimAttempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "delivery_claim_attempts_total",
		Help: "Delivery claim attempts by outcome.",
	}, []string{"outcome"})
	hubPublished := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hub_events_published_total",
		Help: "Events fanned out to hub subscribers.",
	}, []string{"kind"})
	hubDropped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hub_events_dropped_total",
		Help: "Events dropped because a subscriber buffer was full.",
	}, []string{"kind"})
	reg.MustRegister(orderSubmissions, orderTransitions, claimAttempts, hubPublished, hubDropped)
	return &CoreMetrics{
		orderSubmissions: orderSubmissions,
		orderTransitions: orderTransitions,
		claimAttempts:    claimAttempts,
		hubPublished:     hubPublished,
		hubDropped:       hubDropped,
	}
}

// IncOrderSubmission counts an order submission attempt.
func (m *CoreMetrics) IncOrderSubmission(outcome string) {
	if m == nil || m.orderSubmissions == nil {
		return
	}
	m.orderSubmissions.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncOrderTransition counts a lifecycle transition.
func (m *CoreMetrics) IncOrderTransition(status, outcome string) {
	if m == nil || m.orderTransitions == nil {
		return
	}
	m.orderTransitions.WithLabelValues(normalizeLabel(status), normalizeLabel(outcome)).Inc()
}

// IncClaimAttempt counts a delivery claim attempt.
func (m *CoreMetrics) IncClaimAttempt(outcome string) {
	if m == nil || m.claimAttempts == nil {
		return
	}
	m.claimAttempts.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncHubPublished counts an event delivered into a subscriber channel.
func (m *CoreMetrics) IncHubPublished(kind string) {
	if m == nil || m.hubPublished == nil {
		return
	}
	m.hubPublished.WithLabelValues(normalizeLabel(kind)).Inc()
}

// IncHubDropped counts an event discarded for a lagging subscriber.
func (m *CoreMetrics) IncHubDropped(kind string) {
	if m == nil || m.hubDropped == nil {
		return
	}
	m.hubDropped.WithLabelValues(normalizeLabel(kind)).Inc()
}
