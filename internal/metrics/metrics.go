package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "smarthive"

var (
	once sync.Once

	bookingAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "amenity_booking_attempts_total",
			Help:      "Amenity booking attempts by amenity and outcome.",
		},
		[]string{"amenity", "outcome"},
	)

	visitorRequests = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "visitor_requests_submitted_total",
			Help:      "Unknown-visitor requests submitted at the gate.",
		},
	)

	visitorDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "visitor_decisions_total",
			Help:      "Resident decisions over visitor requests by result.",
		},
		[]string{"decision", "result"},
	)

	broadcastDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_deliveries_total",
			Help:      "Real-time events delivered to or dropped for subscribers.",
		},
		[]string{"event", "result"},
	)

	dispatchedTasks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatched_tasks_total",
			Help:      "Detached side-effect tasks by kind and result.",
		},
		[]string{"kind", "result"},
	)

	emailsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_total",
			Help:      "Outbound emails by template and result.",
		},
		[]string{"template", "result"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			bookingAttempts,
			visitorRequests,
			visitorDecisions,
			broadcastDeliveries,
			dispatchedTasks,
			emailsSent,
		)
	})
}

func IncBookingAttempt(amenity, outcome string) {
	bookingAttempts.WithLabelValues(amenity, outcome).Inc()
}

func IncVisitorRequest() {
	visitorRequests.Inc()
}

func IncVisitorDecision(decision, result string) {
	visitorDecisions.WithLabelValues(decision, result).Inc()
}

// ObserveDelivery matches realtime.DeliveryObserver
func ObserveDelivery(event string, delivered, dropped int) {
	broadcastDeliveries.WithLabelValues(event, "delivered").Add(float64(delivered))
	broadcastDeliveries.WithLabelValues(event, "dropped").Add(float64(dropped))
}

func IncDispatchedTask(kind, result string) {
	dispatchedTasks.WithLabelValues(kind, result).Inc()
}

func IncEmail(template, result string) {
	emailsSent.WithLabelValues(template, result).Inc()
}
