package coordinator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	assignmentsCommitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shiftsync_assignments_committed_total",
		Help: "Assignments committed after passing the constraint chain.",
	})
	assignmentsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shiftsync_assignments_rejected_total",
		Help: "Assignments rejected by the constraint chain, by failing rule.",
	}, []string{"rule"})
	contentionDetected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shiftsync_contention_detected_total",
		Help: "Assignment attempts that lost an exclusive-section race.",
	})
)
