package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(submissionsReceivedTotal, publishesTotal)
}

var (
	submissionsReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "submissions_received_total",
			Help: "Inbound submissions by media kind.",
		},
		[]string{"kind"},
	)

	publishesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "publishes_total",
			Help: "Publish attempts by kind and status (published/failed/aborted/rejected).",
		},
		[]string{"kind", "status"},
	)
)

func IncSubmission(kind string) {
	submissionsReceivedTotal.WithLabelValues(norm(kind)).Inc()
}

func IncPublish(kind, status string) {
	publishesTotal.WithLabelValues(norm(kind), norm(status)).Inc()
}
