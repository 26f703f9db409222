package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(albumSize, albumAnomaliesTotal) }

var (
	albumSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "album_flush_parts",
			Help:    "Number of parts delivered per album flush.",
			Buckets: []float64{1, 2, 3, 4, 5, 6, 8, 10},
		},
	)

	albumAnomaliesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "album_anomalies_total",
			Help: "Late parts and duplicate flushes seen by the album aggregator.",
		},
		[]string{"reason"},
	)
)

func ObserveAlbumSize(parts int) {
	albumSize.Observe(float64(parts))
}

func IncAlbumAnomaly(reason string) {
	albumAnomaliesTotal.WithLabelValues(norm(reason)).Inc()
}
