package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(buildInfo, startTime)
}

var (
	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "publisher_build_info",
			Help: "Always 1; labels carry the running version, commit and Go runtime.",
		},
		[]string{"version", "commit", "go_version"},
	)
	startTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "publisher_start_time_seconds",
		Help: "Unix time the publisher process started serving.",
	})
)

// SetBuildInfo is called once from serve.
func SetBuildInfo(version, commit string) {
	buildInfo.WithLabelValues(version, commit, runtime.Version()).Set(1)
	startTime.Set(float64(time.Now().Unix()))
}
