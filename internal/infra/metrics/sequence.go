package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(sequenceAllocationsTotal) }

var sequenceAllocationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "sequence_allocations_total",
		Help: "Sequence number allocations per destination, labeled by success.",
	},
	[]string{"destination", "success"},
)

func IncSequenceAllocation(destination string, success bool) {
	sequenceAllocationsTotal.WithLabelValues(norm(destination), strconv.FormatBool(success)).Inc()
}
