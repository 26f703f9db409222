package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once       sync.Once
	collectors []prometheus.Collector
)

// register is called by init() in each metrics file to enqueue collectors.
func register(cs ...prometheus.Collector) {
	collectors = append(collectors, cs...)
}

// MustRegister registers every enqueued collector with the default registry, once per process.
func MustRegister() {
	once.Do(func() {
		if err := RegisterTo(prometheus.DefaultRegisterer); err != nil {
			panic(err)
		}
	})
}

// RegisterTo registers the publisher's collectors with reg and stops at the first failure.
func RegisterTo(reg prometheus.Registerer) error {
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// norm lower-cases label values so "Photo" and "photo" share a series.
func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
