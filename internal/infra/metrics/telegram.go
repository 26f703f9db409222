package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		telegramUpdatesReceivedTotal,
		telegramRateLimitTriggeredTotal,
		grantsExpiredTotal,
	)
}

var (
	telegramUpdatesReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_updates_received_total",
			Help: "Incoming updates by type (command/submission/other).",
		},
		[]string{"type"},
	)

	telegramRateLimitTriggeredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "telegram_rate_limit_triggered_total",
			Help: "Total number of times submitters have been rate-limited.",
		},
	)

	grantsExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "grants_expired_total",
			Help: "Publishing grants deactivated by the expiry worker.",
		},
	)
)

func IncTelegramUpdate(kind string) {
	telegramUpdatesReceivedTotal.WithLabelValues(norm(kind)).Inc()
}

func IncRateLimitTriggered() {
	telegramRateLimitTriggeredTotal.Inc()
}

func IncGrantsExpired(n int) {
	grantsExpiredTotal.Add(float64(n))
}
