package notifier

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// NotificationsTotal tracks delivery attempts by channel and outcome.
var NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "kalshi_edge_notifications_total",
	Help: "Total notification deliveries by channel and outcome",
}, []string{"channel", "outcome"})
