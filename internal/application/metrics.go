package application

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	flowTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_flow_total",
		Help: "Authentication flows by outcome.",
	}, []string{"flow", "outcome"})

	rateLimitedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_rate_limited_total",
		Help: "Requests rejected by admission control.",
	}, []string{"action"})

	emailDispatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_email_dispatch_total",
		Help: "Notification emails by kind and outcome.",
	}, []string{"kind", "outcome"})
)

func observe(flow string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	flowTotal.WithLabelValues(flow, outcome).Inc()
}
