package report

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var invariantViolations = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "finledger",
		Name:      "invariant_violations_total",
		Help:      "Accounting invariant violations detected while building reports",
	},
	[]string{"report"},
)
