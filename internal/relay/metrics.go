package relay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var requestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "relaychat_client",
		Name:      "requests_total",
		Help:      "Relay requests by operation and outcome.",
	},
	[]string{"op", "outcome"},
)

// observe counts the outcome of op and returns err unchanged.
func observe(op string, err error) error {
	outcome := "ok"
	switch {
	case err == nil:
	case IsNetworkFailure(err):
		outcome = "network_failure"
	case IsBackendError(err):
		outcome = "backend_error"
	default:
		outcome = "error"
	}
	requestsTotal.WithLabelValues(op, outcome).Inc()
	return err
}
