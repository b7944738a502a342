package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iota-uz/compliance-sdk/modules/policy/domain/aggregates/policy"
)

var (
	policyTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "policy",
		Subsystem: "lifecycle",
		Name:      "transitions_total",
		Help:      "Total number of policy status transitions broken down by from/to status.",
	}, []string{"from", "to"})

	policyPublishes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "policy",
		Subsystem: "lifecycle",
		Name:      "publishes_total",
		Help:      "Total number of policy versions published.",
	})

	policyTranslations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "policy",
		Subsystem: "translation",
		Name:      "operations_total",
		Help:      "Total number of translation operations broken down by operation and result.",
	}, []string{"operation", "result"})
)

// RecordTransition counts a committed status change. Reactive handlers use it too.
func RecordTransition(from, to policy.Status) {
	if from == to {
		return
	}
	policyTransitions.WithLabelValues(string(from), string(to)).Inc()
}

func recordTranslation(operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	policyTranslations.WithLabelValues(operation, result).Inc()
}
