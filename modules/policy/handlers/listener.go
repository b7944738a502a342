// Package handlers reacts to workflow and policy events after the originating change committed.
package handlers

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/compliance-sdk/pkg/composables"
	"github.com/iota-uz/compliance-sdk/pkg/eventbus"
)

var listenerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "policy",
	Subsystem: "listener",
	Name:      "failures_total",
	Help:      "Event listener invocations that failed and were swallowed.",
}, []string{"handler"})

// listen subscribes fn under name and swallows its error after logging it.
// Listeners run after the publisher's transaction, so there is nobody to return the error to.
func listen[T eventbus.Event](bus eventbus.EventBus, logger *logrus.Logger, name string, fn func(context.Context, T) error) {
	eventbus.On(bus, name, func(ctx context.Context, event T) error {
		if err := fn(ctx, event); err != nil {
			listenerFailures.WithLabelValues(name).Inc()
			composables.UseLoggerOr(ctx, logger).WithFields(logrus.Fields{
				"handler":    name,
				"event_kind": event.EventKind(),
			}).WithError(err).Error("policy event listener failed")
		}
		return nil
	})
}
