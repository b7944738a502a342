package handlers

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/compliance-sdk/modules/policy/domain/events"
	"github.com/iota-uz/compliance-sdk/pkg/eventbus"
)

type staleMarker interface {
	MarkPreviousVersionStale(ctx context.Context, tenantID, policyID, actorID uuid.UUID, publishedVersion int) ([]uuid.UUID, error)
}

// RegisterStalenessHandler flags translations of the superseded version whenever a new one is published.
func RegisterStalenessHandler(bus eventbus.EventBus, translations staleMarker, logger *logrus.Logger) {
	listen(bus, logger, "policy.mark_translations_stale", func(ctx context.Context, e events.Published) error {
		_, err := translations.MarkPreviousVersionStale(ctx, e.TenantID, e.Policy.ID, e.ActorID, e.Version.Version)
		return err
	})
}
