package handlers

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/compliance-sdk/modules/policy/domain/aggregates/policy"
	"github.com/iota-uz/compliance-sdk/modules/policy/domain/entities/translation"
	"github.com/iota-uz/compliance-sdk/modules/policy/domain/events"
	"github.com/iota-uz/compliance-sdk/modules/policy/domain/search"
	"github.com/iota-uz/compliance-sdk/pkg/eventbus"
)

const reindexPage = 200

// SearchProjection keeps the search index in step with published content.
type SearchProjection struct {
	Indexer      search.Indexer
	Policies     policy.Repository
	Versions     policy.VersionRepository
	Translations translation.Repository
	Logger       *logrus.Logger
}

func RegisterSearchHandlers(bus eventbus.EventBus, p *SearchProjection) {
	listen(bus, p.Logger, "policy.search.index_published", p.OnPublished)
	listen(bus, p.Logger, "policy.search.remove_retired", p.OnRetired)
	listen(bus, p.Logger, "policy.search.index_translation_created", func(ctx context.Context, e events.TranslationCreated) error {
		return p.indexTranslation(ctx, e.TenantID, e.Translation)
	})
	listen(bus, p.Logger, "policy.search.index_translation_updated", func(ctx context.Context, e events.TranslationUpdated) error {
		return p.indexTranslation(ctx, e.TenantID, e.Translation)
	})
}

func (p *SearchProjection) OnPublished(ctx context.Context, e events.Published) error {
	return p.Indexer.Index(ctx, versionDocument(&e.Policy, &e.Version))
}

func (p *SearchProjection) OnRetired(ctx context.Context, e events.Retired) error {
	return p.Indexer.RemovePolicy(ctx, e.TenantID, e.Policy.ID)
}

func (p *SearchProjection) indexTranslation(ctx context.Context, tenantID uuid.UUID, t translation.Translation) error {
	v, err := p.Versions.GetByID(ctx, tenantID, t.VersionID)
	if err != nil {
		return fmt.Errorf("load version %s: %w", t.VersionID, err)
	}
	pol, err := p.Policies.GetByID(ctx, tenantID, v.PolicyID)
	if err != nil {
		return fmt.Errorf("load policy %s: %w", v.PolicyID, err)
	}
	return p.Indexer.Index(ctx, translationDocument(pol, v, &t))
}

// Reindex rebuilds the documents of every non-retired published policy of the tenant
// from its latest version. It returns how many documents were written.
func (p *SearchProjection) Reindex(ctx context.Context, tenantID uuid.UUID) (int, error) {
	written := 0
	for offset := 0; ; offset += reindexPage {
		page, total, err := p.Policies.List(ctx, tenantID, policy.FindParams{Limit: reindexPage, Offset: offset})
		if err != nil {
			return written, err
		}
		for _, pol := range page {
			n, err := p.reindexPolicy(ctx, pol)
			written += n
			if err != nil {
				return written, fmt.Errorf("reindex policy %s: %w", pol.ID, err)
			}
		}
		if len(page) == 0 || offset+len(page) >= total {
			return written, nil
		}
	}
}

func (p *SearchProjection) reindexPolicy(ctx context.Context, pol *policy.Policy) (int, error) {
	if err := p.Indexer.RemovePolicy(ctx, pol.TenantID, pol.ID); err != nil {
		return 0, err
	}
	if pol.Status == policy.StatusRetired || pol.CurrentVersion == 0 {
		return 0, nil
	}
	v, err := p.Versions.GetLatest(ctx, pol.TenantID, pol.ID)
	if err != nil {
		return 0, err
	}
	if err := p.Indexer.Index(ctx, versionDocument(pol, v)); err != nil {
		return 0, err
	}
	written := 1
	translations, err := p.Translations.ListByVersion(ctx, pol.TenantID, v.ID)
	if err != nil {
		return written, err
	}
	for _, t := range translations {
		if err := p.Indexer.Index(ctx, translationDocument(pol, v, t)); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

func versionDocument(pol *policy.Policy, v *policy.Version) search.Document {
	return search.Document{
		TenantID:  pol.TenantID,
		PolicyID:  pol.ID,
		VersionID: v.ID,
		Slug:      pol.Slug,
		Title:     pol.Title,
		Version:   v.Version,
		PlainText: v.PlainText,
	}
}

func translationDocument(pol *policy.Policy, v *policy.Version, t *translation.Translation) search.Document {
	doc := versionDocument(pol, v)
	doc.TranslationID = t.ID
	doc.Language = t.LanguageCode
	doc.Title = t.Title
	doc.PlainText = t.PlainText
	return doc
}
