package search

import (
	"context"

	"github.com/google/uuid"
)

// Document is the plain-text projection of a published version or one of its translations.
type Document struct {
	TenantID      uuid.UUID `json:"tenantId"`
	PolicyID      uuid.UUID `json:"policyId"`
	VersionID     uuid.UUID `json:"versionId"`
	TranslationID uuid.UUID `json:"translationId,omitempty"`
	Language      string    `json:"language"`
	Slug          string    `json:"slug"`
	Title         string    `json:"title"`
	Version       int       `json:"version"`
	PlainText     string    `json:"plainText"`
}

type Indexer interface {
	Index(ctx context.Context, doc Document) error
	RemovePolicy(ctx context.Context, tenantID, policyID uuid.UUID) error
}
