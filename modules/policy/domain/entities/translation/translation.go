package translation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

type Origin string

const (
	OriginAI    Origin = "AI"
	OriginHuman Origin = "HUMAN"
)

type ReviewStatus string

const (
	ReviewPending       ReviewStatus = "PENDING_REVIEW"
	ReviewApproved      ReviewStatus = "APPROVED"
	ReviewNeedsRevision ReviewStatus = "NEEDS_REVISION"
	ReviewPublished     ReviewStatus = "PUBLISHED"
)

func (s ReviewStatus) IsValid() bool {
	switch s {
	case ReviewPending, ReviewApproved, ReviewNeedsRevision, ReviewPublished:
		return true
	}
	return false
}

var (
	ErrTranslationNotFound = errors.New("translation not found")
	ErrDuplicateLanguage   = errors.New("translation for this language already exists")
)

// Translation is a per-language rendering pinned to one immutable policy version.
type Translation struct {
	ID           uuid.UUID
	VersionID    uuid.UUID
	TenantID     uuid.UUID
	LanguageCode string
	Title        string
	Content      string
	PlainText    string
	TranslatedBy Origin
	AIModel      string
	ReviewStatus ReviewStatus
	IsStale      bool
	ReviewedAt   *time.Time
	ReviewedByID *uuid.UUID
	ReviewNotes  string
	CreatedByID  uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ClearReview drops reviewer metadata after the content changed materially.
func (t *Translation) ClearReview() {
	t.ReviewStatus = ReviewPending
	t.ReviewedAt = nil
	t.ReviewedByID = nil
	t.ReviewNotes = ""
}

type Repository interface {
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Translation, error)
	// GetForUpdate is GetByID holding a row lock until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*Translation, error)
	// GetByLanguage returns ErrTranslationNotFound when the version has no such language.
	GetByLanguage(ctx context.Context, tenantID, versionID uuid.UUID, languageCode string) (*Translation, error)
	ListByVersion(ctx context.Context, tenantID, versionID uuid.UUID) ([]*Translation, error)
	Create(ctx context.Context, t *Translation) error
	Update(ctx context.Context, t *Translation) error
	// MarkStale flags every not-yet-stale translation of the version and returns their ids.
	MarkStale(ctx context.Context, tenantID, versionID uuid.UUID) ([]uuid.UUID, error)
}
