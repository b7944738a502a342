package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/compliance-sdk/modules/policy/domain/aggregates/policy"
	"github.com/iota-uz/compliance-sdk/modules/policy/domain/entities/translation"
	"github.com/iota-uz/compliance-sdk/modules/policy/domain/events"
	"github.com/iota-uz/compliance-sdk/modules/policy/domain/skills"
	"github.com/iota-uz/compliance-sdk/pkg/composables"
	"github.com/iota-uz/compliance-sdk/pkg/eventbus"
	"github.com/iota-uz/compliance-sdk/pkg/intl"
	"github.com/iota-uz/compliance-sdk/pkg/serrors"
)

// TranslateParams selects the AI path when UseAI is set; otherwise Title and Content are stored as given.
type TranslateParams struct {
	LanguageCode string
	UseAI        bool
	Title        string
	Content      string
}

type UpdateTranslationParams struct {
	Content string
	Title   *string
	Notes   *string
}

// TranslationService manages per-language renderings of immutable policy versions.
type TranslationService struct {
	policies     policy.Repository
	versions     policy.VersionRepository
	translations translation.Repository
	executor     skills.Executor
	tx           composables.Transactor
	publisher    eventbus.EventBus
	logger       *logrus.Logger
	now          func() time.Time
}

func NewTranslationService(
	policies policy.Repository,
	versions policy.VersionRepository,
	translations translation.Repository,
	executor skills.Executor,
	tx composables.Transactor,
	publisher eventbus.EventBus,
	logger *logrus.Logger,
) *TranslationService {
	return &TranslationService{
		policies:     policies,
		versions:     versions,
		translations: translations,
		executor:     executor,
		tx:           tx,
		publisher:    publisher,
		logger:       logger,
		now:          time.Now,
	}
}

// NormalizeLanguage canonicalizes a BCP 47 tag, e.g. "PT_br" becomes "pt-BR".
func NormalizeLanguage(code string) (string, error) {
	lang, err := intl.Canonical(code)
	if errors.Is(err, intl.ErrEmptyCode) {
		return "", serrors.PreconditionFailed(CodeTranslationLanguage, "language code is required")
	}
	if err != nil {
		return "", serrors.New(serrors.KindPreconditionFailed, CodeTranslationLanguage, err.Error(), err)
	}
	return lang, nil
}

func (s *TranslationService) Translate(ctx context.Context, tenantID, versionID, actorID uuid.UUID, params TranslateParams) (_ *translation.Translation, err error) {
	mode := "manual"
	if params.UseAI {
		mode = "ai"
	}
	defer func() { recordTranslation("create_"+mode, err) }()

	lang, err := NormalizeLanguage(params.LanguageCode)
	if err != nil {
		return nil, err
	}
	v, err := s.versions.GetByID(ctx, tenantID, versionID)
	if err != nil {
		return nil, mapNotFound(err, versionID)
	}
	if err := s.ensureNoTranslation(ctx, tenantID, versionID, lang); err != nil {
		return nil, err
	}

	now := s.now()
	t := &translation.Translation{
		ID:           uuid.New(),
		VersionID:    versionID,
		TenantID:     tenantID,
		LanguageCode: lang,
		ReviewStatus: translation.ReviewPending,
		CreatedByID:  actorID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if params.UseAI {
		p, err := s.policies.GetByID(ctx, tenantID, v.PolicyID)
		if err != nil {
			return nil, mapNotFound(err, v.PolicyID)
		}
		title, content, model, err := s.translateVersion(ctx, v, p.Title, lang)
		if err != nil {
			return nil, err
		}
		t.Title, t.Content, t.AIModel = title, content, model
		t.TranslatedBy = translation.OriginAI
	} else {
		if strings.TrimSpace(params.Content) == "" || strings.TrimSpace(params.Title) == "" {
			return nil, serrors.PreconditionFailed(CodeTranslationInput, "manual translation requires both title and content")
		}
		t.Title, t.Content = params.Title, params.Content
		t.TranslatedBy = translation.OriginHuman
	}
	t.PlainText = ExtractPlainText(t.Content)

	err = s.tx.InTx(ctx, tenantID, func(txCtx context.Context) error {
		return s.translations.Create(txCtx, t)
	})
	if errors.Is(err, translation.ErrDuplicateLanguage) {
		return nil, duplicateTranslation(versionID, lang, err)
	}
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, events.TranslationCreated{
		Meta:        events.Meta{TenantID: tenantID, ActorID: actorID},
		PolicyID:    v.PolicyID,
		Translation: *t,
	})
	return t, nil
}

// UpdateTranslation replaces the content. Any human edit makes the translation HUMAN and not stale.
func (s *TranslationService) UpdateTranslation(ctx context.Context, tenantID, id, actorID uuid.UUID, params UpdateTranslationParams) (_ *translation.Translation, err error) {
	defer func() { recordTranslation("update", err) }()

	if strings.TrimSpace(params.Content) == "" {
		return nil, serrors.PreconditionFailed(CodeTranslationInput, "translation content is required")
	}
	var policyID uuid.UUID
	t, err := composables.InTxResult(ctx, s.tx, tenantID, func(txCtx context.Context) (*translation.Translation, error) {
		t, err := s.translations.GetByID(txCtx, tenantID, id)
		if err != nil {
			return nil, mapNotFound(err, id)
		}
		v, err := s.versions.GetByID(txCtx, tenantID, t.VersionID)
		if err != nil {
			return nil, mapNotFound(err, t.VersionID)
		}
		policyID = v.PolicyID

		t.Content = params.Content
		t.PlainText = ExtractPlainText(params.Content)
		if params.Title != nil && strings.TrimSpace(*params.Title) != "" {
			t.Title = *params.Title
		}
		if params.Notes != nil {
			t.ReviewNotes = *params.Notes
		}
		t.TranslatedBy = translation.OriginHuman
		t.IsStale = false
		t.UpdatedAt = s.now()
		if err := s.translations.Update(txCtx, t); err != nil {
			return nil, err
		}
		return t, nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, events.TranslationUpdated{
		Meta:        events.Meta{TenantID: tenantID, ActorID: actorID},
		PolicyID:    policyID,
		Translation: *t,
	})
	return t, nil
}

func (s *TranslationService) ReviewTranslation(ctx context.Context, tenantID, id, actorID uuid.UUID, status translation.ReviewStatus, notes *string) (*translation.Translation, error) {
	if !status.IsValid() {
		return nil, serrors.PreconditionFailed(CodeTranslationReviewSet, fmt.Sprintf("unknown review status %q", status))
	}
	var (
		previous translation.ReviewStatus
		policyID uuid.UUID
	)
	t, err := composables.InTxResult(ctx, s.tx, tenantID, func(txCtx context.Context) (*translation.Translation, error) {
		t, err := s.translations.GetByID(txCtx, tenantID, id)
		if err != nil {
			return nil, mapNotFound(err, id)
		}
		v, err := s.versions.GetByID(txCtx, tenantID, t.VersionID)
		if err != nil {
			return nil, mapNotFound(err, t.VersionID)
		}
		policyID = v.PolicyID

		now := s.now()
		previous = t.ReviewStatus
		t.ReviewStatus = status
		t.ReviewedAt = &now
		t.ReviewedByID = &actorID
		if notes != nil {
			t.ReviewNotes = *notes
		}
		t.UpdatedAt = now
		if err := s.translations.Update(txCtx, t); err != nil {
			return nil, err
		}
		return t, nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, events.TranslationReviewed{
		Meta:           events.Meta{TenantID: tenantID, ActorID: actorID},
		PolicyID:       policyID,
		Translation:    *t,
		PreviousStatus: previous,
	})
	return t, nil
}

// RefreshStaleTranslation regenerates a stale translation with AI and resets its review.
func (s *TranslationService) RefreshStaleTranslation(ctx context.Context, tenantID, id, actorID uuid.UUID) (_ *translation.Translation, err error) {
	defer func() { recordTranslation("refresh", err) }()

	t, err := s.translations.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, mapNotFound(err, id)
	}
	if !t.IsStale {
		return nil, serrors.InvalidState(CodeTranslationNotStale, "translation", id, "stale", "not stale")
	}
	v, err := s.versions.GetByID(ctx, tenantID, t.VersionID)
	if err != nil {
		return nil, mapNotFound(err, t.VersionID)
	}
	p, err := s.policies.GetByID(ctx, tenantID, v.PolicyID)
	if err != nil {
		return nil, mapNotFound(err, v.PolicyID)
	}
	title, content, model, err := s.translateVersion(ctx, v, p.Title, t.LanguageCode)
	if err != nil {
		return nil, err
	}

	// A concurrent refresh or human edit may have landed while the AI call ran.
	t, err = composables.InTxResult(ctx, s.tx, tenantID, func(txCtx context.Context) (*translation.Translation, error) {
		current, err := s.translations.GetForUpdate(txCtx, tenantID, id)
		if err != nil {
			return nil, mapNotFound(err, id)
		}
		if !current.IsStale {
			return nil, serrors.InvalidState(CodeTranslationNotStale, "translation", id, "stale", "not stale")
		}
		current.Title = title
		current.Content = content
		current.PlainText = ExtractPlainText(content)
		current.TranslatedBy = translation.OriginAI
		current.AIModel = model
		current.IsStale = false
		current.ClearReview()
		current.UpdatedAt = s.now()
		if err := s.translations.Update(txCtx, current); err != nil {
			return nil, err
		}
		return current, nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, events.TranslationUpdated{
		Meta:        events.Meta{TenantID: tenantID, ActorID: actorID},
		PolicyID:    v.PolicyID,
		Translation: *t,
		Refreshed:   true,
	})
	return t, nil
}

// MarkPreviousVersionStale flags the translations of version publishedVersion-1.
// The first publish has no predecessor and marks nothing.
func (s *TranslationService) MarkPreviousVersionStale(ctx context.Context, tenantID, policyID, actorID uuid.UUID, publishedVersion int) ([]uuid.UUID, error) {
	if publishedVersion <= 1 {
		return nil, nil
	}
	prev, err := s.versions.GetByNumber(ctx, tenantID, policyID, publishedVersion-1)
	if errors.Is(err, policy.ErrVersionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	ids, err := composables.InTxResult(ctx, s.tx, tenantID, func(txCtx context.Context) ([]uuid.UUID, error) {
		return s.translations.MarkStale(txCtx, tenantID, prev.ID)
	})
	if err != nil {
		return nil, err
	}
	if len(ids) > 0 {
		s.publisher.Publish(ctx, events.TranslationsMarkedStale{
			Meta:           events.Meta{TenantID: tenantID, ActorID: actorID},
			PolicyID:       policyID,
			VersionID:      prev.ID,
			TranslationIDs: ids,
		})
	}
	return ids, nil
}

func (s *TranslationService) ListTranslations(ctx context.Context, tenantID, versionID uuid.UUID) ([]*translation.Translation, error) {
	if _, err := s.versions.GetByID(ctx, tenantID, versionID); err != nil {
		return nil, mapNotFound(err, versionID)
	}
	return s.translations.ListByVersion(ctx, tenantID, versionID)
}

func (s *TranslationService) GetTranslation(ctx context.Context, tenantID, id uuid.UUID) (*translation.Translation, error) {
	t, err := s.translations.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, mapNotFound(err, id)
	}
	return t, nil
}

func (s *TranslationService) ensureNoTranslation(ctx context.Context, tenantID, versionID uuid.UUID, lang string) error {
	_, err := s.translations.GetByLanguage(ctx, tenantID, versionID, lang)
	switch {
	case err == nil:
		return duplicateTranslation(versionID, lang, nil)
	case errors.Is(err, translation.ErrTranslationNotFound):
		return nil
	default:
		return err
	}
}

// translateVersion calls the skill twice: the body keeps its markup, the title is plain.
func (s *TranslationService) translateVersion(ctx context.Context, v *policy.Version, title, lang string) (string, string, string, error) {
	body, err := s.runSkill(ctx, v.ID, v.Content, lang, true)
	if err != nil {
		return "", "", "", err
	}
	heading, err := s.runSkill(ctx, v.ID, title, lang, false)
	if err != nil {
		return "", "", "", err
	}
	model := body.Model
	if model == "" {
		model = heading.Model
	}
	return heading.Translated, body.Translated, model, nil
}

func (s *TranslationService) runSkill(ctx context.Context, versionID uuid.UUID, text, lang string, preserve bool) (skills.Result, error) {
	res, err := s.executor.ExecuteSkill(ctx, skills.Translate, skills.TranslateRequest{
		Content:            text,
		TargetLanguage:     lang,
		PreserveFormatting: preserve,
	})
	if err != nil {
		return skills.Result{}, serrors.Upstream(
			CodeTranslationUpstream,
			fmt.Sprintf("translation of version %s to %s failed: %v", versionID, lang, err),
			err,
		)
	}
	if !res.Success {
		msg := res.Error
		if msg == "" {
			msg = "translation capability reported failure"
		}
		return skills.Result{}, serrors.Upstream(
			CodeTranslationUpstream,
			fmt.Sprintf("translation of version %s to %s failed: %s", versionID, lang, msg),
			nil,
		)
	}
	return res, nil
}

func duplicateTranslation(versionID uuid.UUID, lang string, cause error) error {
	return serrors.Conflict(
		CodeTranslationExists,
		fmt.Sprintf("version %s already has a %s translation", versionID, lang),
		cause,
	)
}
