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
	"github.com/iota-uz/compliance-sdk/modules/policy/domain/events"
	"github.com/iota-uz/compliance-sdk/pkg/composables"
	"github.com/iota-uz/compliance-sdk/pkg/eventbus"
	"github.com/iota-uz/compliance-sdk/pkg/serrors"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// CreatePolicyParams captures the fields accepted when a policy is created.
type CreatePolicyParams struct {
	Title         string
	PolicyType    string
	Category      string
	Content       *string
	OwnerID       uuid.UUID
	EffectiveDate *time.Time
	ReviewDate    *time.Time
}

// PublishParams are the optional version annotations set at publish time.
type PublishParams struct {
	VersionLabel  string
	Summary       string
	ChangeNotes   string
	EffectiveDate *time.Time
}

// PolicyService owns the draft/version duality of policies.
type PolicyService struct {
	repo      policy.Repository
	versions  policy.VersionRepository
	cases     policy.CaseLinkRepository
	tx        composables.Transactor
	publisher eventbus.EventBus
	logger    *logrus.Logger
	now       func() time.Time
}

func NewPolicyService(
	repo policy.Repository,
	versions policy.VersionRepository,
	cases policy.CaseLinkRepository,
	tx composables.Transactor,
	publisher eventbus.EventBus,
	logger *logrus.Logger,
) *PolicyService {
	return &PolicyService{
		repo:      repo,
		versions:  versions,
		cases:     cases,
		tx:        tx,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *PolicyService) Create(ctx context.Context, tenantID, actorID uuid.UUID, params CreatePolicyParams) (*policy.Policy, error) {
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return nil, serrors.PreconditionFailed(CodeInvalidInput, "policy title is required")
	}
	owner := params.OwnerID
	if owner == uuid.Nil {
		owner = actorID
	}
	now := s.now()
	p := &policy.Policy{
		ID:            uuid.New(),
		TenantID:      tenantID,
		Title:         title,
		PolicyType:    params.PolicyType,
		Category:      params.Category,
		Status:        policy.StatusDraft,
		OwnerID:       owner,
		EffectiveDate: params.EffectiveDate,
		ReviewDate:    params.ReviewDate,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if params.Content != nil {
		p.SetDraft(*params.Content, actorID, now)
	}

	err := s.tx.InTx(ctx, tenantID, func(txCtx context.Context) error {
		slug, err := uniqueSlug(txCtx, s.repo, tenantID, title, p.ID)
		if err != nil {
			return err
		}
		p.Slug = slug
		return s.repo.Create(txCtx, p)
	})
	if err != nil {
		return nil, s.mapWriteError(err)
	}

	s.publisher.Publish(ctx, events.Created{Meta: events.Meta{TenantID: tenantID, ActorID: actorID}, Policy: *p})
	return p, nil
}

// UpdateDraft applies the provided fields. A published policy without a draft first
// gets the latest version's content copied into the draft.
func (s *PolicyService) UpdateDraft(ctx context.Context, tenantID, id, actorID uuid.UUID, update policy.DraftUpdate) (*policy.Policy, error) {
	if update.Title != nil {
		trimmed := strings.TrimSpace(*update.Title)
		if trimmed == "" {
			return nil, serrors.PreconditionFailed(CodeInvalidInput, "policy title must not be empty")
		}
		update.Title = &trimmed
	}

	var changes []policy.FieldChange
	p, err := composables.InTxResult(ctx, s.tx, tenantID, func(txCtx context.Context) (*policy.Policy, error) {
		p, err := s.repo.GetByID(txCtx, tenantID, id)
		if err != nil {
			return nil, mapNotFound(err, id)
		}
		if p.Status == policy.StatusPendingApproval {
			return nil, invalidPolicyState(id, "not PENDING_APPROVAL", p.Status)
		}

		now := s.now()
		copied := false
		if p.Status == policy.StatusPublished && p.DraftContent == nil {
			latest, err := s.versions.GetLatest(txCtx, tenantID, id)
			if err != nil && !errors.Is(err, policy.ErrVersionNotFound) {
				return nil, err
			}
			if latest != nil {
				p.SetDraft(latest.Content, actorID, now)
				copied = true
			}
		}

		previousSlug := p.Slug
		changes = p.Apply(update, actorID, now)
		if update.Title != nil && len(changes) > 0 && changes[0].Field == "title" {
			slug, err := uniqueSlug(txCtx, s.repo, tenantID, p.Title, p.ID)
			if err != nil {
				return nil, err
			}
			if slug != previousSlug {
				p.Slug = slug
				changes = append(changes, policy.FieldChange{Field: "slug", Old: previousSlug, New: slug})
			}
		}
		if len(changes) == 0 && !copied {
			return p, nil
		}
		p.UpdatedAt = now
		if err := s.repo.Update(txCtx, p); err != nil {
			return nil, err
		}
		return p, nil
	})
	if err != nil {
		return nil, s.mapWriteError(err)
	}

	if len(changes) > 0 {
		s.publisher.Publish(ctx, events.Updated{
			Meta:    events.Meta{TenantID: tenantID, ActorID: actorID},
			Policy:  *p,
			Changes: changes,
		})
	}
	return p, nil
}

// Publish turns the draft into version currentVersion+1. The latest-flag flip, the version
// insert and the head update commit together or not at all.
func (s *PolicyService) Publish(ctx context.Context, tenantID, id, actorID uuid.UUID, params PublishParams) (*policy.Version, error) {
	var (
		previous policy.Status
		head     *policy.Policy
	)
	v, err := composables.InTxResult(ctx, s.tx, tenantID, func(txCtx context.Context) (*policy.Version, error) {
		p, err := s.repo.GetByID(txCtx, tenantID, id)
		if err != nil {
			return nil, mapNotFound(err, id)
		}
		if p.Status == policy.StatusRetired {
			return nil, invalidPolicyState(id, "DRAFT, PENDING_APPROVAL, APPROVED or PUBLISHED", p.Status)
		}
		if !p.HasDraft() {
			return nil, emptyDraft(id)
		}

		now := s.now()
		effective := params.EffectiveDate
		if effective == nil {
			effective = p.EffectiveDate
		}
		content := *p.DraftContent
		v := &policy.Version{
			ID:            uuid.New(),
			PolicyID:      p.ID,
			TenantID:      tenantID,
			Version:       p.CurrentVersion + 1,
			Content:       content,
			PlainText:     ExtractPlainText(content),
			Summary:       params.Summary,
			ChangeNotes:   params.ChangeNotes,
			VersionLabel:  params.VersionLabel,
			IsLatest:      true,
			PublishedAt:   now,
			PublishedByID: actorID,
			EffectiveDate: effective,
		}
		if err := s.versions.ClearLatest(txCtx, tenantID, p.ID); err != nil {
			return nil, fmt.Errorf("clear latest version: %w", err)
		}
		if err := s.versions.Create(txCtx, v); err != nil {
			if errors.Is(err, policy.ErrDuplicateVersion) {
				return nil, serrors.Conflict(CodeVersionConflict,
					fmt.Sprintf("policy %s was published concurrently, retry the request", id), err)
			}
			return nil, fmt.Errorf("insert version %d: %w", v.Version, err)
		}

		previous = p.Status
		p.Status = policy.StatusPublished
		p.CurrentVersion = v.Version
		p.EffectiveDate = effective
		p.ClearDraft()
		p.UpdatedAt = now
		if err := s.repo.Update(txCtx, p); err != nil {
			return nil, fmt.Errorf("update policy head: %w", err)
		}
		head = p
		return v, nil
	})
	if err != nil {
		return nil, err
	}

	policyPublishes.Inc()
	RecordTransition(previous, policy.StatusPublished)
	composables.UseLoggerOr(ctx, s.logger).WithFields(logrus.Fields{
		"policy_id": id,
		"version":   v.Version,
	}).Info("policy published")

	meta := events.Meta{TenantID: tenantID, ActorID: actorID}
	s.publisher.Publish(ctx, events.Published{Meta: meta, Policy: *head, Version: *v})
	if previous != policy.StatusPublished {
		s.publisher.Publish(ctx, events.StatusChanged{Meta: meta, PolicyID: id, From: previous, To: policy.StatusPublished})
	}
	return v, nil
}

// Retire moves any non-retired policy to RETIRED. Retiring twice is an error.
func (s *PolicyService) Retire(ctx context.Context, tenantID, id, actorID uuid.UUID) (*policy.Policy, error) {
	var previous policy.Status
	p, err := composables.InTxResult(ctx, s.tx, tenantID, func(txCtx context.Context) (*policy.Policy, error) {
		p, err := s.repo.GetByID(txCtx, tenantID, id)
		if err != nil {
			return nil, mapNotFound(err, id)
		}
		if p.Status == policy.StatusRetired {
			return nil, invalidPolicyState(id, "not RETIRED", p.Status)
		}
		now := s.now()
		previous = p.Status
		p.Status = policy.StatusRetired
		p.RetiredAt = &now
		p.UpdatedAt = now
		if err := s.repo.Update(txCtx, p); err != nil {
			return nil, err
		}
		return p, nil
	})
	if err != nil {
		return nil, err
	}

	RecordTransition(previous, policy.StatusRetired)
	meta := events.Meta{TenantID: tenantID, ActorID: actorID}
	s.publisher.Publish(ctx, events.Retired{Meta: meta, Policy: *p})
	s.publisher.Publish(ctx, events.StatusChanged{Meta: meta, PolicyID: id, From: previous, To: policy.StatusRetired})
	return p, nil
}

func (s *PolicyService) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*policy.Policy, error) {
	p, err := s.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, mapNotFound(err, id)
	}
	return p, nil
}

func (s *PolicyService) List(ctx context.Context, tenantID uuid.UUID, params policy.FindParams) ([]*policy.Policy, int, error) {
	if params.Status != "" && !params.Status.IsValid() {
		return nil, 0, serrors.PreconditionFailed(CodeInvalidInput, fmt.Sprintf("unknown policy status %q", params.Status))
	}
	switch {
	case params.Limit <= 0:
		params.Limit = defaultPageSize
	case params.Limit > maxPageSize:
		params.Limit = maxPageSize
	}
	if params.Offset < 0 {
		params.Offset = 0
	}
	return s.repo.List(ctx, tenantID, params)
}

func (s *PolicyService) ListVersions(ctx context.Context, tenantID, policyID uuid.UUID) ([]*policy.Version, error) {
	if _, err := s.GetByID(ctx, tenantID, policyID); err != nil {
		return nil, err
	}
	return s.versions.ListByPolicy(ctx, tenantID, policyID)
}

func (s *PolicyService) GetVersion(ctx context.Context, tenantID, versionID uuid.UUID) (*policy.Version, error) {
	v, err := s.versions.GetByID(ctx, tenantID, versionID)
	if err != nil {
		return nil, mapNotFound(err, versionID)
	}
	return v, nil
}

// GetLatestVersion returns NotFound for policies that were never published.
func (s *PolicyService) GetLatestVersion(ctx context.Context, tenantID, policyID uuid.UUID) (*policy.Version, error) {
	if _, err := s.GetByID(ctx, tenantID, policyID); err != nil {
		return nil, err
	}
	v, err := s.versions.GetLatest(ctx, tenantID, policyID)
	if errors.Is(err, policy.ErrVersionNotFound) {
		return nil, serrors.NotFound(CodeVersionNotFound, "latest version of policy", policyID)
	}
	return v, err
}

func (s *PolicyService) LinkCase(ctx context.Context, tenantID, policyID, caseID, actorID uuid.UUID, note string) (*policy.CaseLink, error) {
	link, err := composables.InTxResult(ctx, s.tx, tenantID, func(txCtx context.Context) (*policy.CaseLink, error) {
		if _, err := s.repo.GetByID(txCtx, tenantID, policyID); err != nil {
			return nil, mapNotFound(err, policyID)
		}
		link := &policy.CaseLink{
			ID:         uuid.New(),
			TenantID:   tenantID,
			PolicyID:   policyID,
			CaseID:     caseID,
			Note:       note,
			LinkedByID: actorID,
			CreatedAt:  s.now(),
		}
		if err := s.cases.Create(txCtx, link); err != nil {
			return nil, err
		}
		return link, nil
	})
	if errors.Is(err, policy.ErrDuplicateLink) {
		return nil, serrors.Conflict(CodeCaseLinkExists, fmt.Sprintf("case %s is already linked to policy %s", caseID, policyID), err)
	}
	if err != nil {
		return nil, err
	}
	s.publisher.Publish(ctx, events.CaseLinked{Meta: events.Meta{TenantID: tenantID, ActorID: actorID}, Link: *link})
	return link, nil
}

func (s *PolicyService) UnlinkCase(ctx context.Context, tenantID, policyID, caseID, actorID uuid.UUID) error {
	err := s.tx.InTx(ctx, tenantID, func(txCtx context.Context) error {
		if _, err := s.cases.Get(txCtx, tenantID, policyID, caseID); err != nil {
			return err
		}
		return s.cases.Delete(txCtx, tenantID, policyID, caseID)
	})
	if errors.Is(err, policy.ErrCaseLinkNotFound) {
		return serrors.NotFound(CodeCaseLinkNotFound, "case link for case", caseID)
	}
	if err != nil {
		return err
	}
	s.publisher.Publish(ctx, events.CaseUnlinked{
		Meta:     events.Meta{TenantID: tenantID, ActorID: actorID},
		PolicyID: policyID,
		CaseID:   caseID,
	})
	return nil
}

func (s *PolicyService) ListCases(ctx context.Context, tenantID, policyID uuid.UUID) ([]*policy.CaseLink, error) {
	if _, err := s.GetByID(ctx, tenantID, policyID); err != nil {
		return nil, err
	}
	return s.cases.ListByPolicy(ctx, tenantID, policyID)
}

func (s *PolicyService) mapWriteError(err error) error {
	if errors.Is(err, policy.ErrDuplicateSlug) {
		return serrors.Conflict(CodeSlugConflict, "policy slug was taken concurrently, retry the request", err)
	}
	return err
}
