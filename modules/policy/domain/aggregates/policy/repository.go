package policy

import (
	"context"

	"github.com/google/uuid"
)

type FindParams struct {
	Status   Status
	Category string
	Query    string
	Limit    int
	Offset   int
}

type Repository interface {
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Policy, error)
	List(ctx context.Context, tenantID uuid.UUID, params FindParams) ([]*Policy, int, error)
	// SlugExists ignores the policy with excludeID, so a policy never collides with itself.
	SlugExists(ctx context.Context, tenantID uuid.UUID, slug string, excludeID uuid.UUID) (bool, error)
	Create(ctx context.Context, p *Policy) error
	Update(ctx context.Context, p *Policy) error
}

type VersionRepository interface {
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Version, error)
	GetLatest(ctx context.Context, tenantID, policyID uuid.UUID) (*Version, error)
	GetByNumber(ctx context.Context, tenantID, policyID uuid.UUID, number int) (*Version, error)
	ListByPolicy(ctx context.Context, tenantID, policyID uuid.UUID) ([]*Version, error)
	// ClearLatest flips is_latest to false on whichever version currently holds it.
	ClearLatest(ctx context.Context, tenantID, policyID uuid.UUID) error
	Create(ctx context.Context, v *Version) error
}

type CaseLinkRepository interface {
	Get(ctx context.Context, tenantID, policyID, caseID uuid.UUID) (*CaseLink, error)
	ListByPolicy(ctx context.Context, tenantID, policyID uuid.UUID) ([]*CaseLink, error)
	Create(ctx context.Context, link *CaseLink) error
	Delete(ctx context.Context, tenantID, policyID, caseID uuid.UUID) error
}
