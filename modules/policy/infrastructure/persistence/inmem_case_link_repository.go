package persistence

import (
	"context"
	"slices"

	"github.com/google/uuid"

	"github.com/iota-uz/compliance-sdk/modules/policy/domain/aggregates/policy"
	"github.com/iota-uz/compliance-sdk/pkg/repo"
)

type caseLinkKey struct {
	tenantID uuid.UUID
	policyID uuid.UUID
	caseID   uuid.UUID
}

type InmemCaseLinkRepository struct {
	storage *repo.SafeMap[caseLinkKey, policy.CaseLink]
}

func NewInmemCaseLinkRepository() *InmemCaseLinkRepository {
	return &InmemCaseLinkRepository{storage: repo.NewSafeMap[caseLinkKey, policy.CaseLink]()}
}

func (r *InmemCaseLinkRepository) Get(_ context.Context, tenantID, policyID, caseID uuid.UUID) (*policy.CaseLink, error) {
	link, ok := r.storage.Get(caseLinkKey{tenantID: tenantID, policyID: policyID, caseID: caseID})
	if !ok {
		return nil, policy.ErrCaseLinkNotFound
	}
	return &link, nil
}

func (r *InmemCaseLinkRepository) ListByPolicy(_ context.Context, tenantID, policyID uuid.UUID) ([]*policy.CaseLink, error) {
	var matched []policy.CaseLink
	for _, l := range r.storage.Values() {
		if l.TenantID == tenantID && l.PolicyID == policyID {
			matched = append(matched, l)
		}
	}
	slices.SortFunc(matched, func(a, b policy.CaseLink) int { return a.CreatedAt.Compare(b.CreatedAt) })
	out := make([]*policy.CaseLink, 0, len(matched))
	for i := range matched {
		out = append(out, &matched[i])
	}
	return out, nil
}

func (r *InmemCaseLinkRepository) Create(_ context.Context, link *policy.CaseLink) error {
	key := caseLinkKey{tenantID: link.TenantID, policyID: link.PolicyID, caseID: link.CaseID}
	ok := r.storage.SetIfAbsent(key, *link, func(existing policy.CaseLink) bool {
		return existing.TenantID == link.TenantID && existing.PolicyID == link.PolicyID && existing.CaseID == link.CaseID
	})
	if !ok {
		return policy.ErrDuplicateLink
	}
	return nil
}

func (r *InmemCaseLinkRepository) Delete(_ context.Context, tenantID, policyID, caseID uuid.UUID) error {
	key := caseLinkKey{tenantID: tenantID, policyID: policyID, caseID: caseID}
	if _, ok := r.storage.Get(key); !ok {
		return policy.ErrCaseLinkNotFound
	}
	r.storage.Delete(key)
	return nil
}
