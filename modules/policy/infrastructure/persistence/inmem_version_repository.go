package persistence

import (
	"context"
	"slices"

	"github.com/google/uuid"

	"github.com/iota-uz/compliance-sdk/modules/policy/domain/aggregates/policy"
	"github.com/iota-uz/compliance-sdk/pkg/repo"
)

type InmemVersionRepository struct {
	storage *repo.SafeMap[policyKey, policy.Version]
}

func NewInmemVersionRepository() *InmemVersionRepository {
	return &InmemVersionRepository{storage: repo.NewSafeMap[policyKey, policy.Version]()}
}

func (r *InmemVersionRepository) GetByID(_ context.Context, tenantID, id uuid.UUID) (*policy.Version, error) {
	v, ok := r.storage.Get(policyKey{tenantID: tenantID, id: id})
	if !ok {
		return nil, policy.ErrVersionNotFound
	}
	return &v, nil
}

func (r *InmemVersionRepository) GetLatest(_ context.Context, tenantID, policyID uuid.UUID) (*policy.Version, error) {
	return r.find(tenantID, policyID, func(v policy.Version) bool { return v.IsLatest })
}

func (r *InmemVersionRepository) GetByNumber(_ context.Context, tenantID, policyID uuid.UUID, number int) (*policy.Version, error) {
	return r.find(tenantID, policyID, func(v policy.Version) bool { return v.Version == number })
}

func (r *InmemVersionRepository) ListByPolicy(_ context.Context, tenantID, policyID uuid.UUID) ([]*policy.Version, error) {
	var versions []policy.Version
	for _, v := range r.storage.Values() {
		if v.TenantID == tenantID && v.PolicyID == policyID {
			versions = append(versions, v)
		}
	}
	slices.SortFunc(versions, func(a, b policy.Version) int { return b.Version - a.Version })
	out := make([]*policy.Version, 0, len(versions))
	for i := range versions {
		out = append(out, &versions[i])
	}
	return out, nil
}

func (r *InmemVersionRepository) ClearLatest(_ context.Context, tenantID, policyID uuid.UUID) error {
	r.storage.Update(func(_ policyKey, v policy.Version) (policy.Version, bool) {
		if v.TenantID != tenantID || v.PolicyID != policyID || !v.IsLatest {
			return v, false
		}
		v.IsLatest = false
		return v, true
	})
	return nil
}

// Create enforces the same uniqueness the schema does: one row per number, one latest per policy.
func (r *InmemVersionRepository) Create(_ context.Context, v *policy.Version) error {
	ok := r.storage.SetIfAbsent(policyKey{tenantID: v.TenantID, id: v.ID}, *v, func(existing policy.Version) bool {
		if existing.TenantID != v.TenantID || existing.PolicyID != v.PolicyID {
			return false
		}
		return existing.Version == v.Version || (existing.IsLatest && v.IsLatest)
	})
	if !ok {
		return policy.ErrDuplicateVersion
	}
	return nil
}

func (r *InmemVersionRepository) find(tenantID, policyID uuid.UUID, match func(policy.Version) bool) (*policy.Version, error) {
	for _, v := range r.storage.Values() {
		if v.TenantID == tenantID && v.PolicyID == policyID && match(v) {
			return &v, nil
		}
	}
	return nil, policy.ErrVersionNotFound
}
