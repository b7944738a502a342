package persistence

import (
	"context"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/iota-uz/compliance-sdk/modules/policy/domain/aggregates/policy"
	"github.com/iota-uz/compliance-sdk/pkg/repo"
)

type policyKey struct {
	tenantID uuid.UUID
	id       uuid.UUID
}

// InmemPolicyRepository stores copies, so callers never share state with the store.
type InmemPolicyRepository struct {
	storage *repo.SafeMap[policyKey, policy.Policy]
}

func NewInmemPolicyRepository() *InmemPolicyRepository {
	return &InmemPolicyRepository{storage: repo.NewSafeMap[policyKey, policy.Policy]()}
}

func (r *InmemPolicyRepository) GetByID(_ context.Context, tenantID, id uuid.UUID) (*policy.Policy, error) {
	p, ok := r.storage.Get(policyKey{tenantID: tenantID, id: id})
	if !ok {
		return nil, policy.ErrPolicyNotFound
	}
	return &p, nil
}

func (r *InmemPolicyRepository) List(_ context.Context, tenantID uuid.UUID, params policy.FindParams) ([]*policy.Policy, int, error) {
	query := strings.ToLower(strings.TrimSpace(params.Query))
	var matched []policy.Policy
	for _, p := range r.storage.Values() {
		if p.TenantID != tenantID {
			continue
		}
		if params.Status != "" && p.Status != params.Status {
			continue
		}
		if params.Category != "" && p.Category != params.Category {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(p.Title), query) && !strings.Contains(p.Slug, query) {
			continue
		}
		matched = append(matched, p)
	}
	slices.SortFunc(matched, func(a, b policy.Policy) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})

	total := len(matched)
	start := min(params.Offset, total)
	end := total
	if params.Limit > 0 {
		end = min(start+params.Limit, total)
	}
	out := make([]*policy.Policy, 0, end-start)
	for i := start; i < end; i++ {
		p := matched[i]
		out = append(out, &p)
	}
	return out, total, nil
}

func (r *InmemPolicyRepository) SlugExists(_ context.Context, tenantID uuid.UUID, slug string, excludeID uuid.UUID) (bool, error) {
	for _, p := range r.storage.Values() {
		if p.TenantID == tenantID && p.Slug == slug && p.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (r *InmemPolicyRepository) Create(_ context.Context, p *policy.Policy) error {
	ok := r.storage.SetIfAbsent(policyKey{tenantID: p.TenantID, id: p.ID}, *p, func(existing policy.Policy) bool {
		return existing.TenantID == p.TenantID && existing.Slug == p.Slug
	})
	if !ok {
		return policy.ErrDuplicateSlug
	}
	return nil
}

func (r *InmemPolicyRepository) Update(_ context.Context, p *policy.Policy) error {
	key := policyKey{tenantID: p.TenantID, id: p.ID}
	if _, ok := r.storage.Get(key); !ok {
		return policy.ErrPolicyNotFound
	}
	for _, other := range r.storage.Values() {
		if other.TenantID == p.TenantID && other.ID != p.ID && other.Slug == p.Slug {
			return policy.ErrDuplicateSlug
		}
	}
	r.storage.Set(key, *p)
	return nil
}
