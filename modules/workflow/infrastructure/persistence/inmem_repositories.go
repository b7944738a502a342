package persistence

import (
	"context"
	"maps"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/iota-uz/compliance-sdk/modules/workflow/domain/workflow"
	"github.com/iota-uz/compliance-sdk/pkg/repo"
)

type key struct {
	tenantID uuid.UUID
	id       uuid.UUID
}

type InmemTemplateRepository struct {
	storage *repo.SafeMap[key, workflow.Template]
}

func NewInmemTemplateRepository() *InmemTemplateRepository {
	return &InmemTemplateRepository{storage: repo.NewSafeMap[key, workflow.Template]()}
}

func (r *InmemTemplateRepository) GetByID(_ context.Context, tenantID, id uuid.UUID) (*workflow.Template, error) {
	t, ok := r.storage.Get(key{tenantID: tenantID, id: id})
	if !ok {
		return nil, workflow.ErrTemplateNotFound
	}
	return cloneTemplate(t), nil
}

func (r *InmemTemplateRepository) GetDefault(_ context.Context, tenantID uuid.UUID, entityType string) (*workflow.Template, error) {
	for _, t := range r.storage.Values() {
		if t.TenantID == tenantID && t.EntityType == entityType && t.IsDefault {
			return cloneTemplate(t), nil
		}
	}
	return nil, workflow.ErrTemplateNotFound
}

func (r *InmemTemplateRepository) List(_ context.Context, tenantID uuid.UUID, entityType string) ([]*workflow.Template, error) {
	var out []*workflow.Template
	for _, t := range r.storage.Values() {
		if t.TenantID == tenantID && (entityType == "" || t.EntityType == entityType) {
			out = append(out, cloneTemplate(t))
		}
	}
	slices.SortFunc(out, func(a, b *workflow.Template) int {
		if c := strings.Compare(a.EntityType, b.EntityType); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return out, nil
}

func (r *InmemTemplateRepository) ClearDefault(_ context.Context, tenantID uuid.UUID, entityType string) error {
	r.storage.Update(func(_ key, t workflow.Template) (workflow.Template, bool) {
		if t.TenantID != tenantID || t.EntityType != entityType || !t.IsDefault {
			return t, false
		}
		t.IsDefault = false
		return t, true
	})
	return nil
}

func (r *InmemTemplateRepository) Create(_ context.Context, t *workflow.Template) error {
	ok := r.storage.SetIfAbsent(key{tenantID: t.TenantID, id: t.ID}, *cloneTemplate(*t), func(existing workflow.Template) bool {
		return existing.TenantID == t.TenantID && existing.EntityType == t.EntityType && existing.Name == t.Name
	})
	if !ok {
		return workflow.ErrDuplicateTemplate
	}
	return nil
}

func cloneTemplate(t workflow.Template) *workflow.Template {
	t.Stages = slices.Clone(t.Stages)
	return &t
}

type InmemInstanceRepository struct {
	storage *repo.SafeMap[key, workflow.Instance]
}

func NewInmemInstanceRepository() *InmemInstanceRepository {
	return &InmemInstanceRepository{storage: repo.NewSafeMap[key, workflow.Instance]()}
}

func (r *InmemInstanceRepository) GetByID(_ context.Context, tenantID, id uuid.UUID) (*workflow.Instance, error) {
	inst, ok := r.storage.Get(key{tenantID: tenantID, id: id})
	if !ok {
		return nil, workflow.ErrInstanceNotFound
	}
	return cloneInstance(inst), nil
}

func (r *InmemInstanceRepository) LatestForEntity(_ context.Context, tenantID uuid.UUID, entityType string, entityID uuid.UUID) (*workflow.Instance, error) {
	var latest *workflow.Instance
	for _, inst := range r.storage.Values() {
		if inst.TenantID != tenantID || inst.EntityType != entityType || inst.EntityID != entityID {
			continue
		}
		if latest == nil || inst.CreatedAt.After(latest.CreatedAt) {
			latest = cloneInstance(inst)
		}
	}
	if latest == nil {
		return nil, workflow.ErrInstanceNotFound
	}
	return latest, nil
}

func (r *InmemInstanceRepository) ActiveForEntity(_ context.Context, tenantID uuid.UUID, entityType string, entityID uuid.UUID) (*workflow.Instance, error) {
	for _, inst := range r.storage.Values() {
		if inst.TenantID == tenantID && inst.EntityType == entityType && inst.EntityID == entityID && inst.IsActive() {
			return cloneInstance(inst), nil
		}
	}
	return nil, workflow.ErrInstanceNotFound
}

func (r *InmemInstanceRepository) Create(_ context.Context, inst *workflow.Instance) error {
	ok := r.storage.SetIfAbsent(key{tenantID: inst.TenantID, id: inst.ID}, *cloneInstance(*inst), func(existing workflow.Instance) bool {
		return inst.IsActive() && existing.IsActive() &&
			existing.TenantID == inst.TenantID && existing.EntityType == inst.EntityType && existing.EntityID == inst.EntityID
	})
	if !ok {
		return workflow.ErrAlreadyActive
	}
	return nil
}

func (r *InmemInstanceRepository) Update(_ context.Context, inst *workflow.Instance) error {
	k := key{tenantID: inst.TenantID, id: inst.ID}
	if _, ok := r.storage.Get(k); !ok {
		return workflow.ErrInstanceNotFound
	}
	r.storage.Set(k, *cloneInstance(*inst))
	return nil
}

func cloneInstance(inst workflow.Instance) *workflow.Instance {
	inst.StepStates = maps.Clone(inst.StepStates)
	return &inst
}
