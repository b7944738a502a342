package persistence

import (
	"context"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/iota-uz/compliance-sdk/modules/policy/domain/entities/translation"
	"github.com/iota-uz/compliance-sdk/pkg/repo"
)

type InmemTranslationRepository struct {
	storage *repo.SafeMap[policyKey, translation.Translation]
}

func NewInmemTranslationRepository() *InmemTranslationRepository {
	return &InmemTranslationRepository{storage: repo.NewSafeMap[policyKey, translation.Translation]()}
}

func (r *InmemTranslationRepository) GetByID(_ context.Context, tenantID, id uuid.UUID) (*translation.Translation, error) {
	t, ok := r.storage.Get(policyKey{tenantID: tenantID, id: id})
	if !ok {
		return nil, translation.ErrTranslationNotFound
	}
	return &t, nil
}

func (r *InmemTranslationRepository) GetForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*translation.Translation, error) {
	return r.GetByID(ctx, tenantID, id)
}

func (r *InmemTranslationRepository) GetByLanguage(_ context.Context, tenantID, versionID uuid.UUID, languageCode string) (*translation.Translation, error) {
	for _, t := range r.storage.Values() {
		if t.TenantID == tenantID && t.VersionID == versionID && t.LanguageCode == languageCode {
			return &t, nil
		}
	}
	return nil, translation.ErrTranslationNotFound
}

func (r *InmemTranslationRepository) ListByVersion(_ context.Context, tenantID, versionID uuid.UUID) ([]*translation.Translation, error) {
	var matched []translation.Translation
	for _, t := range r.storage.Values() {
		if t.TenantID == tenantID && t.VersionID == versionID {
			matched = append(matched, t)
		}
	}
	slices.SortFunc(matched, func(a, b translation.Translation) int {
		return strings.Compare(a.LanguageCode, b.LanguageCode)
	})
	out := make([]*translation.Translation, 0, len(matched))
	for i := range matched {
		out = append(out, &matched[i])
	}
	return out, nil
}

func (r *InmemTranslationRepository) Create(_ context.Context, t *translation.Translation) error {
	ok := r.storage.SetIfAbsent(policyKey{tenantID: t.TenantID, id: t.ID}, *t, func(existing translation.Translation) bool {
		return existing.TenantID == t.TenantID && existing.VersionID == t.VersionID && existing.LanguageCode == t.LanguageCode
	})
	if !ok {
		return translation.ErrDuplicateLanguage
	}
	return nil
}

func (r *InmemTranslationRepository) Update(_ context.Context, t *translation.Translation) error {
	key := policyKey{tenantID: t.TenantID, id: t.ID}
	if _, ok := r.storage.Get(key); !ok {
		return translation.ErrTranslationNotFound
	}
	r.storage.Set(key, *t)
	return nil
}

func (r *InmemTranslationRepository) MarkStale(_ context.Context, tenantID, versionID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	r.storage.Update(func(_ policyKey, t translation.Translation) (translation.Translation, bool) {
		if t.TenantID != tenantID || t.VersionID != versionID || t.IsStale {
			return t, false
		}
		t.IsStale = true
		ids = append(ids, t.ID)
		return t, true
	})
	slices.SortFunc(ids, func(a, b uuid.UUID) int { return strings.Compare(a.String(), b.String()) })
	return ids, nil
}
