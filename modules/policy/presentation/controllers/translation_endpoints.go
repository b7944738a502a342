package controllers

import (
	"net/http"

	"github.com/iota-uz/compliance-sdk/modules/policy/services"
	"github.com/iota-uz/compliance-sdk/pkg/httpapi"
)

func (c *PolicyController) ListTranslations(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := httpapi.RequireTenantID(w, r)
	if !ok {
		return
	}
	versionID, ok := httpapi.PathUUID(w, r, "id")
	if !ok {
		return
	}
	items, err := c.translations.ListTranslations(r.Context(), tenantID, versionID)
	if err != nil {
		httpapi.WriteServiceError(w, r, internalCode, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{"translations": mapSlice(items, toTranslationDTO)})
}

// Translate creates a translation through the AI skill, or manually from title and content.
// Omitting useAi picks AI unless both title and content are given.
func (c *PolicyController) Translate(w http.ResponseWriter, r *http.Request) {
	tenantID, actorID, ok := httpapi.RequireTenantActor(w, r)
	if !ok {
		return
	}
	versionID, ok := httpapi.PathUUID(w, r, "id")
	if !ok {
		return
	}
	var req translateRequest
	if err := httpapi.DecodeJSON(r.Body, &req); err != nil {
		httpapi.WriteBadRequest(w, r, services.CodeTranslationInput, err)
		return
	}
	t, err := c.translations.Translate(r.Context(), tenantID, versionID, actorID, services.TranslateParams{
		LanguageCode: req.LanguageCode,
		UseAI:        req.useAI(),
		Title:        req.Title,
		Content:      req.Content,
	})
	if err != nil {
		httpapi.WriteServiceError(w, r, internalCode, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, toTranslationDTO(t))
}

func (c *PolicyController) GetTranslation(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := httpapi.RequireTenantID(w, r)
	if !ok {
		return
	}
	id, ok := httpapi.PathUUID(w, r, "id")
	if !ok {
		return
	}
	t, err := c.translations.GetTranslation(r.Context(), tenantID, id)
	if err != nil {
		httpapi.WriteServiceError(w, r, internalCode, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, toTranslationDTO(t))
}

func (c *PolicyController) UpdateTranslation(w http.ResponseWriter, r *http.Request) {
	tenantID, actorID, ok := httpapi.RequireTenantActor(w, r)
	if !ok {
		return
	}
	id, ok := httpapi.PathUUID(w, r, "id")
	if !ok {
		return
	}
	var req updateTranslationRequest
	if err := httpapi.DecodeJSON(r.Body, &req); err != nil {
		httpapi.WriteBadRequest(w, r, services.CodeTranslationInput, err)
		return
	}
	t, err := c.translations.UpdateTranslation(r.Context(), tenantID, id, actorID, services.UpdateTranslationParams{
		Content: req.Content,
		Title:   req.Title,
		Notes:   req.Notes,
	})
	if err != nil {
		httpapi.WriteServiceError(w, r, internalCode, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, toTranslationDTO(t))
}

func (c *PolicyController) ReviewTranslation(w http.ResponseWriter, r *http.Request) {
	tenantID, actorID, ok := httpapi.RequireTenantActor(w, r)
	if !ok {
		return
	}
	id, ok := httpapi.PathUUID(w, r, "id")
	if !ok {
		return
	}
	var req reviewTranslationRequest
	if err := httpapi.DecodeJSON(r.Body, &req); err != nil {
		httpapi.WriteBadRequest(w, r, services.CodeTranslationReviewSet, err)
		return
	}
	t, err := c.translations.ReviewTranslation(r.Context(), tenantID, id, actorID, req.Status, req.Notes)
	if err != nil {
		httpapi.WriteServiceError(w, r, internalCode, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, toTranslationDTO(t))
}

func (c *PolicyController) RefreshTranslation(w http.ResponseWriter, r *http.Request) {
	tenantID, actorID, ok := httpapi.RequireTenantActor(w, r)
	if !ok {
		return
	}
	id, ok := httpapi.PathUUID(w, r, "id")
	if !ok {
		return
	}
	t, err := c.translations.RefreshStaleTranslation(r.Context(), tenantID, id, actorID)
	if err != nil {
		httpapi.WriteServiceError(w, r, internalCode, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, toTranslationDTO(t))
}
