package httpapi

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/iota-uz/compliance-sdk/pkg/composables"
)

func requestMeta(r *http.Request) map[string]string {
	meta := map[string]string{}
	if requestID := composables.UseRequestID(r.Context()); requestID != "" {
		meta["request_id"] = requestID
	}
	return meta
}

// RequireTenantActor reads the tenant and acting user placed in the context by
// middleware.RequireTenant. Mutating endpoints need both.
func RequireTenantActor(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	tenantID, err := composables.UseTenantID(r.Context())
	if err != nil {
		_ = WriteError(w, http.StatusBadRequest, "TENANT_REQUIRED", "tenant is required", requestMeta(r))
		return uuid.Nil, uuid.Nil, false
	}
	userID, err := composables.UseUserID(r.Context())
	if err != nil {
		_ = WriteError(w, http.StatusUnauthorized, "USER_REQUIRED", "acting user is required", requestMeta(r))
		return uuid.Nil, uuid.Nil, false
	}
	return tenantID, userID, true
}

func RequireTenantID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	tenantID, err := composables.UseTenantID(r.Context())
	if err != nil {
		_ = WriteError(w, http.StatusBadRequest, "TENANT_REQUIRED", "tenant is required", requestMeta(r))
		return uuid.Nil, false
	}
	return tenantID, true
}

// PathUUID parses the named mux route variable.
func PathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		_ = WriteError(w, http.StatusBadRequest, "INVALID_ID", name+" must be a uuid", requestMeta(r))
		return uuid.Nil, false
	}
	return id, true
}

// QueryInt returns def when the parameter is absent, and false after writing a 400 when it is malformed.
func QueryInt(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		_ = WriteError(w, http.StatusBadRequest, "INVALID_QUERY", name+" must be a non-negative integer", requestMeta(r))
		return 0, false
	}
	return v, true
}

// WriteBadRequest reports a body or query that failed decoding or validation.
func WriteBadRequest(w http.ResponseWriter, r *http.Request, code string, err error) {
	_ = WriteError(w, http.StatusBadRequest, code, err.Error(), requestMeta(r))
}
