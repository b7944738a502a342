package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/iota-uz/compliance-sdk/pkg/composables"
	"github.com/iota-uz/compliance-sdk/pkg/serrors"
)

// ErrorEnvelope standardizes JSON error responses for API namespaces.
type ErrorEnvelope struct {
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Meta    map[string]string `json:"meta,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	if w == nil {
		return nil
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if payload == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(payload)
}

func WriteError(w http.ResponseWriter, status int, code, message string, meta map[string]string) error {
	return WriteJSON(w, status, &ErrorEnvelope{
		Code:    code,
		Message: message,
		Meta:    meta,
	})
}

// WriteServiceError renders a *serrors.ServiceError with its own status and code.
// Anything else becomes a 500 with internalCode.
func WriteServiceError(w http.ResponseWriter, r *http.Request, internalCode string, err error) {
	meta := requestMeta(r)
	var svcErr *serrors.ServiceError
	if errors.As(err, &svcErr) {
		_ = WriteError(w, svcErr.Status, svcErr.Code, svcErr.Message, meta)
		return
	}
	composables.UseLoggerOr(r.Context(), nil).WithError(err).Error("unhandled service error")
	_ = WriteError(w, http.StatusInternalServerError, internalCode, "internal server error", meta)
}
