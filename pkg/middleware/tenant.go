package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/iota-uz/compliance-sdk/pkg/composables"
	"github.com/iota-uz/compliance-sdk/pkg/configuration"
	"github.com/iota-uz/compliance-sdk/pkg/httpapi"
)

// RequireTenant resolves the tenant and acting user from request headers.
// Authentication happens upstream; this only parses what the gateway forwards.
func RequireTenant() mux.MiddlewareFunc {
	conf := configuration.Use()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			meta := map[string]string{"request_id": composables.UseRequestID(r.Context())}
			tenantID, err := uuid.Parse(strings.TrimSpace(r.Header.Get(conf.TenantHeader)))
			if err != nil || tenantID == uuid.Nil {
				_ = httpapi.WriteError(w, http.StatusBadRequest, "TENANT_REQUIRED", conf.TenantHeader+" header must be a uuid", meta)
				return
			}
			ctx := composables.WithTenantID(r.Context(), tenantID)
			if raw := strings.TrimSpace(r.Header.Get(conf.UserHeader)); raw != "" {
				userID, err := uuid.Parse(raw)
				if err != nil {
					_ = httpapi.WriteError(w, http.StatusBadRequest, "USER_INVALID", conf.UserHeader+" header must be a uuid", meta)
					return
				}
				ctx = composables.WithUserID(ctx, userID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
