package main

import (
	"log/slog"
	"net/http"
	"time"

	jwttoken "reunite/internal/jwt_token"
	dErrors "reunite/pkg/domain-errors"
	"reunite/pkg/platform/httputil"
	"reunite/pkg/secrets"
)

const adminTokenTTL = 12 * time.Hour

// adminTokenHandler exchanges the bootstrap admin token for a short-lived JWT
// used on the admin routes. The bootstrap token is only ever compared against
// its bcrypt hash from configuration.
type adminTokenHandler struct {
	logger    *slog.Logger
	jwt       *jwttoken.JWTService
	tokenHash string
}

func (h *adminTokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.tokenHash == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "admin access is not configured"))
		return
	}
	token := r.Header.Get("X-Admin-Token")
	if token == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "admin token required"))
		return
	}
	if err := secrets.Verify(token, h.tokenHash); err != nil {
		h.logger.WarnContext(r.Context(), "admin bootstrap token rejected")
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid admin token"))
		return
	}

	jwt, err := h.jwt.GenerateAdminToken("admin", adminTokenTTL)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to mint admin token", "error", err)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mint admin token"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"token":      jwt,
		"expires_in": int(adminTokenTTL.Seconds()),
	})
}
