package middleware

import (
	"net/http"
	"slices"

	"go.uber.org/zap"
)

// RequireAdmin lets only admin operators through
func RequireAdmin(logger *zap.Logger) func(http.Handler) http.Handler {
	return RequireRole(logger, RoleAdmin)
}

// RequireRole lets through operators holding one of roles. It must run after
// Authenticate.
func RequireRole(logger *zap.Logger, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			op, ok := OperatorFrom(r.Context())
			if !ok {
				logger.Warn("Operator not found in context", zap.String("path", r.URL.Path))
				RespondWithError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			if !slices.Contains(roles, op.Role) {
				logger.Warn("Operator role not authorized",
					zap.String("operator_id", op.ID),
					zap.String("role", op.Role),
					zap.Strings("allowed_roles", roles),
				)
				RespondWithError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
