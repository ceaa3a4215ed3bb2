package middleware

import (
	"net/http"
	"slices"

	"github.com/erp/ledger/internal/infrastructure/auth"
	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RoleGateConfig holds configuration for the role gate
type RoleGateConfig struct {
	Logger *zap.Logger
}

// RequireRoles lets the request through only when the token's role is one
// of roles. Admin passes every gate.
func RequireRoles(roles ...auth.Role) gin.HandlerFunc {
	return RequireRolesWithConfig(RoleGateConfig{}, roles...)
}

// RequireRolesWithConfig is RequireRoles with custom config
func RequireRolesWithConfig(cfg RoleGateConfig, roles ...auth.Role) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	allowed := make([]string, len(roles))
	for i, r := range roles {
		allowed[i] = string(r)
	}

	return func(c *gin.Context) {
		claims := GetJWTClaims(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeUnauthorized, "Authentication required", GetRequestID(c)))
			return
		}
		if claims.Role == auth.RoleAdmin || slices.Contains(roles, claims.Role) {
			c.Next()
			return
		}

		log.Warn("Role check failed",
			zap.String("actor_id", claims.ActorID),
			zap.String("role", string(claims.Role)),
			zap.Strings("required_any", allowed),
			zap.String("path", c.FullPath()),
		)
		c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeForbidden, "Insufficient role for this operation", GetRequestID(c)))
	}
}
