package api

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/scrollkit/cardfeed/internal/api/rpc"
	"github.com/scrollkit/cardfeed/internal/models"
	"github.com/scrollkit/cardfeed/pkg/logging"
)

// TokenResolver maps a bearer token to its user; unknown tokens yield nil
type TokenResolver interface {
	Resolve(ctx context.Context, token string) (*models.User, error)
}

// AuthMiddleware attaches the caller named by an "Authorization: Bearer"
// header. Missing, unknown and unresolvable tokens leave the request
// anonymous; methods that need a user reject it themselves.
func AuthMiddleware(resolver TokenResolver) gin.HandlerFunc {
	logger := logging.WithComponent("auth-middleware")
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token != "" {
			user, err := resolver.Resolve(c.Request.Context(), token)
			if err != nil {
				logger.Warn("Failed to resolve session, continuing anonymously", zap.Error(err))
			}
			rpc.SetIdentity(c, user, token)
		}
		c.Next()
	}
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
