package rpc

import (
	"github.com/gin-gonic/gin"

	"github.com/scrollkit/cardfeed/internal/models"
)

const (
	userKey  = "cardfeed.user"
	tokenKey = "cardfeed.token"
)

// SetIdentity stores the resolved caller on the request
func SetIdentity(c *gin.Context, user *models.User, token string) {
	if user != nil {
		c.Set(userKey, user)
	}
	if token != "" {
		c.Set(tokenKey, token)
	}
}

// CurrentUser returns the signed-in caller, or nil for anonymous requests
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(userKey); ok {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}

// BearerToken returns the token the caller presented, if any
func BearerToken(c *gin.Context) string {
	return c.GetString(tokenKey)
}
