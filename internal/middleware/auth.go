package middleware

import (
	"strings"

	"todoshi/auth"
	"todoshi/internal/errors"

	"github.com/gin-gonic/gin"
)

// ContextUserID is the gin context key holding the verified subject
const ContextUserID = "user_id"

type Auth struct {
	Verifier auth.Verifier
}

// BearerToken extracts the credential from the Authorization header or the
// token query parameter (browsers can't set headers on websocket upgrades).
func BearerToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return c.Query("token")
}

func (m *Auth) AuthMiddleWare() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token := BearerToken(ctx)
		if token == "" {
			ctx.Error(errors.Unauthorized("Authorization is not found!", nil))
			ctx.Abort()
			return
		}

		identity, err := m.Verifier.Verify(ctx.Request.Context(), token)
		if err != nil {
			ctx.Error(errors.Unauthorized("Invalid token!", err))
			ctx.Abort()
			return
		}

		ctx.Set(ContextUserID, identity.UserID)
		ctx.Set("jwt_token", token)
		ctx.Next()
	}
}
