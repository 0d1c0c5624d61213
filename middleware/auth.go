package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kamtour/tourism/models"
	"github.com/kamtour/tourism/utils"
)

const (
	// ContextIdentityKey stores the authenticated models.Identity in the Gin context.
	ContextIdentityKey = "identity"
	// ContextTokenKey stores the raw bearer token, used by logout.
	ContextTokenKey = "token"
)

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(ctx *gin.Context) (string, int, string) {
	authHeader := ctx.GetHeader("Authorization")
	if authHeader == "" {
		return "", 40101, "authorization header missing"
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", 40102, "invalid authorization header format"
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", 40103, "empty bearer token"
	}
	return token, 0, ""
}

// AuthRequired ensures the request is authenticated via JWT and exposes the
// caller as a models.Identity.
func AuthRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token, code, msg := BearerToken(ctx)
		if code != 0 {
			utils.Error(ctx, http.StatusUnauthorized, code, msg)
			ctx.Abort()
			return
		}

		if utils.IsTokenBlacklisted(token) {
			utils.Error(ctx, http.StatusUnauthorized, 40104, "token revoked")
			ctx.Abort()
			return
		}

		claims, err := utils.ParseToken(token)
		if err != nil {
			utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
			ctx.Abort()
			return
		}

		ctx.Set(ContextIdentityKey, claims.Identity())
		ctx.Set(ContextTokenKey, token)
		ctx.Next()
	}
}

// AdminRequired rejects authenticated callers without the admin role. It must
// run after AuthRequired.
func AdminRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		who, ok := CurrentIdentity(ctx)
		if !ok {
			utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
			ctx.Abort()
			return
		}
		if !who.IsAdmin() {
			utils.Error(ctx, http.StatusForbidden, 40301, "admin access required")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

// CurrentIdentity returns the caller set by AuthRequired.
func CurrentIdentity(ctx *gin.Context) (models.Identity, bool) {
	v, ok := ctx.Get(ContextIdentityKey)
	if !ok {
		return models.Identity{}, false
	}
	who, ok := v.(models.Identity)
	return who, ok && who.UserID != 0
}
