package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"videotube/internal/domain"
	"videotube/internal/service"
)

const (
	authClaimsKey     = "auth_claims"
	accessTokenCookie = "accessToken"
)

// JWTAuthMiddleware exige un access token válido (header Bearer o cookie) y guarda claims en el contexto.
func JWTAuthMiddleware(logger *zap.Logger, sessions *service.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if sessions == nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "jwt not configured"})
			return
		}

		token := accessTokenFromRequest(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token", "code": domain.ErrMalformedToken.Code})
			return
		}

		claims, err := sessions.ParseAccessToken(token)
		if err != nil {
			writeError(c, logger, "authenticate", err)
			return
		}

		c.Set(authClaimsKey, claims)
		c.Next()
	}
}

// OptionalAuthMiddleware acepta requests anónimos. Un token presente pero inválido se rechaza.
func OptionalAuthMiddleware(logger *zap.Logger, sessions *service.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := accessTokenFromRequest(c)
		if token == "" || sessions == nil {
			c.Next()
			return
		}
		claims, err := sessions.ParseAccessToken(token)
		if err != nil {
			writeError(c, logger, "authenticate", err)
			return
		}
		c.Set(authClaimsKey, claims)
		c.Next()
	}
}

// GetAuthClaims obtiene claims de JWT desde el contexto.
func GetAuthClaims(c *gin.Context) (service.Claims, bool) {
	val, ok := c.Get(authClaimsKey)
	if !ok {
		return service.Claims{}, false
	}
	claims, ok := val.(service.Claims)
	return claims, ok
}

// viewerID es el usuario autenticado o "" si el request es anónimo.
func viewerID(c *gin.Context) string {
	claims, ok := GetAuthClaims(c)
	if !ok {
		return ""
	}
	return claims.UserID
}

func accessTokenFromRequest(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(header) > len("bearer ") && strings.EqualFold(header[:len("bearer ")], "bearer ") {
		return strings.TrimSpace(header[len("bearer "):])
	}
	if cookie, err := c.Cookie(accessTokenCookie); err == nil {
		return strings.TrimSpace(cookie)
	}
	return ""
}
