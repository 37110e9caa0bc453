package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"videotube/internal/config"
	"videotube/internal/domain"
	"videotube/internal/service"
)

const refreshTokenCookie = "refreshToken"

// UserHandler mantiene dependencias para registro y sesión.
type UserHandler struct {
	logger   *zap.Logger
	userServ *service.UserService
	sessions *service.SessionService
	cookies  config.CookieConfig
}

// NewUserHandler crea una instancia de UserHandler con dependencias necesarias.
func NewUserHandler(logger *zap.Logger, userServ *service.UserService, sessions *service.SessionService, cookies config.CookieConfig) *UserHandler {
	return &UserHandler{
		logger:   logger,
		userServ: userServ,
		sessions: sessions,
		cookies:  cookies,
	}
}

// CreateUser maneja POST /users/register.
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req struct {
		Username  string `json:"username" binding:"required"`
		Email     string `json:"email" binding:"required,email"`
		FullName  string `json:"full_name" binding:"required"`
		Password  string `json:"password" binding:"required"`
		AvatarURL string `json:"avatar_url"`
		CoverURL  string `json:"cover_image_url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid create user request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, err := h.userServ.CreateUser(c.Request.Context(), service.CreateUserInput{
		Username:  req.Username,
		Email:     req.Email,
		FullName:  req.FullName,
		Password:  req.Password,
		AvatarURL: req.AvatarURL,
		CoverURL:  req.CoverURL,
	})
	if err != nil {
		writeError(c, h.logger, "create user", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// Login maneja POST /users/login. Acepta username o email.
func (h *UserHandler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid login request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	login := strings.TrimSpace(req.Username)
	if login == "" {
		login = strings.TrimSpace(req.Email)
	}
	if login == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username or email is required"})
		return
	}

	user, err := h.userServ.Authenticate(c.Request.Context(), login, req.Password)
	if err != nil {
		writeError(c, h.logger, "login", err)
		return
	}

	tokens, err := h.sessions.Issue(c.Request.Context(), user.ID)
	if err != nil {
		writeError(c, h.logger, "issue tokens", err)
		return
	}
	h.setSessionCookies(c, tokens)
	c.JSON(http.StatusOK, gin.H{"user": user, "tokens": tokens})
}

// RefreshToken maneja POST /users/refresh-token. Lee la cookie y si no está, el body.
func (h *UserHandler) RefreshToken(c *gin.Context) {
	presented, _ := c.Cookie(refreshTokenCookie)
	if strings.TrimSpace(presented) == "" {
		var req struct {
			RefreshToken string `json:"refresh_token" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			h.logger.Warn("invalid refresh request", zap.Error(err))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing refresh token"})
			return
		}
		presented = req.RefreshToken
	}

	tokens, err := h.sessions.Rotate(c.Request.Context(), presented)
	if err != nil {
		h.clearSessionCookies(c)
		writeError(c, h.logger, "refresh token", err)
		return
	}
	h.setSessionCookies(c, tokens)
	c.JSON(http.StatusOK, gin.H{"tokens": tokens})
}

// Logout maneja POST /users/logout. Requiere JWTAuthMiddleware.
func (h *UserHandler) Logout(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if err := h.sessions.Revoke(c.Request.Context(), claims.UserID); err != nil {
		writeError(c, h.logger, "logout", err)
		return
	}
	h.clearSessionCookies(c)
	c.Status(http.StatusNoContent)
}

// CurrentUser maneja GET /users/me.
func (h *UserHandler) CurrentUser(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	user, err := h.userServ.GetUser(c.Request.Context(), claims.UserID)
	if err != nil {
		writeError(c, h.logger, "current user", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *UserHandler) setSessionCookies(c *gin.Context, tokens domain.TokenPair) {
	c.SetSameSite(h.cookies.SameSiteMode())
	c.SetCookie(accessTokenCookie, tokens.AccessToken, int(tokens.ExpiresIn),
		h.cookies.Path, h.cookies.Domain, h.cookies.Secure, h.cookies.HTTPOnly)
	c.SetCookie(refreshTokenCookie, tokens.RefreshToken, int(h.cookies.MaxAge.Seconds()),
		h.cookies.Path, h.cookies.Domain, h.cookies.Secure, h.cookies.HTTPOnly)
}

func (h *UserHandler) clearSessionCookies(c *gin.Context) {
	c.SetSameSite(h.cookies.SameSiteMode())
	c.SetCookie(accessTokenCookie, "", -1, h.cookies.Path, h.cookies.Domain, h.cookies.Secure, h.cookies.HTTPOnly)
	c.SetCookie(refreshTokenCookie, "", -1, h.cookies.Path, h.cookies.Domain, h.cookies.Secure, h.cookies.HTTPOnly)
}
