package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"videotube/internal/domain"
	"videotube/internal/service"
)

// InteractionHandler expone los toggles de like y suscripción. Requiere JWTAuthMiddleware.
type InteractionHandler struct {
	logger  *zap.Logger
	toggles *service.ToggleService
}

func NewInteractionHandler(logger *zap.Logger, toggles *service.ToggleService) *InteractionHandler {
	return &InteractionHandler{logger: logger, toggles: toggles}
}

// ToggleVideoLike maneja POST /likes/toggle/v/:videoId.
func (h *InteractionHandler) ToggleVideoLike(c *gin.Context) {
	h.toggle(c, domain.EdgeLike, domain.TargetVideo, c.Param("videoId"))
}

// ToggleCommentLike maneja POST /likes/toggle/c/:commentId.
func (h *InteractionHandler) ToggleCommentLike(c *gin.Context) {
	h.toggle(c, domain.EdgeLike, domain.TargetComment, c.Param("commentId"))
}

// ToggleTweetLike maneja POST /likes/toggle/t/:tweetId.
func (h *InteractionHandler) ToggleTweetLike(c *gin.Context) {
	h.toggle(c, domain.EdgeLike, domain.TargetTweet, c.Param("tweetId"))
}

// ToggleSubscription maneja POST /subscriptions/c/:channelId.
func (h *InteractionHandler) ToggleSubscription(c *gin.Context) {
	h.toggle(c, domain.EdgeSubscription, domain.TargetChannel, c.Param("channelId"))
}

func (h *InteractionHandler) toggle(c *gin.Context, kind domain.EdgeKind, targetType domain.TargetType, targetID string) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	res, err := h.toggles.Toggle(c.Request.Context(), domain.NewEdgeKey(claims.UserID, kind, targetType, targetID))
	if err != nil {
		writeError(c, h.logger, "toggle "+string(kind), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"active":      res.Active,
		"target_type": res.Key.TargetType,
		"target_id":   res.Key.TargetID,
	})
}
