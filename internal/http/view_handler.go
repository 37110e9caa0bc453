package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"videotube/internal/domain"
	"videotube/internal/service"
)

// ViewHandler expone las vistas derivadas de solo lectura.
type ViewHandler struct {
	logger *zap.Logger
	views  *service.ViewAggregator
}

func NewViewHandler(logger *zap.Logger, views *service.ViewAggregator) *ViewHandler {
	return &ViewHandler{logger: logger, views: views}
}

// ChannelProfile maneja GET /channels/:channelId.
func (h *ViewHandler) ChannelProfile(c *gin.Context) {
	view, err := h.views.ChannelProfile(c.Request.Context(), c.Param("channelId"), viewerID(c))
	if err != nil {
		writeError(c, h.logger, "channel profile", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// ChannelStats maneja GET /channels/:channelId/stats.
func (h *ViewHandler) ChannelStats(c *gin.Context) {
	stats, err := h.views.ChannelStats(c.Request.Context(), c.Param("channelId"), viewerID(c))
	if err != nil {
		writeError(c, h.logger, "channel stats", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// DashboardStats maneja GET /dashboard/stats para el canal del usuario autenticado.
func (h *ViewHandler) DashboardStats(c *gin.Context) {
	viewer := viewerID(c)
	stats, err := h.views.ChannelStats(c.Request.Context(), viewer, viewer)
	if err != nil {
		writeError(c, h.logger, "dashboard stats", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// SubscriberCount maneja GET /subscriptions/c/:channelId/count.
func (h *ViewHandler) SubscriberCount(c *gin.Context) {
	count, err := h.views.SubscriberCount(c.Request.Context(), c.Param("channelId"))
	if err != nil {
		writeError(c, h.logger, "subscriber count", err)
		return
	}
	c.JSON(http.StatusOK, count)
}

// Video maneja GET /videos/:videoId.
func (h *ViewHandler) Video(c *gin.Context) {
	view, err := h.views.VideoWithEngagement(c.Request.Context(), c.Param("videoId"), viewerID(c))
	if err != nil {
		writeError(c, h.logger, "video", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Playlist maneja GET /playlists/:playlistId.
func (h *ViewHandler) Playlist(c *gin.Context) {
	view, err := h.views.PlaylistWithVideos(c.Request.Context(), c.Param("playlistId"), viewerID(c))
	if err != nil {
		writeError(c, h.logger, "playlist", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// ListVideos maneja GET /videos con query, owner_id y orden.
func (h *ViewHandler) ListVideos(c *gin.Context) {
	h.list(c, domain.EntityVideo, domain.ListFilter{
		OwnerID:       c.Query("owner_id"),
		Query:         c.Query("query"),
		PublishedOnly: true,
	})
}

// ChannelVideos maneja GET /channels/:channelId/videos. El dueño ve también los no publicados.
func (h *ViewHandler) ChannelVideos(c *gin.Context) {
	channelID := c.Param("channelId")
	h.list(c, domain.EntityVideo, domain.ListFilter{
		OwnerID:       channelID,
		Query:         c.Query("query"),
		PublishedOnly: !domain.SameIdentity(channelID, viewerID(c)),
	})
}

// ChannelTweets maneja GET /channels/:channelId/tweets.
func (h *ViewHandler) ChannelTweets(c *gin.Context) {
	h.list(c, domain.EntityTweet, domain.ListFilter{OwnerID: c.Param("channelId")})
}

// ChannelPlaylists maneja GET /channels/:channelId/playlists.
func (h *ViewHandler) ChannelPlaylists(c *gin.Context) {
	h.list(c, domain.EntityPlaylist, domain.ListFilter{OwnerID: c.Param("channelId"), Query: c.Query("query")})
}

// VideoComments maneja GET /videos/:videoId/comments.
func (h *ViewHandler) VideoComments(c *gin.Context) {
	h.list(c, domain.EntityComment, domain.ListFilter{VideoID: c.Param("videoId")})
}

// LikedVideos maneja GET /likes/videos. Solo lista los likes del propio usuario.
func (h *ViewHandler) LikedVideos(c *gin.Context) {
	page, pageSize, ok := h.pageParams(c)
	if !ok {
		return
	}
	res, err := h.views.LikedVideos(c.Request.Context(), viewerID(c), page, pageSize)
	if err != nil {
		writeError(c, h.logger, "liked videos", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// SubscribedChannels maneja GET /subscriptions/channels.
func (h *ViewHandler) SubscribedChannels(c *gin.Context) {
	page, pageSize, ok := h.pageParams(c)
	if !ok {
		return
	}
	res, err := h.views.SubscribedChannels(c.Request.Context(), viewerID(c), page, pageSize)
	if err != nil {
		writeError(c, h.logger, "subscribed channels", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *ViewHandler) list(c *gin.Context, entityType domain.EntityType, filter domain.ListFilter) {
	page, pageSize, ok := h.pageParams(c)
	if !ok {
		return
	}
	res, err := h.views.PaginatedList(c.Request.Context(), entityType, filter, domain.PageRequest{
		Page:     page,
		PageSize: pageSize,
		SortKey:  c.Query("sort_by"),
		SortDir:  domain.SortDir(c.Query("sort_type")),
	})
	if err != nil {
		writeError(c, h.logger, "list "+string(entityType), err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// pageParams lee page y limit; ausentes toman 1 y el tamaño por defecto.
func (h *ViewHandler) pageParams(c *gin.Context) (int, int, bool) {
	page, ok := intQuery(c, "page", 1)
	if !ok {
		return 0, 0, false
	}
	pageSize, ok := intQuery(c, "limit", h.views.DefaultPageSize())
	if !ok {
		return 0, 0, false
	}
	return page, pageSize, true
}

func intQuery(c *gin.Context, name string, fallback int) (int, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return fallback, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be an integer", "code": domain.ErrInvalidInput.Code})
		return 0, false
	}
	return v, true
}
