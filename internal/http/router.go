package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"videotube/internal/metrics"
	"videotube/internal/service"
)

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(
	logger *zap.Logger,
	m *metrics.Metrics,
	metricsH http.Handler,
	sessions *service.SessionService,
	userH *UserHandler,
	interactionH *InteractionHandler,
	viewH *ViewHandler,
	healthH *HealthHandler,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, métricas, recovery y JSON content-type.
	r.Use(zapLoggerMiddleware(logger), metricsMiddleware(m), gin.Recovery(), jsonContentTypeMiddleware())

	requireAuth := JWTAuthMiddleware(logger, sessions)
	optionalAuth := OptionalAuthMiddleware(logger, sessions)

	r.GET("/healthcheck", healthH.Healthcheck)
	if metricsH != nil {
		r.GET("/metrics", gin.WrapH(metricsH))
	}

	users := r.Group("/users")
	users.POST("/register", userH.CreateUser)
	users.POST("/login", userH.Login)
	users.POST("/refresh-token", userH.RefreshToken)
	users.POST("/logout", requireAuth, userH.Logout)
	users.GET("/me", requireAuth, userH.CurrentUser)

	likes := r.Group("/likes", requireAuth)
	likes.POST("/toggle/v/:videoId", interactionH.ToggleVideoLike)
	likes.POST("/toggle/c/:commentId", interactionH.ToggleCommentLike)
	likes.POST("/toggle/t/:tweetId", interactionH.ToggleTweetLike)
	likes.GET("/videos", viewH.LikedVideos)

	subs := r.Group("/subscriptions")
	subs.POST("/c/:channelId", requireAuth, interactionH.ToggleSubscription)
	subs.GET("/c/:channelId/count", viewH.SubscriberCount)
	subs.GET("/channels", requireAuth, viewH.SubscribedChannels)

	channels := r.Group("/channels", optionalAuth)
	channels.GET("/:channelId", viewH.ChannelProfile)
	channels.GET("/:channelId/stats", viewH.ChannelStats)
	channels.GET("/:channelId/videos", viewH.ChannelVideos)
	channels.GET("/:channelId/tweets", viewH.ChannelTweets)
	channels.GET("/:channelId/playlists", viewH.ChannelPlaylists)

	videos := r.Group("/videos", optionalAuth)
	videos.GET("", viewH.ListVideos)
	videos.GET("/:videoId", viewH.Video)
	videos.GET("/:videoId/comments", viewH.VideoComments)

	r.GET("/playlists/:playlistId", optionalAuth, viewH.Playlist)
	r.GET("/dashboard/stats", requireAuth, viewH.DashboardStats)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("route", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// metricsMiddleware registra requests por ruta (patrón, no path) para acotar cardinalidad.
func metricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RequestObserved(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
