package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"videotube/internal/domain"
)

// statusFor traduce la clase del error a un status HTTP.
func statusFor(err error) int {
	var derr *domain.Error
	if !errors.As(err, &derr) {
		return http.StatusInternalServerError
	}
	if errors.Is(err, domain.ErrRateLimited) {
		return http.StatusTooManyRequests
	}
	switch derr.Kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindAuth:
		return http.StatusUnauthorized
	case domain.KindUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeError responde con {"error", "code"}; los 5xx no exponen el detalle interno.
func writeError(c *gin.Context, logger *zap.Logger, action string, err error) {
	status := statusFor(err)
	body := gin.H{"error": "internal error"}

	var derr *domain.Error
	if errors.As(err, &derr) {
		body["code"] = derr.Code
		if status < http.StatusInternalServerError && derr.Message != "" {
			body["error"] = derr.Message
		}
		if derr.RetryAfter > 0 {
			c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(derr.RetryAfter)))
		}
	}

	if status >= http.StatusInternalServerError {
		logger.Error(action+" failed", zap.Error(err))
	} else {
		logger.Warn(action+" rejected", zap.Int("status", status), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, body)
}

// retryAfterSeconds redondea hacia arriba: Retry-After solo admite segundos enteros.
func retryAfterSeconds(d time.Duration) int {
	return int((d + time.Second - 1) / time.Second)
}
