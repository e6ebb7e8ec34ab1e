package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "raffle-board-backend/internal/common/errors"
	"raffle-board-backend/internal/common/logger"
)

// RequestID tags every request, propagating an incoming X-Request-ID when
// present.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

func getRequestID(c *gin.Context) string {
	if id, exists := c.Get("request_id"); exists {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}

// Recovery converts panics into a logged internal error response.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		requestID := getRequestID(c)

		logger.Error().
			Str("request_id", requestID).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("panic", fmt.Sprintf("%v", recovered)).
			Str("stack", string(debug.Stack())).
			Msg("Panic recovered")

		appErr := apperrors.New(apperrors.ErrCodeInternal, "Internal server error").
			WithRequestID(requestID)
		writeError(c, appErr)
	})
}

// RequestLogger logs each request with latency and status.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		event := logger.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			event = logger.Error()
		}

		event.
			Str("request_id", getRequestID(c)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("Request handled")
	}
}

// ErrorResponse is the error envelope every failure is rendered as.
type ErrorResponse struct {
	Success   bool               `json:"success"`
	Error     *apperrors.AppError `json:"error"`
	Timestamp time.Time          `json:"timestamp"`
}

// AbortWithError renders err as a typed error response. Unclassified errors
// become internal errors without leaking their cause.
func AbortWithError(c *gin.Context, err error) {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		appErr = apperrors.Wrap(err, apperrors.ErrCodeInternal, "Internal server error")
	}
	appErr = appErr.WithRequestID(getRequestID(c))

	if appErr.IsInternal() {
		logger.Error().
			Err(appErr).
			Str("request_id", appErr.RequestID).
			Str("path", c.Request.URL.Path).
			Msg("Request failed")
	}

	writeError(c, appErr)
}

func writeError(c *gin.Context, appErr *apperrors.AppError) {
	c.AbortWithStatusJSON(statusFor(appErr), ErrorResponse{
		Success:   false,
		Error:     sanitize(appErr),
		Timestamp: time.Now().UTC(),
	})
}

func statusFor(appErr *apperrors.AppError) int {
	switch {
	case appErr.IsValidation():
		return http.StatusBadRequest
	case appErr.Code == apperrors.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case appErr.Code == apperrors.ErrCodeForbidden:
		return http.StatusForbidden
	case appErr.IsNotFound():
		return http.StatusNotFound
	case appErr.IsConflict():
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// sanitize strips internal detail from errors that cross the boundary.
func sanitize(appErr *apperrors.AppError) *apperrors.AppError {
	if !appErr.IsInternal() {
		return appErr
	}
	return &apperrors.AppError{
		Code:      apperrors.ErrCodeInternal,
		Message:   "Internal server error",
		Timestamp: appErr.Timestamp,
		RequestID: appErr.RequestID,
	}
}
