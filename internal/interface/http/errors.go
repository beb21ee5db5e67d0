package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Freshwater0/Celestial-SphereX/internal/application"
	"github.com/Freshwater0/Celestial-SphereX/pkg/response"
)

// statusFor maps application errors onto HTTP statuses. Unknown errors are 500.
func statusFor(err error) int {
	var verr *application.ValidationError
	var cerr *application.ConflictError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.As(err, &cerr):
		return http.StatusConflict
	case errors.Is(err, application.ErrInvalidToken):
		return http.StatusBadRequest
	case errors.Is(err, application.ErrInvalidCredentials),
		errors.Is(err, application.ErrEmailNotVerified),
		errors.Is(err, application.ErrCurrentPasswordIncorrect),
		errors.Is(err, application.ErrSessionInvalid):
		return http.StatusUnauthorized
	case errors.Is(err, application.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, application.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, application.ErrUnavailable),
		errors.Is(err, application.ErrAvatarStorageDisabled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeError renders err in the response envelope. Dependency failures keep
// their cause out of the body.
func writeError(c *gin.Context, logger *logrus.Logger, err error) {
	status := statusFor(err)
	var verr *application.ValidationError
	switch {
	case errors.As(err, &verr):
		response.Error[any](c, status, verr.Reason, map[string]string{verr.Field: verr.Reason})
	case errors.Is(err, application.ErrUnavailable):
		response.Error[any](c, status, application.ErrUnavailable.Error(), nil)
	case status == http.StatusInternalServerError:
		if logger != nil {
			logger.WithError(err).WithField("path", c.FullPath()).Error("unhandled error")
		}
		response.Error[any](c, status, "internal server error", nil)
	default:
		response.Error[any](c, status, err.Error(), nil)
	}
}
