package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/authorization-service/internal/application"
	repo "github.com/oksasatya/authorization-service/internal/domain/repository"
	"github.com/oksasatya/authorization-service/internal/domain/security"
	"github.com/oksasatya/authorization-service/pkg/helpers"
	"github.com/oksasatya/authorization-service/pkg/response"
)

// writeError maps service errors to the response envelope.
func writeError(c *gin.Context, logger *logrus.Logger, err error) {
	var ve *repo.ValidationError
	switch {
	case errors.As(err, &ve):
		response.Error[any](c, http.StatusBadRequest, "invalid user", ve.Details)
	case errors.Is(err, repo.ErrDuplicateUser):
		response.Error[any](c, http.StatusConflict, "identifier or email already registered", nil)
	case errors.Is(err, application.ErrInvalidCredentials):
		response.Error[any](c, http.StatusUnauthorized, "invalid credentials", nil)
	case errors.Is(err, application.ErrSessionRevoked):
		response.Error[any](c, http.StatusUnauthorized, "session expired", nil)
	case errors.Is(err, security.ErrAccountDisabled):
		response.Error[any](c, http.StatusForbidden, "account disabled", nil)
	case errors.Is(err, security.ErrAccountLocked),
		errors.Is(err, security.ErrAccountExpired),
		errors.Is(err, security.ErrCredentialsExpired):
		response.Error[any](c, http.StatusForbidden, err.Error(), nil)
	case errors.Is(err, application.ErrInvalidActivationToken):
		response.Error[any](c, http.StatusBadRequest, "invalid or expired token", nil)
	case errors.Is(err, application.ErrUnknownRole):
		response.Error[any](c, http.StatusBadRequest, "unknown role", nil)
	case errors.Is(err, application.ErrUserNotFound):
		response.Error[any](c, http.StatusNotFound, "user not found", nil)
	default:
		helpers.LogError(logger, "request failed", err, logrus.Fields{
			"request_id": c.GetString("request_id"),
			"path":       c.FullPath(),
		})
		response.Error[any](c, http.StatusInternalServerError, "internal error", nil)
	}
}
