package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/authorization-service/internal/application"
	"github.com/oksasatya/authorization-service/pkg/response"
	"github.com/oksasatya/authorization-service/pkg/validation"
)

type UserHandler struct {
	Users  *application.UserService
	Logger *logrus.Logger
}

func NewUserHandler(users *application.UserService, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Users: users, Logger: logger}
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,pwd,max=72,nefield=CurrentPassword"`
}

// Me GET /api/me
func (h *UserHandler) Me(c *gin.Context) {
	u, err := h.Users.GetProfile(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, userView(u), "profile", nil)
}

// ChangePassword PUT /api/me/password
func (h *UserHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	err := h.Users.ChangePassword(c.Request.Context(), c.GetString("userID"), req.CurrentPassword, req.NewPassword)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusOK, gin.H{"changed": true}, "password updated; sign in again", nil)
}
