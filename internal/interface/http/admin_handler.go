package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/authorization-service/internal/application"
	"github.com/oksasatya/authorization-service/internal/domain/entity"
	"github.com/oksasatya/authorization-service/pkg/helpers"
	"github.com/oksasatya/authorization-service/pkg/response"
	"github.com/oksasatya/authorization-service/pkg/validation"
)

type AdminHandler struct {
	Users  *application.UserService
	Logger *logrus.Logger
}

func NewAdminHandler(users *application.UserService, logger *logrus.Logger) *AdminHandler {
	return &AdminHandler{Users: users, Logger: logger}
}

type setEnabledRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

type setRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=USER ADMIN"`
}

// SetEnabled PUT /api/admin/users/:id/enabled {enabled}
func (h *AdminHandler) SetEnabled(c *gin.Context) {
	var req setEnabledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u, err := h.Users.SetEnabled(c.Request.Context(), c.Param("id"), *req.Enabled)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	h.audit(c, "set_enabled", u)
	response.Success(c, http.StatusOK, userView(u), "user updated", nil)
}

// SetRole PUT /api/admin/users/:id/role {role}
func (h *AdminHandler) SetRole(c *gin.Context) {
	var req setRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	role, err := entity.ParseRole(req.Role)
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "unknown role", nil)
		return
	}
	u, err := h.Users.SetRole(c.Request.Context(), c.Param("id"), role)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	h.audit(c, "set_role", u)
	response.Success(c, http.StatusOK, userView(u), "user updated", nil)
}

// Search GET /api/admin/users/search?q=&size=
func (h *AdminHandler) Search(c *gin.Context) {
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))
	hits, err := h.Users.SearchUsers(c.Request.Context(), c.Query("q"), size)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, hits, "search results", map[string]any{"count": len(hits)})
}

func (h *AdminHandler) audit(c *gin.Context, action string, u *entity.User) {
	helpers.LogInfo(h.Logger, "admin action", logrus.Fields{
		"action":   action,
		"actor_id": c.GetString("userID"),
		"user_id":  u.ID(),
		"enabled":  u.IsEnabled(),
		"roles":    u.Authorities(),
	})
}
