package modules

import (
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/authorization-service/internal/domain/entity"
	handlers "github.com/oksasatya/authorization-service/internal/interface/http"
	"github.com/oksasatya/authorization-service/internal/interface/middleware"
)

// AdminModule exposes account administration to ADMIN principals.
// PUT /api/admin/users/:id/enabled, PUT /api/admin/users/:id/role, GET /api/admin/users/search
type AdminModule struct {
	Handler *handlers.AdminHandler
	Auth    gin.HandlerFunc
}

func NewAdminModule(h *handlers.AdminHandler, auth gin.HandlerFunc) *AdminModule {
	return &AdminModule{Handler: h, Auth: auth}
}

func (m *AdminModule) Register(rg *gin.RouterGroup) {
	admin := rg.Group("/admin")
	admin.Use(m.Auth, middleware.RequireAuthority(entity.RoleAdmin.String()))
	{
		admin.PUT("/users/:id/enabled", m.Handler.SetEnabled)
		admin.PUT("/users/:id/role", m.Handler.SetRole)
		admin.GET("/users/search", m.Handler.Search)
	}
}
