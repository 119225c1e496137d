package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/authorization-service/internal/interface/http"
	"github.com/oksasatya/authorization-service/internal/interface/middleware"
)

// UserModule serves the authenticated principal's own account.
// Protected: GET /api/me, PUT /api/me/password
type UserModule struct {
	Handler *handlers.UserHandler
	Auth    gin.HandlerFunc
	RDB     *redis.Client
}

func NewUserModule(h *handlers.UserHandler, auth gin.HandlerFunc, rdb *redis.Client) *UserModule {
	return &UserModule{Handler: h, Auth: auth, RDB: rdb}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	me := rg.Group("/me")
	me.Use(m.Auth, middleware.RateLimit(m.RDB, 120, time.Minute, middleware.KeyByUserID(), nil))
	{
		me.GET("", m.Handler.Me)
		me.PUT("/password", m.Handler.ChangePassword)
	}
}
