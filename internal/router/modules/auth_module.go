package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/authorization-service/internal/interface/http"
	"github.com/oksasatya/authorization-service/internal/interface/middleware"
)

// AuthModule wires registration, activation and token endpoints.
// Public: POST /api/auth/register, /api/auth/activate, /api/auth/activate/resend, /api/login, /api/refresh
// Protected: POST /api/logout
type AuthModule struct {
	Handler *handlers.AuthHandler
	Auth    gin.HandlerFunc
	RDB     *redis.Client
	Limit   int
	Window  time.Duration
	Allow   middleware.AllowFunc
}

func NewAuthModule(h *handlers.AuthHandler, auth gin.HandlerFunc, rdb *redis.Client, limit int, window time.Duration, allow middleware.AllowFunc) *AuthModule {
	return &AuthModule{Handler: h, Auth: auth, RDB: rdb, Limit: limit, Window: window, Allow: allow}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	perPath := middleware.RateLimit(m.RDB, m.Limit, m.Window, middleware.KeyByIPAndPath(), m.Allow)
	refreshLimiter := middleware.RateLimit(m.RDB, m.Limit*3, m.Window, middleware.KeyByIP(), m.Allow)

	rg.POST("/auth/register", perPath, m.Handler.Register)
	rg.POST("/auth/activate", perPath, m.Handler.Activate)
	rg.POST("/auth/activate/resend", perPath, m.Handler.ResendActivation)
	rg.POST("/login", perPath, m.Handler.Login)
	rg.POST("/refresh", refreshLimiter, m.Handler.Refresh)

	rg.POST("/logout", m.Auth, m.Handler.Logout)
}
