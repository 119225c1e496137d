package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/authorization-service/internal/interface/middleware"
)

// MetricsModule serves Prometheus metrics at /metrics on the engine root.
type MetricsModule struct {
	Engine *gin.Engine
	RDB    *redis.Client
}

func NewMetricsModule(engine *gin.Engine, rdb *redis.Client) *MetricsModule {
	return &MetricsModule{Engine: engine, RDB: rdb}
}

func (m *MetricsModule) Register(_ *gin.RouterGroup) {
	rl := middleware.RateLimit(m.RDB, 120, time.Minute, middleware.KeyByIP(), middleware.AllowPrivateIP())
	m.Engine.GET("/metrics", rl, gin.WrapH(promhttp.Handler()))
}
