package router

import (
	"github.com/oksasatya/authorization-service/internal/application"
	"github.com/oksasatya/authorization-service/internal/container"
	"github.com/oksasatya/authorization-service/internal/infrastructure/redisstore"
	"github.com/oksasatya/authorization-service/internal/infrastructure/search"
	handlers "github.com/oksasatya/authorization-service/internal/interface/http"
	"github.com/oksasatya/authorization-service/internal/interface/middleware"
	"github.com/oksasatya/authorization-service/internal/router/modules"
	"github.com/oksasatya/authorization-service/pkg/helpers"
)

type ServiceDeps struct {
	Users *application.UserService
	Auth  *application.AuthService
}

func buildServices() ServiceDeps {
	cfg := container.GetConfig()
	logger := container.GetLogger()
	repo := container.GetUserRepo()
	rdb := container.GetRedis()

	var jobs application.JobPublisher
	if pub := container.GetRabbitPub(); pub != nil {
		jobs = pub
	}
	sessions := redisstore.NewSessionStore(rdb, cfg.RefreshTTL)

	users := application.NewUserService(
		repo,
		redisstore.NewActivationStore(rdb),
		sessions,
		jobs,
		search.NewUserIndex(container.GetES(), cfg.ESUsersIndex, logger),
		logger,
		helpers.BcryptHasher(cfg.BcryptCost),
		application.UserServiceConfig{
			AppName:         cfg.AppName,
			ActivationURL:   cfg.ActivationURL,
			ActivationTTL:   cfg.ActivationTTL,
			MailSendEnabled: cfg.MailSendEnabled,
		},
	)
	auth := application.NewAuthService(
		repo,
		container.GetJWT(),
		sessions,
		logger,
	)
	return ServiceDeps{Users: users, Auth: auth}
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) {
	cfg := container.GetConfig()
	logger := container.GetLogger()
	rdb := container.GetRedis()
	deps := buildServices()

	authMW := middleware.Auth(container.GetJWT(), deps.Auth)
	var allow middleware.AllowFunc
	if cfg.Env == "development" {
		allow = middleware.AllowPrivateIP()
	}

	r.Add(modules.NewAuthModule(
		handlers.NewAuthHandler(deps.Users, deps.Auth, logger, cfg.CookieDomain, cfg.CookieSecure),
		authMW, rdb, cfg.RateLimitMax, cfg.RateLimitWindow, allow,
	))
	r.Add(modules.NewUserModule(handlers.NewUserHandler(deps.Users, logger), authMW, rdb))
	r.Add(modules.NewAdminModule(handlers.NewAdminHandler(deps.Users, logger), authMW))
	if cfg.MetricsEnabled {
		r.Add(modules.NewMetricsModule(r.Engine, rdb))
	}
}
