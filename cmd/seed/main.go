package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/oksasatya/authorization-service/config"
	"github.com/oksasatya/authorization-service/internal/application"
	"github.com/oksasatya/authorization-service/internal/domain/entity"
	"github.com/oksasatya/authorization-service/internal/domain/repository"
	"github.com/oksasatya/authorization-service/internal/infrastructure/storage"
	"github.com/oksasatya/authorization-service/pkg/helpers"
)

// seed creates an enabled ADMIN account, or promotes and enables the existing
// account with the same email. The password of an existing account is kept.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)

	if cfg.SeedAdminPassword == "" {
		log.Fatal("SEED_ADMIN_PASSWORD is required")
	}

	ctx := context.Background()
	repo, closeRepo, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	defer closeRepo()

	hasher := helpers.BcryptHasher(cfg.BcryptCost)
	email := application.NormalizeEmail(cfg.SeedAdminEmail)
	existing, err := repo.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		admin, err := entity.NewUserBuilderWithHasher(hasher).
			Identifier(cfg.SeedAdminIdentifier).
			Username(email).
			Password(cfg.SeedAdminPassword).
			Enabled(true).
			RoleAdmin().
			Build()
		if err != nil {
			log.Fatalf("build admin: %v", err)
		}
		stored, err := repo.Insert(ctx, admin)
		if err != nil {
			log.Fatalf("failed to seed admin: %v", err)
		}
		fmt.Printf("seeded admin: id=%s identifier=%s email=%s\n", stored.ID(), stored.Identifier(), stored.Email())

	case err != nil:
		log.Fatalf("lookup admin: %v", err)

	default:
		admin, err := existing.ToBuilderWithHasher(hasher).Enabled(true).RoleAdmin().Build()
		if err != nil {
			log.Fatalf("build admin: %v", err)
		}
		if err := repo.Save(ctx, admin); err != nil {
			log.Fatalf("failed to promote admin: %v", err)
		}
		fmt.Printf("admin already present: id=%s email=%s (enabled, role ADMIN)\n", admin.ID(), admin.Email())
	}
}
