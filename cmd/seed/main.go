package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/Freshwater0/Celestial-SphereX/config"
	"github.com/Freshwater0/Celestial-SphereX/internal/application"
	"github.com/Freshwater0/Celestial-SphereX/internal/domain/entity"
	repo "github.com/Freshwater0/Celestial-SphereX/internal/domain/repository"
	pginfra "github.com/Freshwater0/Celestial-SphereX/internal/infrastructure/postgres"
	"github.com/Freshwater0/Celestial-SphereX/pkg/helpers"
)

// seed bootstraps roles and one verified admin account for local development.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env, cfg.LogLevel)
	ctx := context.Background()

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), 2, 1, cfg.DBMaxConnLife, cfg.DBConnectRetries, logger)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()
	db := pginfra.NewDB(pool)

	roles := pginfra.NewRoleRepository(db)
	def, err := application.BootstrapDefaultRole(ctx, roles)
	if err != nil {
		log.Fatalf("failed to ensure default role: %v", err)
	}
	admin, err := roles.Upsert(ctx, "admin", entity.PermRead|entity.PermWrite|entity.PermModerate|entity.PermAdmin)
	if err != nil {
		log.Fatalf("failed to upsert admin role: %v", err)
	}
	if _, err := roles.Upsert(ctx, "moderator", entity.PermRead|entity.PermWrite|entity.PermModerate); err != nil {
		log.Fatalf("failed to upsert moderator role: %v", err)
	}
	fmt.Printf("roles ensured: default=%s(%s) admin=%s\n", def.Name, def.ID, admin.ID)

	email := "admin@spherex.local"
	password := "Adm1n!spherex"
	users := pginfra.NewUserRepository(db)
	if _, err := users.GetByEmail(ctx, email); err == nil {
		fmt.Printf("admin user %s already present\n", email)
		return
	} else if !errors.Is(err, repo.ErrNotFound) {
		log.Fatalf("failed to look up admin user: %v", err)
	}

	hash, err := helpers.NewCredentialStore(cfg.BcryptCost).SetSecret(password)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}
	u := &entity.User{
		Username:      "admin",
		Email:         email,
		PasswordHash:  hash,
		FirstName:     "Sphere",
		LastName:      "Admin",
		IsActive:      true,
		EmailVerified: true,
		IsAdmin:       true,
		RoleID:        admin.ID,
	}
	if err := users.Create(ctx, u); err != nil {
		log.Fatalf("failed to seed admin user: %v", err)
	}
	fmt.Printf("seeded admin: id=%s email=%s password=%s\n", u.ID, email, password)
}
