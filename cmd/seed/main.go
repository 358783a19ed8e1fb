package main

import (
	"context"
	"errors"
	"log"

	"pulsegen/internal/config"
	"pulsegen/internal/database"
	"pulsegen/internal/domain"
	"pulsegen/internal/modules/auth"
	"pulsegen/internal/pkg/logger"
	"pulsegen/internal/repository"

	"go.uber.org/zap"
)

type demoUser struct {
	username string
	email    string
	password string
	role     domain.UserRole
}

var demoUsers = []demoUser{
	{"admin", "admin@pulsegen.local", "admin12345", domain.RoleAdmin},
	{"editor", "editor@pulsegen.local", "editor12345", domain.RoleEditor},
	{"viewer", "viewer@pulsegen.local", "viewer12345", domain.RoleViewer},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	zlog, err := logger.New(cfg.LogLevel, "console")
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = zlog.Sync() }()

	db, err := database.Connect(cfg.DatabaseURL, zlog)
	if err != nil {
		zlog.Fatal("DB connection failed", zap.Error(err))
	}

	zlog.Info("running AutoMigrate")
	if err := repository.AutoMigrate(db); err != nil {
		zlog.Fatal("AutoMigrate failed", zap.Error(err))
	}

	users := repository.NewUserRepository(db)
	ctx := context.Background()

	for _, du := range demoUsers {
		hash, err := auth.HashPassword(du.password)
		if err != nil {
			zlog.Fatal("hash password", zap.Error(err))
		}
		u := &domain.User{
			Username:     du.username,
			Email:        du.email,
			PasswordHash: hash,
			Role:         du.role,
		}
		if err := users.Create(ctx, u); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				zlog.Info("user already exists", zap.String("username", du.username))
				continue
			}
			zlog.Fatal("create user", zap.String("username", du.username), zap.Error(err))
		}
		zlog.Info("created user",
			zap.String("username", du.username),
			zap.String("role", string(du.role)),
			zap.String("password", du.password),
		)
	}
}
