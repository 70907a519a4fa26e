package main

import (
	"context"
	"os"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"go-gin-gorm-useradmin/internal/bootstrap"
	"go-gin-gorm-useradmin/internal/core/config"
	"go-gin-gorm-useradmin/internal/core/logger"
	"go-gin-gorm-useradmin/internal/core/server"
	"go-gin-gorm-useradmin/internal/service"
	"go-gin-gorm-useradmin/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))
	log, cleanup := logger.FromConfig(cfg.Log)
	defer cleanup()
	defer logger.RedirectStdLog(log, zapcore.InfoLevel)()

	ctx := context.Background()
	app, err := bootstrap.New(ctx, cfg, log, cfg.App.Name+"-admin")
	if err != nil {
		log.Fatal("bootstrap", zap.Error(err))
	}
	defer app.Close()

	// 首个管理员（已存在则跳过）
	if err := app.Users.EnsureAdmin(ctx, service.AdminSeed{
		Name:     cfg.Seed.AdminName,
		Email:    cfg.Seed.AdminEmail,
		Password: cfg.Seed.AdminPassword,
	}); err != nil {
		log.Fatal("seed admin", zap.Error(err))
	}

	r := router.NewAdminEngine(log, app.JWT, app.Modules, app.RouterOptions())

	h := cfg.App.HTTP
	addr := server.Addr(cfg.App.Admin.Host, cfg.App.Admin.Port)
	srv := server.BuildServer(addr, r,
		time.Duration(h.ReadTimeoutSec)*time.Second,
		time.Duration(h.WriteTimeoutSec)*time.Second,
		time.Duration(h.IdleTimeoutSec)*time.Second,
	)

	baseURL := server.HumanURL(cfg.App.Admin.Host, cfg.App.Admin.Port)
	log.Info("admin api starting",
		zap.String("addr", addr),
		zap.String("open", baseURL),
		zap.String("health", baseURL+"/health"),
		zap.String("admin_v1", baseURL+"/admin/v1"),
	)
	if err := bootstrap.Serve(log, "admin api", srv); err != nil {
		log.Error("admin api FAILED", zap.Error(err))
	}
}
