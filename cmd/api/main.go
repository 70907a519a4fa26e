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
	"go-gin-gorm-useradmin/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))
	log, cleanup := logger.FromConfig(cfg.Log)
	defer cleanup()
	defer logger.RedirectStdLog(log, zapcore.InfoLevel)()

	app, err := bootstrap.New(context.Background(), cfg, log, cfg.App.Name+"-api")
	if err != nil {
		log.Fatal("bootstrap", zap.Error(err))
	}
	defer app.Close()

	r := router.NewAPIEngine(log, app.JWT, app.Modules, app.RouterOptions())

	h := cfg.App.HTTP
	addr := server.Addr(h.Host, h.Port)
	srv := server.BuildServer(addr, r,
		time.Duration(h.ReadTimeoutSec)*time.Second,
		time.Duration(h.WriteTimeoutSec)*time.Second,
		time.Duration(h.IdleTimeoutSec)*time.Second,
	)

	baseURL := server.HumanURL(h.Host, h.Port)
	log.Info("api starting",
		zap.String("addr", addr),
		zap.String("open", baseURL),
		zap.String("health", baseURL+"/health"),
		zap.String("api_v1", baseURL+"/api/v1"),
	)
	if err := bootstrap.Serve(log, "api", srv); err != nil {
		log.Error("api FAILED", zap.Error(err))
	}
}
