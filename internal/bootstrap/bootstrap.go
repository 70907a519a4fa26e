// Package bootstrap admin / api 两个进程共用的依赖组装与优雅退出
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"go-gin-gorm-useradmin/internal/core/auth"
	"go-gin-gorm-useradmin/internal/core/config"
	"go-gin-gorm-useradmin/internal/core/database"
	"go-gin-gorm-useradmin/internal/core/logger"
	"go-gin-gorm-useradmin/internal/core/server"
	"go-gin-gorm-useradmin/internal/core/throttle"
	"go-gin-gorm-useradmin/internal/core/tracing"
	"go-gin-gorm-useradmin/internal/repo"
	"go-gin-gorm-useradmin/internal/service"
	"go-gin-gorm-useradmin/internal/transport/http/handler"
	"go-gin-gorm-useradmin/internal/transport/http/router"
	"go-gin-gorm-useradmin/pkg/utils"
)

type App struct {
	Cfg     *config.Config
	Log     *zap.Logger
	DB      *gorm.DB
	Users   *service.UserService
	JWT     *auth.JWTer
	Modules *router.Registry

	closers []func()
}

// New 打开数据库、迁移、组装 service 与 handler。name 用于 trace 的 service.name
func New(ctx context.Context, cfg *config.Config, l *zap.Logger, name string) (*App, error) {
	a := &App{Cfg: cfg, Log: l}

	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
		SlowThresholdMs:    cfg.DB.SlowThresholdMs,
		Writer:             logger.NewGormWriter(l),
	})
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	a.DB = db
	a.onClose(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	l.Info("database connected", zap.String("driver", cfg.DB.Driver))

	users := repo.NewUserRepo(db)
	if cfg.DB.AutoMigrate {
		if err := users.Migrate(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}

	if cfg.Tracing.Enable {
		shutdown, err := tracing.Init(ctx, name, cfg.Tracing.Endpoint)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.onClose(func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(sctx)
		})
	}

	a.Users = service.NewUserService(users, utils.NewBcryptHasher(cfg.Account.BcryptCost), l, service.Options{
		DefaultPassword: cfg.Account.DefaultPassword,
	})
	a.JWT = &auth.JWTer{
		Secret: []byte(cfg.JWT.Secret),
		Issuer: cfg.JWT.Issuer,
		TTL:    time.Duration(cfg.JWT.AccessTokenTTLMin) * time.Minute,
	}

	account := handler.NewAccountHandler(a.Users, a.JWT, l)
	account.LoginLimiter = a.limiter("throttle:login:")
	account.PasswordLimiter = a.limiter("throttle:password:")
	a.Modules = router.NewRegistry(account, handler.NewUserHandler(a.Users, l))
	return a, nil
}

// limiter 配了 redis.addr 时多实例共享计数，否则进程内
func (a *App) limiter(prefix string) throttle.Limiter {
	n := a.Cfg.Limits.AuthPerMinute
	if n <= 0 {
		return nil
	}
	if a.Cfg.Redis.Addr == "" {
		return throttle.NewLocalLimiter(n, time.Minute)
	}
	rdb := throttle.NewRedisClient(a.Cfg.Redis.Addr, a.Cfg.Redis.Password, a.Cfg.Redis.DB)
	a.onClose(func() { _ = rdb.Close() })
	return throttle.NewRedisLimiter(rdb, prefix, n, time.Minute)
}

func (a *App) RouterOptions() router.Options {
	return router.Options{
		Name:           a.Cfg.App.Name,
		Mode:           server.GinMode(a.Cfg.App.Env),
		CORSOrigins:    a.Cfg.App.CORSOrigins,
		TrustedProxies: a.Cfg.App.TrustedProxies,
		Tracing:        a.Cfg.Tracing.Enable,
		Limits:         a.Cfg.Limits,
		Health: func(ctx context.Context) error {
			sqlDB, err := a.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
}

func (a *App) onClose(f func()) { a.closers = append(a.closers, f) }

// Close 逆序释放
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// Serve 启动 HTTP 服务，收到 SIGINT/SIGTERM 后在 10s 内优雅关闭
func Serve(l *zap.Logger, name string, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	l.Info(name+" started", zap.String("addr", srv.Addr))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		if err == nil {
			return nil
		}
		return fmt.Errorf("%s start: %w", name, err)
	case <-quit:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("%s shutdown: %w", name, err)
	}
	l.Info(name + " stopped gracefully")
	return nil
}
