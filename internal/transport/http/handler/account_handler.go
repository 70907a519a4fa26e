package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-gin-gorm-useradmin/internal/core/auth"
	"go-gin-gorm-useradmin/internal/core/throttle"
	"go-gin-gorm-useradmin/internal/domain"
	"go-gin-gorm-useradmin/internal/service"
	"go-gin-gorm-useradmin/internal/transport/http/ez"
	mdw "go-gin-gorm-useradmin/internal/transport/http/middleware"
	"go-gin-gorm-useradmin/internal/transport/http/router"
)

// Account 登录与自助改密
type Account interface {
	Authenticate(ctx context.Context, email, password string) (domain.Principal, error)
	GetByID(ctx context.Context, p domain.Principal, id int64) (*domain.User, error)
	ChangePassword(ctx context.Context, p domain.Principal, in service.ChangePasswordInput) error
}

type AccountHandler struct {
	svc Account
	jwt *auth.JWTer
	log *zap.Logger

	// 为 nil 时不节流
	LoginLimiter    throttle.Limiter
	PasswordLimiter throttle.Limiter
}

func NewAccountHandler(svc Account, jwt *auth.JWTer, l *zap.Logger) *AccountHandler {
	return &AccountHandler{svc: svc, jwt: jwt, log: l}
}

func (h *AccountHandler) Priority() int { return 10 }

type loginIn struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginOut struct {
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
	ExpiresIn int64        `json:"expires_in"`
	User      *domain.User `json:"user"`
}

// MountAPI /api/v1：登录、个人信息、自助改密
func (h *AccountHandler) MountAPI(g router.Groups) {
	pub := ez.New(g.Public, h.log)
	authed := ez.New(g.Authed, h.log)

	ez.RegisterAction(pub, ez.Action[loginIn, loginOut]{
		Method: http.MethodPost, Path: "/auth/login", Binder: ez.BindJSON,
		Before:  h.throttle(h.LoginLimiter, loginKey),
		Handler: h.login(false),
	})
	ez.RegisterAction(authed, ez.Action[struct{}, *domain.User]{
		Method: http.MethodGet, Path: "/me", Binder: ez.BindNone, Auth: true,
		Handler: h.me,
	})
	ez.RegisterAction(authed, ez.Action[service.ChangePasswordInput, struct{}]{
		Method: http.MethodPost, Path: "/me/password", Binder: ez.BindJSON, Auth: true,
		Before:  h.throttle(h.PasswordLimiter, passwordKey),
		Handler: h.changePassword,
	})
}

// MountAdmin /admin/v1：后台登录只放行 admin；改密对任何已登录账号开放
func (h *AccountHandler) MountAdmin(g router.Groups) {
	pub := ez.New(g.Public, h.log)
	authed := ez.New(g.Authed, h.log)

	ez.RegisterAction(pub, ez.Action[loginIn, loginOut]{
		Method: http.MethodPost, Path: "/auth/login", Binder: ez.BindJSON,
		Before:  h.throttle(h.LoginLimiter, loginKey),
		Handler: h.login(true),
	})
	ez.RegisterAction(authed, ez.Action[struct{}, *domain.User]{
		Method: http.MethodGet, Path: "/account", Binder: ez.BindNone, Auth: true,
		Handler: h.me,
	})
	ez.RegisterAction(authed, ez.Action[service.ChangePasswordInput, struct{}]{
		Method: http.MethodPost, Path: "/account/password", Binder: ez.BindJSON, Auth: true,
		Before:  h.throttle(h.PasswordLimiter, passwordKey),
		Handler: h.changePassword,
	})
}

func (h *AccountHandler) throttle(lim throttle.Limiter, key mdw.KeyFunc) []gin.HandlerFunc {
	if lim == nil {
		return nil
	}
	return []gin.HandlerFunc{mdw.Throttle(lim, key, h.log)}
}

func loginKey(c *gin.Context) string { return "login:" + c.ClientIP() }

func passwordKey(c *gin.Context) string {
	p, ok := ez.PrincipalOf(c)
	if !ok {
		return ""
	}
	return "password:" + strconv.FormatInt(p.ID, 10)
}

func (h *AccountHandler) login(adminOnly bool) func(*gin.Context, domain.Principal, *loginIn) (loginOut, error) {
	return func(c *gin.Context, _ domain.Principal, in *loginIn) (loginOut, error) {
		if strings.TrimSpace(in.Email) == "" || in.Password == "" {
			return loginOut{}, ez.BadRequest("email and password are required")
		}
		ctx := c.Request.Context()
		p, err := h.svc.Authenticate(ctx, in.Email, in.Password)
		if errors.Is(err, service.ErrInvalidCredentials) {
			return loginOut{}, ez.Unauthorized("invalid credentials")
		}
		if err != nil {
			return loginOut{}, err
		}
		if adminOnly && !p.IsAdmin() {
			return loginOut{}, ez.Forbidden("admin access required")
		}
		tok, err := h.jwt.Issue(p)
		if err != nil {
			return loginOut{}, err
		}
		u, err := h.svc.GetByID(ctx, p, p.ID)
		if err != nil {
			return loginOut{}, err
		}
		return loginOut{
			Token:     tok,
			TokenType: "Bearer",
			ExpiresIn: int64(h.jwt.TTL.Seconds()),
			User:      u,
		}, nil
	}
}

func (h *AccountHandler) me(c *gin.Context, p domain.Principal, _ *struct{}) (*domain.User, error) {
	u, err := h.svc.GetByID(c.Request.Context(), p, p.ID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ez.NotFound("user not found")
	}
	return u, nil
}

func (h *AccountHandler) changePassword(c *gin.Context, p domain.Principal, in *service.ChangePasswordInput) (struct{}, error) {
	return struct{}{}, h.svc.ChangePassword(c.Request.Context(), p, *in)
}
