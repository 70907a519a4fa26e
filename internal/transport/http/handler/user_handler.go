package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-gin-gorm-useradmin/internal/domain"
	"go-gin-gorm-useradmin/internal/service"
	"go-gin-gorm-useradmin/internal/transport/http/ez"
	"go-gin-gorm-useradmin/internal/transport/http/router"
)

// UserAdmin 后台用户管理用例
type UserAdmin interface {
	List(ctx context.Context, p domain.Principal, page domain.Page) (domain.PageResult[domain.User], error)
	GetByID(ctx context.Context, p domain.Principal, id int64) (*domain.User, error)
	Create(ctx context.Context, p domain.Principal, in service.CreateUserInput) (*domain.User, error)
	Update(ctx context.Context, p domain.Principal, id int64, in service.UpdateUserInput) (int64, error)
	Delete(ctx context.Context, p domain.Principal, id int64) error
	ResetPassword(ctx context.Context, p domain.Principal, id int64) error
}

// UserHandler 挂在 /admin/v1/users，仅 admin 可访问
type UserHandler struct {
	svc UserAdmin
	log *zap.Logger
}

func NewUserHandler(svc UserAdmin, l *zap.Logger) *UserHandler {
	return &UserHandler{svc: svc, log: l}
}

func (h *UserHandler) Priority() int { return 20 }

type listQuery struct {
	Page int `form:"page"`
}

type pagination struct {
	Total       int64 `json:"total"`
	PerPage     int   `json:"per_page"`
	CurrentPage int   `json:"current_page"`
	LastPage    int   `json:"last_page"`
}

type listOut struct {
	List       []domain.User `json:"list"`
	Pagination pagination    `json:"pagination"`
}

type idOut struct {
	ID int64 `json:"id"`
}

type updateOut struct {
	ID       int64 `json:"id"`
	Affected int64 `json:"affected"`
}

func (h *UserHandler) MountAdmin(g router.Groups) {
	e := ez.New(g.Authed, h.log)
	admins := []domain.AccessType{domain.AccessAdmin}

	ez.RegisterAction(e, ez.Action[listQuery, listOut]{
		Method: http.MethodGet, Path: "/users", Binder: ez.BindQuery, Roles: admins,
		Handler: h.list,
	})
	ez.RegisterAction(e, ez.Action[struct{}, *domain.User]{
		Method: http.MethodGet, Path: "/users/:id", Binder: ez.BindNone, Roles: admins,
		Handler: h.get,
	})
	ez.RegisterAction(e, ez.Action[service.CreateUserInput, *domain.User]{
		Method: http.MethodPost, Path: "/users", Binder: ez.BindJSON, Roles: admins,
		Handler: h.create,
	})
	for _, m := range []string{http.MethodPost, http.MethodPut} {
		ez.RegisterAction(e, ez.Action[service.UpdateUserInput, updateOut]{
			Method: m, Path: "/users/:id", Binder: ez.BindJSON, Roles: admins,
			Handler: h.update,
		})
	}
	ez.RegisterAction(e, ez.Action[struct{}, idOut]{
		Method: http.MethodDelete, Path: "/users/:id", Binder: ez.BindNone, Roles: admins,
		Handler: h.delete,
	})
	ez.RegisterAction(e, ez.Action[struct{}, idOut]{
		Method: http.MethodPost, Path: "/users/:id/reset-password", Binder: ez.BindNone, Roles: admins,
		Handler: h.resetPassword,
	})
}

func (h *UserHandler) list(c *gin.Context, p domain.Principal, in *listQuery) (listOut, error) {
	res, err := h.svc.List(c.Request.Context(), p, domain.NewPage(in.Page))
	if err != nil {
		return listOut{}, err
	}
	return listOut{
		List: res.Items,
		Pagination: pagination{
			Total:       res.Total,
			PerPage:     res.PerPage,
			CurrentPage: res.Page,
			LastPage:    res.LastPage,
		},
	}, nil
}

func (h *UserHandler) get(c *gin.Context, p domain.Principal, _ *struct{}) (*domain.User, error) {
	id, err := ez.ParamID(c, "id")
	if err != nil {
		return nil, err
	}
	u, err := h.svc.GetByID(c.Request.Context(), p, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ez.NotFound("user not found")
	}
	return u, nil
}

func (h *UserHandler) create(c *gin.Context, p domain.Principal, in *service.CreateUserInput) (*domain.User, error) {
	return h.svc.Create(c.Request.Context(), p, *in)
}

func (h *UserHandler) update(c *gin.Context, p domain.Principal, in *service.UpdateUserInput) (updateOut, error) {
	id, err := ez.ParamID(c, "id")
	if err != nil {
		return updateOut{}, err
	}
	n, err := h.svc.Update(c.Request.Context(), p, id, *in)
	if err != nil {
		return updateOut{}, err
	}
	return updateOut{ID: id, Affected: n}, nil
}

func (h *UserHandler) delete(c *gin.Context, p domain.Principal, _ *struct{}) (idOut, error) {
	id, err := ez.ParamID(c, "id")
	if err != nil {
		return idOut{}, err
	}
	if err := h.svc.Delete(c.Request.Context(), p, id); err != nil {
		return idOut{}, err
	}
	return idOut{ID: id}, nil
}

func (h *UserHandler) resetPassword(c *gin.Context, p domain.Principal, _ *struct{}) (idOut, error) {
	id, err := ez.ParamID(c, "id")
	if err != nil {
		return idOut{}, err
	}
	if err := h.svc.ResetPassword(c.Request.Context(), p, id); err != nil {
		return idOut{}, err
	}
	return idOut{ID: id}, nil
}
