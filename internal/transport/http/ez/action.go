package ez

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-gin-gorm-useradmin/internal/domain"
	"go-gin-gorm-useradmin/internal/service"
	resp "go-gin-gorm-useradmin/internal/transport/http/response"
)

// KeyPrincipal gin.Context 中保存当前登录人的 key（由 AuthJWT 写入）
const KeyPrincipal = "principal"

func SetPrincipal(c *gin.Context, p domain.Principal) { c.Set(KeyPrincipal, p) }

func PrincipalOf(c *gin.Context) (domain.Principal, bool) {
	v, ok := c.Get(KeyPrincipal)
	if !ok {
		return domain.Principal{}, false
	}
	p, ok := v.(domain.Principal)
	return p, ok && p.ID != 0
}

type EZ struct {
	g   *gin.RouterGroup
	log *zap.Logger
}

func New(g *gin.RouterGroup, l *zap.Logger) EZ {
	if l == nil {
		l = zap.NewNop()
	}
	return EZ{g: g, log: l}
}

// 绑定方式
type Binder string

const (
	BindJSON  Binder = "json"  // 从 JSON 绑定
	BindQuery Binder = "query" // 从 URL ?a=b 绑定
	BindNone  Binder = "none"  // 不绑定，自己从 c.Param 取
)

// AErr 传输层错误，直接映射成 {code,msg}
type AErr struct {
	Code int
	Msg  string
	Err  error
}

func (e *AErr) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "action error"
}

func (e *AErr) Unwrap() error { return e.Err }

func BadRequest(msg string) error   { return &AErr{Code: resp.CodeBadRequest, Msg: msg} }
func Unauthorized(msg string) error { return &AErr{Code: resp.CodeUnauthorized, Msg: msg} }
func Forbidden(msg string) error    { return &AErr{Code: resp.CodeForbidden, Msg: msg} }
func NotFound(msg string) error     { return &AErr{Code: resp.CodeNotFound, Msg: msg} }

// Action I 入参，O 出参
type Action[I any, O any] struct {
	Method  string // GET / POST / PUT / DELETE
	Path    string // 例："/users/:id/reset-password"
	Binder  Binder
	Auth    bool                // 是否要求登录
	Roles   []domain.AccessType // 限定访问级别（隐含 Auth）
	Before  []gin.HandlerFunc   // 路由级中间件，如节流
	Handler func(c *gin.Context, p domain.Principal, in *I) (O, error)
}

func RegisterAction[I any, O any](e EZ, a Action[I, O]) {
	h := func(c *gin.Context) {
		// 1) 鉴权 / 访问级别
		p, authed := PrincipalOf(c)
		if (a.Auth || len(a.Roles) > 0) && !authed {
			c.JSON(http.StatusOK, resp.Error(resp.CodeUnauthorized, "unauthorized"))
			return
		}
		if len(a.Roles) > 0 && !hasRole(p, a.Roles) {
			c.JSON(http.StatusOK, resp.Error(resp.CodeForbidden, "forbidden"))
			return
		}

		// 2) 绑定入参
		var in I
		var bindErr error
		switch a.Binder {
		case BindJSON:
			bindErr = c.ShouldBindJSON(&in)
		case BindQuery:
			bindErr = c.ShouldBindQuery(&in)
		}
		if bindErr != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(bindErr, &tooLarge) {
				c.JSON(http.StatusOK, resp.Error(resp.CodeBadRequest, "request body too large"))
				return
			}
			c.JSON(http.StatusOK, resp.Error(resp.CodeBadRequest, "malformed request"))
			return
		}

		// 3) 执行 + 统一错误映射
		out, err := a.Handler(c, p, &in)
		if err != nil {
			e.WriteError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp.OK(out))
	}

	chain := append(append([]gin.HandlerFunc{}, a.Before...), h)
	e.g.Handle(strings.ToUpper(a.Method), a.Path, chain...)
}

// WriteError 错误 → 信封。ServiceError 只回固定文案，细节已由 service 记日志
func (e EZ) WriteError(c *gin.Context, err error) {
	var (
		ae *AErr
		ve *service.ValidationError
		se *service.ServiceError
	)
	switch {
	case errors.As(err, &ae):
		c.JSON(http.StatusOK, resp.Error(ae.Code, ae.Error()))
	case errors.As(err, &ve):
		c.JSON(http.StatusOK, resp.Fail(resp.CodeValidation, "", gin.H{"fields": ve.Fields}))
	case errors.As(err, &se):
		c.JSON(http.StatusOK, resp.Error(resp.CodeServerError, service.ServiceErrorMessage))
	default:
		e.log.Error("unhandled action error", zap.Error(err), zap.String("path", c.FullPath()))
		c.JSON(http.StatusOK, resp.Error(resp.CodeServerError, service.ServiceErrorMessage))
	}
}

// ParamID 解析正整数路径参数
func ParamID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, BadRequest("invalid " + name)
	}
	return id, nil
}

func hasRole(p domain.Principal, roles []domain.AccessType) bool {
	for _, r := range roles {
		if p.AccessType == r {
			return true
		}
	}
	return false
}
