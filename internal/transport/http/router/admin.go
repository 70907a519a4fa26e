package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-gin-gorm-useradmin/internal/core/auth"
	mdw "go-gin-gorm-useradmin/internal/transport/http/middleware"
)

// NewAdminEngine 后台：/admin/v1。访问级别由各 Action 的 Roles 控制
func NewAdminEngine(l *zap.Logger, jwter *auth.JWTer, mods *Registry, o Options) *gin.Engine {
	r := baseEngine(l, "admin", o)

	v1 := r.Group("/admin/v1")
	mods.MountAdmin(Groups{
		Public: v1,
		Authed: v1.Group("", mdw.AuthJWT(jwter)),
	})
	return r
}
