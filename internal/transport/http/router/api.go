package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-gin-gorm-useradmin/internal/core/auth"
	mdw "go-gin-gorm-useradmin/internal/transport/http/middleware"
)

// NewAPIEngine 前台：/api/v1
func NewAPIEngine(l *zap.Logger, jwter *auth.JWTer, mods *Registry, o Options) *gin.Engine {
	r := baseEngine(l, "api", o)

	v1 := r.Group("/api/v1")
	mods.MountAPI(Groups{
		Public: v1,
		Authed: v1.Group("", mdw.AuthJWT(jwter)),
	})
	return r
}
