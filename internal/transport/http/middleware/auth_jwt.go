package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"go-gin-gorm-useradmin/internal/core/auth"
	"go-gin-gorm-useradmin/internal/transport/http/ez"
	resp "go-gin-gorm-useradmin/internal/transport/http/response"
)

// AuthJWT 校验 Bearer token 并写入 Principal；访问级别由各 Action 的 Roles 判定
func AuthJWT(j *auth.JWTer) gin.HandlerFunc {
	return func(c *gin.Context) {
		ah := c.GetHeader("Authorization")
		if !strings.HasPrefix(ah, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusOK, resp.Error(resp.CodeUnauthorized, "missing token"))
			return
		}
		claims, err := j.Parse(strings.TrimPrefix(ah, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusOK, resp.Error(resp.CodeUnauthorized, "invalid token"))
			return
		}
		ez.SetPrincipal(c, claims.Principal())
		c.Next()
	}
}
