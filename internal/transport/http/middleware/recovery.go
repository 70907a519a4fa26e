package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	resp "go-gin-gorm-useradmin/internal/transport/http/response"
)

// PanicEnvelope 作为 ginzap 的 RecoveryFunc：panic 已由 ginzap 记录堆栈，这里只回统一信封
func PanicEnvelope(c *gin.Context, _ any) {
	c.AbortWithStatusJSON(http.StatusOK, resp.Error(resp.CodeServerError, "internal error"))
}
