package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// BasicAuthMiddleware 仅在配置了 APP_BASIC_USER / APP_BASIC_PASS 时挂载。
// /health 与 openPaths 中的路径免认证。
func BasicAuthMiddleware(user, pass string, openPaths ...string) gin.HandlerFunc {
	open := map[string]struct{}{"/health": {}}
	for _, p := range openPaths {
		open[p] = struct{}{}
	}
	wantUser, wantPass := []byte(user), []byte(pass)

	return func(c *gin.Context) {
		if _, ok := open[c.Request.URL.Path]; ok {
			c.Next()
			return
		}
		u, p, ok := c.Request.BasicAuth()
		userOK := subtle.ConstantTimeCompare([]byte(u), wantUser) == 1
		passOK := subtle.ConstantTimeCompare([]byte(p), wantPass) == 1
		if !ok || !userOK || !passOK {
			c.Header("WWW-Authenticate", `Basic realm="newspulse"`)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}
