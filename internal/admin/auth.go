package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

var localhostAddrs = map[string]struct{}{
	"127.0.0.1":       {},
	"::1":             {},
	"::ffff:127.0.0.1": {},
}

// requireAdmin gates fn behind ADMIN_KEY (query param or header) when
// configured, otherwise behind a localhost-only check. Unauthorized
// requests get the same 404 an undefined path would, so admin routes
// never leak their existence.
func (h *Handler) requireAdmin(fn gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.authorized(c) {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		fn(c)
	}
}

func (h *Handler) authorized(c *gin.Context) bool {
	if h.Config.AdminKey != "" {
		key := c.Query("adminKey")
		if key == "" {
			key = c.GetHeader("X-Admin-Key")
		}
		return key == h.Config.AdminKey
	}
	_, ok := localhostAddrs[c.ClientIP()]
	return ok
}
