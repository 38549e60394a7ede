// Package readonly blocks every write request while the instance is
// running in read-only mode (READ_ONLY=true).
package readonly

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ContextKey stores the read-only flag for template rendering.
const ContextKey = "read_only"

// Message is returned to blocked clients.
const Message = "This instance is read-only"

// Middleware rejects non-safe methods when enabled.
type Middleware struct {
	enabled bool
}

// NewMiddleware creates a read-only middleware.
func NewMiddleware(enabled bool) *Middleware {
	return &Middleware{enabled: enabled}
}

// IsEnabled returns whether read-only mode is active.
func (m *Middleware) IsEnabled() bool {
	return m.enabled
}

// Handler returns a Gin middleware that sets the context flag and blocks
// write operations.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextKey, m.enabled)

		if !m.enabled || isSafeMethod(c.Request.Method) {
			c.Next()
			return
		}

		m.respondBlocked(c)
	}
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// IsReadOnly reports the flag set by Handler.
func IsReadOnly(c *gin.Context) bool {
	return c.GetBool(ContextKey)
}

// respondBlocked sends a 403 response. Supports JSON API and HTMX clients.
func (m *Middleware) respondBlocked(c *gin.Context) {
	if c.GetHeader("HX-Request") == "true" {
		c.Header("HX-Reswap", "none")
		c.Header("HX-Trigger", `{"showToast": {"message": "`+Message+`", "type": "warning"}}`)
		c.String(http.StatusForbidden, Message)
		c.Abort()
		return
	}

	if strings.Contains(c.GetHeader("Accept"), "application/json") ||
		strings.HasPrefix(c.Request.URL.Path, "/api/") {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":     Message,
			"read_only": true,
		})
		return
	}

	c.String(http.StatusForbidden, Message)
	c.Abort()
}
