package auth

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const headerName = "X-API-Key"

// APIKeyMiddleware validates the X-API-Key header against one or more
// comma-separated keys, so a key can be rotated by adding the new one
// alongside the old before removing it. If keys is empty, authentication
// is disabled and every request passes through.
func APIKeyMiddleware(keys string) gin.HandlerFunc {
	valid := splitKeys(keys)

	return func(c *gin.Context) {
		if len(valid) == 0 {
			c.Next()
			return
		}

		provided := c.GetHeader(headerName)
		if provided == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing API key",
			})
			return
		}

		if !matchesAny(provided, valid) {
			slog.Warn("rejected request with invalid API key", "path", c.Request.URL.Path, "remote_addr", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "invalid API key",
			})
			return
		}

		c.Next()
	}
}

func splitKeys(keys string) []string {
	var out []string
	for _, k := range strings.Split(keys, ",") {
		k = strings.TrimSpace(k)
		if k != "" {
			out = append(out, k)
		}
	}
	return out
}

func matchesAny(provided string, valid []string) bool {
	for _, k := range valid {
		if subtle.ConstantTimeCompare([]byte(provided), []byte(k)) == 1 {
			return true
		}
	}
	return false
}
