package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	clientIDKey = "clientId"
	isGuestKey  = "isGuest"

	// AnonymousClientID is used when the caller sends no guest header.
	AnonymousClientID = "anonymous"
)

// Identity resolves the caller from the X-Guest-Id header. There are no
// accounts; the guest id only scopes run history.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		guestID := strings.TrimSpace(c.GetHeader("X-Guest-Id"))
		if guestID == "" || len(guestID) > 128 {
			c.Set(clientIDKey, AnonymousClientID)
			c.Set(isGuestKey, false)
			c.Next()
			return
		}

		c.Set(clientIDKey, "guest:"+guestID)
		c.Set(isGuestKey, true)
		c.Next()
	}
}

// ClientIDFromContext fetches the client ID set by the identity middleware.
func ClientIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(clientIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}

// IsAnonymous reports whether the caller sent no usable guest id.
func IsAnonymous(c *gin.Context) bool {
	id := ClientIDFromContext(c)
	return id == "" || id == AnonymousClientID
}
