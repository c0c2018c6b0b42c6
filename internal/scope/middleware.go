package scope

import (
	"log"
	"strings"

	"github.com/gin-gonic/gin"
)

const ctxScopeKey = "scope_id"

// Middleware reads an optional bearer token, resolves the scope it
// belongs to and runs the identity-switch guard. Requests without a
// token pass through untouched.
func Middleware(parser TokenParser, guard *Guard) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if h == "" || !strings.HasPrefix(strings.ToLower(h), "bearer ") {
			c.Next()
			return
		}

		raw := strings.TrimSpace(h[len("Bearer "):])
		scopeID, err := parser.ScopeID(raw)
		if err != nil {
			log.Printf("[scope] ignoring unparseable token: %v", err)
			c.Next()
			return
		}

		if _, err := guard.Check(c.Request.Context(), scopeID); err != nil {
			log.Printf("[scope] guard: %v", err)
		}

		c.Set(ctxScopeKey, scopeID)
		c.Next()
	}
}

// GetScope returns the scope attached to the request, if any.
func GetScope(c *gin.Context) string {
	v, ok := c.Get(ctxScopeKey)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
