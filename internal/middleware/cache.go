package middleware

import "github.com/gin-gonic/gin"

// NoStore marks responses that carry live session state as uncacheable.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}
