package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// forwardHeaders in the order we trust them. X-Real-IP is what nginx
// sets; X-Forwarded-For may hold a chain, of which only the left-most
// entry is the client.
var forwardHeaders = []string{"X-Real-IP", "X-Forwarded-For"}

// RealIP resolves the client address behind a reverse proxy and stores
// it under "real_ip". Unparseable header values are skipped rather than
// trusted.
func RealIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("real_ip", clientAddr(c))
		c.Next()
	}
}

func clientAddr(c *gin.Context) string {
	for _, h := range forwardHeaders {
		v := c.GetHeader(h)
		if v == "" {
			continue
		}
		first := strings.TrimSpace(strings.SplitN(v, ",", 2)[0])
		if ip := net.ParseIP(first); ip != nil {
			return ip.String()
		}
	}
	return c.ClientIP()
}
