package helpers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const sessionCookie = "session_token"

// CookieManager writes and clears the session cookie.
type CookieManager struct {
	Domain string
	Secure bool
}

func NewCookie(domain string, secure bool) *CookieManager {
	return &CookieManager{Domain: domain, Secure: secure}
}

// SetSession stores the session token. With remember the cookie
// persists until the token expiry; without, MaxAge 0 makes it a
// browser-session cookie that dies when the client closes.
func (m *CookieManager) SetSession(c *gin.Context, token string, exp time.Time, remember bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	maxAge := 0
	if remember {
		maxAge = maxAgeFrom(exp)
	}
	c.SetCookie(sessionCookie, token, maxAge, "/", m.Domain, m.Secure, true)
}

func (m *CookieManager) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, "", -1, "/", m.Domain, m.Secure, true)
}

// Session reads the raw session token from the request, empty when absent.
func (m *CookieManager) Session(c *gin.Context) string {
	v, err := c.Cookie(sessionCookie)
	if err != nil {
		return ""
	}
	return v
}

func maxAgeFrom(exp time.Time) int {
	sec := int(time.Until(exp).Seconds())
	if sec < 0 {
		return 0
	}
	return sec
}
