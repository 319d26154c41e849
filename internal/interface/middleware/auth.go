package middleware

import (
	"github.com/gin-gonic/gin"

	repo "github.com/quillhq/quill/internal/domain/repository"
	"github.com/quillhq/quill/pkg/helpers"
	"github.com/quillhq/quill/pkg/response"
)

// Auth resolves the current user for a request: session cookie, token
// signature, live session record, then the user row itself. Any break
// in that chain fails closed to 401 — there is no fallback identity.
// On success it sets userID, sessionID and username in the Gin context.
func Auth(sessions *helpers.SessionManager, users repo.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie("session_token")
		if err != nil || token == "" {
			response.Unauthorized(c, "authentication required")
			c.Abort()
			return
		}
		claims, err := sessions.Parse(token)
		if err != nil {
			response.Unauthorized(c, "invalid session")
			c.Abort()
			return
		}
		uid, ok := sessions.Active(c.Request.Context(), claims.SessionID)
		if !ok || uid != claims.UserID {
			response.Unauthorized(c, "session expired")
			c.Abort()
			return
		}

		// The user behind the session may have vanished since the
		// token was issued; treat that as anonymous.
		u, err := users.GetByID(c.Request.Context(), claims.UserID)
		if err != nil || u == nil {
			response.Unauthorized(c, "session expired")
			c.Abort()
			return
		}

		c.Set("userID", u.ID)
		c.Set("sessionID", claims.SessionID)
		c.Set("username", u.Username)
		c.Next()
	}
}
