package modules

import (
	"github.com/gin-gonic/gin"

	repo "github.com/quillhq/quill/internal/domain/repository"
	handlers "github.com/quillhq/quill/internal/interface/http"
	"github.com/quillhq/quill/internal/interface/middleware"
	"github.com/quillhq/quill/pkg/helpers"
)

// PostModule wires post routes. Reading is public; every mutation sits
// behind the session middleware, with the ownership check applied in
// the service underneath.
type PostModule struct {
	Handler  *handlers.PostHandler
	Sessions *helpers.SessionManager
	Users    repo.UserRepository
}

func NewPostModule(h *handlers.PostHandler, sessions *helpers.SessionManager, users repo.UserRepository) *PostModule {
	return &PostModule{Handler: h, Sessions: sessions, Users: users}
}

func (m *PostModule) Register(rg *gin.RouterGroup) {
	rg.GET("/posts", m.Handler.List)
	rg.GET("/posts/:id", m.Handler.Get)
	rg.GET("/users/:username/posts", m.Handler.UserPosts)

	auth := rg.Group("/")
	auth.Use(middleware.Auth(m.Sessions, m.Users))
	{
		auth.POST("/posts", m.Handler.Create)
		auth.PUT("/posts/:id", m.Handler.Update)
		auth.DELETE("/posts/:id", m.Handler.Delete)
	}
}
