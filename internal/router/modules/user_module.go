package modules

import (
	"github.com/gin-gonic/gin"

	repo "github.com/quillhq/quill/internal/domain/repository"
	handlers "github.com/quillhq/quill/internal/interface/http"
	"github.com/quillhq/quill/internal/interface/middleware"
	"github.com/quillhq/quill/pkg/helpers"
)

// UserModule wires account HTTP handlers and the session middleware.
// Public: POST /api/register, POST /api/login
// Protected: POST /api/logout, GET/PUT /api/account, PUT /api/account/avatar
type UserModule struct {
	Handler  *handlers.UserHandler
	Sessions *helpers.SessionManager
	Users    repo.UserRepository
}

func NewUserModule(h *handlers.UserHandler, sessions *helpers.SessionManager, users repo.UserRepository) *UserModule {
	return &UserModule{Handler: h, Sessions: sessions, Users: users}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	rg.POST("/register", m.Handler.Register)
	rg.POST("/login", m.Handler.Login)

	auth := rg.Group("/")
	auth.Use(middleware.Auth(m.Sessions, m.Users))
	{
		auth.POST("/logout", m.Handler.Logout)
		auth.GET("/account", m.Handler.GetAccount)
		auth.PUT("/account", m.Handler.UpdateAccount)
		auth.PUT("/account/avatar", m.Handler.UploadAvatar)
	}
}
