package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/quillhq/quill/internal/interface/http"
)

// AuthModule registers the public password-reset endpoints.
type AuthModule struct {
	Handler *handlers.AuthHandler
}

func NewAuthModule(h *handlers.AuthHandler) *AuthModule {
	return &AuthModule{Handler: h}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	rg.POST("/reset_password", m.Handler.ResetRequest)
	rg.POST("/reset_password/:token", m.Handler.ResetConfirm)
}
