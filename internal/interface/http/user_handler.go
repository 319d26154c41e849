package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/quillhq/quill/internal/application"
	"github.com/quillhq/quill/internal/domain/entity"
	"github.com/quillhq/quill/internal/metrics"
	"github.com/quillhq/quill/pkg/helpers"
	"github.com/quillhq/quill/pkg/response"
	"github.com/quillhq/quill/pkg/validation"
)

type UserHandler struct {
	Svc     *application.UserService
	Logger  *logrus.Logger
	Cookies *helpers.CookieManager
}

func NewUserHandler(svc *application.UserService, logger *logrus.Logger, cookieDomain string, cookieSecure bool) *UserHandler {
	return &UserHandler{Svc: svc, Logger: logger, Cookies: helpers.NewCookie(cookieDomain, cookieSecure)}
}

type registerRequest struct {
	Username        string `json:"username" binding:"required,username"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,pwd"`
	ConfirmPassword string `json:"confirm_password" binding:"required,eqfield=Password"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Remember bool   `json:"remember"`
	Next     string `json:"next"`
}

type updateAccountRequest struct {
	Username string `json:"username" binding:"omitempty,username"`
	Email    string `json:"email" binding:"omitempty,email"`
}

// Register POST /api/register
func (h *UserHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, validation.ToDetails(err))
		return
	}

	u, err := h.Svc.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		if details, ok := duplicateDetails(err); ok {
			metrics.IncRegister("duplicate")
			response.ValidationFailed(c, details)
			return
		}
		metrics.IncRegister("error")
		h.Logger.WithError(err).Error("registration failed")
		response.Error(c, http.StatusInternalServerError, "registration failed", nil)
		return
	}
	metrics.IncRegister("ok")
	response.Success(c, http.StatusCreated, h.profileJSON(u), "account created, you are now able to log in", nil)
}

// Login POST /api/login
func (h *UserHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, validation.ToDetails(err))
		return
	}

	u, token, exp, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password, req.Remember)
	if err != nil {
		if errors.Is(err, application.ErrInvalidCredentials) {
			metrics.IncLogin("invalid")
			// One message for unknown email and wrong password alike.
			response.Unauthorized(c, "invalid login credentials")
			return
		}
		metrics.IncLogin("error")
		h.Logger.WithError(err).Error("login failed")
		response.Error(c, http.StatusInternalServerError, "login failed", nil)
		return
	}
	metrics.IncLogin("ok")
	h.Cookies.SetSession(c, token, exp, req.Remember)
	response.Success(c, http.StatusOK, h.profileJSON(u), "login successful", gin.H{
		"expires_at": exp,
		"next":       safeNext(req.Next),
	})
}

// Logout POST /api/logout (auth required)
func (h *UserHandler) Logout(c *gin.Context) {
	h.Svc.Logout(c.Request.Context(), c.GetString("sessionID"))
	h.Cookies.Clear(c)
	response.Success[any](c, http.StatusOK, gin.H{"logged_out": true}, "logged out", nil)
}

// GetAccount GET /api/account (auth required)
func (h *UserHandler) GetAccount(c *gin.Context) {
	u, err := h.Svc.GetProfile(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		response.NotFound(c, "user not found")
		return
	}
	response.Success(c, http.StatusOK, h.profileJSON(u), "account", nil)
}

// UpdateAccount PUT /api/account (auth required)
func (h *UserHandler) UpdateAccount(c *gin.Context) {
	var req updateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, validation.ToDetails(err))
		return
	}

	u, err := h.Svc.UpdateAccount(c.Request.Context(), c.GetString("userID"), application.UpdateAccountInput{
		Username: req.Username,
		Email:    req.Email,
	})
	if err != nil {
		if details, ok := duplicateDetails(err); ok {
			response.ValidationFailed(c, details)
			return
		}
		if errors.Is(err, application.ErrUserNotFound) {
			response.NotFound(c, "user not found")
			return
		}
		h.Logger.WithError(err).Error("account update failed")
		response.Error(c, http.StatusInternalServerError, "account update failed", nil)
		return
	}
	response.Success(c, http.StatusOK, h.profileJSON(u), "account updated", nil)
}

// UploadAvatar PUT /api/account/avatar (auth required, multipart)
func (h *UserHandler) UploadAvatar(c *gin.Context) {
	file, err := c.FormFile("picture")
	if err != nil {
		response.ValidationFailed(c, gin.H{"picture": "is required"})
		return
	}
	if !allowedAvatarExt(file.Filename) {
		response.ValidationFailed(c, gin.H{"picture": "must be a jpg or png file"})
		return
	}
	src, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, "unreadable upload", nil)
		return
	}
	defer func() { _ = src.Close() }()

	ref, err := h.Svc.UploadAvatar(c.Request.Context(), c.GetString("userID"), src, file.Filename, file.Header.Get("Content-Type"))
	if err != nil {
		h.Logger.WithError(err).Error("avatar upload failed")
		response.Error(c, http.StatusInternalServerError, "avatar upload failed", nil)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"avatar_ref": ref, "avatar_url": h.avatarURL(ref)}, "avatar updated", nil)
}

func (h *UserHandler) profileJSON(u *entity.User) gin.H {
	return gin.H{
		"id":         u.ID,
		"username":   u.Username,
		"email":      u.Email,
		"avatar_url": h.avatarURL(u.Avatar()),
		"created_at": u.CreatedAt,
	}
}

func (h *UserHandler) avatarURL(ref string) string {
	if ref == entity.DefaultAvatar || h.Svc.GCSBucket == "" {
		return "/static/profile_pics/" + entity.DefaultAvatar
	}
	return helpers.PublicURL(h.Svc.GCSBucket, ref)
}

func allowedAvatarExt(filename string) bool {
	switch strings.ToLower(strings.TrimPrefix(filenameExt(filename), ".")) {
	case "jpg", "jpeg", "png":
		return true
	}
	return false
}

func filenameExt(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i:]
	}
	return ""
}

// safeNext keeps post-login redirects on-site. Only a same-origin
// relative path is honored; anything resembling an absolute or
// protocol-relative URL falls back to the default destination.
func safeNext(next string) string {
	if next == "" {
		return "/"
	}
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return "/"
	}
	if strings.ContainsAny(next, "\\") || strings.Contains(next, "://") {
		return "/"
	}
	return next
}

func duplicateDetails(err error) (gin.H, bool) {
	switch {
	case errors.Is(err, application.ErrUsernameTaken):
		return gin.H{"username": "that username is taken, please use a different one"}, true
	case errors.Is(err, application.ErrEmailTaken):
		return gin.H{"email": "that email is taken, please use a different one"}, true
	}
	return nil, false
}
