package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/quillhq/quill/internal/application"
	"github.com/quillhq/quill/internal/metrics"
	"github.com/quillhq/quill/pkg/helpers"
	"github.com/quillhq/quill/pkg/response"
	"github.com/quillhq/quill/pkg/validation"
)

// AuthHandler covers the password reset flow. Both endpoints are
// public: the requester is by definition locked out of their account.
type AuthHandler struct {
	Svc    *application.UserService
	Logger *logrus.Logger
}

func NewAuthHandler(svc *application.UserService, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{Svc: svc, Logger: logger}
}

type resetRequestRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type resetConfirmRequest struct {
	Password        string `json:"password" binding:"required,pwd"`
	ConfirmPassword string `json:"confirm_password" binding:"required,eqfield=Password"`
}

// ResetRequest POST /api/reset_password
// Always answers the same way so the endpoint cannot confirm whether
// an email has an account.
func (h *AuthHandler) ResetRequest(c *gin.Context) {
	var req resetRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, validation.ToDetails(err))
		return
	}

	if err := h.Svc.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		metrics.IncResetRequest("error")
		h.Logger.WithError(err).Error("reset request failed")
		response.Error(c, http.StatusInternalServerError, "reset request failed", nil)
		return
	}
	metrics.IncResetRequest("ok")
	response.Success[any](c, http.StatusOK, gin.H{"sent": true},
		"an email has been sent with instructions on resetting your password", nil)
}

// ResetConfirm POST /api/reset_password/:token
func (h *AuthHandler) ResetConfirm(c *gin.Context) {
	var req resetConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, validation.ToDetails(err))
		return
	}

	token := c.Param("token")
	if err := h.Svc.ResetPassword(c.Request.Context(), token, req.Password); err != nil {
		switch {
		case errors.Is(err, helpers.ErrExpiredResetToken):
			// Logged apart from invalid, surfaced the same: the
			// difference would only help someone probing lifetimes.
			metrics.IncResetConfirm("expired")
			h.Logger.Info("expired reset token presented")
		case errors.Is(err, helpers.ErrInvalidResetToken):
			metrics.IncResetConfirm("invalid")
			h.Logger.Info("invalid reset token presented")
		default:
			metrics.IncResetConfirm("error")
			h.Logger.WithError(err).Error("password reset failed")
			response.Error(c, http.StatusInternalServerError, "password reset failed", nil)
			return
		}
		response.Error(c, http.StatusBadRequest, "that is an invalid or expired token", nil)
		return
	}
	metrics.IncResetConfirm("ok")
	response.Success[any](c, http.StatusOK, gin.H{"reset": true},
		"your password has been updated, you are now able to log in", nil)
}
