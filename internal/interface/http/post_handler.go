package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/quillhq/quill/internal/application"
	"github.com/quillhq/quill/internal/domain/entity"
	"github.com/quillhq/quill/pkg/response"
	"github.com/quillhq/quill/pkg/validation"
)

type PostHandler struct {
	Svc    *application.PostService
	Logger *logrus.Logger
}

func NewPostHandler(svc *application.PostService, logger *logrus.Logger) *PostHandler {
	return &PostHandler{Svc: svc, Logger: logger}
}

type postRequest struct {
	Title   string `json:"title" binding:"required,max=100"`
	Content string `json:"content" binding:"required"`
}

// Create POST /api/posts (auth required)
func (h *PostHandler) Create(c *gin.Context) {
	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, validation.ToDetails(err))
		return
	}

	p, err := h.Svc.Create(c.Request.Context(), c.GetString("userID"), req.Title, req.Content)
	if err != nil {
		h.Logger.WithError(err).Error("post creation failed")
		response.Error(c, http.StatusInternalServerError, "post creation failed", nil)
		return
	}
	response.Success(c, http.StatusCreated, postJSON(p), "your post has been created", nil)
}

// Get GET /api/posts/:id
func (h *PostHandler) Get(c *gin.Context) {
	p, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.NotFound(c, "post not found")
		return
	}
	response.Success(c, http.StatusOK, postJSON(p), "post", nil)
}

// List GET /api/posts?page=N&per_page=M
func (h *PostHandler) List(c *gin.Context) {
	page, perPage := pageParams(c)
	posts, total, err := h.Svc.List(c.Request.Context(), page, perPage)
	if err != nil {
		h.Logger.WithError(err).Error("post listing failed")
		response.Error(c, http.StatusInternalServerError, "post listing failed", nil)
		return
	}
	response.Success(c, http.StatusOK, postsJSON(posts), "posts", pageMeta(page, perPage, total))
}

// UserPosts GET /api/users/:username/posts?page=N
func (h *PostHandler) UserPosts(c *gin.Context) {
	page, perPage := pageParams(c)
	u, posts, total, err := h.Svc.ListByUsername(c.Request.Context(), c.Param("username"), page, perPage)
	if err != nil {
		if errors.Is(err, application.ErrUserNotFound) {
			response.NotFound(c, "user not found")
			return
		}
		h.Logger.WithError(err).Error("user post listing failed")
		response.Error(c, http.StatusInternalServerError, "post listing failed", nil)
		return
	}
	meta := pageMeta(page, perPage, total)
	meta["username"] = u.Username
	response.Success(c, http.StatusOK, postsJSON(posts), "posts", meta)
}

// Update PUT /api/posts/:id (auth required, owner only)
func (h *PostHandler) Update(c *gin.Context) {
	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, validation.ToDetails(err))
		return
	}

	p, err := h.Svc.Update(c.Request.Context(), c.GetString("userID"), c.Param("id"), req.Title, req.Content)
	if err != nil {
		h.writeMutationError(c, err, "post update failed")
		return
	}
	response.Success(c, http.StatusOK, postJSON(p), "your post has been updated", nil)
}

// Delete DELETE /api/posts/:id (auth required, owner only)
func (h *PostHandler) Delete(c *gin.Context) {
	if err := h.Svc.Delete(c.Request.Context(), c.GetString("userID"), c.Param("id")); err != nil {
		h.writeMutationError(c, err, "post deletion failed")
		return
	}
	response.Success[any](c, http.StatusOK, gin.H{"deleted": true}, "your post has been deleted", nil)
}

func (h *PostHandler) writeMutationError(c *gin.Context, err error, logMsg string) {
	switch {
	case errors.Is(err, application.ErrPostNotFound):
		response.NotFound(c, "post not found")
	case errors.Is(err, application.ErrForbidden):
		response.Forbidden(c, "you do not own this post")
	default:
		h.Logger.WithError(err).Error(logMsg)
		response.Error(c, http.StatusInternalServerError, logMsg, nil)
	}
}

func postJSON(p *entity.Post) gin.H {
	return gin.H{
		"id":         p.ID,
		"title":      p.Title,
		"content":    p.Content,
		"author_id":  p.AuthorID,
		"created_at": p.CreatedAt,
	}
}

func postsJSON(posts []*entity.Post) []gin.H {
	out := make([]gin.H, 0, len(posts))
	for _, p := range posts {
		out = append(out, postJSON(p))
	}
	return out
}

func pageParams(c *gin.Context) (page, perPage int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ = strconv.Atoi(c.DefaultQuery("per_page", strconv.Itoa(application.DefaultPageSize)))
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 || perPage > 50 {
		perPage = application.DefaultPageSize
	}
	return page, perPage
}

func pageMeta(page, perPage, total int) gin.H {
	pages := total / perPage
	if total%perPage != 0 {
		pages++
	}
	return gin.H{"page": page, "per_page": perPage, "total": total, "pages": pages}
}
