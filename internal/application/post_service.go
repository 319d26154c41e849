package application

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/quillhq/quill/internal/domain/entity"
	repo "github.com/quillhq/quill/internal/domain/repository"
	"github.com/quillhq/quill/internal/metrics"
)

// DefaultPageSize matches the public post listing.
const DefaultPageSize = 5

// PostService owns post CRUD. Update and Delete run the ownership
// check before touching storage.
type PostService struct {
	Posts  repo.PostRepository
	Users  repo.UserRepository
	Logger *logrus.Logger
}

func NewPostService(posts repo.PostRepository, users repo.UserRepository, logger *logrus.Logger) *PostService {
	return &PostService{Posts: posts, Users: users, Logger: logger}
}

func (s *PostService) Create(ctx context.Context, authorID, title, content string) (*entity.Post, error) {
	p := &entity.Post{
		Title:    title,
		Content:  content,
		AuthorID: authorID,
	}
	if err := s.Posts.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PostService) Get(ctx context.Context, id string) (*entity.Post, error) {
	p, err := s.Posts.GetByID(ctx, id)
	if err != nil || p == nil {
		return nil, ErrPostNotFound
	}
	return p, nil
}

// List returns a newest-first page of all posts and the total count.
func (s *PostService) List(ctx context.Context, page, perPage int) ([]*entity.Post, int, error) {
	limit, offset := pageBounds(page, perPage)
	return s.Posts.List(ctx, limit, offset)
}

// ListByUsername pages through one author's posts. An unknown username
// is a missing resource, not an empty page.
func (s *PostService) ListByUsername(ctx context.Context, username string, page, perPage int) (*entity.User, []*entity.Post, int, error) {
	u, err := s.Users.GetByUsername(ctx, username)
	if err != nil || u == nil {
		return nil, nil, 0, ErrUserNotFound
	}
	limit, offset := pageBounds(page, perPage)
	posts, total, err := s.Posts.ListByAuthor(ctx, u.ID, limit, offset)
	if err != nil {
		return nil, nil, 0, err
	}
	return u, posts, total, nil
}

func (s *PostService) Update(ctx context.Context, userID, postID, title, content string) (*entity.Post, error) {
	p, err := s.Posts.GetByID(ctx, postID)
	if err != nil || p == nil {
		return nil, ErrPostNotFound
	}
	if !CanMutate(userID, p.AuthorID) {
		metrics.IncForbidden("update")
		return nil, ErrForbidden
	}
	p.Title = title
	p.Content = content
	if err := s.Posts.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PostService) Delete(ctx context.Context, userID, postID string) error {
	p, err := s.Posts.GetByID(ctx, postID)
	if err != nil || p == nil {
		return ErrPostNotFound
	}
	if !CanMutate(userID, p.AuthorID) {
		metrics.IncForbidden("delete")
		return ErrForbidden
	}
	return s.Posts.Delete(ctx, p.ID)
}

func pageBounds(page, perPage int) (limit, offset int) {
	if perPage <= 0 {
		perPage = DefaultPageSize
	}
	if page <= 0 {
		page = 1
	}
	return perPage, (page - 1) * perPage
}
