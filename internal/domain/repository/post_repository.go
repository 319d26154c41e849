package repository

import (
	"context"

	"github.com/quillhq/quill/internal/domain/entity"
)

// PostRepository defines the interface for post persistence. List and
// ListByAuthor return newest-first pages plus the total row count so
// handlers can report pagination metadata.
type PostRepository interface {
	Create(ctx context.Context, p *entity.Post) error
	GetByID(ctx context.Context, id string) (*entity.Post, error)
	List(ctx context.Context, limit, offset int) ([]*entity.Post, int, error)
	ListByAuthor(ctx context.Context, authorID string, limit, offset int) ([]*entity.Post, int, error)
	Update(ctx context.Context, p *entity.Post) error
	Delete(ctx context.Context, id string) error
}
