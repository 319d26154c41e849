package repository

import (
	"context"

	"github.com/quillhq/quill/internal/domain/entity"
)

// UserRepository defines the interface for user-related database operations.
// Create and Update surface ErrDuplicateUsername/ErrDuplicateEmail when a
// uniqueness constraint rejects the write; the database is the authority
// even when the application pre-checked.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	GetByUsername(ctx context.Context, username string) (*entity.User, error)
	Update(ctx context.Context, u *entity.User) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}
