package application

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/quillhq/quill/internal/domain/entity"
	repo "github.com/quillhq/quill/internal/domain/repository"
	"github.com/quillhq/quill/pkg/helpers"
	"github.com/quillhq/quill/pkg/mailer"
)

// MailQueue is the narrow contract to the outbound mail pipeline.
// Satisfied by helpers.RabbitPublisher; delivery retries and failure
// policy live on the consuming worker, not here.
type MailQueue interface {
	PublishJSON(ctx context.Context, body any) error
}

// UserService owns registration, authentication, account updates and
// the password reset flow. Everything it needs arrives through the
// constructor; there is no ambient state.
type UserService struct {
	Repo        repo.UserRepository
	Sessions    *helpers.SessionManager
	Reset       *helpers.ResetSigner
	ResetMaxAge time.Duration
	GCS         *storage.Client
	GCSBucket   string
	Pub         MailQueue
	Logger      *logrus.Logger
	BaseURL     string
	MailEnabled bool
}

func NewUserService(r repo.UserRepository, sessions *helpers.SessionManager, reset *helpers.ResetSigner, resetMaxAge time.Duration, gcs *storage.Client, gcsBucket string, pub MailQueue, logger *logrus.Logger, baseURL string, mailEnabled bool) *UserService {
	return &UserService{
		Repo:        r,
		Sessions:    sessions,
		Reset:       reset,
		ResetMaxAge: resetMaxAge,
		GCS:         gcs,
		GCSBucket:   gcsBucket,
		Pub:         pub,
		Logger:      logger,
		BaseURL:     baseURL,
		MailEnabled: mailEnabled,
	}
}

// Register creates the account with the password hashed exactly once.
// Username and email are pre-checked so callers get a field-level
// validation error, but the store's own constraint rejection is mapped
// to the same errors: the database stays authoritative for the
// check-then-insert race.
func (s *UserService) Register(ctx context.Context, username, email, password string) (*entity.User, error) {
	if _, err := s.Repo.GetByUsername(ctx, username); err == nil {
		return nil, ErrUsernameTaken
	}
	if _, err := s.Repo.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	}

	hash, err := helpers.HashPassword(password)
	if err != nil {
		return nil, err
	}
	u := &entity.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		AvatarRef:    entity.DefaultAvatar,
	}
	if err := s.Repo.Create(ctx, u); err != nil {
		return nil, mapDuplicate(err)
	}
	return u, nil
}

// Authenticate resolves the email and checks the password. Either
// failure yields the same ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*entity.User, error) {
	u, err := s.Repo.GetByEmail(ctx, email)
	if err != nil || u == nil {
		return nil, ErrInvalidCredentials
	}
	if !helpers.VerifyPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// Login authenticates and opens a session. remember only stretches the
// session lifetime; it grants nothing extra.
func (s *UserService) Login(ctx context.Context, email, password string, remember bool) (*entity.User, string, time.Time, error) {
	u, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	token, exp, err := s.Sessions.Issue(ctx, u.ID, remember)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Error("issue session failed")
		}
		return nil, "", time.Time{}, err
	}
	return u, token, exp, nil
}

// Logout revokes the server-side session record unconditionally.
func (s *UserService) Logout(ctx context.Context, sessionID string) {
	if err := s.Sessions.Revoke(ctx, sessionID); err != nil && s.Logger != nil {
		s.Logger.WithError(err).Warn("session revoke failed")
	}
}

func (s *UserService) GetProfile(ctx context.Context, userID string) (*entity.User, error) {
	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil || u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

type UpdateAccountInput struct {
	Username string
	Email    string
}

// UpdateAccount changes username/email for the owning user. Uniqueness
// is pre-checked against other accounts only, so keeping your own
// values is always valid.
func (s *UserService) UpdateAccount(ctx context.Context, userID string, in UpdateAccountInput) (*entity.User, error) {
	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil || u == nil {
		return nil, ErrUserNotFound
	}
	if in.Username != "" && in.Username != u.Username {
		if other, err := s.Repo.GetByUsername(ctx, in.Username); err == nil && other.ID != u.ID {
			return nil, ErrUsernameTaken
		}
		u.Username = in.Username
	}
	if in.Email != "" && in.Email != u.Email {
		if other, err := s.Repo.GetByEmail(ctx, in.Email); err == nil && other.ID != u.ID {
			return nil, ErrEmailTaken
		}
		u.Email = in.Email
	}
	if err := s.Repo.Update(ctx, u); err != nil {
		return nil, mapDuplicate(err)
	}
	return u, nil
}

// UploadAvatar stores the picture under a random object name and points
// the profile at it. The previous upload is removed best-effort; a
// concurrent update racing the removal is harmless.
func (s *UserService) UploadAvatar(ctx context.Context, userID string, r io.Reader, filename, contentType string) (string, error) {
	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil || u == nil {
		return "", ErrUserNotFound
	}
	if s.GCS == nil || s.GCSBucket == "" {
		return "", errors.New("avatar storage not configured")
	}

	ext := strings.ToLower(filepath.Ext(filename))
	objectPath := filepath.ToSlash(filepath.Join("avatars", userID, uuid.NewString()+ext))
	if _, err := helpers.UploadObject(ctx, s.GCS, s.GCSBucket, objectPath, contentType, r); err != nil {
		return "", err
	}

	prev := u.AvatarRef
	u.AvatarRef = objectPath
	if err := s.Repo.Update(ctx, u); err != nil {
		return "", err
	}
	if prev != "" && prev != entity.DefaultAvatar {
		if err := helpers.DeleteObject(ctx, s.GCS, s.GCSBucket, prev); err != nil && s.Logger != nil {
			s.Logger.WithError(err).WithField("object", prev).Warn("stale avatar removal failed")
		}
	}
	return objectPath, nil
}

// RequestPasswordReset issues a reset token and queues the email. An
// unknown email is not an error: callers answer generically either way
// so the endpoint cannot be used to enumerate accounts.
func (s *UserService) RequestPasswordReset(ctx context.Context, email string) error {
	u, err := s.Repo.GetByEmail(ctx, email)
	if err != nil || u == nil {
		if s.Logger != nil {
			s.Logger.WithField("email", email).Info("reset requested for unknown email")
		}
		return nil
	}

	token, err := s.Reset.Issue(u.ID)
	if err != nil {
		return err
	}
	if s.Pub != nil && s.MailEnabled {
		job := mailer.ResetEmail(u.Email, s.BaseURL, token)
		if err := s.Pub.PublishJSON(ctx, job); err != nil && s.Logger != nil {
			// Fire-and-forget: delivery retries belong to the worker.
			s.Logger.WithError(err).WithField("user_id", u.ID).Warn("reset email enqueue failed")
		}
	}
	return nil
}

// ResetPassword verifies the emailed token and replaces the password.
// Token errors pass through typed (helpers.ErrInvalidResetToken /
// ErrExpiredResetToken) so the handler can log the distinction while
// telling the user one thing.
func (s *UserService) ResetPassword(ctx context.Context, token, newPassword string) error {
	uid, err := s.Reset.Verify(token, s.ResetMaxAge)
	if err != nil {
		return err
	}
	u, err := s.Repo.GetByID(ctx, uid)
	if err != nil || u == nil {
		return helpers.ErrInvalidResetToken
	}
	hash, err := helpers.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.Repo.UpdatePassword(ctx, u.ID, hash)
}

func mapDuplicate(err error) error {
	switch {
	case errors.Is(err, repo.ErrDuplicateUsername):
		return ErrUsernameTaken
	case errors.Is(err, repo.ErrDuplicateEmail):
		return ErrEmailTaken
	default:
		return err
	}
}
