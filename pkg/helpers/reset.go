package helpers

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidResetToken covers malformed tokens and bad signatures.
	ErrInvalidResetToken = errors.New("invalid reset token")
	// ErrExpiredResetToken means the signature checked out but the
	// token is older than the allowed window.
	ErrExpiredResetToken = errors.New("expired reset token")
)

// ResetSigner produces and verifies the password-reset tokens embedded
// in emailed links. Tokens are stateless: a signed {user_id, issued_at}
// pair, URL-safe, with no server-side table to clean up. Security rests
// on the HMAC and the age check alone.
type ResetSigner struct {
	Secret []byte

	// Now is swappable for tests; defaults to time.Now.
	Now func() time.Time
}

func NewResetSigner(secret string) *ResetSigner {
	return &ResetSigner{Secret: []byte(secret), Now: time.Now}
}

type resetClaims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

// Issue returns a URL-safe token binding the user id to the issue time.
func (s *ResetSigner) Issue(userID string) (string, error) {
	claims := &resetClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(s.clock()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Secret)
}

// Verify decodes and checks the token. A bad structure or MAC yields
// ErrInvalidResetToken; a genuine token older than maxAge yields
// ErrExpiredResetToken. Otherwise the embedded user id is returned.
func (s *ResetSigner) Verify(token string, maxAge time.Duration) (string, error) {
	claims := &resetClaims{}
	tkn, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.Secret, nil
	})
	if err != nil || !tkn.Valid {
		return "", ErrInvalidResetToken
	}
	if claims.IssuedAt == nil || claims.UserID == "" {
		return "", ErrInvalidResetToken
	}
	if s.clock().Sub(claims.IssuedAt.Time) > maxAge {
		return "", ErrExpiredResetToken
	}
	return claims.UserID, nil
}

func (s *ResetSigner) clock() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
