package helpers

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SessionStore keeps the server-side session records. Redis in
// production; tests swap in a map.
type SessionStore interface {
	Set(ctx context.Context, sid, userID string, ttl time.Duration) error
	Get(ctx context.Context, sid string) (string, error)
	Del(ctx context.Context, sid string) error
}

type redisSessionStore struct {
	rdb *redis.Client
}

func sessionKey(sid string) string { return "session:" + sid }

func (s *redisSessionStore) Set(ctx context.Context, sid, userID string, ttl time.Duration) error {
	return s.rdb.Set(ctx, sessionKey(sid), userID, ttl).Err()
}

func (s *redisSessionStore) Get(ctx context.Context, sid string) (string, error) {
	return s.rdb.Get(ctx, sessionKey(sid)).Result()
}

func (s *redisSessionStore) Del(ctx context.Context, sid string) error {
	return s.rdb.Del(ctx, sessionKey(sid)).Err()
}

// SessionManager issues and validates the signed session tokens held by
// the client cookie, and tracks the server-side record behind them. A
// session carries at most one authenticated user; logout removes the
// record so the token dies even before its signature expires.
type SessionManager struct {
	Secret      []byte
	SessionTTL  time.Duration
	RememberTTL time.Duration
	Store       SessionStore
}

func NewSessionManager(secret string, sessionTTL, rememberTTL time.Duration, rdb *redis.Client) *SessionManager {
	m := &SessionManager{
		Secret:      []byte(secret),
		SessionTTL:  sessionTTL,
		RememberTTL: rememberTTL,
	}
	if rdb != nil {
		m.Store = &redisSessionStore{rdb: rdb}
	}
	return m
}

// SessionClaims is the JWT payload of a session token.
type SessionClaims struct {
	UserID    string `json:"uid"`
	SessionID string `json:"sid"`
	Remember  bool   `json:"remember"`
	jwt.RegisteredClaims
}

// Issue signs a session token for the user and records the session.
// Remember extends the lifetime; it does not change what the session is
// allowed to do.
func (m *SessionManager) Issue(ctx context.Context, userID string, remember bool) (string, time.Time, error) {
	ttl := m.SessionTTL
	if remember {
		ttl = m.RememberTTL
	}
	now := time.Now()
	exp := now.Add(ttl)
	sid := uuid.NewString()

	claims := &SessionClaims{
		UserID:    userID,
		SessionID: sid,
		Remember:  remember,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.Secret)
	if err != nil {
		return "", time.Time{}, err
	}

	if m.Store != nil {
		if err := m.Store.Set(ctx, sid, userID, ttl); err != nil {
			return "", time.Time{}, err
		}
	}
	return token, exp, nil
}

// Parse validates the token signature and expiry and returns its claims.
func (m *SessionManager) Parse(tokenStr string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	tkn, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.Secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !tkn.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// Active reports whether the session record still exists and returns
// the user id it was issued for.
func (m *SessionManager) Active(ctx context.Context, sid string) (string, bool) {
	if m.Store == nil {
		return "", false
	}
	uid, err := m.Store.Get(ctx, sid)
	if err != nil || uid == "" {
		return "", false
	}
	return uid, true
}

// Revoke drops the server-side session record. Used by logout; always
// clears, regardless of the session's remaining lifetime.
func (m *SessionManager) Revoke(ctx context.Context, sid string) error {
	if m.Store == nil {
		return nil
	}
	return m.Store.Del(ctx, sid)
}
