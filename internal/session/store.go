package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pkgerrors "github.com/angelmondragon/packfinderz-driver/pkg/errors"
	pkgredis "github.com/angelmondragon/packfinderz-driver/pkg/redis"
)

// User is the cached driver profile.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

// Session is the cached login.
type Session struct {
	Token     string     `json:"-"`
	User      User       `json:"user"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type sessionKeyer interface {
	SessionTokenKey() string
	SessionUserKey() string
}

// Store persists the backend token and driver profile in Redis.
type Store struct {
	store sessionStore
	keyer sessionKeyer
	ttl   time.Duration
	now   func() time.Time
}

func NewStore(client *pkgredis.Client, ttl time.Duration) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	return &Store{store: client, keyer: client, ttl: ttl, now: time.Now}, nil
}

// Save caches the session. The TTL is capped by the token expiry when the
// token carries one.
func (s *Store) Save(ctx context.Context, token string, user User) (*Session, error) {
	expiresAt, err := TokenExpiry(token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "backend returned an unreadable token")
	}
	ttl := s.ttl
	if expiresAt != nil {
		remaining := expiresAt.Sub(s.now())
		if remaining <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "backend returned an expired token")
		}
		if remaining < ttl {
			ttl = remaining
		}
	}
	payload, err := json.Marshal(user)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode session user")
	}
	if err := s.store.Set(ctx, s.keyer.SessionTokenKey(), token, ttl); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store session token")
	}
	if err := s.store.Set(ctx, s.keyer.SessionUserKey(), payload, ttl); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store session user")
	}
	return &Session{Token: token, User: user, ExpiresAt: expiresAt}, nil
}

// Load returns the cached session, or nil when there is none or it expired.
func (s *Store) Load(ctx context.Context) (*Session, error) {
	token, err := s.store.Get(ctx, s.keyer.SessionTokenKey())
	if err != nil {
		if pkgredis.IsNil(err) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session token")
	}
	expiresAt, err := TokenExpiry(token)
	if err != nil || (expiresAt != nil && !expiresAt.After(s.now())) {
		_ = s.Clear(ctx)
		return nil, nil
	}
	sess := &Session{Token: token, ExpiresAt: expiresAt}
	raw, err := s.store.Get(ctx, s.keyer.SessionUserKey())
	switch {
	case err == nil:
		if err := json.Unmarshal([]byte(raw), &sess.User); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode session user")
		}
	case !pkgredis.IsNil(err):
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session user")
	}
	return sess, nil
}

// Token returns the bearer token for backend calls, failing fast with
// UNAUTHORIZED when the driver is logged out or the token expired.
func (s *Store) Token(ctx context.Context) (string, error) {
	sess, err := s.Load(ctx)
	if err != nil {
		return "", err
	}
	if sess == nil {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "login required")
	}
	return sess.Token, nil
}

func (s *Store) Clear(ctx context.Context) error {
	if err := s.store.Del(ctx, s.keyer.SessionTokenKey(), s.keyer.SessionUserKey()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear session")
	}
	return nil
}
