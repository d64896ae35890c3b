package session

import (
	"context"
	"strings"

	pkgerrors "github.com/angelmondragon/packfinderz-driver/pkg/errors"
	"github.com/angelmondragon/packfinderz-driver/pkg/logger"
)

// Authenticator exchanges credentials for a backend token.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (string, User, error)
}

// Service handles driver login and logout.
type Service struct {
	auth  Authenticator
	store *Store
	logg  *logger.Logger
}

func NewService(auth Authenticator, store *Store, logg *logger.Logger) (*Service, error) {
	if auth == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "authenticator required")
	}
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "session store required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{auth: auth, store: store, logg: logg}, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email and password are required")
	}
	token, user, err := s.auth.Login(ctx, email, password)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error_category", pkgerrors.CategoryOf(err).String()), "login failed")
		return nil, err
	}
	sess, err := s.store.Save(ctx, token, user)
	if err != nil {
		s.logg.Error(ctx, "session save failed", err)
		return nil, err
	}
	s.logg.Info(s.logg.WithField(ctx, "user_id", user.ID), "driver logged in")
	return sess, nil
}

func (s *Service) Logout(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return err
	}
	s.logg.Info(ctx, "driver logged out")
	return nil
}

// Current returns the cached session, or nil when logged out.
func (s *Service) Current(ctx context.Context) (*Session, error) {
	return s.store.Load(ctx)
}
