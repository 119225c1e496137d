package application

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/authorization-service/internal/domain/entity"
	repo "github.com/oksasatya/authorization-service/internal/domain/repository"
	"github.com/oksasatya/authorization-service/internal/domain/security"
	"github.com/oksasatya/authorization-service/internal/pkg/metrics"
	"github.com/oksasatya/authorization-service/pkg/helpers"
)

// ErrSessionRevoked is returned when a token names a session that no longer exists
// or was replaced by a newer login.
var ErrSessionRevoked = errors.New("session revoked")

// dummyHash is compared against when the account does not exist, so unknown
// and known emails take the same time to reject.
const dummyHash = "$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BOGq0TqNq1U4MZCWbyiuGgAfpy4W"

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken  string
	AccessExp    int64
	RefreshToken string
	RefreshExp   int64
}

type AuthService struct {
	Repo     repo.UserRepository
	JWT      *helpers.JWTManager
	Sessions SessionStore
	Logger   *logrus.Logger
}

func NewAuthService(r repo.UserRepository, jwt *helpers.JWTManager, sessions SessionStore, logger *logrus.Logger) *AuthService {
	return &AuthService{Repo: r, JWT: jwt, Sessions: sessions, Logger: logger}
}

// Authenticate verifies an email/password pair. Account checks run before the
// password comparison; the credentials check runs after it.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*entity.User, error) {
	u, err := s.Repo.FindByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, repo.ErrUserNotFound) {
		helpers.CompareHashAndPassword(dummyHash, password)
		metrics.AuthenticationAttempts.WithLabelValues(metrics.OutcomeUnknownUser).Inc()
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		metrics.AuthenticationAttempts.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, err
	}

	if err := security.CheckAccount(u); err != nil {
		if errors.Is(err, security.ErrAccountDisabled) {
			metrics.AuthenticationAttempts.WithLabelValues(metrics.OutcomeDisabled).Inc()
		} else {
			metrics.AuthenticationAttempts.WithLabelValues(metrics.OutcomeRejected).Inc()
		}
		return nil, err
	}
	if !helpers.CompareHashAndPassword(u.Password(), password) {
		metrics.AuthenticationAttempts.WithLabelValues(metrics.OutcomeBadPassword).Inc()
		return nil, ErrInvalidCredentials
	}
	if err := security.CheckCredentials(u); err != nil {
		metrics.AuthenticationAttempts.WithLabelValues(metrics.OutcomeRejected).Inc()
		return nil, err
	}

	metrics.AuthenticationAttempts.WithLabelValues(metrics.OutcomeSuccess).Inc()
	return u, nil
}

// Login authenticates and opens a new session, replacing any previous one.
func (s *AuthService) Login(ctx context.Context, email, password string) (*entity.User, *TokenPair, error) {
	u, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, nil, err
	}
	pair, err := s.IssueTokens(ctx, u)
	if err != nil {
		return nil, nil, err
	}
	helpers.LogInfo(s.Logger, "user logged in", logrus.Fields{"user_id": u.ID()})
	return u, pair, nil
}

// IssueTokens starts a fresh session for u and signs a token pair bound to it.
func (s *AuthService) IssueTokens(ctx context.Context, u *entity.User) (*TokenPair, error) {
	sid := uuid.NewString()
	access, aexp, err := s.JWT.GenerateAccessToken(u.ID(), sid, u.Authorities())
	if err != nil {
		return nil, err
	}
	refresh, rexp, err := s.JWT.GenerateRefreshToken(u.ID(), sid)
	if err != nil {
		return nil, err
	}
	if s.Sessions != nil {
		if err := s.Sessions.Put(ctx, Session{UserID: u.ID(), Email: u.Email(), SessionID: sid}); err != nil {
			return nil, err
		}
	}
	return &TokenPair{
		AccessToken:  access,
		AccessExp:    aexp.Unix(),
		RefreshToken: refresh,
		RefreshExp:   rexp.Unix(),
	}, nil
}

// Refresh exchanges a refresh token for a new pair. The account is reloaded, so a
// disabled user or a changed role takes effect on the next refresh.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*entity.User, *TokenPair, error) {
	claims, err := s.JWT.ParseRefreshToken(refreshToken)
	if err != nil {
		return nil, nil, ErrInvalidCredentials
	}
	if err := s.VerifySession(ctx, claims.UserID, claims.SessionID); err != nil {
		return nil, nil, err
	}
	u, err := s.Repo.FindByID(ctx, claims.UserID)
	if errors.Is(err, repo.ErrUserNotFound) {
		return nil, nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, err
	}
	if err := security.CheckAccount(u); err != nil {
		s.revoke(ctx, u.ID())
		return nil, nil, err
	}
	pair, err := s.IssueTokens(ctx, u)
	if err != nil {
		return nil, nil, err
	}
	return u, pair, nil
}

// VerifySession reports ErrSessionRevoked unless sid is the live session of userID.
func (s *AuthService) VerifySession(ctx context.Context, userID, sid string) error {
	if s.Sessions == nil {
		return nil
	}
	sess, err := s.Sessions.Get(ctx, userID)
	if errors.Is(err, ErrSessionNotFound) {
		return ErrSessionRevoked
	}
	if err != nil {
		return err
	}
	if sess.SessionID != sid {
		return ErrSessionRevoked
	}
	return nil
}

func (s *AuthService) Logout(ctx context.Context, userID string) error {
	if s.Sessions == nil {
		return nil
	}
	return s.Sessions.Delete(ctx, userID)
}

func (s *AuthService) revoke(ctx context.Context, userID string) {
	if err := s.Logout(ctx, userID); err != nil {
		helpers.LogError(s.Logger, "revoke session failed", err, logrus.Fields{"user_id": userID})
	}
}
