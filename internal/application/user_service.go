package application

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/authorization-service/internal/domain/entity"
	repo "github.com/oksasatya/authorization-service/internal/domain/repository"
	"github.com/oksasatya/authorization-service/internal/infrastructure/search"
	"github.com/oksasatya/authorization-service/internal/pkg/metrics"
	"github.com/oksasatya/authorization-service/pkg/helpers"
	"github.com/oksasatya/authorization-service/pkg/mailer"
	tpl "github.com/oksasatya/authorization-service/pkg/mailer/templates"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnknownRole        = errors.New("unknown role")
)

// UserServiceConfig holds the non-infrastructure knobs of UserService.
type UserServiceConfig struct {
	AppName         string
	ActivationURL   string
	ActivationTTL   time.Duration
	MailSendEnabled bool
}

// UserService owns the user lifecycle: registration, activation, role and
// password changes. Every change rebuilds the user and saves it under the same id.
// Changes that narrow what a user may do end the user's session.
type UserService struct {
	Repo        repo.UserRepository
	Activations ActivationStore
	Sessions    SessionStore
	Jobs        JobPublisher
	Index       UserIndexer
	Logger      *logrus.Logger
	Hasher      entity.PasswordHasher
	Cfg         UserServiceConfig
}

func NewUserService(r repo.UserRepository, activations ActivationStore, sessions SessionStore, jobs JobPublisher, index UserIndexer, logger *logrus.Logger, hasher entity.PasswordHasher, cfg UserServiceConfig) *UserService {
	if cfg.ActivationTTL <= 0 {
		cfg.ActivationTTL = 24 * time.Hour
	}
	if hasher == nil {
		hasher = helpers.HashPassword
	}
	return &UserService{
		Repo:        r,
		Activations: activations,
		Sessions:    sessions,
		Jobs:        jobs,
		Index:       index,
		Logger:      logger,
		Hasher:      hasher,
		Cfg:         cfg,
	}
}

type RegisterInput struct {
	Identifier string
	Email      string
	Password   string
}

// NormalizeEmail is applied to every email before it is stored or looked up,
// so logins are unique regardless of letter case.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a disabled USER account, marks it pending activation and
// mails an activation link. The link is never returned to the caller.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*entity.User, error) {
	u, err := entity.NewUserBuilderWithHasher(s.Hasher).
		Identifier(in.Identifier).
		Username(NormalizeEmail(in.Email)).
		Password(in.Password).
		RoleUser().
		Build()
	if err != nil {
		return nil, fmt.Errorf("build user: %w", err)
	}

	stored, err := s.Repo.Insert(ctx, u)
	metrics.RecordWrite("register", err)
	if err != nil {
		return nil, err
	}
	s.index(ctx, stored)

	if s.Activations == nil {
		return stored, nil
	}
	// the account exists either way; a new link can be requested while pending
	if err := s.Activations.MarkPending(ctx, stored.ID()); err != nil {
		s.warn(err, stored.ID(), "mark activation pending failed")
		return stored, nil
	}
	if err := s.issueActivation(ctx, stored); err != nil {
		s.warn(err, stored.ID(), "issue activation failed")
	}
	return stored, nil
}

func (s *UserService) issueActivation(ctx context.Context, u *entity.User) error {
	tok, err := genToken(32)
	if err != nil {
		return err
	}
	if err := s.Activations.Issue(ctx, tok, u.ID(), s.Cfg.ActivationTTL); err != nil {
		return err
	}
	link := s.Cfg.ActivationURL + "?token=" + tok

	if s.Jobs == nil || !s.Cfg.MailSendEnabled {
		if s.Logger != nil {
			s.Logger.WithFields(logrus.Fields{"user_id": u.ID(), "link": link}).Debug("activation mail disabled")
		}
		return nil
	}
	job := mailer.EmailJob{
		To:       u.Email(),
		Template: tpl.AccountActivation,
		Data: tpl.NewActivationData(u.Email(),
			tpl.WithAppName(s.Cfg.AppName),
			tpl.WithIdentifier(u.Identifier()),
			tpl.WithActivationURL(link),
			tpl.WithExpiresIn(s.Cfg.ActivationTTL),
		),
	}
	if err := s.Jobs.PublishJSON(ctx, job); err != nil {
		s.warn(err, u.ID(), "failed to publish activation email")
	}
	return nil
}

// ResendActivation mails a fresh link when the account behind email is still
// pending its first activation. Unknown, enabled and admin-disabled accounts
// are skipped silently; callers cannot tell the cases apart.
func (s *UserService) ResendActivation(ctx context.Context, email string) error {
	if s.Activations == nil {
		return nil
	}
	u, err := s.Repo.FindByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, repo.ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if u.IsEnabled() {
		return nil
	}
	pending, err := s.Activations.IsPending(ctx, u.ID())
	if err != nil || !pending {
		return err
	}
	return s.issueActivation(ctx, u)
}

// Activate consumes an activation token and enables the account it points at.
func (s *UserService) Activate(ctx context.Context, token string) (*entity.User, error) {
	if s.Activations == nil {
		return nil, ErrInvalidActivationToken
	}
	uid, err := s.Activations.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	pending, err := s.Activations.IsPending(ctx, uid)
	if err != nil {
		return nil, err
	}
	if !pending {
		// the account was activated or disabled by an admin since the token was issued
		s.revokeToken(ctx, token, uid)
		return nil, ErrInvalidActivationToken
	}
	u, err := s.SetEnabled(ctx, uid, true)
	if err != nil {
		return nil, err
	}
	s.revokeToken(ctx, token, uid)
	return u, nil
}

func (s *UserService) revokeToken(ctx context.Context, token, uid string) {
	if err := s.Activations.Revoke(ctx, token); err != nil {
		s.warn(err, uid, "revoke activation token failed")
	}
}

// SetEnabled enables or disables an account. A no-op change is not written, but
// the pending-activation marker is always cleared and disabling always ends
// the session.
func (s *UserService) SetEnabled(ctx context.Context, id string, enabled bool) (*entity.User, error) {
	u, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.IsEnabled() != enabled {
		if u, err = s.save(ctx, "set_enabled", u.ToBuilderWithHasher(s.Hasher).Enabled(enabled)); err != nil {
			return nil, err
		}
	}
	if s.Activations != nil {
		if err := s.Activations.ClearPending(ctx, id); err != nil {
			return nil, fmt.Errorf("clear pending activation: %w", err)
		}
	}
	if !enabled {
		if err := s.endSession(ctx, id); err != nil {
			return nil, err
		}
	}
	return u, nil
}

// SetRole replaces the account's roles with the single given role.
func (s *UserService) SetRole(ctx context.Context, id string, role entity.Role) (*entity.User, error) {
	u, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	b := u.ToBuilderWithHasher(s.Hasher)
	switch role {
	case entity.RoleAdmin:
		b.RoleAdmin()
	case entity.RoleUser:
		b.RoleUser()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	next, err := s.save(ctx, "set_role", b)
	if err != nil {
		return nil, err
	}
	// authorities are baked into access tokens
	if err := s.endSession(ctx, id); err != nil {
		return nil, err
	}
	return next, nil
}

func (s *UserService) GrantAdmin(ctx context.Context, id string) (*entity.User, error) {
	return s.SetRole(ctx, id, entity.RoleAdmin)
}

func (s *UserService) RevokeAdmin(ctx context.Context, id string) (*entity.User, error) {
	return s.SetRole(ctx, id, entity.RoleUser)
}

// ChangePassword rotates the password after checking the current one.
func (s *UserService) ChangePassword(ctx context.Context, id, current, next string) error {
	u, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !helpers.CompareHashAndPassword(u.PasswordHash(), current) {
		return ErrInvalidCredentials
	}
	if _, err := s.save(ctx, "change_password", u.ToBuilderWithHasher(s.Hasher).Password(next)); err != nil {
		return err
	}
	return s.endSession(ctx, id)
}

func (s *UserService) GetProfile(ctx context.Context, id string) (*entity.User, error) {
	return s.load(ctx, id)
}

func (s *UserService) SearchUsers(ctx context.Context, q string, size int) ([]search.UserHit, error) {
	if s.Index == nil {
		return []search.UserHit{}, nil
	}
	return s.Index.Search(ctx, q, size)
}

func (s *UserService) load(ctx context.Context, id string) (*entity.User, error) {
	u, err := s.Repo.FindByID(ctx, id)
	if errors.Is(err, repo.ErrUserNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

func (s *UserService) save(ctx context.Context, op string, b *entity.UserBuilder) (*entity.User, error) {
	next, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("build user: %w", err)
	}
	err = s.Repo.Save(ctx, next)
	metrics.RecordWrite(op, err)
	if errors.Is(err, repo.ErrUserNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	s.index(ctx, next)
	return next, nil
}

func (s *UserService) endSession(ctx context.Context, id string) error {
	if s.Sessions == nil {
		return nil
	}
	if err := s.Sessions.Delete(ctx, id); err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return nil
}

func (s *UserService) warn(err error, uid, msg string) {
	if s.Logger != nil {
		s.Logger.WithError(err).WithField("user_id", uid).Warn(msg)
	}
}

func (s *UserService) index(ctx context.Context, u *entity.User) {
	if s.Index == nil {
		return
	}
	// failures are logged by the indexer; the write already succeeded
	_ = s.Index.IndexUser(ctx, u)
}

func genToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
