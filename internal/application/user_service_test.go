package application

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/authorization-service/internal/domain/entity"
	repo "github.com/oksasatya/authorization-service/internal/domain/repository"
	"github.com/oksasatya/authorization-service/internal/infrastructure/search"
	"github.com/oksasatya/authorization-service/internal/testutil"
	"github.com/oksasatya/authorization-service/pkg/helpers"
	"github.com/oksasatya/authorization-service/pkg/mailer"
	tpl "github.com/oksasatya/authorization-service/pkg/mailer/templates"
)

type userFixture struct {
	svc      *UserService
	repo     *testutil.MemUserRepo
	acts     *memActivations
	sessions *memSessions
	jobs     *recordingPublisher
	index    *recordingIndex
}

func newUserFixture() *userFixture {
	f := &userFixture{
		repo:     testutil.NewMemUserRepo(),
		acts:     newMemActivations(),
		sessions: newMemSessions(),
		jobs:     &recordingPublisher{},
		index:    &recordingIndex{},
	}
	f.svc = NewUserService(f.repo, f.acts, f.sessions, f.jobs, f.index, nil, testHasher, UserServiceConfig{
		AppName:         "Authorization",
		ActivationURL:   "https://app.example.com/activate",
		ActivationTTL:   time.Hour,
		MailSendEnabled: true,
	})
	return f
}

func (f *userFixture) register(t *testing.T, identifier, email string) *entity.User {
	t.Helper()
	u, err := f.svc.Register(context.Background(), RegisterInput{Identifier: identifier, Email: email, Password: "s3cret"})
	require.NoError(t, err)
	return u
}

// lastLinkToken returns the token of the most recently mailed activation link.
func (f *userFixture) lastLinkToken(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, f.jobs.jobs)
	job, ok := f.jobs.jobs[len(f.jobs.jobs)-1].(mailer.EmailJob)
	require.True(t, ok)
	link, _ := job.Data["ActivationURL"].(string)
	_, tok, ok := strings.Cut(link, "?token=")
	require.True(t, ok, "link %q has no token", link)
	return tok
}

func TestUserService_Register(t *testing.T) {
	f := newUserFixture()
	u := f.register(t, "jdoe", "jdoe@example.com")

	assert.NotEmpty(t, u.ID())
	assert.Equal(t, "jdoe", u.Identifier())
	assert.Equal(t, "jdoe@example.com", u.Email())
	assert.False(t, u.IsEnabled())
	assert.Equal(t, []entity.Role{entity.RoleUser}, u.Roles())
	assert.True(t, helpers.CompareHashAndPassword(u.PasswordHash(), "s3cret"))
	assert.Equal(t, []string{u.ID()}, f.index.indexed)
	assert.True(t, f.acts.pending[u.ID()])

	require.Len(t, f.jobs.jobs, 1)
	job, ok := f.jobs.jobs[0].(mailer.EmailJob)
	require.True(t, ok)
	assert.Equal(t, "jdoe@example.com", job.To)
	assert.Equal(t, tpl.AccountActivation, job.Template)
	link, _ := job.Data["ActivationURL"].(string)
	assert.True(t, strings.HasPrefix(link, "https://app.example.com/activate?token="))
	assert.Equal(t, []string{f.lastLinkToken(t)}, f.acts.tokensFor(u.ID()))
}

func TestUserService_RegisterNormalizesEmail(t *testing.T) {
	f := newUserFixture()
	u := f.register(t, "jdoe", "  JDoe@Example.COM ")
	assert.Equal(t, "jdoe@example.com", u.Email())

	_, err := f.svc.Register(context.Background(), RegisterInput{Identifier: "other", Email: "jdoe@example.com", Password: "x"})
	assert.ErrorIs(t, err, repo.ErrDuplicateUser)
}

func TestUserService_RegisterMailDisabled(t *testing.T) {
	f := newUserFixture()
	f.svc.Cfg.MailSendEnabled = false
	u := f.register(t, "jdoe", "jdoe@example.com")
	assert.Len(t, f.acts.tokensFor(u.ID()), 1)
	assert.Empty(t, f.jobs.jobs)
}

func TestUserService_RegisterRejects(t *testing.T) {
	f := newUserFixture()
	f.register(t, "jdoe", "jdoe@example.com")
	ctx := context.Background()

	_, err := f.svc.Register(ctx, RegisterInput{Identifier: "other", Email: "jdoe@example.com", Password: "x"})
	assert.ErrorIs(t, err, repo.ErrDuplicateUser)

	_, err = f.svc.Register(ctx, RegisterInput{Identifier: "  ", Email: "not-an-email", Password: "x"})
	require.Error(t, err)
	assert.True(t, repo.IsValidationError(err))
}

func TestUserService_Activate(t *testing.T) {
	f := newUserFixture()
	reg := f.register(t, "jdoe", "jdoe@example.com")
	tok := f.lastLinkToken(t)
	ctx := context.Background()

	u, err := f.svc.Activate(ctx, tok)
	require.NoError(t, err)
	assert.True(t, u.IsEnabled())
	assert.Equal(t, reg.ID(), u.ID())
	assert.Equal(t, reg.PasswordHash(), u.PasswordHash(), "activation must not rehash")
	assert.False(t, f.acts.pending[u.ID()])

	_, err = f.svc.Activate(ctx, tok)
	assert.ErrorIs(t, err, ErrInvalidActivationToken, "tokens are single use")
}

func TestUserService_ResendActivation(t *testing.T) {
	f := newUserFixture()
	u := f.register(t, "jdoe", "jdoe@example.com")
	first := f.lastLinkToken(t)
	ctx := context.Background()

	require.NoError(t, f.svc.ResendActivation(ctx, "JDOE@example.com"))
	require.Len(t, f.jobs.jobs, 2)
	assert.NotEqual(t, first, f.lastLinkToken(t))
	assert.Len(t, f.acts.tokensFor(u.ID()), 2)

	require.NoError(t, f.svc.ResendActivation(ctx, "ghost@example.com"))
	assert.Len(t, f.jobs.jobs, 2)

	_, err := f.svc.Activate(ctx, first)
	require.NoError(t, err)
	require.NoError(t, f.svc.ResendActivation(ctx, "jdoe@example.com"))
	assert.Len(t, f.jobs.jobs, 2, "enabled accounts get no link")
}

func TestUserService_AdminDisableBlocksActivation(t *testing.T) {
	ctx := context.Background()

	t.Run("activated then disabled", func(t *testing.T) {
		f := newUserFixture()
		u := f.register(t, "jdoe", "jdoe@example.com")
		first := f.lastLinkToken(t)
		require.NoError(t, f.svc.ResendActivation(ctx, "jdoe@example.com"))
		second := f.lastLinkToken(t)

		_, err := f.svc.Activate(ctx, first)
		require.NoError(t, err)
		_, err = f.svc.SetEnabled(ctx, u.ID(), false)
		require.NoError(t, err)

		jobs := len(f.jobs.jobs)
		require.NoError(t, f.svc.ResendActivation(ctx, "jdoe@example.com"))
		assert.Len(t, f.jobs.jobs, jobs, "no link for an admin-disabled account")

		_, err = f.svc.Activate(ctx, second)
		assert.ErrorIs(t, err, ErrInvalidActivationToken)
		got, err := f.svc.GetProfile(ctx, u.ID())
		require.NoError(t, err)
		assert.False(t, got.IsEnabled())
	})

	t.Run("disabled while pending", func(t *testing.T) {
		f := newUserFixture()
		u := f.register(t, "jdoe", "jdoe@example.com")
		tok := f.lastLinkToken(t)

		_, err := f.svc.SetEnabled(ctx, u.ID(), false)
		require.NoError(t, err)

		_, err = f.svc.Activate(ctx, tok)
		assert.ErrorIs(t, err, ErrInvalidActivationToken)
		require.NoError(t, f.svc.ResendActivation(ctx, "jdoe@example.com"))
		assert.Len(t, f.jobs.jobs, 1)
	})
}

func TestUserService_SetEnabledNoopSkipsWrite(t *testing.T) {
	f := newUserFixture()
	reg := f.register(t, "jdoe", "jdoe@example.com")

	u, err := f.svc.SetEnabled(context.Background(), reg.ID(), false)
	require.NoError(t, err)
	assert.False(t, u.IsEnabled())
	assert.Zero(t, f.repo.Saves)
}

func TestUserService_RestrictingChangesEndSession(t *testing.T) {
	tests := []struct {
		name string
		op   func(*UserService, string) error
	}{
		{"disable", func(s *UserService, id string) error {
			_, err := s.SetEnabled(context.Background(), id, false)
			return err
		}},
		{"revoke admin", func(s *UserService, id string) error {
			_, err := s.RevokeAdmin(context.Background(), id)
			return err
		}},
		{"change password", func(s *UserService, id string) error {
			return s.ChangePassword(context.Background(), id, "s3cret", "n3w")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newUserFixture()
			u := f.register(t, "jdoe", "jdoe@example.com")
			ctx := context.Background()
			_, err := f.svc.SetEnabled(ctx, u.ID(), true)
			require.NoError(t, err)
			require.NoError(t, f.sessions.Put(ctx, Session{UserID: u.ID(), SessionID: "s-1"}))

			require.NoError(t, tt.op(f.svc, u.ID()))
			_, err = f.sessions.Get(ctx, u.ID())
			assert.ErrorIs(t, err, ErrSessionNotFound)
		})
	}
}

func TestUserService_SetRole(t *testing.T) {
	f := newUserFixture()
	reg := f.register(t, "jdoe", "jdoe@example.com")
	ctx := context.Background()

	u, err := f.svc.GrantAdmin(ctx, reg.ID())
	require.NoError(t, err)
	assert.Equal(t, []string{"ADMIN"}, u.Authorities())
	assert.Equal(t, reg.ID(), u.ID())

	u, err = f.svc.RevokeAdmin(ctx, reg.ID())
	require.NoError(t, err)
	assert.Equal(t, []string{"USER"}, u.Authorities())

	_, err = f.svc.SetRole(ctx, reg.ID(), entity.Role("ROOT"))
	assert.ErrorIs(t, err, ErrUnknownRole)

	_, err = f.svc.SetRole(ctx, "missing", entity.RoleAdmin)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserService_ChangePassword(t *testing.T) {
	f := newUserFixture()
	reg := f.register(t, "jdoe", "jdoe@example.com")
	ctx := context.Background()
	id := reg.ID()

	assert.ErrorIs(t, f.svc.ChangePassword(ctx, id, "wrong", "n3w"), ErrInvalidCredentials)
	require.NoError(t, f.svc.ChangePassword(ctx, id, "s3cret", "n3w"))

	u, err := f.svc.GetProfile(ctx, id)
	require.NoError(t, err)
	assert.True(t, helpers.CompareHashAndPassword(u.PasswordHash(), "n3w"))
	assert.False(t, helpers.CompareHashAndPassword(u.PasswordHash(), "s3cret"))
}

func TestUserService_SearchUsers(t *testing.T) {
	f := newUserFixture()
	f.index.hits = []search.UserHit{{ID: "1", Username: "jdoe@example.com"}}

	hits, err := f.svc.SearchUsers(context.Background(), "jdoe", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	f.svc.Index = nil
	hits, err = f.svc.SearchUsers(context.Background(), "jdoe", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}
