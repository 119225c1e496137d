package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/authorization-service/internal/application"
	"github.com/oksasatya/authorization-service/internal/domain/entity"
	"github.com/oksasatya/authorization-service/internal/interface/middleware"
	"github.com/oksasatya/authorization-service/internal/testutil"
	"github.com/oksasatya/authorization-service/pkg/helpers"
	"github.com/oksasatya/authorization-service/pkg/validation"
)

func init() {
	gin.SetMode(gin.TestMode)
	validation.Init()
}

type memSessions map[string]application.Session

func (m memSessions) Put(_ context.Context, s application.Session) error {
	m[s.UserID] = s
	return nil
}

func (m memSessions) Get(_ context.Context, uid string) (application.Session, error) {
	s, ok := m[uid]
	if !ok {
		return application.Session{}, application.ErrSessionNotFound
	}
	return s, nil
}

func (m memSessions) Delete(_ context.Context, uid string) error {
	delete(m, uid)
	return nil
}

type memActivations struct {
	tokens  map[string]string
	pending map[string]bool
}

func (m *memActivations) Issue(_ context.Context, token, uid string, _ time.Duration) error {
	m.tokens[token] = uid
	return nil
}

func (m *memActivations) Resolve(_ context.Context, token string) (string, error) {
	uid, ok := m.tokens[token]
	if !ok {
		return "", application.ErrInvalidActivationToken
	}
	return uid, nil
}

func (m *memActivations) Revoke(_ context.Context, token string) error {
	delete(m.tokens, token)
	return nil
}

func (m *memActivations) MarkPending(_ context.Context, uid string) error {
	m.pending[uid] = true
	return nil
}

func (m *memActivations) IsPending(_ context.Context, uid string) (bool, error) {
	return m.pending[uid], nil
}

func (m *memActivations) ClearPending(_ context.Context, uid string) error {
	delete(m.pending, uid)
	return nil
}

// tokensFor plays the mailbox: it returns every live token issued to uid.
func (m *memActivations) tokensFor(uid string) []string {
	var out []string
	for tok, owner := range m.tokens {
		if owner == uid {
			out = append(out, tok)
		}
	}
	return out
}

type server struct {
	engine *gin.Engine
	repo   *testutil.MemUserRepo
	users  *application.UserService
	acts   *memActivations
}

func newServer() *server {
	repo := testutil.NewMemUserRepo()
	jwt := helpers.NewJWTManager("access-secret", "refresh-secret", time.Minute, time.Hour)
	acts := &memActivations{tokens: map[string]string{}, pending: map[string]bool{}}
	sessions := memSessions{}
	users := application.NewUserService(repo, acts, sessions, nil, nil, nil, testutil.FastHasher, application.UserServiceConfig{
		ActivationURL: "https://app.example.com/activate",
	})
	auth := application.NewAuthService(repo, jwt, sessions, nil)

	ah := NewAuthHandler(users, auth, nil, "localhost", false)
	uh := NewUserHandler(users, nil)
	adm := NewAdminHandler(users, nil)

	r := gin.New()
	api := r.Group("/api")
	api.POST("/auth/register", ah.Register)
	api.POST("/auth/activate", ah.Activate)
	api.POST("/auth/activate/resend", ah.ResendActivation)
	api.POST("/login", ah.Login)
	api.POST("/refresh", ah.Refresh)

	protected := api.Group("/")
	protected.Use(middleware.Auth(jwt, auth))
	protected.POST("/logout", ah.Logout)
	protected.GET("/me", uh.Me)
	protected.PUT("/me/password", uh.ChangePassword)

	admin := api.Group("/admin")
	admin.Use(middleware.Auth(jwt, auth), middleware.RequireAuthority(entity.RoleAdmin.String()))
	admin.PUT("/users/:id/enabled", adm.SetEnabled)
	admin.PUT("/users/:id/role", adm.SetRole)
	admin.GET("/users/search", adm.Search)

	return &server{engine: r, repo: repo, users: users, acts: acts}
}

type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Error   map[string]string `json:"error"`
}

func (s *server) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	testutil.DecodeJSON(t, w, &env)
	return w, env
}

type userData struct {
	ID         string   `json:"id"`
	Identifier string   `json:"identifier"`
	Username   string   `json:"username"`
	Enabled    bool     `json:"enabled"`
	Roles      []string `json:"roles"`
}

func (s *server) register(t *testing.T, identifier, email, password string) string {
	t.Helper()
	w, env := s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"identifier": identifier, "email": email, "password": password})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var reg struct {
		User userData `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &reg))
	return reg.User.ID
}

func (s *server) activate(t *testing.T, token string) int {
	t.Helper()
	w, _ := s.do(t, http.MethodPost, "/api/auth/activate", "", gin.H{"token": token})
	return w.Code
}

// registerActive registers and activates an account, returning its id.
func (s *server) registerActive(t *testing.T, identifier, email, password string) string {
	t.Helper()
	id := s.register(t, identifier, email, password)
	toks := s.acts.tokensFor(id)
	require.Len(t, toks, 1)
	require.Equal(t, http.StatusOK, s.activate(t, toks[0]))
	return id
}

func (s *server) login(t *testing.T, email, password string) (access, refresh string) {
	t.Helper()
	w, env := s.do(t, http.MethodPost, "/api/login", "", gin.H{"email": email, "password": password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var data struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data.AccessToken, data.RefreshToken
}

func TestRegister(t *testing.T) {
	s := newServer()
	w, env := s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"identifier": "jdoe", "email": "jdoe@example.com", "password": "correct-horse",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var reg struct {
		User userData `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &reg))
	assert.Equal(t, "jdoe", reg.User.Identifier)
	assert.Equal(t, "jdoe@example.com", reg.User.Username)
	assert.False(t, reg.User.Enabled)
	assert.Equal(t, []string{"USER"}, reg.User.Roles)
	assert.NotContains(t, w.Body.String(), "$2a$", "hash must not leak")

	toks := s.acts.tokensFor(reg.User.ID)
	require.Len(t, toks, 1)
	assert.NotContains(t, w.Body.String(), toks[0], "activation token is mailed, never returned")
	assert.NotContains(t, w.Body.String(), "activation_link")
}

func TestRegister_Errors(t *testing.T) {
	s := newServer()
	s.registerActive(t, "jdoe", "jdoe@example.com", "correct-horse")

	tests := []struct {
		name  string
		body  gin.H
		code  int
		field string
	}{
		{"duplicate email", gin.H{"identifier": "other", "email": "jdoe@example.com", "password": "correct-horse"}, http.StatusConflict, ""},
		{"duplicate identifier", gin.H{"identifier": "jdoe", "email": "x@example.com", "password": "correct-horse"}, http.StatusConflict, ""},
		{"bad email", gin.H{"identifier": "x", "email": "nope", "password": "correct-horse"}, http.StatusBadRequest, "email"},
		{"short password", gin.H{"identifier": "x", "email": "x@example.com", "password": "short"}, http.StatusBadRequest, "password"},
		{"blank identifier", gin.H{"identifier": "   ", "email": "x@example.com", "password": "correct-horse"}, http.StatusBadRequest, "identifier"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := s.do(t, http.MethodPost, "/api/auth/register", "", tt.body)
			assert.Equal(t, tt.code, w.Code, w.Body.String())
			assert.False(t, env.Success)
			if tt.field != "" {
				assert.Contains(t, env.Error, tt.field)
			}
		})
	}
}

func TestLogin(t *testing.T) {
	s := newServer()
	s.registerActive(t, "jdoe", "jdoe@example.com", "correct-horse")

	access, _ := s.login(t, "jdoe@example.com", "correct-horse")
	assert.NotEmpty(t, access)

	w, _ := s.do(t, http.MethodPost, "/api/login", "", gin.H{"email": "jdoe@example.com", "password": "wrong-horse"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/login", "", gin.H{"email": "ghost@example.com", "password": "correct-horse"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogin_PendingAccountIsForbidden(t *testing.T) {
	s := newServer()
	w, _ := s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"identifier": "jdoe", "email": "jdoe@example.com", "password": "correct-horse"})
	require.Equal(t, http.StatusCreated, w.Code)

	w, env := s.do(t, http.MethodPost, "/api/login", "", gin.H{"email": "jdoe@example.com", "password": "correct-horse"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "account disabled", env.Message)
}

func TestActivate_BadToken(t *testing.T) {
	s := newServer()
	w, _ := s.do(t, http.MethodPost, "/api/auth/activate", "", gin.H{"token": "nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResendActivation_DoesNotRevealAccounts(t *testing.T) {
	s := newServer()
	s.register(t, "pending", "pending@example.com", "correct-horse")
	s.registerActive(t, "active", "active@example.com", "correct-horse")
	disabledID := s.registerActive(t, "off", "off@example.com", "correct-horse")
	_, err := s.users.SetEnabled(context.Background(), disabledID, false)
	require.NoError(t, err)

	resend := func(email string) (int, string, string) {
		w, env := s.do(t, http.MethodPost, "/api/auth/activate/resend", "", gin.H{"email": email})
		return w.Code, env.Message, string(env.Data)
	}
	wantCode, wantMsg, wantData := resend("ghost@example.com")
	assert.Equal(t, http.StatusOK, wantCode)

	for _, email := range []string{"pending@example.com", "active@example.com", "off@example.com"} {
		code, msg, data := resend(email)
		assert.Equal(t, wantCode, code, email)
		assert.Equal(t, wantMsg, msg, email)
		assert.Equal(t, wantData, data, email)
	}
	assert.Empty(t, s.acts.tokensFor(disabledID))
}

func TestAdminDisable_NotUndoneByActivation(t *testing.T) {
	s := newServer()
	adminID := s.registerActive(t, "root", "root@example.com", "correct-horse")
	_, err := s.users.GrantAdmin(context.Background(), adminID)
	require.NoError(t, err)
	adminTok, _ := s.login(t, "root@example.com", "correct-horse")

	userID := s.register(t, "jdoe", "jdoe@example.com", "correct-horse")
	w, _ := s.do(t, http.MethodPost, "/api/auth/activate/resend", "", gin.H{"email": "jdoe@example.com"})
	require.Equal(t, http.StatusOK, w.Code)
	toks := s.acts.tokensFor(userID)
	require.Len(t, toks, 2)
	require.Equal(t, http.StatusOK, s.activate(t, toks[0]))

	w, _ = s.do(t, http.MethodPut, "/api/admin/users/"+userID+"/enabled", adminTok, gin.H{"enabled": false})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, _ = s.do(t, http.MethodPost, "/api/auth/activate/resend", "", gin.H{"email": "jdoe@example.com"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{toks[1]}, s.acts.tokensFor(userID), "no new token for an admin-disabled account")

	assert.Equal(t, http.StatusBadRequest, s.activate(t, toks[1]), "stale token cannot re-enable")

	w, _ = s.do(t, http.MethodPost, "/api/login", "", gin.H{"email": "jdoe@example.com", "password": "correct-horse"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminChanges_EndSessions(t *testing.T) {
	s := newServer()
	adminID := s.registerActive(t, "root", "root@example.com", "correct-horse")
	_, err := s.users.GrantAdmin(context.Background(), adminID)
	require.NoError(t, err)
	deputyID := s.registerActive(t, "deputy", "deputy@example.com", "correct-horse")
	_, err = s.users.GrantAdmin(context.Background(), deputyID)
	require.NoError(t, err)
	userID := s.registerActive(t, "jdoe", "jdoe@example.com", "correct-horse")

	adminTok, _ := s.login(t, "root@example.com", "correct-horse")
	deputyTok, _ := s.login(t, "deputy@example.com", "correct-horse")
	userTok, _ := s.login(t, "jdoe@example.com", "correct-horse")

	w, _ := s.do(t, http.MethodGet, "/api/me", userTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(t, http.MethodPut, "/api/admin/users/"+userID+"/enabled", adminTok, gin.H{"enabled": false})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w, _ = s.do(t, http.MethodGet, "/api/me", userTok, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "disabled user keeps no session")

	w, _ = s.do(t, http.MethodGet, "/api/admin/users/search?q=jdoe", deputyTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(t, http.MethodPut, "/api/admin/users/"+deputyID+"/role", adminTok, gin.H{"role": "USER"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w, _ = s.do(t, http.MethodGet, "/api/admin/users/search?q=jdoe", deputyTok, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "demoted admin must log in again")
}

func TestMeAndLogout(t *testing.T) {
	s := newServer()
	id := s.registerActive(t, "jdoe", "jdoe@example.com", "correct-horse")
	access, _ := s.login(t, "jdoe@example.com", "correct-horse")

	w, env := s.do(t, http.MethodGet, "/api/me", access, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me userData
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, id, me.ID)
	assert.True(t, me.Enabled)

	w, _ = s.do(t, http.MethodPost, "/api/logout", access, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/me", access, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "session is gone after logout")
}

func TestRefresh(t *testing.T) {
	s := newServer()
	s.registerActive(t, "jdoe", "jdoe@example.com", "correct-horse")
	_, refresh := s.login(t, "jdoe@example.com", "correct-horse")

	w, _ := s.do(t, http.MethodPost, "/api/refresh", "", gin.H{"refresh_token": refresh})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, _ = s.do(t, http.MethodPost, "/api/refresh", "", gin.H{"refresh_token": refresh})
	assert.Equal(t, http.StatusUnauthorized, w.Code, "refresh tokens are single use")

	w, _ = s.do(t, http.MethodPost, "/api/refresh", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestChangePassword(t *testing.T) {
	s := newServer()
	s.registerActive(t, "jdoe", "jdoe@example.com", "correct-horse")
	access, _ := s.login(t, "jdoe@example.com", "correct-horse")

	w, _ := s.do(t, http.MethodPut, "/api/me/password", access, gin.H{"current_password": "wrong-horse", "new_password": "battery-staple"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = s.do(t, http.MethodPut, "/api/me/password", access, gin.H{"current_password": "correct-horse", "new_password": "correct-horse"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodPut, "/api/me/password", access, gin.H{"current_password": "correct-horse", "new_password": "battery-staple"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, _ = s.do(t, http.MethodGet, "/api/me", access, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "password change ends the session")

	access, _ = s.login(t, "JDoe@Example.com", "battery-staple")
	w, _ = s.do(t, http.MethodGet, "/api/me", access, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdmin(t *testing.T) {
	s := newServer()
	adminID := s.registerActive(t, "root", "root@example.com", "correct-horse")
	_, err := s.users.GrantAdmin(context.Background(), adminID)
	require.NoError(t, err)
	userID := s.registerActive(t, "jdoe", "jdoe@example.com", "correct-horse")

	adminTok, _ := s.login(t, "root@example.com", "correct-horse")
	userTok, _ := s.login(t, "jdoe@example.com", "correct-horse")

	w, _ := s.do(t, http.MethodPut, "/api/admin/users/"+userID+"/enabled", userTok, gin.H{"enabled": false})
	assert.Equal(t, http.StatusForbidden, w.Code, "USER cannot reach admin routes")

	w, env := s.do(t, http.MethodPut, "/api/admin/users/"+userID+"/enabled", adminTok, gin.H{"enabled": false})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var u userData
	require.NoError(t, json.Unmarshal(env.Data, &u))
	assert.False(t, u.Enabled)

	w, _ = s.do(t, http.MethodPost, "/api/login", "", gin.H{"email": "jdoe@example.com", "password": "correct-horse"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env = s.do(t, http.MethodPut, "/api/admin/users/"+userID+"/role", adminTok, gin.H{"role": "ADMIN"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, &u))
	assert.Equal(t, []string{"ADMIN"}, u.Roles)

	w, _ = s.do(t, http.MethodPut, "/api/admin/users/"+userID+"/role", adminTok, gin.H{"role": "ROOT"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodPut, "/api/admin/users/missing/enabled", adminTok, gin.H{"enabled": true})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = s.do(t, http.MethodPut, "/api/admin/users/"+userID+"/enabled", adminTok, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/admin/users/search?q=jdoe", adminTok, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
