package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/authorization-service/internal/application"
	"github.com/oksasatya/authorization-service/pkg/helpers"
	"github.com/oksasatya/authorization-service/pkg/response"
	"github.com/oksasatya/authorization-service/pkg/validation"
)

type AuthHandler struct {
	Users   *application.UserService
	Auth    *application.AuthService
	Logger  *logrus.Logger
	Cookies *helpers.Manager
}

func NewAuthHandler(users *application.UserService, auth *application.AuthService, logger *logrus.Logger, cookieDomain string, cookieSecure bool) *AuthHandler {
	return &AuthHandler{Users: users, Auth: auth, Logger: logger, Cookies: helpers.NewCookie(cookieDomain, cookieSecure)}
}

type registerRequest struct {
	Identifier string `json:"identifier" binding:"required,notblank,max=64"`
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required,pwd,max=72"`
}

type tokenRequest struct {
	Token string `json:"token" binding:"required"`
}

type emailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Register POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u, err := h.Users.Register(c.Request.Context(), application.RegisterInput{
		Identifier: req.Identifier,
		Email:      req.Email,
		Password:   req.Password,
	})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	helpers.LogInfo(h.Logger, "user registered", logrus.Fields{"user_id": u.ID()})
	response.Success(c, http.StatusCreated, gin.H{"user": userView(u)}, "registered; check your email to activate the account", nil)
}

// Activate POST /api/auth/activate {token}
func (h *AuthHandler) Activate(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u, err := h.Users.Activate(c.Request.Context(), req.Token)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, userView(u), "account activated", nil)
}

const resendMessage = "if the account is awaiting activation, a new link has been sent"

// ResendActivation POST /api/auth/activate/resend {email}
// The answer is the same for every well-formed email, failures included.
func (h *AuthHandler) ResendActivation(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if err := h.Users.ResendActivation(c.Request.Context(), req.Email); err != nil {
		helpers.LogError(h.Logger, "resend activation failed", err, nil)
	}
	response.Success[any](c, http.StatusOK, gin.H{"requested": true}, resendMessage, nil)
}

// Login POST /api/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u, pair, err := h.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	h.setCookies(c, pair)
	response.Success(c, http.StatusOK, gin.H{
		"user":          userView(u),
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	}, "login successful", expiryMeta(pair))
}

// Refresh POST /api/refresh; the refresh token comes from the cookie or the body.
func (h *AuthHandler) Refresh(c *gin.Context) {
	refresh, _ := c.Cookie(helpers.RefreshCookie)
	if refresh == "" {
		var req refreshRequest
		_ = c.ShouldBindJSON(&req)
		refresh = req.RefreshToken
	}
	if refresh == "" {
		response.Error[any](c, http.StatusUnauthorized, "missing refresh token", nil)
		return
	}
	_, pair, err := h.Auth.Refresh(c.Request.Context(), refresh)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	h.setCookies(c, pair)
	response.Success(c, http.StatusOK, gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	}, "token refreshed", expiryMeta(pair))
}

// Logout POST /api/logout (auth required)
func (h *AuthHandler) Logout(c *gin.Context) {
	uid := c.GetString("userID")
	if err := h.Auth.Logout(c.Request.Context(), uid); err != nil {
		helpers.LogError(h.Logger, "logout failed", err, logrus.Fields{"user_id": uid})
	}
	h.Cookies.Clear(c)
	response.Success[any](c, http.StatusOK, gin.H{"logged_out": true}, "logged out", nil)
}

func (h *AuthHandler) setCookies(c *gin.Context, pair *application.TokenPair) {
	h.Cookies.SetPair(c, pair.AccessToken, time.Unix(pair.AccessExp, 0), pair.RefreshToken, time.Unix(pair.RefreshExp, 0))
}

func expiryMeta(pair *application.TokenPair) map[string]any {
	return map[string]any{
		"access_expires_at":  time.Unix(pair.AccessExp, 0).UTC(),
		"refresh_expires_at": time.Unix(pair.RefreshExp, 0).UTC(),
	}
}
