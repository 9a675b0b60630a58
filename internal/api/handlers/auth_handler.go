package handlers

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/saif-ali01/projectXAPI/internal/auth"
	"github.com/saif-ali01/projectXAPI/internal/logger"
	"github.com/saif-ali01/projectXAPI/internal/services"
)

const oauthStateCookie = "oauth_state"

// GoogleAuthenticator runs the Google authorization code flow.
type GoogleAuthenticator interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GoogleProfile, error)
}

// AuthHandler handles signup, login, password reset and Google sign-in.
type AuthHandler struct {
	userService services.IUserService
	google      GoogleAuthenticator
	frontendURL string
}

// NewAuthHandler creates a new AuthHandler. google may be nil when sign-in with Google is not configured.
func NewAuthHandler(userService services.IUserService, google GoogleAuthenticator, frontendURL string) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		google:      google,
		frontendURL: strings.TrimRight(frontendURL, "/"),
	}
}

// TokenResponse carries an issued JWT.
type TokenResponse struct {
	Token string `json:"token"`
}

// ForgotPasswordRequest is the body of POST /api/auth/forgot-password.
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// Signup handles POST /api/auth/signup
func (h *AuthHandler) Signup(c *gin.Context) {
	var in services.SignupInput
	if !bindJSON(c, &in) {
		return
	}
	if _, err := h.userService.Signup(c.Request.Context(), &in); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, MessageResponse{Message: "User created successfully"})
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var in services.LoginInput
	if !bindJSON(c, &in) {
		return
	}
	token, err := h.userService.Login(c.Request.Context(), &in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, TokenResponse{Token: token})
}

// ForgotPassword handles POST /api/auth/forgot-password
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.userService.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Password reset link sent"})
}

// ResetPassword handles POST /api/auth/reset-password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var in services.ResetPasswordInput
	if !bindJSON(c, &in) {
		return
	}
	if err := h.userService.ResetPassword(c.Request.Context(), &in); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Password reset successfully"})
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	user, err := h.userService.Me(c.Request.Context(), ownerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// GoogleStart handles GET /api/auth/google by redirecting to the consent screen.
func (h *AuthHandler) GoogleStart(c *gin.Context) {
	state, err := auth.NewResetToken()
	if err != nil {
		respondError(c, err)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, state, 600, "/api/auth/google", "", c.Request.TLS != nil, true)
	c.Redirect(http.StatusFound, h.google.AuthCodeURL(state))
}

// GoogleCallback handles GET /api/auth/google/callback. On success the browser
// is sent back to the frontend with the JWT in the query string.
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	state, err := c.Cookie(oauthStateCookie)
	if err != nil || state == "" || state != c.Query("state") {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid OAuth state"})
		return
	}
	c.SetCookie(oauthStateCookie, "", -1, "/api/auth/google", "", c.Request.TLS != nil, true)

	code := c.Query("code")
	if code == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Message: "Missing authorization code"})
		return
	}

	profile, err := h.google.Exchange(c.Request.Context(), code)
	if err != nil {
		logger.FromGin(c).Warn("Google code exchange failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Message: "Google authentication failed"})
		return
	}

	token, err := h.userService.GoogleLogin(c.Request.Context(), profile)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Redirect(http.StatusFound, h.frontendURL+"/oauth/callback?token="+url.QueryEscape(token))
}
