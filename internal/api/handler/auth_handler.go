package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oumizumi/Kairo-sub002/internal/dto"
	"github.com/oumizumi/Kairo-sub002/internal/service"
	"github.com/oumizumi/Kairo-sub002/pkg/response"
)

const (
	refreshCookie     = "refresh_token"
	refreshCookiePath = "/api/auth"
)

// AuthHandler account endpoints
type AuthHandler struct {
	authSvc    service.AuthService
	refreshTTL time.Duration
}

// NewAuthHandler creates an AuthHandler
func NewAuthHandler(authSvc service.AuthService, refreshTTL time.Duration) *AuthHandler {
	return &AuthHandler{authSvc: authSvc, refreshTTL: refreshTTL}
}

// Register creates an account and signs it in
// POST /api/auth/register/
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "invalid request", err.Error())
		return
	}

	result, err := h.authSvc.Register(c.Request.Context(), &req)
	if err != nil {
		handleAuthError(c, err)
		return
	}

	h.setRefreshCookie(c, result.RefreshToken)
	response.Created(c, result)
}

// Login username (or email) and password
// POST /api/auth/login/
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "username and password are required")
		return
	}

	result, err := h.authSvc.Login(c.Request.Context(), &req)
	if err != nil {
		handleAuthError(c, err)
		return
	}

	h.setRefreshCookie(c, result.RefreshToken)
	response.OK(c, result)
}

// GuestLogin signs in a new temporary account
// POST /api/auth/guest-login/
func (h *AuthHandler) GuestLogin(c *gin.Context) {
	result, err := h.authSvc.GuestLogin(c.Request.Context())
	if err != nil {
		handleAuthError(c, err)
		return
	}

	h.setRefreshCookie(c, result.RefreshToken)
	response.Created(c, result)
}

// RefreshToken exchanges a refresh token (body or cookie) for a new pair
// POST /api/auth/token/refresh/
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req dto.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if cookie, cerr := c.Cookie(refreshCookie); cerr == nil && cookie != "" {
			req.RefreshToken = cookie
		} else {
			response.BadRequest(c, 10001, "refresh_token is required")
			return
		}
	}

	result, err := h.authSvc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		handleAuthError(c, err)
		return
	}

	h.setRefreshCookie(c, result.RefreshToken)
	response.OK(c, result)
}

// Logout revokes the current access token and the refresh token if given
// POST /api/auth/logout/
func (h *AuthHandler) Logout(c *gin.Context) {
	var req dto.LogoutRequest
	_ = c.ShouldBindJSON(&req)
	if req.RefreshToken == "" {
		req.RefreshToken, _ = c.Cookie(refreshCookie)
	}

	if err := h.authSvc.Logout(c.Request.Context(), GetClaims(c), req.RefreshToken); err != nil {
		response.InternalError(c)
		return
	}

	c.SetCookie(refreshCookie, "", -1, refreshCookiePath, "", c.Request.TLS != nil, true)
	response.OK(c, dto.MessageResponse{Message: "Successfully logged out"})
}

// Me the signed-in user
// GET /api/auth/me/
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	user, err := h.authSvc.Me(c.Request.Context(), userID)
	if err != nil {
		handleAuthError(c, err)
		return
	}

	response.OK(c, user)
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, token string) {
	if token == "" || h.refreshTTL <= 0 {
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(refreshCookie, token, int(h.refreshTTL.Seconds()), refreshCookiePath, "", c.Request.TLS != nil, true)
}

func handleAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Unauthorized(c, 11001, err.Error())
	case errors.Is(err, service.ErrUsernameTaken):
		response.Conflict(c, 11002, err.Error())
	case errors.Is(err, service.ErrEmailTaken):
		response.Conflict(c, 11003, err.Error())
	case errors.Is(err, service.ErrInvalidRefreshToken):
		response.Unauthorized(c, 11004, err.Error())
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, 11005, err.Error())
	default:
		response.InternalError(c)
	}
}
