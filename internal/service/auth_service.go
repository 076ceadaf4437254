package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/oumizumi/Kairo-sub002/config"
	"github.com/oumizumi/Kairo-sub002/internal/dto"
	"github.com/oumizumi/Kairo-sub002/internal/model"
	"github.com/oumizumi/Kairo-sub002/internal/repository"
	"github.com/oumizumi/Kairo-sub002/pkg/jwt"
)

var (
	ErrInvalidCredentials  = errors.New("invalid username or password")
	ErrUserNotFound        = errors.New("user not found")
	ErrUsernameTaken       = errors.New("a user with that username already exists")
	ErrEmailTaken          = errors.New("a user with that email already exists")
	ErrInvalidRefreshToken = errors.New("refresh token is invalid or expired")
)

// AuthService accounts and tokens
type AuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.TokenResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	// GuestLogin creates a throwaway account with a random password and signs it in.
	GuestLogin(ctx context.Context) (*dto.TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*dto.TokenResponse, error)
	// Logout revokes the access token behind claims and, when given, the refresh token.
	Logout(ctx context.Context, claims *jwt.Claims, refreshToken string) error
	Me(ctx context.Context, userID string) (*dto.UserResponse, error)
}

type authService struct {
	cfg       *config.Config
	repo      *repository.Repository
	jwtMgr    *jwt.Manager
	blacklist TokenBlacklist
	logger    *zap.Logger
}

// NewAuthService creates an AuthService. blacklist may be nil; logout then
// relies on the client discarding its tokens.
func NewAuthService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	blacklist TokenBlacklist,
	logger *zap.Logger,
) AuthService {
	return &authService{
		cfg:       cfg,
		repo:      repo,
		jwtMgr:    jwtMgr,
		blacklist: blacklist,
		logger:    logger,
	}
}

func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.TokenResponse, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	// 1. uniqueness
	if _, err := s.repo.User.GetByUsername(ctx, username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("lookup user failed", zap.Error(err))
		return nil, err
	}
	if email != "" {
		if _, err := s.repo.User.GetByEmail(ctx, email); err == nil {
			return nil, ErrEmailTaken
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("lookup email failed", zap.Error(err))
			return nil, err
		}
	}

	// 2. hash
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("hash password failed", zap.Error(err))
		return nil, err
	}

	// 3. store
	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.repo.User.Create(ctx, user); err != nil {
		s.logger.Error("create user failed", zap.Error(err))
		return nil, err
	}

	s.logger.Info("user registered", zap.String("user_id", user.UserID))
	return s.issue(user)
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	// 1. lookup by username, falling back to email
	user, err := s.repo.User.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if errors.Is(err, gorm.ErrRecordNotFound) && strings.Contains(req.Username, "@") {
		user, err = s.repo.User.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Username)))
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("lookup user failed", zap.Error(err))
		return nil, err
	}

	// 2. verify password (bcrypt)
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	// 3. token pair
	return s.issue(user)
}

// guestCreateAttempts bounds retries when a generated guest name collides
// or the insert fails.
const guestCreateAttempts = 3

func (s *authService) GuestLogin(ctx context.Context) (*dto.TokenResponse, error) {
	// nobody knows this password; the account is reachable only through its tokens
	hash, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("hash guest password failed", zap.Error(err))
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= guestCreateAttempts; attempt++ {
		suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
		user := &model.User{
			Username:     "guest_" + suffix,
			Email:        "guest_" + suffix + "@temporary.com",
			PasswordHash: string(hash),
			IsGuest:      true,
		}
		if err := s.repo.User.Create(ctx, user); err != nil {
			lastErr = err
			s.logger.Warn("create guest user failed", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}

		s.logger.Info("guest user created", zap.String("user_id", user.UserID))
		return s.issue(user)
	}
	s.logger.Error("guest login failed", zap.Int("attempts", guestCreateAttempts), zap.Error(lastErr))
	return nil, lastErr
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	claims, err := s.jwtMgr.ParseToken(refreshToken)
	if err != nil || claims.TokenType != jwt.TokenTypeRefresh {
		return nil, ErrInvalidRefreshToken
	}
	if s.revoked(ctx, claims.ID) {
		return nil, ErrInvalidRefreshToken
	}

	user, err := s.repo.User.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		s.logger.Error("lookup user failed", zap.Error(err))
		return nil, err
	}

	// rotation: the old refresh token is single-use
	s.revoke(ctx, claims)
	return s.issue(user)
}

func (s *authService) Logout(ctx context.Context, claims *jwt.Claims, refreshToken string) error {
	if claims == nil {
		return nil
	}
	s.revoke(ctx, claims)
	if refreshToken != "" {
		if rc, err := s.jwtMgr.ParseToken(refreshToken); err == nil && rc.UserID == claims.UserID {
			s.revoke(ctx, rc)
		}
	}
	return nil
}

func (s *authService) Me(ctx context.Context, userID string) (*dto.UserResponse, error) {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("lookup user failed", zap.Error(err))
		return nil, err
	}
	resp := toUserResponse(user)
	return &resp, nil
}

// ── helpers ──

func (s *authService) issue(user *model.User) (*dto.TokenResponse, error) {
	accessToken, err := s.jwtMgr.GenerateAccessToken(user.UserID, user.Username)
	if err != nil {
		s.logger.Error("generate access token failed", zap.Error(err))
		return nil, err
	}
	refreshToken, err := s.jwtMgr.GenerateRefreshToken(user.UserID, user.Username)
	if err != nil {
		s.logger.Error("generate refresh token failed", zap.Error(err))
		return nil, err
	}
	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.jwtMgr.AccessTokenTTL().Seconds()),
		User:         toUserResponse(user),
	}, nil
}

func (s *authService) revoke(ctx context.Context, claims *jwt.Claims) {
	if s.blacklist == nil || claims.ExpiresAt == nil {
		return
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if err := s.blacklist.BlacklistToken(ctx, claims.ID, ttl); err != nil {
		s.logger.Warn("blacklist token failed", zap.String("jti", claims.ID), zap.Error(err))
	}
}

func (s *authService) revoked(ctx context.Context, jti string) bool {
	if s.blacklist == nil {
		return false
	}
	ok, err := s.blacklist.IsBlacklisted(ctx, jti)
	if err != nil {
		s.logger.Warn("blacklist lookup failed", zap.Error(err))
		return false
	}
	return ok
}

func toUserResponse(u *model.User) dto.UserResponse {
	resp := dto.UserResponse{
		ID:       u.UserID,
		Username: u.Username,
		Email:    u.Email,
		IsGuest:  u.IsGuest,
	}
	if !u.CreatedAt.IsZero() {
		resp.CreatedAt = u.CreatedAt.Format(time.RFC3339)
	}
	return resp
}
