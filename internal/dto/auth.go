package dto

// ── auth ──

// RegisterRequest account sign-up
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=150"`
	Email    string `json:"email"    binding:"omitempty,email"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

// LoginRequest username/password login
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshTokenRequest exchanges a refresh token for a new pair
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// LogoutRequest optionally revokes the refresh token along with the access token
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}
