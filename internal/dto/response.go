package dto

// ── auth responses ──

// TokenResponse token pair
type TokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int          `json:"expires_in"` // access token lifetime in seconds
	User         UserResponse `json:"user"`
}

// UserResponse public account fields
type UserResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	IsGuest   bool   `json:"is_guest,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// MessageResponse plain acknowledgement
type MessageResponse struct {
	Message string `json:"message"`
}
