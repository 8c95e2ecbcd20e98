package dto

// ── auth ──

// LoginRequest login by username (matricule) or email
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshTokenRequest refresh body
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"` // falls back to the refresh_token cookie
}

// ChangePasswordRequest password change
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=72"`
}
