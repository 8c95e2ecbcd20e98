package dto

// ── users ──

// CreateUserRequest account creation by an admin
type CreateUserRequest struct {
	Username        string `json:"username"         binding:"required,min=3,max=255"`
	Email           string `json:"email"            binding:"omitempty,email"`
	Password        string `json:"password"         binding:"required,min=8,max=72"`
	Role            string `json:"role"             binding:"required,oneof=ADMIN MANAGER SCANNER STUDENT STAFF"`
	EstablishmentID string `json:"establishment_id" binding:"omitempty,uuid"`
}

// UserListRequest account listing query
type UserListRequest struct {
	PaginationRequest
	Role string `form:"role" binding:"omitempty,oneof=ADMIN MANAGER SCANNER STUDENT STAFF"`
}
