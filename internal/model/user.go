package model

// Roles
const (
	RoleAdmin   = "ADMIN"
	RoleManager = "MANAGER"
	RoleScanner = "SCANNER"
	RoleStudent = "STUDENT"
	RoleStaff   = "STAFF"
)

// ValidRole reports whether r is a known role.
func ValidRole(r string) bool {
	switch r {
	case RoleAdmin, RoleManager, RoleScanner, RoleStudent, RoleStaff:
		return true
	}
	return false
}

// User authentication principal — table users
type User struct {
	UserID             string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Username           string  `gorm:"type:varchar(255);not null;uniqueIndex"        json:"username"`
	Email              string  `gorm:"type:varchar(255);not null;default:''"         json:"email"`
	PasswordHash       string  `gorm:"type:varchar(255);not null"                    json:"-"`
	Role               string  `gorm:"type:varchar(20);not null"                     json:"role"`
	MustChangePassword bool    `gorm:"not null;default:false"                        json:"must_change_password"`
	EstablishmentID    *string `gorm:"type:uuid"                                     json:"establishment_id,omitempty"`
	BaseModel

	Establishment *Establishment `gorm:"foreignKey:EstablishmentID;references:EstablishmentID" json:"establishment,omitempty"`
}

// TableName table name
func (User) TableName() string { return "users" }
