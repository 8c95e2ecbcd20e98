package model

// Establishment a site that runs a cafeteria — table establishments
type Establishment struct {
	EstablishmentID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"establishment_id"`
	Name            string `gorm:"type:varchar(150);not null;uniqueIndex"        json:"name"`
	BaseModel
}

// TableName table name
func (Establishment) TableName() string { return "establishments" }
