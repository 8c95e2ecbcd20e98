package model

import "gorm.io/datatypes"

// ImportJob history of one spreadsheet import — table import_jobs
type ImportJob struct {
	ImportJobID     string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"import_job_id"`
	Kind            string         `gorm:"type:varchar(20);not null"                     json:"kind"`
	Filename        string         `gorm:"type:varchar(255);not null;default:''"         json:"filename"`
	ArchiveKey      string         `gorm:"type:varchar(512);not null;default:''"         json:"archive_key"`
	EstablishmentID *string        `gorm:"type:uuid"                                     json:"establishment_id,omitempty"`
	Created         int            `gorm:"not null;default:0"                            json:"created"`
	Updated         int            `gorm:"not null;default:0"                            json:"updated"`
	Issues          datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'"              json:"issues"`
	BaseModel
}

// TableName table name
func (ImportJob) TableName() string { return "import_jobs" }
