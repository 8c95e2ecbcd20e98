package model

// PersonType distinguishes students from staff.
type PersonType string

const (
	PersonStudent PersonType = "STUDENT"
	PersonStaff   PersonType = "STAFF"
)

// Valid reports whether t is a known person type.
func (t PersonType) Valid() bool {
	return t == PersonStudent || t == PersonStaff
}

// Person a meal-plan subject — table persons
type Person struct {
	PersonID        string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"person_id"`
	Matricule       string     `gorm:"type:varchar(50);not null;uniqueIndex"         json:"matricule"`
	Name            string     `gorm:"type:varchar(200);not null"                    json:"name"`
	Email           string     `gorm:"type:varchar(255);not null;default:''"         json:"email"`
	EstablishmentID string     `gorm:"type:uuid;not null;index"                      json:"establishment_id"`
	Type            PersonType `gorm:"type:varchar(10);not null;default:'STUDENT'"   json:"type"`
	StudentYear     *string    `gorm:"type:varchar(10)"                              json:"student_year,omitempty"`
	VersionedModel

	Establishment *Establishment `gorm:"foreignKey:EstablishmentID;references:EstablishmentID" json:"establishment,omitempty"`
}

// TableName table name
func (Person) TableName() string { return "persons" }
