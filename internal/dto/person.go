package dto

// PersonRequest create/update body
type PersonRequest struct {
	Matricule       string  `json:"matricule"        binding:"required,max=50"`
	Name            string  `json:"name"             binding:"required,max=200"`
	Email           string  `json:"email"            binding:"omitempty,email"`
	EstablishmentID string  `json:"establishment_id" binding:"required,uuid"`
	Type            string  `json:"type"             binding:"required,oneof=STUDENT STAFF"`
	StudentYear     *string `json:"student_year"     binding:"omitempty,max=10"`
	Version         int     `json:"version"` // required on update
}

// PersonListRequest person listing query
type PersonListRequest struct {
	PaginationRequest
	EstablishmentID string `form:"establishment_id" binding:"omitempty,uuid"`
	Type            string `form:"type"             binding:"omitempty,oneof=STUDENT STAFF"`
	Search          string `form:"search"           binding:"omitempty,max=100"`
}

// PersonResponse person record
type PersonResponse struct {
	ID            string                 `json:"id"`
	Matricule     string                 `json:"matricule"`
	Name          string                 `json:"name"`
	Email         string                 `json:"email"`
	Type          string                 `json:"type"`
	StudentYear   *string                `json:"student_year,omitempty"`
	Establishment *EstablishmentResponse `json:"establishment,omitempty"`
	Version       int                    `json:"version"`
}
