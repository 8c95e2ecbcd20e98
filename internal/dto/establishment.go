package dto

// EstablishmentRequest create/update body
type EstablishmentRequest struct {
	Name string `json:"name" binding:"required,min=2,max=150"`
}

// EstablishmentResponse establishment summary
type EstablishmentResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
