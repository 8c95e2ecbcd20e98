package dto

// ScanRequest redemption check. Meal and date default to the current slot.
type ScanRequest struct {
	Matricule string `json:"matricule" binding:"required,max=50"`
	Meal      string `json:"meal"      binding:"omitempty,meal"`
	Date      string `json:"date"`
	Consume   bool   `json:"consume"`
}

// ScanResponse redemption outcome
type ScanResponse struct {
	Status     string  `json:"status"`
	Matricule  string  `json:"matricule"`
	Name       string  `json:"name,omitempty"`
	Meal       string  `json:"meal"`
	Date       string  `json:"date"`
	ConsumedAt *string `json:"consumedAt,omitempty"`
}

// ConsumptionListRequest consumption listing query
type ConsumptionListRequest struct {
	PaginationRequest
	EstablishmentID string `form:"establishment_id" binding:"omitempty,uuid"`
	PersonID        string `form:"person_id"        binding:"omitempty,uuid"`
	Meal            string `form:"meal"             binding:"omitempty,meal"`
	From            string `form:"from"`
	To              string `form:"to"`
}

// ConsumptionResponse one redeemed meal
type ConsumptionResponse struct {
	ID         string  `json:"id"`
	PersonID   string  `json:"person_id"`
	Matricule  string  `json:"matricule,omitempty"`
	Name       string  `json:"name,omitempty"`
	Date       string  `json:"date"`
	Meal       string  `json:"meal"`
	ConsumedAt string  `json:"consumed_at"`
	ScannedBy  *string `json:"scanned_by,omitempty"`
}
