package dto

// ── self-service planning ──
// Field names here follow the client contract (camelCase).

// MealChoice selections for one day
type MealChoice struct {
	PetitDej bool `json:"petitDej"`
	Dej      bool `json:"dej"`
	Diner    bool `json:"diner"`
}

// SelfPlanResponse active window with the person's selections
type SelfPlanResponse struct {
	Start    string                `json:"start"`
	End      string                `json:"end"`
	Locked   bool                  `json:"locked"`
	LockDate string                `json:"lockDate"`
	Choices  map[string]MealChoice `json:"choices"`
	Status   *string               `json:"status"`
}

// SaveSelfPlanRequest full replacement of a window
type SaveSelfPlanRequest struct {
	Start   string                `json:"start"   binding:"required"`
	End     string                `json:"end"     binding:"required"`
	Choices map[string]MealChoice `json:"choices"`
}

// SaveSelfPlanResponse replacement outcome
type SaveSelfPlanResponse struct {
	OK      bool    `json:"ok"`
	Created int     `json:"created"`
	Status  *string `json:"status"`
}

// ── administration ──

// MealPlanListRequest plan listing query
type MealPlanListRequest struct {
	PaginationRequest
	EstablishmentID string `form:"establishment_id" binding:"omitempty,uuid"`
	PersonID        string `form:"person_id"        binding:"omitempty,uuid"`
	Meal            string `form:"meal"             binding:"omitempty,meal"`
	From            string `form:"from"`
	To              string `form:"to"`
}

// MealPlanResponse one planned slot
type MealPlanResponse struct {
	ID        string `json:"id"`
	PersonID  string `json:"person_id"`
	Matricule string `json:"matricule,omitempty"`
	Name      string `json:"name,omitempty"`
	Date      string `json:"date"`
	Meal      string `json:"meal"`
}

// SummaryRequest forecast query
type SummaryRequest struct {
	EstablishmentID string `form:"establishment_id" binding:"omitempty,uuid"`
	From            string `form:"from"`
	To              string `form:"to"`
}

// DaySummary planned and consumed counts for one day
type DaySummary struct {
	Date     string         `json:"date"`
	Planned  map[string]int `json:"planned"`
	Consumed map[string]int `json:"consumed"`
}

// ClearPlansResponse admin clear-all outcome
type ClearPlansResponse struct {
	Deleted int64 `json:"deleted"`
}
