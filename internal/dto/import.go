package dto

// ImportIssue a skipped row
type ImportIssue struct {
	Line      int    `json:"line"`
	Matricule string `json:"matricule,omitempty"`
	Reason    string `json:"reason"`
}

// ImportResponse import summary
type ImportResponse struct {
	JobID   string        `json:"jobId"`
	Kind    string        `json:"kind"`
	Created int           `json:"created"`
	Updated int           `json:"updated"`
	Issues  []ImportIssue `json:"issues"`
}

// ImportJobResponse one history entry
type ImportJobResponse struct {
	ID              string        `json:"id"`
	Kind            string        `json:"kind"`
	Filename        string        `json:"filename"`
	ArchiveKey      string        `json:"archive_key,omitempty"`
	EstablishmentID *string       `json:"establishment_id,omitempty"`
	Created         int           `json:"created"`
	Updated         int           `json:"updated"`
	Issues          []ImportIssue `json:"issues"`
	CreatedAt       string        `json:"created_at"`
}
