package analyst

import "time"

// Analysis represents an advisory result stored for auditing and retrieval.
// ID is the audit reference of the request that produced it.
type Analysis struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	FrameworkID string    `json:"framework_id"`
	UserID      string    `json:"user_id,omitempty"`
	Score       *float64  `json:"score,omitempty"`
	GapCount    int       `json:"gap_count"`
	Result      string    `json:"result"` // advisory.Result as JSON
	CreatedAt   time.Time `json:"created_at"`
}

// Page is a paginated slice of analyses
type Page struct {
	Data     []*Analysis `json:"data"`
	Page     int         `json:"page"`
	PageSize int         `json:"pageSize"`
}
