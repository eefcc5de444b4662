package domain

// RefreshResult is the outcome class of a refresh attempt.
type RefreshResult string

const (
	RefreshSkipped   RefreshResult = "SKIPPED"
	RefreshRefreshed RefreshResult = "REFRESHED"
	RefreshError     RefreshResult = "ERROR"
)

// RefreshStatus is the full outcome of a refresh attempt. Rows and DurationMS
// are set only when Result is REFRESHED.
type RefreshStatus struct {
	Result     RefreshResult `json:"result"`
	Message    string        `json:"message"`
	Rows       *int64        `json:"rows_refreshed,omitempty"`
	DurationMS *float64      `json:"duration_ms,omitempty"`
}
