package alert

import "time"

// Severity of a monitor alert
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Alert is dispatched out-of-band when an outgoing response breaks a mandatory property.
type Alert struct {
	Severity    Severity  `json:"severity"`
	AuditRef    string    `json:"auditRef,omitempty"`
	FrameworkID string    `json:"frameworkId,omitempty"`
	Issues      []string  `json:"issues"`
	RaisedAt    time.Time `json:"raisedAt"`
}
