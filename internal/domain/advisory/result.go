package advisory

import (
	"time"

	"github.com/bryanwahyu/regtech-advisor/internal/domain/compliance"
)

// ResultKind is the fixed discriminator of every advisory payload.
const ResultKind = "advisory"

// Disclaimer must be carried verbatim by every advisory response.
const Disclaimer = "This analysis is advisory only and does not constitute a binding legal opinion or regulatory decision. " +
	"Final compliance determinations remain the responsibility of the organization and its qualified legal counsel."

// EnrichedGap is a gap re-attached to the control and article it cites
type EnrichedGap struct {
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Priority        Priority  `json:"priority"`
	RiskLevel       RiskLevel `json:"riskLevel"`
	Evidence        string    `json:"evidence,omitempty"`
	EstimatedEffort string    `json:"estimatedEffort,omitempty"`

	ControlCode     string `json:"controlCode"`
	ControlName     string `json:"controlName"`
	ControlText     string `json:"controlText"`
	ControlCategory string `json:"controlCategory,omitempty"`
	ControlPriority string `json:"controlPriority,omitempty"`

	ArticleCode string `json:"articleCode"`
	ArticleName string `json:"articleName"`
	ArticleText string `json:"articleText"`
}

// Citation points at a control and, when resolved, one of its articles
type Citation struct {
	ControlCode string `json:"controlCode"`
	ControlName string `json:"controlName"`
	ArticleCode string `json:"articleCode,omitempty"`
	ArticleName string `json:"articleName,omitempty"`
	ArticleText string `json:"articleText,omitempty"`
}

// ComplianceFinding is an enriched recommendation, risk or strength
type ComplianceFinding struct {
	Type        FindingKind `json:"type"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Priority    Priority    `json:"priority,omitempty"`
	Citations   []Citation  `json:"citations"`
}

// Result is the payload returned by analyzeDocument.
type Result struct {
	Kind               string                 `json:"kind"`
	FrameworkID        compliance.FrameworkID `json:"frameworkId"`
	FrameworkName      string                 `json:"frameworkName"`
	Gaps               []EnrichedGap          `json:"gaps"`
	ComplianceFindings []ComplianceFinding    `json:"complianceFindings"`
	ComplianceScore    *float64               `json:"complianceScore,omitempty"`
	GeneratedAt        time.Time              `json:"generatedAt"`
	AuditRef           string                 `json:"auditRef"`
	AdvisoryNotice     string                 `json:"advisoryNotice"`
}

// AdoptResult is returned by adoptRecommendation
type AdoptResult struct {
	Success   bool      `json:"success"`
	AdoptedAt time.Time `json:"adoptedAt"`
}
