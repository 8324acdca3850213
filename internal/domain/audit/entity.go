package audit

import "time"

// Step names recorded by the analysis pipeline
const (
	StepAnalysisStarted       = "analysis_started"
	StepRulesLoaded           = "rules_loaded"
	StepLLMInvoked            = "llm_invoked"
	StepCitationsMapped       = "citations_mapped"
	StepAnalysisCompleted     = "analysis_completed"
	StepAnalysisFailed        = "analysis_failed"
	StepRecommendationAdopted = "recommendation_adopted"
)

// Event is one step of one request, keyed by its audit reference.
type Event struct {
	AuditRef  string         `json:"auditRef"`
	Step      string         `json:"step"`
	Data      map[string]any `json:"data,omitempty"`
	UserID    string         `json:"userId,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
