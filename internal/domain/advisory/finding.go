package advisory

// FindingKind discriminates the variants of a Finding
type FindingKind string

const (
	KindGap            FindingKind = "gap"
	KindRecommendation FindingKind = "recommendation"
	KindRisk           FindingKind = "risk"
	KindStrength       FindingKind = "strength"
)

// Priority enum as emitted by the model
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// IsValidPriority reports whether p is one of the four priority values.
func IsValidPriority(p Priority) bool {
	switch p {
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// RiskLevel is the normalized level attached to an enriched gap
type RiskLevel string

const (
	RiskHigh   RiskLevel = "high"
	RiskMedium RiskLevel = "medium"
	RiskLow    RiskLevel = "low"
)

// NormalizeRiskLevel keeps high and low, everything else becomes medium.
func NormalizeRiskLevel(p Priority) RiskLevel {
	switch p {
	case PriorityHigh:
		return RiskHigh
	case PriorityLow:
		return RiskLow
	default:
		return RiskMedium
	}
}

// Finding is one item produced by the model. It only lives for the duration
// of a request; Kind tells which variant it is.
type Finding struct {
	Kind            FindingKind
	Title           string
	Description     string
	Priority        Priority
	Evidence        string
	EstimatedEffort string
	ControlCodes    []string
	ArticleCodes    []string
}

// Analysis is the typed form of a model response.
type Analysis struct {
	Score      float64
	Assessment string
	Findings   []Finding
}

// OfKind returns the findings of one variant, preserving order.
func (a *Analysis) OfKind(k FindingKind) []Finding {
	var out []Finding
	for _, f := range a.Findings {
		if f.Kind == k {
			out = append(out, f)
		}
	}
	return out
}
