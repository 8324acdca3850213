package advisory

import (
	"encoding/json"
	"fmt"
	"strings"
)

type rawFinding struct {
	Title                string   `json:"title"`
	Description          string   `json:"description"`
	Priority             string   `json:"priority"`
	Evidence             string   `json:"evidence"`
	EstimatedEffort      string   `json:"estimatedEffort"`
	AffectedControlCodes []string `json:"affectedControlCodes"`
	AffectedArticleCodes []string `json:"affectedArticleCodes"`
}

type rawAnalysis struct {
	ComplianceScore   *float64     `json:"complianceScore"`
	OverallAssessment string       `json:"overallAssessment"`
	Gaps              []rawFinding `json:"gaps"`
	Recommendations   []rawFinding `json:"recommendations"`
	Strengths         []rawFinding `json:"strengths"`
	Risks             []rawFinding `json:"risks"`
}

// ParseAnalysis converts the model's JSON output into a typed Analysis.
// Untyped shapes never leave this function: anything that does not follow
// the response schema fails with ErrMalformedResponse.
func ParseAnalysis(raw string) (*Analysis, error) {
	var r rawAnalysis
	if err := json.Unmarshal([]byte(stripFences(raw)), &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if r.ComplianceScore == nil {
		return nil, fmt.Errorf("%w: complianceScore is required", ErrMalformedResponse)
	}
	if *r.ComplianceScore < 0 || *r.ComplianceScore > 100 {
		return nil, fmt.Errorf("%w: complianceScore %v out of range 0-100", ErrMalformedResponse, *r.ComplianceScore)
	}

	out := &Analysis{
		Score:      *r.ComplianceScore,
		Assessment: r.OverallAssessment,
	}
	groups := []struct {
		kind  FindingKind
		items []rawFinding
	}{
		{KindGap, r.Gaps},
		{KindRecommendation, r.Recommendations},
		{KindRisk, r.Risks},
		{KindStrength, r.Strengths},
	}
	for _, g := range groups {
		for i, item := range g.items {
			f, err := toFinding(g.kind, item)
			if err != nil {
				return nil, fmt.Errorf("%w: %s[%d]: %v", ErrMalformedResponse, g.kind, i, err)
			}
			out.Findings = append(out.Findings, f)
		}
	}
	return out, nil
}

func toFinding(kind FindingKind, item rawFinding) (Finding, error) {
	if strings.TrimSpace(item.Title) == "" {
		return Finding{}, fmt.Errorf("title is required")
	}
	p := Priority(strings.ToLower(strings.TrimSpace(item.Priority)))
	switch {
	case kind == KindStrength && p == "":
	case !IsValidPriority(p):
		return Finding{}, fmt.Errorf("invalid priority %q", item.Priority)
	}
	return Finding{
		Kind:            kind,
		Title:           item.Title,
		Description:     item.Description,
		Priority:        p,
		Evidence:        item.Evidence,
		EstimatedEffort: item.EstimatedEffort,
		ControlCodes:    item.AffectedControlCodes,
		ArticleCodes:    item.AffectedArticleCodes,
	}, nil
}

// stripFences removes leading/trailing markdown code fences (```json ... ```).
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		}
	}
	if strings.HasSuffix(s, "```") {
		if idx := strings.LastIndex(s, "\n```"); idx >= 0 {
			s = s[:idx]
		}
	}
	return strings.TrimSpace(s)
}
