// Package offline is a deterministic stand-in for the model used when no
// provider key is configured. It inspects the document text only.
package offline

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/bryanwahyu/regtech-advisor/internal/domain/ai"
	"github.com/bryanwahyu/regtech-advisor/internal/domain/compliance"
)

type finding struct {
	Title                string   `json:"title"`
	Description          string   `json:"description"`
	Priority             string   `json:"priority"`
	Evidence             string   `json:"evidence"`
	EstimatedEffort      string   `json:"estimatedEffort"`
	AffectedControlCodes []string `json:"affectedControlCodes"`
	AffectedArticleCodes []string `json:"affectedArticleCodes"`
}

type output struct {
	ComplianceScore   float64   `json:"complianceScore"`
	OverallAssessment string    `json:"overallAssessment"`
	Gaps              []finding `json:"gaps"`
	Recommendations   []finding `json:"recommendations"`
	Strengths         []finding `json:"strengths"`
	Risks             []finding `json:"risks"`
}

var wordRe = regexp.MustCompile(`[\p{L}\p{N}]{4,}`)

// negations that turn a keyword mention into a gap ("no consent", "without encryption")
var negations = []string{"no ", "not ", "without ", "lack of ", "missing "}

// Analyzer flags a control as met when one of its name keywords appears in
// the document un-negated, and as a gap otherwise.
type Analyzer struct{}

func (Analyzer) AnalyzeDocument(ctx context.Context, req ai.AnalysisRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	doc := strings.ToLower(req.DocumentText)
	out := output{
		Gaps:            []finding{},
		Recommendations: []finding{},
		Strengths:       []finding{},
		Risks:           []finding{},
	}

	met := 0
	for _, r := range req.Rules {
		c := r.Control
		articles := r.ArticleCodes()
		hit, negated := inspect(doc, keywords(c))
		switch {
		case hit != "" && negated == "":
			met++
			out.Strengths = append(out.Strengths, finding{
				Title:                c.Name + " addressed",
				Description:          fmt.Sprintf("The document addresses control %s.", c.Code),
				Priority:             priority(c),
				Evidence:             hit,
				AffectedControlCodes: []string{c.Code},
				AffectedArticleCodes: articles,
			})
		case len(articles) > 0:
			out.Gaps = append(out.Gaps, finding{
				Title:                c.Name + " not demonstrated",
				Description:          fmt.Sprintf("No evidence that control %s is satisfied.", c.Code),
				Priority:             priority(c),
				Evidence:             negated,
				EstimatedEffort:      "unknown",
				AffectedControlCodes: []string{c.Code},
				AffectedArticleCodes: articles[:1],
			})
		default:
			// without a linked article the control cannot back a gap
			out.Recommendations = append(out.Recommendations, finding{
				Title:                "Document " + strings.ToLower(c.Name),
				Description:          fmt.Sprintf("Describe how control %s is met.", c.Code),
				Priority:             priority(c),
				AffectedControlCodes: []string{c.Code},
				AffectedArticleCodes: []string{},
			})
		}
	}

	if n := len(req.Rules); n > 0 {
		out.ComplianceScore = math.Round(100 * float64(met) / float64(n))
	}
	out.OverallAssessment = fmt.Sprintf("%d of %d %s controls evidenced (heuristic review).", met, len(req.Rules), req.FrameworkName)

	b, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("failed to marshal analysis: %w", err)
	}
	return string(b), nil
}

func keywords(c compliance.Control) []string {
	seen := map[string]bool{}
	var out []string
	for _, w := range wordRe.FindAllString(strings.ToLower(c.Name), -1) {
		if !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	return out
}

// inspect returns the first sentence mentioning a keyword, and the first
// sentence where a keyword is negated.
func inspect(doc string, words []string) (hit, negated string) {
	for _, sentence := range strings.FieldsFunc(doc, func(r rune) bool { return r == '.' || r == '\n' || r == ';' }) {
		s := strings.TrimSpace(sentence)
		for _, w := range words {
			if !strings.Contains(s, w) {
				continue
			}
			if hit == "" {
				hit = s
			}
			for _, n := range negations {
				if negated == "" && strings.Contains(s, n+w) {
					negated = s
				}
			}
		}
	}
	return hit, negated
}

func priority(c compliance.Control) string {
	switch p := strings.ToLower(c.Priority); p {
	case "critical", "high", "medium", "low":
		return p
	}
	return "medium"
}
