package prompt

import (
	"fmt"
	"strings"

	"github.com/bryanwahyu/regtech-advisor/internal/domain/compliance"
)

// SystemPrompt provides strict directions for the compliance analysis.
// The response shape itself is enforced through AnalysisSchema.
func SystemPrompt() string {
	return `You are a regulatory compliance analyst for Saudi Arabian frameworks (PDPL, ECC, SAMA, CMA). You must produce one valid JSON object only (no markdown, no commentary). Do not include code fences.

Requirements:
- Assess the document strictly against the controls listed by the user. Never invent control or article codes.
- Every gap must cite exactly the control code and article code it violates, using the codes as written in the rules.
- Use lowercase priority values: critical, high, medium, low.
- complianceScore is a number from 0 to 100.
- Quote the document in evidence where possible. Keep items concise.
- Recommendations and risks should cite the controls and articles they relate to.
- Strengths describe controls the document already satisfies.`
}

// UserPrompt builds the user message around the rendered rules and the document.
func UserPrompt(frameworkName, renderedRules, document string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Framework: %s\n\n", frameworkName)
	b.WriteString("## Rules\n\n")
	b.WriteString(renderedRules)
	b.WriteString("\n## Document\n\n")
	b.WriteString(document)
	b.WriteString("\n\nAnalyze the document against the rules and respond with the JSON object.")
	return b.String()
}

// RenderRules formats rules as one section per control, in the given order.
func RenderRules(rules []compliance.Rule) string {
	var b strings.Builder
	for i, r := range rules {
		if i > 0 {
			b.WriteString("\n")
		}
		c := r.Control
		fmt.Fprintf(&b, "### Control %s: %s\n", c.Code, c.Name)
		fmt.Fprintf(&b, "Category: %s | Priority: %s\n", c.Category, c.Priority)
		fmt.Fprintf(&b, "Description: %s\n", c.Description)
		fmt.Fprintf(&b, "Required evidence: %s\n", c.RequiredEvidence)
		if len(r.Articles) == 0 {
			b.WriteString("Articles: none\n")
			continue
		}
		b.WriteString("Articles:\n")
		for _, a := range r.Articles {
			fmt.Fprintf(&b, "- %s (%s): %s\n", a.Code, a.Title, a.Text)
		}
	}
	return b.String()
}
