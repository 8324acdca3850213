package advisory

import (
	"strings"

	"github.com/bryanwahyu/regtech-advisor/internal/domain/compliance"
)

// ruleIndex is an equality join between control codes and the loaded rules.
type ruleIndex struct {
	rules    map[string]*compliance.Rule
	articles map[string]map[string]*compliance.Article
}

func newRuleIndex(rs *compliance.RuleSet) *ruleIndex {
	idx := &ruleIndex{
		rules:    make(map[string]*compliance.Rule, len(rs.Rules)),
		articles: make(map[string]map[string]*compliance.Article, len(rs.Rules)),
	}
	for i := range rs.Rules {
		r := &rs.Rules[i]
		idx.rules[r.Control.Code] = r
		arts := make(map[string]*compliance.Article, len(r.Articles))
		for j := range r.Articles {
			arts[r.Articles[j].Code] = &r.Articles[j]
		}
		idx.articles[r.Control.Code] = arts
	}
	return idx
}

func (idx *ruleIndex) lookup(controlCode, articleCode string) (*compliance.Rule, *compliance.Article, bool) {
	r, ok := idx.rules[controlCode]
	if !ok {
		return nil, nil, false
	}
	a, ok := idx.articles[controlCode][articleCode]
	if !ok {
		return r, nil, false
	}
	return r, a, true
}

// MapCitations re-attaches findings to the controls and articles they cite.
//
// Gaps are strict: the first control code and first article code of every gap
// must resolve to a control and one of its linked articles, and both must
// carry text, otherwise the whole mapping fails with a *CitationError. Recommendations, risks and
// strengths are lenient: unresolvable codes are filtered out, and
// recommendations or risks left without any citation are dropped.
func MapCitations(rs *compliance.RuleSet, a *Analysis) ([]EnrichedGap, []ComplianceFinding, error) {
	idx := newRuleIndex(rs)

	gaps := make([]EnrichedGap, 0)
	findings := make([]ComplianceFinding, 0)

	gapIdx := 0
	for _, f := range a.Findings {
		if f.Kind != KindGap {
			continue
		}
		g, err := idx.enrichGap(gapIdx, f)
		if err != nil {
			return nil, nil, err
		}
		gaps = append(gaps, g)
		gapIdx++
	}

	for _, f := range a.Findings {
		if f.Kind == KindGap {
			continue
		}
		cites := idx.citations(f)
		if len(cites) == 0 && f.Kind != KindStrength {
			continue
		}
		findings = append(findings, ComplianceFinding{
			Type:        f.Kind,
			Title:       f.Title,
			Description: f.Description,
			Priority:    f.Priority,
			Citations:   cites,
		})
	}
	return gaps, findings, nil
}

func (idx *ruleIndex) enrichGap(i int, f Finding) (EnrichedGap, error) {
	var controlCode, articleCode string
	if len(f.ControlCodes) > 0 {
		controlCode = f.ControlCodes[0]
	}
	if len(f.ArticleCodes) > 0 {
		articleCode = f.ArticleCodes[0]
	}
	r, art, ok := idx.lookup(controlCode, articleCode)
	if !ok {
		return EnrichedGap{}, &CitationError{Index: i, Title: f.Title, ControlCode: controlCode, ArticleCode: articleCode}
	}
	// a gap must quote both texts; a catalog entry without them cannot back one
	if strings.TrimSpace(r.Control.Description) == "" || strings.TrimSpace(art.Text) == "" {
		return EnrichedGap{}, &CitationError{Index: i, Title: f.Title, ControlCode: controlCode, ArticleCode: articleCode, MissingText: true}
	}
	return EnrichedGap{
		Title:           f.Title,
		Description:     f.Description,
		Priority:        f.Priority,
		RiskLevel:       NormalizeRiskLevel(f.Priority),
		Evidence:        f.Evidence,
		EstimatedEffort: f.EstimatedEffort,
		ControlCode:     r.Control.Code,
		ControlName:     r.Control.Name,
		ControlText:     r.Control.Description,
		ControlCategory: r.Control.Category,
		ControlPriority: r.Control.Priority,
		ArticleCode:     art.Code,
		ArticleName:     art.Title,
		ArticleText:     art.Text,
	}, nil
}

// citations resolves every (control, article) pair a lenient finding names.
// A control with none of the finding's articles linked is cited on its own.
func (idx *ruleIndex) citations(f Finding) []Citation {
	out := make([]Citation, 0)
	seen := make(map[string]bool)
	for _, cc := range f.ControlCodes {
		r, ok := idx.rules[cc]
		if !ok || seen[cc] {
			continue
		}
		seen[cc] = true
		matched := false
		for _, ac := range f.ArticleCodes {
			art, ok := idx.articles[cc][ac]
			if !ok || seen[cc+"\x00"+ac] {
				continue
			}
			seen[cc+"\x00"+ac] = true
			matched = true
			out = append(out, Citation{
				ControlCode: r.Control.Code,
				ControlName: r.Control.Name,
				ArticleCode: art.Code,
				ArticleName: art.Title,
				ArticleText: art.Text,
			})
		}
		if !matched {
			out = append(out, Citation{ControlCode: r.Control.Code, ControlName: r.Control.Name})
		}
	}
	return out
}
