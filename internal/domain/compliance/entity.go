package compliance

// FrameworkID identifier type
type FrameworkID string

// Framework status enum
type Status string

const (
	StatusActive     Status = "active"
	StatusDraft      Status = "draft"
	StatusDeprecated Status = "deprecated"
)

// Framework is a regulatory regime (PDPL, ECC, SAMA, CMA, ...).
type Framework struct {
	ID        FrameworkID `json:"id" yaml:"id" xml:"id,attr"`
	Code      string      `json:"code" yaml:"code" xml:"code,attr"`
	Name      string      `json:"name" yaml:"name" xml:"name"`
	Authority string      `json:"authority,omitempty" yaml:"authority,omitempty" xml:"authority,omitempty"`
	Version   string      `json:"version,omitempty" yaml:"version,omitempty" xml:"version,omitempty"`
	Status    Status      `json:"status" yaml:"status" xml:"status"`
}

// Control is a single compliance requirement. Code is unique within its framework.
type Control struct {
	ID               string      `json:"id" yaml:"id" xml:"id,attr"`
	FrameworkID      FrameworkID `json:"framework_id" yaml:"frameworkId" xml:"-"`
	Code             string      `json:"code" yaml:"code" xml:"code,attr"`
	Name             string      `json:"name" yaml:"name" xml:"name"`
	Description      string      `json:"description" yaml:"description" xml:"description"`
	Category         string      `json:"category,omitempty" yaml:"category,omitempty" xml:"category,omitempty"`
	Priority         string      `json:"priority,omitempty" yaml:"priority,omitempty" xml:"priority,omitempty"`
	RequiredEvidence string      `json:"required_evidence,omitempty" yaml:"requiredEvidence,omitempty" xml:"requiredEvidence,omitempty"`
}

// Article is a unit of legal text belonging to a framework.
type Article struct {
	ID          string      `json:"id" yaml:"id" xml:"id,attr"`
	FrameworkID FrameworkID `json:"framework_id" yaml:"frameworkId" xml:"-"`
	Code        string      `json:"code" yaml:"code" xml:"code,attr"`
	Title       string      `json:"title" yaml:"title" xml:"title"`
	Text        string      `json:"text" yaml:"text" xml:"text"`
}

// Entity types used by edges
const (
	EntityControl = "control"
	EntityArticle = "article"
)

// RelationCites links a control to an article it is derived from.
const RelationCites = "cites"

// Edge is a typed relation between two catalog entities (flat many-to-many join).
type Edge struct {
	ID           string `json:"id"`
	FromType     string `json:"from_type"`
	FromID       string `json:"from_id"`
	ToType       string `json:"to_type"`
	ToID         string `json:"to_id"`
	RelationType string `json:"relation_type"`
}

// Rule is a control with the articles it cites.
type Rule struct {
	Control  Control   `json:"control" yaml:"control" xml:"control"`
	Articles []Article `json:"articles" yaml:"articles" xml:"articles>article"`
}

// RuleSet is the structured rule list of one framework.
type RuleSet struct {
	Framework Framework `json:"framework" yaml:"framework" xml:"framework"`
	Rules     []Rule    `json:"rules" yaml:"rules" xml:"rules>rule"`
}

// Empty reports whether the framework has no rules to analyze against.
func (rs *RuleSet) Empty() bool {
	return rs == nil || len(rs.Rules) == 0
}

// ControlCodes returns the control codes in rule order.
func (rs *RuleSet) ControlCodes() []string {
	if rs == nil {
		return nil
	}
	out := make([]string, 0, len(rs.Rules))
	for _, r := range rs.Rules {
		out = append(out, r.Control.Code)
	}
	return out
}

// ArticleCodes returns the codes of the articles linked to the rule, in order.
func (r Rule) ArticleCodes() []string {
	out := make([]string, 0, len(r.Articles))
	for _, a := range r.Articles {
		out = append(out, a.Code)
	}
	return out
}
