package rules

import (
	"context"
	"math"
	"strings"

	"github.com/bryanwahyu/regtech-advisor/internal/domain/advisory"
	"github.com/bryanwahyu/regtech-advisor/internal/domain/compliance"
)

// ErrNoRules is returned when a framework has no controls to check against.
var ErrNoRules = advisory.ErrNoRules

// Violation is one control the submitted data does not satisfy
type Violation struct {
	ControlCode  string   `json:"controlCode"`
	ControlName  string   `json:"controlName"`
	Priority     string   `json:"priority,omitempty"`
	ArticleCodes []string `json:"articleCodes"`
	Message      string   `json:"message"`
}

// Validation is the outcome of validateData
type Validation struct {
	IsCompliant bool        `json:"isCompliant"`
	Violations  []Violation `json:"violations"`
	Score       int         `json:"score"`
}

// Validator checks structured evidence against a framework's controls.
// The data object is keyed by control code; a control is satisfied when its
// value is truthy.
type Validator struct {
	Loader *Loader
}

func (v *Validator) Validate(ctx context.Context, id compliance.FrameworkID, data map[string]any) (*Validation, error) {
	rs, err := v.Loader.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if rs.Empty() {
		return nil, ErrNoRules
	}

	out := &Validation{Violations: []Violation{}}
	satisfied := 0
	for _, r := range rs.Rules {
		val, present := data[r.Control.Code]
		if present && truthy(val) {
			satisfied++
			continue
		}
		msg := "no evidence provided for control " + r.Control.Code
		if present {
			msg = "evidence for control " + r.Control.Code + " does not satisfy the requirement"
		}
		out.Violations = append(out.Violations, Violation{
			ControlCode:  r.Control.Code,
			ControlName:  r.Control.Name,
			Priority:     r.Control.Priority,
			ArticleCodes: r.ArticleCodes(),
			Message:      msg,
		})
	}
	out.Score = int(math.Round(100 * float64(satisfied) / float64(len(rs.Rules))))
	out.IsCompliant = len(out.Violations) == 0
	return out, nil
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case int:
		return t != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "", "false", "no", "0", "none", "n/a":
			return false
		}
		return true
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}
