package prompt

import (
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/bryanwahyu/regtech-advisor/internal/domain/advisory"
)

// SchemaName is the response_format name sent with every analysis request.
const SchemaName = "compliance_analysis"

func findingSchema(priorityEnum []string) jsonschema.Definition {
	return jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"title":           {Type: jsonschema.String},
			"description":     {Type: jsonschema.String},
			"priority":        {Type: jsonschema.String, Enum: priorityEnum},
			"evidence":        {Type: jsonschema.String},
			"estimatedEffort": {Type: jsonschema.String},
			"affectedControlCodes": {
				Type:  jsonschema.Array,
				Items: &jsonschema.Definition{Type: jsonschema.String},
			},
			"affectedArticleCodes": {
				Type:  jsonschema.Array,
				Items: &jsonschema.Definition{Type: jsonschema.String},
			},
		},
		Required: []string{
			"title", "description", "priority", "evidence", "estimatedEffort",
			"affectedControlCodes", "affectedArticleCodes",
		},
		AdditionalProperties: false,
	}
}

// AnalysisSchema returns the strict JSON schema of the model response.
func AnalysisSchema() jsonschema.Definition {
	priorities := []string{
		string(advisory.PriorityCritical),
		string(advisory.PriorityHigh),
		string(advisory.PriorityMedium),
		string(advisory.PriorityLow),
	}
	finding := findingSchema(priorities)
	list := func(desc string) jsonschema.Definition {
		f := finding
		return jsonschema.Definition{Type: jsonschema.Array, Description: desc, Items: &f}
	}
	return jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"complianceScore": {
				Type:        jsonschema.Number,
				Description: "Overall compliance score from 0 to 100",
			},
			"overallAssessment": {Type: jsonschema.String},
			"gaps":              list("Controls the document fails to satisfy"),
			"recommendations":   list("Actions that would close gaps or reduce risk"),
			"strengths":         list("Controls the document already satisfies"),
			"risks":             list("Risks arising from the document"),
		},
		Required: []string{
			"complianceScore", "overallAssessment", "gaps", "recommendations", "strengths", "risks",
		},
		AdditionalProperties: false,
	}
}
