package rules

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bryanwahyu/regtech-advisor/internal/application"
	"github.com/bryanwahyu/regtech-advisor/internal/domain/compliance"
)

// Format of an exported rule document
type Format string

const (
	FormatJSON    Format = "json"
	FormatXML     Format = "xml"
	FormatYAML    Format = "yaml"
	FormatOpenAPI Format = "openapi"
)

var (
	// ErrUnsupportedFormat is returned for any format outside json|xml|yaml|openapi.
	ErrUnsupportedFormat = errors.New("unsupported export format")
	// ErrNoArchive is returned when archiving is requested without object storage.
	ErrNoArchive = errors.New("export archive is not configured")
)

// ParseFormat normalizes a user supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatXML, FormatYAML, FormatOpenAPI:
		return f, nil
	case "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: %q (allowed: json, xml, yaml, openapi)", ErrUnsupportedFormat, s)
}

// Archive stores exported documents and returns a retrievable URL.
type Archive interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Export is one serialized rule document
type Export struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Content     []byte `json:"-"`
	URL         string `json:"url,omitempty"`
}

// Exporter serializes a framework's rules for external rule engines.
type Exporter struct {
	Loader  *Loader
	Archive Archive
	Clock   application.Clock
}

type document struct {
	XMLName    xml.Name             `json:"-" yaml:"-" xml:"complianceRules"`
	Framework  compliance.Framework `json:"framework" yaml:"framework" xml:"framework"`
	ExportedAt time.Time            `json:"exportedAt" yaml:"exportedAt" xml:"exportedAt,attr"`
	Rules      []compliance.Rule    `json:"rules" yaml:"rules" xml:"rules>rule"`
}

// Export loads the framework's rules and renders them in the given format.
func (e *Exporter) Export(ctx context.Context, id compliance.FrameworkID, format Format) (*Export, error) {
	rs, err := e.Loader.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if rs.Empty() {
		return nil, ErrNoRules
	}

	now := e.now()
	doc := document{Framework: rs.Framework, ExportedAt: now, Rules: rs.Rules}
	name := fmt.Sprintf("%s-rules-%s", slug(rs.Framework.Code), now.Format("20060102T150405Z"))

	var (
		content []byte
		ctype   string
		ext     string
	)
	switch format {
	case FormatJSON:
		content, err = json.MarshalIndent(doc, "", "  ")
		ctype, ext = "application/json", "json"
	case FormatXML:
		var b []byte
		b, err = xml.MarshalIndent(doc, "", "  ")
		content = append([]byte(xml.Header), b...)
		ctype, ext = "application/xml", "xml"
	case FormatYAML:
		content, err = yaml.Marshal(doc)
		ctype, ext = "application/yaml", "yaml"
	case FormatOpenAPI:
		content, err = json.MarshalIndent(openAPIDocument(rs, now), "", "  ")
		ctype, ext = "application/vnd.oai.openapi+json", "openapi.json"
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", format, err)
	}

	return &Export{Filename: name + "." + ext, ContentType: ctype, Content: content}, nil
}

// ExportAndArchive exports and stores the document under the tenant's prefix.
func (e *Exporter) ExportAndArchive(ctx context.Context, tenant string, id compliance.FrameworkID, format Format) (*Export, error) {
	if e.Archive == nil {
		return nil, ErrNoArchive
	}
	out, err := e.Export(ctx, id, format)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("%s/exports/%s/%s", tenant, id, out.Filename)
	url, err := e.Archive.Put(ctx, key, out.Content, out.ContentType)
	if err != nil {
		return nil, fmt.Errorf("archive export: %w", err)
	}
	out.URL = url
	return out, nil
}

func (e *Exporter) now() time.Time {
	if e.Clock == nil {
		return time.Now().UTC()
	}
	return e.Clock.Now().UTC()
}

// openAPIDocument describes the evidence payload accepted by /validate:
// one boolean property per control code.
func openAPIDocument(rs *compliance.RuleSet, now time.Time) map[string]any {
	props := make(map[string]any, len(rs.Rules))
	for _, r := range rs.Rules {
		desc := r.Control.Name
		if arts := r.ArticleCodes(); len(arts) > 0 {
			desc += " (" + strings.Join(arts, ", ") + ")"
		}
		props[r.Control.Code] = map[string]any{
			"type":        "boolean",
			"description": desc,
			"x-priority":  r.Control.Priority,
			"x-category":  r.Control.Category,
		}
	}

	return map[string]any{
		"openapi": "3.0.3",
		"info": map[string]any{
			"title":       rs.Framework.Name + " compliance rules",
			"version":     nonEmpty(rs.Framework.Version, "1.0"),
			"description": "Generated " + now.Format(time.RFC3339) + " from framework " + rs.Framework.Code,
		},
		"paths": map[string]any{
			"/validate": map[string]any{
				"post": map[string]any{
					"operationId": "validateData",
					"requestBody": map[string]any{
						"required": true,
						"content": map[string]any{
							"application/json": map[string]any{
								"schema": map[string]any{"$ref": "#/components/schemas/ComplianceEvidence"},
							},
						},
					},
					"responses": map[string]any{
						"200": map[string]any{
							"description": "Validation outcome",
							"content": map[string]any{
								"application/json": map[string]any{
									"schema": map[string]any{"$ref": "#/components/schemas/ValidationResult"},
								},
							},
						},
					},
				},
			},
		},
		"components": map[string]any{
			"schemas": map[string]any{
				"ComplianceEvidence": map[string]any{
					"type":       "object",
					"properties": props,
				},
				"ValidationResult": map[string]any{
					"type":     "object",
					"required": []string{"isCompliant", "violations", "score"},
					"properties": map[string]any{
						"isCompliant": map[string]any{"type": "boolean"},
						"score":       map[string]any{"type": "integer", "minimum": 0, "maximum": 100},
						"violations": map[string]any{
							"type":  "array",
							"items": map[string]any{"type": "object"},
						},
					},
				},
			},
		},
		"x-compliance-rules": rs.Rules,
	}
}

func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "framework"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '-'
	}, s)
}

func nonEmpty(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
