package catalog

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/bryanwahyu/regtech-advisor/internal/domain/compliance"
)

// SeedControl is a control in a seed file. Articles lists article codes of
// the same framework the control cites.
type SeedControl struct {
	ID               string   `yaml:"id"`
	Code             string   `yaml:"code"`
	Name             string   `yaml:"name"`
	Description      string   `yaml:"description"`
	Category         string   `yaml:"category"`
	Priority         string   `yaml:"priority"`
	RequiredEvidence string   `yaml:"requiredEvidence"`
	Articles         []string `yaml:"articles"`
}

type SeedArticle struct {
	ID    string `yaml:"id"`
	Code  string `yaml:"code"`
	Title string `yaml:"title"`
	Text  string `yaml:"text"`
}

type SeedFramework struct {
	ID        string        `yaml:"id"`
	Code      string        `yaml:"code"`
	Name      string        `yaml:"name"`
	Authority string        `yaml:"authority"`
	Version   string        `yaml:"version"`
	Status    string        `yaml:"status"`
	Articles  []SeedArticle `yaml:"articles"`
	Controls  []SeedControl `yaml:"controls"`
}

// SeedFile is the top-level seed document
type SeedFile struct {
	Frameworks []SeedFramework `yaml:"frameworks"`
}

// Summary counts what a seed run wrote
type Summary struct {
	Frameworks int `json:"frameworks"`
	Controls   int `json:"controls"`
	Articles   int `json:"articles"`
	Edges      int `json:"edges"`
}

// Seeder writes seed documents through the catalog write port.
type Seeder struct {
	Writer compliance.CatalogWriter
	Logger *zap.Logger
}

type plan struct {
	frameworks []*compliance.Framework
	controls   []*compliance.Control
	articles   []*compliance.Article
	edges      []*compliance.Edge
}

// Seed validates the whole document before writing anything. Re-running the
// same document is idempotent.
func (s *Seeder) Seed(ctx context.Context, r io.Reader) (Summary, error) {
	var doc SeedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return Summary{}, fmt.Errorf("decode seed: %w", err)
	}
	p, err := build(doc)
	if err != nil {
		return Summary{}, err
	}

	for _, f := range p.frameworks {
		if err := s.Writer.UpsertFramework(ctx, f); err != nil {
			return Summary{}, fmt.Errorf("upsert framework %s: %w", f.ID, err)
		}
	}
	for _, a := range p.articles {
		if err := s.Writer.UpsertArticle(ctx, a); err != nil {
			return Summary{}, fmt.Errorf("upsert article %s: %w", a.ID, err)
		}
	}
	for _, c := range p.controls {
		if err := s.Writer.UpsertControl(ctx, c); err != nil {
			return Summary{}, fmt.Errorf("upsert control %s: %w", c.ID, err)
		}
	}
	for _, e := range p.edges {
		if err := s.Writer.UpsertEdge(ctx, e); err != nil {
			return Summary{}, fmt.Errorf("upsert edge %s: %w", e.ID, err)
		}
	}

	sum := Summary{
		Frameworks: len(p.frameworks),
		Controls:   len(p.controls),
		Articles:   len(p.articles),
		Edges:      len(p.edges),
	}
	if s.Logger != nil {
		s.Logger.Info("catalog seeded",
			zap.Int("frameworks", sum.Frameworks),
			zap.Int("controls", sum.Controls),
			zap.Int("articles", sum.Articles),
			zap.Int("edges", sum.Edges))
	}
	return sum, nil
}

func build(doc SeedFile) (*plan, error) {
	p := &plan{}
	fwIDs := map[string]bool{}
	for i, sf := range doc.Frameworks {
		if strings.TrimSpace(sf.Code) == "" || strings.TrimSpace(sf.Name) == "" {
			return nil, fmt.Errorf("frameworks[%d]: code and name are required", i)
		}
		fwID := sf.ID
		if fwID == "" {
			fwID = slug(sf.Code)
		}
		if fwIDs[fwID] {
			return nil, fmt.Errorf("frameworks[%d]: duplicate id %q", i, fwID)
		}
		fwIDs[fwID] = true

		status := compliance.Status(sf.Status)
		switch status {
		case "":
			status = compliance.StatusActive
		case compliance.StatusActive, compliance.StatusDraft, compliance.StatusDeprecated:
		default:
			return nil, fmt.Errorf("framework %s: unknown status %q", sf.Code, sf.Status)
		}
		p.frameworks = append(p.frameworks, &compliance.Framework{
			ID: compliance.FrameworkID(fwID), Code: sf.Code, Name: sf.Name,
			Authority: sf.Authority, Version: sf.Version, Status: status,
		})

		articleIDs := map[string]string{}
		for j, sa := range sf.Articles {
			if sa.Code == "" || strings.TrimSpace(sa.Text) == "" {
				return nil, fmt.Errorf("framework %s: articles[%d]: code and text are required", sf.Code, j)
			}
			if _, dup := articleIDs[sa.Code]; dup {
				return nil, fmt.Errorf("framework %s: duplicate article code %q", sf.Code, sa.Code)
			}
			id := sa.ID
			if id == "" {
				id = fwID + "-" + slug(sa.Code)
			}
			articleIDs[sa.Code] = id
			p.articles = append(p.articles, &compliance.Article{
				ID: id, FrameworkID: compliance.FrameworkID(fwID), Code: sa.Code, Title: sa.Title, Text: sa.Text,
			})
		}

		controlCodes := map[string]bool{}
		for j, sc := range sf.Controls {
			if sc.Code == "" || sc.Name == "" || strings.TrimSpace(sc.Description) == "" {
				return nil, fmt.Errorf("framework %s: controls[%d]: code, name and description are required", sf.Code, j)
			}
			if controlCodes[sc.Code] {
				return nil, fmt.Errorf("framework %s: duplicate control code %q", sf.Code, sc.Code)
			}
			controlCodes[sc.Code] = true
			id := sc.ID
			if id == "" {
				id = fwID + "-" + slug(sc.Code)
			}
			p.controls = append(p.controls, &compliance.Control{
				ID: id, FrameworkID: compliance.FrameworkID(fwID), Code: sc.Code, Name: sc.Name,
				Description: sc.Description, Category: sc.Category, Priority: sc.Priority,
				RequiredEvidence: sc.RequiredEvidence,
			})
			for _, code := range sc.Articles {
				aid, ok := articleIDs[code]
				if !ok {
					return nil, fmt.Errorf("framework %s: control %s cites unknown article %q", sf.Code, sc.Code, code)
				}
				p.edges = append(p.edges, &compliance.Edge{
					ID:           EdgeID(id, aid),
					FromType:     compliance.EntityControl,
					FromID:       id,
					ToType:       compliance.EntityArticle,
					ToID:         aid,
					RelationType: compliance.RelationCites,
				})
			}
		}
	}
	return p, nil
}

// EdgeID is the deterministic id of a control->article edge.
func EdgeID(controlID, articleID string) string {
	return "control:" + controlID + "->article:" + articleID
}

func slug(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
