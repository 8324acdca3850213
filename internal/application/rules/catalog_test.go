package rules

import (
	"context"

	"github.com/bryanwahyu/regtech-advisor/internal/domain/compliance"
)

type memCatalog struct {
	frameworks []*compliance.Framework
	controls   []*compliance.Control
	articles   []*compliance.Article
	edges      []*compliance.Edge
	err        error
}

func (m *memCatalog) GetFramework(_ context.Context, id compliance.FrameworkID) (*compliance.Framework, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, f := range m.frameworks {
		if f.ID == id {
			return f, nil
		}
	}
	return nil, compliance.ErrFrameworkNotFound
}

func (m *memCatalog) ListFrameworks(context.Context) ([]*compliance.Framework, error) {
	return m.frameworks, m.err
}

func (m *memCatalog) ListControls(_ context.Context, id compliance.FrameworkID) ([]*compliance.Control, error) {
	var out []*compliance.Control
	for _, c := range m.controls {
		if c.FrameworkID == id {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memCatalog) ListArticles(_ context.Context, id compliance.FrameworkID) ([]*compliance.Article, error) {
	var out []*compliance.Article
	for _, a := range m.articles {
		if a.FrameworkID == id {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memCatalog) ListControlArticleEdges(_ context.Context, _ compliance.FrameworkID) ([]*compliance.Edge, error) {
	return m.edges, nil
}

func cites(controlID, articleID string) *compliance.Edge {
	return &compliance.Edge{
		ID:           controlID + "->" + articleID,
		FromType:     compliance.EntityControl,
		FromID:       controlID,
		ToType:       compliance.EntityArticle,
		ToID:         articleID,
		RelationType: compliance.RelationCites,
	}
}

func seededCatalog() *memCatalog {
	return &memCatalog{
		frameworks: []*compliance.Framework{
			{ID: "pdpl", Code: "PDPL", Name: "Personal Data Protection Law", Authority: "SDAIA", Version: "2023", Status: compliance.StatusActive},
			{ID: "empty", Code: "EMPTY", Name: "Empty framework", Status: compliance.StatusDraft},
		},
		controls: []*compliance.Control{
			{ID: "c1", FrameworkID: "pdpl", Code: "PDPL-1", Name: "Lawful consent", Description: "Obtain consent", Category: "consent", Priority: "high"},
			{ID: "c2", FrameworkID: "pdpl", Code: "PDPL-2", Name: "Retention", Description: "Limit retention", Priority: "medium"},
		},
		articles: []*compliance.Article{
			{ID: "a1", FrameworkID: "pdpl", Code: "Article-1", Title: "Consent", Text: "No processing without consent."},
			{ID: "a2", FrameworkID: "pdpl", Code: "Article-18", Title: "Retention", Text: "Destroy data when no longer needed."},
			{ID: "a3", FrameworkID: "pdpl", Code: "Article-30", Title: "Unlinked", Text: "Not cited by any control."},
		},
		edges: []*compliance.Edge{
			cites("c1", "a1"),
			cites("c1", "a2"),
			cites("c2", "a2"),
			cites("c2", "missing-article"),
			{ID: "s", FromType: compliance.EntityControl, FromID: "c2", ToType: compliance.EntityArticle, ToID: "a3", RelationType: "supersedes"},
			{ID: "x", FromType: compliance.EntityArticle, FromID: "a1", ToType: compliance.EntityArticle, ToID: "a3", RelationType: "amends"},
		},
	}
}
