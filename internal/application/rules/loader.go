package rules

import (
	"context"
	"fmt"

	"github.com/bryanwahyu/regtech-advisor/internal/domain/compliance"
)

// Loader assembles a framework's controls and their linked articles into a RuleSet.
type Loader struct {
	Catalog compliance.CatalogRepository
}

func NewLoader(catalog compliance.CatalogRepository) *Loader {
	return &Loader{Catalog: catalog}
}

// Load returns the framework's rules in store order. A framework with no
// controls yields an empty RuleSet and a nil error; callers decide whether
// that is fatal.
func (l *Loader) Load(ctx context.Context, id compliance.FrameworkID) (*compliance.RuleSet, error) {
	fw, err := l.Catalog.GetFramework(ctx, id)
	if err != nil {
		return nil, err
	}
	if fw == nil {
		return nil, compliance.ErrFrameworkNotFound
	}

	rs := &compliance.RuleSet{Framework: *fw, Rules: []compliance.Rule{}}

	controls, err := l.Catalog.ListControls(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list controls: %w", err)
	}
	if len(controls) == 0 {
		return rs, nil
	}

	articles, err := l.Catalog.ListArticles(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	edges, err := l.Catalog.ListControlArticleEdges(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list edges: %w", err)
	}

	byID := make(map[string]*compliance.Article, len(articles))
	for _, a := range articles {
		byID[a.ID] = a
	}
	linked := make(map[string][]compliance.Article)
	for _, e := range edges {
		if e.FromType != compliance.EntityControl || e.ToType != compliance.EntityArticle || e.RelationType != compliance.RelationCites {
			continue
		}
		a, ok := byID[e.ToID]
		if !ok {
			continue
		}
		linked[e.FromID] = append(linked[e.FromID], *a)
	}

	for _, c := range controls {
		arts := linked[c.ID]
		if arts == nil {
			arts = []compliance.Article{}
		}
		rs.Rules = append(rs.Rules, compliance.Rule{Control: *c, Articles: arts})
	}
	return rs, nil
}

// Frameworks lists every framework in the catalog.
func (l *Loader) Frameworks(ctx context.Context) ([]*compliance.Framework, error) {
	return l.Catalog.ListFrameworks(ctx)
}
