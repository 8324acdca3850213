package compliance

import "context"

// CatalogRepository port (read side of the regulatory catalog)
type CatalogRepository interface {
	GetFramework(ctx context.Context, id FrameworkID) (*Framework, error)
	ListFrameworks(ctx context.Context) ([]*Framework, error)
	ListControls(ctx context.Context, id FrameworkID) ([]*Control, error)
	ListArticles(ctx context.Context, id FrameworkID) ([]*Article, error)
	// ListControlArticleEdges returns control->article edges whose control belongs to the framework.
	ListControlArticleEdges(ctx context.Context, id FrameworkID) ([]*Edge, error)
}

// CatalogWriter port, used by seed scripts
type CatalogWriter interface {
	UpsertFramework(ctx context.Context, f *Framework) error
	UpsertControl(ctx context.Context, c *Control) error
	UpsertArticle(ctx context.Context, a *Article) error
	UpsertEdge(ctx context.Context, e *Edge) error
}
