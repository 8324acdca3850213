package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/bryanwahyu/regtech-advisor/internal/domain/compliance"
)

// CatalogRepository reads and writes frameworks, controls, articles and edges.
type CatalogRepository struct {
	db *sql.DB
	d  Dialect
}

func NewCatalogRepository(db *sql.DB, d Dialect) *CatalogRepository {
	return &CatalogRepository{db: db, d: d}
}

var (
	frameworkCols = []string{"id", "code", "name", "authority", "version", "status"}
	controlCols   = []string{"id", "framework_id", "code", "name", "description", "category", "priority", "required_evidence"}
	articleCols   = []string{"id", "framework_id", "code", "title", "body"}
	edgeCols      = []string{"id", "from_type", "from_id", "to_type", "to_id", "relation_type"}
)

func (r *CatalogRepository) GetFramework(ctx context.Context, id compliance.FrameworkID) (*compliance.Framework, error) {
	const q = `
SELECT id, code, name, authority, version, status
FROM compliance_frameworks
WHERE id=?;`
	var f compliance.Framework
	err := r.db.QueryRowContext(ctx, r.d.rebind(q), string(id)).
		Scan(&f.ID, &f.Code, &f.Name, &f.Authority, &f.Version, &f.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, compliance.ErrFrameworkNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *CatalogRepository) ListFrameworks(ctx context.Context) ([]*compliance.Framework, error) {
	const q = `
SELECT id, code, name, authority, version, status
FROM compliance_frameworks
ORDER BY code, id;`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*compliance.Framework{}
	for rows.Next() {
		var f compliance.Framework
		if err := rows.Scan(&f.ID, &f.Code, &f.Name, &f.Authority, &f.Version, &f.Status); err != nil {
			return nil, err
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}

func (r *CatalogRepository) ListControls(ctx context.Context, id compliance.FrameworkID) ([]*compliance.Control, error) {
	const q = `
SELECT id, framework_id, code, name, description, category, priority, required_evidence
FROM compliance_controls
WHERE framework_id=?
ORDER BY code, id;`
	rows, err := r.db.QueryContext(ctx, r.d.rebind(q), string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*compliance.Control
	for rows.Next() {
		var c compliance.Control
		if err := rows.Scan(&c.ID, &c.FrameworkID, &c.Code, &c.Name, &c.Description, &c.Category, &c.Priority, &c.RequiredEvidence); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (r *CatalogRepository) ListArticles(ctx context.Context, id compliance.FrameworkID) ([]*compliance.Article, error) {
	const q = `
SELECT id, framework_id, code, title, body
FROM compliance_articles
WHERE framework_id=?
ORDER BY code, id;`
	rows, err := r.db.QueryContext(ctx, r.d.rebind(q), string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*compliance.Article
	for rows.Next() {
		var a compliance.Article
		if err := rows.Scan(&a.ID, &a.FrameworkID, &a.Code, &a.Title, &a.Text); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// ListControlArticleEdges returns the control->article edges whose control
// belongs to the framework.
func (r *CatalogRepository) ListControlArticleEdges(ctx context.Context, id compliance.FrameworkID) ([]*compliance.Edge, error) {
	const q = `
SELECT e.id, e.from_type, e.from_id, e.to_type, e.to_id, e.relation_type
FROM compliance_edges e
JOIN compliance_controls c ON c.id = e.from_id
WHERE e.from_type=? AND e.to_type=? AND c.framework_id=?
ORDER BY e.id;`
	rows, err := r.db.QueryContext(ctx, r.d.rebind(q), compliance.EntityControl, compliance.EntityArticle, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*compliance.Edge
	for rows.Next() {
		var e compliance.Edge
		if err := rows.Scan(&e.ID, &e.FromType, &e.FromID, &e.ToType, &e.ToID, &e.RelationType); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (r *CatalogRepository) UpsertFramework(ctx context.Context, f *compliance.Framework) error {
	status := f.Status
	if status == "" {
		status = compliance.StatusActive
	}
	_, err := r.db.ExecContext(ctx, r.d.upsert("compliance_frameworks", frameworkCols),
		string(f.ID), f.Code, f.Name, f.Authority, f.Version, string(status))
	return err
}

func (r *CatalogRepository) UpsertControl(ctx context.Context, c *compliance.Control) error {
	_, err := r.db.ExecContext(ctx, r.d.upsert("compliance_controls", controlCols),
		c.ID, string(c.FrameworkID), c.Code, c.Name, c.Description, c.Category, c.Priority, c.RequiredEvidence)
	return err
}

func (r *CatalogRepository) UpsertArticle(ctx context.Context, a *compliance.Article) error {
	_, err := r.db.ExecContext(ctx, r.d.upsert("compliance_articles", articleCols),
		a.ID, string(a.FrameworkID), a.Code, a.Title, a.Text)
	return err
}

func (r *CatalogRepository) UpsertEdge(ctx context.Context, e *compliance.Edge) error {
	_, err := r.db.ExecContext(ctx, r.d.upsert("compliance_edges", edgeCols),
		e.ID, e.FromType, e.FromID, e.ToType, e.ToID, e.RelationType)
	return err
}
