package sqlstore_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/regtech-advisor/internal/domain/analyst"
	"github.com/bryanwahyu/regtech-advisor/internal/domain/audit"
	"github.com/bryanwahyu/regtech-advisor/internal/domain/compliance"
	"github.com/bryanwahyu/regtech-advisor/internal/infra/db/sqlite"
	"github.com/bryanwahyu/regtech-advisor/internal/infra/db/sqlstore"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Connect(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, sqlstore.Migrate(ctx, db, sqlite.Dialect))
	return db
}

func seedPDPL(t *testing.T, repo *sqlstore.CatalogRepository) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, repo.UpsertFramework(ctx, &compliance.Framework{ID: "pdpl", Code: "PDPL", Name: "Personal Data Protection Law", Authority: "SDAIA"}))
	require.NoError(t, repo.UpsertFramework(ctx, &compliance.Framework{ID: "ecc", Code: "ECC", Name: "Essential Cybersecurity Controls"}))
	require.NoError(t, repo.UpsertControl(ctx, &compliance.Control{ID: "c2", FrameworkID: "pdpl", Code: "PDPL-2", Name: "Retention"}))
	require.NoError(t, repo.UpsertControl(ctx, &compliance.Control{ID: "c1", FrameworkID: "pdpl", Code: "PDPL-1", Name: "Consent", Description: "Obtain consent"}))
	require.NoError(t, repo.UpsertControl(ctx, &compliance.Control{ID: "e1", FrameworkID: "ecc", Code: "ECC-1", Name: "Governance"}))
	require.NoError(t, repo.UpsertArticle(ctx, &compliance.Article{ID: "a1", FrameworkID: "pdpl", Code: "Article-1", Title: "Consent", Text: "No processing without consent."}))
	require.NoError(t, repo.UpsertArticle(ctx, &compliance.Article{ID: "a2", FrameworkID: "pdpl", Code: "Article-2", Title: "Retention", Text: "Keep data no longer than needed."}))
	for _, e := range []*compliance.Edge{
		{ID: "control:c1->article:a1", FromType: "control", FromID: "c1", ToType: "article", ToID: "a1", RelationType: "cites"},
		{ID: "control:c2->article:a2", FromType: "control", FromID: "c2", ToType: "article", ToID: "a2", RelationType: "cites"},
		{ID: "article:a1->article:a2", FromType: "article", FromID: "a1", ToType: "article", ToID: "a2", RelationType: "related"},
	} {
		require.NoError(t, repo.UpsertEdge(ctx, e))
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	db := openDB(t)
	assert.NoError(t, sqlstore.Migrate(context.Background(), db, sqlite.Dialect))
}

func TestCatalogRepository(t *testing.T) {
	ctx := context.Background()
	repo := sqlstore.NewCatalogRepository(openDB(t), sqlite.Dialect)
	seedPDPL(t, repo)

	f, err := repo.GetFramework(ctx, "pdpl")
	require.NoError(t, err)
	assert.Equal(t, "SDAIA", f.Authority)
	assert.Equal(t, compliance.StatusActive, f.Status)

	_, err = repo.GetFramework(ctx, "missing")
	assert.ErrorIs(t, err, compliance.ErrFrameworkNotFound)

	all, err := repo.ListFrameworks(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "ECC", all[0].Code)

	controls, err := repo.ListControls(ctx, "pdpl")
	require.NoError(t, err)
	require.Len(t, controls, 2)
	assert.Equal(t, "PDPL-1", controls[0].Code, "ordered by code")

	articles, err := repo.ListArticles(ctx, "pdpl")
	require.NoError(t, err)
	assert.Len(t, articles, 2)
	assert.Equal(t, "No processing without consent.", articles[0].Text)

	edges, err := repo.ListControlArticleEdges(ctx, "pdpl")
	require.NoError(t, err)
	assert.Len(t, edges, 2, "article->article edge excluded")

	edges, err = repo.ListControlArticleEdges(ctx, "ecc")
	require.NoError(t, err)
	assert.Empty(t, edges)
}

func TestCatalogRepository_UpsertUpdates(t *testing.T) {
	ctx := context.Background()
	repo := sqlstore.NewCatalogRepository(openDB(t), sqlite.Dialect)
	seedPDPL(t, repo)

	require.NoError(t, repo.UpsertControl(ctx, &compliance.Control{ID: "c1", FrameworkID: "pdpl", Code: "PDPL-1", Name: "Consent v2"}))
	controls, err := repo.ListControls(ctx, "pdpl")
	require.NoError(t, err)
	require.Len(t, controls, 2)
	assert.Equal(t, "Consent v2", controls[0].Name)
}

func TestAuditRepository(t *testing.T) {
	ctx := context.Background()
	repo := sqlstore.NewAuditRepository(openDB(t), sqlite.Dialect)
	at := time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Append(ctx, "ref-1", audit.Event{AuditRef: "ref-1", Step: audit.StepAnalysisStarted, UserID: "u1", Timestamp: at, Data: map[string]any{"tenant": "acme"}}))
	require.NoError(t, repo.Append(ctx, "ref-2", audit.Event{AuditRef: "ref-2", Step: audit.StepAnalysisStarted, UserID: "u2", Timestamp: at}))
	require.NoError(t, repo.Append(ctx, "ref-1", audit.Event{AuditRef: "ref-1", Step: audit.StepRulesLoaded, UserID: "u1", Timestamp: at.Add(time.Second), Data: map[string]any{"rules": 3}}))

	events, err := repo.List(ctx, "ref-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, audit.StepAnalysisStarted, events[0].Step)
	assert.Equal(t, "acme", events[0].Data["tenant"])
	assert.True(t, events[0].Timestamp.Equal(at))
	assert.Equal(t, float64(3), events[1].Data["rules"])

	none, err := repo.List(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestAnalystRepository(t *testing.T) {
	ctx := context.Background()
	repo := sqlstore.NewAnalystRepository(openDB(t), sqlite.Dialect)
	base := time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC)
	score := 72.5

	for i, id := range []string{"r1", "r2", "r3"} {
		require.NoError(t, repo.Save(ctx, &analyst.Analysis{
			ID: id, TenantID: "acme", FrameworkID: "pdpl", UserID: "u1",
			Score: &score, GapCount: i, Result: `{"auditRef":"` + id + `"}`,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, repo.Save(ctx, &analyst.Analysis{ID: "g1", TenantID: "globex", FrameworkID: "ecc", CreatedAt: base}))

	page, err := repo.Paginate(ctx, "acme", 1, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "r3", page[0].ID, "newest first")
	assert.Equal(t, "r2", page[1].ID)

	page, err = repo.Paginate(ctx, "acme", 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "r1", page[0].ID)

	got, err := repo.Get(ctx, "acme", "r2")
	require.NoError(t, err)
	require.NotNil(t, got.Score)
	assert.Equal(t, 72.5, *got.Score)
	assert.Equal(t, 1, got.GapCount)
	assert.Equal(t, `{"auditRef":"r2"}`, got.Result)

	g, err := repo.Get(ctx, "globex", "g1")
	require.NoError(t, err)
	assert.Nil(t, g.Score)
	assert.Equal(t, "{}", g.Result)

	_, err = repo.Get(ctx, "globex", "r1")
	assert.ErrorIs(t, err, analyst.ErrNotFound)
}
