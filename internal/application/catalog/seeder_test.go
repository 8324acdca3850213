package catalog

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/regtech-advisor/internal/domain/compliance"
)

type memWriter struct {
	frameworks map[compliance.FrameworkID]*compliance.Framework
	controls   map[string]*compliance.Control
	articles   map[string]*compliance.Article
	edges      map[string]*compliance.Edge
	failOn     string
}

func newMemWriter() *memWriter {
	return &memWriter{
		frameworks: map[compliance.FrameworkID]*compliance.Framework{},
		controls:   map[string]*compliance.Control{},
		articles:   map[string]*compliance.Article{},
		edges:      map[string]*compliance.Edge{},
	}
}

func (m *memWriter) UpsertFramework(_ context.Context, f *compliance.Framework) error {
	m.frameworks[f.ID] = f
	return nil
}

func (m *memWriter) UpsertControl(_ context.Context, c *compliance.Control) error {
	if c.Code == m.failOn {
		return errors.New("constraint violation")
	}
	m.controls[c.ID] = c
	return nil
}

func (m *memWriter) UpsertArticle(_ context.Context, a *compliance.Article) error {
	m.articles[a.ID] = a
	return nil
}

func (m *memWriter) UpsertEdge(_ context.Context, e *compliance.Edge) error {
	m.edges[e.ID] = e
	return nil
}

func TestSeed_SampleCatalog(t *testing.T) {
	f, err := os.Open("../../../seeds/saudi-frameworks.yaml")
	require.NoError(t, err)
	defer f.Close()

	w := newMemWriter()
	sum, err := (&Seeder{Writer: w}).Seed(context.Background(), f)
	require.NoError(t, err)

	assert.Equal(t, Summary{Frameworks: 3, Controls: 7, Articles: 7, Edges: 7}, sum)
	assert.Equal(t, compliance.StatusDraft, w.frameworks["sama"].Status)
	assert.Equal(t, compliance.StatusActive, w.frameworks["pdpl"].Status)

	c := w.controls["pdpl-pdpl-1"]
	require.NotNil(t, c)
	assert.Equal(t, compliance.FrameworkID("pdpl"), c.FrameworkID)

	e := w.edges[EdgeID("pdpl-pdpl-1", "pdpl-article-5")]
	require.NotNil(t, e)
	assert.Equal(t, compliance.RelationCites, e.RelationType)
	assert.Equal(t, compliance.EntityControl, e.FromType)
}

func TestSeed_Idempotent(t *testing.T) {
	doc := `
frameworks:
  - code: PDPL
    name: PDPL
    articles: [{code: Article-1, title: t, text: x}]
    controls: [{code: PDPL-1, name: n, description: d, articles: [Article-1]}]
`
	w := newMemWriter()
	s := &Seeder{Writer: w}
	_, err := s.Seed(context.Background(), strings.NewReader(doc))
	require.NoError(t, err)
	_, err = s.Seed(context.Background(), strings.NewReader(doc))
	require.NoError(t, err)
	assert.Len(t, w.controls, 1)
	assert.Len(t, w.edges, 1)
}

func TestSeed_RejectsBeforeWriting(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"unknown article", `
frameworks:
  - code: PDPL
    name: PDPL
    controls: [{code: PDPL-1, name: n, description: d, articles: [Article-9]}]
`, `unknown article "Article-9"`},
		{"duplicate control", `
frameworks:
  - code: PDPL
    name: PDPL
    controls: [{code: PDPL-1, name: a, description: d}, {code: PDPL-1, name: b, description: d}]
`, "duplicate control code"},
		{"bad status", `
frameworks:
  - code: PDPL
    name: PDPL
    status: retired
`, "unknown status"},
		{"control without description", `
frameworks:
  - code: PDPL
    name: PDPL
    controls: [{code: PDPL-1, name: n}]
`, "code, name and description are required"},
		{"article without text", `
frameworks:
  - code: PDPL
    name: PDPL
    articles: [{code: Article-1, title: Consent, text: "  "}]
`, "code and text are required"},
		{"missing name", `
frameworks:
  - code: PDPL
`, "code and name are required"},
		{"unknown field", `
frameworks:
  - code: PDPL
    name: PDPL
    controlz: []
`, "controlz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newMemWriter()
			_, err := (&Seeder{Writer: w}).Seed(context.Background(), strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Empty(t, w.frameworks)
		})
	}
}

func TestSeed_WriterError(t *testing.T) {
	w := newMemWriter()
	w.failOn = "PDPL-1"
	_, err := (&Seeder{Writer: w}).Seed(context.Background(), strings.NewReader(`
frameworks:
  - code: PDPL
    name: PDPL
    controls: [{code: PDPL-1, name: n, description: d}]
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "constraint violation")
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "sama-csf", slug("SAMA CSF"))
	assert.Equal(t, "article-5", slug(" Article-5 "))
}
