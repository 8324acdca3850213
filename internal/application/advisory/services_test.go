package advisory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/regtech-advisor/internal/application"
	appaudit "github.com/bryanwahyu/regtech-advisor/internal/application/audit"
	"github.com/bryanwahyu/regtech-advisor/internal/application/monitor"
	"github.com/bryanwahyu/regtech-advisor/internal/application/rules"
	"github.com/bryanwahyu/regtech-advisor/internal/domain/advisory"
	"github.com/bryanwahyu/regtech-advisor/internal/domain/ai"
	"github.com/bryanwahyu/regtech-advisor/internal/domain/alert"
	"github.com/bryanwahyu/regtech-advisor/internal/domain/analyst"
	"github.com/bryanwahyu/regtech-advisor/internal/domain/audit"
	"github.com/bryanwahyu/regtech-advisor/internal/domain/compliance"
	"github.com/bryanwahyu/regtech-advisor/internal/infra/auditlog"
)

var testNow = time.Date(2026, 4, 1, 9, 30, 0, 0, time.UTC)

// catalog with PDPL (one control linked to one article) and an empty framework
type fakeCatalog struct{}

func (fakeCatalog) GetFramework(_ context.Context, id compliance.FrameworkID) (*compliance.Framework, error) {
	switch id {
	case "pdpl":
		return &compliance.Framework{ID: "pdpl", Code: "PDPL", Name: "Personal Data Protection Law", Status: compliance.StatusActive}, nil
	case "empty":
		return &compliance.Framework{ID: "empty", Code: "EMPTY", Name: "Empty"}, nil
	}
	return nil, compliance.ErrFrameworkNotFound
}

func (fakeCatalog) ListFrameworks(context.Context) ([]*compliance.Framework, error) { return nil, nil }

func (fakeCatalog) ListControls(_ context.Context, id compliance.FrameworkID) ([]*compliance.Control, error) {
	if id != "pdpl" {
		return nil, nil
	}
	return []*compliance.Control{{
		ID: "c1", FrameworkID: "pdpl", Code: "PDPL-1", Name: "Lawful consent",
		Description: "Obtain consent before processing personal data.", Category: "consent", Priority: "high",
	}}, nil
}

func (fakeCatalog) ListArticles(_ context.Context, id compliance.FrameworkID) ([]*compliance.Article, error) {
	if id != "pdpl" {
		return nil, nil
	}
	return []*compliance.Article{{ID: "a1", FrameworkID: "pdpl", Code: "Article-1", Title: "Consent", Text: "No processing without consent."}}, nil
}

func (fakeCatalog) ListControlArticleEdges(_ context.Context, id compliance.FrameworkID) ([]*compliance.Edge, error) {
	if id != "pdpl" {
		return nil, nil
	}
	return []*compliance.Edge{{ID: "e1", FromType: "control", FromID: "c1", ToType: "article", ToID: "a1", RelationType: "cites"}}, nil
}

type stubAI struct {
	raw   string
	err   error
	calls int
	last  ai.AnalysisRequest
}

func (s *stubAI) AnalyzeDocument(_ context.Context, req ai.AnalysisRequest) (string, error) {
	s.calls++
	s.last = req
	return s.raw, s.err
}

type memResults struct {
	mu    sync.Mutex
	saved map[string]*analyst.Analysis
	err   error
}

func (m *memResults) Save(_ context.Context, a *analyst.Analysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.saved == nil {
		m.saved = map[string]*analyst.Analysis{}
	}
	m.saved[a.ID] = a
	return nil
}

func (m *memResults) Paginate(_ context.Context, tenant string, _, _ int) ([]*analyst.Analysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*analyst.Analysis
	for _, a := range m.saved {
		if a.TenantID == tenant {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memResults) Get(_ context.Context, tenant, id string) (*analyst.Analysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.saved[id]
	if !ok || a.TenantID != tenant {
		return nil, analyst.ErrNotFound
	}
	return a, nil
}

// trackingStore remembers which refs were written
type trackingStore struct {
	*auditlog.MemoryStore
	mu   sync.Mutex
	refs []string
}

func (s *trackingStore) Append(ctx context.Context, ref string, e audit.Event) error {
	s.mu.Lock()
	seen := false
	for _, r := range s.refs {
		seen = seen || r == ref
	}
	if !seen {
		s.refs = append(s.refs, ref)
	}
	s.mu.Unlock()
	return s.MemoryStore.Append(ctx, ref, e)
}

func (s *trackingStore) Refs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.refs...)
}

type countingNotifier struct{ n int }

func (c *countingNotifier) Notify(context.Context, alert.Alert) error { c.n++; return nil }

func gapResponse(controlCode, articleCode string) string {
	return fmt.Sprintf(`{
  "complianceScore": 35,
  "overallAssessment": "Consent is not collected",
  "gaps": [{
    "title": "No consent obtained",
    "description": "Personal data is processed without consent",
    "priority": "high",
    "evidence": "no consent obtained",
    "estimatedEffort": "1 month",
    "affectedControlCodes": [%q],
    "affectedArticleCodes": [%q]
  }],
  "recommendations": [
    {"title": "Introduce consent capture", "description": "d", "priority": "high", "evidence": "", "estimatedEffort": "",
     "affectedControlCodes": ["PDPL-1"], "affectedArticleCodes": ["Article-1"]},
    {"title": "Unrelated", "description": "d", "priority": "low", "evidence": "", "estimatedEffort": "",
     "affectedControlCodes": ["ECC-9"], "affectedArticleCodes": []}
  ],
  "strengths": [],
  "risks": [
    {"title": "Unknown risk", "description": "d", "priority": "medium", "evidence": "", "estimatedEffort": "",
     "affectedControlCodes": ["XYZ"], "affectedArticleCodes": ["Article-77"]}
  ]
}`, controlCode, articleCode)
}

type fixture struct {
	svc      *Service
	ai       *stubAI
	store    *trackingStore
	results  *memResults
	notifier *countingNotifier
}

func newFixture(t *testing.T, raw string) *fixture {
	t.Helper()
	f := &fixture{
		ai:       &stubAI{raw: raw},
		store:    &trackingStore{MemoryStore: auditlog.NewMemoryStore()},
		results:  &memResults{},
		notifier: &countingNotifier{},
	}
	clock := application.FixedClock(testNow)
	mon, err := monitor.New(monitor.Options{Notifier: f.notifier, Clock: clock})
	require.NoError(t, err)
	f.svc = &Service{
		Rules:   rules.NewLoader(fakeCatalog{}),
		AI:      f.ai,
		Audit:   appaudit.NewLogger(f.store, clock),
		Monitor: mon,
		Results: f.results,
		Clock:   clock,
	}
	return f
}

func analyzeCmd(framework compliance.FrameworkID) AnalyzeCommand {
	return AnalyzeCommand{
		TenantID:     "acme",
		UserID:       "user-1",
		FrameworkID:  framework,
		DocumentText: "Our onboarding flow stores customer data; no consent obtained.",
	}
}

func steps(events []audit.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Step)
	}
	return out
}

func TestAnalyzeDocument_PDPLScenario(t *testing.T) {
	f := newFixture(t, gapResponse("PDPL-1", "Article-1"))

	res, err := f.svc.AnalyzeDocument(context.Background(), analyzeCmd("pdpl"))
	require.NoError(t, err)

	assert.Equal(t, advisory.ResultKind, res.Kind)
	assert.Equal(t, advisory.Disclaimer, res.AdvisoryNotice)
	assert.Equal(t, "Personal Data Protection Law", res.FrameworkName)
	assert.Equal(t, testNow, res.GeneratedAt)
	require.NotNil(t, res.ComplianceScore)
	assert.Equal(t, 35.0, *res.ComplianceScore)
	assert.NotEmpty(t, res.AuditRef)

	require.Len(t, res.Gaps, 1)
	g := res.Gaps[0]
	assert.Equal(t, "PDPL-1", g.ControlCode)
	assert.Equal(t, "Article-1", g.ArticleCode)
	assert.NotEmpty(t, g.ControlText)
	assert.NotEmpty(t, g.ArticleText)
	assert.Contains(t, []advisory.RiskLevel{advisory.RiskLow, advisory.RiskMedium, advisory.RiskHigh}, g.RiskLevel)

	// unknown-code recommendation and risk are dropped; the call still succeeds
	require.Len(t, res.ComplianceFindings, 1)
	assert.Equal(t, "Introduce consent capture", res.ComplianceFindings[0].Title)

	assert.Equal(t, "Personal Data Protection Law", f.ai.last.FrameworkName)
	assert.Len(t, f.ai.last.Rules, 1)

	trail, err := f.svc.AuditTrail(context.Background(), "acme", res.AuditRef)
	require.NoError(t, err)
	want := []string{
		audit.StepAnalysisStarted, audit.StepRulesLoaded, audit.StepLLMInvoked,
		audit.StepCitationsMapped, audit.StepAnalysisCompleted,
	}
	if diff := cmp.Diff(want, steps(trail)); diff != "" {
		t.Errorf("audit steps mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, 0, f.notifier.n)
	assert.Equal(t, uint64(1), f.svc.Monitor.Stats().Passed)

	stored, err := f.svc.Get(context.Background(), "acme", res.AuditRef)
	require.NoError(t, err)
	assert.Equal(t, res.AuditRef, stored.AuditRef)
	assert.Equal(t, advisory.Disclaimer, stored.AdvisoryNotice)
	assert.Equal(t, 1, f.results.saved[res.AuditRef].GapCount)
}

func TestAnalyzeDocument_FrameworkNameOverride(t *testing.T) {
	f := newFixture(t, gapResponse("PDPL-1", "Article-1"))
	cmd := analyzeCmd("pdpl")
	cmd.FrameworkName = "PDPL (KSA)"

	res, err := f.svc.AnalyzeDocument(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, "PDPL (KSA)", res.FrameworkName)
	assert.Equal(t, "PDPL (KSA)", f.ai.last.FrameworkName)
}

// Core regression: framework has control PDPL-1 only, the model cites B.
func TestAnalyzeDocument_UnknownGapControlFailsWholeCall(t *testing.T) {
	f := newFixture(t, gapResponse("B", "Article-1"))

	res, err := f.svc.AnalyzeDocument(context.Background(), analyzeCmd("pdpl"))
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, advisory.ErrUnmatchedCitation)
	assert.Empty(t, f.results.saved)
}

func TestAnalyzeDocument_FailedRunIsAudited(t *testing.T) {
	f := newFixture(t, gapResponse("PDPL-1", "Article-99"))

	_, err := f.svc.AnalyzeDocument(context.Background(), analyzeCmd("pdpl"))
	require.ErrorIs(t, err, advisory.ErrUnmatchedCitation)

	refs := f.store.Refs()
	require.Len(t, refs, 1)
	events, err := f.store.List(context.Background(), refs[0])
	require.NoError(t, err)
	last := events[len(events)-1]
	assert.Equal(t, audit.StepAnalysisFailed, last.Step)
	assert.Contains(t, last.Data["error"], "Article-99")
}

func TestAnalyzeDocument_NoRules(t *testing.T) {
	f := newFixture(t, gapResponse("PDPL-1", "Article-1"))

	_, err := f.svc.AnalyzeDocument(context.Background(), analyzeCmd("empty"))
	assert.ErrorIs(t, err, advisory.ErrNoRules)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, 0, f.ai.calls, "model must not be called without rules")
}

func TestAnalyzeDocument_UnknownFramework(t *testing.T) {
	f := newFixture(t, "")
	_, err := f.svc.AnalyzeDocument(context.Background(), analyzeCmd("nope"))
	assert.ErrorIs(t, err, compliance.ErrFrameworkNotFound)
	assert.True(t, IsNotFound(err))
}

func TestAnalyzeDocument_RejectsBeforePipeline(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AnalyzeCommand)
		want   error
	}{
		{"no user", func(c *AnalyzeCommand) { c.UserID = "" }, advisory.ErrUnauthorized},
		{"blank document", func(c *AnalyzeCommand) { c.DocumentText = "  " }, advisory.ErrInvalidInput},
		{"no framework", func(c *AnalyzeCommand) { c.FrameworkID = "" }, advisory.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, gapResponse("PDPL-1", "Article-1"))
			cmd := analyzeCmd("pdpl")
			tt.mutate(&cmd)

			_, err := f.svc.AnalyzeDocument(context.Background(), cmd)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, 0, f.ai.calls)
			assert.Empty(t, f.store.Refs())
		})
	}
}

func TestAnalyzeDocument_UpstreamErrorPropagates(t *testing.T) {
	f := newFixture(t, "")
	f.ai.err = fmt.Errorf("failed to create chat completion: %w", context.DeadlineExceeded)

	_, err := f.svc.AnalyzeDocument(context.Background(), analyzeCmd("pdpl"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, f.ai.calls)
}

func TestAnalyzeDocument_MalformedResponse(t *testing.T) {
	f := newFixture(t, `{"complianceScore": "high"`)
	_, err := f.svc.AnalyzeDocument(context.Background(), analyzeCmd("pdpl"))
	assert.ErrorIs(t, err, advisory.ErrMalformedResponse)
}

func TestAnalyzeDocument_PersistFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, gapResponse("PDPL-1", "Article-1"))
	f.results.err = errors.New("disk full")

	res, err := f.svc.AnalyzeDocument(context.Background(), analyzeCmd("pdpl"))
	require.NoError(t, err)
	assert.Len(t, res.Gaps, 1)
}

func TestAdoptRecommendation(t *testing.T) {
	f := newFixture(t, gapResponse("PDPL-1", "Article-1"))
	ctx := context.Background()
	res, err := f.svc.AnalyzeDocument(ctx, analyzeCmd("pdpl"))
	require.NoError(t, err)

	_, err = f.svc.AdoptRecommendation(ctx, AdoptCommand{TenantID: "acme", UserID: "user-1", AuditRef: res.AuditRef})
	assert.ErrorIs(t, err, advisory.ErrLiabilityNotAccepted)

	_, err = f.svc.AdoptRecommendation(ctx, AdoptCommand{TenantID: "acme", AuditRef: res.AuditRef, AcceptsLiability: true})
	assert.ErrorIs(t, err, advisory.ErrUnauthorized)

	_, err = f.svc.AdoptRecommendation(ctx, AdoptCommand{TenantID: "acme", UserID: "user-1", AuditRef: "missing", AcceptsLiability: true})
	assert.ErrorIs(t, err, advisory.ErrAuditNotFound)

	out, err := f.svc.AdoptRecommendation(ctx, AdoptCommand{TenantID: "acme", UserID: "user-1", AuditRef: res.AuditRef, AcceptsLiability: true})
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, testNow, out.AdoptedAt)

	trail, err := f.svc.AuditTrail(ctx, "acme", res.AuditRef)
	require.NoError(t, err)
	assert.Equal(t, audit.StepRecommendationAdopted, trail[len(trail)-1].Step)
}

func TestAuditTrail_Unknown(t *testing.T) {
	f := newFixture(t, "")
	_, err := f.svc.AuditTrail(context.Background(), "acme", "missing")
	assert.ErrorIs(t, err, advisory.ErrAuditNotFound)
}

func TestAuditTrail_OtherTenant(t *testing.T) {
	f := newFixture(t, gapResponse("PDPL-1", "Article-1"))
	ctx := context.Background()
	res, err := f.svc.AnalyzeDocument(ctx, analyzeCmd("pdpl"))
	require.NoError(t, err)

	_, err = f.svc.AuditTrail(ctx, "globex", res.AuditRef)
	assert.ErrorIs(t, err, advisory.ErrAuditNotFound)
	assert.True(t, IsNotFound(err))

	_, err = f.svc.AdoptRecommendation(ctx, AdoptCommand{TenantID: "globex", UserID: "bob", AuditRef: res.AuditRef, AcceptsLiability: true})
	assert.ErrorIs(t, err, advisory.ErrAuditNotFound)

	// the rejected adoption leaves the owner's trail untouched
	trail, err := f.svc.AuditTrail(ctx, "acme", res.AuditRef)
	require.NoError(t, err)
	assert.Equal(t, audit.StepAnalysisCompleted, trail[len(trail)-1].Step)
}

func TestHistory(t *testing.T) {
	f := newFixture(t, gapResponse("PDPL-1", "Article-1"))
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := f.svc.AnalyzeDocument(ctx, analyzeCmd("pdpl"))
		require.NoError(t, err)
	}

	page, err := f.svc.History(ctx, "acme", 1, 20)
	require.NoError(t, err)
	assert.Len(t, page.Data, 2)

	other, err := f.svc.History(ctx, "globex", 1, 20)
	require.NoError(t, err)
	assert.NotNil(t, other.Data)
	assert.Empty(t, other.Data)

	_, err = f.svc.Get(ctx, "globex", page.Data[0].ID)
	assert.ErrorIs(t, err, analyst.ErrNotFound)
}

func TestAnalyzeDocument_GapsAlwaysCitable(t *testing.T) {
	f := newFixture(t, gapResponse("PDPL-1", "Article-1"))
	for i := 0; i < 5; i++ {
		res, err := f.svc.AnalyzeDocument(context.Background(), analyzeCmd("pdpl"))
		require.NoError(t, err)
		for _, g := range res.Gaps {
			assert.NotEmpty(t, strings.TrimSpace(g.ControlCode))
			assert.NotEmpty(t, strings.TrimSpace(g.ControlText))
			assert.NotEmpty(t, strings.TrimSpace(g.ArticleCode))
			assert.NotEmpty(t, strings.TrimSpace(g.ArticleText))
		}
	}
}
