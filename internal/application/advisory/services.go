package advisory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bryanwahyu/regtech-advisor/internal/application"
	appaudit "github.com/bryanwahyu/regtech-advisor/internal/application/audit"
	"github.com/bryanwahyu/regtech-advisor/internal/application/monitor"
	"github.com/bryanwahyu/regtech-advisor/internal/application/rules"
	"github.com/bryanwahyu/regtech-advisor/internal/domain/advisory"
	"github.com/bryanwahyu/regtech-advisor/internal/domain/ai"
	"github.com/bryanwahyu/regtech-advisor/internal/domain/analyst"
	"github.com/bryanwahyu/regtech-advisor/internal/domain/audit"
	"github.com/bryanwahyu/regtech-advisor/internal/domain/compliance"
)

// Service implements the advisory use-cases.
// Each call runs its pipeline sequentially; the service is safe for concurrent use.
type Service struct {
	Rules   *rules.Loader
	AI      ai.Client
	Audit   *appaudit.Logger
	Monitor *monitor.Monitor
	Results analyst.Repository // optional
	Clock   application.Clock
	Logger  *zap.Logger
}

// AnalyzeCommand untuk analyzeDocument
type AnalyzeCommand struct {
	TenantID      string
	UserID        string
	FrameworkID   compliance.FrameworkID
	FrameworkName string
	DocumentText  string
}

// AdoptCommand untuk adoptRecommendation
type AdoptCommand struct {
	TenantID         string
	UserID           string
	AuditRef         string
	AcceptsLiability bool
}

// AnalyzeDocument runs load -> render/invoke -> parse -> map and returns an
// advisory result. No partial result is ever returned: a gap that cannot be
// traced to a loaded control and article fails the whole call.
func (s *Service) AnalyzeDocument(ctx context.Context, cmd AnalyzeCommand) (*advisory.Result, error) {
	if strings.TrimSpace(cmd.UserID) == "" {
		return nil, advisory.ErrUnauthorized
	}
	if strings.TrimSpace(cmd.DocumentText) == "" {
		return nil, fmt.Errorf("%w: document text is required", advisory.ErrInvalidInput)
	}
	if strings.TrimSpace(string(cmd.FrameworkID)) == "" {
		return nil, fmt.Errorf("%w: framework id is required", advisory.ErrInvalidInput)
	}

	ref := s.Audit.NewRef()
	log := s.logger().With(zap.String("audit_ref", ref), zap.String("tenant", cmd.TenantID))
	s.audit(ctx, ref, audit.StepAnalysisStarted, cmd.UserID, map[string]any{
		"tenant":      cmd.TenantID,
		"frameworkId": string(cmd.FrameworkID),
		"documentLen": len(cmd.DocumentText),
	})

	res, err := s.analyze(ctx, ref, cmd)
	if err != nil {
		s.audit(ctx, ref, audit.StepAnalysisFailed, cmd.UserID, map[string]any{"error": err.Error()})
		log.Warn("analysis failed", zap.Error(err))
		return nil, err
	}

	s.audit(ctx, ref, audit.StepAnalysisCompleted, cmd.UserID, map[string]any{
		"gaps":     len(res.Gaps),
		"findings": len(res.ComplianceFindings),
	})
	if s.Monitor != nil {
		s.Monitor.Check(ctx, res)
	}
	s.persist(ctx, cmd, res)
	log.Info("analysis completed", zap.Int("gaps", len(res.Gaps)), zap.Int("findings", len(res.ComplianceFindings)))
	return res, nil
}

func (s *Service) analyze(ctx context.Context, ref string, cmd AnalyzeCommand) (*advisory.Result, error) {
	rs, err := s.Rules.Load(ctx, cmd.FrameworkID)
	if err != nil {
		return nil, err
	}
	if rs.Empty() {
		return nil, fmt.Errorf("%w: %s", advisory.ErrNoRules, cmd.FrameworkID)
	}
	s.audit(ctx, ref, audit.StepRulesLoaded, cmd.UserID, map[string]any{"rules": len(rs.Rules)})

	name := cmd.FrameworkName
	if strings.TrimSpace(name) == "" {
		name = rs.Framework.Name
	}

	raw, err := s.AI.AnalyzeDocument(ctx, ai.AnalysisRequest{
		FrameworkName: name,
		Rules:         rs.Rules,
		DocumentText:  cmd.DocumentText,
	})
	if err != nil {
		return nil, err
	}
	analysis, err := advisory.ParseAnalysis(raw)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, ref, audit.StepLLMInvoked, cmd.UserID, map[string]any{
		"findings": len(analysis.Findings),
		"score":    analysis.Score,
	})

	gaps, findings, err := advisory.MapCitations(rs, analysis)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, ref, audit.StepCitationsMapped, cmd.UserID, map[string]any{
		"gaps":     len(gaps),
		"findings": len(findings),
	})

	score := analysis.Score
	return &advisory.Result{
		Kind:               advisory.ResultKind,
		FrameworkID:        cmd.FrameworkID,
		FrameworkName:      name,
		Gaps:               gaps,
		ComplianceFindings: findings,
		ComplianceScore:    &score,
		GeneratedAt:        s.now(),
		AuditRef:           ref,
		AdvisoryNotice:     advisory.Disclaimer,
	}, nil
}

// AdoptRecommendation records that the caller adopts the advisory identified
// by AuditRef. The caller must explicitly accept liability.
func (s *Service) AdoptRecommendation(ctx context.Context, cmd AdoptCommand) (*advisory.AdoptResult, error) {
	if strings.TrimSpace(cmd.UserID) == "" {
		return nil, advisory.ErrUnauthorized
	}
	if !cmd.AcceptsLiability {
		return nil, advisory.ErrLiabilityNotAccepted
	}
	if _, err := s.trail(ctx, cmd.TenantID, cmd.AuditRef); err != nil {
		return nil, err
	}

	at := s.now()
	if err := s.Audit.Log(ctx, cmd.AuditRef, audit.StepRecommendationAdopted, cmd.UserID, map[string]any{
		"tenant":           cmd.TenantID,
		"acceptsLiability": true,
	}); err != nil {
		return nil, err
	}
	return &advisory.AdoptResult{Success: true, AdoptedAt: at}, nil
}

// AuditTrail returns every recorded step of one of the tenant's requests.
func (s *Service) AuditTrail(ctx context.Context, tenant, ref string) ([]audit.Event, error) {
	return s.trail(ctx, tenant, ref)
}

// trail loads ref and checks it was started by tenant. A ref owned by another
// tenant is reported as not found so refs cannot be probed across tenants.
func (s *Service) trail(ctx context.Context, tenant, ref string) ([]audit.Event, error) {
	trail, err := s.Audit.Trail(ctx, ref)
	if err != nil {
		return nil, err
	}
	if len(trail) == 0 || trailTenant(trail) != tenant {
		return nil, fmt.Errorf("%w: %s", advisory.ErrAuditNotFound, ref)
	}
	return trail, nil
}

func trailTenant(trail []audit.Event) string {
	for _, e := range trail {
		if e.Step != audit.StepAnalysisStarted {
			continue
		}
		t, _ := e.Data["tenant"].(string)
		return t
	}
	return ""
}

// History returns a page of the tenant's stored analyses.
func (s *Service) History(ctx context.Context, tenant string, page, pageSize int) (*analyst.Page, error) {
	if s.Results == nil {
		return &analyst.Page{Data: []*analyst.Analysis{}, Page: page, PageSize: pageSize}, nil
	}
	list, err := s.Results.Paginate(ctx, tenant, page, pageSize)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*analyst.Analysis{}
	}
	return &analyst.Page{Data: list, Page: page, PageSize: pageSize}, nil
}

// Get returns one stored advisory result.
func (s *Service) Get(ctx context.Context, tenant, ref string) (*advisory.Result, error) {
	if s.Results == nil {
		return nil, analyst.ErrNotFound
	}
	a, err := s.Results.Get(ctx, tenant, ref)
	if err != nil {
		return nil, err
	}
	var res advisory.Result
	if err := json.Unmarshal([]byte(a.Result), &res); err != nil {
		return nil, fmt.Errorf("decode stored result %s: %w", ref, err)
	}
	return &res, nil
}

func (s *Service) persist(ctx context.Context, cmd AnalyzeCommand, res *advisory.Result) {
	if s.Results == nil {
		return
	}
	b, err := json.Marshal(res)
	if err == nil {
		err = s.Results.Save(ctx, &analyst.Analysis{
			ID:          res.AuditRef,
			TenantID:    cmd.TenantID,
			FrameworkID: string(res.FrameworkID),
			UserID:      cmd.UserID,
			Score:       res.ComplianceScore,
			GapCount:    len(res.Gaps),
			Result:      string(b),
			CreatedAt:   res.GeneratedAt,
		})
	}
	if err != nil {
		s.logger().Error("failed to persist analysis", zap.String("audit_ref", res.AuditRef), zap.Error(err))
	}
}

// audit failures never abort the pipeline; the trail is in-process best effort.
func (s *Service) audit(ctx context.Context, ref, step, userID string, data map[string]any) {
	if err := s.Audit.Log(ctx, ref, step, userID, data); err != nil {
		s.logger().Error("audit log failed", zap.String("audit_ref", ref), zap.String("step", step), zap.Error(err))
	}
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now()
}

func (s *Service) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

// IsNotFound reports whether err belongs to the not-found class.
func IsNotFound(err error) bool {
	return errors.Is(err, advisory.ErrNoRules) ||
		errors.Is(err, compliance.ErrFrameworkNotFound) ||
		errors.Is(err, advisory.ErrAuditNotFound) ||
		errors.Is(err, analyst.ErrNotFound)
}
