package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/bryanwahyu/regtech-advisor/internal/application"
	"github.com/bryanwahyu/regtech-advisor/internal/domain/advisory"
	"github.com/bryanwahyu/regtech-advisor/internal/domain/alert"
)

const (
	defaultRetention = time.Hour
	defaultMaxRecent = 200
	pruneInterval    = time.Minute
)

// Issue is one property an outgoing response failed
type Issue struct {
	Severity alert.Severity `json:"severity"`
	Field    string         `json:"field"`
	Message  string         `json:"message"`
	AuditRef string         `json:"auditRef,omitempty"`
	At       time.Time      `json:"at"`
}

// Report is the outcome of one Check
type Report struct {
	AuditRef string  `json:"auditRef"`
	Critical []Issue `json:"critical"`
	Warnings []Issue `json:"warnings"`
}

// OK reports whether the response passed every check.
func (r Report) OK() bool { return len(r.Critical) == 0 && len(r.Warnings) == 0 }

// Stats is a snapshot of the monitor counters
type Stats struct {
	Checks   uint64    `json:"checks"`
	Passed   uint64    `json:"passed"`
	Warnings uint64    `json:"warnings"`
	Critical uint64    `json:"critical"`
	Alerts   uint64    `json:"alerts"`
	Recent   []Issue   `json:"recent"`
	Since    time.Time `json:"since"`
}

// Options configure a Monitor. Zero values fall back to sane defaults.
type Options struct {
	Notifier  alert.Notifier
	Logger    *zap.Logger
	Clock     application.Clock
	Meter     metric.Meter
	Retention time.Duration
	MaxRecent int
}

type instruments struct {
	checks   metric.Int64Counter
	warnings metric.Int64Counter
	critical metric.Int64Counter
}

// Monitor validates outgoing advisory responses after the fact.
// It is safe for concurrent use.
type Monitor struct {
	notifier  alert.Notifier
	log       *zap.Logger
	clock     application.Clock
	retention time.Duration
	maxRecent int
	inst      *instruments

	mu     sync.Mutex
	stats  Stats
	recent []Issue
}

func New(opts Options) (*Monitor, error) {
	m := &Monitor{
		notifier:  opts.Notifier,
		log:       opts.Logger,
		clock:     opts.Clock,
		retention: opts.Retention,
		maxRecent: opts.MaxRecent,
	}
	if m.log == nil {
		m.log = zap.NewNop()
	}
	if m.clock == nil {
		m.clock = application.SystemClock{}
	}
	if m.retention <= 0 {
		m.retention = defaultRetention
	}
	if m.maxRecent <= 0 {
		m.maxRecent = defaultMaxRecent
	}
	m.stats.Since = m.clock.Now()

	if opts.Meter != nil {
		inst, err := newInstruments(opts.Meter)
		if err != nil {
			return nil, err
		}
		m.inst = inst
	}
	return m, nil
}

func newInstruments(meter metric.Meter) (*instruments, error) {
	var (
		inst instruments
		err  error
	)
	if inst.checks, err = meter.Int64Counter("regtech.monitor.checks",
		metric.WithDescription("Advisory responses checked by the monitor")); err != nil {
		return nil, fmt.Errorf("failed to create checks counter: %w", err)
	}
	if inst.warnings, err = meter.Int64Counter("regtech.monitor.warnings",
		metric.WithDescription("Non-fatal issues found in advisory responses")); err != nil {
		return nil, fmt.Errorf("failed to create warnings counter: %w", err)
	}
	if inst.critical, err = meter.Int64Counter("regtech.monitor.critical",
		metric.WithDescription("Critical issues found in advisory responses")); err != nil {
		return nil, fmt.Errorf("failed to create critical counter: %w", err)
	}
	return &inst, nil
}

// Check validates r. Critical issues (discriminator tag, audit reference,
// disclaimer) trigger a notification; gap citation issues are warnings.
// Neither blocks the response.
func (m *Monitor) Check(ctx context.Context, r *advisory.Result) Report {
	now := m.clock.Now()
	rep := Report{Critical: []Issue{}, Warnings: []Issue{}}

	critical := func(field, msg string) {
		rep.Critical = append(rep.Critical, Issue{Severity: alert.SeverityCritical, Field: field, Message: msg, AuditRef: rep.AuditRef, At: now})
	}
	warn := func(field, msg string) {
		rep.Warnings = append(rep.Warnings, Issue{Severity: alert.SeverityWarning, Field: field, Message: msg, AuditRef: rep.AuditRef, At: now})
	}

	var frameworkID string
	if r == nil {
		critical("result", "response is nil")
	} else {
		rep.AuditRef = r.AuditRef
		frameworkID = string(r.FrameworkID)
		if r.Kind != advisory.ResultKind {
			critical("kind", fmt.Sprintf("discriminator is %q, want %q", r.Kind, advisory.ResultKind))
		}
		if r.AuditRef == "" {
			critical("auditRef", "audit reference missing")
		}
		if r.AdvisoryNotice != advisory.Disclaimer {
			critical("advisoryNotice", "advisory disclaimer missing or altered")
		}
		for i, g := range r.Gaps {
			for _, f := range []struct{ name, val string }{
				{"controlCode", g.ControlCode},
				{"controlText", g.ControlText},
				{"articleCode", g.ArticleCode},
				{"articleText", g.ArticleText},
			} {
				if f.val == "" {
					warn(fmt.Sprintf("gaps[%d].%s", i, f.name), "gap citation incomplete")
				}
			}
		}
	}

	m.record(ctx, frameworkID, rep)

	for _, is := range rep.Warnings {
		m.log.Warn("advisory response warning",
			zap.String("audit_ref", rep.AuditRef),
			zap.String("field", is.Field),
			zap.String("message", is.Message))
	}
	if len(rep.Critical) > 0 {
		issues := make([]string, 0, len(rep.Critical))
		for _, is := range rep.Critical {
			issues = append(issues, is.Field+": "+is.Message)
			m.log.Error("advisory response critical",
				zap.String("audit_ref", rep.AuditRef),
				zap.String("field", is.Field),
				zap.String("message", is.Message))
		}
		m.notify(ctx, alert.Alert{
			Severity:    alert.SeverityCritical,
			AuditRef:    rep.AuditRef,
			FrameworkID: frameworkID,
			Issues:      issues,
			RaisedAt:    now,
		})
	}
	return rep
}

func (m *Monitor) notify(ctx context.Context, a alert.Alert) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Notify(ctx, a); err != nil {
		m.log.Error("alert dispatch failed", zap.String("audit_ref", a.AuditRef), zap.Error(err))
		return
	}
	m.mu.Lock()
	m.stats.Alerts++
	m.mu.Unlock()
}

func (m *Monitor) record(ctx context.Context, frameworkID string, rep Report) {
	m.mu.Lock()
	m.stats.Checks++
	if rep.OK() {
		m.stats.Passed++
	}
	m.stats.Warnings += uint64(len(rep.Warnings))
	m.stats.Critical += uint64(len(rep.Critical))
	m.recent = append(m.recent, rep.Critical...)
	m.recent = append(m.recent, rep.Warnings...)
	if over := len(m.recent) - m.maxRecent; over > 0 {
		m.recent = append([]Issue(nil), m.recent[over:]...)
	}
	m.mu.Unlock()

	if m.inst == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("framework", frameworkID))
	m.inst.checks.Add(ctx, 1, attrs)
	if n := len(rep.Warnings); n > 0 {
		m.inst.warnings.Add(ctx, int64(n), attrs)
	}
	if n := len(rep.Critical); n > 0 {
		m.inst.critical.Add(ctx, int64(n), attrs)
	}
}

// Stats returns a snapshot of the counters and recent issues.
func (m *Monitor) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.stats
	s.Recent = append([]Issue{}, m.recent...)
	return s
}

// Prune drops recent issues older than the retention window.
func (m *Monitor) Prune() {
	cutoff := m.clock.Now().Add(-m.retention)
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.recent[:0]
	for _, is := range m.recent {
		if is.At.After(cutoff) {
			kept = append(kept, is)
		}
	}
	m.recent = kept
}

// Run prunes on a ticker until ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	return m.run(ctx, pruneInterval)
}

func (m *Monitor) run(ctx context.Context, every time.Duration) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.Prune()
		}
	}
}
