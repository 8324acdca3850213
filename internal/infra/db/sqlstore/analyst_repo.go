package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	domain "github.com/bryanwahyu/regtech-advisor/internal/domain/analyst"
)

type AnalystRepository struct {
	db *sql.DB
	d  Dialect
}

func NewAnalystRepository(db *sql.DB, d Dialect) *AnalystRepository {
	return &AnalystRepository{db: db, d: d}
}

var analysisCols = []string{"id", "tenant_id", "framework_id", "user_id", "score", "gap_count", "result_json", "created_at"}

// Save inserts or updates an analysis record
func (r *AnalystRepository) Save(ctx context.Context, a *domain.Analysis) error {
	// Ensure non-nullable fields have safe defaults
	tenant := stringOrDash(a.TenantID)
	framework := stringOrDash(a.FrameworkID)
	result := a.Result
	if strings.TrimSpace(result) == "" {
		// result_json column requires valid JSON; use empty object
		result = "{}"
	}
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	var score sql.NullFloat64
	if a.Score != nil {
		score = sql.NullFloat64{Float64: *a.Score, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, r.d.upsert("advisory_analyses", analysisCols),
		a.ID, tenant, framework, a.UserID, score, a.GapCount, result, createdAt)
	return err
}

const selectAnalysis = `
SELECT id, tenant_id, framework_id, user_id, score, gap_count, result_json, created_at
FROM advisory_analyses`

type scanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(s scanner) (*domain.Analysis, error) {
	var (
		a       domain.Analysis
		score   sql.NullFloat64
		created time.Time
	)
	if err := s.Scan(&a.ID, &a.TenantID, &a.FrameworkID, &a.UserID, &score, &a.GapCount, &a.Result, &created); err != nil {
		return nil, err
	}
	if score.Valid {
		v := score.Float64
		a.Score = &v
	}
	a.CreatedAt = created.UTC()
	return &a, nil
}

// Paginate returns a page of analysis records ordered by created_at desc
func (r *AnalystRepository) Paginate(ctx context.Context, tenant string, page, pageSize int) ([]*domain.Analysis, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	q := selectAnalysis + `
WHERE tenant_id=?
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?;`
	rows, err := r.db.QueryContext(ctx, r.d.rebind(q), tenant, pageSize, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Analysis{}
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Get returns one analysis of the tenant
func (r *AnalystRepository) Get(ctx context.Context, tenant, id string) (*domain.Analysis, error) {
	q := selectAnalysis + `
WHERE tenant_id=? AND id=?;`
	a, err := scanAnalysis(r.db.QueryRowContext(ctx, r.d.rebind(q), tenant, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return a, err
}
