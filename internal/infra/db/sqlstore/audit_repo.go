package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bryanwahyu/regtech-advisor/internal/domain/audit"
)

// AuditRepository is the durable audit.Store backend.
type AuditRepository struct {
	db *sql.DB
	d  Dialect
}

func NewAuditRepository(db *sql.DB, d Dialect) *AuditRepository {
	return &AuditRepository{db: db, d: d}
}

func (r *AuditRepository) Append(ctx context.Context, ref string, e audit.Event) error {
	const q = `
INSERT INTO audit_events
  (audit_ref, step, user_id, data_json, created_at)
VALUES (?,?,?,?,?);`
	data := "{}"
	if len(e.Data) > 0 {
		b, err := json.Marshal(e.Data)
		if err != nil {
			return fmt.Errorf("encode audit data: %w", err)
		}
		data = string(b)
	}
	created := e.Timestamp
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, r.d.rebind(q), ref, e.Step, e.UserID, data, created)
	return err
}

func (r *AuditRepository) List(ctx context.Context, ref string) ([]audit.Event, error) {
	const q = `
SELECT audit_ref, step, user_id, data_json, created_at
FROM audit_events
WHERE audit_ref=?
ORDER BY id;`
	rows, err := r.db.QueryContext(ctx, r.d.rebind(q), ref)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []audit.Event
	for rows.Next() {
		var (
			e       audit.Event
			data    string
			created time.Time
		)
		if err := rows.Scan(&e.AuditRef, &e.Step, &e.UserID, &data, &created); err != nil {
			return nil, err
		}
		if data != "" && data != "{}" {
			if err := json.Unmarshal([]byte(data), &e.Data); err != nil {
				return nil, fmt.Errorf("decode audit data for %s: %w", ref, err)
			}
		}
		e.Timestamp = created.UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}
