package sqlite

import "github.com/bryanwahyu/regtech-advisor/internal/infra/db/sqlstore"

var Dialect = sqlstore.Dialect{
	Name:   "sqlite",
	Upsert: sqlstore.OnConflict,
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS compliance_frameworks (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  authority TEXT NOT NULL DEFAULT '',
  version TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL DEFAULT 'active'
)`,
		`CREATE TABLE IF NOT EXISTS compliance_controls (
  id TEXT PRIMARY KEY,
  framework_id TEXT NOT NULL,
  code TEXT NOT NULL,
  name TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  category TEXT NOT NULL DEFAULT '',
  priority TEXT NOT NULL DEFAULT '',
  required_evidence TEXT NOT NULL DEFAULT '',
  UNIQUE (framework_id, code)
)`,
		`CREATE TABLE IF NOT EXISTS compliance_articles (
  id TEXT PRIMARY KEY,
  framework_id TEXT NOT NULL,
  code TEXT NOT NULL,
  title TEXT NOT NULL,
  body TEXT NOT NULL DEFAULT '',
  UNIQUE (framework_id, code)
)`,
		`CREATE TABLE IF NOT EXISTS compliance_edges (
  id TEXT PRIMARY KEY,
  from_type TEXT NOT NULL,
  from_id TEXT NOT NULL,
  to_type TEXT NOT NULL,
  to_id TEXT NOT NULL,
  relation_type TEXT NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_edges_from ON compliance_edges (from_type, from_id)`,
		`CREATE TABLE IF NOT EXISTS audit_events (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  audit_ref TEXT NOT NULL,
  step TEXT NOT NULL,
  user_id TEXT NOT NULL DEFAULT '',
  data_json TEXT NOT NULL DEFAULT '{}',
  created_at DATETIME NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_ref ON audit_events (audit_ref, id)`,
		`CREATE TABLE IF NOT EXISTS advisory_analyses (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  framework_id TEXT NOT NULL,
  user_id TEXT NOT NULL DEFAULT '',
  score REAL NULL,
  gap_count INTEGER NOT NULL DEFAULT 0,
  result_json TEXT NOT NULL,
  created_at DATETIME NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_analyses_tenant ON advisory_analyses (tenant_id, created_at)`,
	},
}
