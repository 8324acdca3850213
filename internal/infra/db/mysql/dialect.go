package mysql

import "github.com/bryanwahyu/regtech-advisor/internal/infra/db/sqlstore"

var Dialect = sqlstore.Dialect{
	Name:   "mysql",
	Upsert: sqlstore.OnDuplicateKey,
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS compliance_frameworks (
  id VARCHAR(64) NOT NULL PRIMARY KEY,
  code VARCHAR(64) NOT NULL,
  name VARCHAR(255) NOT NULL,
  authority VARCHAR(255) NOT NULL DEFAULT '',
  version VARCHAR(64) NOT NULL DEFAULT '',
  status VARCHAR(32) NOT NULL DEFAULT 'active',
  UNIQUE KEY uq_frameworks_code (code)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS compliance_controls (
  id VARCHAR(64) NOT NULL PRIMARY KEY,
  framework_id VARCHAR(64) NOT NULL,
  code VARCHAR(64) NOT NULL,
  name VARCHAR(255) NOT NULL,
  description TEXT NOT NULL,
  category VARCHAR(128) NOT NULL DEFAULT '',
  priority VARCHAR(32) NOT NULL DEFAULT '',
  required_evidence TEXT NOT NULL,
  UNIQUE KEY uq_controls_code (framework_id, code)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS compliance_articles (
  id VARCHAR(64) NOT NULL PRIMARY KEY,
  framework_id VARCHAR(64) NOT NULL,
  code VARCHAR(64) NOT NULL,
  title VARCHAR(255) NOT NULL,
  body MEDIUMTEXT NOT NULL,
  UNIQUE KEY uq_articles_code (framework_id, code)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS compliance_edges (
  id VARCHAR(191) NOT NULL PRIMARY KEY,
  from_type VARCHAR(32) NOT NULL,
  from_id VARCHAR(64) NOT NULL,
  to_type VARCHAR(32) NOT NULL,
  to_id VARCHAR(64) NOT NULL,
  relation_type VARCHAR(32) NOT NULL,
  KEY idx_edges_from (from_type, from_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS audit_events (
  id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
  audit_ref VARCHAR(64) NOT NULL,
  step VARCHAR(64) NOT NULL,
  user_id VARCHAR(128) NOT NULL DEFAULT '',
  data_json JSON NOT NULL,
  created_at DATETIME(6) NOT NULL,
  KEY idx_audit_ref (audit_ref, id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS advisory_analyses (
  id VARCHAR(64) NOT NULL PRIMARY KEY,
  tenant_id VARCHAR(64) NOT NULL,
  framework_id VARCHAR(64) NOT NULL,
  user_id VARCHAR(128) NOT NULL DEFAULT '',
  score DOUBLE NULL,
  gap_count INT NOT NULL DEFAULT 0,
  result_json JSON NOT NULL,
  created_at DATETIME(6) NOT NULL,
  KEY idx_analyses_tenant (tenant_id, created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	},
}
