package repository

// Schema definitions for the Kestrel audit trail.
// Compatible with both SQLite and PostgreSQL.

const schemaCDRs = `
CREATE TABLE IF NOT EXISTS cdrs (
    caller_id TEXT NOT NULL,
    destination TEXT NOT NULL,
    duration REAL NOT NULL,
    timestamp TIMESTAMP NOT NULL,
    origin_region TEXT NOT NULL,
    target_region TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cdrs_caller ON cdrs(caller_id);
CREATE INDEX IF NOT EXISTS idx_cdrs_timestamp ON cdrs(caller_id, timestamp);
`

const schemaAlerts = `
CREATE TABLE IF NOT EXISTS alerts (
    id INTEGER PRIMARY KEY,
    severity TEXT NOT NULL,
    title TEXT NOT NULL,
    description TEXT,
    cluster_id TEXT,
    caller_id TEXT,
    status TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_alerts_severity ON alerts(severity);
CREATE INDEX IF NOT EXISTS idx_alerts_status ON alerts(status);
CREATE INDEX IF NOT EXISTS idx_alerts_created ON alerts(created_at);
`

// schemaAssessments keeps one row per caller: the latest assessment
// overwrites the previous one.
const schemaAssessments = `
CREATE TABLE IF NOT EXISTS assessments (
    caller_id TEXT PRIMARY KEY,
    is_fraud INTEGER NOT NULL,
    risk_score REAL NOT NULL,
    anomaly_score REAL NOT NULL,
    prediction INTEGER NOT NULL,
    cluster_id TEXT,
    fraud_type TEXT NOT NULL,
    features TEXT NOT NULL,
    timestamp TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_assessments_cluster ON assessments(cluster_id);
CREATE INDEX IF NOT EXISTS idx_assessments_fraud ON assessments(is_fraud);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaCDRs,
		schemaAlerts,
		schemaAssessments,
	}
}
