// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/opensource-telco/kestrel/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveCDR appends a call record to the audit log.
func (r *SQLRepository) SaveCDR(ctx context.Context, cdr *domain.CDR) error {
	if cdr == nil || cdr.CallerID == "" {
		return fmt.Errorf("%w: caller_id is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO cdrs (
			caller_id, destination, duration, timestamp, origin_region, target_region
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		cdr.CallerID, cdr.Destination, cdr.Duration,
		cdr.Timestamp, cdr.OriginRegion, cdr.TargetRegion,
	)
	return err
}

// GetCDRsByCaller retrieves call records for a caller, newest first.
func (r *SQLRepository) GetCDRsByCaller(ctx context.Context, callerID string, since time.Time) ([]*domain.CDR, error) {
	if callerID == "" {
		return nil, fmt.Errorf("%w: caller_id is required", ErrInvalidInput)
	}

	query := `
		SELECT caller_id, destination, duration, timestamp, origin_region, target_region
		FROM cdrs
		WHERE caller_id = ? AND timestamp >= ?
		ORDER BY timestamp DESC
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), callerID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cdrs []*domain.CDR
	for rows.Next() {
		var cdr domain.CDR
		if err := rows.Scan(
			&cdr.CallerID, &cdr.Destination, &cdr.Duration,
			&cdr.Timestamp, &cdr.OriginRegion, &cdr.TargetRegion,
		); err != nil {
			return nil, err
		}
		cdrs = append(cdrs, &cdr)
	}

	return cdrs, rows.Err()
}

// SaveAlert stores an alert in the audit log.
func (r *SQLRepository) SaveAlert(ctx context.Context, alert *domain.Alert) error {
	if alert == nil {
		return fmt.Errorf("%w: alert is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO alerts (
			id, severity, title, description, cluster_id, caller_id, status, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		alert.ID, alert.Severity, alert.Title, alert.Description,
		alert.ClusterID, alert.CallerID, alert.Status, alert.CreatedAt,
	)
	return err
}

// UpdateAlertStatus flips the status of a persisted alert.
func (r *SQLRepository) UpdateAlertStatus(ctx context.Context, alertID int64, status string) error {
	query := `
		UPDATE alerts
		SET status = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, r.rebind(query), status, alertID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// SaveAssessment upserts the latest assessment for a caller.
func (r *SQLRepository) SaveAssessment(ctx context.Context, callerID string, rec *domain.CallerRecord) error {
	if callerID == "" {
		return fmt.Errorf("%w: caller_id is required", ErrInvalidInput)
	}
	if rec == nil {
		return fmt.Errorf("%w: record is required", ErrInvalidInput)
	}

	features, _ := json.Marshal(rec.Features)

	isFraud := 0
	if rec.Assessment.IsFraud {
		isFraud = 1
	}

	query := `
		INSERT INTO assessments (
			caller_id, is_fraud, risk_score, anomaly_score, prediction,
			cluster_id, fraud_type, features, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(caller_id) DO UPDATE SET
			is_fraud = excluded.is_fraud,
			risk_score = excluded.risk_score,
			anomaly_score = excluded.anomaly_score,
			prediction = excluded.prediction,
			cluster_id = excluded.cluster_id,
			fraud_type = excluded.fraud_type,
			features = excluded.features,
			timestamp = excluded.timestamp
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		callerID, isFraud, rec.Assessment.RiskScore, rec.Assessment.AnomalyScore,
		rec.Assessment.Prediction, rec.ClusterID, rec.FraudType,
		string(features), rec.Timestamp,
	)
	return err
}

// GetAssessment retrieves the latest assessment for a caller.
func (r *SQLRepository) GetAssessment(ctx context.Context, callerID string) (*domain.CallerRecord, error) {
	if callerID == "" {
		return nil, fmt.Errorf("%w: caller_id is required", ErrInvalidInput)
	}

	query := `
		SELECT is_fraud, risk_score, anomaly_score, prediction,
			   cluster_id, fraud_type, features, timestamp
		FROM assessments
		WHERE caller_id = ?
	`

	var rec domain.CallerRecord
	var isFraud int
	var features string

	err := r.db.QueryRowContext(ctx, r.rebind(query), callerID).Scan(
		&isFraud, &rec.Assessment.RiskScore, &rec.Assessment.AnomalyScore,
		&rec.Assessment.Prediction, &rec.ClusterID, &rec.FraudType,
		&features, &rec.Timestamp,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rec.Assessment.IsFraud = isFraud == 1
	if features != "" {
		json.Unmarshal([]byte(features), &rec.Features)
	}

	return &rec, nil
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	// Convert ? to $1, $2, etc.
	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
