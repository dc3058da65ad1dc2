// Package domain defines the core interfaces and types for Kestrel.
package domain

import (
	"context"
	"time"
)

// Repository defines the interface for the audit trail. The in-memory
// pipeline state stays authoritative; repository writes are best-effort
// and never block detection.
type Repository interface {
	// CDR audit log
	SaveCDR(ctx context.Context, cdr *CDR) error
	GetCDRsByCaller(ctx context.Context, callerID string, since time.Time) ([]*CDR, error)

	// Alert audit log
	SaveAlert(ctx context.Context, alert *Alert) error
	UpdateAlertStatus(ctx context.Context, alertID int64, status string) error

	// Latest assessment per caller (upsert)
	SaveAssessment(ctx context.Context, callerID string, rec *CallerRecord) error
	GetAssessment(ctx context.Context, callerID string) (*CallerRecord, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
