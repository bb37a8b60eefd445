// Package history provides PostgreSQL persistence for scan results. Each
// successful scan is stored as one scan record plus a JSON snapshot per
// device, so past device sets can be inspected after the fact.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver

	"github.com/mjelva/netwarden/internal/device"
	apperrors "github.com/mjelva/netwarden/internal/errors"
	"github.com/mjelva/netwarden/internal/logging"
)

const (
	defaultPostgresPort = 5432
	defaultMaxOpenConns = 10
	defaultMaxIdleConns = 2
	defaultHistoryLimit = 50
)

// Config holds database configuration.
type Config struct {
	Host         string `yaml:"host" json:"host"`
	Port         int    `yaml:"port" json:"port"`
	Database     string `yaml:"database" json:"database"`
	Username     string `yaml:"username" json:"username"`
	Password     string `yaml:"password" json:"password"`
	SSLMode      string `yaml:"ssl_mode" json:"ssl_mode"`
	MaxOpenConns int    `yaml:"max_open_conns" json:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns" json:"max_idle_conns"`
}

// DefaultConfig returns the default database configuration. Database name
// and credentials must be explicitly configured.
func DefaultConfig() Config {
	return Config{
		Host:         "localhost",
		Port:         defaultPostgresPort,
		SSLMode:      "disable",
		MaxOpenConns: defaultMaxOpenConns,
		MaxIdleConns: defaultMaxIdleConns,
	}
}

// ConnectionString builds the postgres DSN for this configuration.
func (c Config) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%s dbname=%s user=%s password=%s sslmode=%s",
		c.Host, strconv.Itoa(c.Port), c.Database, c.Username, c.Password, c.SSLMode)
}

// Addr returns the host:port the configuration points at.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Record summarizes one stored scan.
type Record struct {
	ID           string    `db:"id" json:"id"`
	Timestamp    time.Time `db:"created_at" json:"timestamp"`
	DeviceCount  int       `db:"device_count" json:"device_count"`
	AverageScore int       `db:"average_score" json:"average_score"`
	IssuesFound  int       `db:"issues_found" json:"issues_found"`
}

// Store persists scan history in PostgreSQL.
type Store struct {
	db     *sqlx.DB
	logger *logging.Logger
}

// Connect opens a database connection and verifies it.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Database == "" {
		return nil, apperrors.ErrConfigMissing("database.database")
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.ConnectionString())
	if err != nil {
		return nil, apperrors.WrapDatabaseError(apperrors.CodeDatabaseConnection,
			"Failed to connect to database", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)

	return NewStore(db), nil
}

// NewStore wraps an existing connection. Used directly by tests.
func NewStore(db *sqlx.DB) *Store {
	return &Store{
		db:     db,
		logger: logging.Default().WithComponent("history"),
	}
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate creates the history schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS scans (
			id UUID PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL,
			device_count INTEGER NOT NULL,
			average_score INTEGER NOT NULL,
			issues_found INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS scan_devices (
			id UUID PRIMARY KEY,
			scan_id UUID NOT NULL REFERENCES scans(id),
			data JSONB NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_devices_scan ON scan_devices(scan_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return apperrors.WrapDatabaseError(apperrors.CodeDatabaseQuery,
				"Failed to run history migration", err)
		}
	}
	return nil
}

// SaveScan stores a completed scan and its device snapshots, returning the
// new record ID. Implements session.Recorder.
func (s *Store) SaveScan(ctx context.Context, devices []device.Device) (string, error) {
	scanID := uuid.NewString()
	now := time.Now().UTC()

	averageScore := 0
	issuesFound := 0
	if len(devices) > 0 {
		sum := 0
		for i := range devices {
			sum += devices[i].SecurityScore
			issuesFound += len(devices[i].Issues)
		}
		averageScore = sum / len(devices)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", apperrors.WrapDatabaseError(apperrors.CodeDatabaseQuery,
			"Failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO scans (id, created_at, device_count, average_score, issues_found)
		 VALUES ($1, $2, $3, $4, $5)`,
		scanID, now, len(devices), averageScore, issuesFound)
	if err != nil {
		return "", apperrors.WrapDatabaseError(apperrors.CodeDatabaseQuery,
			"Failed to insert scan record", err)
	}

	for i := range devices {
		data, err := json.Marshal(&devices[i])
		if err != nil {
			return "", apperrors.WrapDatabaseError(apperrors.CodeDatabaseQuery,
				"Failed to encode device snapshot", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO scan_devices (id, scan_id, data) VALUES ($1, $2, $3)`,
			devices[i].ID, scanID, data)
		if err != nil {
			return "", apperrors.WrapDatabaseError(apperrors.CodeDatabaseQuery,
				"Failed to insert device snapshot", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", apperrors.WrapDatabaseError(apperrors.CodeDatabaseQuery,
			"Failed to commit scan record", err)
	}

	s.logger.Debug("Scan recorded", "scan_id", scanID, "devices", len(devices))
	return scanID, nil
}

// History returns the most recent scan records, newest first. A limit of
// zero applies the default of 50.
func (s *Store) History(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	records := []Record{}
	err := s.db.SelectContext(ctx, &records,
		`SELECT id, created_at, device_count, average_score, issues_found
		 FROM scans ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(apperrors.CodeDatabaseQuery,
			"Failed to load scan history", err)
	}
	return records, nil
}

// Device returns a stored device snapshot by ID, or nil when unknown.
func (s *Store) Device(ctx context.Context, deviceID string) (*device.Device, error) {
	var data []byte
	err := s.db.GetContext(ctx, &data,
		`SELECT data FROM scan_devices WHERE id = $1`, deviceID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.WrapDatabaseError(apperrors.CodeDatabaseQuery,
			"Failed to load device snapshot", err)
	}

	var d device.Device
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, apperrors.WrapDatabaseError(apperrors.CodeDatabaseQuery,
			"Failed to decode device snapshot", err)
	}
	return &d, nil
}

// ScanDevices returns every device snapshot from one stored scan.
func (s *Store) ScanDevices(ctx context.Context, scanID string) ([]device.Device, error) {
	var rows [][]byte
	err := s.db.SelectContext(ctx, &rows,
		`SELECT data FROM scan_devices WHERE scan_id = $1`, scanID)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(apperrors.CodeDatabaseQuery,
			"Failed to load scan devices", err)
	}

	devices := make([]device.Device, 0, len(rows))
	for _, data := range rows {
		var d device.Device
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, apperrors.WrapDatabaseError(apperrors.CodeDatabaseQuery,
				"Failed to decode device snapshot", err)
		}
		devices = append(devices, d)
	}
	return devices, nil
}
