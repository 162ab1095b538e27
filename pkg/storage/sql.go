package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SQLStorage implements the Storage interface using a SQL database via GORM
type SQLStorage struct {
	db *gorm.DB
}

// Config holds the configuration for SQL database connections
type Config struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns a default configuration for SQL connections
func DefaultConfig() Config {
	return Config{
		MaxIdleConns:    5,
		MaxOpenConns:    10,
		ConnMaxLifetime: time.Hour,
	}
}

// runModel flattens a RunRecord for relational storage; slice and map fields
// travel as JSON text.
type runModel struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
	Facs      string
	Labels    string
	Tables    string
}

func (runModel) TableName() string { return "runs" }

func toModel(run *RunRecord) (*runModel, error) {
	facs, err := json.Marshal(run.Facs)
	if err != nil {
		return nil, err
	}
	labels, err := json.Marshal(run.Labels)
	if err != nil {
		return nil, err
	}
	tables, err := json.Marshal(run.Tables)
	if err != nil {
		return nil, err
	}
	return &runModel{
		ID:        run.ID,
		Name:      run.Name,
		CreatedAt: run.CreatedAt,
		UpdatedAt: run.UpdatedAt,
		Facs:      string(facs),
		Labels:    string(labels),
		Tables:    string(tables),
	}, nil
}

func fromModel(m *runModel) (*RunRecord, error) {
	run := &RunRecord{
		ID:        m.ID,
		Name:      m.Name,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if err := json.Unmarshal([]byte(m.Facs), &run.Facs); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(m.Labels), &run.Labels); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(m.Tables), &run.Tables); err != nil {
		return nil, err
	}
	return run, nil
}

// NewFromSQLite creates a new SQLite storage instance
func NewFromSQLite(dbPath string, config Config, opts ...gorm.Option) (Storage, error) {
	dialect := sqlite.Open(dbPath)
	return newFromSQL(dialect, config, opts...)
}

// newFromSQL creates a new SQL storage instance with the specified configuration
func newFromSQL(dialect gorm.Dialector, config Config, opts ...gorm.Option) (Storage, error) {
	db, err := gorm.Open(dialect, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(config.MaxIdleConns)
	sqlDB.SetMaxOpenConns(config.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(config.ConnMaxLifetime)

	if err = db.AutoMigrate(&runModel{}); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLStorage{db: db}, nil
}

// CreateRun creates a new run in the SQL database
func (s *SQLStorage) CreateRun(ctx context.Context, run *RunRecord) error {
	m, err := toModel(run)
	if err != nil {
		return fmt.Errorf("failed to encode run: %w", err)
	}
	if result := s.db.WithContext(ctx).Create(m); result.Error != nil {
		return fmt.Errorf("failed to create run: %w", result.Error)
	}
	run.ID = m.ID
	return nil
}

// UpdateRun updates an existing run in the SQL database
func (s *SQLStorage) UpdateRun(ctx context.Context, run *RunRecord) error {
	tx := s.db.WithContext(ctx)

	var existing runModel
	if result := tx.First(&existing, run.ID); result.Error != nil {
		return fmt.Errorf("run not found: %w", result.Error)
	}

	m, err := toModel(run)
	if err != nil {
		return fmt.Errorf("failed to encode run: %w", err)
	}
	if result := tx.Save(m); result.Error != nil {
		return fmt.Errorf("failed to update run: %w", result.Error)
	}
	return nil
}

// Runs retrieves runs from the SQL database based on provided filters
func (s *SQLStorage) Runs(ctx context.Context, filters ...RunFilter) ([]*RunRecord, error) {
	var models []runModel
	if result := s.db.WithContext(ctx).Order("updated_at").Find(&models); result.Error != nil {
		return nil, fmt.Errorf("failed to query runs: %w", result.Error)
	}

	runs := make([]*RunRecord, 0, len(models))
	for i := range models {
		run, err := fromModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("failed to decode run %d: %w", models[i].ID, err)
		}
		if matchAll(*run, filters) {
			runs = append(runs, run)
		}
	}
	return runs, nil
}
