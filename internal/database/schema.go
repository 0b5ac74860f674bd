package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"skillswap/internal/config"
	"skillswap/internal/middleware"

	"gorm.io/gorm"
)

// SchemaMode selects how the schema is brought up to date (DB_SCHEMA_MODE).
type SchemaMode string

const (
	// SchemaModeHybrid runs the SQL migrations, then AutoMigrate outside prod-like environments.
	SchemaModeHybrid SchemaMode = "hybrid"
	// SchemaModeSQL runs only the embedded SQL migrations.
	SchemaModeSQL SchemaMode = "sql"
	// SchemaModeAuto runs only AutoMigrate; refused in prod-like environments.
	SchemaModeAuto SchemaMode = "auto"
)

// SchemaPlan is what ApplySchema will do for one configuration.
type SchemaPlan struct {
	Mode           SchemaMode
	Environment    string
	RunSQL         bool
	RunAutoMigrate bool
}

// MigrationState pairs a registered migration with whether it has been applied.
type MigrationState struct {
	Migration
	Applied bool
}

// SchemaStatus is a SchemaPlan plus the state of every registered migration.
type SchemaStatus struct {
	SchemaPlan
	Migrations []MigrationState
	// Unknown lists applied versions this binary does not ship.
	Unknown []int
}

// Pending returns the migrations not yet applied, in version order.
func (s *SchemaStatus) Pending() []Migration {
	var pending []Migration
	for _, m := range s.Migrations {
		if !m.Applied {
			pending = append(pending, m.Migration)
		}
	}
	return pending
}

func isProdLikeEnv(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod", "staging", "stage":
		return true
	}
	return false
}

// PlanSchema resolves DB_SCHEMA_MODE against the environment.
func PlanSchema(cfg *config.Config) (SchemaPlan, error) {
	mode := SchemaMode(strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode)))
	if mode == "" {
		mode = SchemaModeHybrid
	}
	plan := SchemaPlan{Mode: mode, Environment: cfg.Env}
	prodLike := isProdLikeEnv(cfg.Env)

	switch mode {
	case SchemaModeSQL:
		plan.RunSQL = true
	case SchemaModeAuto:
		if prodLike {
			return plan, fmt.Errorf("refusing DB_SCHEMA_MODE=auto in %q; swap and feedback constraints ship as SQL migrations", cfg.Env)
		}
		plan.RunAutoMigrate = true
	case SchemaModeHybrid:
		plan.RunSQL = true
		plan.RunAutoMigrate = !prodLike
	default:
		return plan, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", mode)
	}
	return plan, nil
}

// AutoMigrate creates or updates tables for every persistent model, then adds
// the expression indexes struct tags cannot describe.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(PersistentModels()...); err != nil {
		return err
	}
	return ensureDomainIndexes(db)
}

// ensureDomainIndexes creates the case-insensitive skill name index and the
// one-PENDING-per-pair index. Both mirror the SQL migrations.
func ensureDomainIndexes(db *gorm.DB) error {
	pairLow, pairHigh := "LEAST(sender_id, receiver_id)", "GREATEST(sender_id, receiver_id)"
	if db.Dialector.Name() == "sqlite" {
		pairLow, pairHigh = "MIN(sender_id, receiver_id)", "MAX(sender_id, receiver_id)"
	}
	statements := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_skills_name_lower ON skills (LOWER(name))`,
		fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS idx_swap_requests_pending_pair
			ON swap_requests (%s, %s) WHERE status = 'PENDING'`, pairLow, pairHigh),
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create domain index: %w", err)
		}
	}
	return nil
}

// ApplySchema runs SQL migrations and/or AutoMigrate according to DB_SCHEMA_MODE.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	plan, err := PlanSchema(cfg)
	if err != nil {
		return err
	}

	if plan.RunSQL {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
	}
	if plan.RunAutoMigrate {
		middleware.Logger.InfoContext(ctx, "Running GORM AutoMigrate",
			slog.String("mode", string(plan.Mode)),
			slog.String("env", plan.Environment),
		)
		if err := AutoMigrate(db.WithContext(ctx)); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
	}
	return nil
}

// GetSchemaStatus reports the plan and per-migration state without changing anything.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	plan, err := PlanSchema(cfg)
	if err != nil {
		return nil, err
	}

	applied, err := NewMigrationStore(db).GetAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}
	appliedSet := make(map[int]bool, len(applied))
	for _, version := range applied {
		appliedSet[version] = true
	}

	status := &SchemaStatus{SchemaPlan: plan}
	for _, m := range GetMigrations() {
		status.Migrations = append(status.Migrations, MigrationState{Migration: m, Applied: appliedSet[m.Version]})
		delete(appliedSet, m.Version)
	}
	for _, version := range applied {
		if appliedSet[version] {
			status.Unknown = append(status.Unknown, version)
		}
	}
	return status, nil
}
