package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ledger/backend/internal/infrastructure/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrMissingCompany is added to a query scoped with the nil company id.
var ErrMissingCompany = errors.New("persistence: query scoped without a company id")

// Database is the ledger's Postgres handle.
type Database struct {
	DB *gorm.DB
}

// Plugin extends the connection after it is opened; DB tracing is one.
type Plugin interface {
	RegisterOtelGorm(db *gorm.DB) error
}

// Open connects to Postgres, sizes the pool, verifies the connection within
// ctx and registers plugins in order.
func Open(ctx context.Context, cfg *config.DatabaseConfig, gormLogger logger.Interface, plugins ...Plugin) (*Database, error) {
	if gormLogger == nil {
		gormLogger = logger.Discard
	}
	db, err := gorm.Open(postgres.Open(cfg.DSN()), GormConfig(gormLogger))
	if err != nil {
		return nil, fmt.Errorf("open postgres %s/%s: %w", cfg.Host, cfg.DBName, err)
	}
	d := &Database{DB: db}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)

	if err := d.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	for _, p := range plugins {
		if err := p.RegisterOtelGorm(db); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("register %T: %w", p, err)
		}
	}
	return d, nil
}

// GormConfig is shared by every connection, including the sqlite test ones.
// TranslateError turns unique violations into gorm.ErrDuplicatedKey, which
// the repositories map to voucher number and optimistic version conflicts.
func GormConfig(gormLogger logger.Interface) *gorm.Config {
	return &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		TranslateError:         true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	}
}

// PingContext backs the database health check.
func (d *Database) PingContext(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// forCompany scopes a query to one company. The nil id fails the query
// instead of silently matching nothing.
func forCompany(companyID uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		if companyID == uuid.Nil {
			_ = tx.AddError(ErrMissingCompany)
			return tx
		}
		return tx.Where("company_id = ?", companyID)
	}
}
