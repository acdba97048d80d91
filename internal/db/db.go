package db

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cookbook/internal/config"
	applog "cookbook/internal/log"
	"cookbook/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// identityTables lists the tables whose ids are assigned by the database.
var identityTables = []string{"ingredients", "recipes"}

// GormConfig returns the gorm settings shared by every connection the
// application opens.
func GormConfig(level logger.LogLevel) *gorm.Config {
	return &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(level),
		NamingStrategy: schema.NamingStrategy{
			SingularTable: false,
		},
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		DisableForeignKeyConstraintWhenMigrating: true,
	}
}

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("database URL must not be empty")
	}

	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	level := logger.Warn
	if applog.Enabled(context.Background(), slog.LevelDebug) {
		level = logger.Info
	}

	db, err := gorm.Open(dialector, GormConfig(level))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}

	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	if cfg.ConnectTimeout > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
		defer cancel()
		if err := sqlDB.PingContext(ctx); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("connect database within %s: %w", cfg.ConnectTimeout, err)
		}
	}

	return db, nil
}

func dialectorFor(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case config.DriverPostgres, "":
		return postgres.Open(cfg.URL), nil
	case config.DriverSQLite:
		return sqlite.Open(cfg.URL), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}

func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database handle is nil")
	}

	return db.AutoMigrate(
		&models.Ingredient{},
		&models.Recipe{},
		&models.RecipeIngredient{},
	)
}

// EnsureIdentityStart moves the id generators of the identity tables so the
// next generated id is at least start. Generators already past start, or
// tables holding larger ids, are left ahead.
func EnsureIdentityStart(ctx context.Context, db *gorm.DB, start int64) error {
	if db == nil {
		return fmt.Errorf("database handle is nil")
	}
	if start < 1 {
		return fmt.Errorf("identity start must be positive, got %d", start)
	}

	dialect := db.Dialector.Name()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, table := range identityTables {
			var err error
			switch dialect {
			case "postgres":
				err = ensurePostgresSequence(tx, table, start)
			case "sqlite":
				err = ensureSQLiteSequence(tx, table, start)
			default:
				return fmt.Errorf("identity start not supported for %s", dialect)
			}
			if err != nil {
				return fmt.Errorf("identity start for %s: %w", table, err)
			}
		}
		return nil
	})
}

func ensurePostgresSequence(tx *gorm.DB, table string, start int64) error {
	// table comes from identityTables, never from input.
	sql := fmt.Sprintf(`SELECT setval(
		pg_get_serial_sequence('%[1]s', 'id'),
		GREATEST(?, nextval(pg_get_serial_sequence('%[1]s', 'id')), (SELECT COALESCE(MAX(id), 0) + 1 FROM %[1]s)),
		false
	)`, table)
	return tx.Exec(sql, start).Error
}

func ensureSQLiteSequence(tx *gorm.DB, table string, start int64) error {
	var maxID int64
	if err := tx.Raw(fmt.Sprintf("SELECT COALESCE(MAX(id), 0) FROM %s", table)).Scan(&maxID).Error; err != nil {
		return err
	}

	// sqlite hands out max(seq, max(rowid)) + 1.
	seq := start - 1
	if maxID > seq {
		seq = maxID
	}

	if err := tx.Exec("DELETE FROM sqlite_sequence WHERE name = ? AND seq < ?", table, seq).Error; err != nil {
		return err
	}
	return tx.Exec(
		"INSERT INTO sqlite_sequence (name, seq) SELECT ?, ? WHERE NOT EXISTS (SELECT 1 FROM sqlite_sequence WHERE name = ?)",
		table, seq, table,
	).Error
}

// Configure opens the database, migrates the schema and applies the
// configured identity start.
func Configure(cfg config.DatabaseConfig) (*gorm.DB, error) {
	database, err := Initialize(cfg)
	if err != nil {
		return nil, err
	}

	if err := AutoMigrate(database); err != nil {
		return nil, err
	}

	if err := EnsureIdentityStart(context.Background(), database, cfg.IdentityStart); err != nil {
		return nil, err
	}

	return database, nil
}
