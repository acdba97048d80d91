package mock

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"cookbook/internal/db"
	applog "cookbook/internal/log"
	"cookbook/models"
)

// Seed rows sit below the identity start so tests can tell them apart from
// rows created at runtime.
const (
	SeedIngredientID   int64 = 1
	SeedIngredientName       = "basil"
	SeedRecipeID       int64 = 1
	SeedRecipeTitle          = "spaghetti"
	SeedQuantity             = "1 bunch"
)

// New returns a private in-memory sqlite database with the schema migrated,
// a small seed data set, and id generators moved to identityStart.
func New(ctx context.Context, identityStart int64) (*gorm.DB, error) {
	applog.Debug(ctx, "initialising mock database")

	dsn := fmt.Sprintf("file:cookbook-%s?mode=memory&cache=shared", uuid.NewString())
	database, err := gorm.Open(sqlite.Open(dsn), db.GormConfig(logger.Silent))
	if err != nil {
		return nil, err
	}

	sqlDB, err := database.DB()
	if err != nil {
		return nil, err
	}
	// One connection keeps the shared-cache database alive and avoids
	// SQLITE_LOCKED between pooled connections.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(database); err != nil {
		return nil, err
	}

	if err := seed(ctx, database); err != nil {
		return nil, err
	}

	if err := db.EnsureIdentityStart(ctx, database, identityStart); err != nil {
		return nil, err
	}

	applog.Debug(ctx, "mock database ready", "identityStart", identityStart)
	return database, nil
}

func seed(ctx context.Context, database *gorm.DB) error {
	applog.Debug(ctx, "seeding mock database")

	return database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		basil := models.Ingredient{ID: SeedIngredientID, Name: SeedIngredientName}
		if err := tx.Create(&basil).Error; err != nil {
			return err
		}

		spaghetti := models.Recipe{ID: SeedRecipeID, Title: SeedRecipeTitle}
		if err := tx.Create(&spaghetti).Error; err != nil {
			return err
		}

		line := models.RecipeIngredient{
			RecipeID:       spaghetti.ID,
			IngredientID:   basil.ID,
			IngredientName: basil.Name,
			Quantity:       SeedQuantity,
		}
		return tx.Create(&line).Error
	})
}
